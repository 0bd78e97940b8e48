package model

import "time"

// User represents an account record as stored in the `users` table.
// Each field corresponds to a column in the database. Handlers never
// serialise this struct directly; they expose an Identity instead so
// the password hash cannot leak into a response.
//
// Fields:
//  ID           – primary key, a UUID string assigned by the server.
//  Email        – unique, lower-cased email address.
//  Phone        – optional phone number (empty when unset).
//  PasswordHash – bcrypt hashed password.
//  IsActive     – whether the account may sign in.
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type User struct {
	ID           string    // users.id
	Email        string    // users.email
	Phone        string    // users.phone
	PasswordHash string    // users.password_hash
	IsActive     bool      // users.is_active
	CreatedAt    time.Time // users.created_at
	UpdatedAt    time.Time // users.updated_at
}

// Identity returns the public part of the user.
func (u User) Identity() Identity {
	return Identity{ID: u.ID, Email: u.Email, Phone: u.Phone}
}

// RefreshToken models an entry in the `refresh_tokens` table.  Each
// refresh token belongs to a user and contains metadata for expiry
// and revocation.  The plain token is not stored; only its
// SHA‑256 hash.
//
// Fields:
//  ID        – primary key identifier.
//  UserID    – owner of the token.
//  TokenHash – SHA‑256 hex digest of the token value.
//  ExpiresAt – expiration timestamp of the token.
//  RevokedAt – when the token was revoked (null if still active).
//  CreatedAt – timestamp of creation.
type RefreshToken struct {
	ID        uint64     // refresh_tokens.id
	UserID    string     // refresh_tokens.user_id
	TokenHash string     // refresh_tokens.token_hash
	ExpiresAt time.Time  // refresh_tokens.expires_at
	RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
	CreatedAt time.Time  // refresh_tokens.created_at
}
