package session

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/iliyamo/minimal-calendar/internal/kv"
	"github.com/iliyamo/minimal-calendar/internal/model"
)

// localUser is one entry of the simulated account list.
type localUser struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LocalBackend simulates accounts on the device for demos and
// development. DEMO ONLY: passwords are stored and compared in plain
// text and there is no brute-force protection. Never use it to hold
// real credentials.
type LocalBackend struct {
	kv kv.Store
}

// NewLocalBackend keeps the account list under kv.KeyUsers and the
// current identity under kv.KeyUser.
func NewLocalBackend(s kv.Store) *LocalBackend {
	return &LocalBackend{kv: s}
}

func (b *LocalBackend) users(ctx context.Context) ([]localUser, error) {
	raw, ok, err := b.kv.Get(ctx, kv.KeyUsers)
	if err != nil {
		return nil, err
	}
	if !ok || raw == "" {
		return nil, nil
	}
	var out []localUser
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("decode local users: %w", err)
	}
	return out, nil
}

func (b *LocalBackend) setCurrent(ctx context.Context, id *model.Identity) error {
	raw, err := json.Marshal(id)
	if err != nil {
		return err
	}
	return b.kv.Set(ctx, kv.KeyUser, string(raw))
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (b *LocalBackend) SignIn(ctx context.Context, email, password string) (*model.Identity, error) {
	users, err := b.users(ctx)
	if err != nil {
		return nil, err
	}
	email = normalizeEmail(email)
	for _, u := range users {
		if u.Email == email && u.Password == password {
			id := &model.Identity{ID: u.ID, Email: u.Email}
			if err := b.setCurrent(ctx, id); err != nil {
				return nil, err
			}
			return id, nil
		}
	}
	return nil, ErrInvalidCredentials
}

func (b *LocalBackend) SignUp(ctx context.Context, email, password string) (*model.Identity, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, fmt.Errorf("email and password are required")
	}
	users, err := b.users(ctx)
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		if u.Email == email {
			return nil, ErrAlreadyRegistered
		}
	}
	u := localUser{ID: uuid.NewString(), Email: email, Password: password}
	raw, err := json.Marshal(append(users, u))
	if err != nil {
		return nil, err
	}
	if err := b.kv.Set(ctx, kv.KeyUsers, string(raw)); err != nil {
		return nil, err
	}
	id := &model.Identity{ID: u.ID, Email: u.Email}
	if err := b.setCurrent(ctx, id); err != nil {
		return nil, err
	}
	return id, nil
}

func (b *LocalBackend) SignOut(ctx context.Context) error {
	return b.kv.Delete(ctx, kv.KeyUser)
}

// GetSession reads the persisted identity. Malformed data counts as no
// session.
func (b *LocalBackend) GetSession(ctx context.Context) (*model.Identity, error) {
	raw, ok, err := b.kv.Get(ctx, kv.KeyUser)
	if err != nil {
		return nil, err
	}
	if !ok || raw == "" {
		return nil, nil
	}
	var id model.Identity
	if err := json.Unmarshal([]byte(raw), &id); err != nil || id.ID == "" {
		return nil, nil
	}
	return &id, nil
}
