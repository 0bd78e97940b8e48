package model

import "time"

// Identity is the user of a session: an id plus optional contact
// details. A nil *Identity means nobody is signed in.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// Tokens is the credential pair a client keeps after signing in.
type Tokens struct {
	Access         string    `json:"access"`
	AccessExpires  time.Time `json:"access_expires"`
	Refresh        string    `json:"refresh"`
	RefreshExpires time.Time `json:"refresh_expires"`
}
