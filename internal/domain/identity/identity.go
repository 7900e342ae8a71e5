package identity

import (
	"errors"
	"time"
)

const (
	RoleUser     = "USER"
	RoleAuthor   = "AUTHOR"
	RoleAppAdmin = "APP_ADMIN"
)

var ErrNotFound = errors.New("user not found")

// error for a role value outside the three canonical ones.
var ErrInvalidRole = errors.New("invalid role")

type Identity struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // never expose hash in JSON
	Roles        RoleSet   `json:"roles"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Ref is the public slice of an identity embedded in posts and comments.
type Ref struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (i Identity) Ref() Ref {
	return Ref{ID: i.ID, Name: i.Name, Email: i.Email}
}
