package post

import (
	"errors"
	"time"

	"github.com/geocoder89/pressroom/internal/domain/identity"
)

type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusPublished Status = "PUBLISHED"
)

func (s Status) Valid() bool {
	return s == StatusDraft || s == StatusPublished
}

type Post struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Body        string        `json:"body"`
	Status      Status        `json:"status"`
	AuthorID    string        `json:"authorId"`
	Author      *identity.Ref `json:"author,omitempty"`
	PublishedAt *time.Time    `json:"publishedAt,omitempty"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}

var ErrNotFound = errors.New("post not found")

// returned when an edit tries to move a published post back to draft
var ErrInvalidTransition = errors.New("published posts cannot return to draft")

type CreatePostRequest struct {
	Title string `json:"title" binding:"required,min=3,max=200"`
	Body  string `json:"body" binding:"required,min=1"`
	// AuthorID comes from the resolved identity, never from the payload.
	AuthorID string `json:"-"`
}

// a patch payload, nil fields are left untouched.
type UpdatePostRequest struct {
	Title  *string `json:"title" binding:"omitempty,min=3,max=200"`
	Body   *string `json:"body" binding:"omitempty,min=1"`
	Status *Status `json:"status" binding:"omitempty"`
}
