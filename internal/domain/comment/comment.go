package comment

import (
	"errors"
	"time"

	"github.com/geocoder89/pressroom/internal/domain/identity"
	"github.com/google/uuid"
)

// Comments are append-only: no edit or delete anywhere in the API.
type Comment struct {
	ID        string        `json:"id"`
	PostID    string        `json:"postId"`
	AuthorID  string        `json:"authorId"`
	Author    *identity.Ref `json:"author,omitempty"`
	Message   string        `json:"message"`
	CreatedAt time.Time     `json:"createdAt"`
}

var ErrNotFound = errors.New("comment not found")

type CreateCommentRequest struct {
	PostID   string `json:"-"`
	AuthorID string `json:"-"`
	Message  string `json:"message" binding:"required,min=1,max=2000"`
}

func NewFromCreateRequest(req CreateCommentRequest) Comment {
	return Comment{
		ID:        uuid.NewString(),
		PostID:    req.PostID,
		AuthorID:  req.AuthorID,
		Message:   req.Message,
		CreatedAt: time.Now().UTC(),
	}
}
