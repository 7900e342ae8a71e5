package post

import (
	"time"

	"github.com/google/uuid"
)

// New posts always start as drafts, whatever the request says.
func NewFromCreateRequest(req CreatePostRequest) Post {
	now := time.Now().UTC()

	return Post{
		ID:        uuid.NewString(),
		Title:     req.Title,
		Body:      req.Body,
		Status:    StatusDraft,
		AuthorID:  req.AuthorID,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// ApplyEdit folds a patch into the post in memory, mirroring the SQL the
// postgres repo runs. The publication timestamp is set at the first
// DRAFT->PUBLISHED transition and never touched again; re-publishing an
// already published post is a no-op on the timestamp.
func (p Post) ApplyEdit(req UpdatePostRequest, now time.Time) (Post, error) {
	if req.Title != nil {
		p.Title = *req.Title
	}

	if req.Body != nil {
		p.Body = *req.Body
	}

	if req.Status != nil {
		switch {
		case *req.Status == StatusPublished && p.Status != StatusPublished:
			at := now
			p.PublishedAt = &at
			p.Status = StatusPublished
		case *req.Status == StatusDraft && p.Status == StatusPublished:
			return Post{}, ErrInvalidTransition
		}
	}

	p.UpdatedAt = now

	return p, nil
}
