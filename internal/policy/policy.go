// Package policy is the single place where authorization and content
// visibility are decided. Every decision here is a pure function of the
// actor and the resource snapshot it is handed; storage access, retries
// and response mapping belong to the callers.
package policy

import (
	"errors"

	"github.com/geocoder89/pressroom/internal/domain/identity"
	"github.com/geocoder89/pressroom/internal/domain/post"
)

var (
	ErrUnauthenticated = errors.New("authentication required")
	ErrForbidden       = errors.New("insufficient role or ownership")
	ErrInvalidState    = errors.New("post state does not allow this action")
	ErrInvalidStatus   = errors.New("invalid status filter")
)

// Actor is the resolved caller of a request. The zero value is the
// anonymous caller.
type Actor struct {
	ID    string
	Roles identity.RoleSet
}

func Anonymous() Actor {
	return Actor{}
}

func (a Actor) IsAnonymous() bool {
	return a.ID == ""
}

func (a Actor) IsAdmin() bool {
	return a.Roles.Has(identity.RoleAppAdmin)
}

func (a Actor) IsAuthor() bool {
	return a.Roles.Has(identity.RoleAuthor)
}

type Action int

const (
	ActionCreatePost Action = iota
	ActionEditPost
	ActionAddComment
	ActionChangeRole
	ActionListIdentities
)

// Resource carries the parts of the target an authorization rule looks at.
// Actions without a target (create, admin actions) pass nil.
type Resource struct {
	OwnerID    string
	PostStatus post.Status
}

// Authorize decides whether the actor may perform a mutating action.
// It returns nil when allowed, otherwise one of the sentinel errors above.
// Every action here requires a resolved identity.
func Authorize(action Action, actor Actor, res *Resource) error {
	if actor.IsAnonymous() {
		return ErrUnauthenticated
	}

	switch action {
	case ActionCreatePost:
		if actor.IsAuthor() || actor.IsAdmin() {
			return nil
		}
		return ErrForbidden

	case ActionEditPost:
		if res != nil && (actor.ID == res.OwnerID || actor.IsAdmin()) {
			return nil
		}
		return ErrForbidden

	case ActionAddComment:
		// any authenticated identity may comment, but only while the post
		// is currently published
		if res == nil || res.PostStatus != post.StatusPublished {
			return ErrInvalidState
		}
		return nil

	case ActionChangeRole, ActionListIdentities:
		if actor.IsAdmin() {
			return nil
		}
		return ErrForbidden

	default:
		return ErrForbidden
	}
}

// CanView reports whether the post's existence and content may be disclosed
// to the actor. Published posts are public. Drafts are visible only to the
// owner or an APP_ADMIN; for everyone else the caller must answer "not
// found", never "forbidden", so a draft's existence does not leak.
func CanView(p post.Post, actor Actor) bool {
	if p.Status == post.StatusPublished {
		return true
	}

	if actor.IsAnonymous() {
		return false
	}

	return actor.ID == p.AuthorID || actor.IsAdmin()
}
