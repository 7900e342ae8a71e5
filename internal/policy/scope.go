package policy

import "github.com/geocoder89/pressroom/internal/domain/post"

// ListFilter is the concrete restriction a listing query runs under.
// Nil fields mean "no restriction on that axis".
type ListFilter struct {
	Status  *post.Status
	OwnerID *string
}

// ScopeForListing narrows a requested listing to what the actor may see.
// The requested status is the raw query value: empty defaults to PUBLISHED,
// and anything outside {PUBLISHED, DRAFT, ALL} is ErrInvalidStatus.
func ScopeForListing(requested string, actor Actor) (ListFilter, error) {
	if requested == "" {
		requested = string(post.StatusPublished)
	}

	switch requested {
	case string(post.StatusPublished):
		s := post.StatusPublished
		return ListFilter{Status: &s}, nil

	case string(post.StatusDraft):
		if actor.IsAnonymous() {
			return ListFilter{}, ErrUnauthenticated
		}

		s := post.StatusDraft

		if actor.IsAdmin() {
			// all drafts, every owner
			return ListFilter{Status: &s}, nil
		}

		if actor.IsAuthor() {
			owner := actor.ID
			return ListFilter{Status: &s, OwnerID: &owner}, nil
		}

		return ListFilter{}, ErrForbidden

	case "ALL":
		if actor.IsAnonymous() {
			return ListFilter{}, ErrUnauthenticated
		}

		if !actor.IsAdmin() {
			return ListFilter{}, ErrForbidden
		}

		return ListFilter{}, nil

	default:
		return ListFilter{}, ErrInvalidStatus
	}
}
