package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/geocoder89/pressroom/internal/config"
	"github.com/geocoder89/pressroom/internal/domain/comment"
	"github.com/geocoder89/pressroom/internal/domain/post"
	"github.com/geocoder89/pressroom/internal/http/middlewares"
	"github.com/geocoder89/pressroom/internal/pagination"
	"github.com/geocoder89/pressroom/internal/policy"
	"github.com/gin-gonic/gin"
)

type PostsStore interface {
	Create(ctx context.Context, req post.CreatePostRequest) (post.Post, error)
	GetByID(ctx context.Context, id string) (post.Post, error)
	List(ctx context.Context, filter policy.ListFilter, limit, offset int) ([]post.Post, error)
	Count(ctx context.Context, filter policy.ListFilter) (int, error)
	Update(ctx context.Context, id string, req post.UpdatePostRequest) (post.Post, error)
}

type CommentsStore interface {
	Create(ctx context.Context, req comment.CreateCommentRequest) (comment.Comment, error)
	ListByPost(ctx context.Context, postID string, limit, offset int) ([]comment.Comment, error)
	CountByPost(ctx context.Context, postID string) (int, error)
}

type PostsHandler struct {
	posts    PostsStore
	comments CommentsStore
}

func NewPostsHandler(posts PostsStore, comments CommentsStore) *PostsHandler {
	return &PostsHandler{posts: posts, comments: comments}
}

// maps a policy decision onto the wire; nil means allowed
func respondPolicyError(ctx *gin.Context, err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, policy.ErrUnauthenticated):
		RespondUnAuthorized(ctx, "unauthorized", "Authentication required")
	case errors.Is(err, policy.ErrForbidden):
		RespondForbidden(ctx, "Insufficient role")
	case errors.Is(err, policy.ErrInvalidStatus):
		RespondBadRequest(ctx, "invalid_status", "status must be one of PUBLISHED, DRAFT, ALL", nil)
	case errors.Is(err, policy.ErrInvalidState):
		RespondBadRequest(ctx, "invalid_state", "Post state does not allow this action", nil)
	default:
		RespondInternal(ctx, "Could not evaluate request")
	}
	return true
}

// GET /posts?status=&page=&limit=
func (h *PostsHandler) ListPosts(ctx *gin.Context) {
	actor := middlewares.ActorFromContext(ctx)

	filter, err := policy.ScopeForListing(ctx.Query("status"), actor)

	if respondPolicyError(ctx, err) {
		return
	}

	params := pagination.FromQuery(ctx.Query("page"), ctx.Query("limit"))

	cctx, cancel := config.WithTimeout(2 * time.Second)

	defer cancel()

	total, err := h.posts.Count(cctx, filter)

	if err != nil {
		RespondInternal(ctx, "Could not list posts")
		return
	}

	items, err := h.posts.List(cctx, filter, params.Limit, params.Offset())

	if err != nil {
		RespondInternal(ctx, "Could not list posts")
		return
	}

	ctx.JSON(http.StatusOK, pagination.NewPage(params, total, items))
}

// GET /posts/:id?page=&limit=
//
// The response embeds the post's comments, paginated with the shared
// contract. An invisible draft answers 404 with the same shape as a row
// that does not exist.
func (h *PostsHandler) GetPost(ctx *gin.Context) {
	id := ctx.Param("id")

	if !isUUID(id) {
		RespondNotFound(ctx, "Post not found")
		return
	}

	actor := middlewares.ActorFromContext(ctx)

	cctx, cancel := config.WithTimeout(2 * time.Second)

	defer cancel()

	p, err := h.posts.GetByID(cctx, id)

	if err != nil {
		if errors.Is(err, post.ErrNotFound) {
			RespondNotFound(ctx, "Post not found")
			return
		}
		RespondInternal(ctx, "Could not fetch post")
		return
	}

	if !policy.CanView(p, actor) {
		RespondNotFound(ctx, "Post not found")
		return
	}

	params := pagination.FromQuery(ctx.Query("page"), ctx.Query("limit"))

	total, err := h.comments.CountByPost(cctx, p.ID)

	if err != nil {
		RespondInternal(ctx, "Could not fetch post")
		return
	}

	items, err := h.comments.ListByPost(cctx, p.ID, params.Limit, params.Offset())

	if err != nil {
		RespondInternal(ctx, "Could not fetch post")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"post":     p,
		"comments": pagination.NewPage(params, total, items),
	})
}

// POST /posts
func (h *PostsHandler) CreatePost(ctx *gin.Context) {
	actor := middlewares.ActorFromContext(ctx)

	if respondPolicyError(ctx, policy.Authorize(policy.ActionCreatePost, actor, nil)) {
		return
	}

	var req post.CreatePostRequest

	if !BindJSON(ctx, &req) {
		return
	}

	// the resolved identity is the author, whatever the payload says
	req.AuthorID = actor.ID

	cctx, cancel := config.WithTimeout(2 * time.Second)

	defer cancel()

	p, err := h.posts.Create(cctx, req)

	if err != nil {
		RespondInternal(ctx, "Could not create post")
		return
	}

	ctx.JSON(http.StatusCreated, p)
}

// PATCH /posts/:id
func (h *PostsHandler) UpdatePost(ctx *gin.Context) {
	id := ctx.Param("id")

	if !isUUID(id) {
		RespondNotFound(ctx, "Post not found")
		return
	}

	var req post.UpdatePostRequest

	if !BindJSON(ctx, &req) {
		return
	}

	if req.Status != nil && !req.Status.Valid() {
		RespondBadRequest(ctx, "invalid_status", "status must be DRAFT or PUBLISHED", nil)
		return
	}

	actor := middlewares.ActorFromContext(ctx)

	cctx, cancel := config.WithTimeout(2 * time.Second)

	defer cancel()

	p, err := h.posts.GetByID(cctx, id)

	if err != nil {
		if errors.Is(err, post.ErrNotFound) {
			RespondNotFound(ctx, "Post not found")
			return
		}
		RespondInternal(ctx, "Could not update post")
		return
	}

	// editing someone else's post is a plain 403, drafts included; the
	// not-found masking applies to reads only
	res := &policy.Resource{OwnerID: p.AuthorID, PostStatus: p.Status}

	if respondPolicyError(ctx, policy.Authorize(policy.ActionEditPost, actor, res)) {
		return
	}

	// validate the transition against the current snapshot; the repo's
	// UPDATE enforces the same rules atomically on the live row
	if _, err := p.ApplyEdit(req, time.Now().UTC()); err != nil {
		if errors.Is(err, post.ErrInvalidTransition) {
			RespondBadRequest(ctx, "invalid_state", "Published posts cannot return to draft", nil)
			return
		}

		RespondInternal(ctx, "Could not update post")
		return
	}

	updated, err := h.posts.Update(cctx, id, req)

	if err != nil {
		if errors.Is(err, post.ErrNotFound) {
			RespondNotFound(ctx, "Post not found")
			return
		}
		RespondInternal(ctx, "Could not update post")
		return
	}

	ctx.JSON(http.StatusOK, updated)
}
