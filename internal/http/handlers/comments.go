package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/geocoder89/pressroom/internal/config"
	"github.com/geocoder89/pressroom/internal/domain/comment"
	"github.com/geocoder89/pressroom/internal/domain/post"
	"github.com/geocoder89/pressroom/internal/http/middlewares"
	"github.com/geocoder89/pressroom/internal/policy"
	"github.com/gin-gonic/gin"
)

// POST /posts/:id/comments
//
// Commenting needs an identity and a post that is currently published.
// A draft target is rejected with invalid_state for every caller, owner and
// admin included; the lifecycle check runs against the state read in this
// request and there is no queueing of comments for drafts.
func (h *PostsHandler) AddComment(ctx *gin.Context) {
	id := ctx.Param("id")

	if !isUUID(id) {
		RespondNotFound(ctx, "Post not found")
		return
	}

	var req comment.CreateCommentRequest

	if !BindJSON(ctx, &req) {
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
		RespondInternal(ctx, "Could not add comment")
		return
	}

	res := &policy.Resource{OwnerID: p.AuthorID, PostStatus: p.Status}

	if respondPolicyError(ctx, policy.Authorize(policy.ActionAddComment, actor, res)) {
		return
	}

	req.PostID = p.ID
	req.AuthorID = actor.ID

	c, err := h.comments.Create(cctx, req)

	if err != nil {
		if errors.Is(err, comment.ErrNotFound) {
			RespondNotFound(ctx, "Post not found")
			return
		}
		RespondInternal(ctx, "Could not add comment")
		return
	}

	ctx.JSON(http.StatusCreated, c)
}
