package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/geocoder89/pressroom/internal/config"
	"github.com/geocoder89/pressroom/internal/domain/identity"
	"github.com/geocoder89/pressroom/internal/http/middlewares"
	"github.com/geocoder89/pressroom/internal/pagination"
	"github.com/geocoder89/pressroom/internal/policy"
	"github.com/gin-gonic/gin"
)

type UsersAdminStore interface {
	GetByID(ctx context.Context, id string) (identity.Identity, error)
	List(ctx context.Context, limit, offset int) ([]identity.Identity, error)
	Count(ctx context.Context) (int, error)
	UpdateRoles(ctx context.Context, id string, roles identity.RoleSet) (identity.Identity, error)
}

type AdminHandler struct {
	users UsersAdminStore
}

func NewAdminHandler(users UsersAdminStore) *AdminHandler {
	return &AdminHandler{users: users}
}

// GET /admin/users?page=&limit=
func (h *AdminHandler) ListUsers(ctx *gin.Context) {
	actor := middlewares.ActorFromContext(ctx)

	if respondPolicyError(ctx, policy.Authorize(policy.ActionListIdentities, actor, nil)) {
		return
	}

	params := pagination.FromQuery(ctx.Query("page"), ctx.Query("limit"))

	cctx, cancel := config.WithTimeout(2 * time.Second)

	defer cancel()

	total, err := h.users.Count(cctx)

	if err != nil {
		RespondInternal(ctx, "Could not list users")
		return
	}

	items, err := h.users.List(cctx, params.Limit, params.Offset())

	if err != nil {
		RespondInternal(ctx, "Could not list users")
		return
	}

	ctx.JSON(http.StatusOK, pagination.NewPage(params, total, items))
}

type UpdateRoleRequest struct {
	Role string `json:"role" binding:"required"`
}

// PATCH /admin/users/:id/role
func (h *AdminHandler) UpdateUserRole(ctx *gin.Context) {
	actor := middlewares.ActorFromContext(ctx)

	if respondPolicyError(ctx, policy.Authorize(policy.ActionChangeRole, actor, nil)) {
		return
	}

	id := ctx.Param("id")

	if !isUUID(id) {
		RespondNotFound(ctx, "User not found")
		return
	}

	var req UpdateRoleRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)

	defer cancel()

	u, err := h.users.GetByID(cctx, id)

	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			RespondNotFound(ctx, "User not found")
			return
		}
		RespondInternal(ctx, "Could not update role")
		return
	}

	roles, err := u.Roles.AssignCanonical(req.Role)

	if err != nil {
		RespondBadRequest(ctx, "invalid_role", "role must be one of USER, AUTHOR, APP_ADMIN", nil)
		return
	}

	updated, err := h.users.UpdateRoles(cctx, u.ID, roles)

	if err != nil {
		RespondInternal(ctx, "Could not update role")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"id":    updated.ID,
		"roles": updated.Roles,
	})
}
