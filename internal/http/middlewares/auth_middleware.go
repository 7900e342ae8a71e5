package middlewares

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/geocoder89/pressroom/internal/auth"
	"github.com/geocoder89/pressroom/internal/domain/identity"
	"github.com/geocoder89/pressroom/internal/policy"
	"github.com/gin-gonic/gin"
)

// Keep these interfaces small so tests can fake them easily.
type TokenVerifier interface {
	VerifyAccessToken(token string) (*auth.Claims, error)
}

type IdentityStore interface {
	GetByID(ctx context.Context, id string) (identity.Identity, error)
}

type AuthMiddleware struct {
	jwt   TokenVerifier
	users IdentityStore
}

func NewAuthMiddleware(jwt TokenVerifier, users IdentityStore) *AuthMiddleware {
	return &AuthMiddleware{jwt: jwt, users: users}
}

const ctxActorKey = "auth.actor"

// SetActor stashes the resolved actor on the request context. Exposed for
// handler tests that bypass the middleware chain.
func SetActor(c *gin.Context, actor policy.Actor) {
	c.Set(ctxActorKey, actor)
}

// resolve turns the Authorization header into an actor. Roles come from the
// users store, not the token, so a role change is picked up on the next
// request instead of at token expiry.
func (m *AuthMiddleware) resolve(c *gin.Context) (policy.Actor, bool) {
	authHeader := c.GetHeader("Authorization")

	if !strings.HasPrefix(authHeader, "Bearer ") {
		return policy.Actor{}, false
	}

	raw := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer"))

	if raw == "" {
		return policy.Actor{}, false
	}

	claims, err := m.jwt.VerifyAccessToken(raw)

	if err != nil {
		return policy.Actor{}, false
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	// a token whose subject no longer exists is as good as no token
	u, err := m.users.GetByID(ctx, claims.UserID)

	if err != nil {
		return policy.Actor{}, false
	}

	return policy.Actor{ID: u.ID, Roles: u.Roles}, true
}

// RequireAuth rejects the request when no valid identity can be resolved.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := m.resolve(c)

		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{
					"code":    "unauthorized",
					"message": "Missing or invalid access token",
				},
			})
			return
		}

		SetActor(c, actor)

		c.Next()
	}
}

// OptionalAuth resolves an identity when it can and continues as anonymous
// when it cannot. An invalid or expired token behaves exactly like no token
// here; only required-auth endpoints turn that into a 401.
func (m *AuthMiddleware) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if actor, ok := m.resolve(c); ok {
			SetActor(c, actor)
		}

		c.Next()
	}
}

// ActorFromContext returns the resolved actor, or the anonymous actor when
// nothing was stashed.
func ActorFromContext(c *gin.Context) policy.Actor {
	v, ok := c.Get(ctxActorKey)

	if !ok {
		return policy.Anonymous()
	}

	actor, ok := v.(policy.Actor)

	if !ok {
		return policy.Anonymous()
	}

	return actor
}
