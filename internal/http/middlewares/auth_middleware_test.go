package middlewares_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/geocoder89/pressroom/internal/auth"
	"github.com/geocoder89/pressroom/internal/domain/identity"
	"github.com/geocoder89/pressroom/internal/http/middlewares"
	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeVerifier struct {
	verifyFn func(token string) (*auth.Claims, error)
}

func (f *fakeVerifier) VerifyAccessToken(token string) (*auth.Claims, error) {
	return f.verifyFn(token)
}

type fakeIdentityStore struct {
	getFn func(ctx context.Context, id string) (identity.Identity, error)
}

func (f *fakeIdentityStore) GetByID(ctx context.Context, id string) (identity.Identity, error) {
	if f.getFn != nil {
		return f.getFn(ctx, id)
	}
	return identity.Identity{}, identity.ErrNotFound
}

func okVerifier(userID string) *fakeVerifier {
	return &fakeVerifier{
		verifyFn: func(token string) (*auth.Claims, error) {
			if token != "good-token" {
				return nil, errors.New("token is invalid")
			}
			return &auth.Claims{UserID: userID, TokenType: "access"}, nil
		},
	}
}

func storeWith(u identity.Identity) *fakeIdentityStore {
	return &fakeIdentityStore{
		getFn: func(ctx context.Context, id string) (identity.Identity, error) {
			if id != u.ID {
				return identity.Identity{}, identity.ErrNotFound
			}
			return u, nil
		},
	}
}

func runProtected(t *testing.T, mw gin.HandlerFunc, authHeader string) (*httptest.ResponseRecorder, *string) {
	t.Helper()

	var resolvedID *string

	r := gin.New()
	r.GET("/probe", mw, func(c *gin.Context) {
		actor := middlewares.ActorFromContext(c)
		if !actor.IsAnonymous() {
			resolvedID = &actor.ID
		}
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/probe", nil)

	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w, resolvedID
}

func TestRequireAuth(t *testing.T) {
	user := identity.Identity{
		ID:    "u1",
		Email: "ada@example.com",
		Roles: identity.RoleSet{identity.RoleUser, identity.RoleAuthor},
	}

	tests := []struct {
		name           string
		header         string
		wantStatusCode int
	}{
		{"valid_token", "Bearer good-token", http.StatusNoContent},
		{"no_header", "", http.StatusUnauthorized},
		{"wrong_scheme", "Basic good-token", http.StatusUnauthorized},
		{"bad_token", "Bearer forged", http.StatusUnauthorized},
		{"empty_bearer", "Bearer ", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mw := middlewares.NewAuthMiddleware(okVerifier("u1"), storeWith(user))

			w, _ := runProtected(t, mw.RequireAuth(), tt.header)

			if w.Code != tt.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}
		})
	}
}

// a valid token whose subject was deleted must not authenticate
func TestRequireAuthDeletedUser(t *testing.T) {
	mw := middlewares.NewAuthMiddleware(okVerifier("ghost"), &fakeIdentityStore{})

	w, _ := runProtected(t, mw.RequireAuth(), "Bearer good-token")

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("got status %d, want 401", w.Code)
	}
}

// roles are read from the store on every request, not from the token
func TestRequireAuthRolesComeFromStore(t *testing.T) {
	user := identity.Identity{
		ID:    "u1",
		Roles: identity.RoleSet{identity.RoleUser, identity.RoleAppAdmin},
	}

	verifier := &fakeVerifier{
		verifyFn: func(token string) (*auth.Claims, error) {
			// token still carries the stale role set
			return &auth.Claims{UserID: "u1", Roles: []string{identity.RoleUser}}, nil
		},
	}

	mw := middlewares.NewAuthMiddleware(verifier, storeWith(user))

	r := gin.New()
	r.GET("/probe", mw.RequireAuth(), func(c *gin.Context) {
		actor := middlewares.ActorFromContext(c)
		if !actor.IsAdmin() {
			t.Errorf("actor roles = %v, want store roles", actor.Roles)
		}
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	req.Header.Set("Authorization", "Bearer anything")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("got status %d, body=%s", w.Code, w.Body.String())
	}
}

func TestOptionalAuth(t *testing.T) {
	user := identity.Identity{ID: "u1", Roles: identity.RoleSet{identity.RoleUser}}

	tests := []struct {
		name       string
		header     string
		wantActor  bool
		wantStatus int
	}{
		{"valid_token_resolves", "Bearer good-token", true, http.StatusNoContent},
		{"no_header_is_anonymous", "", false, http.StatusNoContent},
		{"bad_token_is_anonymous", "Bearer forged", false, http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mw := middlewares.NewAuthMiddleware(okVerifier("u1"), storeWith(user))

			w, resolvedID := runProtected(t, mw.OptionalAuth(), tt.header)

			if w.Code != tt.wantStatus {
				t.Fatalf("got status %d, want %d", w.Code, tt.wantStatus)
			}

			if tt.wantActor && (resolvedID == nil || *resolvedID != "u1") {
				t.Fatalf("actor was not resolved")
			}

			if !tt.wantActor && resolvedID != nil {
				t.Fatalf("unexpected actor %q", *resolvedID)
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	admin := identity.Identity{ID: "adm", Roles: identity.RoleSet{identity.RoleUser, identity.RoleAppAdmin}}
	plain := identity.Identity{ID: "u1", Roles: identity.RoleSet{identity.RoleUser}}

	tests := []struct {
		name           string
		user           identity.Identity
		wantStatusCode int
	}{
		{"admin_passes", admin, http.StatusNoContent},
		{"plain_user_blocked", plain, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mw := middlewares.NewAuthMiddleware(okVerifier(tt.user.ID), storeWith(tt.user))

			r := gin.New()
			r.GET("/probe", mw.RequireAuth(), mw.RequireRole(identity.RoleAppAdmin), func(c *gin.Context) {
				c.Status(http.StatusNoContent)
			})

			req := httptest.NewRequest(http.MethodGet, "/probe", nil)
			req.Header.Set("Authorization", "Bearer good-token")

			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			if w.Code != tt.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}
		})
	}
}
