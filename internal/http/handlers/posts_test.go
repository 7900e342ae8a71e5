package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/geocoder89/pressroom/internal/domain/comment"
	"github.com/geocoder89/pressroom/internal/domain/identity"
	"github.com/geocoder89/pressroom/internal/domain/post"
	"github.com/geocoder89/pressroom/internal/http/handlers"
	"github.com/geocoder89/pressroom/internal/http/middlewares"
	"github.com/geocoder89/pressroom/internal/policy"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Make sure Gin does not spam the console during the test

func init() {
	gin.SetMode(gin.TestMode)
}

// Fake repository implementations of the handler store interfaces

type fakePostsRepo struct {
	createFn func(ctx context.Context, req post.CreatePostRequest) (post.Post, error)
	getFn    func(ctx context.Context, id string) (post.Post, error)
	listFn   func(ctx context.Context, filter policy.ListFilter, limit, offset int) ([]post.Post, error)
	countFn  func(ctx context.Context, filter policy.ListFilter) (int, error)
	updateFn func(ctx context.Context, id string, req post.UpdatePostRequest) (post.Post, error)
}

func (f *fakePostsRepo) Create(ctx context.Context, req post.CreatePostRequest) (post.Post, error) {
	if f.createFn != nil {
		return f.createFn(ctx, req)
	}
	return post.NewFromCreateRequest(req), nil
}

func (f *fakePostsRepo) GetByID(ctx context.Context, id string) (post.Post, error) {
	if f.getFn != nil {
		return f.getFn(ctx, id)
	}
	return post.Post{}, post.ErrNotFound
}

func (f *fakePostsRepo) List(ctx context.Context, filter policy.ListFilter, limit, offset int) ([]post.Post, error) {
	if f.listFn != nil {
		return f.listFn(ctx, filter, limit, offset)
	}
	return []post.Post{}, nil
}

func (f *fakePostsRepo) Count(ctx context.Context, filter policy.ListFilter) (int, error) {
	if f.countFn != nil {
		return f.countFn(ctx, filter)
	}
	return 0, nil
}

func (f *fakePostsRepo) Update(ctx context.Context, id string, req post.UpdatePostRequest) (post.Post, error) {
	if f.updateFn != nil {
		return f.updateFn(ctx, id, req)
	}
	return post.Post{}, post.ErrNotFound
}

type fakeCommentsRepo struct {
	createFn func(ctx context.Context, req comment.CreateCommentRequest) (comment.Comment, error)
	listFn   func(ctx context.Context, postID string, limit, offset int) ([]comment.Comment, error)
	countFn  func(ctx context.Context, postID string) (int, error)
}

func (f *fakeCommentsRepo) Create(ctx context.Context, req comment.CreateCommentRequest) (comment.Comment, error) {
	if f.createFn != nil {
		return f.createFn(ctx, req)
	}
	return comment.NewFromCreateRequest(req), nil
}

func (f *fakeCommentsRepo) ListByPost(ctx context.Context, postID string, limit, offset int) ([]comment.Comment, error) {
	if f.listFn != nil {
		return f.listFn(ctx, postID, limit, offset)
	}
	return []comment.Comment{}, nil
}

func (f *fakeCommentsRepo) CountByPost(ctx context.Context, postID string) (int, error) {
	if f.countFn != nil {
		return f.countFn(ctx, postID)
	}
	return 0, nil
}

// small helper which mounts one handler with a fixed actor

func setupRouter(method, path string, actor policy.Actor, h gin.HandlerFunc) *gin.Engine {
	r := gin.New()

	r.Handle(method, path, func(c *gin.Context) {
		if !actor.IsAnonymous() {
			middlewares.SetActor(c, actor)
		}
		c.Next()
	}, h)

	return r
}

func anonymous() policy.Actor {
	return policy.Anonymous()
}

func userActor(id string) policy.Actor {
	return policy.Actor{ID: id, Roles: identity.RoleSet{identity.RoleUser}}
}

func authorActor(id string) policy.Actor {
	return policy.Actor{ID: id, Roles: identity.RoleSet{identity.RoleUser, identity.RoleAuthor}}
}

func adminActor(id string) policy.Actor {
	return policy.Actor{ID: id, Roles: identity.RoleSet{identity.RoleUser, identity.RoleAppAdmin}}
}

func doJSON(t *testing.T, r *gin.Engine, method, url, body string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request

	if body != "" {
		req = httptest.NewRequest(method, url, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, url, nil)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func errCode(t *testing.T, body []byte) string {
	t.Helper()

	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}

	if err := json.Unmarshal(body, &envelope); err != nil {
		t.Fatalf("bad error body: %v", err)
	}

	return envelope.Error.Code
}

// --- List posts

func TestListPostsScoping(t *testing.T) {
	tests := []struct {
		name           string
		url            string
		actor          policy.Actor
		wantStatusCode int
		wantFilter     func(t *testing.T, f policy.ListFilter)
	}{
		{
			name:           "anonymous_defaults_to_published",
			url:            "/posts",
			actor:          anonymous(),
			wantStatusCode: http.StatusOK,
			wantFilter: func(t *testing.T, f policy.ListFilter) {
				if f.Status == nil || *f.Status != post.StatusPublished {
					t.Errorf("filter status = %v, want PUBLISHED", f.Status)
				}
			},
		},
		{
			name:           "anonymous_drafts_unauthorized",
			url:            "/posts?status=DRAFT",
			actor:          anonymous(),
			wantStatusCode: http.StatusUnauthorized,
		},
		{
			name:           "plain_user_drafts_forbidden",
			url:            "/posts?status=DRAFT",
			actor:          userActor("u1"),
			wantStatusCode: http.StatusForbidden,
		},
		{
			name:           "author_drafts_scoped_to_owner",
			url:            "/posts?status=DRAFT",
			actor:          authorActor("a1"),
			wantStatusCode: http.StatusOK,
			wantFilter: func(t *testing.T, f policy.ListFilter) {
				if f.OwnerID == nil || *f.OwnerID != "a1" {
					t.Errorf("filter owner = %v, want a1", f.OwnerID)
				}
			},
		},
		{
			name:           "admin_all_unrestricted",
			url:            "/posts?status=ALL",
			actor:          adminActor("adm"),
			wantStatusCode: http.StatusOK,
			wantFilter: func(t *testing.T, f policy.ListFilter) {
				if f.Status != nil || f.OwnerID != nil {
					t.Errorf("filter = %+v, want unrestricted", f)
				}
			},
		},
		{
			name:           "bad_status_rejected",
			url:            "/posts?status=ARCHIVED",
			actor:          adminActor("adm"),
			wantStatusCode: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotFilter policy.ListFilter
			called := false

			repo := &fakePostsRepo{
				listFn: func(ctx context.Context, f policy.ListFilter, limit, offset int) ([]post.Post, error) {
					gotFilter = f
					called = true
					return []post.Post{}, nil
				},
			}

			h := handlers.NewPostsHandler(repo, &fakeCommentsRepo{})

			r := setupRouter(http.MethodGet, "/posts", tt.actor, h.ListPosts)

			w := doJSON(t, r, http.MethodGet, tt.url, "")

			if w.Code != tt.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}

			if tt.wantFilter != nil {
				if !called {
					t.Fatalf("repo was not called")
				}
				tt.wantFilter(t, gotFilter)
			}
		})
	}
}

func TestListPostsPaginationClamped(t *testing.T) {
	var gotLimit int

	repo := &fakePostsRepo{
		listFn: func(ctx context.Context, f policy.ListFilter, limit, offset int) ([]post.Post, error) {
			gotLimit = limit
			return []post.Post{}, nil
		},
		countFn: func(ctx context.Context, f policy.ListFilter) (int, error) {
			return 123, nil
		},
	}

	h := handlers.NewPostsHandler(repo, &fakeCommentsRepo{})
	r := setupRouter(http.MethodGet, "/posts", anonymous(), h.ListPosts)

	w := doJSON(t, r, http.MethodGet, "/posts?limit=1000&page=2", "")

	if w.Code != http.StatusOK {
		t.Fatalf("got status %d, body=%s", w.Code, w.Body.String())
	}

	if gotLimit != 50 {
		t.Fatalf("limit = %d, want clamped to 50", gotLimit)
	}

	var envelope struct {
		Page  int `json:"page"`
		Limit int `json:"limit"`
		Total int `json:"total"`
	}

	if err := json.Unmarshal(w.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("bad body: %v", err)
	}

	if envelope.Limit != 50 || envelope.Page != 2 || envelope.Total != 123 {
		t.Fatalf("envelope = %+v", envelope)
	}
}

// --- Get post

func TestGetPostDraftHiding(t *testing.T) {
	draftID := uuid.NewString()

	draft := post.Post{
		ID:       draftID,
		Title:    "WIP",
		Body:     "not done",
		Status:   post.StatusDraft,
		AuthorID: "a1",
	}

	repo := &fakePostsRepo{
		getFn: func(ctx context.Context, id string) (post.Post, error) {
			if id == draftID {
				return draft, nil
			}
			return post.Post{}, post.ErrNotFound
		},
	}

	tests := []struct {
		name           string
		actor          policy.Actor
		wantStatusCode int
	}{
		{"anonymous_sees_not_found", anonymous(), http.StatusNotFound},
		{"stranger_sees_not_found", userActor("u1"), http.StatusNotFound},
		{"other_author_sees_not_found", authorActor("a2"), http.StatusNotFound},
		{"owner_sees_draft", authorActor("a1"), http.StatusOK},
		{"admin_sees_draft", adminActor("adm"), http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := handlers.NewPostsHandler(repo, &fakeCommentsRepo{})
			r := setupRouter(http.MethodGet, "/posts/:id", tt.actor, h.GetPost)

			w := doJSON(t, r, http.MethodGet, "/posts/"+draftID, "")

			if w.Code != tt.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}

			// hidden drafts and missing rows must be indistinguishable
			if tt.wantStatusCode == http.StatusNotFound {
				if code := errCode(t, w.Body.Bytes()); code != "not_found" {
					t.Fatalf("error code = %q, want not_found", code)
				}
			}
		})
	}
}

func TestGetPostBogusIDIsNotFound(t *testing.T) {
	h := handlers.NewPostsHandler(&fakePostsRepo{}, &fakeCommentsRepo{})
	r := setupRouter(http.MethodGet, "/posts/:id", anonymous(), h.GetPost)

	w := doJSON(t, r, http.MethodGet, "/posts/not-a-uuid", "")

	if w.Code != http.StatusNotFound {
		t.Fatalf("got status %d, want 404", w.Code)
	}
}

// --- Create post

func TestCreatePost(t *testing.T) {
	body := `{"title": "A fresh take", "body": "words"}`

	tests := []struct {
		name           string
		actor          policy.Actor
		body           string
		wantStatusCode int
	}{
		{"author_creates", authorActor("a1"), body, http.StatusCreated},
		{"admin_creates", adminActor("adm"), body, http.StatusCreated},
		{"plain_user_forbidden", userActor("u1"), body, http.StatusForbidden},
		{"anonymous_unauthorized", anonymous(), body, http.StatusUnauthorized},
		{"validation_error", authorActor("a1"), `{"title": ""}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var created post.Post

			repo := &fakePostsRepo{
				createFn: func(ctx context.Context, req post.CreatePostRequest) (post.Post, error) {
					created = post.NewFromCreateRequest(req)
					return created, nil
				},
			}

			h := handlers.NewPostsHandler(repo, &fakeCommentsRepo{})
			r := setupRouter(http.MethodPost, "/posts", tt.actor, h.CreatePost)

			w := doJSON(t, r, http.MethodPost, "/posts", tt.body)

			if w.Code != tt.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}

			if w.Code == http.StatusCreated {
				if created.Status != post.StatusDraft {
					t.Fatalf("new post status = %s, want DRAFT", created.Status)
				}
				if created.AuthorID != tt.actor.ID {
					t.Fatalf("author = %s, want %s", created.AuthorID, tt.actor.ID)
				}
			}
		})
	}
}

// --- Update post

func TestUpdatePostOwnership(t *testing.T) {
	postID := uuid.NewString()

	existing := post.Post{
		ID:       postID,
		Title:    "Original",
		Body:     "text",
		Status:   post.StatusPublished,
		AuthorID: "a1",
	}

	tests := []struct {
		name           string
		actor          policy.Actor
		wantStatusCode int
	}{
		{"owner_edits", authorActor("a1"), http.StatusOK},
		{"admin_edits", adminActor("adm"), http.StatusOK},
		{"other_author_forbidden", authorActor("a2"), http.StatusForbidden},
		{"plain_user_forbidden", userActor("u1"), http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &fakePostsRepo{
				getFn: func(ctx context.Context, id string) (post.Post, error) {
					return existing, nil
				},
				updateFn: func(ctx context.Context, id string, req post.UpdatePostRequest) (post.Post, error) {
					now := time.Now().UTC()
					return existing.ApplyEdit(req, now)
				},
			}

			h := handlers.NewPostsHandler(repo, &fakeCommentsRepo{})
			r := setupRouter(http.MethodPatch, "/posts/:id", tt.actor, h.UpdatePost)

			w := doJSON(t, r, http.MethodPatch, "/posts/"+postID, `{"title": "Renamed"}`)

			if w.Code != tt.wantStatusCode {
				t.Fatalf("got status %d, want %d, body=%s", w.Code, tt.wantStatusCode, w.Body.String())
			}
		})
	}
}

func TestUpdatePostInvalidStatusValue(t *testing.T) {
	postID := uuid.NewString()

	h := handlers.NewPostsHandler(&fakePostsRepo{}, &fakeCommentsRepo{})
	r := setupRouter(http.MethodPatch, "/posts/:id", authorActor("a1"), h.UpdatePost)

	w := doJSON(t, r, http.MethodPatch, "/posts/"+postID, `{"status": "ARCHIVED"}`)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, want 400, body=%s", w.Code, w.Body.String())
	}
}

func TestUpdatePostCannotUnpublish(t *testing.T) {
	postID := uuid.NewString()
	publishedAt := time.Now().UTC()

	existing := post.Post{
		ID:          postID,
		Status:      post.StatusPublished,
		AuthorID:    "a1",
		PublishedAt: &publishedAt,
	}

	repo := &fakePostsRepo{
		getFn: func(ctx context.Context, id string) (post.Post, error) {
			return existing, nil
		},
	}

	h := handlers.NewPostsHandler(repo, &fakeCommentsRepo{})
	r := setupRouter(http.MethodPatch, "/posts/:id", authorActor("a1"), h.UpdatePost)

	w := doJSON(t, r, http.MethodPatch, "/posts/"+postID, `{"status": "DRAFT"}`)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("got status %d, want 400, body=%s", w.Code, w.Body.String())
	}
}

// editing someone else's draft is an explicit 403; the not-found masking
// covers reads, not edits
func TestUpdatePostForeignDraftIsForbidden(t *testing.T) {
	postID := uuid.NewString()

	repo := &fakePostsRepo{
		getFn: func(ctx context.Context, id string) (post.Post, error) {
			return post.Post{ID: postID, Status: post.StatusDraft, AuthorID: "a1"}, nil
		},
	}

	h := handlers.NewPostsHandler(repo, &fakeCommentsRepo{})
	r := setupRouter(http.MethodPatch, "/posts/:id", authorActor("a2"), h.UpdatePost)

	w := doJSON(t, r, http.MethodPatch, "/posts/"+postID, `{"title": "Takeover"}`)

	if w.Code != http.StatusForbidden {
		t.Fatalf("got status %d, want 403, body=%s", w.Code, w.Body.String())
	}

	if code := errCode(t, w.Body.Bytes()); code != "forbidden" {
		t.Fatalf("error code = %q, want forbidden", code)
	}
}
