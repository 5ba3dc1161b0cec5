package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/ddanilenko/inkpost/internal/common/clock"
	"github.com/ddanilenko/inkpost/internal/common/crypto"
	commonerrors "github.com/ddanilenko/inkpost/internal/common/errors"
	"github.com/ddanilenko/inkpost/internal/common/jwtverify"
	"github.com/ddanilenko/inkpost/internal/common/logger"
	"github.com/ddanilenko/inkpost/internal/post/domain"
	"github.com/ddanilenko/inkpost/internal/post/service"
)

type memoryPostRepository struct {
	mu    sync.Mutex
	posts map[string]*domain.Post
}

func newMemoryPostRepository() *memoryPostRepository {
	return &memoryPostRepository{posts: make(map[string]*domain.Post)}
}

func (r *memoryPostRepository) Create(ctx context.Context, post *domain.Post) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	post.CreatedAt = time.Now()
	post.UpdatedAt = post.CreatedAt
	copied := *post
	r.posts[post.ID] = &copied
	return nil
}

func (r *memoryPostRepository) FindByID(ctx context.Context, authorID string, id string) (*domain.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	post, ok := r.posts[id]
	if !ok || post.AuthorID != authorID {
		return nil, commonerrors.ErrPostNotFound
	}
	copied := *post
	return &copied, nil
}

func (r *memoryPostRepository) List(ctx context.Context, authorID string, filter domain.ListFilter) ([]*domain.Post, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	matched := make([]*domain.Post, 0)
	for _, post := range r.posts {
		if post.AuthorID != authorID {
			continue
		}
		if filter.Status != "" && post.Status != filter.Status {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(post.Title), strings.ToLower(filter.Search)) {
			continue
		}
		copied := *post
		matched = append(matched, &copied)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })

	total := len(matched)
	offset := (filter.Page - 1) * filter.Limit
	if offset >= total {
		return []*domain.Post{}, total, nil
	}
	end := offset + filter.Limit
	if end > total {
		end = total
	}
	return matched[offset:end], total, nil
}

func (r *memoryPostRepository) Update(ctx context.Context, authorID string, id string, update domain.PostUpdate) (*domain.Post, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	post, ok := r.posts[id]
	if !ok || post.AuthorID != authorID {
		return nil, commonerrors.ErrPostNotFound
	}
	if update.Title != nil {
		post.Title = *update.Title
	}
	if update.Content != nil {
		post.Content = *update.Content
	}
	if update.ImageURL != nil {
		post.ImageURL = *update.ImageURL
	}
	if update.Tags != nil {
		post.Tags = *update.Tags
	}
	if update.Status != nil {
		post.Status = *update.Status
	}
	copied := *post
	return &copied, nil
}

func (r *memoryPostRepository) Delete(ctx context.Context, authorID string, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	post, ok := r.posts[id]
	if !ok || post.AuthorID != authorID {
		return commonerrors.ErrPostNotFound
	}
	delete(r.posts, id)
	return nil
}

const postTestSecret = "post-router-test-secret-0123456789ab"

func signAccessToken(t *testing.T, userID string) string {
	t.Helper()
	now := time.Now()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": userID,
		"iat": now.Unix(),
		"exp": now.Add(time.Hour).Unix(),
	}).SignedString([]byte(postTestSecret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return token
}

func newPostMux(t *testing.T) *http.ServeMux {
	t.Helper()

	log, err := logger.New("", "test", "ERROR")
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}

	svc := service.NewPostService(newMemoryPostRepository(), crypto.NewUUIDGenerator(), log)
	authMW := jwtverify.Middleware(jwtverify.Config{
		Secret: postTestSecret,
		Clock:  clock.NewRealClock(),
	}, log)

	mux := http.NewServeMux()
	NewHandler(svc, nil, log).Register(mux, authMW)
	return mux
}

func doJSON(t *testing.T, mux *http.ServeMux, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func createPost(t *testing.T, mux *http.ServeMux, token, title, status string) domain.Post {
	t.Helper()

	rec := doJSON(t, mux, http.MethodPost, "/api/v1/posts", token, map[string]any{
		"title":   title,
		"content": "body of " + title,
		"tags":    []string{"go"},
		"status":  status,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", rec.Code, rec.Body.String())
	}

	var envelope struct {
		Data domain.Post `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	return envelope.Data
}

func TestPostRoutesRequireToken(t *testing.T) {
	mux := newPostMux(t)

	rec := doJSON(t, mux, http.MethodGet, "/api/v1/posts", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestPostCRUD(t *testing.T) {
	mux := newPostMux(t)
	token := signAccessToken(t, "author-1")

	created := createPost(t, mux, token, "Hello", "published")
	if created.AuthorID != "author-1" {
		t.Errorf("authorID = %q, want author-1", created.AuthorID)
	}

	rec := doJSON(t, mux, http.MethodGet, "/api/v1/posts/"+created.ID, token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, mux, http.MethodPut, "/api/v1/posts/"+created.ID, token, map[string]any{
		"title":  "Hello again",
		"status": "draft",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d, body %s", rec.Code, rec.Body.String())
	}
	var updated struct {
		Data domain.Post `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &updated); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if updated.Data.Title != "Hello again" || updated.Data.Status != domain.StatusDraft {
		t.Errorf("update result = %+v", updated.Data)
	}
	if updated.Data.Content != created.Content {
		t.Error("update touched a field that was not sent")
	}

	rec = doJSON(t, mux, http.MethodDelete, "/api/v1/posts/"+created.ID, token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, mux, http.MethodGet, "/api/v1/posts/"+created.ID, token, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("get after delete status = %d, want 404", rec.Code)
	}
}

func TestPostsScopedToAuthor(t *testing.T) {
	mux := newPostMux(t)
	owner := signAccessToken(t, "author-1")
	other := signAccessToken(t, "author-2")

	created := createPost(t, mux, owner, "Private", "draft")

	rec := doJSON(t, mux, http.MethodGet, "/api/v1/posts/"+created.ID, other, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("cross-author get status = %d, want 404", rec.Code)
	}

	rec = doJSON(t, mux, http.MethodDelete, "/api/v1/posts/"+created.ID, other, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("cross-author delete status = %d, want 404", rec.Code)
	}
}

func TestPostListFilters(t *testing.T) {
	mux := newPostMux(t)
	token := signAccessToken(t, "author-1")

	createPost(t, mux, token, "Go notes", "published")
	createPost(t, mux, token, "Rust notes", "draft")
	createPost(t, mux, token, "Go tips", "published")

	rec := doJSON(t, mux, http.MethodGet, "/api/v1/posts?status=published", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d, body %s", rec.Code, rec.Body.String())
	}
	var page struct {
		Data domain.Page `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &page); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if page.Data.TotalPosts != 2 {
		t.Errorf("published total = %d, want 2", page.Data.TotalPosts)
	}

	rec = doJSON(t, mux, http.MethodGet, "/api/v1/posts?search=go", token, nil)
	if err := json.Unmarshal(rec.Body.Bytes(), &page); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if page.Data.TotalPosts != 2 {
		t.Errorf("search total = %d, want 2", page.Data.TotalPosts)
	}

	rec = doJSON(t, mux, http.MethodGet, fmt.Sprintf("/api/v1/posts?page=2&limit=%d", 2), token, nil)
	if err := json.Unmarshal(rec.Body.Bytes(), &page); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if page.Data.CurrentPage != 2 || page.Data.TotalPages != 2 || len(page.Data.Posts) != 1 {
		t.Errorf("pagination = %+v", page.Data)
	}
}

func TestPostCreateValidation(t *testing.T) {
	mux := newPostMux(t)
	token := signAccessToken(t, "author-1")

	rec := doJSON(t, mux, http.MethodPost, "/api/v1/posts", token, map[string]any{
		"title":  "",
		"status": "archived",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}
