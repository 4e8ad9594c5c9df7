package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"plantai/api/internal/accounts"
	"plantai/api/internal/augment"
	"plantai/api/internal/classify"
	"plantai/api/internal/config"
	"plantai/api/internal/storage"
	"plantai/api/internal/store"
)

var errAugmenterDown = errors.New("model unavailable")

// fakeAugmenter answers from its fn fields; any method without one fails,
// which exercises the degradation paths.
type fakeAugmenter struct {
	enhanceFn         func(context.Context, string, []store.CommunityPost) ([]augment.EnhancedPost, error)
	suggestTermsFn    func(context.Context, string) ([]string, error)
	suggestTagsFn     func(context.Context, string, string) ([]string, error)
	suggestCategoryFn func(context.Context, string, string) (string, error)
	insightsFn        func(context.Context, []store.CommunityPost) (augment.Insights, error)
	trendingFn        func(context.Context, []store.CommunityPost) ([]augment.TrendingTopic, error)
}

func (f *fakeAugmenter) EnhanceResults(ctx context.Context, query string, posts []store.CommunityPost) ([]augment.EnhancedPost, error) {
	if f.enhanceFn != nil {
		return f.enhanceFn(ctx, query, posts)
	}
	return nil, errAugmenterDown
}

func (f *fakeAugmenter) SuggestSearchTerms(ctx context.Context, query string) ([]string, error) {
	if f.suggestTermsFn != nil {
		return f.suggestTermsFn(ctx, query)
	}
	return nil, errAugmenterDown
}

func (f *fakeAugmenter) SuggestTags(ctx context.Context, title, content string) ([]string, error) {
	if f.suggestTagsFn != nil {
		return f.suggestTagsFn(ctx, title, content)
	}
	return nil, errAugmenterDown
}

func (f *fakeAugmenter) SuggestCategory(ctx context.Context, title, content string) (string, error) {
	if f.suggestCategoryFn != nil {
		return f.suggestCategoryFn(ctx, title, content)
	}
	return "", errAugmenterDown
}

func (f *fakeAugmenter) CommunityInsights(ctx context.Context, posts []store.CommunityPost) (augment.Insights, error) {
	if f.insightsFn != nil {
		return f.insightsFn(ctx, posts)
	}
	return augment.Insights{}, errAugmenterDown
}

func (f *fakeAugmenter) TrendingTopics(ctx context.Context, posts []store.CommunityPost) ([]augment.TrendingTopic, error) {
	if f.trendingFn != nil {
		return f.trendingFn(ctx, posts)
	}
	return nil, errAugmenterDown
}

// fakeClassifier returns a canned result or error.
type fakeClassifier struct {
	result classify.Result
	err    error
}

func (f *fakeClassifier) Classify(context.Context, []byte) (classify.Result, error) {
	return f.result, f.err
}

func testConfig() config.Config {
	return config.Config{
		JWTSecret:      "test-secret",
		AccessTTL:      time.Hour,
		RefreshTTL:     24 * time.Hour,
		AugmentTimeout: time.Second,
	}
}

func newTestService(st store.Store) *Service {
	classifier := classify.NewMockClassifier(rand.New(rand.NewSource(1)))
	return New(testConfig(), st, nil, accounts.NewService(st), classifier, nil, nil)
}

func newTestServer(svc *Service) *HTTPServer {
	return NewHTTPServer(svc, "*", "", 10*1024*1024)
}

func testImageStore(t *testing.T) storage.ImageStore {
	t.Helper()
	images, err := storage.NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("local store: %v", err)
	}
	return images
}

// loginTestUser registers a fresh user and returns an access token for it.
func loginTestUser(t *testing.T, svc *Service, username, email string) (store.User, string) {
	t.Helper()
	ctx := context.Background()
	if _, err := svc.Register(ctx, username, email, "secret123"); err != nil {
		t.Fatalf("register %s: %v", username, err)
	}
	session, err := svc.Login(ctx, email, "secret123")
	if err != nil {
		t.Fatalf("login %s: %v", email, err)
	}
	return session.User, session.Token
}

func doJSON(t *testing.T, handler http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(encoded)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func parseBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("parse response %q: %v", rr.Body.String(), err)
	}
	return payload
}

func TestServiceRefreshRotatesToken(t *testing.T) {
	svc := newTestService(store.NewMemoryStore())
	ctx := context.Background()

	if _, err := svc.Register(ctx, "gardener", "gardener@example.com", "secret123"); err != nil {
		t.Fatalf("register: %v", err)
	}
	first, err := svc.Login(ctx, "gardener@example.com", "secret123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	second, err := svc.Refresh(ctx, first.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if second.RefreshToken == first.RefreshToken {
		t.Fatalf("refresh token was not rotated")
	}
	if second.User.ID != first.User.ID {
		t.Fatalf("refreshed session belongs to %s, want %s", second.User.ID, first.User.ID)
	}

	// The consumed token is revoked; replaying it must fail.
	if _, err := svc.Refresh(ctx, first.RefreshToken); err == nil {
		t.Fatalf("expected replayed refresh token to be rejected")
	}
}

func TestServiceLogoutRevokesRefreshToken(t *testing.T) {
	svc := newTestService(store.NewMemoryStore())
	ctx := context.Background()

	if _, err := svc.Register(ctx, "gardener", "gardener@example.com", "secret123"); err != nil {
		t.Fatalf("register: %v", err)
	}
	session, err := svc.Login(ctx, "gardener@example.com", "secret123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	if err := svc.Logout(ctx, session.RefreshToken); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := svc.Refresh(ctx, session.RefreshToken); err == nil {
		t.Fatalf("expected revoked refresh token to be rejected")
	}
}
