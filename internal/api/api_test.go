package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"

	"movie-review-service/internal/bookmarks"
	"movie-review-service/internal/catalog"
	"movie-review-service/internal/config"
	"movie-review-service/internal/domain"
	"movie-review-service/internal/service"
	"movie-review-service/internal/storage"
)

func newTestMux(t *testing.T) *http.ServeMux {
	t.Helper()
	dir := t.TempDir()

	cfg := &config.Config{}
	cfg.Server.ConcurrencyLimit = 8
	cfg.Server.MaxBodySize = config.DefaultMaxBodySize
	cfg.Pagination.DefaultLimit = 50
	cfg.Pagination.MaxLimit = 200

	repo := storage.NewCSVRepository(filepath.Join(dir, "movies"))
	cat := catalog.NewStore(filepath.Join(dir, "movies.json"))
	bms := bookmarks.NewStore(filepath.Join(dir, "bookmarks.json"))
	reviews := service.NewReviews(repo, cat, nil, cfg.Pagination)
	stats := service.NewStats(nil, cat, bms)

	mux := http.NewServeMux()
	NewHandler(cfg, reviews, stats, cat, bms).Register(mux)
	return mux
}

type reqOpts struct {
	user  string
	admin bool
	body  any
}

func doRequest(t *testing.T, mux *http.ServeMux, method, path string, opts reqOpts) *httptest.ResponseRecorder {
	t.Helper()

	var body *bytes.Buffer
	if opts.body != nil {
		data, err := json.Marshal(opts.body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		body = bytes.NewBuffer(data)
	} else {
		body = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, body)
	if opts.user != "" {
		req.Header.Set("X-User-ID", opts.user)
	}
	if opts.admin {
		req.Header.Set("X-Admin", "true")
	}

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func decodeReview(t *testing.T, rec *httptest.ResponseRecorder) domain.Review {
	t.Helper()
	var review domain.Review
	if err := json.Unmarshal(rec.Body.Bytes(), &review); err != nil {
		t.Fatalf("decode review: %v (body %s)", err, rec.Body.String())
	}
	return review
}

func TestCreateReviewRequiresUser(t *testing.T) {
	mux := newTestMux(t)

	rec := doRequest(t, mux, http.MethodPost, "/api/reviews", reqOpts{
		body: map[string]any{"movie_id": "movie-1", "rating": 8},
	})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestCreateReviewValidation(t *testing.T) {
	mux := newTestMux(t)

	cases := []struct {
		name string
		body map[string]any
	}{
		{"missing movie_id", map[string]any{"rating": 8}},
		{"rating too low", map[string]any{"movie_id": "movie-1", "rating": 0}},
		{"rating too high", map[string]any{"movie_id": "movie-1", "rating": 11}},
		{"unknown field", map[string]any{"movie_id": "movie-1", "rating": 8, "stars": 5}},
	}
	for _, tc := range cases {
		rec := doRequest(t, mux, http.MethodPost, "/api/reviews", reqOpts{user: "alice", body: tc.body})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", tc.name, rec.Code)
		}
	}
}

func TestReviewLifecycle(t *testing.T) {
	mux := newTestMux(t)

	// Create.
	rec := doRequest(t, mux, http.MethodPost, "/api/reviews", reqOpts{
		user: "alice",
		body: map[string]any{"movie_id": "movie-1", "rating": 8, "comment": "great"},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}
	created := decodeReview(t, rec)
	if created.ID == "" || created.UserID != "alice" {
		t.Fatalf("unexpected created review: %+v", created)
	}

	// A second review by the same user is rejected.
	rec = doRequest(t, mux, http.MethodPost, "/api/reviews", reqOpts{
		user: "alice",
		body: map[string]any{"movie_id": "movie-1", "rating": 9},
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for duplicate review, got %d", rec.Code)
	}

	// The author sees it on /me.
	rec = doRequest(t, mux, http.MethodGet, "/api/reviews/movie/movie-1/me", reqOpts{user: "alice"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := decodeReview(t, rec); got.ID != created.ID {
		t.Errorf("expected review %s on /me, got %s", created.ID, got.ID)
	}

	// A user without a review gets a JSON null, not a 404.
	rec = doRequest(t, mux, http.MethodGet, "/api/reviews/movie/movie-1/me", reqOpts{user: "bob"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if body := rec.Body.String(); body != "null\n" {
		t.Errorf("expected null body, got %q", body)
	}

	// Another user cannot update it.
	rec = doRequest(t, mux, http.MethodPatch, "/api/reviews/movie/movie-1/"+created.ID, reqOpts{
		user: "bob",
		body: map[string]any{"rating": 1},
	})
	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403 for foreign update, got %d", rec.Code)
	}

	// The author can.
	rec = doRequest(t, mux, http.MethodPatch, "/api/reviews/movie/movie-1/"+created.ID, reqOpts{
		user: "alice",
		body: map[string]any{"rating": 10},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if got := decodeReview(t, rec); got.Rating != 10 || got.Comment != "great" {
		t.Errorf("expected rating 10 with comment kept, got %+v", got)
	}

	// Non-author delete is denied, admin override works.
	rec = doRequest(t, mux, http.MethodDelete, "/api/reviews/movie/movie-1/"+created.ID, reqOpts{user: "bob"})
	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", rec.Code)
	}
	rec = doRequest(t, mux, http.MethodDelete, "/api/reviews/movie/movie-1/"+created.ID, reqOpts{user: "bob", admin: true})
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}

	// Gone now.
	rec = doRequest(t, mux, http.MethodPatch, "/api/reviews/movie/movie-1/"+created.ID, reqOpts{
		user: "alice",
		body: map[string]any{"rating": 5},
	})
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 after delete, got %d", rec.Code)
	}
}

func TestListReviewsPagination(t *testing.T) {
	mux := newTestMux(t)

	for _, u := range []string{"u1", "u2", "u3"} {
		rec := doRequest(t, mux, http.MethodPost, "/api/reviews", reqOpts{
			user: u,
			body: map[string]any{"movie_id": "movie-1", "rating": 7},
		})
		if rec.Code != http.StatusCreated {
			t.Fatalf("seed create failed: %d", rec.Code)
		}
	}

	rec := doRequest(t, mux, http.MethodGet, "/api/reviews/movie/movie-1?limit=2", reqOpts{})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var page storage.Page
	if err := json.Unmarshal(rec.Body.Bytes(), &page); err != nil {
		t.Fatalf("decode page: %v", err)
	}
	if len(page.Items) != 2 || page.NextCursor == nil {
		t.Fatalf("expected 2 items and a cursor, got %d items", len(page.Items))
	}

	rec = doRequest(t, mux, http.MethodGet,
		"/api/reviews/movie/movie-1?limit=2&cursor="+strconv.Itoa(*page.NextCursor), reqOpts{})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &page); err != nil {
		t.Fatalf("decode page: %v", err)
	}
	if len(page.Items) != 1 || page.NextCursor != nil {
		t.Errorf("expected final page of 1 item, got %d items", len(page.Items))
	}
}

func TestListReviewsRejectsBadQuery(t *testing.T) {
	mux := newTestMux(t)

	for _, path := range []string{
		"/api/reviews/movie/movie-1?limit=abc",
		"/api/reviews/movie/movie-1?cursor=-1",
		"/api/reviews/movie/movie-1?min_rating=11",
	} {
		rec := doRequest(t, mux, http.MethodGet, path, reqOpts{})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", path, rec.Code)
		}
	}
}

func TestMovieEndpoints(t *testing.T) {
	mux := newTestMux(t)

	// Creating a movie requires the admin flag.
	movie := map[string]any{"movie_id": "movie-1", "title": "The Example"}
	rec := doRequest(t, mux, http.MethodPost, "/api/movies", reqOpts{user: "alice", body: movie})
	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403 without admin, got %d", rec.Code)
	}
	rec = doRequest(t, mux, http.MethodPost, "/api/movies", reqOpts{user: "alice", admin: true, body: movie})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}

	rec = doRequest(t, mux, http.MethodGet, "/api/movies/movie-1", reqOpts{})
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	rec = doRequest(t, mux, http.MethodGet, "/api/movies/ghost", reqOpts{})
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestBookmarkFlow(t *testing.T) {
	mux := newTestMux(t)

	rec := doRequest(t, mux, http.MethodPost, "/api/bookmarks", reqOpts{
		user: "alice", body: map[string]any{"movie_id": "movie-1"},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}
	var bm bookmarks.Bookmark
	if err := json.Unmarshal(rec.Body.Bytes(), &bm); err != nil {
		t.Fatalf("decode bookmark: %v", err)
	}

	rec = doRequest(t, mux, http.MethodPost, "/api/bookmarks", reqOpts{
		user: "alice", body: map[string]any{"movie_id": "movie-1"},
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for duplicate bookmark, got %d", rec.Code)
	}

	rec = doRequest(t, mux, http.MethodGet, "/api/bookmarks", reqOpts{user: "alice"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var list []bookmarks.Bookmark
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode bookmarks: %v", err)
	}
	if len(list) != 1 {
		t.Errorf("expected 1 bookmark, got %d", len(list))
	}

	rec = doRequest(t, mux, http.MethodDelete, "/api/bookmarks/"+bm.ID, reqOpts{user: "alice"})
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}
	rec = doRequest(t, mux, http.MethodDelete, "/api/bookmarks/"+bm.ID, reqOpts{user: "alice"})
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 on repeat delete, got %d", rec.Code)
	}
}

func TestAdminStats(t *testing.T) {
	mux := newTestMux(t)

	rec := doRequest(t, mux, http.MethodGet, "/api/admin/stats", reqOpts{user: "alice"})
	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403 without admin, got %d", rec.Code)
	}

	doRequest(t, mux, http.MethodPost, "/api/movies", reqOpts{
		user: "admin", admin: true,
		body: map[string]any{"movie_id": "movie-1", "title": "The Example"},
	})

	rec = doRequest(t, mux, http.MethodGet, "/api/admin/stats", reqOpts{user: "admin", admin: true})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	var stats service.PlatformStats
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if stats.TotalMovies != 1 {
		t.Errorf("expected 1 movie, got %d", stats.TotalMovies)
	}
}
