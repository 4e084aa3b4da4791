// Package api exposes the review, catalog and bookmark stores over HTTP.
// Caller identity arrives in the X-User-ID header and the admin flag in
// X-Admin; swapping in real authentication replaces only this layer.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"movie-review-service/internal/bookmarks"
	"movie-review-service/internal/catalog"
	"movie-review-service/internal/config"
	"movie-review-service/internal/service"
	"movie-review-service/internal/storage"
)

const maxCommentLength = 2000

type Handler struct {
	cfg       *config.Config
	reviews   *service.Reviews
	stats     *service.Stats
	catalog   *catalog.Store
	bookmarks *bookmarks.Store
	sem       chan struct{} // limits concurrently handled requests
}

func NewHandler(cfg *config.Config, reviews *service.Reviews, stats *service.Stats, cat *catalog.Store, bms *bookmarks.Store) *Handler {
	return &Handler{
		cfg:       cfg,
		reviews:   reviews,
		stats:     stats,
		catalog:   cat,
		bookmarks: bms,
		sem:       make(chan struct{}, cfg.Server.ConcurrencyLimit),
	}
}

// Register attaches all API routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/reviews/movie/{movieID}", h.wrap("reviews_list", h.listReviews))
	mux.HandleFunc("POST /api/reviews", h.wrap("reviews_create", h.createReview))
	mux.HandleFunc("PATCH /api/reviews/movie/{movieID}/{reviewID}", h.wrap("reviews_update", h.updateReview))
	mux.HandleFunc("DELETE /api/reviews/movie/{movieID}/{reviewID}", h.wrap("reviews_delete", h.deleteReview))
	mux.HandleFunc("GET /api/reviews/movie/{movieID}/me", h.wrap("reviews_me", h.myReview))
	mux.HandleFunc("GET /api/reviews/movie/{movieID}/user/{userID}", h.wrap("reviews_by_user", h.userReview))

	mux.HandleFunc("GET /api/movies", h.wrap("movies_list", h.listMovies))
	mux.HandleFunc("GET /api/movies/{movieID}", h.wrap("movies_get", h.getMovie))
	mux.HandleFunc("POST /api/movies", h.wrap("movies_create", h.createMovie))

	mux.HandleFunc("GET /api/bookmarks", h.wrap("bookmarks_list", h.listBookmarks))
	mux.HandleFunc("POST /api/bookmarks", h.wrap("bookmarks_create", h.createBookmark))
	mux.HandleFunc("DELETE /api/bookmarks/{bookmarkID}", h.wrap("bookmarks_delete", h.deleteBookmark))

	mux.HandleFunc("GET /api/admin/stats", h.wrap("admin_stats", h.adminStats))
}

// Reviews

func (h *Handler) listReviews(w http.ResponseWriter, r *http.Request) {
	movieID := r.PathValue("movieID")

	limit, ok := queryInt(w, r, "limit", 0)
	if !ok {
		return
	}
	cursor, ok := queryInt(w, r, "cursor", 0)
	if !ok {
		return
	}
	minRating, ok := queryInt(w, r, "min_rating", 0)
	if !ok {
		return
	}
	if limit < 0 || cursor < 0 {
		writeError(w, http.StatusBadRequest, "limit and cursor must not be negative")
		return
	}
	if minRating != 0 && (minRating < 1 || minRating > 10) {
		writeError(w, http.StatusBadRequest, "min_rating must be between 1 and 10")
		return
	}

	page, err := h.reviews.List(r.Context(), movieID, limit, cursor, minRating)
	if err != nil {
		h.internalError(w, "list reviews", err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

type createReviewRequest struct {
	MovieID string `json:"movie_id"`
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

func (h *Handler) createReview(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	var req createReviewRequest
	if !decodeBody(w, r, &req) {
		return
	}
	req.MovieID = strings.TrimSpace(req.MovieID)
	req.Comment = strings.TrimSpace(req.Comment)
	if req.MovieID == "" {
		writeError(w, http.StatusBadRequest, "movie_id is required")
		return
	}
	if req.Rating < 1 || req.Rating > 10 {
		writeError(w, http.StatusBadRequest, "rating must be between 1 and 10")
		return
	}
	if len(req.Comment) > maxCommentLength {
		writeError(w, http.StatusBadRequest, "comment too long")
		return
	}

	review, err := h.reviews.Create(r.Context(), user, req.MovieID, req.Rating, req.Comment)
	if err != nil {
		if errors.Is(err, service.ErrAlreadyReviewed) {
			writeError(w, http.StatusBadRequest, "User has already reviewed this movie. Use update instead.")
			return
		}
		h.internalError(w, "create review", err)
		return
	}
	writeJSON(w, http.StatusCreated, review)
}

type updateReviewRequest struct {
	Rating  *int    `json:"rating"`
	Comment *string `json:"comment"`
}

func (h *Handler) updateReview(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	var req updateReviewRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Comment != nil {
		trimmed := strings.TrimSpace(*req.Comment)
		if trimmed == "" {
			// A blank comment means "leave it unchanged", matching the
			// create-side blank normalization.
			req.Comment = nil
		} else {
			req.Comment = &trimmed
		}
	}
	if req.Rating == nil && req.Comment == nil {
		writeError(w, http.StatusBadRequest, "at least one of rating or comment must be provided")
		return
	}
	if req.Rating != nil && (*req.Rating < 1 || *req.Rating > 10) {
		writeError(w, http.StatusBadRequest, "rating must be between 1 and 10")
		return
	}
	if req.Comment != nil && len(*req.Comment) > maxCommentLength {
		writeError(w, http.StatusBadRequest, "comment too long")
		return
	}

	review, err := h.reviews.Update(r.Context(), r.PathValue("movieID"), r.PathValue("reviewID"), user,
		service.ReviewUpdate{Rating: req.Rating, Comment: req.Comment})
	if err != nil {
		h.reviewError(w, "update review", err)
		return
	}
	writeJSON(w, http.StatusOK, review)
}

func (h *Handler) deleteReview(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	err := h.reviews.Delete(r.Context(), r.PathValue("movieID"), r.PathValue("reviewID"), user, isAdmin(r))
	if err != nil {
		h.reviewError(w, "delete review", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) myReview(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	h.respondUserReview(w, r, user)
}

func (h *Handler) userReview(w http.ResponseWriter, r *http.Request) {
	h.respondUserReview(w, r, r.PathValue("userID"))
}

// respondUserReview writes the user's review, or a JSON null when they have
// none. Absence is an expected answer here, not an error.
func (h *Handler) respondUserReview(w http.ResponseWriter, r *http.Request, userID string) {
	review, err := h.reviews.GetByUser(r.Context(), r.PathValue("movieID"), userID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeJSON(w, http.StatusOK, nil)
			return
		}
		h.internalError(w, "get review by user", err)
		return
	}
	writeJSON(w, http.StatusOK, review)
}

// Movies

func (h *Handler) listMovies(w http.ResponseWriter, r *http.Request) {
	movies, err := h.catalog.List()
	if err != nil {
		h.internalError(w, "list movies", err)
		return
	}
	writeJSON(w, http.StatusOK, movies)
}

func (h *Handler) getMovie(w http.ResponseWriter, r *http.Request) {
	movie, err := h.catalog.GetByID(r.PathValue("movieID"))
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Movie not found.")
			return
		}
		h.internalError(w, "get movie", err)
		return
	}
	writeJSON(w, http.StatusOK, movie)
}

func (h *Handler) createMovie(w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(w, r) {
		return
	}

	var movie catalog.Movie
	if !decodeBody(w, r, &movie) {
		return
	}
	if strings.TrimSpace(movie.ID) == "" || strings.TrimSpace(movie.Title) == "" {
		writeError(w, http.StatusBadRequest, "movie_id and title are required")
		return
	}
	if err := h.catalog.Add(movie); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, movie)
}

// Bookmarks

func (h *Handler) listBookmarks(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	items, err := h.bookmarks.ListByUser(user)
	if err != nil {
		h.internalError(w, "list bookmarks", err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

type createBookmarkRequest struct {
	MovieID string `json:"movie_id"`
}

func (h *Handler) createBookmark(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	var req createBookmarkRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.MovieID) == "" {
		writeError(w, http.StatusBadRequest, "movie_id is required")
		return
	}

	bm, err := h.bookmarks.Add(user, strings.TrimSpace(req.MovieID))
	if err != nil {
		if errors.Is(err, bookmarks.ErrDuplicate) {
			writeError(w, http.StatusBadRequest, "Movie already bookmarked.")
			return
		}
		h.internalError(w, "create bookmark", err)
		return
	}
	writeJSON(w, http.StatusCreated, bm)
}

func (h *Handler) deleteBookmark(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	if err := h.bookmarks.Remove(user, r.PathValue("bookmarkID")); err != nil {
		if errors.Is(err, bookmarks.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Bookmark not found.")
			return
		}
		h.internalError(w, "delete bookmark", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Admin

func (h *Handler) adminStats(w http.ResponseWriter, r *http.Request) {
	if !requireAdmin(w, r) {
		return
	}

	stats, err := h.stats.Collect(r.Context())
	if err != nil {
		h.internalError(w, "collect stats", err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// reviewError maps service and storage errors for mutating review handlers.
func (h *Handler) reviewError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, "Review not found.")
	case errors.Is(err, service.ErrNotAuthorized):
		writeError(w, http.StatusForbidden, "Not authorized to modify this review.")
	default:
		h.internalError(w, op, err)
	}
}

func (h *Handler) internalError(w http.ResponseWriter, op string, err error) {
	slog.Error(op+" failed", "error", err)
	writeError(w, http.StatusInternalServerError, "Internal server error.")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("write response failed", "error", err)
	}
}

// writeError responds with a FastAPI-compatible {"detail": ...} body, which
// the existing frontend already consumes.
func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
