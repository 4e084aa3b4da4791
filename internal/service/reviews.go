// Package service implements the review business rules on top of the
// storage façade: the one-review-per-user policy, author-only mutation, and
// the audit trail.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"movie-review-service/internal/audit"
	"movie-review-service/internal/catalog"
	"movie-review-service/internal/config"
	"movie-review-service/internal/domain"
	"movie-review-service/internal/metrics"
	"movie-review-service/internal/storage"
	keylock "movie-review-service/internal/sync"
)

var (
	// ErrAlreadyReviewed is returned when a user creates a second review
	// for the same movie.
	ErrAlreadyReviewed = errors.New("user has already reviewed this movie")
	// ErrNotAuthorized is returned when a caller mutates a review they do
	// not own.
	ErrNotAuthorized = errors.New("not authorized to modify this review")
)

// ReviewUpdate carries a partial update; nil fields keep the stored value.
type ReviewUpdate struct {
	Rating  *int
	Comment *string
}

// Reviews wires the storage façade to the HTTP layer. The store itself is
// lockless; the per-movie KeyLock here only closes the check-then-append
// race on create. Concurrent rewrites of the same movie keep their
// last-rename-wins semantics.
type Reviews struct {
	repo       storage.Repository
	catalog    *catalog.Store
	audit      audit.Store // nil when auditing is disabled
	locks      *keylock.KeyLock
	pagination config.PaginationConfig
}

func NewReviews(repo storage.Repository, cat *catalog.Store, auditStore audit.Store, pagination config.PaginationConfig) *Reviews {
	return &Reviews{
		repo:       repo,
		catalog:    cat,
		audit:      auditStore,
		locks:      keylock.NewKeyLock(),
		pagination: pagination,
	}
}

// List returns one page of a movie's reviews. The limit is clamped to the
// configured bounds; cursor and minRating of 0 mean "from the start" and
// "no filter".
func (s *Reviews) List(ctx context.Context, movieID string, limit, cursor, minRating int) (*storage.Page, error) {
	if limit <= 0 {
		limit = s.pagination.DefaultLimit
	}
	if limit > s.pagination.MaxLimit {
		limit = s.pagination.MaxLimit
	}

	timer := time.Now()
	page, err := s.repo.ListByMovie(ctx, movieID, limit, cursor, minRating)
	metrics.ReviewOpDuration.WithLabelValues("list").Observe(time.Since(timer).Seconds())
	if err != nil {
		metrics.ReviewOps.WithLabelValues("list", "error").Inc()
		return nil, err
	}
	metrics.ReviewOps.WithLabelValues("list", "success").Inc()
	return page, nil
}

// GetByID returns one review, storage.ErrNotFound when absent.
func (s *Reviews) GetByID(ctx context.Context, movieID, reviewID string) (*domain.Review, error) {
	return s.observe(ctx, "get", func() (*domain.Review, error) {
		return s.repo.GetByID(ctx, movieID, reviewID)
	})
}

// GetByUser returns the user's review for a movie, storage.ErrNotFound when
// they have none.
func (s *Reviews) GetByUser(ctx context.Context, movieID, userID string) (*domain.Review, error) {
	return s.observe(ctx, "get", func() (*domain.Review, error) {
		return s.repo.GetByUser(ctx, movieID, userID)
	})
}

// Create stores a new review after verifying the user has not reviewed the
// movie yet. The check and the append run under the movie's advisory lock.
func (s *Reviews) Create(ctx context.Context, userID, movieID string, rating int, comment string) (*domain.Review, error) {
	s.locks.Lock(movieID)
	defer s.locks.Unlock(movieID)

	start := time.Now()
	if _, err := s.repo.GetByUser(ctx, movieID, userID); err == nil {
		return nil, ErrAlreadyReviewed
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	now := time.Now().UTC()
	review := &domain.Review{
		ID:        uuid.NewString(),
		MovieID:   movieID,
		UserID:    userID,
		Rating:    rating,
		Comment:   comment,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Create(ctx, review); err != nil {
		s.finish(ctx, "create", review.MovieID, review.ID, userID, "error", start)
		return nil, err
	}

	if err := s.catalog.RecordRating(movieID, rating); err != nil {
		// The catalog aggregate is best effort; the review is stored.
		slog.Warn("record rating failed", "movie_id", movieID, "error", err)
	}

	s.finish(ctx, "create", review.MovieID, review.ID, userID, "success", start)
	return review, nil
}

// Update applies a partial update to the caller's own review and bumps
// updated_at.
func (s *Reviews) Update(ctx context.Context, movieID, reviewID, currentUserID string, upd ReviewUpdate) (*domain.Review, error) {
	start := time.Now()

	existing, err := s.repo.GetByID(ctx, movieID, reviewID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.finish(ctx, "update", movieID, reviewID, currentUserID, "not_found", start)
		}
		return nil, err
	}
	if existing.UserID != currentUserID {
		s.finish(ctx, "update", movieID, reviewID, currentUserID, "denied", start)
		return nil, ErrNotAuthorized
	}

	updated := *existing
	if upd.Rating != nil {
		updated.Rating = *upd.Rating
	}
	if upd.Comment != nil {
		updated.Comment = *upd.Comment
	}
	updated.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, &updated); err != nil {
		status := "error"
		if errors.Is(err, storage.ErrNotFound) {
			status = "not_found"
		}
		s.finish(ctx, "update", movieID, reviewID, currentUserID, status, start)
		return nil, err
	}

	s.finish(ctx, "update", movieID, reviewID, currentUserID, "success", start)
	return &updated, nil
}

// Delete removes a review. Only the author may delete, unless admin is set.
func (s *Reviews) Delete(ctx context.Context, movieID, reviewID, currentUserID string, admin bool) error {
	start := time.Now()

	existing, err := s.repo.GetByID(ctx, movieID, reviewID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.finish(ctx, "delete", movieID, reviewID, currentUserID, "not_found", start)
		}
		return err
	}
	if existing.UserID != currentUserID && !admin {
		s.finish(ctx, "delete", movieID, reviewID, currentUserID, "denied", start)
		return ErrNotAuthorized
	}

	if err := s.repo.Delete(ctx, movieID, reviewID); err != nil {
		s.finish(ctx, "delete", movieID, reviewID, currentUserID, "error", start)
		return err
	}

	s.finish(ctx, "delete", movieID, reviewID, currentUserID, "success", start)
	return nil
}

func (s *Reviews) observe(ctx context.Context, op string, fn func() (*domain.Review, error)) (*domain.Review, error) {
	timer := time.Now()
	review, err := fn()
	metrics.ReviewOpDuration.WithLabelValues(op).Observe(time.Since(timer).Seconds())

	switch {
	case err == nil:
		metrics.ReviewOps.WithLabelValues(op, "success").Inc()
	case errors.Is(err, storage.ErrNotFound):
		metrics.ReviewOps.WithLabelValues(op, "not_found").Inc()
	default:
		metrics.ReviewOps.WithLabelValues(op, "error").Inc()
	}
	return review, err
}

// finish updates metrics and writes the audit record for a mutating
// operation. Audit failures are logged and counted, never propagated.
func (s *Reviews) finish(ctx context.Context, op, movieID, reviewID, userID, status string, start time.Time) {
	metrics.ReviewOpDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	metrics.ReviewOps.WithLabelValues(op, status).Inc()

	if s.audit == nil {
		return
	}
	rec := &audit.Record{
		ID:         uuid.NewString(),
		Op:         op,
		MovieID:    movieID,
		ReviewID:   reviewID,
		UserID:     userID,
		Status:     status,
		CreatedAt:  time.Now().UTC(),
		DurationMs: time.Since(start).Milliseconds(),
	}
	if err := s.audit.RecordOp(ctx, rec); err != nil {
		slog.Warn("audit write failed", "op", op, "movie_id", movieID, "error", err)
		metrics.AuditWriteFailures.Inc()
	}
}
