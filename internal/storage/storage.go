package storage

import (
	"context"
	"errors"

	"movie-review-service/internal/domain"
)

// ErrNotFound is returned when a get, update or delete targets a review that
// does not exist.
var ErrNotFound = errors.New("review not found")

// Page is one page of a movie's reviews in physical file order. NextCursor is
// the row offset to resume from, nil when no further rows exist.
type Page struct {
	Items      []domain.Review `json:"items"`
	NextCursor *int            `json:"nextCursor"`
}

// Repository is the storage interface the rest of the application depends on.
// Cursors are plain row offsets; a cursor used after concurrent writes to the
// same movie may skip or repeat rows.
type Repository interface {
	// ListByMovie streams rows starting at cursor, skipping rows rated
	// below minRating (0 disables the filter) without counting them
	// against limit.
	ListByMovie(ctx context.Context, movieID string, limit, cursor, minRating int) (*Page, error)
	GetByID(ctx context.Context, movieID, reviewID string) (*domain.Review, error)
	// GetByUser returns the user's review at the lowest row offset.
	GetByUser(ctx context.Context, movieID, userID string) (*domain.Review, error)
	// Create appends the review. Duplicate-id prevention is the caller's
	// responsibility.
	Create(ctx context.Context, review *domain.Review) error
	// Update replaces the row with a matching id, ErrNotFound otherwise.
	Update(ctx context.Context, review *domain.Review) error
	// Delete removes the row with a matching id; a no-op when nothing
	// matched.
	Delete(ctx context.Context, movieID, reviewID string) error
}
