package storage

import (
	"context"
	"strings"

	"movie-review-service/internal/domain"
)

// CSVRepository stores each movie's reviews in one CSV file compatible with
// the historical bulk export, plus a derived per-movie index for point
// lookups. It holds no in-process locks: appends are safe for concurrent
// readers, rewrites replace the file atomically, and two concurrent rewrites
// of the same movie race with last-rename-wins semantics.
type CSVRepository struct {
	files *fileStore
	index *indexManager
}

// NewCSVRepository creates a repository rooted at dir. The directory is
// created lazily on first write.
func NewCSVRepository(dir string) *CSVRepository {
	fs := &fileStore{root: dir}
	return &CSVRepository{files: fs, index: &indexManager{files: fs}}
}

// ListByMovie streams rows starting at cursor and decodes each, skipping
// rows below minRating without counting them against limit. It never
// consults the index. NextCursor is the offset just past the last consumed
// row, set only when at least one further row exists.
func (r *CSVRepository) ListByMovie(ctx context.Context, movieID string, limit, cursor, minRating int) (*Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if cursor < 0 {
		cursor = 0
	}

	page := &Page{Items: []domain.Review{}}
	consumed := cursor

	err := r.files.forEachRow(movieID, func(offset int, rec []string) (bool, error) {
		if offset < cursor {
			return true, nil
		}
		if len(page.Items) == limit {
			// A further row exists past the full page.
			next := consumed
			page.NextCursor = &next
			return false, nil
		}
		rev := decodeRow(movieID, rec)
		consumed = offset + 1
		if minRating > 0 && rev.Rating < minRating {
			return true, nil
		}
		page.Items = append(page.Items, rev)
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return page, nil
}

// GetByID looks up the row position in the index, then scans sequentially to
// that offset. Variable-width rows preclude random access; the index spares
// the full scan and per-row id comparisons, not the scan itself.
func (r *CSVRepository) GetByID(ctx context.Context, movieID, reviewID string) (*domain.Review, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	idx, err := r.index.ensureFresh(movieID)
	if err != nil {
		return nil, err
	}
	pos, ok := idx.ByID[strings.TrimSpace(reviewID)]
	if !ok {
		return nil, ErrNotFound
	}

	var found *domain.Review
	err = r.files.forEachRow(movieID, func(offset int, rec []string) (bool, error) {
		if offset != pos {
			return true, nil
		}
		rev := decodeRow(movieID, rec)
		found = &rev
		return false, nil
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, ErrNotFound
	}
	return found, nil
}

// GetByUser resolves the user's first review id from the index and delegates
// to GetByID.
func (r *CSVRepository) GetByUser(ctx context.Context, movieID, userID string) (*domain.Review, error) {
	idx, err := r.index.ensureFresh(movieID)
	if err != nil {
		return nil, err
	}
	reviewID, ok := idx.ByUser[userID]
	if !ok {
		return nil, ErrNotFound
	}
	return r.GetByID(ctx, movieID, reviewID)
}

// Create appends the review's row. The append changes the file's mtime,
// which invalidates the cached index; the next point lookup rebuilds it.
func (r *CSVRepository) Create(ctx context.Context, review *domain.Review) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.files.appendRow(review.MovieID, encodeRow(review))
}

// Update rewrites the movie's file replacing the matching-id row. ErrNotFound
// when no row matched; the original file is left untouched in that case.
func (r *CSVRepository) Update(ctx context.Context, review *domain.Review) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !r.files.exists(review.MovieID) {
		return ErrNotFound
	}

	found := false
	err := r.files.rewrite(review.MovieID,
		func(rec []string) ([]string, bool) {
			if rowID(rec) == review.ID {
				found = true
				return encodeRow(review), true
			}
			return rec, true
		},
		func() bool { return found },
	)
	if err != nil {
		return err
	}
	if !found {
		return ErrNotFound
	}
	return nil
}

// Delete rewrites the movie's file omitting the matching-id row. A no-op,
// not an error, when nothing matched, mirroring the missing-file tolerance.
func (r *CSVRepository) Delete(ctx context.Context, movieID, reviewID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !r.files.exists(movieID) {
		return nil
	}

	reviewID = strings.TrimSpace(reviewID)
	removed := false
	return r.files.rewrite(movieID,
		func(rec []string) ([]string, bool) {
			if rowID(rec) == reviewID {
				removed = true
				return nil, false
			}
			return rec, true
		},
		func() bool { return removed },
	)
}
