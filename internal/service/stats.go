package service

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"movie-review-service/internal/audit"
	"movie-review-service/internal/bookmarks"
	"movie-review-service/internal/catalog"
)

// PlatformStats is the admin-facing summary of stored data and recent
// review activity.
type PlatformStats struct {
	OpCounts       map[string]int64 `json:"op_counts"`
	RecentOps      []*audit.Record  `json:"recent_ops"`
	TotalMovies    int              `json:"total_movies"`
	TotalBookmarks int              `json:"total_bookmarks"`
	GeneratedAt    time.Time        `json:"generated_at"`
}

// Stats aggregates counts from the independent stores concurrently.
type Stats struct {
	audit     audit.Store // nil when auditing is disabled
	catalog   *catalog.Store
	bookmarks *bookmarks.Store
}

func NewStats(auditStore audit.Store, cat *catalog.Store, bms *bookmarks.Store) *Stats {
	return &Stats{audit: auditStore, catalog: cat, bookmarks: bms}
}

func (s *Stats) Collect(ctx context.Context) (*PlatformStats, error) {
	stats := &PlatformStats{
		OpCounts:    map[string]int64{},
		RecentOps:   []*audit.Record{},
		GeneratedAt: time.Now().UTC(),
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		n, err := s.catalog.Count()
		stats.TotalMovies = n
		return err
	})
	g.Go(func() error {
		n, err := s.bookmarks.Count()
		stats.TotalBookmarks = n
		return err
	})
	if s.audit != nil {
		g.Go(func() error {
			counts, err := s.audit.OpCounts(ctx)
			if err != nil {
				return err
			}
			stats.OpCounts = counts
			return nil
		})
		g.Go(func() error {
			recent, err := s.audit.ListRecent(ctx, 20)
			if err != nil {
				return err
			}
			if recent != nil {
				stats.RecentOps = recent
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return stats, nil
}
