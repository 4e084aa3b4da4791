package audit

import (
	"context"
	"time"
)

// Record is one audited mutation of the review store.
type Record struct {
	ID         string    `json:"id"`
	Op         string    `json:"op"` // create, update, delete
	MovieID    string    `json:"movie_id"`
	ReviewID   string    `json:"review_id"`
	UserID     string    `json:"user_id"`
	Status     string    `json:"status"` // success, not_found, denied, error
	CreatedAt  time.Time `json:"created_at"`
	DurationMs int64     `json:"duration_ms"`
}

// Store is the audit log interface. Auditing is advisory: callers log and
// count a failed write but never fail the user-facing operation over it.
type Store interface {
	RecordOp(ctx context.Context, record *Record) error
	ListRecent(ctx context.Context, limit int) ([]*Record, error)
	// OpCounts returns the number of records per "op:status" pair.
	OpCounts(ctx context.Context) (map[string]int64, error)
	Close() error
}
