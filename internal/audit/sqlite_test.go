package audit

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "audit.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func record(id, op, status string, at time.Time) *Record {
	return &Record{
		ID:         id,
		Op:         op,
		MovieID:    "movie-1",
		ReviewID:   "rev-" + id,
		UserID:     "alice",
		Status:     status,
		CreatedAt:  at,
		DurationMs: 3,
	}
}

func TestRecordOpAndListRecent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2025, 10, 27, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		if err := store.RecordOp(ctx, record(id, "create", "success", base.Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatalf("RecordOp failed: %v", err)
		}
	}

	recent, err := store.ListRecent(ctx, 2)
	if err != nil {
		t.Fatalf("ListRecent failed: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recent))
	}
	if recent[0].ID != "c" || recent[1].ID != "b" {
		t.Errorf("expected newest first, got %s then %s", recent[0].ID, recent[1].ID)
	}
	if recent[0].MovieID != "movie-1" || recent[0].UserID != "alice" {
		t.Errorf("unexpected record contents: %+v", recent[0])
	}
}

func TestOpCounts(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	now := time.Now().UTC()
	store.RecordOp(ctx, record("a", "create", "success", now))
	store.RecordOp(ctx, record("b", "create", "success", now))
	store.RecordOp(ctx, record("c", "delete", "denied", now))

	counts, err := store.OpCounts(ctx)
	if err != nil {
		t.Fatalf("OpCounts failed: %v", err)
	}
	if counts["create:success"] != 2 {
		t.Errorf("expected 2 successful creates, got %d", counts["create:success"])
	}
	if counts["delete:denied"] != 1 {
		t.Errorf("expected 1 denied delete, got %d", counts["delete:denied"])
	}
}

func TestListRecentEmpty(t *testing.T) {
	store := newTestStore(t)

	recent, err := store.ListRecent(context.Background(), 10)
	if err != nil {
		t.Fatalf("ListRecent failed: %v", err)
	}
	if len(recent) != 0 {
		t.Errorf("expected no records, got %d", len(recent))
	}
}
