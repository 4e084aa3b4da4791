package storage

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"golang.org/x/sync/singleflight"

	"movie-review-service/internal/fsutil"
	"movie-review-service/internal/metrics"
)

// movieIndex is the derived lookup structure cached beside each movie's
// review file. It is a pure cache: always safe to discard and rebuild from
// the rows.
type movieIndex struct {
	// ByID maps review id to zero-based row offset.
	ByID map[string]int `json:"by_id"`
	// ByUser maps user id to the id of that user's first row.
	ByUser map[string]string `json:"by_user"`
	// SourceMtime is the review file's mtime at the last rebuild, in
	// fractional seconds.
	SourceMtime float64 `json:"source_mtime"`
}

func emptyIndex() *movieIndex {
	return &movieIndex{ByID: map[string]int{}, ByUser: map[string]string{}}
}

// indexManager detects staleness by comparing the persisted source_mtime
// against the review file's current mtime and rebuilds on mismatch. The
// index is never patched incrementally on write; the next point lookup pays
// the rebuild cost.
type indexManager struct {
	files   *fileStore
	rebuild singleflight.Group
}

// load returns the persisted index, or an empty one when missing. A
// corrupted index is handled identically to a missing one: it becomes a
// cache miss, never a propagated parse error.
func (m *indexManager) load(movieID string) *movieIndex {
	data, err := os.ReadFile(m.files.indexPath(movieID))
	if err != nil {
		return emptyIndex()
	}

	idx := emptyIndex()
	if err := json.Unmarshal(data, idx); err != nil {
		slog.Debug("discarding unreadable index", "movie_id", movieID, "error", err)
		return emptyIndex()
	}
	if idx.ByID == nil {
		idx.ByID = map[string]int{}
	}
	if idx.ByUser == nil {
		idx.ByUser = map[string]string{}
	}
	return idx
}

// ensureFresh returns an index whose source_mtime matches the review file,
// rebuilding and persisting it when it does not. Concurrent lookups that hit
// the same stale movie share a single rebuild.
func (m *indexManager) ensureFresh(movieID string) (*movieIndex, error) {
	idx := m.load(movieID)
	if idx.SourceMtime == m.files.mtime(movieID) {
		return idx, nil
	}

	v, err, _ := m.rebuild.Do(movieID, func() (any, error) {
		// A sibling caller may have rebuilt against the current file
		// while we waited for the flight.
		idx := m.load(movieID)
		if idx.SourceMtime == m.files.mtime(movieID) {
			return idx, nil
		}
		return m.rebuildIndex(movieID)
	})
	if err != nil {
		return nil, err
	}
	return v.(*movieIndex), nil
}

// rebuildIndex streams every row once, recording each id's offset and the
// first review id seen per user, then persists the result atomically.
func (m *indexManager) rebuildIndex(movieID string) (*movieIndex, error) {
	idx := emptyIndex()
	// Captured before reading: a write landing mid-scan leaves the index
	// stamped with the older mtime, so the next lookup rebuilds again.
	idx.SourceMtime = m.files.mtime(movieID)

	err := m.files.forEachRow(movieID, func(offset int, rec []string) (bool, error) {
		r := decodeRow(movieID, rec)
		idx.ByID[r.ID] = offset
		if r.UserID != "" {
			// Later rows from the same user never overwrite the
			// first mapping.
			if _, ok := idx.ByUser[r.UserID]; !ok {
				idx.ByUser[r.UserID] = r.ID
			}
		}
		return true, nil
	})
	if err != nil {
		return nil, err
	}

	data, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal index: %w", err)
	}
	if err := fsutil.WriteFileAtomic(m.files.indexPath(movieID), data); err != nil {
		return nil, fmt.Errorf("persist index: %w", err)
	}

	metrics.IndexRebuilds.Inc()
	slog.Debug("index rebuilt", "movie_id", movieID, "rows", len(idx.ByID))
	return idx, nil
}
