package audit

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite" // Pure Go driver, CGO-free, compatible with CGO_ENABLED=0
)

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable wal: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func migrate(db *sql.DB) error {
	schema := `
    CREATE TABLE IF NOT EXISTS audit_log (
        id          TEXT PRIMARY KEY,
        op          TEXT NOT NULL,
        movie_id    TEXT NOT NULL,
        review_id   TEXT NOT NULL,
        user_id     TEXT NOT NULL,
        status      TEXT NOT NULL,
        created_at  DATETIME DEFAULT CURRENT_TIMESTAMP,
        duration_ms INTEGER
    );
    CREATE INDEX IF NOT EXISTS idx_audit_movie ON audit_log(movie_id);
    CREATE INDEX IF NOT EXISTS idx_audit_created ON audit_log(created_at);
    `
	_, err := db.Exec(schema)
	return err
}

func (s *SQLiteStore) RecordOp(ctx context.Context, record *Record) error {
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO audit_log (id, op, movie_id, review_id, user_id, status, created_at, duration_ms)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)
    `, record.ID, record.Op, record.MovieID, record.ReviewID, record.UserID,
		record.Status, record.CreatedAt, record.DurationMs)
	return err
}

func (s *SQLiteStore) ListRecent(ctx context.Context, limit int) ([]*Record, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT id, op, movie_id, review_id, user_id, status, created_at, duration_ms
        FROM audit_log
        ORDER BY created_at DESC
        LIMIT ?
    `, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			slog.Warn("scan audit record failed", "error", err)
			continue
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

func (s *SQLiteStore) OpCounts(ctx context.Context) (map[string]int64, error) {
	rows, err := s.db.QueryContext(ctx, `
        SELECT op, status, COUNT(*)
        FROM audit_log
        GROUP BY op, status
    `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := map[string]int64{}
	for rows.Next() {
		var op, status string
		var n int64
		if err := rows.Scan(&op, &status, &n); err != nil {
			return nil, err
		}
		counts[op+":"+status] = n
	}
	return counts, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Scanner interface to support both Row and Rows
type Scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s Scanner) (*Record, error) {
	var rec Record
	var createdAt time.Time

	if err := s.Scan(&rec.ID, &rec.Op, &rec.MovieID, &rec.ReviewID, &rec.UserID,
		&rec.Status, &createdAt, &rec.DurationMs); err != nil {
		return nil, err
	}
	rec.CreatedAt = createdAt
	return &rec, nil
}
