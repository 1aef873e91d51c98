package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/loykin/shepherd/internal/archive"
)

// DB implements archive.Store for SQLite (modernc.org/sqlite, CGO-free).
// Path is a filesystem path; use ":memory:" for in-memory.
type DB struct {
	db *sql.DB
}

func New(path string) (*DB, error) {
	p := strings.TrimSpace(path)
	if p == "" {
		return nil, errors.New("empty sqlite path")
	}
	d, err := sql.Open("sqlite", p)
	if err != nil {
		return nil, err
	}
	// busy timeout helps with short concurrent locks
	_, _ = d.Exec("PRAGMA busy_timeout=3000;")
	return &DB{db: d}, nil
}

func (s *DB) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS notifications(
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			ts TIMESTAMP NOT NULL,
			level TEXT NOT NULL,
			source TEXT NOT NULL,
			message TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_notifications_level ON notifications(level);`,
		`CREATE INDEX IF NOT EXISTS idx_notifications_source ON notifications(source);`,
	}
	for _, q := range stmts {
		if _, err := s.db.ExecContext(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

func (s *DB) Close() error { return s.db.Close() }

func (s *DB) Append(ctx context.Context, rec archive.Record) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notifications(ts, level, source, message)
		VALUES(?, ?, ?, ?);`,
		rec.Timestamp.UTC(), rec.Level, rec.Source, rec.Message)
	return err
}

func (s *DB) Recent(ctx context.Context, limit int) ([]archive.Record, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, ts, level, source, message
		FROM notifications
		ORDER BY id DESC
		LIMIT ?;`, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	out := make([]archive.Record, 0, limit)
	for rows.Next() {
		var r archive.Record
		if err := rows.Scan(&r.ID, &r.Timestamp, &r.Level, &r.Source, &r.Message); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
