package postgres

import (
	"context"
	"database/sql"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/loykin/shepherd/internal/archive"
)

// DB implements archive.Store for PostgreSQL via the pgx stdlib driver.
type DB struct {
	db *sql.DB
}

func New(dsn string) (*DB, error) {
	d, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	return &DB{db: d}, nil
}

func (p *DB) EnsureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS notifications(
			id BIGSERIAL PRIMARY KEY,
			ts TIMESTAMPTZ NOT NULL,
			level TEXT NOT NULL,
			source TEXT NOT NULL,
			message TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_notifications_level ON notifications(level);`,
		`CREATE INDEX IF NOT EXISTS idx_notifications_source ON notifications(source);`,
	}
	for _, q := range stmts {
		if _, err := p.db.ExecContext(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

func (p *DB) Close() error { return p.db.Close() }

func (p *DB) Append(ctx context.Context, rec archive.Record) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO notifications(ts, level, source, message)
		VALUES($1, $2, $3, $4);`,
		rec.Timestamp.UTC(), rec.Level, rec.Source, rec.Message)
	return err
}

func (p *DB) Recent(ctx context.Context, limit int) ([]archive.Record, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, ts, level, source, message
		FROM notifications
		ORDER BY id DESC
		LIMIT $1;`, limit)
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
