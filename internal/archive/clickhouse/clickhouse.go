package clickhouse

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/loykin/shepherd/internal/archive"
)

// Store implements archive.Store on ClickHouse using the official Go client.
// Intended for analytics retention of notification entries.
type Store struct {
	conn  driver.Conn
	table string
}

func New(addr, database, username, password, table string) (*Store, error) {
	if table == "" {
		table = "notifications"
	}
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: database,
			Username: username,
			Password: password,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("connect clickhouse: %w", err)
	}
	if err := conn.Ping(context.Background()); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ping clickhouse: %w", err)
	}
	return &Store{conn: conn, table: table}, nil
}

func (s *Store) EnsureSchema(ctx context.Context) error {
	q := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		ts DateTime64(3),
		level String,
		source String,
		message String
	) ENGINE = MergeTree() ORDER BY ts`, s.table)
	if err := s.conn.Exec(ctx, q); err != nil {
		return fmt.Errorf("ensure clickhouse schema: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

func (s *Store) Append(ctx context.Context, rec archive.Record) error {
	q := fmt.Sprintf(`INSERT INTO %s (ts, level, source, message) VALUES (?, ?, ?, ?)`, s.table)
	if err := s.conn.Exec(ctx, q, rec.Timestamp, rec.Level, rec.Source, rec.Message); err != nil {
		return fmt.Errorf("insert notification into clickhouse: %w", err)
	}
	return nil
}

func (s *Store) Recent(ctx context.Context, limit int) ([]archive.Record, error) {
	if limit <= 0 {
		limit = 50
	}
	q := fmt.Sprintf(`SELECT ts, level, source, message FROM %s ORDER BY ts DESC LIMIT %d`, s.table, limit)
	rows, err := s.conn.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]archive.Record, 0, limit)
	for rows.Next() {
		var r archive.Record
		if err := rows.Scan(&r.Timestamp, &r.Level, &r.Source, &r.Message); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
