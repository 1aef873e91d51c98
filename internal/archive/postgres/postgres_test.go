package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/loykin/shepherd/internal/archive"
)

func TestPostgresArchive_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()

	postgresContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		t.Fatalf("Failed to start PostgreSQL container: %v", err)
	}
	defer func() {
		if err := postgresContainer.Terminate(ctx); err != nil {
			t.Errorf("Failed to terminate PostgreSQL container: %v", err)
		}
	}()

	connStr, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("Failed to get connection string: %v", err)
	}

	db, err := New(connStr)
	if err != nil {
		t.Fatalf("Failed to create archive: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			t.Errorf("Failed to close archive: %v", err)
		}
	}()

	if err := db.EnsureSchema(ctx); err != nil {
		t.Fatalf("Failed to ensure schema: %v", err)
	}
	// Second run must be a no-op.
	if err := db.EnsureSchema(ctx); err != nil {
		t.Fatalf("Schema is not idempotent: %v", err)
	}

	base := time.Now().UTC().Truncate(time.Millisecond)
	records := []archive.Record{
		{Timestamp: base, Level: "info", Source: "master", Message: "launched w1 (pid 101)"},
		{Timestamp: base.Add(time.Second), Level: "warning", Source: "w1", Message: "slow poll"},
	}
	for _, rec := range records {
		if err := db.Append(ctx, rec); err != nil {
			t.Fatalf("Failed to append record: %v", err)
		}
	}

	recs, err := db.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Failed to query recent: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(recs))
	}
	if recs[0].Message != "slow poll" || recs[1].Message != "launched w1 (pid 101)" {
		t.Fatalf("Unexpected order: %+v", recs)
	}
	if recs[0].Level != "warning" || recs[0].Source != "w1" {
		t.Fatalf("Field mismatch: %+v", recs[0])
	}
}
