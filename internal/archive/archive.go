// Package archive persists notification entries to a queryable backend.
// The durable text log in the control directory stays the source of truth;
// an archive is a mirror for dashboards and retention queries.
package archive

import (
	"context"
	"time"

	"github.com/loykin/shepherd/internal/notify"
)

// Record is one archived notification row.
type Record struct {
	ID        int64
	Timestamp time.Time
	Level     string
	Source    string
	Message   string
}

// Store is the archive backend interface.
type Store interface {
	EnsureSchema(ctx context.Context) error
	Append(ctx context.Context, rec Record) error
	Recent(ctx context.Context, limit int) ([]Record, error)
	Close() error
}

// Sink adapts a Store to notify.Sink so the notification manager can fan
// entries out without knowing about archives.
type Sink struct {
	st Store
}

func NewSink(st Store) *Sink { return &Sink{st: st} }

func (s *Sink) Send(ctx context.Context, e notify.Entry) error {
	return s.st.Append(ctx, Record{
		Timestamp: e.Timestamp,
		Level:     string(e.Level),
		Source:    e.Source,
		Message:   e.Message,
	})
}
