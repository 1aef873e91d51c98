package archive

import (
	"context"
	"testing"
	"time"

	"github.com/loykin/shepherd/internal/notify"
)

type memStore struct {
	recs []Record
}

func (m *memStore) EnsureSchema(context.Context) error { return nil }
func (m *memStore) Close() error                       { return nil }

func (m *memStore) Append(_ context.Context, rec Record) error {
	m.recs = append(m.recs, rec)
	return nil
}

func (m *memStore) Recent(_ context.Context, limit int) ([]Record, error) {
	return m.recs, nil
}

func TestSinkMapsEntryFields(t *testing.T) {
	st := &memStore{}
	sink := NewSink(st)
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	err := sink.Send(context.Background(), notify.Entry{
		Timestamp: ts,
		Level:     notify.LevelWarning,
		Source:    "w1",
		Message:   "slow poll",
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if len(st.recs) != 1 {
		t.Fatalf("want 1 record got %d", len(st.recs))
	}
	r := st.recs[0]
	if !r.Timestamp.Equal(ts) || r.Level != "warning" || r.Source != "w1" || r.Message != "slow poll" {
		t.Fatalf("mapped record: %+v", r)
	}
}

func TestSinkFansOutFromManager(t *testing.T) {
	st := &memStore{}
	m := notify.NewManager("", 10)
	m.SetSinks(NewSink(st))
	m.Info("master", "launched w1 (pid 7)")
	if len(st.recs) != 1 || st.recs[0].Message != "launched w1 (pid 7)" {
		t.Fatalf("fan-out: %+v", st.recs)
	}
}
