package notify

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestRingCapacityKeepsMostRecent(t *testing.T) {
	m := NewManager("", 5)
	for i := 0; i < 12; i++ {
		m.Info(SourceMaster, fmt.Sprintf("msg-%d", i))
	}
	got := m.GetFiltered(Filter{})
	if len(got) != 5 {
		t.Fatalf("ring length: want 5 got %d", len(got))
	}
	for i, e := range got {
		want := fmt.Sprintf("msg-%d", 7+i)
		if e.Message != want {
			t.Fatalf("entry %d: want %q got %q", i, want, e.Message)
		}
	}
}

func TestEvictionIgnoresLevel(t *testing.T) {
	m := NewManager("", 2)
	m.Error("w1", "bad thing")
	m.Info("w1", "a")
	m.Info("w1", "b")
	if got := m.GetFiltered(Filter{Level: LevelError}); len(got) != 0 {
		t.Fatalf("error entry must be evicted by FIFO, got %d", len(got))
	}
}

func TestGetFilteredAND(t *testing.T) {
	m := NewManager("", 10)
	m.Info("master", "m1")
	m.Warning("w1", "w1-warn")
	m.Error("w1", "w1-err")
	m.Error("w2", "w2-err")

	if got := m.GetFiltered(Filter{Level: LevelError}); len(got) != 2 {
		t.Fatalf("level filter: want 2 got %d", len(got))
	}
	if got := m.GetFiltered(Filter{Source: "w1"}); len(got) != 2 {
		t.Fatalf("source filter: want 2 got %d", len(got))
	}
	got := m.GetFiltered(Filter{Level: LevelError, Source: "w1"})
	if len(got) != 1 || got[0].Message != "w1-err" {
		t.Fatalf("AND filter: got %+v", got)
	}
	if got := m.GetFiltered(Filter{}); len(got) != 4 {
		t.Fatalf("no filter: want 4 got %d", len(got))
	}
}

func TestFormatNewestFirst(t *testing.T) {
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	es := []Entry{
		{Timestamp: ts, Level: LevelInfo, Source: "a", Message: "e1"},
		{Timestamp: ts.Add(time.Second), Level: LevelInfo, Source: "a", Message: "e2"},
		{Timestamp: ts.Add(2 * time.Second), Level: LevelInfo, Source: "a", Message: "e3"},
	}
	out := Format(es)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("want 3 lines got %d", len(lines))
	}
	for i, want := range []string{"e3", "e2", "e1"} {
		if !strings.HasSuffix(lines[i], "\t"+want) {
			t.Fatalf("line %d: want suffix %q got %q", i, want, lines[i])
		}
	}
	if Format(nil) != "" {
		t.Fatalf("empty input must render empty")
	}
}

func TestDurableLineFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notifications.txt")
	m := NewManager(path, 10)
	m.Log(LevelWarning, "w1", "something odd")
	m.Log(LevelInfo, "master", "all good")

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read durable log: %v", err)
	}
	lines := strings.Split(strings.TrimRight(string(b), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("want 2 lines got %d", len(lines))
	}
	parts := strings.SplitN(lines[0], "\t", 4)
	if len(parts) != 4 {
		t.Fatalf("want 4 tab fields got %d: %q", len(parts), lines[0])
	}
	if _, err := time.Parse(time.RFC3339, parts[0]); err != nil {
		t.Fatalf("timestamp field: %v", err)
	}
	if parts[1] != "[warning]" || parts[2] != "[w1]" || parts[3] != "something odd" {
		t.Fatalf("fields mismatch: %q", lines[0])
	}
}

func TestParseLineRoundTrip(t *testing.T) {
	e := Entry{
		Timestamp: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Level:     LevelError,
		Source:    "w2",
		Message:   "boom\twith tab",
	}
	got, err := ParseLine(e.Line())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !got.Timestamp.Equal(e.Timestamp) || got.Level != e.Level || got.Source != e.Source || got.Message != e.Message {
		t.Fatalf("round trip mismatch: %+v", got)
	}
	if _, err := ParseLine("not a line"); err == nil {
		t.Fatalf("expected error for malformed line")
	}
}

func TestDurableWriteFailureIsAdvisory(t *testing.T) {
	// Point the durable log into a directory that does not exist.
	m := NewManager(filepath.Join(t.TempDir(), "missing", "n.txt"), 10)
	m.Info("w1", "still recorded")
	if got := m.GetFiltered(Filter{}); len(got) != 1 {
		t.Fatalf("in-memory record must survive durable failure, got %d", len(got))
	}
}

type captureSink struct {
	mu sync.Mutex
	es []Entry
}

func (c *captureSink) Send(_ context.Context, e Entry) error {
	c.mu.Lock()
	c.es = append(c.es, e)
	c.mu.Unlock()
	return nil
}

func TestSinksAndObserver(t *testing.T) {
	m := NewManager("", 10)
	sink := &captureSink{}
	m.SetSinks(sink)
	var observed []Entry
	m.SetObserver(func(e Entry) { observed = append(observed, e) })

	m.Info("w1", "hello")
	sink.mu.Lock()
	n := len(sink.es)
	sink.mu.Unlock()
	if n != 1 {
		t.Fatalf("sink: want 1 got %d", n)
	}
	if len(observed) != 1 || observed[0].Message != "hello" {
		t.Fatalf("observer: got %+v", observed)
	}
}

func TestConcurrentLogKeepsBound(t *testing.T) {
	m := NewManager("", 16)
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				m.Info(fmt.Sprintf("w%d", g), "x")
			}
		}(g)
	}
	wg.Wait()
	if got := m.Len(); got != 16 {
		t.Fatalf("ring length: want 16 got %d", got)
	}
}
