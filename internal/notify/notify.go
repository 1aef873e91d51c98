// Package notify implements the notification manager: a bounded in-memory
// ring used for live filtering plus a durable append-only text log treated
// as the source of truth across restarts. Both the master and every child
// construct their own Manager over the same control directory; order inside
// each home is preserved by single-writer-per-artifact append.
package notify

import (
	"context"
	"os"
	"sync"
	"time"
)

// DefaultMaxHistory bounds the in-memory ring when the caller passes a
// non-positive capacity.
const DefaultMaxHistory = 200

// Sink receives entries after they are recorded. Sinks are advisory: a slow
// or failing sink never blocks or fails Log. Implementations must be safe
// for concurrent use.
type Sink interface {
	Send(ctx context.Context, e Entry) error
}

// Observer is a decoupled presentation hook (tray balloon, dashboard push).
// It is invoked synchronously after the entry is recorded.
type Observer func(Entry)

// Filter selects entries from the ring. Zero-value fields are wildcards;
// set fields are combined with AND.
type Filter struct {
	Level  Level
	Source string
}

func (f Filter) match(e Entry) bool {
	if f.Level != "" && e.Level != f.Level {
		return false
	}
	if f.Source != "" && e.Source != f.Source {
		return false
	}
	return true
}

// Manager records notifications into the ring and the durable log.
type Manager struct {
	mu       sync.Mutex
	ring     []Entry
	max      int
	path     string
	sinks    []Sink
	observer Observer

	now func() time.Time // test hook
}

// NewManager returns a Manager appending durably to path with an in-memory
// ring of maxHistory entries.
func NewManager(path string, maxHistory int) *Manager {
	if maxHistory <= 0 {
		maxHistory = DefaultMaxHistory
	}
	return &Manager{
		ring: make([]Entry, 0, maxHistory),
		max:  maxHistory,
		path: path,
		now:  time.Now,
	}
}

// SetSinks configures external entry sinks. Passing none clears the list.
func (m *Manager) SetSinks(sinks ...Sink) {
	m.mu.Lock()
	m.sinks = append([]Sink(nil), sinks...)
	m.mu.Unlock()
}

// SetObserver installs the presentation observer. A nil observer disables it.
func (m *Manager) SetObserver(o Observer) {
	m.mu.Lock()
	m.observer = o
	m.mu.Unlock()
}

// Log stamps the current time and records the entry in both homes. The
// oldest ring entry is evicted at capacity regardless of level or source.
// A durable append failure is advisory: the in-memory record stays.
func (m *Manager) Log(level Level, source, message string) Entry {
	e := Entry{Timestamp: m.nowFn(), Level: level, Source: source, Message: message}

	m.mu.Lock()
	if len(m.ring) >= m.max {
		m.ring = m.ring[1:]
	}
	m.ring = append(m.ring, e)
	sinks := append([]Sink(nil), m.sinks...)
	obs := m.observer
	m.mu.Unlock()

	m.appendDurable(e)
	for _, s := range sinks {
		_ = s.Send(context.Background(), e)
	}
	if obs != nil {
		obs(e)
	}
	return e
}

// Infof-style helpers keep call sites terse.

func (m *Manager) Info(source, message string) Entry    { return m.Log(LevelInfo, source, message) }
func (m *Manager) Warning(source, message string) Entry { return m.Log(LevelWarning, source, message) }
func (m *Manager) Error(source, message string) Entry   { return m.Log(LevelError, source, message) }

// GetFiltered returns matching ring entries oldest to newest.
func (m *Manager) GetFiltered(f Filter) []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Entry, 0, len(m.ring))
	for _, e := range m.ring {
		if f.match(e) {
			out = append(out, e)
		}
	}
	return out
}

// Len reports the current ring occupancy.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.ring)
}

func (m *Manager) appendDurable(e Entry) {
	if m.path == "" {
		return
	}
	f, err := os.OpenFile(m.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600) // #nosec G304 -- control dir path
	if err != nil {
		return
	}
	_, _ = f.WriteString(e.Line() + "\n")
	_ = f.Close()
}

func (m *Manager) nowFn() time.Time {
	m.mu.Lock()
	now := m.now
	m.mu.Unlock()
	return now()
}
