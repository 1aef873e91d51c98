package marker

import (
	"testing"

	"github.com/loykin/shepherd/internal/control"
)

func newTestDir(t *testing.T) control.Dir {
	t.Helper()
	dir := control.New(t.TempDir())
	if err := dir.Ensure(); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	return dir
}

func TestToggleAlternates(t *testing.T) {
	s := NewStateChannel(newTestDir(t))
	want := true
	for i := 0; i < 6; i++ {
		got, err := s.Toggle("w1")
		if err != nil {
			t.Fatalf("toggle %d: %v", i, err)
		}
		if got != want {
			t.Fatalf("toggle %d: want %v got %v", i, want, got)
		}
		if s.IsEnabled("w1") != want {
			t.Fatalf("toggle %d: marker disagrees", i)
		}
		want = !want
	}
}

func TestSetEnabledIdempotent(t *testing.T) {
	s := NewStateChannel(newTestDir(t))
	changed, err := s.SetEnabled("w1", true)
	if err != nil || !changed {
		t.Fatalf("first set: changed=%v err=%v", changed, err)
	}
	changed, err = s.SetEnabled("w1", true)
	if err != nil || changed {
		t.Fatalf("second set must be a no-op: changed=%v err=%v", changed, err)
	}
	changed, err = s.SetEnabled("w1", false)
	if err != nil || !changed {
		t.Fatalf("disable: changed=%v err=%v", changed, err)
	}
	changed, err = s.SetEnabled("w1", false)
	if err != nil || changed {
		t.Fatalf("repeat disable must be a no-op: changed=%v err=%v", changed, err)
	}
}

func TestStateChannelsAreIndependent(t *testing.T) {
	s := NewStateChannel(newTestDir(t))
	if _, err := s.SetEnabled("a", true); err != nil {
		t.Fatalf("enable a: %v", err)
	}
	if s.IsEnabled("b") {
		t.Fatalf("b must not be enabled")
	}
}

func TestShutdownChannel(t *testing.T) {
	sd := NewShutdownChannel(newTestDir(t))
	if sd.IsSet() {
		t.Fatalf("fresh channel must be unset")
	}
	if err := sd.Set(); err != nil {
		t.Fatalf("set: %v", err)
	}
	if !sd.IsSet() {
		t.Fatalf("expected set")
	}
	// Set is monotonic for observers; re-raising is harmless.
	if err := sd.Set(); err != nil {
		t.Fatalf("re-set: %v", err)
	}
	if err := sd.Clear(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if sd.IsSet() {
		t.Fatalf("expected cleared")
	}
	// Clearing an absent marker stays silent.
	if err := sd.Clear(); err != nil {
		t.Fatalf("clear absent: %v", err)
	}
}
