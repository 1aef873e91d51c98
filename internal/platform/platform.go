// Package platform abstracts the process and window capabilities the
// supervisor consumes so tests can substitute a fake process registry.
package platform

import (
	"io"
	"time"
)

// Handle identifies a child process launched by the supervisor.
type Handle struct {
	Name       string
	PID        int
	LaunchTime time.Time
}

// Window is an addressable top-level window owned by a process. On platforms
// without a window system the implementation may expose one pseudo-window
// per process whose cooperative close is a termination request.
type Window struct {
	PID int
	ID  int
}

// SpawnSpec describes one launch. Stdout/Stderr may be nil to discard.
type SpawnSpec struct {
	Name   string
	Path   string
	Stdout io.Writer
	Stderr io.Writer
}

// Platform is the capability surface between the supervisor and the OS.
type Platform interface {
	Spawn(spec SpawnSpec) (Handle, error)
	IsAlive(h Handle) bool
	Terminate(h Handle) error
	ListWindows(pid int) []Window
	RequestClose(w Window) error
}
