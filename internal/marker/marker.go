// Package marker implements the boolean signaling channels of the control
// protocol. A signal is encoded entirely by the existence of a zero-byte
// file: create means true, delete means false. The master is the only
// writer; children poll and edge-detect on their own last-observed value.
package marker

import (
	"fmt"
	"os"

	"github.com/loykin/shepherd/internal/control"
)

// StateChannel is the per-child enable/disable channel.
type StateChannel struct {
	dir control.Dir
}

func NewStateChannel(dir control.Dir) *StateChannel { return &StateChannel{dir: dir} }

// IsEnabled reports whether the enable marker for name exists.
func (s *StateChannel) IsEnabled(name string) bool {
	return exists(s.dir.EnabledMarker(name))
}

// SetEnabled transitions the channel to v. Setting the already-current state
// is a no-op so repeated calls produce no duplicate effects. The returned
// bool reports whether the state actually changed.
func (s *StateChannel) SetEnabled(name string, v bool) (bool, error) {
	path := s.dir.EnabledMarker(name)
	cur := exists(path)
	if cur == v {
		return false, nil
	}
	if v {
		if err := touch(path); err != nil {
			return false, fmt.Errorf("enable %s: %w", name, err)
		}
		return true, nil
	}
	if err := os.Remove(path); err != nil {
		return false, fmt.Errorf("disable %s: %w", name, err)
	}
	return true, nil
}

// Toggle reads the current value and writes its negation. Not atomic across
// processes; acceptable because only the master writes this channel.
func (s *StateChannel) Toggle(name string) (bool, error) {
	next := !s.IsEnabled(name)
	if _, err := s.SetEnabled(name, next); err != nil {
		return next, err
	}
	return next, nil
}

// ShutdownChannel is the single global shutdown signal. It is monotonic for
// a child's lifetime: once observed true the child terminates and never
// re-enables.
type ShutdownChannel struct {
	dir control.Dir
}

func NewShutdownChannel(dir control.Dir) *ShutdownChannel { return &ShutdownChannel{dir: dir} }

// IsSet reports whether shutdown is in progress.
func (s *ShutdownChannel) IsSet() bool { return exists(s.dir.ShutdownMarker()) }

// Set raises the shutdown flag.
func (s *ShutdownChannel) Set() error {
	if err := touch(s.dir.ShutdownMarker()); err != nil {
		return fmt.Errorf("set shutdown marker: %w", err)
	}
	return nil
}

// Clear removes the shutdown flag. Best-effort at the end of the escalation;
// callers ignore the error.
func (s *ShutdownChannel) Clear() error {
	if err := os.Remove(s.dir.ShutdownMarker()); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func touch(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0o600) // #nosec G304 -- control dir path
	if err != nil {
		return err
	}
	return f.Close()
}
