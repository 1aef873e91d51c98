package control

import (
	"fmt"
	"os"
	"path/filepath"
)

// Subdirectory and file names under the control directory root.
// These names are the wire protocol: every process that shares the
// root agrees on them.
const (
	scriptsDir       = "scripts"
	enabledDir       = "enabled"
	notificationsLog = "notifications.txt"
	shutdownMarker   = "shutdown.marker"
)

// Dir is the shared filesystem root all orchestrator processes communicate
// through. Artifacts below it are the only transport between the master and
// its children.
type Dir struct {
	root string
}

// New returns a Dir rooted at root without touching the filesystem.
func New(root string) Dir { return Dir{root: root} }

// Ensure creates the control directory tree. Failure here disables every
// control-plane function, so callers must treat a non-nil error as fatal.
func (d Dir) Ensure() error {
	for _, p := range []string{d.root, d.ScriptsDir(), d.EnabledDir()} {
		if err := os.MkdirAll(p, 0o750); err != nil {
			return fmt.Errorf("create control dir %s: %w", p, err)
		}
	}
	return nil
}

func (d Dir) Root() string       { return d.root }
func (d Dir) ScriptsDir() string { return filepath.Join(d.root, scriptsDir) }
func (d Dir) EnabledDir() string { return filepath.Join(d.root, enabledDir) }

// InfoFile returns the descriptor path for a registered child.
func (d Dir) InfoFile(name string) string {
	return filepath.Join(d.ScriptsDir(), name+".info")
}

// EnabledMarker returns the per-child enable marker path. Existence of the
// file is the whole payload.
func (d Dir) EnabledMarker(name string) string {
	return filepath.Join(d.EnabledDir(), name+".enabled")
}

// NotificationsFile returns the durable append-only notification log path.
func (d Dir) NotificationsFile() string {
	return filepath.Join(d.root, notificationsLog)
}

// ShutdownMarker returns the global shutdown marker path.
func (d Dir) ShutdownMarker() string {
	return filepath.Join(d.root, shutdownMarker)
}
