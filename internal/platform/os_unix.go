//go:build !windows

package platform

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"sync"
	"syscall"
	"time"
)

// OS is the real Unix implementation of Platform. Children are launched in
// their own process group; the "window" surface is modeled as one
// pseudo-window per process whose cooperative close is SIGTERM to the group.
type OS struct {
	mu      sync.Mutex
	closers map[int][]io.Closer
}

func NewOS() *OS { return &OS{closers: make(map[int][]io.Closer)} }

func (o *OS) Spawn(spec SpawnSpec) (Handle, error) {
	if spec.Path == "" {
		return Handle{}, fmt.Errorf("spawn %s: empty path", spec.Name)
	}
	cmd := exec.Command(spec.Path) // #nosec G204 -- path comes from the local registry
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	if spec.Stdout != nil {
		cmd.Stdout = spec.Stdout
	} else {
		cmd.Stdout, _ = os.OpenFile(os.DevNull, os.O_RDWR, 0)
	}
	if spec.Stderr != nil {
		cmd.Stderr = spec.Stderr
	} else {
		cmd.Stderr, _ = os.OpenFile(os.DevNull, os.O_RDWR, 0)
	}
	if err := cmd.Start(); err != nil {
		return Handle{}, fmt.Errorf("spawn %s: %w", spec.Name, err)
	}
	pid := cmd.Process.Pid
	o.trackClosers(pid, spec.Stdout, spec.Stderr)
	// Reap asynchronously so the child never lingers as a zombie.
	go func() {
		_ = cmd.Wait()
		o.closeClosers(pid)
	}()
	return Handle{Name: spec.Name, PID: pid, LaunchTime: time.Now()}, nil
}

func (o *OS) IsAlive(h Handle) bool {
	if h.PID <= 0 {
		return false
	}
	if runtime.GOOS == "linux" && isZombieLinux(h.PID) {
		return false
	}
	return syscall.Kill(h.PID, 0) == nil
}

func (o *OS) Terminate(h Handle) error {
	if h.PID <= 0 {
		return nil
	}
	if err := syscall.Kill(-h.PID, syscall.SIGKILL); err != nil && err != syscall.ESRCH {
		return fmt.Errorf("terminate %s (pid %d): %w", h.Name, h.PID, err)
	}
	return nil
}

func (o *OS) ListWindows(pid int) []Window {
	if syscall.Kill(pid, 0) != nil {
		return nil
	}
	return []Window{{PID: pid, ID: 1}}
}

func (o *OS) RequestClose(w Window) error {
	if err := syscall.Kill(-w.PID, syscall.SIGTERM); err != nil && err != syscall.ESRCH {
		return fmt.Errorf("request close pid %d: %w", w.PID, err)
	}
	return nil
}

func (o *OS) trackClosers(pid int, ws ...io.Writer) {
	o.mu.Lock()
	for _, w := range ws {
		if c, ok := w.(io.Closer); ok && c != nil {
			o.closers[pid] = append(o.closers[pid], c)
		}
	}
	o.mu.Unlock()
}

func (o *OS) closeClosers(pid int) {
	o.mu.Lock()
	cs := o.closers[pid]
	delete(o.closers, pid)
	o.mu.Unlock()
	for _, c := range cs {
		_ = c.Close()
	}
}

// isZombieLinux reports whether /proc/<pid>/status shows a zombie (Z) state.
// A reaped-but-unwaited child must not count as alive.
func isZombieLinux(pid int) bool {
	b, err := os.ReadFile("/proc/" + strconv.Itoa(pid) + "/status")
	if err != nil {
		return false
	}
	return bytes.Contains(b, []byte("State:\tZ"))
}
