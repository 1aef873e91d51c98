//go:build windows

package platform

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"
)

const createNewProcessGroup = 0x00000200

var (
	kernel32                     = syscall.NewLazyDLL("kernel32.dll")
	procOpenProcess              = kernel32.NewProc("OpenProcess")
	procCloseHandle              = kernel32.NewProc("CloseHandle")
	procGenerateConsoleCtrlEvent = kernel32.NewProc("GenerateConsoleCtrlEvent")
)

const (
	processQueryInformation = 0x0400
	ctrlBreakEvent          = 1
)

// OS is the Windows implementation of Platform. Children are launched in a
// new process group; the pseudo-window close request is a CTRL_BREAK event
// to that group, with TerminateProcess as the forceful fallback.
type OS struct {
	mu      sync.Mutex
	closers map[int][]io.Closer
	procs   map[int]*os.Process
}

func NewOS() *OS {
	return &OS{
		closers: make(map[int][]io.Closer),
		procs:   make(map[int]*os.Process),
	}
}

func (o *OS) Spawn(spec SpawnSpec) (Handle, error) {
	if spec.Path == "" {
		return Handle{}, fmt.Errorf("spawn %s: empty path", spec.Name)
	}
	cmd := exec.Command(spec.Path) // #nosec G204 -- path comes from the local registry
	cmd.SysProcAttr = &syscall.SysProcAttr{CreationFlags: createNewProcessGroup}
	if spec.Stdout != nil {
		cmd.Stdout = spec.Stdout
	}
	if spec.Stderr != nil {
		cmd.Stderr = spec.Stderr
	}
	if err := cmd.Start(); err != nil {
		return Handle{}, fmt.Errorf("spawn %s: %w", spec.Name, err)
	}
	pid := cmd.Process.Pid
	o.mu.Lock()
	o.procs[pid] = cmd.Process
	for _, w := range []io.Writer{spec.Stdout, spec.Stderr} {
		if c, ok := w.(io.Closer); ok && c != nil {
			o.closers[pid] = append(o.closers[pid], c)
		}
	}
	o.mu.Unlock()
	go func() {
		_ = cmd.Wait()
		o.mu.Lock()
		cs := o.closers[pid]
		delete(o.closers, pid)
		delete(o.procs, pid)
		o.mu.Unlock()
		for _, c := range cs {
			_ = c.Close()
		}
	}()
	return Handle{Name: spec.Name, PID: pid, LaunchTime: time.Now()}, nil
}

func (o *OS) IsAlive(h Handle) bool {
	if h.PID <= 0 {
		return false
	}
	hnd, _, _ := procOpenProcess.Call(uintptr(processQueryInformation), 0, uintptr(uint32(h.PID)))
	if hnd == 0 {
		return false
	}
	_, _, _ = procCloseHandle.Call(hnd)
	o.mu.Lock()
	_, tracked := o.procs[h.PID]
	o.mu.Unlock()
	return tracked
}

func (o *OS) Terminate(h Handle) error {
	if h.PID <= 0 {
		return nil
	}
	o.mu.Lock()
	p := o.procs[h.PID]
	o.mu.Unlock()
	if p == nil {
		// Already reaped; nothing to terminate.
		return nil
	}
	if err := p.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("terminate %s (pid %d): %w", h.Name, h.PID, err)
	}
	return nil
}

func (o *OS) ListWindows(pid int) []Window {
	if !o.IsAlive(Handle{PID: pid}) {
		return nil
	}
	return []Window{{PID: pid, ID: 1}}
}

func (o *OS) RequestClose(w Window) error {
	ret, _, err := procGenerateConsoleCtrlEvent.Call(uintptr(ctrlBreakEvent), uintptr(uint32(w.PID)))
	if ret == 0 {
		return fmt.Errorf("request close pid %d: %w", w.PID, err)
	}
	return nil
}
