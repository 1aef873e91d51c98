// Package supervisor launches the registered children, tracks their process
// handles, and drives the shutdown escalation: cooperative close request,
// timed grace, forceful fallback. Per-item failures never abort the
// enclosing batch.
package supervisor

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/loykin/shepherd/internal/logger"
	"github.com/loykin/shepherd/internal/marker"
	"github.com/loykin/shepherd/internal/metrics"
	"github.com/loykin/shepherd/internal/notify"
	"github.com/loykin/shepherd/internal/platform"
	"github.com/loykin/shepherd/internal/registry"
)

// Default escalation windows. Grace bounds how long a child has to exit
// after the cooperative close request; Reclaim lets the OS finish tearing
// down force-terminated children before the shutdown marker is removed.
const (
	DefaultGrace   = 3 * time.Second
	DefaultReclaim = 500 * time.Millisecond
)

// Config tunes the supervisor.
type Config struct {
	Grace    time.Duration
	Reclaim  time.Duration
	ChildLog logger.Config // capture launched children's stdout/stderr
}

func (c Config) withDefaults() Config {
	if c.Grace <= 0 {
		c.Grace = DefaultGrace
	}
	if c.Reclaim <= 0 {
		c.Reclaim = DefaultReclaim
	}
	return c
}

// Supervisor owns the tracked child process handles exclusively.
type Supervisor struct {
	mu      sync.Mutex
	state   State
	handles map[string]platform.Handle

	reg      *registry.Registry
	shutdown *marker.ShutdownChannel
	notifier *notify.Manager
	plat     platform.Platform
	cfg      Config
	log      *slog.Logger
}

func New(reg *registry.Registry, sd *marker.ShutdownChannel, n *notify.Manager, p platform.Platform, cfg Config, log *slog.Logger) *Supervisor {
	if log == nil {
		log = slog.Default()
	}
	return &Supervisor{
		state:    StateIdle,
		handles:  make(map[string]platform.Handle),
		reg:      reg,
		shutdown: sd,
		notifier: n,
		plat:     p,
		cfg:      cfg.withDefaults(),
		log:      log,
	}
}

// State returns the current lifecycle phase.
func (s *Supervisor) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Handles returns a snapshot of the tracked handles.
func (s *Supervisor) Handles() []platform.Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]platform.Handle, 0, len(s.handles))
	for _, h := range s.handles {
		out = append(out, h)
	}
	return out
}

// LaunchAll spawns every registry entry. A failed spawn is logged as an
// error entry and the batch continues; one failure never aborts the rest.
// It returns the number of children launched successfully.
func (s *Supervisor) LaunchAll() (int, error) {
	s.mu.Lock()
	if s.state != StateIdle {
		st := s.state
		s.mu.Unlock()
		return 0, fmt.Errorf("launch: supervisor is %s, want idle", st)
	}
	s.state = StateLaunching
	s.mu.Unlock()

	descs, err := s.reg.List()
	if err != nil {
		// An unreadable registry means nothing to launch; keep running so
		// toggles and notifications still work.
		s.notifier.Error(notify.SourceMaster, fmt.Sprintf("failed to read registry: %v", err))
		s.setState(StateRunning)
		return 0, nil
	}

	launched := 0
	for _, d := range descs {
		if err := s.launchOne(d); err != nil {
			metrics.IncLaunch("error")
			s.notifier.Error(notify.SourceMaster, fmt.Sprintf("failed to launch %s: %v", d.Name, err))
			continue
		}
		launched++
	}
	s.setState(StateRunning)
	s.publishHandleCount()
	return launched, nil
}

// Launch spawns a single registered child by name. Used by the control API
// for children registered after startup.
func (s *Supervisor) Launch(name string) error {
	if st := s.State(); st != StateRunning {
		return fmt.Errorf("launch %s: supervisor is %s, want running", name, st)
	}
	d, err := s.reg.Get(name)
	if err != nil {
		return err
	}
	if err := s.launchOne(d); err != nil {
		metrics.IncLaunch("error")
		s.notifier.Error(notify.SourceMaster, fmt.Sprintf("failed to launch %s: %v", d.Name, err))
		return err
	}
	s.publishHandleCount()
	return nil
}

func (s *Supervisor) launchOne(d registry.Descriptor) error {
	outW, errW := s.cfg.ChildLog.Writers(d.Name)
	h, err := s.plat.Spawn(platform.SpawnSpec{
		Name:   d.Name,
		Path:   d.ExecPath,
		Stdout: outW,
		Stderr: errW,
	})
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.handles[d.Name] = h
	s.mu.Unlock()
	metrics.IncLaunch("ok")
	s.notifier.Info(notify.SourceMaster, fmt.Sprintf("launched %s (pid %d)", h.Name, h.PID))
	s.log.Info("child launched", "name", h.Name, "pid", h.PID)
	return nil
}

// RequestShutdown runs the two-phase escalation and transitions the
// supervisor to Terminated. The sequence is: raise the shutdown marker,
// request a cooperative close of every window owned by each live handle,
// wait the grace interval, force-terminate the stragglers, wait a reclaim
// interval, then best-effort delete the marker.
func (s *Supervisor) RequestShutdown() error {
	s.mu.Lock()
	switch s.state {
	case StateShuttingDown, StateTerminated:
		st := s.state
		s.mu.Unlock()
		return fmt.Errorf("shutdown already %s", st)
	default:
	}
	s.state = StateShuttingDown
	tracked := make(map[string]platform.Handle, len(s.handles))
	for n, h := range s.handles {
		tracked[n] = h
	}
	s.mu.Unlock()

	s.notifier.Info(notify.SourceMaster, "shutdown requested")

	if err := s.shutdown.Set(); err != nil {
		s.notifier.Warning(notify.SourceMaster, fmt.Sprintf("failed to set shutdown marker: %v", err))
	}

	// Phase one: cooperative close of every window each live child owns.
	for _, h := range tracked {
		if !s.plat.IsAlive(h) {
			continue
		}
		for _, w := range s.plat.ListWindows(h.PID) {
			if err := s.plat.RequestClose(w); err != nil {
				s.notifier.Warning(notify.SourceMaster, fmt.Sprintf("close request for %s failed: %v", h.Name, err))
			}
		}
	}

	time.Sleep(s.cfg.Grace)

	// Phase two: force-terminate whatever is still alive, logging the
	// outcome per handle either way.
	for name, h := range tracked {
		if s.plat.IsAlive(h) {
			if err := s.plat.Terminate(h); err != nil {
				s.notifier.Warning(notify.SourceMaster, fmt.Sprintf("failed to terminate %s: %v", h.Name, err))
			}
			metrics.IncShutdownOutcome("forced")
			s.notifier.Info(notify.SourceMaster, fmt.Sprintf("%s force closed", h.Name))
		} else {
			metrics.IncShutdownOutcome("graceful")
			s.notifier.Info(notify.SourceMaster, fmt.Sprintf("%s closed gracefully", h.Name))
		}
		s.mu.Lock()
		delete(s.handles, name)
		s.mu.Unlock()
	}
	s.publishHandleCount()

	time.Sleep(s.cfg.Reclaim)

	_ = s.shutdown.Clear()
	s.setState(StateTerminated)
	s.log.Info("supervisor terminated")
	return nil
}

// Run marks the supervisor running without launching anything, for masters
// configured without auto-launch.
func (s *Supervisor) Run() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateIdle {
		return fmt.Errorf("run: supervisor is %s, want idle", s.state)
	}
	s.state = StateRunning
	return nil
}

func (s *Supervisor) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

func (s *Supervisor) publishHandleCount() {
	s.mu.Lock()
	n := len(s.handles)
	s.mu.Unlock()
	metrics.SetTrackedHandles(n)
}
