// Package child implements the polling runtime loop inside each worker
// process. Two independent periodic checks drive it: a tight shutdown poll
// bounding shutdown latency, and a slower enablement poll that edge-detects
// against the last observed value so re-polling an unchanged flag never
// re-fires an effect.
package child

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/loykin/shepherd/internal/marker"
	"github.com/loykin/shepherd/internal/notify"
	"github.com/loykin/shepherd/internal/registry"
)

// Default poll cadences. Shutdown is polled more frequently than enablement
// to keep master shutdown latency tight.
const (
	DefaultShutdownInterval = 250 * time.Millisecond
	DefaultEnabledInterval  = time.Second
)

// Behavior is the child's own domain-specific effect toggled by the master.
type Behavior interface {
	Activate()
	Deactivate()
}

// Config tunes one child runtime.
type Config struct {
	Name             string
	ExecPath         string // self path recorded in the registry
	ShutdownInterval time.Duration
	EnabledInterval  time.Duration
}

// Runtime polls the control channels and applies edge-triggered effects.
type Runtime struct {
	cfg      Config
	reg      *registry.Registry
	states   *marker.StateChannel
	shutdown *marker.ShutdownChannel
	notifier *notify.Manager
	behavior Behavior
	log      *slog.Logger

	lastEnabled bool
}

func NewRuntime(cfg Config, reg *registry.Registry, st *marker.StateChannel, sd *marker.ShutdownChannel, n *notify.Manager, b Behavior, log *slog.Logger) *Runtime {
	if cfg.ShutdownInterval <= 0 {
		cfg.ShutdownInterval = DefaultShutdownInterval
	}
	if cfg.EnabledInterval <= 0 {
		cfg.EnabledInterval = DefaultEnabledInterval
	}
	if log == nil {
		log = slog.Default()
	}
	return &Runtime{
		cfg:      cfg,
		reg:      reg,
		states:   st,
		shutdown: sd,
		notifier: n,
		behavior: b,
		log:      log,
	}
}

// Run registers the child and polls until the shutdown flag is observed or
// ctx is canceled. Registration is best-effort: a write failure is logged
// and the loop starts anyway.
func (r *Runtime) Run(ctx context.Context) error {
	if err := r.reg.Register(r.cfg.Name, r.cfg.ExecPath); err != nil {
		r.log.Warn("registration failed", "name", r.cfg.Name, "err", err)
	}

	shutdownTick := time.NewTicker(r.cfg.ShutdownInterval)
	defer shutdownTick.Stop()
	enabledTick := time.NewTicker(r.cfg.EnabledInterval)
	defer enabledTick.Stop()

	for {
		select {
		case <-ctx.Done():
			r.deactivateIfNeeded()
			return ctx.Err()
		case <-shutdownTick.C:
			if r.shutdown.IsSet() {
				r.deactivateIfNeeded()
				r.notifier.Info(r.cfg.Name, "exiting")
				return nil
			}
		case <-enabledTick.C:
			r.checkEnabled()
		}
	}
}

// checkEnabled applies the enable flag only on transitions.
func (r *Runtime) checkEnabled() {
	cur := r.states.IsEnabled(r.cfg.Name)
	if cur == r.lastEnabled {
		return
	}
	r.lastEnabled = cur
	if cur {
		r.behavior.Activate()
		r.notifier.Info(r.cfg.Name, "activated")
	} else {
		r.behavior.Deactivate()
		r.notifier.Info(r.cfg.Name, "deactivated")
	}
}

func (r *Runtime) deactivateIfNeeded() {
	if r.lastEnabled {
		r.behavior.Deactivate()
		r.lastEnabled = false
	}
}

// FuncBehavior adapts two funcs to Behavior.
type FuncBehavior struct {
	OnActivate   func()
	OnDeactivate func()
}

func (f FuncBehavior) Activate() {
	if f.OnActivate != nil {
		f.OnActivate()
	}
}

func (f FuncBehavior) Deactivate() {
	if f.OnDeactivate != nil {
		f.OnDeactivate()
	}
}

// Describe returns a short identity string used in child-side logs.
func (c Config) Describe() string {
	return fmt.Sprintf("%s (%s)", c.Name, c.ExecPath)
}
