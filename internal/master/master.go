// Package master wires the control-plane components together and exposes
// the operation surface consumed by the CLI, the HTTP API, and embedders:
// register, list, is_enabled, toggle, log, get_filtered, format and
// request_shutdown. One Master is constructed at startup and passed
// explicitly to every consumer.
package master

import (
	"fmt"
	"log/slog"

	"github.com/loykin/shepherd/internal/control"
	"github.com/loykin/shepherd/internal/marker"
	"github.com/loykin/shepherd/internal/metrics"
	"github.com/loykin/shepherd/internal/notify"
	"github.com/loykin/shepherd/internal/platform"
	"github.com/loykin/shepherd/internal/registry"
	"github.com/loykin/shepherd/internal/supervisor"
)

// Options configures a Master.
type Options struct {
	ControlDir string
	MaxHistory int
	Supervisor supervisor.Config
	Platform   platform.Platform // defaults to the OS implementation
	Logger     *slog.Logger
}

// Master is the single orchestrating instance of the control plane.
type Master struct {
	dir      control.Dir
	reg      *registry.Registry
	states   *marker.StateChannel
	shutdown *marker.ShutdownChannel
	notifier *notify.Manager
	sup      *supervisor.Supervisor
	log      *slog.Logger
}

// New builds a Master over opts.ControlDir. Failure to create the control
// directory disables every control-plane function and is returned as a
// fatal error.
func New(opts Options) (*Master, error) {
	dir := control.New(opts.ControlDir)
	if err := dir.Ensure(); err != nil {
		return nil, err
	}
	if opts.Platform == nil {
		opts.Platform = platform.NewOS()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	reg := registry.New(dir)
	sd := marker.NewShutdownChannel(dir)
	n := notify.NewManager(dir.NotificationsFile(), opts.MaxHistory)
	return &Master{
		dir:      dir,
		reg:      reg,
		states:   marker.NewStateChannel(dir),
		shutdown: sd,
		notifier: n,
		sup:      supervisor.New(reg, sd, n, opts.Platform, opts.Supervisor, opts.Logger),
		log:      opts.Logger,
	}, nil
}

// Notifier exposes the notification manager for sink and observer wiring.
func (m *Master) Notifier() *notify.Manager { return m.notifier }

// Register upserts a child descriptor.
func (m *Master) Register(name, execPath string) error {
	return m.reg.Register(name, execPath)
}

// List returns all registered descriptors.
func (m *Master) List() ([]registry.Descriptor, error) { return m.reg.List() }

// IsEnabled reports the current enable flag for name.
func (m *Master) IsEnabled(name string) bool { return m.states.IsEnabled(name) }

// SetEnabled writes the enable flag. A no-op write emits no notification;
// a marker failure is logged as a warning and the prior state is preserved.
func (m *Master) SetEnabled(name string, v bool) error {
	changed, err := m.states.SetEnabled(name, v)
	if err != nil {
		m.notifier.Warning(notify.SourceMaster, fmt.Sprintf("toggle %s failed: %v", name, err))
		return err
	}
	if changed {
		m.noteToggle(name, v)
	}
	return nil
}

// Toggle flips the enable flag and returns the new value.
func (m *Master) Toggle(name string) (bool, error) {
	next, err := m.states.Toggle(name)
	if err != nil {
		m.notifier.Warning(notify.SourceMaster, fmt.Sprintf("toggle %s failed: %v", name, err))
		return !next, err
	}
	m.noteToggle(name, next)
	return next, nil
}

func (m *Master) noteToggle(name string, enabled bool) {
	metrics.IncToggle(name, enabled)
	word := "disabled"
	if enabled {
		word = "enabled"
	}
	m.notifier.Info(notify.SourceMaster, fmt.Sprintf("%s %s", name, word))
}

// Log records a notification entry.
func (m *Master) Log(level notify.Level, source, message string) {
	metrics.IncNotification(string(level))
	m.notifier.Log(level, source, message)
}

// GetFiltered returns matching in-memory entries oldest to newest.
func (m *Master) GetFiltered(f notify.Filter) []notify.Entry {
	return m.notifier.GetFiltered(f)
}

// Format renders entries newest-first for display.
func (m *Master) Format(entries []notify.Entry) string { return notify.Format(entries) }

// LaunchAll launches every registered child.
func (m *Master) LaunchAll() (int, error) { return m.sup.LaunchAll() }

// Launch launches one registered child by name.
func (m *Master) Launch(name string) error { return m.sup.Launch(name) }

// Run marks the supervisor running without launching (no auto-launch).
func (m *Master) Run() error { return m.sup.Run() }

// RequestShutdown drives the shutdown escalation to completion.
func (m *Master) RequestShutdown() error { return m.sup.RequestShutdown() }

// State returns the supervisor state.
func (m *Master) State() supervisor.State { return m.sup.State() }

// Handles returns the tracked child process handles.
func (m *Master) Handles() []platform.Handle { return m.sup.Handles() }
