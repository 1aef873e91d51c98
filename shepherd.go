package shepherd

import (
	"net/http"
	"time"

	"github.com/loykin/shepherd/internal/archive"
	"github.com/loykin/shepherd/internal/archive/factory"
	"github.com/loykin/shepherd/internal/child"
	cfg "github.com/loykin/shepherd/internal/config"
	"github.com/loykin/shepherd/internal/control"
	"github.com/loykin/shepherd/internal/marker"
	"github.com/loykin/shepherd/internal/master"
	"github.com/loykin/shepherd/internal/metrics"
	"github.com/loykin/shepherd/internal/notify"
	"github.com/loykin/shepherd/internal/platform"
	"github.com/loykin/shepherd/internal/registry"
	iapi "github.com/loykin/shepherd/internal/server"
	"github.com/loykin/shepherd/internal/supervisor"
	"github.com/prometheus/client_golang/prometheus"
)

// Re-export core types for external consumers.
// These are aliases so conversions are zero-cost.

type Descriptor = registry.Descriptor

type Entry = notify.Entry

type Level = notify.Level

const (
	LevelInfo    = notify.LevelInfo
	LevelWarning = notify.LevelWarning
	LevelError   = notify.LevelError
)

type Filter = notify.Filter

type Handle = platform.Handle

type State = supervisor.State

type SupervisorConfig = supervisor.Config

type MasterOptions = master.Options

type ArchiveConfig = factory.Config

type ArchiveStore = archive.Store

type NotifySink = notify.Sink

// Master is a thin facade over internal/master.Master for embedding.
type Master struct{ inner *master.Master }

// NewMaster constructs the orchestrating master over a control directory.
func NewMaster(opts MasterOptions) (*Master, error) {
	m, err := master.New(opts)
	if err != nil {
		return nil, err
	}
	return &Master{inner: m}, nil
}

func (m *Master) Register(name, path string) error     { return m.inner.Register(name, path) }
func (m *Master) List() ([]Descriptor, error)          { return m.inner.List() }
func (m *Master) IsEnabled(name string) bool           { return m.inner.IsEnabled(name) }
func (m *Master) SetEnabled(name string, v bool) error { return m.inner.SetEnabled(name, v) }
func (m *Master) Toggle(name string) (bool, error)     { return m.inner.Toggle(name) }

func (m *Master) Log(level Level, source, message string) {
	m.inner.Log(level, source, message)
}

func (m *Master) GetFiltered(f Filter) []Entry  { return m.inner.GetFiltered(f) }
func (m *Master) Format(entries []Entry) string { return m.inner.Format(entries) }
func (m *Master) LaunchAll() (int, error)       { return m.inner.LaunchAll() }
func (m *Master) Launch(name string) error      { return m.inner.Launch(name) }
func (m *Master) Run() error                    { return m.inner.Run() }
func (m *Master) RequestShutdown() error        { return m.inner.RequestShutdown() }
func (m *Master) State() State                  { return m.inner.State() }
func (m *Master) Handles() []Handle             { return m.inner.Handles() }

// SetSinks wires notification sinks (archive backends, analytics exports).
func (m *Master) SetSinks(sinks ...NotifySink) { m.inner.Notifier().SetSinks(sinks...) }

// SetObserver installs the decoupled presentation observer.
func (m *Master) SetObserver(o func(Entry)) { m.inner.Notifier().SetObserver(o) }

// NewArchive builds an archive backend from config and returns it with a
// sink ready to pass to SetSinks.
func NewArchive(c ArchiveConfig) (ArchiveStore, NotifySink, error) {
	st, err := factory.NewFromConfig(c)
	if err != nil {
		return nil, nil, err
	}
	return st, archive.NewSink(st), nil
}

// Child runtime facade

type ChildConfig = child.Config

type ChildBehavior = child.Behavior

type FuncBehavior = child.FuncBehavior

// NewChildRuntime builds the polling runtime for a worker process sharing
// controlDir with the master.
func NewChildRuntime(controlDir string, c ChildConfig, b ChildBehavior, maxHistory int) (*child.Runtime, error) {
	dir := control.New(controlDir)
	if err := dir.Ensure(); err != nil {
		return nil, err
	}
	n := notify.NewManager(dir.NotificationsFile(), maxHistory)
	return child.NewRuntime(
		c,
		registry.New(dir),
		marker.NewStateChannel(dir),
		marker.NewShutdownChannel(dir),
		n,
		b,
		nil,
	), nil
}

func LoadConfig(path string) (*cfg.Config, error) { return cfg.Load(path) }

// NewHTTPServer starts an HTTP server exposing the control API using the given master.
func NewHTTPServer(addr, basePath string, m *Master) (*http.Server, error) {
	return iapi.NewServer(addr, basePath, m.inner)
}

// Metrics helpers (public facade)

func RegisterMetrics(r prometheus.Registerer) error { return metrics.Register(r) }
func RegisterMetricsDefault() error                 { return metrics.Register(prometheus.DefaultRegisterer) }

// ServeMetrics starts an HTTP server on addr exposing /metrics using the
// default registry. It runs in the caller goroutine.
func ServeMetrics(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv.ListenAndServe()
}
