package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "shepherd.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadFull(t *testing.T) {
	path := writeConfig(t, `
control_dir = "/var/lib/shepherd"
max_history = 500
auto_launch = true
log_level = "debug"

[child_log]
dir = "/var/log/shepherd"
max_size_mb = 20
max_backups = 3

[supervisor]
grace = "5s"
reclaim = "1s"

[poll]
shutdown_interval = "200ms"
enabled_interval = "2s"

[server]
listen = ":9090"
base_path = "/api"

[metrics]
enabled = true
listen = ":9100"

[archive]
enabled = true
dsn = "sqlite:///var/lib/shepherd/archive.db"
table = "notifications"
`)
	c, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.ControlDir != "/var/lib/shepherd" {
		t.Fatalf("control_dir: %s", c.ControlDir)
	}
	if c.MaxHistory != 500 || !c.AutoLaunch || c.LogLevel != "debug" {
		t.Fatalf("top level: %+v", c)
	}
	if c.Supervisor.Grace != 5*time.Second || c.Supervisor.Reclaim != time.Second {
		t.Fatalf("supervisor: %+v", c.Supervisor)
	}
	if c.Poll.ShutdownInterval != 200*time.Millisecond || c.Poll.EnabledInterval != 2*time.Second {
		t.Fatalf("poll: %+v", c.Poll)
	}
	if c.Server == nil || c.Server.Listen != ":9090" || c.Server.BasePath != "/api" {
		t.Fatalf("server: %+v", c.Server)
	}
	if c.Metrics == nil || !c.Metrics.Enabled || c.Metrics.Listen != ":9100" {
		t.Fatalf("metrics: %+v", c.Metrics)
	}
	if c.Archive == nil || !c.Archive.Enabled || c.Archive.DSN != "sqlite:///var/lib/shepherd/archive.db" {
		t.Fatalf("archive: %+v", c.Archive)
	}
	if c.ChildLog.Dir != "/var/log/shepherd" || c.ChildLog.MaxSizeMB != 20 {
		t.Fatalf("child_log: %+v", c.ChildLog)
	}
}

func TestLoadMinimal(t *testing.T) {
	c, err := Load(writeConfig(t, `control_dir = "/tmp/ctl"`))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Server != nil || c.Metrics != nil || c.Archive != nil {
		t.Fatalf("optional sections must stay nil: %+v", c)
	}
}

func TestLoadRequiresControlDir(t *testing.T) {
	if _, err := Load(writeConfig(t, `log_level = "info"`)); err == nil {
		t.Fatalf("expected error for missing control_dir")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestDefault(t *testing.T) {
	c := Default("/tmp/ctl")
	if c.ControlDir != "/tmp/ctl" || !c.AutoLaunch || c.LogLevel != "info" {
		t.Fatalf("default: %+v", c)
	}
}
