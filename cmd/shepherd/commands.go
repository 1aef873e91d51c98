package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/loykin/shepherd"
	"github.com/loykin/shepherd/internal/control"
	"github.com/loykin/shepherd/internal/marker"
	"github.com/loykin/shepherd/internal/notify"
	"github.com/loykin/shepherd/internal/registry"
	"github.com/loykin/shepherd/pkg/client"
)

// command implements the CLI actions. Operations run against a remote
// daemon when --api-url is set; otherwise they act directly on the control
// directory, which is the wire protocol anyway.
type command struct {
	global *GlobalFlags
}

func (c command) controlDir() (control.Dir, error) {
	root := c.global.ControlDir
	if root == "" {
		return control.Dir{}, fmt.Errorf("--control-dir is required for local operation (or use --api-url)")
	}
	dir := control.New(root)
	if err := dir.Ensure(); err != nil {
		return control.Dir{}, err
	}
	return dir, nil
}

func apiClient(url string, timeout time.Duration) *client.Client {
	cfg := client.DefaultConfig()
	if url != "" {
		cfg.BaseURL = url
	}
	if timeout > 0 {
		cfg.Timeout = timeout
	}
	return client.New(cfg)
}

func (c command) Register(f RegisterFlags) error {
	if f.APIUrl != "" {
		ctx, cancel := context.WithTimeout(context.Background(), f.APITimeout)
		defer cancel()
		if err := apiClient(f.APIUrl, f.APITimeout).Register(ctx, f.Name, f.Path); err != nil {
			return err
		}
		fmt.Printf("registered %s -> %s\n", f.Name, f.Path)
		return nil
	}
	dir, err := c.controlDir()
	if err != nil {
		return err
	}
	if err := registry.New(dir).Register(f.Name, f.Path); err != nil {
		return err
	}
	fmt.Printf("registered %s -> %s\n", f.Name, f.Path)
	return nil
}

func (c command) List(f ListFlags) error {
	var descs []registry.Descriptor
	if f.APIUrl != "" {
		ctx, cancel := context.WithTimeout(context.Background(), f.APITimeout)
		defer cancel()
		ds, err := apiClient(f.APIUrl, f.APITimeout).List(ctx)
		if err != nil {
			return err
		}
		descs = ds
	} else {
		dir, err := c.controlDir()
		if err != nil {
			return err
		}
		ds, err := registry.New(dir).List()
		if err != nil {
			return err
		}
		descs = ds
	}
	for _, d := range descs {
		fmt.Printf("%s\t%s\t%s\n", d.Name, d.ExecPath, d.DiscoveredAt.Format(time.RFC3339))
	}
	return nil
}

func (c command) Toggle(f ToggleFlags) error {
	if f.APIUrl != "" {
		ctx, cancel := context.WithTimeout(context.Background(), f.APITimeout)
		defer cancel()
		cl := apiClient(f.APIUrl, f.APITimeout)
		if f.Value != "" {
			v, err := strconv.ParseBool(f.Value)
			if err != nil {
				return fmt.Errorf("--value must be true or false")
			}
			if err := cl.SetEnabled(ctx, f.Name, v); err != nil {
				return err
			}
			fmt.Printf("%s enabled=%t\n", f.Name, v)
			return nil
		}
		res, err := cl.Toggle(ctx, f.Name)
		if err != nil {
			return err
		}
		fmt.Printf("%s enabled=%t\n", res.Name, res.Enabled)
		return nil
	}
	dir, err := c.controlDir()
	if err != nil {
		return err
	}
	states := marker.NewStateChannel(dir)
	if f.Value != "" {
		v, err := strconv.ParseBool(f.Value)
		if err != nil {
			return fmt.Errorf("--value must be true or false")
		}
		if _, err := states.SetEnabled(f.Name, v); err != nil {
			return err
		}
		fmt.Printf("%s enabled=%t\n", f.Name, v)
		return nil
	}
	next, err := states.Toggle(f.Name)
	if err != nil {
		return err
	}
	fmt.Printf("%s enabled=%t\n", f.Name, next)
	return nil
}

func (c command) Enabled(f ToggleFlags) error {
	if f.APIUrl != "" {
		ctx, cancel := context.WithTimeout(context.Background(), f.APITimeout)
		defer cancel()
		v, err := apiClient(f.APIUrl, f.APITimeout).IsEnabled(ctx, f.Name)
		if err != nil {
			return err
		}
		fmt.Printf("%s enabled=%t\n", f.Name, v)
		return nil
	}
	dir, err := c.controlDir()
	if err != nil {
		return err
	}
	fmt.Printf("%s enabled=%t\n", f.Name, marker.NewStateChannel(dir).IsEnabled(f.Name))
	return nil
}

// Logs prints notifications newest-first. Remote mode filters the daemon's
// in-memory ring; local mode reads the durable log, the source of truth.
func (c command) Logs(f LogsFlags) error {
	filter := notify.Filter{Level: notify.Level(f.Level), Source: f.Source}
	if f.APIUrl != "" {
		ctx, cancel := context.WithTimeout(context.Background(), f.APITimeout)
		defer cancel()
		entries, err := apiClient(f.APIUrl, f.APITimeout).Notifications(ctx, filter.Level, filter.Source)
		if err != nil {
			return err
		}
		fmt.Print(notify.Format(entries))
		return nil
	}
	dir, err := c.controlDir()
	if err != nil {
		return err
	}
	entries, err := readDurable(dir.NotificationsFile(), filter)
	if err != nil {
		return err
	}
	fmt.Print(notify.Format(entries))
	return nil
}

func (c command) Shutdown(f ShutdownFlags) error {
	ctx, cancel := context.WithTimeout(context.Background(), f.APITimeout)
	defer cancel()
	if err := apiClient(f.APIUrl, f.APITimeout).Shutdown(ctx); err != nil {
		return err
	}
	fmt.Println("shutdown requested")
	return nil
}

func (c command) Child(f ChildFlags) error {
	ctl := c.global.ControlDir
	maxHistory := 0
	// A config file can supply the control dir and poll cadences; explicit
	// flags win.
	if c.global.ConfigPath != "" {
		cfg, err := shepherd.LoadConfig(c.global.ConfigPath)
		if err != nil {
			return err
		}
		if ctl == "" {
			ctl = cfg.ControlDir
		}
		if f.ShutdownInterval == 0 {
			f.ShutdownInterval = cfg.Poll.ShutdownInterval
		}
		if f.EnabledInterval == 0 {
			f.EnabledInterval = cfg.Poll.EnabledInterval
		}
		maxHistory = cfg.MaxHistory
	}
	if ctl == "" {
		return fmt.Errorf("--control-dir is required")
	}
	self, err := os.Executable()
	if err != nil {
		self = os.Args[0]
	}
	rt, err := shepherd.NewChildRuntime(ctl, shepherd.ChildConfig{
		Name:             f.Name,
		ExecPath:         self,
		ShutdownInterval: f.ShutdownInterval,
		EnabledInterval:  f.EnabledInterval,
	}, shepherd.FuncBehavior{
		OnActivate:   func() { fmt.Printf("%s: behavior active\n", f.Name) },
		OnDeactivate: func() { fmt.Printf("%s: behavior inactive\n", f.Name) },
	}, maxHistory)
	if err != nil {
		return err
	}
	return rt.Run(context.Background())
}

func readDurable(path string, f notify.Filter) ([]notify.Entry, error) {
	file, err := os.Open(path) // #nosec G304 -- control dir path
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer func() { _ = file.Close() }()
	var out []notify.Entry
	sc := bufio.NewScanner(file)
	for sc.Scan() {
		e, err := notify.ParseLine(sc.Text())
		if err != nil {
			continue
		}
		if (f.Level == "" || e.Level == f.Level) && (f.Source == "" || e.Source == f.Source) {
			out = append(out, e)
		}
	}
	return out, sc.Err()
}
