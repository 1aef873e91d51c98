package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/loykin/shepherd"
	"github.com/loykin/shepherd/internal/logger"
	"github.com/loykin/shepherd/internal/supervisor"
)

func runServeCommand(flags *ServeFlags, args []string) error {
	configPath := flags.ConfigPath
	if len(args) > 0 {
		configPath = args[0]
	}
	if configPath == "" {
		return fmt.Errorf("config file required for serve. Use --config=config.toml or provide as argument")
	}

	cfg, err := shepherd.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}

	log := logger.New(cfg.LogLevel, os.Stderr)

	mst, err := shepherd.NewMaster(shepherd.MasterOptions{
		ControlDir: cfg.ControlDir,
		MaxHistory: cfg.MaxHistory,
		Supervisor: supervisor.Config{
			Grace:    cfg.Supervisor.Grace,
			Reclaim:  cfg.Supervisor.Reclaim,
			ChildLog: cfg.ChildLog,
		},
		Logger: log,
	})
	if err != nil {
		// Control directory creation is the one fatal control-plane failure.
		return fmt.Errorf("control directory unusable: %w", err)
	}

	if cfg.Archive != nil && cfg.Archive.Enabled {
		st, sink, err := shepherd.NewArchive(*cfg.Archive)
		if err != nil {
			log.Warn("archive disabled", "err", err)
		} else {
			defer func() { _ = st.Close() }()
			if err := st.EnsureSchema(context.Background()); err != nil {
				log.Warn("archive schema", "err", err)
			} else {
				mst.SetSinks(sink)
				log.Info("archive enabled", "dsn", cfg.Archive.DSN)
			}
		}
	}

	if cfg.Metrics != nil && cfg.Metrics.Enabled {
		if err := shepherd.RegisterMetricsDefault(); err != nil {
			log.Warn("failed to register metrics", "err", err)
		}
		if cfg.Metrics.Listen != "" {
			go func() {
				if err := shepherd.ServeMetrics(cfg.Metrics.Listen); err != nil {
					log.Error("metrics server", "err", err)
				}
			}()
		}
	}

	if cfg.AutoLaunch {
		n, _ := mst.LaunchAll()
		log.Info("children launched", "count", n)
	} else {
		if err := mst.Run(); err != nil {
			return err
		}
	}

	if cfg.Server == nil || cfg.Server.Listen == "" {
		return fmt.Errorf("server must be configured to run serve")
	}
	server, err := shepherd.NewHTTPServer(cfg.Server.Listen, cfg.Server.BasePath, mst)
	if err != nil {
		return fmt.Errorf("failed to create HTTP server: %w", err)
	}
	log.Info("serving control API", "listen", cfg.Server.Listen, "base", cfg.Server.BasePath)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info("shutting down")
	if err := mst.RequestShutdown(); err != nil {
		log.Warn("shutdown", "err", err)
	}
	return server.Close()
}
