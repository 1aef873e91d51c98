package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/loykin/shepherd/internal/archive/factory"
	"github.com/loykin/shepherd/internal/logger"
)

// Config is the top-level TOML structure for the master daemon and the
// child runtime.
type Config struct {
	ControlDir string `mapstructure:"control_dir"`
	MaxHistory int    `mapstructure:"max_history"`
	AutoLaunch bool   `mapstructure:"auto_launch"`
	LogLevel   string `mapstructure:"log_level"`

	ChildLog   logger.Config    `mapstructure:"child_log"`
	Supervisor SupervisorConfig `mapstructure:"supervisor"`
	Poll       PollConfig       `mapstructure:"poll"`
	Server     *ServerConfig    `mapstructure:"server"`
	Metrics    *MetricsConfig   `mapstructure:"metrics"`
	Archive    *factory.Config  `mapstructure:"archive"`
}

type SupervisorConfig struct {
	Grace   time.Duration `mapstructure:"grace"`
	Reclaim time.Duration `mapstructure:"reclaim"`
}

type PollConfig struct {
	ShutdownInterval time.Duration `mapstructure:"shutdown_interval"`
	EnabledInterval  time.Duration `mapstructure:"enabled_interval"`
}

type ServerConfig struct {
	Listen   string `mapstructure:"listen"`
	BasePath string `mapstructure:"base_path"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Listen  string `mapstructure:"listen"`
}

// Load reads a TOML config file.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if c.ControlDir == "" {
		return nil, fmt.Errorf("config %s: control_dir is required", path)
	}
	return &c, nil
}

// Default returns the configuration used when no file is given.
func Default(controlDir string) *Config {
	return &Config{
		ControlDir: controlDir,
		AutoLaunch: true,
		LogLevel:   "info",
	}
}
