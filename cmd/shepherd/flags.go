package main

import "time"

// GlobalFlags holds persistent flags shared by all commands.
type GlobalFlags struct {
	ConfigPath string
	ControlDir string
}

// RegisterFlags holds flags for the register command.
type RegisterFlags struct {
	Name       string
	Path       string
	APIUrl     string
	APITimeout time.Duration
}

// ToggleFlags holds flags for toggle/enabled commands.
type ToggleFlags struct {
	Name       string
	Value      string // "", "true" or "false"
	APIUrl     string
	APITimeout time.Duration
}

// LogsFlags holds flags for the logs command.
type LogsFlags struct {
	Level      string
	Source     string
	APIUrl     string
	APITimeout time.Duration
}

// ListFlags holds flags for the list command.
type ListFlags struct {
	APIUrl     string
	APITimeout time.Duration
}

// ShutdownFlags holds flags for the shutdown command.
type ShutdownFlags struct {
	APIUrl     string
	APITimeout time.Duration
}

// ServeFlags holds flags for the serve command.
type ServeFlags struct {
	ConfigPath string
}

// ChildFlags holds flags for the child command.
type ChildFlags struct {
	Name             string
	ShutdownInterval time.Duration
	EnabledInterval  time.Duration
}
