package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

func main() {
	root := buildRoot()
	if err := root.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// buildRoot assembles the CLI command tree.
func buildRoot() *cobra.Command {
	globalFlags := &GlobalFlags{}
	registerFlags := &RegisterFlags{}
	toggleFlags := &ToggleFlags{}
	enabledFlags := &ToggleFlags{}
	listFlags := &ListFlags{}
	logsFlags := &LogsFlags{}
	shutdownFlags := &ShutdownFlags{}
	childFlags := &ChildFlags{}

	cmd := command{global: globalFlags}

	root := createRootCommand(globalFlags)
	root.AddCommand(
		createServeCommand(globalFlags),
		createChildCommand(cmd, childFlags),
		createRegisterCommand(cmd, registerFlags),
		createListCommand(cmd, listFlags),
		createToggleCommand(cmd, toggleFlags),
		createEnabledCommand(cmd, enabledFlags),
		createLogsCommand(cmd, logsFlags),
		createShutdownCommand(cmd, shutdownFlags),
	)
	return root
}

func createRootCommand(flags *GlobalFlags) *cobra.Command {
	root := &cobra.Command{
		Use:   "shepherd",
		Short: "Filesystem-marker process orchestrator",
		Long: `Shepherd is a lightweight orchestrator: one master discovers, launches
and supervises worker processes, toggles their behavior and aggregates
notifications, using only shared-filesystem artifacts as transport.

Examples:
  shepherd serve --config=config.toml       # Start the master daemon
  shepherd register --name=worker1 --path=/opt/bin/worker1
  shepherd toggle --name=worker1
  shepherd logs --level=error`,
	}
	root.PersistentFlags().StringVar(&flags.ConfigPath, "config", "", "path to TOML config file (optional)")
	root.PersistentFlags().StringVar(&flags.ControlDir, "control-dir", "", "control directory root for local operation")
	return root
}

func createServeCommand(globalFlags *GlobalFlags) *cobra.Command {
	serveFlags := &ServeFlags{ConfigPath: globalFlags.ConfigPath}
	cmd := &cobra.Command{
		Use:   "serve [config.toml]",
		Short: "Start the shepherd master daemon",
		Long: `Start the master daemon: ensure the control directory, launch the
registered children, and serve the control API.

Examples:
  shepherd serve --config=config.toml
  shepherd serve config.toml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if serveFlags.ConfigPath == "" {
				serveFlags.ConfigPath = globalFlags.ConfigPath
			}
			return runServeCommand(serveFlags, args)
		},
	}
	return cmd
}

func createChildCommand(c command, flags *ChildFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "child",
		Short: "Run the child polling loop",
		Long: `Run the worker-side runtime: register into the control directory, then
poll the enable flag and the shutdown marker until told to exit.

Examples:
  shepherd child --name=worker1 --control-dir=/var/lib/shepherd`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Child(*flags)
		},
	}
	cmd.Flags().StringVar(&flags.Name, "name", "", "child name (required)")
	cmd.Flags().DurationVar(&flags.ShutdownInterval, "shutdown-interval", 0, "shutdown poll interval (default 250ms)")
	cmd.Flags().DurationVar(&flags.EnabledInterval, "enabled-interval", 0, "enable-flag poll interval (default 1s)")
	if err := cmd.MarkFlagRequired("name"); err != nil {
		panic(err)
	}
	return cmd
}

func createRegisterCommand(c command, flags *RegisterFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register a child",
		Long: `Register a child by writing its descriptor into the control directory
(or via a running daemon with --api-url).

Examples:
  shepherd register --name=worker1 --path=/opt/bin/worker1 --control-dir=/var/lib/shepherd
  shepherd register --name=worker1 --path=/opt/bin/worker1 --api-url=http://localhost:8080/api`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Register(*flags)
		},
	}
	cmd.Flags().StringVar(&flags.Name, "name", "", "child name (required)")
	cmd.Flags().StringVar(&flags.Path, "path", "", "absolute executable path (required)")
	addAPIFlags(cmd, &flags.APIUrl, &flags.APITimeout)
	if err := cmd.MarkFlagRequired("name"); err != nil {
		panic(err)
	}
	if err := cmd.MarkFlagRequired("path"); err != nil {
		panic(err)
	}
	return cmd
}

func createListCommand(c command, flags *ListFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List registered children",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.List(*flags)
		},
	}
	addAPIFlags(cmd, &flags.APIUrl, &flags.APITimeout)
	return cmd
}

func createToggleCommand(c command, flags *ToggleFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "toggle",
		Short: "Toggle a child's enable flag",
		Long: `Flip (or set with --value) the enable marker for a child. The child
observes the transition within one polling interval.

Examples:
  shepherd toggle --name=worker1 --control-dir=/var/lib/shepherd
  shepherd toggle --name=worker1 --value=false --api-url=http://localhost:8080/api`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Toggle(*flags)
		},
	}
	cmd.Flags().StringVar(&flags.Name, "name", "", "child name (required)")
	cmd.Flags().StringVar(&flags.Value, "value", "", "set explicitly to true or false instead of flipping")
	addAPIFlags(cmd, &flags.APIUrl, &flags.APITimeout)
	if err := cmd.MarkFlagRequired("name"); err != nil {
		panic(err)
	}
	return cmd
}

func createEnabledCommand(c command, flags *ToggleFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "enabled",
		Short: "Show a child's enable flag",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Enabled(*flags)
		},
	}
	cmd.Flags().StringVar(&flags.Name, "name", "", "child name (required)")
	addAPIFlags(cmd, &flags.APIUrl, &flags.APITimeout)
	if err := cmd.MarkFlagRequired("name"); err != nil {
		panic(err)
	}
	return cmd
}

func createLogsCommand(c command, flags *LogsFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show notifications newest-first",
		Long: `Show notification entries. With --api-url the daemon's in-memory ring
is filtered; locally the durable notifications.txt is read.

Examples:
  shepherd logs --control-dir=/var/lib/shepherd
  shepherd logs --level=error --source=worker1`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Logs(*flags)
		},
	}
	cmd.Flags().StringVar(&flags.Level, "level", "", "filter by level (info, warning, error)")
	cmd.Flags().StringVar(&flags.Source, "source", "", "filter by source (master or child name)")
	addAPIFlags(cmd, &flags.APIUrl, &flags.APITimeout)
	return cmd
}

func createShutdownCommand(c command, flags *ShutdownFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shutdown",
		Short: "Request daemon shutdown",
		Long: `Ask the daemon to run the shutdown escalation: raise the shutdown
marker, request cooperative closes, then force-terminate stragglers.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Shutdown(*flags)
		},
	}
	addAPIFlags(cmd, &flags.APIUrl, &flags.APITimeout)
	return cmd
}

func addAPIFlags(cmd *cobra.Command, url *string, timeout *time.Duration) {
	cmd.Flags().StringVar(url, "api-url", "", "remote daemon URL (e.g. http://host:8080/api)")
	cmd.Flags().DurationVar(timeout, "api-timeout", 10*time.Second, "request timeout")
}
