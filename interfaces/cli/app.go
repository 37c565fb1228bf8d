// Package cli provides the sourcequery command-line interface.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/sourcequery/infrastructure/config"
	"github.com/felixgeelhaar/sourcequery/infrastructure/logging"
)

// Version information set at build time.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// App represents the CLI application.
type App struct {
	root   *cobra.Command
	stdout io.Writer
	stderr io.Writer

	configPath string
	format     string
}

// New creates the CLI application.
func New() *App {
	app := &App{
		stdout: os.Stdout,
		stderr: os.Stderr,
	}

	app.root = &cobra.Command{
		Use:   "sourcequery",
		Short: "Answer natural-language questions against databases and APIs",
		Long: `sourcequery answers natural-language questions by introspecting a data
source it has never seen: it crawls a SQL database's schema or discovers an
HTTP API's endpoints, plans a single read-only access, executes it and
analyzes the result into a report.

The tool never writes to a source. SQL statements pass a read-only safety
gate before execution, and API calls are limited to GET.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	app.root.PersistentFlags().StringVarP(&app.configPath, "config", "c", "", "Path to configuration file")
	app.root.PersistentFlags().StringVarP(&app.format, "format", "f", "text", "Output format (text, json, markdown)")

	app.root.AddCommand(
		app.newVersionCmd(),
		app.newDBCmd(),
		app.newAPICmd(),
		app.newServeCmd(),
	)

	return app
}

// WithOutput sets custom output writers.
func (a *App) WithOutput(stdout, stderr io.Writer) *App {
	a.stdout = stdout
	a.stderr = stderr
	a.root.SetOut(stdout)
	a.root.SetErr(stderr)
	return a
}

// Execute runs the CLI application.
func (a *App) Execute(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return a.root.ExecuteContext(ctx)
}

// ExecuteWithArgs runs the CLI with specific arguments (useful for testing).
func (a *App) ExecuteWithArgs(ctx context.Context, args []string) error {
	a.root.SetArgs(args)
	return a.Execute(ctx)
}

// loadSettings loads configuration from the --config file or the
// environment, and initializes logging from it.
func (a *App) loadSettings() (config.Settings, error) {
	var (
		settings config.Settings
		err      error
	)
	if a.configPath != "" {
		settings, err = config.Load(a.configPath)
	} else {
		settings, err = config.FromEnv()
	}
	if err != nil {
		return config.Settings{}, err
	}

	logging.Init(logging.Config{
		Level:  settings.Log.Level,
		Format: settings.Log.Format,
		Output: os.Stderr,
	})
	return settings, nil
}

// newVersionCmd creates the version command.
func (a *App) newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(a.stdout, "sourcequery version %s\n", Version)
			fmt.Fprintf(a.stdout, "  Git commit: %s\n", GitCommit)
			fmt.Fprintf(a.stdout, "  Build date: %s\n", BuildDate)
		},
	}
}
