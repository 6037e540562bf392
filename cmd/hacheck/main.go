// Hacheck checks a Home Assistant configuration for references to
// entities, devices and areas that do not exist.
//
// Registries are read from the configuration's .storage directory, or
// fetched from a running Home Assistant over its WebSocket API when the
// config file enables it. Configuration is loaded from a single YAML
// file discovered automatically (see [config.DefaultSearchPaths]).
//
// Usage:
//
//	hacheck check [dir]            Validate every YAML file in dir
//	hacheck automations <file|->   Validate one automations document
//	hacheck entities [dir]         Summarize registered entities by domain
//	hacheck init [dir]             Write an example hacheck.yaml
//	hacheck version                Print version and build information
//	hacheck -o json check          Output results as JSON
//
// The exit status is 1 when any error was found; warnings never change
// it.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nugget/hacheck/internal/config"
	"github.com/nugget/hacheck/internal/homeassistant"
	"github.com/nugget/hacheck/internal/registry"
	"github.com/nugget/hacheck/internal/report"
)

// errFindings is returned by commands that completed but recorded
// validation errors. The report has already been printed.
var errFindings = errors.New("invalid references found")

// main is intentionally minimal. It constructs the OS-level environment
// (context, stdio, argv) and delegates immediately to [run].
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := run(ctx, os.Stdout, os.Stderr, os.Args[1:])
	stop()
	if err != nil {
		if !errors.Is(err, errFindings) {
			fmt.Fprintf(os.Stderr, "%s\n", err)
		}
		os.Exit(1)
	}
}

// run is the real entry point for the hacheck command. Output goes to
// stdout, logs and error text to stderr. Each call builds its own
// command tree, so run has no global state and can be driven from tests.
func run(ctx context.Context, stdout io.Writer, stderr io.Writer, args []string) error {
	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

// app carries state resolved by the root command's persistent flags.
type app struct {
	stdout io.Writer
	stderr io.Writer

	configPath string
	outputFlag string
	levelFlag  string

	cfg    *config.Config
	format report.Format
	logger *slog.Logger
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{stdout: stdout, stderr: stderr}

	root := &cobra.Command{
		Use:           "hacheck",
		Short:         "Check Home Assistant configuration references",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	flags := root.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "", "path to config file (default: auto-discover)")
	flags.StringVarP(&a.outputFlag, "output", "o", "", "output format: text, json, markdown, html")
	flags.StringVar(&a.levelFlag, "log-level", "", "log level: trace, debug, info, warn, error")

	root.AddCommand(
		a.checkCmd(),
		a.automationsCmd(),
		a.entitiesCmd(),
		a.initCmd(),
		a.versionCmd(),
	)
	return root
}

// setup loads the config file, applies flag overrides and builds the
// logger. A missing config file is not an error; defaults apply.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := loadConfig(a.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg

	output := cfg.Output
	if a.outputFlag != "" {
		output = a.outputFlag
	}
	if a.format, err = report.ParseFormat(output); err != nil {
		return err
	}

	levelName := cfg.LogLevel
	if a.levelFlag != "" {
		levelName = a.levelFlag
	}
	level, err := config.ParseLogLevel(levelName)
	if err != nil {
		return err
	}
	a.logger = config.NewLogger(a.stderr, level, a.cfg.LogFormat)
	a.logger.Debug("starting", "command", cmd.Name(), "config", a.configPath)
	return nil
}

// loadConfig finds and loads the config file, or returns defaults when
// none exists on the search path.
func loadConfig(explicit string) (*config.Config, error) {
	path, err := config.FindConfig(explicit)
	if errors.Is(err, config.ErrNoConfig) {
		return config.Default(), nil
	}
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// liveProvider connects to Home Assistant when the config asks for a
// live registry. The returned close function is never nil. A failed
// connection still yields a provider, so the failure surfaces as the
// usual fallback warning instead of aborting the run.
func (a *app) liveProvider(ctx context.Context) (registry.Provider, func()) {
	ha := a.cfg.HomeAssistant
	if !ha.LiveRegistry {
		return nil, func() {}
	}

	client := homeassistant.NewWSClient(ha.URL, ha.Token, a.logger)
	if err := client.Connect(ctx); err != nil {
		a.logger.Warn("home assistant connection failed", "url", ha.URL, "error", err)
		return unavailable{err: err}, func() {}
	}
	return registry.NewLiveProvider(client), func() { _ = client.Close() }
}

// unavailable is a Provider whose every call fails with err.
type unavailable struct{ err error }

func (u unavailable) Entities(context.Context) ([]registry.Entity, error) { return nil, u.err }
func (u unavailable) Devices(context.Context) ([]registry.Device, error)  { return nil, u.err }
func (u unavailable) Areas(context.Context) ([]registry.Area, error)      { return nil, u.err }
