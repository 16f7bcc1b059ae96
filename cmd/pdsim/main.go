// Command pdsim runs iterated prisoner's dilemma Monte Carlo experiments.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/pkg/profile"
	"github.com/spf13/cobra"

	"github.com/talgya/dilemma-sim/internal/config"
	"github.com/talgya/dilemma-sim/internal/engine"
	"github.com/talgya/dilemma-sim/internal/logging"
	"github.com/talgya/dilemma-sim/internal/strategy"
)

var version = "0.1.0-dev"

// app carries the process-wide state set up by the root command.
type app struct {
	logLevel   string
	tracePath  string
	profileDir string

	logger      *slog.Logger
	tracer      *logging.Tracer
	stopProfile func()
	registry    *strategy.Registry
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{registry: strategy.Default()}

	rootCmd := &cobra.Command{
		Use:   "pdsim",
		Short: "Prisoner's dilemma Monte Carlo simulator",
		Long: `pdsim plays a population of strategy agents against each other in
randomly paired prisoner's dilemma rounds, with reputation, a cooperation
network and bankruptcy, and aggregates survival and wealth over many
independent trials.`,
		Version:           version,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level: info, debug, trace (default info, or PDSIM_LOG_LEVEL)")
	rootCmd.PersistentFlags().StringVar(&a.tracePath, "trace", "", "Append every interaction to this JSONL file")
	rootCmd.PersistentFlags().StringVar(&a.profileDir, "profile", "", "Write a CPU profile into this directory")

	rootCmd.AddCommand(
		newRunCmd(a),
		newExperimentCmd(a),
		newValidateCmd(a),
		newPresetsCmd(),
		newRunsCmd(),
		newServeCmd(a),
	)
	a.wrapTeardown(rootCmd)
	return rootCmd
}

// setup loads .env, installs the logger and starts the tracer and profiler.
func (a *app) setup(cmd *cobra.Command, args []string) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading .env: %w", err)
	}

	level := a.logLevel
	if level == "" {
		level = os.Getenv("PDSIM_LOG_LEVEL")
	}
	a.logger = logging.NewLogger(level, cmd.ErrOrStderr())
	slog.SetDefault(a.logger)

	if a.tracePath != "" {
		tracer, err := logging.OpenTracer(a.tracePath)
		if err != nil {
			return err
		}
		a.tracer = tracer
		a.logger.Info("tracing interactions", "path", a.tracePath)
	}

	if a.profileDir != "" {
		a.stopProfile = profile.Start(
			profile.CPUProfile,
			profile.ProfilePath(a.profileDir),
			profile.NoShutdownHook,
			profile.Quiet,
		).Stop
		a.logger.Info("cpu profiling", "dir", a.profileDir)
	}
	return nil
}

// teardown flushes the profile and closes the tracer. It may run more than once.
func (a *app) teardown() error {
	if a.stopProfile != nil {
		a.stopProfile()
		a.stopProfile = nil
	}
	return a.tracer.Close()
}

// wrapTeardown defers teardown inside every RunE in the tree. Cobra skips
// post-run hooks when RunE returns an error.
func (a *app) wrapTeardown(cmd *cobra.Command) {
	for _, sub := range cmd.Commands() {
		a.wrapTeardown(sub)
	}
	run := cmd.RunE
	if run == nil {
		return
	}
	cmd.RunE = func(cmd *cobra.Command, args []string) (err error) {
		defer func() {
			err = errors.Join(err, a.teardown())
		}()
		return run(cmd, args)
	}
}

// applyConfigLogging lets a configuration file choose the log level when
// neither --log-level nor PDSIM_LOG_LEVEL did. At trace level without
// --trace, interactions are written to stderr.
func (a *app) applyConfigLogging(cmd *cobra.Command, cfg config.Config) {
	if a.logLevel == "" && os.Getenv("PDSIM_LOG_LEVEL") == "" && cfg.Logging.Level != "" {
		a.logger = logging.NewLogger(cfg.Logging.Level, cmd.ErrOrStderr())
		slog.SetDefault(a.logger)
	}
	if a.tracer == nil && a.logger.Enabled(cmd.Context(), logging.LevelTrace) {
		a.tracer = logging.NewTracer(cmd.ErrOrStderr())
	}
}

// orchestrator builds a Monte Carlo orchestrator wired to the global logger
// and tracer.
func (a *app) orchestrator(workers int) *engine.Orchestrator {
	return &engine.Orchestrator{
		Registry: a.registry,
		Workers:  workers,
		Logger:   a.logger,
		Tracer:   a.tracer,
	}
}
