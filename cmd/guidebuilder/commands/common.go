package commands

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/guidebuilder/internal/config"
	"git.home.luguber.info/inful/guidebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/guidebuilder/internal/logfields"
	"git.home.luguber.info/inful/guidebuilder/internal/metrics"
)

// LogLevelEnv overrides the log level chosen by --verbose.
const LogLevelEnv = "GUIDEBUILDER_LOG_LEVEL"

// Global is shared with every command.
type Global struct {
	Out io.Writer // user-facing output; logs go to stderr
}

// NewGlobal returns the Global bound to kong's Run.
func NewGlobal() *Global {
	return &Global{Out: os.Stdout}
}

// runID identifies this invocation in logs.
var runID = uuid.NewString()

// CLI definition & global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"guidebuilder.yaml" type:"path"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Build      BuildCmd      `cmd:"" help:"Run guide tasks and their dependencies (default: test, asciidoctor)"`
	Preprocess PreprocessCmd `cmd:"" help:"Resolve the plugin version and copy the samples with tokens replaced"`
	Resolve    ResolveCmd    `cmd:"" help:"Print the latest published plugin version"`
	Versions   VersionsCmd   `cmd:"" help:"List every published plugin version"`
	Tasks      TasksCmd      `cmd:"" help:"List the available tasks"`
	Init       InitCmd       `cmd:"" help:"Initialize a new configuration file"`
	Watch      WatchCmd      `cmd:"" help:"Re-run sample preprocessing whenever the samples change"`
}

// AfterApply runs after flag parsing; setup logging once.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	slog.SetDefault(newLogger(os.Stderr, c.Verbose, os.Getenv(LogLevelEnv)))
	return nil
}

func newLogger(w io.Writer, verbose bool, override string) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	if override != "" {
		var l slog.Level
		if err := l.UnmarshalText([]byte(strings.ToUpper(override))); err == nil {
			level = l
		}
	}
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(handler).With(logfields.RunID(runID))
}

// signalContext is canceled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// loadConfig loads the configuration file. Commands that can run without
// one (resolve, versions, tasks) pass optional=true to fall back to
// defaults when the default file is absent.
func loadConfig(root *CLI, optional bool) (*config.Config, error) {
	cfg, err := config.Load(root.Config)
	if err == nil {
		return cfg, nil
	}
	if optional {
		if _, statErr := os.Stat(root.Config); os.IsNotExist(statErr) {
			slog.Debug("No configuration file, using defaults", logfields.Path(root.Config))
			return config.Parse(nil)
		}
	}
	return nil, err
}

// withMetrics runs fn with a Prometheus recorder when metrics.textfile is
// configured and writes the textfile afterwards, also after failures.
func withMetrics(cfg *config.Config, fn func(metrics.Recorder) error) error {
	if cfg.Metrics.Textfile == "" {
		return fn(metrics.NoopRecorder{})
	}
	rec := metrics.NewPrometheusRecorder(prometheus.NewRegistry())
	runErr := fn(rec)
	if err := rec.WriteTextfile(cfg.Metrics.Textfile); err != nil {
		if runErr != nil {
			slog.Warn("Failed to write metrics", logfields.Path(cfg.Metrics.Textfile), logfields.Error(err))
			return runErr
		}
		return errors.WrapError(err, errors.CategoryFileSystem, "failed to write metrics textfile").
			Fatal().
			WithContext("path", cfg.Metrics.Textfile).
			Build()
	}
	slog.Debug("Metrics written", logfields.Path(cfg.Metrics.Textfile))
	return runErr
}
