// Package guide wires the guide build tasks: version resolution, sample
// preprocessing and the documentation and test commands that consume the
// processed samples.
package guide

import (
	"context"
	"log/slog"
	"net/http"
	"path/filepath"
	"slices"

	"git.home.luguber.info/inful/guidebuilder/internal/config"
	"git.home.luguber.info/inful/guidebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/guidebuilder/internal/logfields"
	"git.home.luguber.info/inful/guidebuilder/internal/metadata"
	"git.home.luguber.info/inful/guidebuilder/internal/metrics"
	"git.home.luguber.info/inful/guidebuilder/internal/samples"
	"git.home.luguber.info/inful/guidebuilder/internal/task"
)

// Task names.
const (
	TaskResolve    = "resolveScanPluginVersion"
	TaskPreprocess = "preProcessSamples"
	TaskDocs       = "asciidoctor"
	TaskTest       = "test"
)

// DefaultTargets are run by `build` without arguments.
var DefaultTargets = []string{TaskTest, TaskDocs}

// Attribute and system property carrying the processed sample location.
const (
	samplesCodeDirAttribute = "samplescodedir"
	samplesDirProperty      = "samplesDir"
)

// Builder runs guide tasks for one configuration.
type Builder struct {
	cfg      *config.Config
	runner   CommandRunner
	recorder metrics.Recorder
	client   *http.Client

	// State of the current invocation.
	version string
	result  *samples.Result
}

// New creates a builder executing external commands with an ExecRunner.
func New(cfg *config.Config) *Builder {
	return &Builder{
		cfg:      cfg,
		runner:   &ExecRunner{},
		recorder: metrics.NoopRecorder{},
		client:   &http.Client{Timeout: cfg.Plugin.TimeoutDuration()},
	}
}

// WithRunner replaces the command runner.
func (b *Builder) WithRunner(r CommandRunner) *Builder {
	if r != nil {
		b.runner = r
	}
	return b
}

// WithRecorder injects a metrics recorder.
func (b *Builder) WithRecorder(rec metrics.Recorder) *Builder {
	if rec != nil {
		b.recorder = rec
	}
	return b
}

// WithHTTPClient replaces the client used for version resolution.
func (b *Builder) WithHTTPClient(c *http.Client) *Builder {
	if c != nil {
		b.client = c
	}
	return b
}

// Version returns the plugin version resolved by the last invocation.
func (b *Builder) Version() string { return b.version }

// SamplesResult returns the preprocessing summary of the last invocation.
func (b *Builder) SamplesResult() *samples.Result { return b.result }

// Resolver returns the metadata resolver used by the resolve task.
func (b *Builder) Resolver() *metadata.Resolver {
	return metadata.NewResolver(b.cfg.Plugin.MetadataURL).
		WithHTTPClient(b.client).
		WithRecorder(b.recorder)
}

// Graph builds a fresh task graph. Every task starts NotRun.
func (b *Builder) Graph() (*task.Graph, error) {
	g := task.NewGraph().WithRecorder(b.recorder)
	tasks := []task.Task{
		&task.Func{
			TaskName: TaskResolve,
			Desc:     "Resolves the latest build scan plugin version from " + b.cfg.Plugin.MetadataURL,
			Action:   b.resolve,
		},
		&task.Func{
			TaskName:  TaskPreprocess,
			Desc:      "Copies the samples into " + b.cfg.Samples.Output + " with tokens replaced",
			DependsOn: []string{TaskResolve},
			Action:    b.preprocess,
		},
		&task.Func{
			TaskName:  TaskDocs,
			Desc:      "Runs the documentation command against the processed samples",
			DependsOn: []string{TaskPreprocess},
			Action:    b.docs,
		},
		&task.Func{
			TaskName:  TaskTest,
			Desc:      "Runs the test command against the processed samples",
			DependsOn: []string{TaskPreprocess},
			Action:    b.test,
		},
	}
	for _, t := range tasks {
		if err := g.Register(t); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// Run executes targets (DefaultTargets when empty) on a fresh graph.
func (b *Builder) Run(ctx context.Context, targets ...string) ([]task.Outcome, error) {
	if len(targets) == 0 {
		targets = DefaultTargets
	}
	b.version = ""
	b.result = nil

	g, err := b.Graph()
	if err != nil {
		return nil, err
	}
	return g.Execute(ctx, targets...)
}

func (b *Builder) resolve(ctx context.Context) error {
	v, err := b.Resolver().Resolve(ctx)
	if err != nil {
		return err
	}
	b.version = v
	return nil
}

func (b *Builder) preprocess(ctx context.Context) error {
	if b.version == "" {
		return errors.InternalError("plugin version has not been resolved").Build()
	}
	res, err := samples.New(b.cfg.Samples.Source, b.cfg.Samples.Output, b.cfg.Tokens(b.version)).
		WithOptions(b.cfg.PreprocessOptions()).
		WithRecorder(b.recorder).
		Run(ctx)
	if err != nil {
		return err
	}
	b.result = res
	return nil
}

func (b *Builder) docs(ctx context.Context) error {
	if len(b.cfg.Docs.Command) == 0 {
		slog.Info("No documentation command configured, skipping", logfields.Task(TaskDocs))
		return nil
	}
	argv, err := b.DocsCommand()
	if err != nil {
		return err
	}
	return b.runner.Run(ctx, b.cfg.Docs.Dir, argv)
}

func (b *Builder) test(ctx context.Context) error {
	if len(b.cfg.Test.Command) == 0 {
		slog.Info("No test command configured, skipping", logfields.Task(TaskTest))
		return nil
	}
	argv, err := b.TestCommand()
	if err != nil {
		return err
	}
	return b.runner.Run(ctx, b.cfg.Test.Dir, argv)
}

// DocsCommand returns the documentation command with `-a key=value`
// attributes appended; samplescodedir always points at <output>/code.
func (b *Builder) DocsCommand() ([]string, error) {
	out, err := absOutput(b.cfg.Samples.Output)
	if err != nil {
		return nil, err
	}
	attrs := make(map[string]string, len(b.cfg.Docs.Attributes)+1)
	for k, v := range b.cfg.Docs.Attributes {
		attrs[k] = v
	}
	attrs[samplesCodeDirAttribute] = filepath.Join(out, "code")
	return withPairs(b.cfg.Docs.Command, attrs, func(kv string) []string { return []string{"-a", kv} }), nil
}

// TestCommand returns the test command with `-Dkey=value` system properties
// appended; samplesDir always points at the processed sample output.
func (b *Builder) TestCommand() ([]string, error) {
	out, err := absOutput(b.cfg.Samples.Output)
	if err != nil {
		return nil, err
	}
	props := make(map[string]string, len(b.cfg.Test.SystemProperties)+1)
	for k, v := range b.cfg.Test.SystemProperties {
		props[k] = v
	}
	props[samplesDirProperty] = out
	return withPairs(b.cfg.Test.Command, props, func(kv string) []string { return []string{"-D" + kv} }), nil
}

// withPairs appends one argument group per pair, in key order.
func withPairs(base []string, pairs map[string]string, arg func(kv string) []string) []string {
	keys := make([]string, 0, len(pairs))
	for k := range pairs {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	argv := slices.Clone(base)
	for _, k := range keys {
		argv = append(argv, arg(k+"="+pairs[k])...)
	}
	return argv
}

func absOutput(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", errors.WrapError(err, errors.CategoryFileSystem, "cannot resolve sample output path").
			Fatal().
			WithContext("path", p).
			Build()
	}
	return abs, nil
}
