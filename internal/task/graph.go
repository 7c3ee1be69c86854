// Package task runs named build tasks in dependency order.
package task

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"git.home.luguber.info/inful/guidebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/guidebuilder/internal/logfields"
	"git.home.luguber.info/inful/guidebuilder/internal/metrics"
)

// Status is the lifecycle state of a task within one invocation.
type Status string

const (
	StatusNotRun Status = "not_run"
	StatusRun    Status = "run"
)

// Task is a unit of work in the graph.
type Task interface {
	Name() string
	Description() string
	// Dependencies returns the names of tasks that must complete first.
	Dependencies() []string
	Run(ctx context.Context) error
}

// Func adapts a function to Task.
type Func struct {
	TaskName  string
	Desc      string
	DependsOn []string
	Action    func(ctx context.Context) error
}

func (f *Func) Name() string           { return f.TaskName }
func (f *Func) Description() string    { return f.Desc }
func (f *Func) Dependencies() []string { return f.DependsOn }

func (f *Func) Run(ctx context.Context) error {
	if f.Action == nil {
		return nil
	}
	return f.Action(ctx)
}

// Outcome records one executed task.
type Outcome struct {
	Task     string
	Duration time.Duration
}

// Graph holds the tasks of one invocation. A task runs at most once per
// Graph; build a fresh Graph for every invocation.
type Graph struct {
	tasks    map[string]Task
	status   map[string]Status
	recorder metrics.Recorder
	mu       sync.Mutex
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{
		tasks:    make(map[string]Task),
		status:   make(map[string]Status),
		recorder: metrics.NoopRecorder{},
	}
}

// WithRecorder injects a metrics recorder.
func (g *Graph) WithRecorder(rec metrics.Recorder) *Graph {
	if rec != nil {
		g.recorder = rec
	}
	return g
}

// Register adds a task.
func (g *Graph) Register(t Task) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	name := t.Name()
	if name == "" {
		return errors.ValidationError("task name cannot be empty").Build()
	}
	if _, exists := g.tasks[name]; exists {
		return errors.ValidationError(fmt.Sprintf("task %s already registered", name)).
			WithContext("task", name).
			Build()
	}

	g.tasks[name] = t
	g.status[name] = StatusNotRun
	slog.Debug("Task registered", logfields.Task(name), "dependencies", t.Dependencies())
	return nil
}

// Tasks returns the registered tasks ordered by name.
func (g *Graph) Tasks() []Task {
	g.mu.Lock()
	defer g.mu.Unlock()

	out := make([]Task, 0, len(g.tasks))
	for _, t := range g.tasks {
		out = append(out, t)
	}
	slices.SortFunc(out, func(a, b Task) int { return strings.Compare(a.Name(), b.Name()) })
	return out
}

// Status returns the state of the named task.
func (g *Graph) Status(name string) Status {
	g.mu.Lock()
	defer g.mu.Unlock()
	if s, ok := g.status[name]; ok {
		return s
	}
	return StatusNotRun
}

// Plan returns the execution order for the targets: every dependency
// precedes its dependents and each task appears once. Targets are visited
// in the given order, dependencies in declaration order.
func (g *Graph) Plan(targets ...string) ([]string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.plan(targets)
}

func (g *Graph) plan(targets []string) ([]string, error) {
	visited := make(map[string]bool)
	visiting := make(map[string]bool)
	var order []string

	var visit func(name string, path []string) error
	visit = func(name string, path []string) error {
		if visiting[name] {
			cycle := strings.Join(append(path, name), " -> ")
			return errors.ValidationError("circular task dependency: " + cycle).
				WithContext("task", name).
				Build()
		}
		if visited[name] {
			return nil
		}

		t, exists := g.tasks[name]
		if !exists {
			msg := "task not found: " + name
			if len(path) > 0 {
				msg = fmt.Sprintf("task not found: %s (required by %s)", name, path[len(path)-1])
			}
			return errors.NewError(errors.CategoryNotFound, msg).
				Fatal().
				WithContext("task", name).
				Build()
		}

		visiting[name] = true
		next := append(slices.Clone(path), name)
		for _, dep := range t.Dependencies() {
			if err := visit(dep, next); err != nil {
				return err
			}
		}
		visiting[name] = false
		visited[name] = true
		order = append(order, name)
		return nil
	}

	for _, name := range targets {
		if err := visit(name, nil); err != nil {
			return nil, err
		}
	}
	return order, nil
}

// Execute runs the targets and their dependencies in order, stopping at the
// first failure. Tasks already run by this graph are skipped.
func (g *Graph) Execute(ctx context.Context, targets ...string) ([]Outcome, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	order, err := g.plan(targets)
	if err != nil {
		return nil, err
	}
	slog.Info("Executing tasks", "count", len(order), "order", order)

	outcomes := make([]Outcome, 0, len(order))
	for _, name := range order {
		if g.status[name] == StatusRun {
			g.recorder.IncTaskResult(name, metrics.ResultSkipped)
			continue
		}

		if err := ctx.Err(); err != nil {
			g.recorder.IncTaskResult(name, metrics.ResultCanceled)
			return outcomes, errors.WrapError(err, errors.CategoryRuntime, "task canceled").
				Fatal().
				WithContext("task", name).
				Build()
		}

		slog.Debug("Running task", logfields.Task(name))
		t0 := time.Now()
		runErr := g.tasks[name].Run(ctx)
		dur := time.Since(t0)
		g.recorder.ObserveTaskDuration(name, dur)

		if runErr != nil {
			g.recorder.IncTaskResult(name, metrics.ResultFailed)
			slog.Error("Task failed", logfields.Task(name), logfields.DurationMS(float64(dur.Milliseconds())), logfields.Error(runErr))
			return outcomes, taskError(name, runErr)
		}

		g.status[name] = StatusRun
		g.recorder.IncTaskResult(name, metrics.ResultSuccess)
		outcomes = append(outcomes, Outcome{Task: name, Duration: dur})
		slog.Info("Task completed", logfields.Task(name), logfields.DurationMS(float64(dur.Milliseconds())))
	}
	return outcomes, nil
}

// taskError keeps classified errors intact so their exit codes survive, and
// classifies anything else as a build failure.
func taskError(name string, err error) error {
	if ce, ok := errors.AsClassified(err); ok {
		if _, has := ce.Context().Get("task"); has {
			return ce
		}
		return ce.WithContext("task", name)
	}
	return errors.BuildError(fmt.Sprintf("task %s failed", name)).
		WithCause(err).
		WithContext("task", name).
		Build()
}
