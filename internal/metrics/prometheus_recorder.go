package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	reg             *prom.Registry
	taskDuration    *prom.HistogramVec
	taskResults     *prom.CounterVec
	resolveDuration *prom.HistogramVec
	filesCopied     prom.Counter
	substitutions   prom.Counter
}

// NewPrometheusRecorder constructs the metrics and registers them in reg.
// A nil registry gets a fresh one.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{reg: reg}
	pr.taskDuration = prom.NewHistogramVec(prom.HistogramOpts{
		Namespace: "guidebuilder",
		Name:      "task_duration_seconds",
		Help:      "Duration of individual build tasks",
		Buckets:   prom.DefBuckets,
	}, []string{"task"})
	pr.taskResults = prom.NewCounterVec(prom.CounterOpts{
		Namespace: "guidebuilder",
		Name:      "task_results_total",
		Help:      "Task result counts by outcome",
	}, []string{"task", "result"})
	pr.resolveDuration = prom.NewHistogramVec(prom.HistogramOpts{
		Namespace: "guidebuilder",
		Name:      "version_resolve_duration_seconds",
		Help:      "Duration of plugin metadata fetch and parse",
		Buckets:   prom.DefBuckets,
	}, []string{"result"})
	pr.filesCopied = prom.NewCounter(prom.CounterOpts{
		Namespace: "guidebuilder",
		Name:      "sample_files_copied_total",
		Help:      "Sample files written to the output tree",
	})
	pr.substitutions = prom.NewCounter(prom.CounterOpts{
		Namespace: "guidebuilder",
		Name:      "token_substitutions_total",
		Help:      "Token occurrences replaced while copying samples",
	})
	reg.MustRegister(pr.taskDuration, pr.taskResults, pr.resolveDuration, pr.filesCopied, pr.substitutions)
	return pr
}

func (p *PrometheusRecorder) ObserveTaskDuration(task string, d time.Duration) {
	if p == nil {
		return
	}
	p.taskDuration.WithLabelValues(task).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncTaskResult(task string, result ResultLabel) {
	if p == nil {
		return
	}
	p.taskResults.WithLabelValues(task, string(result)).Inc()
}

func (p *PrometheusRecorder) ObserveResolveDuration(d time.Duration, success bool) {
	if p == nil {
		return
	}
	res := "failed"
	if success {
		res = "success"
	}
	p.resolveDuration.WithLabelValues(res).Observe(d.Seconds())
}

func (p *PrometheusRecorder) AddFilesCopied(n int) {
	if p == nil || n <= 0 {
		return
	}
	p.filesCopied.Add(float64(n))
}

func (p *PrometheusRecorder) AddSubstitutions(n int) {
	if p == nil || n <= 0 {
		return
	}
	p.substitutions.Add(float64(n))
}

// WriteTextfile writes the registry in the text exposition format to path,
// creating the parent directory when missing.
func (p *PrometheusRecorder) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create metrics directory: %w", err)
	}
	if err := prom.WriteToTextfile(path, p.reg); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
