// Package metrics provides build metrics for guidebuilder tasks.
//
// Components receive a Recorder through dependency injection. NoopRecorder is
// the default and does nothing; PrometheusRecorder registers counters and
// histograms in a registry that can be dumped to a node-exporter textfile at
// the end of a run:
//
//	reg := prometheus.NewRegistry()
//	rec := metrics.NewPrometheusRecorder(reg)
//	graph := task.NewGraph().WithRecorder(rec)
//	...
//	_ = rec.WriteTextfile("build/metrics/guidebuilder.prom")
package metrics
