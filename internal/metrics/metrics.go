// Package metrics records run-level Prometheus metrics for a review and can
// export them in the node_exporter textfile format for CI dashboards.
package metrics

import (
	"fmt"
	"time"

	"github.com/dshills/diffgate/internal/review"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "diffgate"

// Recorder collects metrics for one process. Each Recorder owns its own
// registry so tests and repeated runs never collide on registration.
type Recorder struct {
	registry *prometheus.Registry

	calls        *prometheus.CounterVec
	callDuration prometheus.Histogram
	windows      *prometheus.CounterVec
	cache        *prometheus.CounterVec
	findings     *prometheus.GaugeVec
	segments     prometheus.Gauge
	runDuration  prometheus.Gauge
}

// New creates a Recorder with all collectors registered.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "oracle_calls_total",
			Help:      "Reviewer calls by result.",
		}, []string{"result"}),
		callDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "oracle_call_duration_seconds",
			Help:      "Latency of reviewer calls.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		windows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "windows_total",
			Help:      "Dispatch windows by result.",
		}, []string{"result"}),
		cache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_requests_total",
			Help:      "Reviewer requests answered from the response cache (hit) or sent upstream (miss).",
		}, []string{"result"}),
		findings: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "findings",
			Help:      "Findings in the last report by severity.",
		}, []string{"severity"}),
		segments: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "segments",
			Help:      "Segments produced from the last diff.",
		}),
		runDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of the last review run.",
		}),
	}
	r.registry.MustRegister(r.calls, r.callDuration, r.windows, r.cache, r.findings, r.segments, r.runDuration)
	return r
}

// ObserveCall records one reviewer call.
func (r *Recorder) ObserveCall(d time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.calls.WithLabelValues(result).Inc()
	r.callDuration.Observe(d.Seconds())
}

// ObserveWindow records one joined dispatch window.
func (r *Recorder) ObserveWindow(failed bool) {
	result := "ok"
	if failed {
		result = "failed"
	}
	r.windows.WithLabelValues(result).Inc()
}

// ObserveCache adds a run's response cache hits and misses.
func (r *Recorder) ObserveCache(hits, misses int64) {
	r.cache.WithLabelValues("hit").Add(float64(hits))
	r.cache.WithLabelValues("miss").Add(float64(misses))
}

// ObserveReport sets the report gauges from a finished run.
func (r *Recorder) ObserveReport(report *review.Report) {
	if report == nil {
		return
	}
	s := report.Summary
	r.findings.WithLabelValues(string(review.SeverityError)).Set(float64(s.Errors))
	r.findings.WithLabelValues(string(review.SeverityWarn)).Set(float64(s.Warnings))
	r.findings.WithLabelValues(string(review.SeverityInfo)).Set(float64(s.Info))
	r.segments.Set(float64(report.Dispatch.Segments))
	r.runDuration.Set(report.Metadata.DurationSeconds)
}

// Registry exposes the underlying gatherer.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// WriteTextfile writes all metrics to path in the text exposition format.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("writing metrics to %s: %w", path, err)
	}
	return nil
}
