// Package metrics publishes run telemetry as Prometheus metrics.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/danielpatrickdp/golden-gate/internal/apperr"
	"github.com/danielpatrickdp/golden-gate/internal/runner"
)

const namespace = "goldengate"

// Recorder collects generation-call, case and snapshot metrics on its own
// registry. It implements runner.Observer and is safe for concurrent use.
type Recorder struct {
	registry *prometheus.Registry

	calls        *prometheus.CounterVec
	callDuration prometheus.Histogram
	cases        *prometheus.CounterVec

	passRate     prometheus.Gauge
	newFailRatio prometheus.Gauge
	flakyRate    prometheus.Gauge
	threshold    prometheus.Gauge
	lastRun      prometheus.Gauge
}

var _ runner.Observer = (*Recorder)(nil)

// NewRecorder creates a recorder with every metric registered.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backend",
			Name:      "calls_total",
			Help:      "Generation attempts by outcome.",
		}, []string{"outcome"}),
		callDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "backend",
			Name:      "call_duration_seconds",
			Help:      "Latency of generation attempts.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		cases: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "run",
			Name:      "cases_total",
			Help:      "Scored golden cases by result.",
		}, []string{"result"}),
		passRate:     newGauge("weighted_pass_rate", "Weighted pass rate of the last run, percent."),
		newFailRatio: newGauge("new_fail_ratio", "New failures over all failures in the last run, percent."),
		flakyRate:    newGauge("flaky_rate", "Flaky cases in the last run, percent."),
		threshold:    newGauge("threshold", "Acceptance threshold used by the last run."),
		lastRun:      newGauge("last_run_timestamp_seconds", "Unix time of the last committed run."),
	}
	r.registry.MustRegister(
		r.calls, r.callDuration, r.cases,
		r.passRate, r.newFailRatio, r.flakyRate, r.threshold, r.lastRun,
	)
	return r
}

func newGauge(name, help string) prometheus.Gauge {
	return prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "run",
		Name:      name,
		Help:      help,
	})
}

// Registry exposes the underlying registry for gathering.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// ObserveCall records one generation attempt.
func (r *Recorder) ObserveCall(elapsed time.Duration, err error) {
	r.calls.WithLabelValues(callOutcome(err)).Inc()
	r.callDuration.Observe(elapsed.Seconds())
}

// ObserveCase records one scored case.
func (r *Recorder) ObserveCase(res runner.CaseResult) {
	result := "failed"
	if res.Passed {
		result = "passed"
	}
	r.cases.WithLabelValues(result).Inc()
	if res.IsFlaky {
		r.cases.WithLabelValues("flaky").Inc()
	}
	if res.IsNewFailure {
		r.cases.WithLabelValues("new_failure").Inc()
	}
}

// ObserveSnapshot sets the run gauges from a committed snapshot.
func (r *Recorder) ObserveSnapshot(s runner.RunSnapshot) {
	r.passRate.Set(s.WeightedPassRate)
	r.newFailRatio.Set(s.NewFailRatio)
	r.flakyRate.Set(s.FlakyRate)
	r.threshold.Set(s.Threshold)
	r.lastRun.Set(float64(s.Timestamp.Unix()))
}

// WriteTextfile writes every metric in the node-exporter textfile format.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

func callOutcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case apperr.IsTransient(err):
		return "transient"
	default:
		return "error"
	}
}
