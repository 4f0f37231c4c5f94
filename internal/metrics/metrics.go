// Package metrics provides Prometheus metrics for indexing and edits.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every collector. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	// Index metrics
	IndexPassesTotal *prometheus.CounterVec
	IndexDuration    prometheus.Histogram
	TasksTracked     prometheus.Gauge
	ParseErrorsTotal prometheus.Counter

	// Edit metrics
	EditsTotal        *prometheus.CounterVec
	EditAttempts      prometheus.Histogram
	RetriesTotal      *prometheus.CounterVec
	ResolverTierTotal *prometheus.CounterVec
}

// New creates the collectors on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	m := &Metrics{registry: reg}

	m.IndexPassesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "incrtask_index_passes_total",
			Help: "Total number of file index passes by result",
		},
		[]string{"result"},
	)

	m.IndexDuration = factory.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "incrtask_index_duration_seconds",
			Help:    "Duration of single file index passes in seconds",
			Buckets: []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
	)

	m.TasksTracked = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "incrtask_tasks_tracked",
			Help: "Number of incremental tasks in the index",
		},
	)

	m.ParseErrorsTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "incrtask_parse_errors_total",
			Help: "Total number of task lines that failed to parse",
		},
	)

	m.EditsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "incrtask_edits_total",
			Help: "Total number of task edits by result",
		},
		[]string{"result"},
	)

	m.EditAttempts = factory.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "incrtask_edit_attempts",
			Help:    "Attempts needed per task edit",
			Buckets: []float64{1, 2, 3, 5, 8, 11},
		},
	)

	m.RetriesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "incrtask_edit_retries_total",
			Help: "Total number of edit retries by failure kind",
		},
		[]string{"kind"},
	)

	m.ResolverTierTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "incrtask_resolver_matches_total",
			Help: "Total number of task lines located, by resolver tier",
		},
		[]string{"tier"},
	)

	return m
}

// Registry returns the registry holding the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns an HTTP handler exposing the metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordIndexPass records one file index pass.
func (m *Metrics) RecordIndexPass(result string, d time.Duration) {
	if m == nil {
		return
	}
	m.IndexPassesTotal.WithLabelValues(result).Inc()
	m.IndexDuration.Observe(d.Seconds())
}

// SetTasksTracked sets the number of indexed tasks.
func (m *Metrics) SetTasksTracked(n int) {
	if m == nil {
		return
	}
	m.TasksTracked.Set(float64(n))
}

// RecordParseError counts a task line that failed to parse.
func (m *Metrics) RecordParseError() {
	if m == nil {
		return
	}
	m.ParseErrorsTotal.Inc()
}

// RecordEdit records a finished edit and how many attempts it took.
func (m *Metrics) RecordEdit(result string, attempts int) {
	if m == nil {
		return
	}
	m.EditsTotal.WithLabelValues(result).Inc()
	m.EditAttempts.Observe(float64(attempts))
}

// RecordRetry counts a retried attempt.
func (m *Metrics) RecordRetry(kind string) {
	if m == nil {
		return
	}
	m.RetriesTotal.WithLabelValues(kind).Inc()
}

// RecordResolverTier counts which resolver tier located a task.
func (m *Metrics) RecordResolverTier(tier string) {
	if m == nil {
		return
	}
	m.ResolverTierTotal.WithLabelValues(tier).Inc()
}

// Serve exposes /metrics on addr until ctx is done.
func Serve(ctx context.Context, addr string, m *Metrics) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
