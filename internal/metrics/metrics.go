// Package metrics exposes Prometheus instrumentation for the publish daemons.
//
// Metrics carry an "axis" label so one scrape target can serve every daemon
// when they share a host. Serve starts the /metrics endpoint when an address
// is configured.
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

// Batch results.
const (
	ResultOK            = "ok"
	ResultEmpty         = "empty"
	ResultWriterFailure = "writer_failure"
	ResultHookFailure   = "hook_failure"
	ResultError         = "error"
)

var (
	BatchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scorepub_batches_total",
			Help: "Total number of processed batches by outcome",
		},
		[]string{"axis", "result"},
	)

	BatchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scorepub_batch_duration_seconds",
			Help:    "Duration of batch processing in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"axis"},
	)

	RequestsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scorepub_requests_processed_total",
			Help: "Total number of queue requests marked complete",
		},
		[]string{"axis"},
	)

	RendersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scorepub_renders_total",
			Help: "Total number of render invocations",
		},
		[]string{"axis"},
	)

	PagesWritten = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scorepub_pages_written_total",
			Help: "Total number of outputs written",
		},
		[]string{"axis"},
	)

	PagesRetired = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scorepub_pages_retired_total",
			Help: "Total number of outputs removed",
		},
		[]string{"axis"},
	)

	WriterFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scorepub_writer_failures_total",
			Help: "Total number of batches aborted by a writer failure",
		},
		[]string{"axis"},
	)

	CascadesEnqueued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scorepub_cascades_enqueued_total",
			Help: "Total number of follow-on requests enqueued by target axis",
		},
		[]string{"source", "target"},
	)

	PendingRequests = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "scorepub_pending_requests",
			Help: "Pending requests seen at the last poll",
		},
		[]string{"axis"},
	)
)

// RecordBatch records the outcome and duration of one batch.
func RecordBatch(axis, result string, duration time.Duration) {
	BatchesTotal.WithLabelValues(axis, result).Inc()
	if result != ResultEmpty {
		BatchDuration.WithLabelValues(axis).Observe(duration.Seconds())
	}
}

// RecordCascades counts follow-on requests by target axis.
func RecordCascades(source string, byTarget map[string]int) {
	for target, n := range byTarget {
		CascadesEnqueued.WithLabelValues(source, target).Add(float64(n))
	}
}

// Serve exposes /metrics on addr until ctx is cancelled. An empty addr is a no-op.
func Serve(ctx context.Context, addr string) error {
	if addr == "" {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
