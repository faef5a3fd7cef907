// Package metrics defines Prometheus metrics for the viewer.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	SnapshotsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "msv_snapshots_total",
			Help: "Snapshots received by outcome",
		},
		[]string{"outcome"},
	)

	TicksSkipped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "msv_ticks_skipped_total",
			Help: "Poll ticks dropped because the in-flight cap was reached",
		},
	)

	RequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "msv_requests_in_flight",
			Help: "Snapshot requests currently outstanding",
		},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "msv_backend_request_duration_seconds",
			Help:    "Backend request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	RendersDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "msv_renders_dropped_total",
			Help: "Render requests dropped because a render was active",
		},
	)

	TransportErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "msv_transport_errors_total",
			Help: "Failed snapshot requests",
		},
	)

	CurrentRound = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "msv_current_round",
			Help: "Most recently accepted simulation round",
		},
	)
)

// Snapshot outcomes.
const (
	OutcomeAccepted  = "accepted"
	OutcomeStale     = "stale"
	OutcomeMalformed = "malformed"
)

func init() {
	prometheus.MustRegister(
		SnapshotsTotal, TicksSkipped, RequestsInFlight,
		RequestDuration, RendersDropped, TransportErrors,
		CurrentRound,
	)
}

// Serve exposes /metrics on addr until ctx is done.
func Serve(ctx context.Context, addr string, log *slog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx) //nolint:errcheck // best effort on exit.
	}()

	log.Info("serving metrics", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
