// Package metrics exposes Prometheus collectors for the session manager.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registerOnce sync.Once

	calls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gsclient",
			Subsystem: "session",
			Name:      "calls_total",
			Help:      "Calls resolved by the session manager, by terminal outcome.",
		},
		[]string{"method", "outcome"},
	)
	callDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "gsclient",
			Subsystem: "session",
			Name:      "call_duration_seconds",
			Help:      "Time from submission to terminal resolution.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "outcome"},
	)
	replays = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gsclient",
			Subsystem: "session",
			Name:      "replays_total",
			Help:      "Requests transparently replayed after a credential fault.",
		},
		[]string{"reason"},
	)
	handshakeFaults = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "gsclient",
			Subsystem: "session",
			Name:      "handshake_faults_total",
			Help:      "Handshake steps that failed and tore the session down.",
		},
	)
	transitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "gsclient",
			Subsystem: "session",
			Name:      "state_transitions_total",
			Help:      "State machine entries, by target state.",
		},
		[]string{"state"},
	)
	pending = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "gsclient",
			Subsystem: "session",
			Name:      "pending_requests",
			Help:      "Requests parked in the pending queue.",
		},
	)
)

// RegisterMetrics registers the collectors with the default registry once.
func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(calls, callDuration, replays, handshakeFaults, transitions, pending)
	})
}

// RecordCall counts one terminal resolution.
func RecordCall(method, outcome string, duration time.Duration) {
	RegisterMetrics()
	calls.WithLabelValues(method, outcome).Inc()
	callDuration.WithLabelValues(method, outcome).Observe(duration.Seconds())
}

// RecordReplay counts a transparent replay after a credential fault.
func RecordReplay(reason string) {
	RegisterMetrics()
	replays.WithLabelValues(reason).Inc()
}

// RecordHandshakeFault counts a failed handshake step.
func RecordHandshakeFault() {
	RegisterMetrics()
	handshakeFaults.Inc()
}

// RecordTransition counts an entry into state.
func RecordTransition(state string) {
	RegisterMetrics()
	transitions.WithLabelValues(state).Inc()
}

// SetPending reports the pending queue length.
func SetPending(n int) {
	RegisterMetrics()
	pending.Set(float64(n))
}

// Serve exposes /metrics on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string) error {
	RegisterMetrics()
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
