package metrics

import (
	"encoding/json"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/voicepay/scheduler/internal/health"
)

var (
	// Dispatcher metrics

	DispatchTickDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "voicepay",
		Name:      "dispatch_tick_duration_seconds",
		Help:      "Time taken for one dispatcher tick to scan and fire due schedules.",
		Buckets:   prometheus.DefBuckets,
	})

	DispatchTicksSkippedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "voicepay",
		Name:      "dispatch_ticks_skipped_total",
		Help:      "Ticks skipped because the previous tick was still firing schedules.",
	})

	FiresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "voicepay",
		Name:      "fires_total",
		Help:      "Total recurring-schedule fires attempted, by outcome.",
	}, []string{"outcome"})

	// Executor Bridge metrics

	ChainCallDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "voicepay",
		Name:      "chain_call_duration_seconds",
		Help:      "Duration of on-chain pullPayment calls.",
		Buckets:   []float64{.25, .5, 1, 2.5, 5, 10, 30, 60, 120},
	}, []string{"status"})

	// Reconciler metrics

	ReconcilerRepairsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "voicepay",
		Name:      "reconciler_repairs_total",
		Help:      "Schedule Index entries repaired by the Reconciler, by action.",
	}, []string{"action"})

	// HTTP metrics

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "voicepay",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "voicepay",
		Name:      "http_requests_total",
		Help:      "Total HTTP requests.",
	}, []string{"method", "path", "status"})
)

func Register() {
	prometheus.MustRegister(
		DispatchTickDuration,
		DispatchTicksSkippedTotal,
		FiresTotal,
		ChainCallDuration,
		ReconcilerRepairsTotal,
		HTTPRequestDuration,
		HTTPRequestsTotal,
	)
}

// NewServer serves /metrics plus /healthz and /readyz against checker,
// on its own port separate from the control-plane API.
func NewServer(addr string, checker *health.Checker) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeHealthResult(w, checker.Liveness(r.Context()))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		result := checker.Readiness(r.Context())
		w.Header().Set("Content-Type", "application/json")
		if result.Status != "up" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(result)
	})
	return &http.Server{Addr: addr, Handler: mux}
}

func writeHealthResult(w http.ResponseWriter, result health.HealthResult) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(result)
}
