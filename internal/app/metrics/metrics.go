package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "coverage_layer",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "coverage_layer",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "coverage_layer",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	policiesPurchased = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "coverage_layer",
			Subsystem: "policies",
			Name:      "purchased_total",
			Help:      "Total number of coverage policies purchased.",
		},
	)

	premiumCollected = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "coverage_layer",
			Subsystem: "policies",
			Name:      "premium_collected_total",
			Help:      "Sum of premiums collected.",
		},
	)

	claimsPaid = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "coverage_layer",
			Subsystem: "claims",
			Name:      "paid_total",
			Help:      "Total number of claims auto-approved and paid.",
		},
	)

	payoutDisbursed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "coverage_layer",
			Subsystem: "claims",
			Name:      "payout_disbursed_total",
			Help:      "Sum of claim payouts disbursed.",
		},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		policiesPurchased,
		premiumCollected,
		claimsPaid,
		payoutDisbursed,
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps the provided handler with HTTP metrics collection.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		httpInFlight.Inc()
		defer httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		duration := time.Since(start)
		path := canonicalPath(r.URL.Path)
		method := strings.ToUpper(r.Method)

		httpRequests.WithLabelValues(method, path, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	})
}

// RecordPolicyPurchase records a completed purchase.
func RecordPolicyPurchase(premium int64) {
	policiesPurchased.Inc()
	premiumCollected.Add(float64(premium))
}

// RecordClaimPayout records a paid claim.
func RecordClaimPayout(amount int64) {
	claimsPaid.Inc()
	payoutDisbursed.Add(float64(amount))
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

// canonicalPath collapses resource ids so the label set stays bounded.
func canonicalPath(raw string) string {
	trimmed := strings.Trim(raw, "/")
	if trimmed == "" {
		return "/"
	}
	parts := strings.Split(trimmed, "/")
	if len(parts) == 1 {
		return "/" + parts[0]
	}
	switch parts[0] {
	case "policy":
		if parts[1] == "active" {
			return "/policy/active"
		}
		return "/policy/:id"
	case "claims":
		if parts[1] == "simulate" {
			return "/claims/simulate"
		}
		return "/claims/:id"
	case "notifications":
		return "/notifications/:id"
	case "history":
		return "/history/" + parts[1]
	default:
		return "/" + parts[0] + "/" + parts[1]
	}
}
