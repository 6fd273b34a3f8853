// Package metrics provides Prometheus instrumentation for the game engine.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// PhasesExecuted counts phase handler runs, partitioned by phase.
	PhasesExecuted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "factoria_phases_executed_total",
		Help: "Total number of phase handlers executed",
	}, []string{"phase"})

	// PhaseDuration tracks phase handler execution time.
	PhaseDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "factoria_phase_duration_seconds",
		Help:    "Phase handler execution time in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"phase"})

	// MonthsCompleted counts fully finalized month runs.
	MonthsCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "factoria_months_completed_total",
		Help: "Total number of completed simulation months",
	})

	// ActiveSessions tracks the number of live sessions in the lobby.
	ActiveSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "factoria_active_sessions",
		Help: "Number of currently active game sessions",
	})

	// WebSocketClients tracks connected WebSocket clients.
	WebSocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "factoria_websocket_clients",
		Help: "Number of connected WebSocket clients",
	})

	// AuctionVolume tracks cumulative allocated units per market side.
	AuctionVolume = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "factoria_auction_volume_total",
		Help: "Cumulative auctioned units allocated",
	}, []string{"side"})

	// CompaniesRemoved counts companies removed for insolvency.
	CompaniesRemoved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "factoria_companies_removed_total",
		Help: "Companies removed from play after failing to cover debts",
	})

	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "factoria_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration tracks request duration by method and path.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "factoria_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	}, []string{"method", "path"})
)

// WSClientConnected records a new websocket connection.
func WSClientConnected() {
	WebSocketClients.Inc()
}

// WSClientDisconnected records a closed websocket connection.
func WSClientDisconnected() {
	WebSocketClients.Dec()
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware returns an HTTP middleware that records request metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: 200}
		next.ServeHTTP(wrapped, r)
		duration := time.Since(start).Seconds()

		// Use the route pattern for path label to avoid high cardinality.
		path := r.URL.Path
		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
