// Package metrics provides Prometheus instrumentation for the entity
// ledger.
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
	// MessagesTotal counts inbound messages folded into the ledger,
	// partitioned by kind (order, order_fail, my_trade, trade, news).
	MessagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_messages_total",
		Help: "Total inbound messages processed",
	}, []string{"kind"})

	// EntitiesCreated counts first observations per entity kind.
	EntitiesCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_entities_created_total",
		Help: "Total entities created on first observation",
	}, []string{"kind"})

	// ProcessLatency tracks message fold latency by kind.
	ProcessLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ledger_process_latency_seconds",
		Help:    "Message processing latency in seconds",
		Buckets: []float64{0.000005, 0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005},
	}, []string{"kind"})

	// ResolutionMisses counts messages whose target entity could not be
	// resolved and was dropped.
	ResolutionMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_resolution_misses_total",
		Help: "Messages dropped because no target entity resolved",
	}, []string{"kind"})

	// RetainedOrders tracks the order retention window size.
	RetainedOrders = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ledger_retained_orders",
		Help: "Orders currently retained",
	})

	// RetainedTrades tracks the trade retention window size.
	RetainedTrades = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ledger_retained_trades",
		Help: "Trades currently retained",
	})

	// WebSocketClients tracks connected event stream clients.
	WebSocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ledger_websocket_clients",
		Help: "Number of connected WebSocket clients",
	})

	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration tracks request duration by method and path.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ledger_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	}, []string{"method", "path"})
)

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

		// Use the raw path for the label; the route surface is small.
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
