// Package metrics holds the process-wide Prometheus collectors.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	connections = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "chat_relay_ws_connections",
		Help: "Current number of registered websocket sessions.",
	})
	activeRooms = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "chat_relay_active_rooms",
		Help: "Rooms with at least one member present.",
	})
	events = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_relay_events_total",
		Help: "Chat events handled by the dispatcher.",
	}, []string{"kind"})
	dropped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_relay_events_dropped_total",
		Help: "Chat events dropped before broadcast.",
	}, []string{"reason"})
	deliveries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_relay_deliveries_total",
		Help: "Per-recipient deliveries attempted by the fan-out.",
	}, []string{"result"})
	persistFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "chat_relay_persist_failures_total",
		Help: "Message log appends that failed.",
	})

	httpRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_relay_http_requests_total",
		Help: "Total count of HTTP requests received.",
	}, []string{"method", "route", "status"})
	httpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "chat_relay_http_request_duration_seconds",
		Help:    "Histogram of request durations.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)

func init() {
	prometheus.MustRegister(
		connections, activeRooms, events, dropped, deliveries, persistFailures,
		httpRequests, httpDuration,
	)
}

func SetConnections(n int) { connections.Set(float64(n)) }
func SetActiveRooms(n int) { activeRooms.Set(float64(n)) }

func IncEvent(kind string) { events.WithLabelValues(kind).Inc() }
func IncDropped(reason string) { dropped.WithLabelValues(reason).Inc() }

func AddDelivered(n int) { deliveries.WithLabelValues("delivered").Add(float64(n)) }
func AddFailed(n int) { deliveries.WithLabelValues("failed").Add(float64(n)) }
func AddSkipped(n int) { deliveries.WithLabelValues("skipped").Add(float64(n)) }

func IncPersistFailure() { persistFailures.Inc() }

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Instrument records request counts and latencies labelled by chi route
// pattern, so path parameters do not blow up cardinality.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		labels := []string{r.Method, route, strconv.Itoa(status)}
		httpRequests.WithLabelValues(labels...).Inc()
		httpDuration.WithLabelValues(labels...).Observe(time.Since(start).Seconds())
	})
}
