package observability

import (
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/mcoot/clickergame/internal/model"
)

const namespace = "clicker"

// Metrics holds the Prometheus collectors for the server.
// All methods are safe to call on a nil *Metrics.
type Metrics struct {
	RequestsTotal    *prometheus.CounterVec
	RequestsDuration *prometheus.HistogramVec
	InFlight         *prometheus.GaugeVec

	// DB
	DbQueryDuration *prometheus.HistogramVec
	DbErrorsTotal   *prometheus.CounterVec

	// Live
	LiveConnections   prometheus.Gauge
	LiveEventsSent    *prometheus.CounterVec
	LiveEventsDropped *prometheus.CounterVec
	ClicksTotal       *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total HTTP requests processed",
			},
			[]string{"method", "route", "status"},
		),
		RequestsDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency distributions.",
				Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
			[]string{"method", "route", "status"},
		),
		InFlight: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "http_in_flight_requests",
				Help:      "Current number of in-flight HTTP requests.",
			},
			[]string{"method", "route"},
		),
		DbQueryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "db",
				Name:      "query_duration_seconds",
				Help:      "DB operation latency (logical op, not raw SQL)",
				Buckets:   []float64{0.005, 0.01, 0.02, 0.05, 0.1, 0.2, 0.35, 0.5, 1, 2, 5},
			},
			[]string{"op", "status"},
		),
		DbErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "db",
				Name:      "errors_total",
				Help:      "DB errors by logical op and class.",
			},
			[]string{"op", "class"},
		),
		LiveConnections: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "live",
				Name:      "connections",
				Help:      "Currently open live connections.",
			},
		),
		LiveEventsSent: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "live",
				Name:      "events_sent_total",
				Help:      "Live events queued for delivery, by event type.",
			},
			[]string{"event"},
		),
		LiveEventsDropped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "live",
				Name:      "events_dropped_total",
				Help:      "Live events dropped because a client buffer was full.",
			},
			[]string{"event"},
		),
		ClicksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "clicks_total",
				Help:      "Click events by result.",
			},
			[]string{"result"}, // result=ok|rejected|error
		),
	}
	reg.MustRegister(
		m.RequestsTotal, m.RequestsDuration, m.InFlight,
		m.DbQueryDuration, m.DbErrorsTotal,
		m.LiveConnections, m.LiveEventsSent, m.LiveEventsDropped, m.ClicksTotal,
	)

	return m
}

// ObserveHTTP records a completed request
func (m *Metrics) ObserveHTTP(method, route, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(method, route, status).Inc()
	m.RequestsDuration.WithLabelValues(method, route, status).Observe(d.Seconds())
}

// TrackInFlight increments the in-flight gauge and returns the matching decrement
func (m *Metrics) TrackInFlight(method, route string) func() {
	if m == nil {
		return func() {}
	}
	g := m.InFlight.WithLabelValues(method, route)
	g.Inc()
	return g.Dec
}

// ObserveDB times fn as logical operation op
func (m *Metrics) ObserveDB(op string, fn func() error) error {
	if m == nil {
		return fn()
	}
	start := time.Now()
	err := fn()

	status := "ok"
	if err != nil {
		class := classifyDBErr(err)
		// Domain outcomes such as a missing row are not failures of the database
		if class != "not_found" && class != "conflict" && class != "rejected" {
			status = "error"
		}
		m.DbErrorsTotal.WithLabelValues(op, class).Inc()
	}
	m.DbQueryDuration.WithLabelValues(op, status).Observe(time.Since(start).Seconds())
	return err
}

// LiveConnected adjusts the live connection gauge
func (m *Metrics) LiveConnected(delta float64) {
	if m == nil {
		return
	}
	m.LiveConnections.Add(delta)
}

// LiveEventSent counts a queued live event
func (m *Metrics) LiveEventSent(event string) {
	if m == nil {
		return
	}
	m.LiveEventsSent.WithLabelValues(event).Inc()
}

// LiveEventDropped counts a live event dropped for a slow client
func (m *Metrics) LiveEventDropped(event string) {
	if m == nil {
		return
	}
	m.LiveEventsDropped.WithLabelValues(event).Inc()
}

// Click counts a click by result
func (m *Metrics) Click(result string) {
	if m == nil {
		return
	}
	m.ClicksTotal.WithLabelValues(result).Inc()
}

func classifyDBErr(err error) string {
	switch {
	case errors.Is(err, model.ErrUserNotFound):
		return "not_found"
	case errors.Is(err, model.ErrUsernameExists):
		return "conflict"
	case errors.Is(err, model.ErrUserNotActive):
		return "rejected"
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return "unique_violation"
		case "40001":
			return "serialization_failure"
		case "40P01":
			return "deadlock"
		case "57014":
			return "query_canceled"
		default:
			return "pg_" + pgErr.Code
		}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline"):
		return "timeout"
	case strings.Contains(msg, "connection"):
		return "connection"
	default:
		return "unknown"
	}
}
