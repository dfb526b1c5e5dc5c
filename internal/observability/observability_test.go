package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/mcoot/clickergame/internal/model"
)

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics

	m.ObserveHTTP("GET", "/", "200", time.Millisecond)
	m.TrackInFlight("GET", "/")()
	m.LiveConnected(1)
	m.LiveEventSent("connected")
	m.LiveEventDropped("connected")
	m.Click("ok")

	called := false
	err := m.ObserveDB("op", func() error {
		called = true
		return nil
	})
	assert.NoError(t, err)
	assert.True(t, called)
}

func TestObserveDB(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	boom := errors.New("boom")
	assert.ErrorIs(t, m.ObserveDB("users.get", func() error { return boom }), boom)
	assert.ErrorIs(t, m.ObserveDB("users.get", func() error { return model.ErrUserNotFound }), model.ErrUserNotFound)
	assert.NoError(t, m.ObserveDB("users.get", func() error { return nil }))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.DbErrorsTotal.WithLabelValues("users.get", "unknown")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.DbErrorsTotal.WithLabelValues("users.get", "not_found")))
}

func TestClassifyDBErr(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{&pgconn.PgError{Code: "23505"}, "unique_violation"},
		{&pgconn.PgError{Code: "40P01"}, "deadlock"},
		{&pgconn.PgError{Code: "42P01"}, "pg_42P01"},
		{errors.New("context deadline exceeded"), "timeout"},
		{errors.New("connection refused"), "connection"},
		{model.ErrUsernameExists, "conflict"},
		{model.ErrUserNotActive, "rejected"},
		{errors.New("other"), "unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, classifyDBErr(tt.err))
		})
	}
}

func TestLiveCounters(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.LiveConnected(1)
	m.LiveConnected(1)
	m.LiveConnected(-1)
	m.LiveEventSent("updateRankings")
	m.LiveEventDropped("updateRankings")
	m.Click("ok")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.LiveConnections))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LiveEventsSent.WithLabelValues("updateRankings")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LiveEventsDropped.WithLabelValues("updateRankings")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ClicksTotal.WithLabelValues("ok")))
}

func TestTraceHandlerAddsSpanIDs(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "dev")

	tp := sdktrace.NewTracerProvider()
	defer func() { _ = tp.Shutdown(context.Background()) }()

	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	logger.InfoContext(ctx, "inside span")
	span.End()

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, span.SpanContext().TraceID().String(), record["trace_id"])
	assert.Equal(t, span.SpanContext().SpanID().String(), record["span_id"])
}

func TestTraceHandlerWithoutSpan(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "production")

	logger.Debug("hidden")
	logger.Info("plain")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "plain", record["msg"])
	assert.NotContains(t, record, "trace_id")
}

func TestInitTracerDisabledWithoutEndpoint(t *testing.T) {
	shutdown, err := InitTracer(context.Background(), "clicker", "")
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}
