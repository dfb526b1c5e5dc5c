package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/mcoot/clickergame/internal/observability"
)

// Metrics records request counts and latency labelled by route template.
// It must be installed with mux's Use so the matched route is known.
func Metrics(m *observability.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			route := routeTemplate(r)

			done := m.TrackInFlight(r.Method, route)
			defer done()

			wrapped := NewResponseWriter(w)
			next.ServeHTTP(wrapped, r)

			m.ObserveHTTP(r.Method, route, strconv.Itoa(wrapped.Status()), time.Since(start))
		})
	}
}

// routeTemplate returns the matched mux path template, keeping label cardinality bounded
func routeTemplate(r *http.Request) string {
	if current := mux.CurrentRoute(r); current != nil {
		if tpl, err := current.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}
