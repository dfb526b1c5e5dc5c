package handler

import (
	"net/http"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/mcoot/clickergame/internal/api/apierr"
)

// WriteError writes the JSON error body for err. Server errors are also
// recorded on the request's span.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	if apierr.Status(err) >= http.StatusInternalServerError {
		span := trace.SpanFromContext(r.Context())
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	apierr.WriteError(w, err)
}
