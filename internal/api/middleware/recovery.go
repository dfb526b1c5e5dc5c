package middleware

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/mcoot/clickergame/internal/api/apierr"
	"github.com/mcoot/clickergame/internal/middleware"
)

// Recovery converts handler panics into the standard 500 JSON body
func Recovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return middleware.Recovery(logger, func(w http.ResponseWriter, _ *http.Request, recovered any) {
		apierr.WriteError(w, fmt.Errorf("panic: %v", recovered))
	})
}
