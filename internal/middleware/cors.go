package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// CORS allows requests from any origin. Preflight requests are answered
// with 204 and never reach the router.
func CORS(next http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:         300,
	})(next)
}
