package middleware

import (
	"net/http"
	"strings"

	"github.com/go-chi/cors"
)

// CORS allows the storefront origin plus any configured extras. Credentials
// are allowed so the guest cart cookie travels with API calls.
func CORS(publicURL string, extra []string) func(http.Handler) http.Handler {
	origins := []string{}
	if u := strings.TrimRight(strings.TrimSpace(publicURL), "/"); u != "" {
		origins = append(origins, u)
	}
	for _, o := range extra {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler
}
