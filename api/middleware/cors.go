package middleware

import (
	"net/http"
	"strings"

	"github.com/go-chi/cors"
)

var localOrigins = []string{
	"http://localhost:3000",
	"http://localhost:5173",
}

// CORS allows the storefront site plus local dev origins.
func CORS(siteURL string) func(http.Handler) http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins(siteURL),
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", idempotencyHeader, requestIDHeader},
		ExposedHeaders:   []string{requestIDHeader, idempotentReplayHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler
}

func allowedOrigins(siteURL string) []string {
	origins := append([]string{}, localOrigins...)
	site := strings.TrimRight(strings.TrimSpace(siteURL), "/")
	if site == "" {
		return origins
	}
	for _, o := range origins {
		if o == site {
			return origins
		}
	}
	return append(origins, site)
}
