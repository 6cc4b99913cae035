package middleware

import (
	"net/http"

	"github.com/go-chi/cors"

	"github.com/angelmondragon/cablequotes-backend/pkg/config"
)

// CORS allows the configured frontends to call the API with credentials. The token and
// request id headers are exposed so the SPA can read them.
func CORS(cfg config.CORSConfig) func(http.Handler) http.Handler {
	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}
	return cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut,
			http.MethodPatch, http.MethodDelete, http.MethodOptions,
		},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CQ-Token", requestIDHeader},
		ExposedHeaders:   []string{"X-CQ-Token", requestIDHeader, "Content-Disposition", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           600,
	}).Handler
}
