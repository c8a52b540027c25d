package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// CORS allows the wall and moderation clients to call the API from the given
// origins ("*" allows any). Preflight requests are answered without reaching
// the routes.
func CORS(origins []string) func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodHead,
			http.MethodPost,
			http.MethodPut,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowedHeaders: []string{
			"Content-Type",
			"Range",
			ModeratorPasswordHeader,
			ModeratorNameHeader,
		},
		ExposedHeaders: []string{"Content-Range", "Content-Length", "Accept-Ranges", "X-Request-ID"},
		MaxAge:         86400,
	})
}
