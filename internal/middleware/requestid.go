package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/templui/photowall/internal/ctxkeys"
)

const requestIDHeader = "X-Request-ID"

// RequestID reuses an upstream X-Request-ID or generates one, and exposes it
// in the response header and the request context.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" || len(id) > 128 {
			id = uuid.New().String()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(ctxkeys.WithRequestID(r.Context(), id)))
	})
}
