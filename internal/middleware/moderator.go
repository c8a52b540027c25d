package middleware

import (
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/templui/photowall/internal/ctxkeys"
)

const (
	ModeratorPasswordHeader = "X-Moderation-Password"
	ModeratorNameHeader     = "X-Moderator"

	defaultModerator = "moderator"
)

// RequireModerator admits requests carrying the shared moderation password in
// the X-Moderation-Password header or the password query parameter, and
// stores the moderator name in the context.
func RequireModerator(password string) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			submitted := r.Header.Get(ModeratorPasswordHeader)
			if submitted == "" {
				submitted = r.URL.Query().Get("password")
			}

			if !ValidModeratorPassword(password, submitted) {
				slog.Warn("moderator authentication failed",
					"path", r.URL.Path,
					"method", r.Method,
					"remote_addr", r.RemoteAddr,
				)
				writeError(w, http.StatusUnauthorized, "Incorrect moderation password")
				return
			}

			ctx := ctxkeys.WithModerator(r.Context(), ModeratorName(r))
			next(w, r.WithContext(ctx))
		}
	}
}

// ValidModeratorPassword performs constant-time comparison of passwords
func ValidModeratorPassword(expected, actual string) bool {
	if expected == "" || actual == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(actual)) == 1
}

// ModeratorName is the actor recorded in the audit trail.
func ModeratorName(r *http.Request) string {
	name := strings.TrimSpace(r.Header.Get(ModeratorNameHeader))
	if name == "" || len(name) > 64 {
		return defaultModerator
	}
	return name
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
