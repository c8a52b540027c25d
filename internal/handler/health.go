package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/templui/photowall/internal/config"
)

type HealthHandler struct {
	db  *sqlx.DB
	cfg *config.Config
}

func NewHealthHandler(db *sqlx.DB, cfg *config.Config) *HealthHandler {
	return &HealthHandler{
		db:  db,
		cfg: cfg,
	}
}

// Health reports liveness. Missing Drive configuration is reported but is
// not a failure; an unreachable database is.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	drive := "configured"
	if !h.cfg.DriveConfigured() {
		drive = "degraded"
	}

	status, database := http.StatusOK, "ok"
	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.PingContext(ctx); err != nil {
			status, database = http.StatusServiceUnavailable, "unavailable"
		}
	}

	writeJSON(w, status, map[string]string{
		"status":   http.StatusText(status),
		"drive":    drive,
		"database": database,
	})
}

// Config serves the public photo wall settings.
func (h *HealthHandler) Config(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.cfg.Sanitized())
}
