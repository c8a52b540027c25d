package routes

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/templui/photowall/internal/app"
	"github.com/templui/photowall/internal/handler"
	"github.com/templui/photowall/internal/middleware"
)

func SetupRoutes(app *app.App) http.Handler {
	cfg := app.Cfg

	// Handlers
	respond := handler.NewResponder(app.Logger, !cfg.IsProduction())
	photos := handler.NewPhotoHandler(app.ModerationService, respond, cfg.ModerationPassword, cfg.ThumbnailBaseURL)
	media := handler.NewMediaHandler(app.MediaService, respond)
	upload := handler.NewUploadHandler(app.UploadService, respond, cfg.MaxFileSizeMB)
	health := handler.NewHealthHandler(app.DB, cfg)

	moderator := middleware.RequireModerator(cfg.ModerationPassword)
	rateLimiter := middleware.RateLimit(cfg.UploadRateLimit, cfg.UploadRateWindow, cfg.TrustProxy)

	mux := http.NewServeMux()

	// ============================================================================
	// OPERATIONS
	// ============================================================================

	mux.HandleFunc("GET /healthz", health.Health)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /api/config", health.Config)

	// ============================================================================
	// PUBLIC ROUTES
	// ============================================================================

	// Wall
	mux.HandleFunc("GET /api/photos", photos.Wall)

	// Media proxy
	mux.HandleFunc("GET /api/photos/image", media.Image)
	mux.HandleFunc("GET /api/photos/video", media.Video)
	mux.HandleFunc("GET /api/photos/thumbnail", media.Thumbnail)

	// Upload (rate limited per client)
	mux.HandleFunc("POST /api/photos/upload", rateLimiter(upload.Upload))

	// ============================================================================
	// MODERATOR ROUTES
	// ============================================================================

	mux.HandleFunc("GET /api/photos/pending", moderator(photos.Pending))
	mux.HandleFunc("GET /api/photos/all", moderator(photos.Approved))
	mux.HandleFunc("GET /api/photos/rejected", moderator(photos.Rejected))
	mux.HandleFunc("GET /api/photos/activity", moderator(photos.Activity))
	mux.HandleFunc("GET /api/photos/{id}/history", moderator(photos.History))
	mux.HandleFunc("POST /api/photos/make-public", moderator(photos.MakePublic))

	// Moderate checks the password itself; it may arrive in the JSON body.
	mux.HandleFunc("PUT /api/photos/moderate", photos.Moderate)

	// Global middleware - executed in order (top to bottom)
	return middleware.Chain(
		mux,
		middleware.RequestID,
		middleware.RequestLogging,
		middleware.CORS(cfg.CORSOrigins),
	)
}
