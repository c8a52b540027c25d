package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	ModeModeration   = "moderation"
	ModePhotographer = "photographer"

	defaultModerationPassword = "admin123"
)

type Config struct {
	// Application
	AppEnv string
	Port   string

	// Google Drive
	DriveFolderID       string
	ServiceAccountEmail string
	PrivateKey          string
	DriveAPIEndpoint    string // Optional: overrides the Drive API base URL
	DownloadBaseURL     string
	ThumbnailBaseURL    string
	UpstreamTimeout     time.Duration // 0 disables the client timeout

	// Photo wall
	Mode               string // "moderation" or "photographer"
	ModerationPassword string
	MaxFileSizeMB      int
	MaxPhotos          int

	// HTTP
	UploadRateLimit  int
	UploadRateWindow time.Duration
	TrustProxy       bool     // Use X-Forwarded-For / X-Real-IP for client IPs
	CORSOrigins      []string // "*" allows any origin

	// Video metadata cache
	VideoMetaCacheSize int
	VideoMetaCacheTTL  time.Duration

	// Database (moderation audit trail, default: sqlite)
	DBDriver     string
	DBConnection string

	// Observability (optional)
	SentryDSN string

	// Storage (optional S3-compatible video mirror: MinIO, AWS S3, Cloudflare R2, etc.)
	S3Region    string
	S3Bucket    string
	S3AccessKey string
	S3SecretKey string
	S3Endpoint  string // Optional: for S3-compatible services
}

func Load() *Config {
	// Load .env file if it exists
	err := godotenv.Load()
	if err != nil {
		slog.Info("no .env file found, using environment variables")
	}

	appEnv := envString("APP_ENV", "development")

	cfg := &Config{
		// Application
		AppEnv: appEnv,
		Port:   envString("PORT", "8090"),

		// Google Drive (all three missing means degraded mode, not a startup failure)
		DriveFolderID:       envString("GOOGLE_DRIVE_FOLDER_ID", ""),
		ServiceAccountEmail: envString("GOOGLE_SERVICE_ACCOUNT_EMAIL", ""),
		PrivateKey:          envString("GOOGLE_PRIVATE_KEY", ""),
		DriveAPIEndpoint:    envString("DRIVE_API_ENDPOINT", ""),
		DownloadBaseURL:     envString("DRIVE_DOWNLOAD_BASE_URL", "https://drive.usercontent.google.com"),
		ThumbnailBaseURL:    envString("DRIVE_THUMBNAIL_BASE_URL", "https://drive.google.com"),
		UpstreamTimeout:     envDuration("UPSTREAM_TIMEOUT", 0),

		// Photo wall
		Mode:               envString("PHOTO_WALL_MODE", ModeModeration),
		ModerationPassword: moderationPassword(appEnv),
		MaxFileSizeMB:      envInt("PHOTO_MAX_FILE_SIZE_MB", 10),
		MaxPhotos:          envInt("PHOTO_WALL_MAX_PHOTOS", 50),

		// HTTP
		UploadRateLimit:  envInt("UPLOAD_RATE_LIMIT", 30),
		UploadRateWindow: envDuration("UPLOAD_RATE_WINDOW", 10*time.Minute),
		TrustProxy:       envBool("TRUST_PROXY", false),
		CORSOrigins:      envList("CORS_ALLOWED_ORIGINS", "*"),

		// Video metadata cache
		VideoMetaCacheSize: envInt("VIDEO_META_CACHE_SIZE", 256),
		VideoMetaCacheTTL:  envDuration("VIDEO_META_CACHE_TTL", 5*time.Minute),

		// Database
		DBDriver:     envString("DB_DRIVER", "sqlite"),
		DBConnection: envString("DB_CONNECTION", "./data/photowall.db?_pragma=journal_mode(WAL)"),

		// Observability
		SentryDSN: envString("SENTRY_DSN", ""),

		// Storage
		S3Region:    envString("S3_REGION", "us-east-1"),
		S3Bucket:    envString("S3_BUCKET", ""),
		S3AccessKey: envString("S3_ACCESS_KEY", ""),
		S3SecretKey: envString("S3_SECRET_KEY", ""),
		S3Endpoint:  envString("S3_ENDPOINT", ""),
	}

	if cfg.Mode != ModeModeration && cfg.Mode != ModePhotographer {
		slog.Warn("config invalid photo wall mode, using moderation", "value", cfg.Mode)
		cfg.Mode = ModeModeration
	}

	return cfg
}

// moderationPassword falls back to the well-known default outside
// production only.
func moderationPassword(appEnv string) string {
	if appEnv == "production" {
		return envRequired("MODERATION_PASSWORD")
	}
	return envString("MODERATION_PASSWORD", defaultModerationPassword)
}

func envString(key, def string) string {
	value := os.Getenv(key)
	if value == "" {
		value = def
	}
	return value
}

func envList(key, def string) []string {
	var list []string
	for _, v := range strings.Split(envString(key, def), ",") {
		if v = strings.TrimSpace(v); v != "" {
			list = append(list, v)
		}
	}
	return list
}

func envInt(key string, def int) int {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil || i < 0 {
		slog.Warn("config invalid int, using default", "key", key, "value", v, "default", def)
		return def
	}
	return i
}

func envBool(key string, def bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		slog.Warn("config invalid bool, using default", "key", key, "value", v, "default", def)
		return def
	}
	return b
}

func envDuration(key string, def time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		slog.Warn("config invalid duration, using default", "key", key, "value", v, "default", def)
		return def
	}
	return d
}

func envRequired(key string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	slog.Error("config required env var missing", "key", key)
	os.Exit(1)
	return ""
}

func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// DriveConfigured reports whether the root folder and the service credential
// are all present.
func (c *Config) DriveConfigured() bool {
	return c.DriveFolderID != "" && c.ServiceAccountEmail != "" && c.PrivateKey != ""
}

// RequiresApproval reports whether uploads wait in the moderation queue.
func (c *Config) RequiresApproval() bool {
	return c.Mode == ModeModeration
}

// Public is the subset of the configuration exposed to the wall client.
type Public struct {
	Mode             string   `json:"mode"`
	RequiresApproval bool     `json:"requiresApproval"`
	MaxPhotos        int      `json:"maxPhotos"`
	MaxFileSizeMB    int      `json:"maxFileSize"`
	AllowedFormats   []string `json:"allowedFormats"`
	DriveConfigured  bool     `json:"driveConfigured"`
}

// Sanitized returns only public, non-secret settings.
// Safe to serve to browsers.
func (c *Config) Sanitized() Public {
	return Public{
		Mode:             c.Mode,
		RequiresApproval: c.RequiresApproval(),
		MaxPhotos:        c.MaxPhotos,
		MaxFileSizeMB:    c.MaxFileSizeMB,
		AllowedFormats:   []string{"image/jpeg", "image/png", "image/webp", "image/heic", "image/heif"},
		DriveConfigured:  c.DriveConfigured(),
	}
}
