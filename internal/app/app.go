package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"
	"github.com/templui/photowall/internal/config"
	"github.com/templui/photowall/internal/db"
	"github.com/templui/photowall/internal/drive"
	"github.com/templui/photowall/internal/repository"
	"github.com/templui/photowall/internal/service"
	"github.com/templui/photowall/internal/storage"
	"github.com/templui/photowall/internal/validation"
)

type App struct {
	Cfg               *config.Config
	DB                *sqlx.DB
	Logger            *slog.Logger
	Store             drive.Store
	FolderRegistry    *service.FolderRegistry
	ModerationService *service.ModerationService
	MediaService      *service.MediaService
	UploadService     *service.UploadService
}

func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	// Initialize database
	database, err := db.Init(cfg.DBDriver, cfg.DBConnection)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// Run database migrations
	err = db.RunMigrations(database.DB, cfg.DBDriver)
	if err != nil {
		_ = db.Close(database)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	// Repositories
	eventRepository := repository.NewModerationEventRepository(database)

	// Photo store. Without credentials every service runs degraded.
	var store drive.Store
	if cfg.DriveConfigured() {
		client, err := drive.New(ctx, drive.Config{
			ServiceAccountEmail: cfg.ServiceAccountEmail,
			PrivateKey:          cfg.PrivateKey,
			Endpoint:            cfg.DriveAPIEndpoint,
			Timeout:             cfg.UpstreamTimeout,
		})
		if err != nil {
			_ = db.Close(database)
			return nil, fmt.Errorf("failed to initialize drive client: %w", err)
		}
		store = client
	} else {
		logger.Warn("google drive is not configured, running in degraded mode")
	}

	// Video mirror
	var mirror storage.Mirror
	s3Mirror, err := storage.New(ctx, cfg)
	if err != nil {
		_ = db.Close(database)
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	if s3Mirror != nil {
		mirror = s3Mirror
	}

	// Services
	folderRegistry := service.NewFolderRegistry(store, cfg.DriveFolderID, logger)
	moderationService := service.NewModerationService(store, folderRegistry, eventRepository, logger)
	mediaService := service.NewMediaService(store, mirror, service.MediaConfig{
		DownloadBaseURL:  cfg.DownloadBaseURL,
		ThumbnailBaseURL: cfg.ThumbnailBaseURL,
		MetaCacheSize:    cfg.VideoMetaCacheSize,
		MetaCacheTTL:     cfg.VideoMetaCacheTTL,
		Timeout:          cfg.UpstreamTimeout,
	}, logger)
	uploadService := service.NewUploadService(
		store,
		cfg.DriveFolderID,
		validation.PhotoConstraints(cfg.MaxFileSizeMB),
		cfg.RequiresApproval(),
		logger,
	)

	return &App{
		Cfg:               cfg,
		DB:                database,
		Logger:            logger,
		Store:             store,
		FolderRegistry:    folderRegistry,
		ModerationService: moderationService,
		MediaService:      mediaService,
		UploadService:     uploadService,
	}, nil
}

// Close waits for background mirror uploads and closes the database.
func (a *App) Close() error {
	if a.MediaService != nil {
		a.MediaService.Wait()
	}
	return db.Close(a.DB)
}
