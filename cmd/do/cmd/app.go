package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/templui/photowall/internal/app"
	"github.com/templui/photowall/internal/config"
	"github.com/templui/photowall/internal/logger"
)

// withApp loads the server configuration, builds the app and runs fn with it.
// Commands that need the photo store fail early when it is not configured.
func withApp(needsDrive bool, fn func(ctx context.Context, a *app.App) error) error {
	cfg := config.Load()
	flush := logger.Init(true, cfg.SentryDSN)
	defer flush()

	if needsDrive && !cfg.DriveConfigured() {
		return fmt.Errorf("google drive is not configured: set GOOGLE_DRIVE_FOLDER_ID, GOOGLE_SERVICE_ACCOUNT_EMAIL and GOOGLE_PRIVATE_KEY")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a, err := app.New(ctx, cfg, logger.Log)
	if err != nil {
		return err
	}
	defer a.Close()

	return fn(ctx, a)
}
