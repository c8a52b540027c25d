package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/templui/photowall/internal/drive"
	"github.com/templui/photowall/internal/model"
	"github.com/templui/photowall/internal/validation"
)

const defaultFilename = "photo.jpg"

// UploadInput is a photo submitted by a guest.
type UploadInput struct {
	DisplayName string
	Filename    string
	MimeType    string
	Size        int64
	Body        io.Reader
}

// UploadResult describes the stored object.
type UploadResult struct {
	PhotoID      string `json:"photoId"`
	DriveURL     string `json:"driveUrl"`
	ThumbnailURL string `json:"thumbnailUrl,omitempty"`
	Message      string `json:"message"`
}

// UploadService validates guest uploads and stores them in the root folder,
// where they wait for moderation.
type UploadService struct {
	store            drive.Store
	rootID           string
	constraints      validation.FileConstraints
	requiresApproval bool
	logger           *slog.Logger
	now              func() time.Time
}

func NewUploadService(
	store drive.Store,
	rootID string,
	constraints validation.FileConstraints,
	requiresApproval bool,
	logger *slog.Logger,
) *UploadService {
	return &UploadService{
		store:            store,
		rootID:           rootID,
		constraints:      constraints,
		requiresApproval: requiresApproval,
		logger:           logger.With(slog.String("component", "upload")),
		now:              time.Now,
	}
}

func (s *UploadService) Configured() bool {
	return s.store != nil
}

// Upload validates in and stores it. Validation failures wrap
// ErrInvalidUpload and never reach the store.
func (s *UploadService) Upload(ctx context.Context, in UploadInput) (*UploadResult, error) {
	if s.store == nil {
		uploadsTotal.WithLabelValues("unconfigured").Inc()
		return nil, ErrNotConfigured
	}

	err := validation.ValidateUpload(validation.Upload{
		Size:        in.Size,
		MimeType:    in.MimeType,
		DisplayName: in.DisplayName,
	}, s.constraints)
	if err != nil {
		uploadsTotal.WithLabelValues("invalid").Inc()
		return nil, fmt.Errorf("%w: %w", ErrInvalidUpload, err)
	}

	username := norm.NFC.String(strings.TrimSpace(in.DisplayName))
	filename := path.Base(strings.ReplaceAll(in.Filename, "\\", "/"))
	if filename == "" || filename == "." || filename == "/" {
		filename = defaultFilename
	}
	name := model.ObjectName(username, s.now(), filename)

	// Converted and undeclared types arrive as JPEG.
	mimeType := uploadType(in.MimeType, s.constraints)

	photo, err := s.store.UploadFile(ctx, s.rootID, name, mimeType, in.Body)
	if err != nil {
		uploadsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("upload %s: %w", name, err)
	}

	if err := s.store.MakePublic(ctx, photo.ID); err != nil {
		s.logger.Warn("failed to make upload public", "id", photo.ID, "error", err)
	}

	uploadsTotal.WithLabelValues("stored").Inc()
	s.logger.Info("photo uploaded", "id", photo.ID, "name", name, "mime_type", mimeType, "size", in.Size)

	msg := "Photo shared on the wall!"
	if s.requiresApproval {
		msg = "Photo uploaded. It will be visible once a moderator approves it."
	}
	return &UploadResult{
		PhotoID:      photo.ID,
		DriveURL:     photo.WebViewLink,
		ThumbnailURL: photo.ThumbnailLink,
		Message:      msg,
	}, nil
}

func uploadType(declared string, c validation.FileConstraints) string {
	base, _, _ := strings.Cut(declared, ";")
	base = strings.ToLower(strings.TrimSpace(base))
	if base == "" || c.ConvertedMimeTypes[base] {
		return defaultImageType
	}
	return base
}
