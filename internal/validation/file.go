package validation

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrFileRequired = errors.New("file is required")
	ErrFileType     = errors.New("invalid file type")
	ErrFileTooLarge = errors.New("file too large")
)

// FileConstraints defines validation rules for photo uploads.
type FileConstraints struct {
	AllowedMimeTypes map[string]bool
	// Declared types accepted as-is because clients convert them to JPEG
	// before sending. An empty declared type is accepted for the same reason.
	ConvertedMimeTypes map[string]bool
	MaxSize            int64
}

// PhotoConstraints returns the upload rules with a per-file limit of maxMB megabytes.
func PhotoConstraints(maxMB int) FileConstraints {
	return FileConstraints{
		AllowedMimeTypes: map[string]bool{
			"image/jpeg": true,
			"image/png":  true,
			"image/webp": true,
		},
		ConvertedMimeTypes: map[string]bool{
			"image/heic": true,
			"image/heif": true,
		},
		MaxSize: int64(maxMB) << 20,
	}
}

// Upload is what a client submitted before anything touches the store.
type Upload struct {
	Size        int64
	MimeType    string
	DisplayName string
}

// ValidateUpload checks, in order: payload presence, display name, mime type, size.
func ValidateUpload(u Upload, c FileConstraints) error {
	if u.Size <= 0 {
		return ErrFileRequired
	}
	if err := ValidateName(u.DisplayName); err != nil {
		return err
	}
	if err := ValidateMimeType(u.MimeType, c); err != nil {
		return err
	}
	if c.MaxSize > 0 && u.Size > c.MaxSize {
		return fmt.Errorf("%w: maximum size is %d MB", ErrFileTooLarge, c.MaxSize>>20)
	}
	return nil
}

// ValidateMimeType checks a declared mime type, ignoring parameters such as charset.
func ValidateMimeType(mimeType string, c FileConstraints) error {
	base, _, _ := strings.Cut(mimeType, ";")
	base = strings.ToLower(strings.TrimSpace(base))
	if base == "" || c.ConvertedMimeTypes[base] || c.AllowedMimeTypes[base] {
		return nil
	}
	return fmt.Errorf("%w: %s (allowed: JPEG, PNG, WEBP)", ErrFileType, base)
}
