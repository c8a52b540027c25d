package service

import (
	"errors"
	"fmt"

	"github.com/templui/photowall/internal/model"
)

var (
	// ErrNotConfigured is returned by every service when no root folder or
	// service credential is configured.
	ErrNotConfigured = errors.New("photo store is not configured")

	ErrInvalidUpload = errors.New("invalid upload")
	ErrInvalidAction = errors.New("invalid moderation action")
	ErrUpstream      = errors.New("upstream fetch failed")

	// ErrPreviewPhoto is returned when moderating a photo of the pre-event
	// track, which is curated by hand and never approved or rejected.
	ErrPreviewPhoto = errors.New("preview photos are not moderated")
)

// FolderResolutionError wraps a store failure while searching or creating a managed folder.
type FolderResolutionError struct {
	Name string
	Err  error
}

func (e *FolderResolutionError) Error() string {
	return fmt.Sprintf("resolve folder %q: %v", e.Name, e.Err)
}

func (e *FolderResolutionError) Unwrap() error {
	return e.Err
}

// NotFoundError reports a missing photo id or a photo the store no longer has.
type NotFoundError struct {
	PhotoID string
	Err     error
}

func (e *NotFoundError) Error() string {
	if e.PhotoID == "" {
		return "photo id is required"
	}
	return fmt.Sprintf("photo %s not found", e.PhotoID)
}

func (e *NotFoundError) Unwrap() error {
	return e.Err
}

// TransitionError reports a store failure while moving a photo. The photo may
// be left in both folders or neither; nothing is rolled back.
type TransitionError struct {
	PhotoID string
	To      model.State
	Err     error
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("move photo %s to %s: %v", e.PhotoID, e.To, e.Err)
}

func (e *TransitionError) Unwrap() error {
	return e.Err
}
