package drive

import (
	"context"
	"io"

	"github.com/templui/photowall/internal/model"
)

const FolderMimeType = "application/vnd.google-apps.folder"

// Folder is a container directly under another folder.
type Folder struct {
	ID             string
	Name           string
	CanEdit        bool
	CanAddChildren bool
}

// ListOptions selects files directly under ParentID.
// MimePrefixes filters by prefix ("image/", "video/"); empty means any media.
type ListOptions struct {
	ParentID     string
	MimePrefixes []string
}

// Store is the remote object store holding photos. Folders are containers and
// a file's parents are its container memberships.
type Store interface {
	// FindFolders lists folders named name directly under parentID, in store order.
	FindFolders(ctx context.Context, parentID, name string) ([]Folder, error)

	// CreateFolder creates a folder named name under parentID.
	CreateFolder(ctx context.Context, parentID, name string) (Folder, error)

	// GetFolder returns a folder with its capabilities for the calling credential.
	GetFolder(ctx context.Context, id string) (*Folder, error)

	// ListFiles lists non-trashed files, newest first.
	ListFiles(ctx context.Context, opts ListOptions) ([]*model.Photo, error)

	// GetFile returns file metadata using the service credential.
	GetFile(ctx context.Context, id string) (*model.Photo, error)

	// UploadFile creates a file under parentID with the given content.
	UploadFile(ctx context.Context, parentID, name, mimeType string, body io.Reader) (*model.Photo, error)

	// UpdateParents adds one parent and removes the given ones in a single update.
	UpdateParents(ctx context.Context, id, add string, remove []string) error

	// DeleteFile removes a file or folder.
	DeleteFile(ctx context.Context, id string) error

	// IsPublic reports whether anyone holds reader access.
	IsPublic(ctx context.Context, id string) (bool, error)

	// MakePublic grants reader access to anyone.
	MakePublic(ctx context.Context, id string) error

	// Download streams the whole file content through the authenticated media endpoint.
	Download(ctx context.Context, id string) (io.ReadCloser, error)
}
