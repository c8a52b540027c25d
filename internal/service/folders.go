package service

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/templui/photowall/internal/drive"
	"github.com/templui/photowall/internal/model"
)

// FolderRegistry maps the managed folder names to ids under the root folder.
// Resolved ids are cached for the lifetime of the process. Concurrent first
// resolutions of the same name share one search-then-create attempt, so at
// most one folder per name is created by this process.
type FolderRegistry struct {
	store  drive.Store
	rootID string
	logger *slog.Logger

	mu  sync.RWMutex
	ids map[string]string

	group singleflight.Group
}

func NewFolderRegistry(store drive.Store, rootID string, logger *slog.Logger) *FolderRegistry {
	return &FolderRegistry{
		store:  store,
		rootID: rootID,
		logger: logger.With(slog.String("component", "folder_registry")),
		ids:    make(map[string]string),
	}
}

func (r *FolderRegistry) RootID() string {
	return r.rootID
}

// Resolve returns the id of the folder called name, creating it under the
// root if it does not exist. Extra folders with the same name are deleted.
func (r *FolderRegistry) Resolve(ctx context.Context, name string) (string, error) {
	if r.store == nil {
		return "", ErrNotConfigured
	}
	if id, ok := r.cached(name); ok {
		return id, nil
	}

	// The shared attempt outlives any single caller's cancellation.
	ch := r.group.DoChan(name, func() (any, error) {
		if id, ok := r.cached(name); ok {
			return id, nil
		}
		return r.resolve(context.WithoutCancel(ctx), name)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Lookup finds the folder called name without ever creating it. found is
// false when the folder does not exist; absence is not cached.
func (r *FolderRegistry) Lookup(ctx context.Context, name string) (id string, found bool, err error) {
	if r.store == nil {
		return "", false, ErrNotConfigured
	}
	if id, ok := r.cached(name); ok {
		return id, true, nil
	}

	folders, err := r.store.FindFolders(ctx, r.rootID, name)
	if err != nil {
		return "", false, &FolderResolutionError{Name: name, Err: err}
	}
	if len(folders) == 0 {
		return "", false, nil
	}

	r.remember(name, folders[0].ID)
	return folders[0].ID, true, nil
}

// Known returns the folder ids resolved so far without touching the store.
func (r *FolderRegistry) Known() model.Folders {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return model.Folders{
		Root:     r.rootID,
		Approved: r.ids[model.FolderApproved],
		Rejected: r.ids[model.FolderRejected],
		Preview:  r.ids[model.FolderPreview],
	}
}

// Sweep re-queries every managed folder, keeps the canonical one and deletes
// duplicates left behind by other processes. It returns how many were removed.
func (r *FolderRegistry) Sweep(ctx context.Context) (int, error) {
	if r.store == nil {
		return 0, ErrNotConfigured
	}

	removed := 0
	for _, name := range []string{model.FolderApproved, model.FolderRejected, model.FolderPreview} {
		folders, err := r.store.FindFolders(ctx, r.rootID, name)
		if err != nil {
			return removed, &FolderResolutionError{Name: name, Err: err}
		}
		if len(folders) == 0 {
			continue
		}

		canonical := folders[0].ID
		if id, ok := r.cached(name); ok {
			canonical = id
		}
		r.remember(name, canonical)

		for _, f := range folders {
			if f.ID == canonical {
				continue
			}
			if r.deleteDuplicate(ctx, name, f.ID) {
				removed++
			}
		}
	}
	return removed, nil
}

func (r *FolderRegistry) resolve(ctx context.Context, name string) (string, error) {
	folders, err := r.store.FindFolders(ctx, r.rootID, name)
	if err != nil {
		folderResolutionsTotal.WithLabelValues(name, "error").Inc()
		return "", &FolderResolutionError{Name: name, Err: err}
	}

	if len(folders) > 0 {
		id := folders[0].ID
		for _, dup := range folders[1:] {
			r.deleteDuplicate(ctx, name, dup.ID)
		}
		r.remember(name, id)
		folderResolutionsTotal.WithLabelValues(name, "adopted").Inc()
		r.logger.Debug("folder adopted", "folder", name, "id", id, "duplicates", len(folders)-1)
		return id, nil
	}

	folder, err := r.store.CreateFolder(ctx, r.rootID, name)
	if err != nil {
		folderResolutionsTotal.WithLabelValues(name, "error").Inc()
		return "", &FolderResolutionError{Name: name, Err: err}
	}

	r.remember(name, folder.ID)
	folderResolutionsTotal.WithLabelValues(name, "created").Inc()
	r.logger.Info("folder created", "folder", name, "id", folder.ID)
	return folder.ID, nil
}

func (r *FolderRegistry) deleteDuplicate(ctx context.Context, name, id string) bool {
	if err := r.store.DeleteFile(ctx, id); err != nil {
		r.logger.Warn("failed to delete duplicate folder", "folder", name, "id", id, "error", err)
		return false
	}
	folderDuplicatesRemovedTotal.Inc()
	r.logger.Info("duplicate folder deleted", "folder", name, "id", id)
	return true
}

func (r *FolderRegistry) cached(name string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.ids[name]
	return id, ok
}

func (r *FolderRegistry) remember(name, id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids[name] = id
}
