package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/templui/photowall/internal/drive"
	"github.com/templui/photowall/internal/model"
	"github.com/templui/photowall/internal/repository"
)

// publicGrantConcurrency bounds parallel permission calls during listings.
const publicGrantConcurrency = 4

var (
	imageTypes = []string{"image/"}
	mediaTypes = []string{"image/", "video/"}
)

// PublishResult summarises a bulk make-public run.
type PublishResult struct {
	Total     int `json:"total"`
	Published int `json:"published"`
	Failed    int `json:"failed"`
}

// ModerationService moves photos between the root (pending) folder and the
// approved and rejected folders, and lists each state. The state of a photo is
// derived from its folder membership on every read.
type ModerationService struct {
	store   drive.Store
	folders *FolderRegistry
	events  repository.ModerationEventRepository
	logger  *slog.Logger
	now     func() time.Time
}

// NewModerationService builds the state machine. events may be nil, in which
// case transitions are not recorded.
func NewModerationService(
	store drive.Store,
	folders *FolderRegistry,
	events repository.ModerationEventRepository,
	logger *slog.Logger,
) *ModerationService {
	return &ModerationService{
		store:   store,
		folders: folders,
		events:  events,
		logger:  logger.With(slog.String("component", "moderation")),
		now:     time.Now,
	}
}

func (s *ModerationService) Configured() bool {
	return s.store != nil
}

// Approve moves a photo into the approved folder regardless of its current state.
func (s *ModerationService) Approve(ctx context.Context, photoID, actor string) error {
	return s.transition(ctx, photoID, model.StateApproved, model.ActionApprove, actor)
}

// Reject moves a photo into the rejected folder regardless of its current state.
func (s *ModerationService) Reject(ctx context.Context, photoID, actor string) error {
	return s.transition(ctx, photoID, model.StateRejected, model.ActionReject, actor)
}

// Moderate dispatches an action name to Approve or Reject.
func (s *ModerationService) Moderate(ctx context.Context, photoID, action, actor string) error {
	switch action {
	case model.ActionApprove:
		return s.Approve(ctx, photoID, actor)
	case model.ActionReject:
		return s.Reject(ctx, photoID, actor)
	default:
		return fmt.Errorf("%w: %q", ErrInvalidAction, action)
	}
}

func (s *ModerationService) transition(ctx context.Context, photoID string, to model.State, action, actor string) error {
	if s.store == nil {
		return ErrNotConfigured
	}
	if photoID == "" {
		return &NotFoundError{}
	}

	folders, err := s.resolveAll(ctx)
	if err != nil {
		moderationTransitionsTotal.WithLabelValues(action, "error").Inc()
		return err
	}
	destID := folders.Approved
	if to == model.StateRejected {
		destID = folders.Rejected
	}

	from, err := s.move(ctx, photoID, destID, to, folders)
	if err != nil {
		moderationTransitionsTotal.WithLabelValues(action, "error").Inc()
		return err
	}

	moderationTransitionsTotal.WithLabelValues(action, "ok").Inc()
	s.logger.Info("photo moderated", "photo_id", photoID, "from", from, "to", to, "actor", actor)
	s.record(ctx, photoID, from, to, actor)
	return nil
}

// move reads the current parents of the photo and replaces them with destID
// in one update. It returns the state the photo was in before the move.
func (s *ModerationService) move(ctx context.Context, photoID, destID string, to model.State, folders model.Folders) (model.State, error) {
	photo, err := s.store.GetFile(ctx, photoID)
	if err != nil {
		if drive.IsNotFound(err) {
			return "", &NotFoundError{PhotoID: photoID, Err: err}
		}
		return "", &TransitionError{PhotoID: photoID, To: to, Err: err}
	}
	from := model.StateOf(photo, folders)
	if from == model.StatePreview {
		return from, &TransitionError{PhotoID: photoID, To: to, Err: ErrPreviewPhoto}
	}

	var remove []string
	for _, parent := range photo.Parents {
		if parent != destID {
			remove = append(remove, parent)
		}
	}
	if len(remove) == 0 && photo.HasParent(destID) {
		return from, nil
	}

	if err := s.store.UpdateParents(ctx, photoID, destID, remove); err != nil {
		if drive.IsNotFound(err) {
			return from, &NotFoundError{PhotoID: photoID, Err: err}
		}
		return from, &TransitionError{PhotoID: photoID, To: to, Err: err}
	}
	return from, nil
}

// PhotoState derives the current state of one photo from its folders.
func (s *ModerationService) PhotoState(ctx context.Context, photoID string) (model.State, error) {
	if s.store == nil {
		return "", ErrNotConfigured
	}
	if photoID == "" {
		return "", &NotFoundError{}
	}

	folders, err := s.resolveAll(ctx)
	if err != nil {
		return "", err
	}

	photo, err := s.store.GetFile(ctx, photoID)
	if err != nil {
		if drive.IsNotFound(err) {
			return "", &NotFoundError{PhotoID: photoID, Err: err}
		}
		return "", err
	}
	return model.StateOf(photo, folders), nil
}

// ListPending lists root images that are not also filed in a state folder.
func (s *ModerationService) ListPending(ctx context.Context) ([]*model.Photo, error) {
	if s.store == nil {
		return nil, ErrNotConfigured
	}

	folders, err := s.resolveAll(ctx)
	if err != nil {
		return nil, err
	}

	photos, err := s.store.ListFiles(ctx, drive.ListOptions{ParentID: folders.Root, MimePrefixes: imageTypes})
	if err != nil {
		return nil, fmt.Errorf("list pending photos: %w", err)
	}

	pending := make([]*model.Photo, 0, len(photos))
	for _, p := range photos {
		if model.StateOf(p, folders) == model.StatePending {
			pending = append(pending, p)
		}
	}
	return pending, nil
}

// ListApproved lists approved images and videos, sharing videos publicly so
// their content link can be used for playback.
func (s *ModerationService) ListApproved(ctx context.Context) ([]*model.Photo, error) {
	if s.store == nil {
		return nil, ErrNotConfigured
	}

	id, err := s.folders.Resolve(ctx, model.FolderApproved)
	if err != nil {
		return nil, err
	}

	photos, err := s.store.ListFiles(ctx, drive.ListOptions{ParentID: id, MimePrefixes: mediaTypes})
	if err != nil {
		return nil, fmt.Errorf("list approved photos: %w", err)
	}
	s.publishVideos(ctx, photos)
	return photos, nil
}

func (s *ModerationService) ListRejected(ctx context.Context) ([]*model.Photo, error) {
	if s.store == nil {
		return nil, ErrNotConfigured
	}

	id, err := s.folders.Resolve(ctx, model.FolderRejected)
	if err != nil {
		return nil, err
	}

	photos, err := s.store.ListFiles(ctx, drive.ListOptions{ParentID: id, MimePrefixes: mediaTypes})
	if err != nil {
		return nil, fmt.Errorf("list rejected photos: %w", err)
	}
	return photos, nil
}

// ListPreview lists the pre-event track. A missing preview folder or any
// store failure yields an empty list.
func (s *ModerationService) ListPreview(ctx context.Context) ([]*model.Photo, error) {
	if s.store == nil {
		return nil, ErrNotConfigured
	}

	id, found, err := s.folders.Lookup(ctx, model.FolderPreview)
	if err != nil {
		s.logger.Warn("preview folder lookup failed", "error", err)
		return []*model.Photo{}, nil
	}
	if !found {
		return []*model.Photo{}, nil
	}

	photos, err := s.store.ListFiles(ctx, drive.ListOptions{ParentID: id, MimePrefixes: mediaTypes})
	if err != nil {
		s.logger.Warn("preview listing failed", "error", err)
		return []*model.Photo{}, nil
	}
	s.publishVideos(ctx, photos)
	return photos, nil
}

// VerifyRoot checks that the root folder exists and that the service
// credential can add files to it.
func (s *ModerationService) VerifyRoot(ctx context.Context) error {
	if s.store == nil {
		return ErrNotConfigured
	}

	folder, err := s.store.GetFolder(ctx, s.folders.RootID())
	if err != nil {
		return fmt.Errorf("verify root folder: %w", err)
	}
	if !folder.CanEdit || !folder.CanAddChildren {
		return fmt.Errorf("verify root folder: %w",
			drive.NewError("verify folder", drive.KindPermission, identityOf(s.store), errors.New("service account cannot add files to the root folder")))
	}
	return nil
}

// MakePendingPublic grants public read access to every pending photo.
// Individual failures are counted and logged.
func (s *ModerationService) MakePendingPublic(ctx context.Context) (PublishResult, error) {
	photos, err := s.ListPending(ctx)
	if err != nil {
		return PublishResult{}, err
	}

	result := PublishResult{Total: len(photos)}
	results := make([]bool, len(photos))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(publicGrantConcurrency)
	for i, p := range photos {
		g.Go(func() error {
			if err := s.store.MakePublic(gctx, p.ID); err != nil {
				s.logger.Warn("failed to make photo public", "photo_id", p.ID, "error", err)
				return nil
			}
			results[i] = true
			return nil
		})
	}
	_ = g.Wait()

	for _, ok := range results {
		if ok {
			result.Published++
		} else {
			result.Failed++
		}
	}
	s.logger.Info("pending photos published", "total", result.Total, "published", result.Published, "failed", result.Failed)
	return result, nil
}

// Delete removes a photo from the store. It is not reachable from the
// moderation UI.
func (s *ModerationService) Delete(ctx context.Context, photoID, actor string) error {
	if s.store == nil {
		return ErrNotConfigured
	}
	if photoID == "" {
		return &NotFoundError{}
	}

	from, err := s.PhotoState(ctx, photoID)
	if err != nil {
		return err
	}

	if err := s.store.DeleteFile(ctx, photoID); err != nil {
		if drive.IsNotFound(err) {
			return &NotFoundError{PhotoID: photoID, Err: err}
		}
		return fmt.Errorf("delete photo %s: %w", photoID, err)
	}

	s.logger.Info("photo deleted", "photo_id", photoID, "from", from, "actor", actor)
	s.record(ctx, photoID, from, model.StateDeleted, actor)
	return nil
}

// History returns the recorded transitions of a photo, oldest first.
func (s *ModerationService) History(ctx context.Context, photoID string) ([]*model.ModerationEvent, error) {
	if s.events == nil {
		return []*model.ModerationEvent{}, nil
	}
	if photoID == "" {
		return nil, &NotFoundError{}
	}
	events, err := s.events.ByPhoto(ctx, photoID)
	if err != nil {
		return nil, fmt.Errorf("load history of %s: %w", photoID, err)
	}
	return events, nil
}

// RecentActivity returns the latest transitions across all photos.
func (s *ModerationService) RecentActivity(ctx context.Context, limit int) ([]*model.ModerationEvent, error) {
	if s.events == nil {
		return []*model.ModerationEvent{}, nil
	}
	events, err := s.events.Latest(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("load recent activity: %w", err)
	}
	return events, nil
}

func (s *ModerationService) resolveAll(ctx context.Context) (model.Folders, error) {
	if _, err := s.folders.Resolve(ctx, model.FolderApproved); err != nil {
		return model.Folders{}, err
	}
	if _, err := s.folders.Resolve(ctx, model.FolderRejected); err != nil {
		return model.Folders{}, err
	}
	if _, _, err := s.folders.Lookup(ctx, model.FolderPreview); err != nil {
		s.logger.Warn("preview folder lookup failed", "error", err)
	}
	return s.folders.Known(), nil
}

// publishVideos makes every listed video public. Failures are logged only.
func (s *ModerationService) publishVideos(ctx context.Context, photos []*model.Photo) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(publicGrantConcurrency)
	for _, p := range photos {
		if !p.IsVideo() {
			continue
		}
		g.Go(func() error {
			public, err := s.store.IsPublic(gctx, p.ID)
			if err == nil && public {
				return nil
			}
			if err := s.store.MakePublic(gctx, p.ID); err != nil {
				s.logger.Warn("failed to make video public", "photo_id", p.ID, "error", err)
			}
			return nil
		})
	}
	_ = g.Wait()
}

// record appends a transition to the audit log. Failures never undo the move.
func (s *ModerationService) record(ctx context.Context, photoID string, from, to model.State, actor string) {
	if s.events == nil {
		return
	}
	event := &model.ModerationEvent{
		ID:        uuid.New().String(),
		PhotoID:   photoID,
		FromState: from,
		ToState:   to,
		Actor:     actor,
		CreatedAt: s.now().UTC(),
	}
	if err := s.events.Append(context.WithoutCancel(ctx), event); err != nil {
		s.logger.Error("failed to record moderation event", "photo_id", photoID, "to", to, "error", err)
	}
}

// identityOf returns the service account behind store when it exposes one.
func identityOf(store drive.Store) string {
	if id, ok := store.(interface{ Identity() string }); ok {
		return id.Identity()
	}
	return ""
}
