package service

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"

	"github.com/templui/photowall/internal/drive"
	"github.com/templui/photowall/internal/drive/drivetest"
	"github.com/templui/photowall/internal/model"
)

type memoryEvents struct {
	mu     sync.Mutex
	events []*model.ModerationEvent
	err    error
}

func (m *memoryEvents) Append(ctx context.Context, e *model.ModerationEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, e)
	return nil
}

func (m *memoryEvents) ByPhoto(ctx context.Context, photoID string) ([]*model.ModerationEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*model.ModerationEvent{}
	for _, e := range m.events {
		if e.PhotoID == photoID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memoryEvents) Latest(ctx context.Context, limit int) ([]*model.ModerationEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := slices.Clone(m.events)
	slices.Reverse(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func newTestModeration(t *testing.T) (*ModerationService, *drivetest.Store, string, *memoryEvents) {
	t.Helper()
	store, root := newTestStore(t)
	events := &memoryEvents{}
	svc := NewModerationService(store, NewFolderRegistry(store, root, testLogger()), events, testLogger())
	return svc, store, root, events
}

func TestApproveThenRejectIsExclusive(t *testing.T) {
	svc, store, root, _ := newTestModeration(t)
	ctx := context.Background()
	photo := store.AddFile(root, "Ana_1718000000000_a.jpg", "image/jpeg", []byte("jpeg"))

	if err := svc.Approve(ctx, photo, "mod"); err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if err := svc.Reject(ctx, photo, "mod"); err != nil {
		t.Fatalf("Reject: %v", err)
	}

	folders := svc.folders.Known()
	parents := store.Parents(photo)
	if !slices.Contains(parents, folders.Rejected) {
		t.Errorf("parents %v missing rejected %s", parents, folders.Rejected)
	}
	if slices.Contains(parents, folders.Approved) || slices.Contains(parents, root) {
		t.Errorf("parents %v still contain approved or root", parents)
	}
	if len(parents) != 1 {
		t.Errorf("parents = %v, want exactly one", parents)
	}
}

func TestApprovedPhotoLeavesPendingListing(t *testing.T) {
	svc, store, root, _ := newTestModeration(t)
	ctx := context.Background()
	a := store.AddFile(root, "Ana_1_a.jpg", "image/jpeg", []byte("a"))
	b := store.AddFile(root, "Luis_2_b.jpg", "image/jpeg", []byte("b"))

	if err := svc.Approve(ctx, a, "mod"); err != nil {
		t.Fatalf("Approve: %v", err)
	}

	pending, err := svc.ListPending(ctx)
	if err != nil {
		t.Fatalf("ListPending: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != b {
		t.Fatalf("pending = %v, want [%s]", photoIDs(pending), b)
	}

	approved, err := svc.ListApproved(ctx)
	if err != nil {
		t.Fatalf("ListApproved: %v", err)
	}
	if len(approved) != 1 || approved[0].ID != a {
		t.Fatalf("approved = %v, want [%s]", photoIDs(approved), a)
	}
}

func TestPendingExcludesDualMembership(t *testing.T) {
	svc, store, root, _ := newTestModeration(t)
	ctx := context.Background()
	approvedID, err := svc.folders.Resolve(ctx, model.FolderApproved)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	p := store.AddFile(root, "Ana_1_a.jpg", "image/jpeg", []byte("a"))
	// Left behind by a half-applied move.
	if err := store.UpdateParents(ctx, p, approvedID, nil); err != nil {
		t.Fatalf("UpdateParents: %v", err)
	}

	pending, err := svc.ListPending(ctx)
	if err != nil {
		t.Fatalf("ListPending: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("pending = %v, want none", photoIDs(pending))
	}
}

func TestPendingListsImagesOnlyNewestFirst(t *testing.T) {
	svc, store, root, _ := newTestModeration(t)
	older := store.AddFile(root, "Ana_1_a.jpg", "image/jpeg", []byte("a"))
	store.AddFile(root, "Ana_2_clip.mp4", "video/mp4", []byte("v"))
	newer := store.AddFile(root, "Ana_3_b.png", "image/png", []byte("b"))
	trashed := store.AddFile(root, "Ana_4_c.png", "image/png", []byte("c"))
	store.Trash(trashed)

	pending, err := svc.ListPending(context.Background())
	if err != nil {
		t.Fatalf("ListPending: %v", err)
	}
	if got := photoIDs(pending); !slices.Equal(got, []string{newer, older}) {
		t.Errorf("pending = %v, want [%s %s]", got, newer, older)
	}
}

func TestRestoreRejectedToApproved(t *testing.T) {
	svc, store, root, events := newTestModeration(t)
	ctx := context.Background()
	p := store.AddFile(root, "Ana_1_a.jpg", "image/jpeg", []byte("a"))

	if err := svc.Reject(ctx, p, "mod"); err != nil {
		t.Fatalf("Reject: %v", err)
	}
	if err := svc.Approve(ctx, p, "lead"); err != nil {
		t.Fatalf("Approve: %v", err)
	}

	state, err := svc.PhotoState(ctx, p)
	if err != nil {
		t.Fatalf("PhotoState: %v", err)
	}
	if state != model.StateApproved {
		t.Errorf("state = %s, want approved", state)
	}

	history, _ := events.ByPhoto(ctx, p)
	if len(history) != 2 {
		t.Fatalf("history has %d events, want 2", len(history))
	}
	if history[0].FromState != model.StatePending || history[0].ToState != model.StateRejected {
		t.Errorf("first event = %s -> %s", history[0].FromState, history[0].ToState)
	}
	if history[1].FromState != model.StateRejected || history[1].ToState != model.StateApproved || history[1].Actor != "lead" {
		t.Errorf("second event = %+v", history[1])
	}
}

func TestApproveIsIdempotent(t *testing.T) {
	svc, store, root, _ := newTestModeration(t)
	ctx := context.Background()
	p := store.AddFile(root, "Ana_1_a.jpg", "image/jpeg", []byte("a"))

	for range 2 {
		if err := svc.Approve(ctx, p, "mod"); err != nil {
			t.Fatalf("Approve: %v", err)
		}
	}
	if got := store.Calls("UpdateParents"); got != 1 {
		t.Errorf("UpdateParents called %d times, want 1", got)
	}
}

func TestModerationNotFound(t *testing.T) {
	svc, _, _, _ := newTestModeration(t)
	ctx := context.Background()

	var nf *NotFoundError
	if err := svc.Approve(ctx, "", "mod"); !errors.As(err, &nf) {
		t.Errorf("empty id: err = %v, want NotFoundError", err)
	}
	if err := svc.Reject(ctx, "missing", "mod"); !errors.As(err, &nf) || nf.PhotoID != "missing" {
		t.Errorf("missing id: err = %v, want NotFoundError", err)
	}
}

func TestModerationTransitionError(t *testing.T) {
	svc, store, root, events := newTestModeration(t)
	p := store.AddFile(root, "Ana_1_a.jpg", "image/jpeg", []byte("a"))
	store.Fail("UpdateParents", drive.NewError("update parents", drive.KindUnavailable, "", errors.New("503")))

	err := svc.Approve(context.Background(), p, "mod")
	var te *TransitionError
	if !errors.As(err, &te) {
		t.Fatalf("err = %v, want TransitionError", err)
	}
	if te.To != model.StateApproved {
		t.Errorf("To = %s", te.To)
	}
	if len(events.events) != 0 {
		t.Error("failed transition was recorded")
	}
}

func TestPreviewPhotosAreNotModerated(t *testing.T) {
	svc, store, root, events := newTestModeration(t)
	ctx := context.Background()
	preview := store.AddFolder(root, model.FolderPreview)
	p := store.AddFile(preview, "Ana_1_a.jpg", "image/jpeg", []byte("a"))

	for _, action := range []string{model.ActionApprove, model.ActionReject} {
		err := svc.Moderate(ctx, p, action, "mod")
		if !errors.Is(err, ErrPreviewPhoto) {
			t.Errorf("%s: err = %v, want ErrPreviewPhoto", action, err)
		}
	}

	if parents := store.Parents(p); len(parents) != 1 || parents[0] != preview {
		t.Errorf("parents = %v, want only the preview folder", parents)
	}
	if store.Calls("UpdateParents") != 0 {
		t.Error("preview photo was moved")
	}
	state, err := svc.PhotoState(ctx, p)
	if err != nil || state != model.StatePreview {
		t.Errorf("state = %s, %v", state, err)
	}
	if len(events.events) != 0 {
		t.Error("refused transition was recorded")
	}
}

func TestAuditFailureDoesNotFailTransition(t *testing.T) {
	svc, store, root, events := newTestModeration(t)
	events.err = errors.New("disk full")
	p := store.AddFile(root, "Ana_1_a.jpg", "image/jpeg", []byte("a"))

	if err := svc.Approve(context.Background(), p, "mod"); err != nil {
		t.Fatalf("Approve: %v", err)
	}
}

func TestModerateRejectsUnknownAction(t *testing.T) {
	svc, _, _, _ := newTestModeration(t)
	if err := svc.Moderate(context.Background(), "p", "publish", "mod"); !errors.Is(err, ErrInvalidAction) {
		t.Errorf("err = %v, want ErrInvalidAction", err)
	}
}

func TestListApprovedMakesVideosPublic(t *testing.T) {
	svc, store, _, _ := newTestModeration(t)
	ctx := context.Background()
	approvedID, err := svc.folders.Resolve(ctx, model.FolderApproved)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	video := store.AddFile(approvedID, "Ana_1_clip.mp4", "video/mp4", []byte("v"))
	image := store.AddFile(approvedID, "Ana_2_a.jpg", "image/jpeg", []byte("a"))

	photos, err := svc.ListApproved(ctx)
	if err != nil {
		t.Fatalf("ListApproved: %v", err)
	}
	if len(photos) != 2 {
		t.Fatalf("got %d photos, want 2", len(photos))
	}
	if !store.IsPublicNow(video) {
		t.Error("video was not made public")
	}
	if store.IsPublicNow(image) {
		t.Error("images are not touched by the listing")
	}
}

func TestListPreviewAbsentOrFailingIsEmpty(t *testing.T) {
	svc, store, root, _ := newTestModeration(t)
	ctx := context.Background()

	photos, err := svc.ListPreview(ctx)
	if err != nil || len(photos) != 0 {
		t.Fatalf("absent preview = %v, %v; want empty, nil", photos, err)
	}

	preview := store.AddFolder(root, model.FolderPreview)
	store.AddFile(preview, "Ana_1_a.jpg", "image/jpeg", []byte("a"))
	photos, err = svc.ListPreview(ctx)
	if err != nil || len(photos) != 1 {
		t.Fatalf("preview = %v, %v; want one photo", photos, err)
	}

	store.Fail("ListFiles", errors.New("boom"))
	photos, err = svc.ListPreview(ctx)
	if err != nil || len(photos) != 0 {
		t.Fatalf("failing preview = %v, %v; want empty, nil", photos, err)
	}
}

func TestVerifyRoot(t *testing.T) {
	svc, store, root, _ := newTestModeration(t)
	ctx := context.Background()

	if err := svc.VerifyRoot(ctx); err != nil {
		t.Fatalf("VerifyRoot: %v", err)
	}

	store.SetReadOnly(root)
	err := svc.VerifyRoot(ctx)
	if drive.KindOf(err) != drive.KindPermission {
		t.Fatalf("err = %v, want permission", err)
	}
	var de *drive.Error
	if errors.As(err, &de) && de.Identity != drivetest.Identity {
		t.Errorf("Identity = %q, want %q", de.Identity, drivetest.Identity)
	}
}

func TestMakePendingPublic(t *testing.T) {
	svc, store, root, _ := newTestModeration(t)
	a := store.AddFile(root, "Ana_1_a.jpg", "image/jpeg", []byte("a"))
	b := store.AddFile(root, "Ana_2_b.jpg", "image/jpeg", []byte("b"))

	result, err := svc.MakePendingPublic(context.Background())
	if err != nil {
		t.Fatalf("MakePendingPublic: %v", err)
	}
	if result.Total != 2 || result.Published != 2 || result.Failed != 0 {
		t.Errorf("result = %+v", result)
	}
	if !store.IsPublicNow(a) || !store.IsPublicNow(b) {
		t.Error("pending photos were not made public")
	}
}

func TestDeleteRecordsEvent(t *testing.T) {
	svc, store, root, _ := newTestModeration(t)
	ctx := context.Background()
	p := store.AddFile(root, "Ana_1_a.jpg", "image/jpeg", []byte("a"))

	if err := svc.Delete(ctx, p, "ops"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if store.Exists(p) {
		t.Error("photo still exists")
	}
	history, _ := svc.History(ctx, p)
	if len(history) != 1 || history[0].ToState != model.StateDeleted {
		t.Errorf("history = %+v", history)
	}
}

func TestModerationNotConfigured(t *testing.T) {
	svc := NewModerationService(nil, NewFolderRegistry(nil, "", testLogger()), nil, testLogger())
	ctx := context.Background()

	if err := svc.Approve(ctx, "p", "mod"); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("Approve: %v", err)
	}
	if _, err := svc.ListPending(ctx); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("ListPending: %v", err)
	}
	if _, err := svc.ListApproved(ctx); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("ListApproved: %v", err)
	}
}

func photoIDs(photos []*model.Photo) []string {
	ids := make([]string, len(photos))
	for i, p := range photos {
		ids[i] = p.ID
	}
	return ids
}
