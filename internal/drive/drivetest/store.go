// Package drivetest provides an in-memory drive.Store for tests.
package drivetest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/templui/photowall/internal/drive"
	"github.com/templui/photowall/internal/model"
)

// Identity is reported on injected permission failures.
const Identity = "photowall@test.iam.gserviceaccount.com"

type object struct {
	photo   model.Photo
	folder  bool
	public  bool
	trashed bool
	content []byte
	canEdit bool
}

// Store is a concurrency-safe fake. Objects are kept in creation order and
// listed newest first.
type Store struct {
	mu      sync.Mutex
	objects map[string]*object
	order   []string
	nextID  int
	now     func() time.Time

	// CreateDelay stalls CreateFolder to widen race windows.
	CreateDelay time.Duration

	failures map[string]error
	calls    map[string]int
}

var _ drive.Store = (*Store)(nil)

func New() *Store {
	base := time.Date(2024, 6, 10, 10, 0, 0, 0, time.UTC)
	n := 0
	return &Store{
		objects:  make(map[string]*object),
		failures: make(map[string]error),
		calls:    make(map[string]int),
		now: func() time.Time {
			n++
			return base.Add(time.Duration(n) * time.Second)
		},
	}
}

// Identity returns the service account name reported on failures.
func (s *Store) Identity() string {
	return Identity
}

// Fail makes every call of op return err until cleared with a nil err.
func (s *Store) Fail(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failures, op)
		return
	}
	s.failures[op] = err
}

// Calls returns how many times op was invoked.
func (s *Store) Calls(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

// AddFolder seeds a folder and returns its id.
func (s *Store) AddFolder(parentID, name string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addLocked(model.Photo{Name: name, MimeType: drive.FolderMimeType, Parents: parents(parentID)}, true, nil)
}

// AddFile seeds a file and returns its id.
func (s *Store) AddFile(parentID, name, mimeType string, content []byte) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addLocked(model.Photo{Name: name, MimeType: mimeType, Parents: parents(parentID)}, false, content)
}

// SetPublic overrides the public flag of id.
func (s *Store) SetPublic(id string, public bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o, ok := s.objects[id]; ok {
		o.public = public
	}
}

// SetReadOnly removes edit capabilities from a folder.
func (s *Store) SetReadOnly(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o, ok := s.objects[id]; ok {
		o.canEdit = false
	}
}

// SetLinks sets the download and thumbnail links of id.
func (s *Store) SetLinks(id, webContentLink, thumbnailLink string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o, ok := s.objects[id]; ok {
		o.photo.WebContentLink = webContentLink
		o.photo.ThumbnailLink = thumbnailLink
	}
}

// Trash marks id as trashed so listings skip it.
func (s *Store) Trash(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o, ok := s.objects[id]; ok {
		o.trashed = true
	}
}

// Parents returns the current parents of id.
func (s *Store) Parents(id string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.objects[id]
	if !ok {
		return nil
	}
	return append([]string(nil), o.photo.Parents...)
}

// IsPublicNow reports the public flag without counting a call.
func (s *Store) IsPublicNow(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.objects[id]
	return ok && o.public
}

// Exists reports whether id is present.
func (s *Store) Exists(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[id]
	return ok
}

// FoldersNamed returns the ids of folders named name under parentID.
func (s *Store) FoldersNamed(parentID, name string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	for _, id := range s.order {
		o := s.objects[id]
		if o.folder && o.photo.Name == name && o.photo.HasParent(parentID) {
			ids = append(ids, id)
		}
	}
	return ids
}

func (s *Store) FindFolders(ctx context.Context, parentID, name string) ([]drive.Folder, error) {
	if err := s.enter("FindFolders"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var folders []drive.Folder
	for _, id := range s.order {
		o := s.objects[id]
		if o.folder && !o.trashed && o.photo.Name == name && o.photo.HasParent(parentID) {
			folders = append(folders, drive.Folder{ID: id, Name: name, CanEdit: o.canEdit, CanAddChildren: o.canEdit})
		}
	}
	return folders, nil
}

func (s *Store) CreateFolder(ctx context.Context, parentID, name string) (drive.Folder, error) {
	if err := s.enter("CreateFolder"); err != nil {
		return drive.Folder{}, err
	}
	if s.CreateDelay > 0 {
		select {
		case <-time.After(s.CreateDelay):
		case <-ctx.Done():
			return drive.Folder{}, ctx.Err()
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objects[parentID]; !ok {
		return drive.Folder{}, notFound("create folder", parentID)
	}
	id := s.addLocked(model.Photo{Name: name, MimeType: drive.FolderMimeType, Parents: parents(parentID)}, true, nil)
	return drive.Folder{ID: id, Name: name, CanEdit: true, CanAddChildren: true}, nil
}

func (s *Store) GetFolder(ctx context.Context, id string) (*drive.Folder, error) {
	if err := s.enter("GetFolder"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.objects[id]
	if !ok || !o.folder {
		return nil, notFound("get folder", id)
	}
	return &drive.Folder{ID: id, Name: o.photo.Name, CanEdit: o.canEdit, CanAddChildren: o.canEdit}, nil
}

func (s *Store) ListFiles(ctx context.Context, opts drive.ListOptions) ([]*model.Photo, error) {
	if err := s.enter("ListFiles"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	prefixes := opts.MimePrefixes
	if len(prefixes) == 0 {
		prefixes = []string{"image/", "video/"}
	}

	var photos []*model.Photo
	for _, id := range s.order {
		o := s.objects[id]
		if o.folder || o.trashed || !o.photo.HasParent(opts.ParentID) || !hasPrefix(o.photo.MimeType, prefixes) {
			continue
		}
		p := o.photo
		p.Parents = append([]string(nil), o.photo.Parents...)
		photos = append(photos, &p)
	}
	sort.SliceStable(photos, func(i, j int) bool {
		return photos[i].CreatedTime.After(photos[j].CreatedTime)
	})
	return photos, nil
}

func (s *Store) GetFile(ctx context.Context, id string) (*model.Photo, error) {
	if err := s.enter("GetFile"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.objects[id]
	if !ok || o.folder {
		return nil, notFound("get file", id)
	}
	p := o.photo
	p.Parents = append([]string(nil), o.photo.Parents...)
	return &p, nil
}

func (s *Store) UploadFile(ctx context.Context, parentID, name, mimeType string, body io.Reader) (*model.Photo, error) {
	if err := s.enter("UploadFile"); err != nil {
		return nil, err
	}
	content, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("read upload body: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.objects[parentID]; !ok {
		return nil, notFound("upload file", parentID)
	}
	id := s.addLocked(model.Photo{Name: name, MimeType: mimeType, Parents: parents(parentID)}, false, content)
	p := s.objects[id].photo
	return &p, nil
}

func (s *Store) UpdateParents(ctx context.Context, id, add string, remove []string) error {
	if err := s.enter("UpdateParents"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.objects[id]
	if !ok {
		return notFound("update parents", id)
	}
	var next []string
	for _, p := range o.photo.Parents {
		if !contains(remove, p) && p != add {
			next = append(next, p)
		}
	}
	if add != "" {
		next = append(next, add)
	}
	o.photo.Parents = next
	return nil
}

func (s *Store) DeleteFile(ctx context.Context, id string) error {
	if err := s.enter("DeleteFile"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.objects[id]; !ok {
		return notFound("delete file", id)
	}
	delete(s.objects, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

func (s *Store) IsPublic(ctx context.Context, id string) (bool, error) {
	if err := s.enter("IsPublic"); err != nil {
		return false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.objects[id]
	if !ok {
		return false, notFound("list permissions", id)
	}
	return o.public, nil
}

func (s *Store) MakePublic(ctx context.Context, id string) error {
	if err := s.enter("MakePublic"); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.objects[id]
	if !ok {
		return notFound("make public", id)
	}
	o.public = true
	return nil
}

func (s *Store) Download(ctx context.Context, id string) (io.ReadCloser, error) {
	if err := s.enter("Download"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.objects[id]
	if !ok {
		return nil, notFound("download", id)
	}
	return io.NopCloser(bytes.NewReader(o.content)), nil
}

func (s *Store) enter(op string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[op]++
	return s.failures[op]
}

func (s *Store) addLocked(p model.Photo, folder bool, content []byte) string {
	s.nextID++
	id := fmt.Sprintf("obj%03d", s.nextID)
	p.ID = id
	p.CreatedTime = s.now()
	p.Size = int64(len(content))
	p.WebViewLink = "https://drive.google.com/file/d/" + id + "/view"
	s.objects[id] = &object{photo: p, folder: folder, content: content, canEdit: true}
	s.order = append(s.order, id)
	return id
}

func notFound(op, id string) error {
	return drive.NewError(op, drive.KindNotFound, Identity, errors.New("file not found: "+id))
}

// PermissionDenied returns an injected permission failure naming Identity.
func PermissionDenied(op string) error {
	return drive.NewError(op, drive.KindPermission, Identity, errors.New("insufficient permissions"))
}

func parents(parentID string) []string {
	if parentID == "" {
		return nil
	}
	return []string{parentID}
}

func hasPrefix(mimeType string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(mimeType, p) {
			return true
		}
	}
	return false
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
