package drive

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/jwt"
	gdrive "google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/templui/photowall/internal/model"
)

const (
	pageSize   = 100
	fileFields = "id, name, mimeType, parents, size, webViewLink, webContentLink, thumbnailLink, createdTime"
)

// Config holds the service credential used for every Drive call.
type Config struct {
	ServiceAccountEmail string
	PrivateKey          string        // PEM; literal "\n" sequences are expanded
	Endpoint            string        // Optional: overrides the Drive API base path
	Timeout             time.Duration // Optional: per-request HTTP timeout
}

// Client implements Store on top of the Drive v3 API.
type Client struct {
	svc      *gdrive.Service
	identity string
}

var _ Store = (*Client)(nil)

// New authenticates as a service account and returns a Drive-backed Store.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.ServiceAccountEmail == "" || cfg.PrivateKey == "" {
		return nil, fmt.Errorf("drive: service account email and private key are required")
	}

	jwtCfg := &jwt.Config{
		Email:      cfg.ServiceAccountEmail,
		PrivateKey: []byte(strings.ReplaceAll(cfg.PrivateKey, `\n`, "\n")),
		Scopes:     []string{gdrive.DriveScope},
		TokenURL:   google.JWTTokenURL,
	}

	hc := jwtCfg.Client(ctx)
	hc.Timeout = cfg.Timeout

	slog.Info("initializing drive client", "service_account", cfg.ServiceAccountEmail, "endpoint", cfg.Endpoint)
	return NewWithHTTPClient(ctx, hc, cfg.Endpoint, cfg.ServiceAccountEmail)
}

// NewWithHTTPClient builds a Client around an already authorized http.Client.
// identity is reported on permission and quota failures.
func NewWithHTTPClient(ctx context.Context, hc *http.Client, endpoint, identity string) (*Client, error) {
	opts := []option.ClientOption{option.WithHTTPClient(hc)}
	if endpoint != "" {
		opts = append(opts, option.WithEndpoint(endpoint))
	}

	svc, err := gdrive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("drive: create service: %w", err)
	}
	return &Client{svc: svc, identity: identity}, nil
}

// Identity returns the service account the client acts as.
func (c *Client) Identity() string {
	return c.identity
}

func (c *Client) FindFolders(ctx context.Context, parentID, name string) ([]Folder, error) {
	q := fmt.Sprintf("%s in parents and name = %s and mimeType = %s and trashed = false",
		quote(parentID), quote(name), quote(FolderMimeType))

	var folders []Folder
	err := c.svc.Files.List().
		Q(q).
		Fields("nextPageToken", "files(id, name)").
		PageSize(pageSize).
		SupportsAllDrives(true).
		IncludeItemsFromAllDrives(true).
		Pages(ctx, func(page *gdrive.FileList) error {
			for _, f := range page.Files {
				folders = append(folders, Folder{ID: f.Id, Name: f.Name})
			}
			return nil
		})
	if err != nil {
		return nil, classify("find folders", c.identity, err)
	}
	return folders, nil
}

func (c *Client) CreateFolder(ctx context.Context, parentID, name string) (Folder, error) {
	f, err := c.svc.Files.Create(&gdrive.File{
		Name:     name,
		MimeType: FolderMimeType,
		Parents:  []string{parentID},
	}).
		Fields("id, name").
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return Folder{}, classify("create folder", c.identity, err)
	}
	return Folder{ID: f.Id, Name: f.Name}, nil
}

func (c *Client) GetFolder(ctx context.Context, id string) (*Folder, error) {
	f, err := c.svc.Files.Get(id).
		Fields("id, name, capabilities(canEdit, canAddChildren)").
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return nil, classify("get folder", c.identity, err)
	}

	folder := &Folder{ID: f.Id, Name: f.Name}
	if f.Capabilities != nil {
		folder.CanEdit = f.Capabilities.CanEdit
		folder.CanAddChildren = f.Capabilities.CanAddChildren
	}
	return folder, nil
}

func (c *Client) ListFiles(ctx context.Context, opts ListOptions) ([]*model.Photo, error) {
	prefixes := opts.MimePrefixes
	if len(prefixes) == 0 {
		prefixes = []string{"image/", "video/"}
	}
	mimeClauses := make([]string, len(prefixes))
	for i, p := range prefixes {
		mimeClauses[i] = "mimeType contains " + quote(p)
	}
	q := fmt.Sprintf("%s in parents and trashed = false and (%s)",
		quote(opts.ParentID), strings.Join(mimeClauses, " or "))

	var photos []*model.Photo
	err := c.svc.Files.List().
		Q(q).
		Fields("nextPageToken", googleapi.Field("files("+fileFields+")")).
		OrderBy("createdTime desc").
		PageSize(pageSize).
		SupportsAllDrives(true).
		IncludeItemsFromAllDrives(true).
		Pages(ctx, func(page *gdrive.FileList) error {
			for _, f := range page.Files {
				photos = append(photos, toPhoto(f))
			}
			return nil
		})
	if err != nil {
		return nil, classify("list files", c.identity, err)
	}
	return photos, nil
}

func (c *Client) GetFile(ctx context.Context, id string) (*model.Photo, error) {
	f, err := c.svc.Files.Get(id).
		Fields(fileFields).
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return nil, classify("get file", c.identity, err)
	}
	return toPhoto(f), nil
}

func (c *Client) UploadFile(ctx context.Context, parentID, name, mimeType string, body io.Reader) (*model.Photo, error) {
	f, err := c.svc.Files.Create(&gdrive.File{
		Name:     name,
		MimeType: mimeType,
		Parents:  []string{parentID},
	}).
		Media(body, googleapi.ContentType(mimeType)).
		Fields(fileFields).
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return nil, classify("upload file", c.identity, err)
	}
	return toPhoto(f), nil
}

func (c *Client) UpdateParents(ctx context.Context, id, add string, remove []string) error {
	call := c.svc.Files.Update(id, &gdrive.File{}).
		Fields("id, parents").
		SupportsAllDrives(true).
		Context(ctx)
	if add != "" {
		call = call.AddParents(add)
	}
	if len(remove) > 0 {
		call = call.RemoveParents(strings.Join(remove, ","))
	}
	if _, err := call.Do(); err != nil {
		return classify("update parents", c.identity, err)
	}
	return nil
}

func (c *Client) DeleteFile(ctx context.Context, id string) error {
	err := c.svc.Files.Delete(id).
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	return classify("delete file", c.identity, err)
}

func (c *Client) IsPublic(ctx context.Context, id string) (bool, error) {
	list, err := c.svc.Permissions.List(id).
		Fields("permissions(id, type, role)").
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return false, classify("list permissions", c.identity, err)
	}
	for _, p := range list.Permissions {
		if p.Type == "anyone" && (p.Role == "reader" || p.Role == "writer" || p.Role == "commenter") {
			return true, nil
		}
	}
	return false, nil
}

func (c *Client) MakePublic(ctx context.Context, id string) error {
	_, err := c.svc.Permissions.Create(id, &gdrive.Permission{
		Type: "anyone",
		Role: "reader",
	}).
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	return classify("make public", c.identity, err)
}

func (c *Client) Download(ctx context.Context, id string) (io.ReadCloser, error) {
	resp, err := c.svc.Files.Get(id).
		SupportsAllDrives(true).
		Context(ctx).
		Download()
	if err != nil {
		return nil, classify("download", c.identity, err)
	}
	return resp.Body, nil
}

func toPhoto(f *gdrive.File) *model.Photo {
	p := &model.Photo{
		ID:             f.Id,
		Name:           f.Name,
		MimeType:       f.MimeType,
		Parents:        f.Parents,
		Size:           f.Size,
		WebViewLink:    f.WebViewLink,
		WebContentLink: f.WebContentLink,
		ThumbnailLink:  f.ThumbnailLink,
	}
	if t, err := time.Parse(time.RFC3339, f.CreatedTime); err == nil {
		p.CreatedTime = t
	}
	return p
}

// quote renders s as a single-quoted Drive query literal.
func quote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `'`, `\'`)
	return "'" + s + "'"
}
