package model

import (
	"strconv"
	"strings"
	"time"
)

// Folder names under the root Drive folder. Case sensitive.
const (
	FolderApproved = "aprobadas"
	FolderRejected = "rechazadas"
	FolderPreview  = "previa"
)

// State is the moderation state of a photo, derived from the folder that holds it.
type State string

const (
	StatePending  State = "pending"
	StateApproved State = "approved"
	StateRejected State = "rejected"
	StatePreview  State = "preview"
	StateDeleted  State = "deleted"
	StateUnknown  State = "unknown"
)

const DefaultUsername = "Guest"

// Photo is a file stored in the root folder or one of its state folders.
type Photo struct {
	ID             string
	Name           string
	MimeType       string
	Parents        []string
	Size           int64
	WebViewLink    string
	WebContentLink string
	ThumbnailLink  string
	CreatedTime    time.Time
}

func (p *Photo) IsVideo() bool {
	return strings.HasPrefix(p.MimeType, "video/")
}

// Username returns the uploader display name encoded in the object name.
func (p *Photo) Username() string {
	return ParseUsername(p.Name)
}

// HasParent reports whether folderID is one of the photo's parents.
func (p *Photo) HasParent(folderID string) bool {
	if folderID == "" {
		return false
	}
	for _, parent := range p.Parents {
		if parent == folderID {
			return true
		}
	}
	return false
}

// Folders holds the resolved ids used to derive a State.
// Empty ids mean the folder is unknown or absent.
type Folders struct {
	Root     string
	Approved string
	Rejected string
	Preview  string
}

// StateOf derives the moderation state from folder membership.
// State folders win over the root so that a dual membership left behind by a
// failed move still reports the destination.
func StateOf(p *Photo, f Folders) State {
	switch {
	case p.HasParent(f.Rejected):
		return StateRejected
	case p.HasParent(f.Approved):
		return StateApproved
	case p.HasParent(f.Preview):
		return StatePreview
	case p.HasParent(f.Root):
		return StatePending
	default:
		return StateUnknown
	}
}

// ObjectName builds the stored name "<username>_<epochMillis>_<filename>".
func ObjectName(username string, uploadedAt time.Time, filename string) string {
	var b strings.Builder
	b.WriteString(username)
	b.WriteByte('_')
	b.WriteString(strconv.FormatInt(uploadedAt.UnixMilli(), 10))
	b.WriteByte('_')
	b.WriteString(filename)
	return b.String()
}

// ParseUsername recovers the display name from a stored object name: the
// first underscore-delimited segment. A display name that itself contains an
// underscore is truncated at it.
func ParseUsername(name string) string {
	username, _, _ := strings.Cut(name, "_")
	if username == "" {
		return DefaultUsername
	}
	return username
}
