package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/templui/photowall/internal/ctxkeys"
	"github.com/templui/photowall/internal/drive"
	"github.com/templui/photowall/internal/middleware"
	"github.com/templui/photowall/internal/model"
	"github.com/templui/photowall/internal/service"
)

const (
	msgNotConfigured = "Google Drive is not configured. Photos will appear here once they are uploaded."
	msgRootMissing   = "The Google Drive folder does not exist or is not accessible."

	imageThumbnailSize = "w300-h300"
	maxActivityLimit   = 200
)

// photoEntry is a photo as the wall and moderation clients render it.
type photoEntry struct {
	ID             string      `json:"id"`
	URL            string      `json:"url"`
	ThumbnailURL   string      `json:"thumbnailUrl"`
	FullURL        string      `json:"fullUrl"`
	AlternativeURL string      `json:"alternativeUrl"`
	Username       string      `json:"username"`
	Timestamp      time.Time   `json:"timestamp"`
	DriveURL       string      `json:"driveUrl"`
	Status         model.State `json:"status"`
	MimeType       string      `json:"mimeType"`
	IsVideo        bool        `json:"isVideo"`
	WebContentLink string      `json:"webContentLink,omitempty"`
}

type listResponse struct {
	Photos  []photoEntry `json:"photos"`
	Message string       `json:"message,omitempty"`
}

type PhotoHandler struct {
	moderation *service.ModerationService
	respond    *Responder
	password   string
	thumbBase  string
}

func NewPhotoHandler(moderation *service.ModerationService, respond *Responder, password, thumbnailBaseURL string) *PhotoHandler {
	return &PhotoHandler{
		moderation: moderation,
		respond:    respond,
		password:   password,
		thumbBase:  strings.TrimSuffix(thumbnailBaseURL, "/"),
	}
}

// Wall lists the public photo wall: approved photos with useApproved=true,
// the preview track otherwise. Failures degrade to an empty wall.
func (h *PhotoHandler) Wall(w http.ResponseWriter, r *http.Request) {
	if !h.moderation.Configured() {
		writeJSON(w, http.StatusOK, listResponse{Photos: []photoEntry{}, Message: msgNotConfigured})
		return
	}

	ctx := r.Context()
	if err := h.moderation.VerifyRoot(ctx); err != nil {
		h.respond.logger.Warn("root folder verification failed", "error", err)
		writeJSON(w, http.StatusOK, listResponse{Photos: []photoEntry{}, Message: rootMessage(err)})
		return
	}

	status := model.StatePreview
	list := h.moderation.ListPreview
	if r.URL.Query().Get("useApproved") == "true" {
		status = model.StateApproved
		list = h.moderation.ListApproved
	}

	photos, err := list(ctx)
	if err != nil {
		h.respond.logger.Warn("wall listing failed", "status", status, "error", err)
		writeJSON(w, http.StatusOK, listResponse{Photos: []photoEntry{}, Message: "Photos are temporarily unavailable."})
		return
	}
	writeJSON(w, http.StatusOK, listResponse{Photos: h.entries(photos, status)})
}

func (h *PhotoHandler) Pending(w http.ResponseWriter, r *http.Request) {
	h.moderatorList(w, r, model.StatePending, h.moderation.ListPending)
}

// Approved lists the approved folder for moderators.
func (h *PhotoHandler) Approved(w http.ResponseWriter, r *http.Request) {
	h.moderatorList(w, r, model.StateApproved, h.moderation.ListApproved)
}

func (h *PhotoHandler) Rejected(w http.ResponseWriter, r *http.Request) {
	h.moderatorList(w, r, model.StateRejected, h.moderation.ListRejected)
}

func (h *PhotoHandler) moderatorList(
	w http.ResponseWriter,
	r *http.Request,
	status model.State,
	list func(ctx context.Context) ([]*model.Photo, error),
) {
	if !h.moderation.Configured() {
		writeJSON(w, http.StatusOK, listResponse{Photos: []photoEntry{}, Message: msgNotConfigured})
		return
	}

	ctx := r.Context()
	if err := h.moderation.VerifyRoot(ctx); err != nil {
		h.respond.logger.Warn("root folder verification failed", "error", err)
		writeJSON(w, http.StatusOK, listResponse{Photos: []photoEntry{}, Message: rootMessage(err)})
		return
	}

	photos, err := list(ctx)
	if err != nil {
		h.respond.Error(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse{Photos: h.entries(photos, status)})
}

type moderateRequest struct {
	PhotoID  string `json:"photoId"`
	Action   string `json:"action"`
	Password string `json:"password"`
}

type moderateResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Moderate approves or rejects one photo. The password may come in the body
// or the moderator header.
func (h *PhotoHandler) Moderate(w http.ResponseWriter, r *http.Request) {
	var req moderateRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&req); err != nil {
		h.respond.Fail(w, http.StatusBadRequest, "INVALID_BODY", "Invalid JSON body")
		return
	}

	password := req.Password
	if password == "" {
		password = r.Header.Get(middleware.ModeratorPasswordHeader)
	}
	if !middleware.ValidModeratorPassword(h.password, password) {
		h.respond.Fail(w, http.StatusUnauthorized, "UNAUTHORIZED", "Incorrect moderation password")
		return
	}

	var done string
	switch req.Action {
	case model.ActionApprove:
		done = "Photo approved"
	case model.ActionReject:
		done = "Photo rejected"
	default:
		h.respond.Fail(w, http.StatusBadRequest, "INVALID_ACTION", "Action must be approve or reject")
		return
	}

	if !h.moderation.Configured() {
		writeJSON(w, http.StatusOK, moderateResponse{Success: true, Message: done + " (demo mode)"})
		return
	}

	actor := middleware.ModeratorName(r)
	if err := h.moderation.Moderate(r.Context(), req.PhotoID, req.Action, actor); err != nil {
		h.respond.Error(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, moderateResponse{Success: true, Message: done})
}

// MakePublic grants public read access to every pending photo.
func (h *PhotoHandler) MakePublic(w http.ResponseWriter, r *http.Request) {
	result, err := h.moderation.MakePendingPublic(r.Context())
	if err != nil {
		h.respond.Error(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Success bool `json:"success"`
		service.PublishResult
	}{Success: true, PublishResult: result})
}

// History lists the recorded transitions of one photo.
func (h *PhotoHandler) History(w http.ResponseWriter, r *http.Request) {
	events, err := h.moderation.History(r.Context(), r.PathValue("id"))
	if err != nil {
		h.respond.Error(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}

// Activity lists the latest transitions across all photos.
func (h *PhotoHandler) Activity(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			h.respond.Fail(w, http.StatusBadRequest, "INVALID_LIMIT", "limit must be a positive integer")
			return
		}
		limit = min(n, maxActivityLimit)
	}

	events, err := h.moderation.RecentActivity(r.Context(), limit)
	if err != nil {
		h.respond.Error(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"events":    events,
		"moderator": ctxkeys.Moderator(r.Context()),
	})
}

func (h *PhotoHandler) entries(photos []*model.Photo, status model.State) []photoEntry {
	entries := make([]photoEntry, 0, len(photos))
	for _, p := range photos {
		entries = append(entries, h.entry(p, status))
	}
	return entries
}

// entry points media at the proxy routes so browsers never talk to Drive
// directly.
func (h *PhotoHandler) entry(p *model.Photo, status model.State) photoEntry {
	id := url.QueryEscape(p.ID)
	e := photoEntry{
		ID:        p.ID,
		Username:  p.Username(),
		Timestamp: p.CreatedTime,
		DriveURL:  p.WebViewLink,
		Status:    status,
		MimeType:  p.MimeType,
		IsVideo:   p.IsVideo(),
	}
	if e.MimeType == "" {
		e.MimeType = "image/jpeg"
	}

	if e.IsVideo {
		e.URL = "/api/photos/video?id=" + id
		e.ThumbnailURL = "/api/photos/thumbnail?id=" + id
		e.AlternativeURL = p.WebContentLink
		if e.AlternativeURL == "" {
			e.AlternativeURL = e.URL
		}
		e.WebContentLink = p.WebContentLink
	} else {
		e.URL = "/api/photos/image?id=" + id
		e.ThumbnailURL = p.ThumbnailLink
		if e.ThumbnailURL == "" {
			e.ThumbnailURL = h.thumbBase + "/thumbnail?id=" + id + "&sz=" + imageThumbnailSize
		}
		e.AlternativeURL = h.thumbBase + "/file/d/" + id + "/view?usp=sharing"
	}
	e.FullURL = e.URL
	return e
}

// rootMessage explains a failed root verification, naming the service
// account when it lacks access.
func rootMessage(err error) string {
	var de *drive.Error
	if errors.As(err, &de) && (de.Kind == drive.KindPermission || de.Kind == drive.KindQuota) {
		return shareHint(de.Identity)
	}
	return msgRootMissing
}
