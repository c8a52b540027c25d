package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/templui/photowall/internal/ctxkeys"
	"github.com/templui/photowall/internal/drive"
	"github.com/templui/photowall/internal/service"
)

type errorBody struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details string `json:"details,omitempty"`
}

// Responder writes JSON bodies and maps service errors to status codes.
// Error details are only included when details is set (outside production).
type Responder struct {
	logger  *slog.Logger
	details bool
}

func NewResponder(logger *slog.Logger, details bool) *Responder {
	return &Responder{
		logger:  logger.With(slog.String("component", "http")),
		details: details,
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// Fail writes a client error that did not come from a service.
func (rs *Responder) Fail(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, errorBody{Error: msg, Code: code})
}

// Error maps err to a status and a user-facing message. Media handlers may
// have set content headers already; they are dropped.
func (rs *Responder) Error(w http.ResponseWriter, r *http.Request, err error) {
	status, code, msg := classify(err)

	h := w.Header()
	for _, name := range []string{"Content-Length", "Content-Range", "Content-Disposition", "Cache-Control", "Expires"} {
		h.Del(name)
	}

	attrs := []any{
		"method", r.Method,
		"path", r.URL.Path,
		"status", status,
		"code", code,
		"error", err,
		"request_id", ctxkeys.RequestID(r.Context()),
	}
	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
		rs.logger.Error("request failed", attrs...)
	} else {
		rs.logger.Warn("request failed", attrs...)
	}

	body := errorBody{Error: msg, Code: code}
	if rs.details {
		body.Details = err.Error()
	}
	writeJSON(w, status, body)
}

func classify(err error) (status int, code, msg string) {
	var nf *service.NotFoundError
	var de *drive.Error

	switch {
	case errors.Is(err, service.ErrNotConfigured):
		return http.StatusServiceUnavailable, "DRIVE_NOT_CONFIGURED",
			"Google Drive is not configured. Please contact the administrator."
	case errors.Is(err, service.ErrInvalidUpload):
		return http.StatusBadRequest, "INVALID_UPLOAD",
			strings.TrimPrefix(err.Error(), service.ErrInvalidUpload.Error()+": ")
	case errors.Is(err, service.ErrPreviewPhoto):
		return http.StatusConflict, "PREVIEW_PHOTO", "Preview photos cannot be approved or rejected"
	case errors.Is(err, service.ErrInvalidAction):
		return http.StatusBadRequest, "INVALID_ACTION", "Action must be approve or reject"
	case errors.As(err, &nf):
		if nf.PhotoID == "" {
			return http.StatusBadRequest, "MISSING_ID", "Photo id is required"
		}
		return http.StatusNotFound, "NOT_FOUND", "Photo not found"
	case errors.Is(err, service.ErrUpstream):
		return http.StatusBadGateway, "UPSTREAM_FAILED", "Could not fetch the file from Google Drive"
	case errors.As(err, &de):
		return classifyDrive(de)
	default:
		return http.StatusInternalServerError, "INTERNAL", "Internal server error"
	}
}

func classifyDrive(de *drive.Error) (int, string, string) {
	switch de.Kind {
	case drive.KindCredential:
		return http.StatusServiceUnavailable, "CREDENTIALS_INVALID",
			"Google Drive credentials are invalid or expired. Check the service account key."
	case drive.KindPermission:
		return http.StatusForbidden, "PERMISSION_DENIED", shareHint(de.Identity)
	case drive.KindQuota:
		return http.StatusForbidden, "QUOTA_EXCEEDED",
			"The Google Drive storage quota is exhausted. " + shareHint(de.Identity)
	case drive.KindNotFound:
		return http.StatusNotFound, "NOT_FOUND", "The Google Drive folder or file does not exist or is not accessible"
	case drive.KindBadRequest:
		return http.StatusBadRequest, "BAD_REQUEST", "Google Drive rejected the request. Check the configuration."
	case drive.KindUnavailable:
		return http.StatusServiceUnavailable, "DRIVE_UNAVAILABLE", "Google Drive is unavailable. Please try again."
	default:
		return http.StatusInternalServerError, "INTERNAL", "Internal server error"
	}
}

func shareHint(identity string) string {
	if identity == "" {
		return "Share the Google Drive folder with the service account."
	}
	return fmt.Sprintf("Share the Google Drive folder with the service account: %s", identity)
}
