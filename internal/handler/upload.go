package handler

import (
	"errors"
	"net/http"

	"github.com/templui/photowall/internal/service"
)

// multipart overhead allowed on top of the file size limit
const formOverhead = 1 << 20

type UploadHandler struct {
	uploads *service.UploadService
	respond *Responder
	maxSize int64
}

func NewUploadHandler(uploads *service.UploadService, respond *Responder, maxFileSizeMB int) *UploadHandler {
	return &UploadHandler{
		uploads: uploads,
		respond: respond,
		maxSize: int64(maxFileSizeMB) << 20,
	}
}

// Upload accepts a multipart form with a "photo" file and a "username" field.
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if !h.uploads.Configured() {
		h.respond.Error(w, r, service.ErrNotConfigured)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxSize+formOverhead)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.respond.Fail(w, http.StatusBadRequest, "INVALID_UPLOAD", "File too large")
			return
		}
		h.respond.Fail(w, http.StatusBadRequest, "INVALID_UPLOAD", "No photo provided")
		return
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	file, header, err := r.FormFile("photo")
	if err != nil {
		h.respond.Fail(w, http.StatusBadRequest, "INVALID_UPLOAD", "No photo provided")
		return
	}
	defer file.Close()

	result, err := h.uploads.Upload(r.Context(), service.UploadInput{
		DisplayName: r.FormValue("username"),
		Filename:    header.Filename,
		MimeType:    header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
	})
	if err != nil {
		h.respond.Error(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Success bool `json:"success"`
		*service.UploadResult
	}{Success: true, UploadResult: result})
}
