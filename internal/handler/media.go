package handler

import (
	"net/http"

	"github.com/templui/photowall/internal/service"
)

// MediaHandler proxies images, videos and thumbnails so browsers never hit
// Drive directly.
type MediaHandler struct {
	media   *service.MediaService
	respond *Responder
}

func NewMediaHandler(media *service.MediaService, respond *Responder) *MediaHandler {
	return &MediaHandler{
		media:   media,
		respond: respond,
	}
}

func (h *MediaHandler) Image(w http.ResponseWriter, r *http.Request) {
	if err := h.media.Image(r.Context(), w, r.URL.Query().Get("id")); err != nil {
		h.respond.Error(w, r, err)
	}
}

// Video honours the Range header, answering 206 for satisfiable ranges.
func (h *MediaHandler) Video(w http.ResponseWriter, r *http.Request) {
	if err := h.media.Video(r.Context(), w, r.URL.Query().Get("id"), r.Header.Get("Range")); err != nil {
		h.respond.Error(w, r, err)
	}
}

func (h *MediaHandler) Thumbnail(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if err := h.media.Thumbnail(r.Context(), w, q.Get("id"), q.Get("size")); err != nil {
		h.respond.Error(w, r, err)
	}
}
