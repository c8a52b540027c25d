package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/sync/singleflight"

	"github.com/templui/photowall/internal/drive"
	"github.com/templui/photowall/internal/httprange"
	"github.com/templui/photowall/internal/model"
	"github.com/templui/photowall/internal/storage"
)

const (
	imageCacheControl = "public, max-age=604800, s-maxage=86400, stale-while-revalidate=86400"
	videoCacheControl = "public, max-age=3600, must-revalidate"
	imageMaxAge       = 7 * 24 * time.Hour

	defaultImageType = "image/jpeg"
	defaultVideoType = "video/mp4"

	mirrorTimeout = 10 * time.Minute
)

// ThumbnailSizes maps the size names accepted by the thumbnail proxy to the
// generator's size parameter.
var ThumbnailSizes = map[string]string{
	"small":  "w150-h150",
	"medium": "w400-h300",
	"large":  "w800-h600",
}

// MediaConfig configures the delivery proxy.
type MediaConfig struct {
	DownloadBaseURL  string        // anonymous download host
	ThumbnailBaseURL string        // public thumbnail generator host
	MetaCacheSize    int           // video metadata entries kept in memory
	MetaCacheTTL     time.Duration // lifetime of a cached entry
	Timeout          time.Duration // per upstream request; zero means none
}

// upstreamStatusError is a non-success status from an upstream fetch.
type upstreamStatusError struct {
	URL  string
	Code int
}

func (e *upstreamStatusError) Error() string {
	return fmt.Sprintf("upstream %s returned %d", e.URL, e.Code)
}

// MediaService streams images, videos and thumbnails from the store to
// clients. Image and thumbnail fetches are anonymous; video metadata and the
// full-download fallback use the service credential.
type MediaService struct {
	store   drive.Store
	mirror  storage.Mirror
	client  *http.Client
	breaker *gobreaker.CircuitBreaker[*http.Response]
	meta    *expirable.LRU[string, *model.Photo]
	logger  *slog.Logger

	downloadBase string
	thumbBase    string

	mirroring singleflight.Group
	pending   sync.WaitGroup
}

// NewMediaService builds the proxy. store and mirror may be nil: without a
// store only images can be served, without a mirror the video fallback
// downloads the whole file on every request.
func NewMediaService(store drive.Store, mirror storage.Mirror, cfg MediaConfig, logger *slog.Logger) *MediaService {
	logger = logger.With(slog.String("component", "media"))

	size := cfg.MetaCacheSize
	if size <= 0 {
		size = 256
	}

	breaker := gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:        "drive-public",
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// A missing file is the caller's problem, not an outage.
		IsSuccessful: func(err error) bool {
			var se *upstreamStatusError
			if errors.As(err, &se) {
				return se.Code < 500 && se.Code != http.StatusTooManyRequests
			}
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("upstream circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})

	return &MediaService{
		store:        store,
		mirror:       mirror,
		client:       &http.Client{Timeout: cfg.Timeout},
		breaker:      breaker,
		meta:         expirable.NewLRU[string, *model.Photo](size, nil, cfg.MetaCacheTTL),
		logger:       logger,
		downloadBase: strings.TrimSuffix(cfg.DownloadBaseURL, "/"),
		thumbBase:    strings.TrimSuffix(cfg.ThumbnailBaseURL, "/"),
	}
}

// Image streams an image through the anonymous download endpoint.
func (s *MediaService) Image(ctx context.Context, w http.ResponseWriter, id string) error {
	if id == "" {
		return &NotFoundError{}
	}
	start := time.Now()

	u := fmt.Sprintf("%s/download?id=%s&export=download", s.downloadBase, url.QueryEscape(id))
	resp, err := s.fetch(ctx, u, nil)
	if err != nil {
		mediaRequestsTotal.WithLabelValues("image", "error").Inc()
		return fmt.Errorf("%w: image %s: %v", ErrUpstream, id, err)
	}
	defer resp.Body.Close()
	mediaRequestsTotal.WithLabelValues("image", "download").Inc()

	h := w.Header()
	h.Set("Content-Type", contentType(resp.Header.Get("Content-Type"), defaultImageType))
	h.Set("Cache-Control", imageCacheControl)
	h.Set("Expires", time.Now().Add(imageMaxAge).UTC().Format(http.TimeFormat))
	if resp.ContentLength >= 0 {
		h.Set("Content-Length", strconv.FormatInt(resp.ContentLength, 10))
	}

	s.stream(w, "image", http.StatusOK, resp.Body, start)
	return nil
}

// Video streams a video honouring rangeHeader. It prefers the public content
// link, which supports ranges upstream, and falls back to the mirror or a
// full authenticated download sliced locally.
func (s *MediaService) Video(ctx context.Context, w http.ResponseWriter, id, rangeHeader string) error {
	if s.store == nil {
		return ErrNotConfigured
	}
	if id == "" {
		return &NotFoundError{}
	}
	start := time.Now()

	photo, err := s.videoMeta(ctx, id)
	if err != nil {
		mediaRequestsTotal.WithLabelValues("video", "error").Inc()
		return err
	}

	if photo.WebContentLink != "" {
		if s.serveLink(ctx, w, photo, rangeHeader, start) {
			mediaRequestsTotal.WithLabelValues("video", "link").Inc()
			return nil
		}
	}

	return s.serveFallback(ctx, w, photo, rangeHeader, start)
}

// Thumbnail streams a video thumbnail. size is one of ThumbnailSizes; unknown
// names use "large".
func (s *MediaService) Thumbnail(ctx context.Context, w http.ResponseWriter, id, size string) error {
	if s.store == nil {
		return ErrNotConfigured
	}
	if id == "" {
		return &NotFoundError{}
	}
	start := time.Now()

	sz, ok := ThumbnailSizes[size]
	if !ok {
		sz = ThumbnailSizes["large"]
	}

	var link string
	if photo, ok := s.meta.Get(id); ok {
		link = photo.ThumbnailLink
	} else if photo, err := s.store.GetFile(ctx, id); err == nil {
		link = photo.ThumbnailLink
	} else {
		s.logger.Debug("thumbnail metadata unavailable", "id", id, "error", err)
	}

	if link != "" {
		resp, err := s.fetch(ctx, link, nil)
		if err == nil {
			defer resp.Body.Close()
			mediaRequestsTotal.WithLabelValues("thumbnail", "link").Inc()
			s.writeThumbnail(w, resp, start)
			return nil
		}
		s.logger.Debug("thumbnail link failed, using generator", "id", id, "error", err)
	}

	u := fmt.Sprintf("%s/thumbnail?id=%s&sz=%s", s.thumbBase, url.QueryEscape(id), sz)
	resp, err := s.fetch(ctx, u, map[string]string{"Referer": s.thumbBase + "/"})
	if err != nil {
		mediaRequestsTotal.WithLabelValues("thumbnail", "error").Inc()
		return fmt.Errorf("%w: thumbnail %s: %v", ErrUpstream, id, err)
	}
	defer resp.Body.Close()
	mediaRequestsTotal.WithLabelValues("thumbnail", "generated").Inc()
	s.writeThumbnail(w, resp, start)
	return nil
}

// Wait blocks until background mirror uploads have finished.
func (s *MediaService) Wait() {
	s.pending.Wait()
}

// Purge drops everything held for a deleted photo: its cached metadata and
// the mirrored video object.
func (s *MediaService) Purge(ctx context.Context, id string) error {
	s.meta.Remove(id)
	if s.mirror == nil {
		return nil
	}
	if err := s.mirror.Delete(ctx, storage.VideoKey(id)); err != nil {
		return fmt.Errorf("delete mirrored video %s: %w", id, err)
	}
	return nil
}

// videoMeta returns metadata for a video, sharing it publicly first so the
// content link exists. Results are cached.
func (s *MediaService) videoMeta(ctx context.Context, id string) (*model.Photo, error) {
	if photo, ok := s.meta.Get(id); ok {
		videoMetaCacheTotal.WithLabelValues("hit").Inc()
		return photo, nil
	}
	videoMetaCacheTotal.WithLabelValues("miss").Inc()

	photo, err := s.store.GetFile(ctx, id)
	if err != nil {
		if drive.IsNotFound(err) {
			return nil, &NotFoundError{PhotoID: id, Err: err}
		}
		return nil, fmt.Errorf("video metadata %s: %w", id, err)
	}

	public, err := s.store.IsPublic(ctx, id)
	if err != nil {
		s.logger.Warn("failed to read video permissions", "id", id, "error", err)
	}
	if !public {
		if err := s.store.MakePublic(ctx, id); err != nil {
			s.logger.Warn("failed to make video public", "id", id, "error", err)
		} else if refreshed, err := s.store.GetFile(ctx, id); err == nil {
			photo = refreshed
		}
	}

	s.meta.Add(id, photo)
	return photo, nil
}

// serveLink proxies the public content link, forwarding the range. It reports
// false without writing anything when the link cannot be used.
func (s *MediaService) serveLink(ctx context.Context, w http.ResponseWriter, photo *model.Photo, rangeHeader string, start time.Time) bool {
	var header map[string]string
	if rangeHeader != "" {
		header = map[string]string{"Range": rangeHeader}
	}

	resp, err := s.fetch(ctx, photo.WebContentLink, header)
	if err != nil {
		s.logger.Debug("content link failed, using fallback", "id", photo.ID, "error", err)
		return false
	}
	defer resp.Body.Close()

	// Large files answer with an HTML confirmation page instead of content.
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "text/html") {
		s.logger.Debug("content link returned html, using fallback", "id", photo.ID)
		return false
	}

	// A ranged request must be answered with exactly that range.
	if rangeHeader != "" && resp.StatusCode != http.StatusPartialContent {
		s.logger.Debug("content link ignored range, using fallback", "id", photo.ID, "status", resp.StatusCode)
		return false
	}

	h := w.Header()
	h.Set("Content-Type", contentType(resp.Header.Get("Content-Type"), videoType(photo)))
	for _, name := range []string{"Content-Length", "Content-Range", "ETag", "Last-Modified"} {
		if v := resp.Header.Get(name); v != "" {
			h.Set(name, v)
		}
	}
	h.Set("Accept-Ranges", "bytes")
	setVideoHeaders(h)

	s.stream(w, "video", resp.StatusCode, resp.Body, start)
	return true
}

func (s *MediaService) serveFallback(ctx context.Context, w http.ResponseWriter, photo *model.Photo, rangeHeader string, start time.Time) error {
	key := storage.VideoKey(photo.ID)

	if s.mirror != nil {
		size, err := s.mirror.Stat(ctx, key)
		switch {
		case err == nil:
			mediaRequestsTotal.WithLabelValues("video", "mirror").Inc()
			return s.serveRange(w, photo, size, rangeHeader, start, func(r *httprange.Range) (io.ReadCloser, error) {
				return s.mirror.OpenRange(ctx, key, r)
			})
		case !errors.Is(err, storage.ErrNotMirrored):
			s.logger.Warn("mirror unavailable", "id", photo.ID, "error", err)
		}
	}

	body, err := s.store.Download(ctx, photo.ID)
	if err != nil {
		mediaRequestsTotal.WithLabelValues("video", "error").Inc()
		if drive.IsNotFound(err) {
			return &NotFoundError{PhotoID: photo.ID, Err: err}
		}
		return fmt.Errorf("download video %s: %w", photo.ID, err)
	}
	data, err := io.ReadAll(body)
	_ = body.Close()
	if err != nil {
		mediaRequestsTotal.WithLabelValues("video", "error").Inc()
		return fmt.Errorf("download video %s: %w", photo.ID, err)
	}
	mediaRequestsTotal.WithLabelValues("video", "download").Inc()

	if s.mirror != nil {
		s.mirrorAsync(key, videoType(photo), data)
	}

	return s.serveRange(w, photo, int64(len(data)), rangeHeader, start, func(r *httprange.Range) (io.ReadCloser, error) {
		if r == nil {
			return io.NopCloser(bytes.NewReader(data)), nil
		}
		return io.NopCloser(bytes.NewReader(data[r.Start : r.End+1])), nil
	})
}

// serveRange writes a single-range response for content of the given size.
// open is called with nil for the whole content.
func (s *MediaService) serveRange(
	w http.ResponseWriter,
	photo *model.Photo,
	size int64,
	rangeHeader string,
	start time.Time,
	open func(r *httprange.Range) (io.ReadCloser, error),
) error {
	h := w.Header()
	setVideoHeaders(h)
	h.Set("Accept-Ranges", "bytes")

	r, ranged, err := httprange.Parse(rangeHeader, size)
	if errors.Is(err, httprange.ErrUnsatisfiable) {
		h.Set("Content-Range", httprange.Unsatisfied(size))
		w.WriteHeader(http.StatusRequestedRangeNotSatisfiable)
		return nil
	}

	var sel *httprange.Range
	status := http.StatusOK
	length := size
	if ranged {
		sel = &r
		status = http.StatusPartialContent
		length = r.Length()
	}

	body, err := open(sel)
	if err != nil {
		return fmt.Errorf("open video %s: %w", photo.ID, err)
	}
	defer body.Close()

	h.Set("Content-Type", videoType(photo))
	h.Set("Content-Disposition", "inline")
	h.Set("Content-Length", strconv.FormatInt(length, 10))
	if ranged {
		h.Set("Content-Range", r.ContentRange(size))
	}

	s.stream(w, "video", status, body, start)
	return nil
}

// mirrorAsync stores data in the mirror once per id, off the request path.
func (s *MediaService) mirrorAsync(key, mimeType string, data []byte) {
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		_, _, _ = s.mirroring.Do(key, func() (any, error) {
			ctx, cancel := context.WithTimeout(context.Background(), mirrorTimeout)
			defer cancel()

			if _, err := s.mirror.Stat(ctx, key); err == nil {
				return nil, nil
			}
			err := s.mirror.Save(ctx, key, mimeType, bytes.NewReader(data), int64(len(data)))
			if err != nil {
				s.logger.Warn("failed to mirror video", "key", key, "error", err)
				return nil, err
			}
			s.logger.Info("video mirrored", "key", key, "bytes", len(data))
			return nil, nil
		})
	}()
}

func (s *MediaService) writeThumbnail(w http.ResponseWriter, resp *http.Response, start time.Time) {
	h := w.Header()
	h.Set("Content-Type", contentType(resp.Header.Get("Content-Type"), defaultImageType))
	h.Set("Cache-Control", videoCacheControl)
	h.Set("Access-Control-Allow-Origin", "*")
	if resp.ContentLength >= 0 {
		h.Set("Content-Length", strconv.FormatInt(resp.ContentLength, 10))
	}
	s.stream(w, "thumbnail", http.StatusOK, resp.Body, start)
}

// fetch performs an anonymous GET through the circuit breaker. Only 200 and
// 206 responses are returned.
func (s *MediaService) fetch(ctx context.Context, rawURL string, header map[string]string) (*http.Response, error) {
	return s.breaker.Execute(func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, err
		}
		for k, v := range header {
			req.Header.Set(k, v)
		}

		resp, err := s.client.Do(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
			_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
			_ = resp.Body.Close()
			return nil, &upstreamStatusError{URL: req.URL.Redacted(), Code: resp.StatusCode}
		}
		return resp, nil
	})
}

// stream writes status and copies body. Errors after the header is sent can
// only be logged.
func (s *MediaService) stream(w http.ResponseWriter, kind string, status int, body io.Reader, start time.Time) {
	activeStreams.Inc()
	defer activeStreams.Dec()

	w.WriteHeader(status)
	n, err := io.Copy(w, body)
	mediaBytesTotal.WithLabelValues(kind).Add(float64(n))
	mediaDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	if err != nil {
		s.logger.Warn("media stream interrupted", "kind", kind, "bytes", n, "error", err)
	}
}

func setVideoHeaders(h http.Header) {
	h.Set("Cache-Control", videoCacheControl)
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Access-Control-Allow-Methods", "GET, HEAD, OPTIONS")
	h.Set("Access-Control-Allow-Headers", "Range")
	h.Set("Access-Control-Expose-Headers", "Content-Length, Content-Range, Accept-Ranges")
}

func contentType(upstream, fallback string) string {
	if upstream == "" || upstream == "application/octet-stream" {
		return fallback
	}
	return upstream
}

func videoType(p *model.Photo) string {
	if p.MimeType != "" {
		return p.MimeType
	}
	return defaultVideoType
}
