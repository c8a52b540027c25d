package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	folderResolutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "photowall_folder_resolutions_total",
		Help: "Folder resolutions that reached the store, by outcome (adopted, created, error).",
	}, []string{"folder", "outcome"})

	folderDuplicatesRemovedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "photowall_folder_duplicates_removed_total",
		Help: "Duplicate managed folders deleted during resolution.",
	})

	moderationTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "photowall_moderation_transitions_total",
		Help: "Moderation transitions by action and result.",
	}, []string{"action", "result"})

	mediaRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "photowall_media_requests_total",
		Help: "Media proxy requests by asset kind and delivery path.",
	}, []string{"kind", "path"})

	mediaBytesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "photowall_media_bytes_total",
		Help: "Bytes streamed by the media proxy.",
	}, []string{"kind"})

	mediaDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "photowall_media_duration_seconds",
		Help:    "Time from request to end of streaming.",
		Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
	}, []string{"kind"})

	activeStreams = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "photowall_active_streams",
		Help: "Media responses currently being streamed.",
	})

	videoMetaCacheTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "photowall_video_meta_cache_total",
		Help: "Video metadata cache lookups by result (hit, miss).",
	}, []string{"result"})

	uploadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "photowall_uploads_total",
		Help: "Upload attempts by result.",
	}, []string{"result"})
)
