package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BatchesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "image_downloader_batches_total",
		Help: "Total number of batches run",
	})

	BatchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "image_downloader_batch_duration_seconds",
		Help:    "Batch wall-clock duration in seconds",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 180, 300},
	})

	FetchAttempts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "image_downloader_fetch_attempts_total",
		Help: "Total number of HTTP fetch attempts",
	})

	FetchAttemptFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "image_downloader_fetch_attempt_failures_total",
		Help: "Total number of fetch attempts that failed in transport",
	})

	DownloadsAccepted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "image_downloader_downloads_accepted_total",
		Help: "Total number of images accepted and stored",
	})

	DownloadsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "image_downloader_downloads_rejected_total",
		Help: "Total number of rejected downloads by reason",
	}, []string{"reason"})

	DownloadsAbandoned = promauto.NewCounter(prometheus.CounterOpts{
		Name: "image_downloader_downloads_abandoned_total",
		Help: "Total number of downloads still running at the batch deadline",
	})

	DownloadBytes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "image_downloader_download_bytes_total",
		Help: "Total bytes received in response bodies",
	})
)
