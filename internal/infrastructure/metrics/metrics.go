package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "taskpilot",
			Subsystem: "file_api",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "taskpilot",
			Subsystem: "file_api",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"method", "endpoint"},
	)

	UploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "taskpilot",
			Subsystem: "file_api",
			Name:      "uploads_total",
			Help:      "Total file uploads",
		},
		[]string{"category", "status"},
	)

	UploadBytesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "taskpilot",
			Subsystem: "file_api",
			Name:      "upload_bytes_total",
			Help:      "Total bytes uploaded",
		},
		[]string{"category"},
	)

	DownloadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "taskpilot",
			Subsystem: "file_api",
			Name:      "downloads_total",
			Help:      "Total file downloads",
		},
		[]string{"status"},
	)

	ValidationRejectsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "taskpilot",
			Subsystem: "file_api",
			Name:      "validation_rejects_total",
			Help:      "Uploads rejected by the ingest validator",
		},
		[]string{"reason"},
	)

	SweepDeletedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "taskpilot",
			Subsystem: "file_api",
			Name:      "sweep_deleted_total",
			Help:      "Attachments removed by retention sweeps",
		},
	)

	SweepFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "taskpilot",
			Subsystem: "file_api",
			Name:      "sweep_failures_total",
			Help:      "Per-record failures during retention sweeps",
		},
	)
)

// RecordRequest records an HTTP request.
func RecordRequest(method, endpoint, status string, durationSec float64) {
	RequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	RequestDuration.WithLabelValues(method, endpoint).Observe(durationSec)
}

// RecordUpload records a file upload outcome.
func RecordUpload(category, status string, bytes int64) {
	UploadsTotal.WithLabelValues(category, status).Inc()
	if status == "success" {
		UploadBytesTotal.WithLabelValues(category).Add(float64(bytes))
	}
}

// RecordValidationReject records an upload rejected before storage.
func RecordValidationReject(reason string) {
	ValidationRejectsTotal.WithLabelValues(reason).Inc()
}

// RecordSweep records one sweep's outcome.
func RecordSweep(deleted, failures int) {
	SweepDeletedTotal.Add(float64(deleted))
	SweepFailuresTotal.Add(float64(failures))
}
