// Package metrics defines custom Prometheus metrics for FormDrop.
package metrics

import (
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// registerOnce ensures Register() is idempotent.
var registerOnce sync.Once

// sizeBuckets are exponential buckets for request/file size histograms (bytes).
var sizeBuckets = []float64{256, 1024, 4096, 16384, 65536, 262144, 1048576, 4194304, 16777216, 67108864}

// HTTP metrics (RED: Rate, Errors, Duration).
var (
	// HTTPRequestsTotal counts total HTTP requests by method, path, and status.
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "formdrop_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration observes request latency in seconds by method and path.
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "formdrop_http_request_duration_seconds",
			Help:    "Request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// HTTPRequestSize observes request body size in bytes.
	HTTPRequestSize = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "formdrop_http_request_size_bytes",
			Help:    "Request body size in bytes",
			Buckets: sizeBuckets,
		},
		[]string{"method", "path"},
	)
)

// Upload pipeline metrics.
var (
	// UploadRequestsTotal counts upload requests by terminal outcome
	// (uploaded, partial, rejected, bad_request, too_large, error).
	UploadRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "formdrop_upload_requests_total",
			Help: "Upload requests by terminal outcome",
		},
		[]string{"outcome"},
	)

	// FilesUploadedTotal counts files successfully persisted.
	FilesUploadedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "formdrop_files_uploaded_total",
			Help: "Files successfully persisted to the uploads directory",
		},
	)

	// FilesRejectedTotal counts files refused by validation, by reason
	// (size, type).
	FilesRejectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "formdrop_files_rejected_total",
			Help: "Files rejected by validation",
		},
		[]string{"reason"},
	)

	// FileSizeBytes observes the size of each persisted file.
	FileSizeBytes = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "formdrop_file_size_bytes",
			Help:    "Size of persisted files in bytes",
			Buckets: sizeBuckets,
		},
	)

	// BytesPersistedTotal counts total bytes written to the uploads directory.
	BytesPersistedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "formdrop_bytes_persisted_total",
			Help: "Total bytes written to the uploads directory",
		},
	)
)

// Register registers all Prometheus collectors with the default registry.
// This must be called explicitly (typically from main) so that metrics
// registration can be made conditional on configuration. It is safe to call
// multiple times; subsequent calls are no-ops.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			HTTPRequestsTotal,
			HTTPRequestDuration,
			HTTPRequestSize,
			UploadRequestsTotal,
			FilesUploadedTotal,
			FilesRejectedTotal,
			FileSizeBytes,
			BytesPersistedTotal,
		)
		// Initialize UploadRequestsTotal so it appears in /metrics output
		// before the first upload has been processed.
		UploadRequestsTotal.WithLabelValues("uploaded")
	})
}

// NormalizePath maps actual request paths to normalized path templates
// suitable for use as Prometheus metric labels. This avoids high-cardinality
// labels from arbitrary request paths.
func NormalizePath(path string) string {
	switch path {
	case "/", "":
		return "/"
	case "/uploads":
		return "/uploads"
	case "/health", "/healthz":
		return "/health"
	case "/metrics":
		return "/metrics"
	case "/openapi.json":
		return "/openapi.json"
	}

	// Stoplight Elements assets under /docs.
	if strings.HasPrefix(path, "/docs") {
		return "/docs"
	}

	return "/other"
}
