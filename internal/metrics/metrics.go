package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MediaFilesUploaded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gigboard_media_files_uploaded_total",
			Help: "Files stored successfully, by media type",
		},
		[]string{"media_type", "usage"},
	)

	MediaFilesRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gigboard_media_files_rejected_total",
			Help: "Files rejected by validation before upload",
		},
		[]string{"reason"},
	)

	MediaUploadFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gigboard_media_upload_failures_total",
			Help: "Files that passed validation but failed to upload",
		},
		[]string{"usage"},
	)

	MediaUploadBytes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gigboard_media_upload_bytes_total",
			Help: "Bytes written to storage",
		},
		[]string{"media_type"},
	)

	MediaBatchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gigboard_media_batch_duration_seconds",
			Help:    "Duration of a batch upload in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"usage"},
	)

	ScreeningResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gigboard_screening_results_total",
			Help: "Screened applications by outcome",
		},
		[]string{"outcome"},
	)

	WebsocketClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gigboard_websocket_clients",
			Help: "Connected websocket clients",
		},
	)

	WorkerRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gigboard_worker_runs_total",
			Help: "Background worker runs by result",
		},
		[]string{"worker", "result"},
	)
)

// ScreeningOutcome - значение метки outcome
func ScreeningOutcome(passed bool) string {
	if passed {
		return "passed"
	}
	return "flagged"
}
