package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds every blurcam collector plus the process and Go runtime collectors.
var Registry = prometheus.NewRegistry()

var (
	// CommandsTotal counts dispatched commands by outcome.
	// result: started, done, rejected, or an error code such as DEVICE_BUSY.
	CommandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "blurcam_commands_total",
			Help: "Total number of control commands by command name and result.",
		},
		[]string{"command", "result"},
	)

	// SlotOccupied is 1 while the slot holds a running operation.
	SlotOccupied = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "blurcam_slot_occupied",
			Help: "Whether a task slot is currently occupied (1) or empty (0).",
		},
		[]string{"slot"},
	)

	// OperationDuration records how long each slot stayed occupied.
	OperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "blurcam_operation_duration_seconds",
			Help:    "Time an operation occupied its task slot.",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 300},
		},
		[]string{"slot"},
	)

	// UploadBytesTotal counts file bytes streamed by the upload adapter.
	UploadBytesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "blurcam_upload_bytes_total",
			Help: "Total number of file bytes streamed to upload destinations.",
		},
	)

	// PreviewFrameBytes is the size of the latest live preview frame.
	PreviewFrameBytes = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "blurcam_preview_frame_bytes",
			Help: "Size in bytes of the latest live preview frame.",
		},
	)
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		CommandsTotal,
		SlotOccupied,
		OperationDuration,
		UploadBytesTotal,
		PreviewFrameBytes,
	)
}

// Handler serves Registry in the prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry})
}
