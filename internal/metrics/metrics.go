package metrics

import (
	"math"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Pipeline stages reported in the latency histogram.
const (
	StageRead       = "read"
	StagePreprocess = "preprocess"
	StageInfer      = "infer"
	StageDecode     = "decode"
	StageRender     = "render"
	StageShow       = "show"
)

// Metrics holds the frame pipeline metrics
type Metrics struct {
	// Frame counters
	FramesCaptured  atomic.Uint64
	FramesProcessed atomic.Uint64
	EmptyFrames     atomic.Uint64

	// Error counters
	InferenceErrors atomic.Uint64
	DecodeErrors    atomic.Uint64

	// Last instantaneous frame rate, stored as float64 bits
	currentFPS atomic.Uint64

	stageLatency *prometheus.HistogramVec

	// Prometheus collectors
	registry *prometheus.Registry
}

// New creates a new Metrics instance; runID is attached as a constant label
func New(runID string) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
	}

	m.registerPrometheusMetrics(prometheus.Labels{"run_id": runID})

	return m
}

func (m *Metrics) registerPrometheusMetrics(labels prometheus.Labels) {
	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name:        "pose_frames_captured_total",
			Help:        "Total frames read from the capture device",
			ConstLabels: labels,
		},
		func() float64 { return float64(m.FramesCaptured.Load()) },
	))

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name:        "pose_frames_processed_total",
			Help:        "Total frames rendered and displayed",
			ConstLabels: labels,
		},
		func() float64 { return float64(m.FramesProcessed.Load()) },
	))

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name:        "pose_empty_frames_total",
			Help:        "Total empty frames returned by the capture device",
			ConstLabels: labels,
		},
		func() float64 { return float64(m.EmptyFrames.Load()) },
	))

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name:        "pose_inference_errors_total",
			Help:        "Total failed inference calls",
			ConstLabels: labels,
		},
		func() float64 { return float64(m.InferenceErrors.Load()) },
	))

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name:        "pose_decode_errors_total",
			Help:        "Total output tensors that could not be decoded",
			ConstLabels: labels,
		},
		func() float64 { return float64(m.DecodeErrors.Load()) },
	))

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name:        "pose_fps",
			Help:        "Instantaneous frame rate of the last iteration",
			ConstLabels: labels,
		},
		m.CurrentFPS,
	))

	m.stageLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:        "pose_stage_latency_seconds",
			Help:        "Per-frame latency of each pipeline stage",
			ConstLabels: labels,
			Buckets:     []float64{.0005, .001, .0025, .005, .01, .02, .033, .05, .1, .25},
		},
		[]string{"stage"},
	)
	m.registry.MustRegister(m.stageLatency)
}

// ObserveStage records the latency of one pipeline stage
func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	m.stageLatency.WithLabelValues(stage).Observe(d.Seconds())
}

// SetFPS stores the instantaneous frame rate
func (m *Metrics) SetFPS(fps float64) {
	m.currentFPS.Store(math.Float64bits(fps))
}

// CurrentFPS returns the last stored frame rate
func (m *Metrics) CurrentFPS() float64 {
	return math.Float64frombits(m.currentFPS.Load())
}

// Registry exposes the underlying registry for tests and custom handlers
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns the Prometheus HTTP handler
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// StartServer starts the metrics HTTP server
func (m *Metrics) StartServer(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	return http.ListenAndServe(addr, mux)
}
