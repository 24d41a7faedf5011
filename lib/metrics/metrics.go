package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	FramesConverted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "framexform_frames_converted_total",
		Help: "Total number of frames converted by a job",
	}, []string{"job"})
	FramesFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "framexform_frames_failed_total",
		Help: "Total number of frames a job failed to convert",
	}, []string{"job"})
	BytesWritten = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "framexform_output_bytes_total",
		Help: "Total number of output bytes produced by a job",
	}, []string{"job"})
	ConversionWarnings = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "framexform_conversion_warnings_total",
		Help: "Total number of non-fatal conversion diagnostics",
	}, []string{"kind"})
	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "framexform_stage_duration_seconds",
		Help:    "Time spent in each conversion stage",
		Buckets: prometheus.ExponentialBuckets(0.0001, 2, 16),
	}, []string{"stage"})
)

type JobMetrics struct {
	FramesConverted prometheus.Counter
	FramesFailed    prometheus.Counter
	BytesWritten    prometheus.Counter
}

func NewJobMetrics(name string) JobMetrics {
	j := JobMetrics{
		FramesConverted: FramesConverted.WithLabelValues(name),
		FramesFailed:    FramesFailed.WithLabelValues(name),
		BytesWritten:    BytesWritten.WithLabelValues(name),
	}
	j.FramesConverted.Add(0)
	j.FramesFailed.Add(0)
	j.BytesWritten.Add(0)
	return j
}

func Warning(kind string) {
	ConversionWarnings.WithLabelValues(kind).Inc()
}

// Handler should usually be mounted at /metrics
func Handler() http.Handler {
	return promhttp.Handler()
}
