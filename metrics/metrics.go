package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type VoforgeAPIMetrics struct {
	RenderJobDurationSec    *prometheus.SummaryVec
	RenderJobResultCount    *prometheus.CounterVec
	DemoCaptureResultCount  *prometheus.CounterVec
	TTSCacheLookupCount     *prometheus.CounterVec
	TTSSynthesisDurationSec prometheus.Histogram
	JobsEnqueuedCount       *prometheus.CounterVec
	ActionRetryCount        prometheus.Counter
}

func NewMetrics() *VoforgeAPIMetrics {
	m := &VoforgeAPIMetrics{
		RenderJobDurationSec: promauto.NewSummaryVec(prometheus.SummaryOpts{
			Name: "render_job_duration_seconds",
			Help: "The time render jobs take to run, broken up by mode and success",
		}, []string{"mode", "success"}),
		RenderJobResultCount: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "render_job_result_count",
			Help: "The total number of completed render jobs by status",
		}, []string{"status"}),
		DemoCaptureResultCount: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "demo_capture_result_count",
			Help: "The total number of demo capture runs by result mode",
		}, []string{"mode"}),
		TTSCacheLookupCount: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "tts_cache_lookup_count",
			Help: "TTS segment cache lookups broken up by hit/miss",
		}, []string{"result"}),
		TTSSynthesisDurationSec: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "tts_synthesis_duration_seconds",
			Help:    "Time taken to synthesise one narration segment",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		}),
		JobsEnqueuedCount: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "jobs_enqueued_count",
			Help: "The total number of jobs enqueued by run type",
		}, []string{"run_type"}),
		ActionRetryCount: promauto.NewCounter(prometheus.CounterOpts{
			Name: "demo_action_retry_count",
			Help: "The total number of browser action retry attempts",
		}),
	}

	return m
}

var Metrics = NewMetrics()
