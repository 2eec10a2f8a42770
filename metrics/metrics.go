package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type SplitcastAPIMetrics struct {
	UploadRequestCount    prometheus.Counter
	PipelinesInFlight     prometheus.Gauge
	PipelineResults       *prometheus.CounterVec
	PipelinePhaseDuration *prometheus.SummaryVec
	HTTPRequestsInFlight  prometheus.Gauge
	WorkerRequestFailures *prometheus.CounterVec
}

func NewMetrics() *SplitcastAPIMetrics {
	m := &SplitcastAPIMetrics{
		UploadRequestCount: promauto.NewCounter(prometheus.CounterOpts{
			Name: "upload_request_count",
			Help: "The total number of requests to POST /upload",
		}),
		PipelinesInFlight: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "pipelines_in_flight",
			Help: "Number of video pipelines currently running",
		}),
		PipelineResults: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "pipeline_results",
			Help: "Terminal pipeline outcomes, broken up by success",
		}, []string{"success"}),
		PipelinePhaseDuration: promauto.NewSummaryVec(prometheus.SummaryOpts{
			Name: "pipeline_phase_duration_seconds",
			Help: "Time spent in each pipeline phase",
		}, []string{"phase"}),
		HTTPRequestsInFlight: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "A gauge of requests currently being served",
		}),
		WorkerRequestFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "worker_request_failures",
			Help: "Failed HTTP calls to converter workers, broken up by operation",
		}, []string{"operation"}),
	}

	return m
}

var Metrics = NewMetrics()
