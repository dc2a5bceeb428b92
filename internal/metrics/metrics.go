package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Pipeline metrics
	PipelineRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webscout_pipeline_runs_total",
			Help: "Total number of research pipeline runs by terminal status",
		},
		[]string{"status"},
	)

	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "webscout_stage_duration_seconds",
			Help:    "Duration of each pipeline stage in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"stage"},
	)

	// Filter metrics
	FilterDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webscout_filter_decisions_total",
			Help: "Relevance filter outcomes (llm, fallback_error, fallback_empty, skipped)",
		},
		[]string{"outcome"},
	)

	SourcesSelected = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "webscout_sources_selected",
			Help:    "Number of sources selected per run",
			Buckets: []float64{0, 1, 2, 3, 5, 8, 10, 15},
		},
	)

	ContextTruncations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "webscout_context_truncations_total",
			Help: "Number of runs whose assembled context hit the size cap",
		},
	)

	// Retrieval metrics
	RetrievalErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "webscout_retrieval_errors_total",
			Help: "Sub-query searches that failed and were skipped",
		},
	)

	RetrievedResults = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "webscout_retrieved_results",
			Help:    "Raw results merged per run",
			Buckets: []float64{0, 1, 3, 5, 10, 15, 20, 30},
		},
	)

	// Citation metrics
	Citations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webscout_citations_total",
			Help: "Citation markers processed by kind (resolved, unresolved)",
		},
		[]string{"kind"},
	)

	// HTTP metrics
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webscout_http_requests_total",
			Help: "HTTP requests served by path and status code",
		},
		[]string{"path", "code"},
	)

	RateLimited = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "webscout_http_rate_limited_total",
			Help: "Requests rejected by the rate limiter",
		},
	)
)
