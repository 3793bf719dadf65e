// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Resolution metrics
	ResolutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "citeas_resolutions_total",
			Help: "Total number of resolutions by outcome",
		},
		[]string{"outcome"},
	)

	ResolutionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "citeas_resolution_duration_seconds",
			Help:    "Resolution duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
	)

	StepsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "citeas_steps_total",
			Help: "Total number of step attempts by kind and outcome",
		},
		[]string{"step", "outcome"},
	)

	// Fetch metrics
	FetchRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "citeas_fetch_requests_total",
			Help: "Total number of outbound HTTP requests by host and status",
		},
		[]string{"host", "status"},
	)

	CacheRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "citeas_cache_requests_total",
			Help: "Response cache lookups by tier and result",
		},
		[]string{"tier", "result"},
	)

	GithubTokensExhausted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "citeas_github_tokens_exhausted_total",
			Help: "Times every GitHub credential was rate limited",
		},
	)

	// Rendering metrics
	RenderFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "citeas_render_failures_total",
			Help: "Citation render failures by style",
		},
		[]string{"style"},
	)

	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "citeas_http_requests_total",
			Help: "HTTP API requests by route and status code",
		},
		[]string{"route", "code"},
	)
)
