package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bjwater_requests_total",
			Help: "Total number of API requests per provider",
		},
		[]string{"provider"},
	)

	RequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bjwater_request_duration_seconds",
			Help:    "API request duration in seconds per provider and path",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider", "path"},
	)

	RequestErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bjwater_request_errors_total",
			Help: "Total number of API error responses per provider and path",
		},
		[]string{"provider", "path", "code"},
	)
)

var (
	UpstreamCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bjwater_upstream_calls_total",
			Help: "Calls to the billing portal per operation and outcome",
		},
		[]string{"operation", "outcome"},
	)

	UpstreamCallDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bjwater_upstream_call_duration_seconds",
			Help:    "Duration of billing portal calls per operation",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	FetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bjwater_fetches_total",
			Help: "Completed snapshot fetches per provider and outcome",
		},
		[]string{"provider", "outcome"},
	)
)

// ObserveUpstreamCall records one portal call. outcome is "ok" or a short
// failure class such as "status" or "transport".
func ObserveUpstreamCall(operation, outcome string, startedAt time.Time) {
	UpstreamCallsTotal.WithLabelValues(operation, outcome).Inc()
	UpstreamCallDurationSeconds.WithLabelValues(operation).Observe(time.Since(startedAt).Seconds())
}

var (
	ScheduledJobLastRun = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "bjwater_job_last_run_timestamp",
			Help: "Unix timestamp of the last completed run for a job",
		},
		[]string{"job"},
	)

	ScheduledJobLastDurationSeconds = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "bjwater_job_last_duration_seconds",
			Help: "Duration of the last completed run for a job",
		},
		[]string{"job"},
	)

	ScheduledJobFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bjwater_job_failures_total",
			Help: "Total number of failed executions per job",
		},
		[]string{"job"},
	)
)

func UpdateJobMetrics(job string, startedAt time.Time, err error) {
	dur := time.Since(startedAt).Seconds()
	ScheduledJobLastDurationSeconds.WithLabelValues(job).Set(dur)
	ScheduledJobLastRun.WithLabelValues(job).Set(float64(time.Now().Unix()))
	if err != nil {
		ScheduledJobFailuresTotal.WithLabelValues(job).Inc()
	}
}
