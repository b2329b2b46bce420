package observability

import (
	"context"

	"github.com/aretw0/stepwise/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "stepwise"

// Metrics holds the collectors fed by lifecycle hooks.
type Metrics struct {
	StepEnters    *prometheus.CounterVec
	StepCommits   *prometheus.CounterVec
	StepFailures  *prometheus.CounterVec
	Sessions      *prometheus.CounterVec
	FetchDuration *prometheus.HistogramVec
	FetchItems    *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg.
// A nil reg skips registration.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		StepEnters: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "step_enters_total",
			Help:      "Number of times a step became active.",
		}, []string{"step_id"}),
		StepCommits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "step_commits_total",
			Help:      "Number of committed step payloads.",
		}, []string{"step_id"}),
		StepFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "step_failures_total",
			Help:      "Number of failed submissions and fetches.",
		}, []string{"step_id", "severity"}),
		Sessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_finished_total",
			Help:      "Number of sessions that completed or were abandoned.",
		}, []string{"outcome"}),
		FetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Duration of hierarchy provider calls.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"level", "result"}),
		FetchItems: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_items",
			Help:      "Number of items returned per fetch.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 6),
		}, []string{"level"}),
	}
	if reg != nil {
		reg.MustRegister(
			m.StepEnters, m.StepCommits, m.StepFailures,
			m.Sessions, m.FetchDuration, m.FetchItems,
		)
	}
	return m
}

// Hooks returns lifecycle hooks that record into m.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStepEnter: func(_ context.Context, e *domain.StepEvent) {
			m.StepEnters.WithLabelValues(e.StepID).Inc()
		},
		OnStepCommit: func(_ context.Context, e *domain.StepEvent) {
			m.StepCommits.WithLabelValues(e.StepID).Inc()
		},
		OnStepFailure: func(_ context.Context, e *domain.StepEvent) {
			severity := "unknown"
			if e.Error != nil {
				severity = string(e.Error.Severity)
			}
			m.StepFailures.WithLabelValues(e.StepID, severity).Inc()
		},
		OnFetch: func(_ context.Context, e *domain.FetchEvent) {
			result := "ok"
			if e.IsError {
				result = "error"
			}
			m.FetchDuration.WithLabelValues(e.Level.String(), result).Observe(e.Duration.Seconds())
			if !e.IsError {
				m.FetchItems.WithLabelValues(e.Level.String()).Observe(float64(e.Items))
			}
		},
		OnComplete: func(context.Context, *domain.StepEvent) {
			m.Sessions.WithLabelValues("completed").Inc()
		},
		OnAbandon: func(context.Context, *domain.StepEvent) {
			m.Sessions.WithLabelValues("abandoned").Inc()
		},
	}
}
