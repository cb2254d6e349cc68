// Package metrics exposes Prometheus instruments for decision runs,
// counterfactuals and QA studies. A nil *Collector is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "decision_ledger"

// Collector owns every instrument and the registry they live on
type Collector struct {
	registry *prometheus.Registry

	evaluations        *prometheus.CounterVec
	evaluationDuration prometheus.Histogram
	counterfactuals    *prometheus.CounterVec
	runsStored         *prometheus.CounterVec
	qaStudies          *prometheus.CounterVec
	validationWarnings prometheus.Counter
	httpRequests       *prometheus.CounterVec
}

// NewCollector registers the instruments on registry, or on a fresh
// registry when nil
func NewCollector(registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	c := &Collector{
		registry: registry,
		evaluations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evaluations_total",
			Help:      "Decision evaluations by outcome status.",
		}, []string{"status"}),
		evaluationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "evaluation_duration_seconds",
			Help:      "Time spent evaluating a claim, including validation and storage.",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		}),
		counterfactuals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "counterfactuals_total",
			Help:      "Counterfactual replays by change kind and whether the payout moved.",
		}, []string{"kind", "changed"}),
		runsStored: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_stored_total",
			Help:      "Decision runs appended to the ledger by backend.",
		}, []string{"backend"}),
		qaStudies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "qa_studies_total",
			Help:      "QA impact studies by cohort.",
		}, []string{"cohort"}),
		validationWarnings: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "validation_warnings_total",
			Help:      "Non-fatal validation findings on run requests.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "API requests by route and status code.",
		}, []string{"route", "code"}),
	}

	registry.MustRegister(
		c.evaluations,
		c.evaluationDuration,
		c.counterfactuals,
		c.runsStored,
		c.qaStudies,
		c.validationWarnings,
		c.httpRequests,
	)

	return c
}

// Registry returns the registry backing the collector
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// Handler exposes the registry in the Prometheus exposition format
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		ErrorHandling:     promhttp.ContinueOnError,
	})
}

// RecordEvaluation counts one evaluation and its latency
func (c *Collector) RecordEvaluation(status string, duration time.Duration) {
	if c == nil {
		return
	}
	c.evaluations.WithLabelValues(status).Inc()
	c.evaluationDuration.Observe(duration.Seconds())
}

// RecordCounterfactual counts one replay
func (c *Collector) RecordCounterfactual(kind string, changed bool) {
	if c == nil {
		return
	}
	label := "false"
	if changed {
		label = "true"
	}
	c.counterfactuals.WithLabelValues(kind, label).Inc()
}

// RecordRunStored counts one ledger append
func (c *Collector) RecordRunStored(backend string) {
	if c == nil {
		return
	}
	c.runsStored.WithLabelValues(backend).Inc()
}

// RecordStudy counts one QA study
func (c *Collector) RecordStudy(cohortID string) {
	if c == nil {
		return
	}
	c.qaStudies.WithLabelValues(cohortID).Inc()
}

// RecordWarnings adds n validation warnings
func (c *Collector) RecordWarnings(n int) {
	if c == nil || n <= 0 {
		return
	}
	c.validationWarnings.Add(float64(n))
}

// RecordHTTP counts one API request
func (c *Collector) RecordHTTP(route, code string) {
	if c == nil {
		return
	}
	c.httpRequests.WithLabelValues(route, code).Inc()
}
