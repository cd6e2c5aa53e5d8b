// Package metrics exposes Prometheus instrumentation for the scoring
// pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds the pipeline metrics on a private registry so tests
// can run multiple collectors without duplicate registration panics.
type Collector struct {
	registry *prometheus.Registry

	batchesScored    prometheus.Counter
	recordsScored    prometheus.Counter
	scoringDuration  prometheus.Histogram
	scoreHistogram   prometheus.Histogram
	casesFlagged     *prometheus.CounterVec
	verdictsResolved *prometheus.CounterVec
}

// NewCollector creates a collector with the full metric set registered.
func NewCollector() *Collector {
	registry := prometheus.NewRegistry()

	return &Collector{
		registry: registry,
		batchesScored: promauto.With(registry).NewCounter(prometheus.CounterOpts{
			Name: "caracara_batches_scored_total",
			Help: "Total number of analyzed batches",
		}),
		recordsScored: promauto.With(registry).NewCounter(prometheus.CounterOpts{
			Name: "caracara_receivables_scored_total",
			Help: "Total number of scored receivables",
		}),
		scoringDuration: promauto.With(registry).NewHistogram(prometheus.HistogramOpts{
			Name:    "caracara_batch_scoring_duration_seconds",
			Help:    "Time taken to analyze a batch",
			Buckets: prometheus.DefBuckets,
		}),
		scoreHistogram: promauto.With(registry).NewHistogram(prometheus.HistogramOpts{
			Name:    "caracara_risk_score_distribution",
			Help:    "Distribution of receivable risk scores",
			Buckets: []float64{0, 1, 2, 3, 4, 5, 7, 10},
		}),
		casesFlagged: promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
			Name: "caracara_cases_flagged_total",
			Help: "Flagged cases by alert severity",
		}, []string{"severity"}),
		verdictsResolved: promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
			Name: "caracara_verdicts_total",
			Help: "Investigation verdicts by finding",
		}, []string{"finding"}),
	}
}

// RecordBatch observes one analyzed batch and its per-record scores.
func (c *Collector) RecordBatch(duration time.Duration, scores []float64) {
	c.batchesScored.Inc()
	c.recordsScored.Add(float64(len(scores)))
	c.scoringDuration.Observe(duration.Seconds())
	for _, s := range scores {
		c.scoreHistogram.Observe(s)
	}
}

// RecordFlagged counts an alert by severity.
func (c *Collector) RecordFlagged(severity string) {
	c.casesFlagged.WithLabelValues(severity).Inc()
}

// RecordVerdict counts a resolved investigation by finding.
func (c *Collector) RecordVerdict(finding string) {
	c.verdictsResolved.WithLabelValues(finding).Inc()
}

// Handler serves the registry in Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
