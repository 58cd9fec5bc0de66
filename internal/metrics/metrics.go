// Package metrics exposes run statistics in the Prometheus text format.
package metrics

import (
	"schemaanalyst/internal/coverage"
	"schemaanalyst/internal/db"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "schemaanalyst"

// Recorder collects metrics for one run on a private registry.
type Recorder struct {
	registry *prometheus.Registry

	goals       *prometheus.CounterVec
	evaluations *prometheus.HistogramVec
	duration    *prometheus.HistogramVec
	coverage    *prometheus.GaugeVec
	verdicts    *prometheus.CounterVec
}

// NewRecorder registers the run metrics.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Recorder{
		registry: reg,
		// Labels: kind (satisfy, violate), outcome (covered, uncovered)
		goals: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "goals_total",
			Help:      "Coverage goals attempted",
		}, []string{"kind", "outcome"}),
		evaluations: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "goal_evaluations",
			Help:      "Objective evaluations spent per goal",
			Buckets:   prometheus.ExponentialBuckets(10, 4, 8),
		}, []string{"kind"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "goal_duration_seconds",
			Help:      "Search time per goal",
			Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
		}, []string{"kind"}),
		coverage: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "coverage_ratio",
			Help:      "Covered share of constraint goals",
		}, []string{"schema", "algorithm"}),
		// Labels: result (confirmed, disputed)
		verdicts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "verified_goals_total",
			Help:      "Goals replayed against a database",
		}, []string{"result"}),
	}
}

// ObserveGoal records one finished goal. It fits coverage.Coverer.OnGoal.
func (r *Recorder) ObserveGoal(g *coverage.GoalReport) {
	kind := "violate"
	if g.Satisfy() {
		kind = "satisfy"
	}
	outcome := "uncovered"
	switch {
	case g.Success:
		outcome = "covered"
	case g.Interrupted:
		outcome = "interrupted"
	}
	r.goals.WithLabelValues(kind, outcome).Inc()
	r.evaluations.WithLabelValues(kind).Observe(float64(g.Evaluations))
	r.duration.WithLabelValues(kind).Observe(g.Duration.Seconds())
}

// ObserveReport records the coverage of a finished run.
func (r *Recorder) ObserveReport(rep *coverage.Report) {
	r.coverage.WithLabelValues(rep.Schema.Name, rep.Algorithm).Set(rep.Coverage() / 100)
}

// ObserveVerdicts records database verification results.
func (r *Recorder) ObserveVerdicts(verdicts []*db.Verdict) {
	for _, v := range verdicts {
		if v == nil || len(v.Statements) == 0 {
			continue
		}
		result := "disputed"
		if v.Confirmed {
			result = "confirmed"
		}
		r.verdicts.WithLabelValues(result).Inc()
	}
}

// WriteTextfile writes every metric to path for the node exporter textfile
// collector.
func (r *Recorder) WriteTextfile(path string) error {
	return errors.Wrapf(prometheus.WriteToTextfile(path, r.registry), "write metrics %s", path)
}
