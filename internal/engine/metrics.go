package engine

import (
	"fmt"

	"github.com/opensource-finance/caracara/internal/domain"
)

// PerformanceEvaluator compares scores against ground-truth labels.
type PerformanceEvaluator struct {
	threshold float64
}

// NewPerformanceEvaluator builds an evaluator. A record is predicted
// fraudulent when its score is strictly above the threshold.
func NewPerformanceEvaluator(threshold float64) *PerformanceEvaluator {
	if threshold == 0 {
		threshold = 3.0
	}
	return &PerformanceEvaluator{threshold: threshold}
}

// Evaluate computes the confusion matrix and derived metrics.
// Returns nil when any record lacks a label: partial ground truth
// would silently skew every ratio.
func (pe *PerformanceEvaluator) Evaluate(scored []domain.ScoredReceivable) *domain.DetectionMetrics {
	if len(scored) == 0 {
		return nil
	}
	for i := range scored {
		if !scored[i].Labeled() {
			return nil
		}
	}

	m := &domain.DetectionMetrics{Total: len(scored)}
	for i := range scored {
		s := &scored[i]
		predicted := s.RiskScore > pe.threshold
		actual := s.IsFraud()

		if actual {
			m.ActualFrauds++
		}
		if predicted {
			m.Flagged++
		}
		switch {
		case predicted && actual:
			m.TruePositives++
		case predicted && !actual:
			m.FalsePositives++
		case !predicted && actual:
			m.FalseNegatives++
		default:
			m.TrueNegatives++
		}
	}

	m.Precision = ratio(m.TruePositives, m.TruePositives+m.FalsePositives)
	m.Recall = ratio(m.TruePositives, m.TruePositives+m.FalseNegatives)
	if m.Precision+m.Recall > 0 {
		m.F1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
	}

	m.PrecisionPct = formatPct(m.Precision)
	m.RecallPct = formatPct(m.Recall)
	m.F1Pct = formatPct(m.F1)
	return m
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}

func formatPct(v float64) string {
	return fmt.Sprintf("%.2f%%", v*100)
}
