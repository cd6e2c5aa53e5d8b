package engine

import (
	"math"

	"github.com/opensource-finance/caracara/internal/domain"
)

// RiskScorer turns derived features into an additive risk score and a
// tier. Scores are unbounded above; tiers partition the score line.
type RiskScorer struct {
	weights domain.Weights
}

// NewRiskScorer builds a scorer. A zero-value weight table falls back
// to the defaults.
func NewRiskScorer(w domain.Weights) *RiskScorer {
	if w == (domain.Weights{}) {
		w = domain.DefaultWeights()
	}
	return &RiskScorer{weights: w}
}

// Score computes the risk score for one feature set.
func (s *RiskScorer) Score(f domain.FeatureSet) float64 {
	w := s.weights
	score := 0.0

	// Graded indicators: weight scaled by a normalized magnitude.
	score += w.SectorZScore * clamp(math.Abs(f.SectorZScore)/3, 0, 1)
	score += w.InvoiceKeyFrequency * clamp(float64(f.InvoiceKeyCount-1), 0, 3)

	// Binary indicators contribute their full weight.
	if f.RoundAmount {
		score += w.RoundAmount
	}
	if f.TaxIDRootMatch {
		score += w.TaxIDRootMatch
	}
	if f.AbnormalTerm {
		score += w.AbnormalTerm
	}
	if f.NoAcceptance {
		score += w.NoAcceptance
	}
	if f.SuspiciousEndorsement {
		score += w.SuspiciousEndorsement
	}
	if f.Overdue {
		score += w.Overdue
	}
	if f.SameStateHighValue {
		score += w.SameStateHighValue
	}
	return score
}

// TierFor maps a score to its risk tier. Upper bounds are inclusive, so
// a score of exactly 3.0 is still MODERATE.
func TierFor(score float64) string {
	switch {
	case score <= 1.0:
		return domain.TierLow
	case score <= 3.0:
		return domain.TierModerate
	case score <= 5.0:
		return domain.TierHigh
	default:
		return domain.TierCritical
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
