package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// ReportedCase is one entry of the suspicious-cases report. It carries
// the full original record so consumers can act on a case without a
// second lookup.
type ReportedCase struct {
	Receivable

	RiskScore float64  `json:"risk_score"`
	RiskTier  string   `json:"classificacao"`
	Reasons   []string `json:"motivos"`
}

// Sanitize returns a copy with ground-truth fields removed. Any payload
// handed to downstream automation must pass through here first.
func (c ReportedCase) Sanitize() ReportedCase {
	c.FraudLabel = nil
	c.FraudType = ""
	return c
}

// TierCount pairs a risk tier with the number of records in it.
type TierCount struct {
	Tier  string
	Count int
}

// TierSummary counts records per tier, ascending tier order. It
// serializes as a keyed object, {"LOW": n, "MODERATE": n, ...}.
type TierSummary []TierCount

// MarshalJSON writes the tiers as object keys in ascending order.
func (ts TierSummary) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, tc := range ts {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(strconv.Quote(tc.Tier))
		buf.WriteByte(':')
		buf.WriteString(strconv.Itoa(tc.Count))
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads the keyed object back into ascending tier order.
// Unknown tier keys are rejected.
func (ts *TierSummary) UnmarshalJSON(data []byte) error {
	var counts map[string]int
	if err := json.Unmarshal(data, &counts); err != nil {
		return err
	}
	out := make(TierSummary, 0, len(Tiers))
	for _, tier := range Tiers {
		n, ok := counts[tier]
		if !ok {
			return fmt.Errorf("risk summary missing tier %s", tier)
		}
		out = append(out, TierCount{Tier: tier, Count: n})
		delete(counts, tier)
	}
	for tier := range counts {
		return fmt.Errorf("risk summary has unknown tier %s", tier)
	}
	*ts = out
	return nil
}

// DetectionMetrics compares predicted alerts against ground truth.
// Percentages are pre-formatted with two decimals for report consumers;
// the raw fractions are carried alongside.
type DetectionMetrics struct {
	Total          int `json:"total"`
	ActualFrauds   int `json:"fraudes_reais"`
	Flagged        int `json:"detectadas"`
	TruePositives  int `json:"verdadeiros_positivos"`
	FalsePositives int `json:"falsos_positivos"`
	TrueNegatives  int `json:"verdadeiros_negativos"`
	FalseNegatives int `json:"falsos_negativos"`

	Precision float64 `json:"precisao"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`

	PrecisionPct string `json:"precisao_pct"`
	RecallPct    string `json:"recall_pct"`
	F1Pct        string `json:"f1_pct"`
}

// AnalysisResult is the output contract of a batch analysis.
// Metrics is null when the batch carries no ground truth.
type AnalysisResult struct {
	Summary     TierSummary       `json:"resumo_risco"`
	TopSuspects []ReportedCase    `json:"top_suspeitos"`
	Metrics     *DetectionMetrics `json:"metricas"`
}
