package engine

import (
	"fmt"
	"math"
	"sort"

	"github.com/opensource-finance/caracara/internal/domain"
)

// DefaultTopN is the report size when the caller does not ask for one.
const DefaultTopN = 20

// CaseReporter selects the highest-scoring records and explains them.
type CaseReporter struct{}

// NewCaseReporter builds a reporter.
func NewCaseReporter() *CaseReporter {
	return &CaseReporter{}
}

// Report returns the top n scored records by descending score. Ties
// keep the input order. n <= 0 falls back to DefaultTopN.
func (cr *CaseReporter) Report(scored []domain.ScoredReceivable, n int) []domain.ReportedCase {
	if n <= 0 {
		n = DefaultTopN
	}

	idx := make([]int, len(scored))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return scored[idx[a]].RiskScore > scored[idx[b]].RiskScore
	})

	if n > len(idx) {
		n = len(idx)
	}

	cases := make([]domain.ReportedCase, 0, n)
	for _, i := range idx[:n] {
		cases = append(cases, CaseFor(&scored[i]))
	}
	return cases
}

// CaseFor renders a single scored record as a reportable case with its
// firing indicators spelled out. The full record is carried along so a
// case is actionable without a second lookup.
func CaseFor(s *domain.ScoredReceivable) domain.ReportedCase {
	return domain.ReportedCase{
		Receivable: s.Receivable,
		RiskScore:  s.RiskScore,
		RiskTier:   s.RiskTier,
		Reasons:    reasons(s),
	}
}

// reasons renders the firing indicators in a fixed order so reports
// are stable across runs. A clean record yields an empty list, never
// null.
func reasons(s *domain.ScoredReceivable) []string {
	f := s.Features
	out := []string{}

	if f.InvoiceKeyCount > 1 {
		out = append(out, fmt.Sprintf("invoice key appears %dx in the batch", f.InvoiceKeyCount))
	}
	if f.SuspiciousEndorsement {
		out = append(out, fmt.Sprintf("endorsed to unrecognized entity: %s", s.Endorsee))
	}
	if f.TaxIDRootMatch {
		out = append(out, fmt.Sprintf("creditor and debtor share tax id root %s", domain.TaxIDRoot(s.CreditorTaxID)))
	}
	if math.Abs(f.SectorZScore) > 2 {
		out = append(out, fmt.Sprintf("amount deviates from sector norm (z=%.1f)", f.SectorZScore))
	}
	if f.RoundAmount {
		out = append(out, fmt.Sprintf("suspiciously round amount of R$ %.2f", s.Amount))
	}
	if f.AbnormalTerm {
		out = append(out, fmt.Sprintf("abnormal payment term of %d days", s.TermDays))
	}
	if f.NoAcceptance {
		out = append(out, "no debtor acceptance")
	}
	if f.Overdue {
		out = append(out, "past due date")
	}
	if f.SameStateHighValue {
		out = append(out, fmt.Sprintf("high value of R$ %.2f between same-state parties", s.Amount))
	}
	return out
}
