// Package engine implements the deterministic risk scoring pipeline
// for receivable batches: feature derivation, additive scoring, case
// reporting and detection metrics.
package engine

import (
	"math"
	"sort"
	"strings"
	"time"

	"github.com/opensource-finance/caracara/internal/domain"
)

// Abnormal term bounds, in days.
const (
	minNormalTerm = 7
	maxNormalTerm = 180
)

// sectorStats holds per-sector amount statistics over a batch.
type sectorStats struct {
	mean float64
	std  float64
}

// FeatureDeriver computes per-record indicators, several of which are
// relative to the whole batch (sector z-scores, invoice key frequency,
// global amount percentile).
type FeatureDeriver struct {
	bankKeywords []string
}

// NewFeatureDeriver builds a deriver with the given endorsement
// whitelist. An empty list falls back to the default keywords.
func NewFeatureDeriver(bankKeywords []string) *FeatureDeriver {
	if len(bankKeywords) == 0 {
		bankKeywords = domain.DefaultBankKeywords
	}
	return &FeatureDeriver{bankKeywords: bankKeywords}
}

// Derive computes one FeatureSet per record, index-aligned with the
// batch. The now argument anchors the overdue check.
func (d *FeatureDeriver) Derive(batch []domain.Receivable, now time.Time) []domain.FeatureSet {
	stats := sectorAmountStats(batch)
	keyCounts := invoiceKeyCounts(batch)
	p75 := amountP75(batch)

	features := make([]domain.FeatureSet, len(batch))
	for i := range batch {
		r := &batch[i]
		f := domain.FeatureSet{
			LiquidityRatio:  r.Amount / float64(max(r.TermDays, 1)),
			RoundAmount:     math.Mod(r.Amount, 1000) == 0,
			SectorZScore:    zscore(r.Amount, stats[r.CreditorSector]),
			InvoiceKeyCount: keyCounts[r.InvoiceKey],
			TaxIDRootMatch:  taxIDRootMatch(r.CreditorTaxID, r.DebtorTaxID),
			SameState:       r.CreditorState == r.DebtorState,
			AbnormalTerm:    r.TermDays < minNormalTerm || r.TermDays > maxNormalTerm,
			NoAcceptance:    !r.Accepted,
			Overdue:         r.DueAt.Before(now),
		}
		f.SuspiciousEndorsement = r.Endorsee != "" && !d.isBank(r.Endorsee)
		f.SameStateHighValue = f.SameState && r.Amount > p75
		features[i] = f
	}
	return features
}

// isBank reports whether the endorsee name contains any whitelist
// keyword, case-insensitively.
func (d *FeatureDeriver) isBank(endorsee string) bool {
	lower := strings.ToLower(endorsee)
	for _, kw := range d.bankKeywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

func taxIDRootMatch(creditor, debtor string) bool {
	cr := domain.TaxIDRoot(creditor)
	dr := domain.TaxIDRoot(debtor)
	return cr != "" && cr == dr
}

// sectorAmountStats computes per-sector mean and sample standard
// deviation of amounts. Sectors with fewer than two records, or with
// zero dispersion, get a standard deviation of 1 so a lone record never
// flags as a sector outlier. The floor of 1 also damps z-scores in
// near-constant sectors.
func sectorAmountStats(batch []domain.Receivable) map[string]sectorStats {
	sums := make(map[string]float64)
	counts := make(map[string]int)
	for i := range batch {
		sums[batch[i].CreditorSector] += batch[i].Amount
		counts[batch[i].CreditorSector]++
	}

	stats := make(map[string]sectorStats, len(sums))
	for sector, n := range counts {
		mean := sums[sector] / float64(n)
		std := 1.0
		if n >= 2 {
			var ss float64
			for i := range batch {
				if batch[i].CreditorSector == sector {
					d := batch[i].Amount - mean
					ss += d * d
				}
			}
			std = math.Sqrt(ss / float64(n-1))
			if std < 1 {
				std = 1
			}
		}
		stats[sector] = sectorStats{mean: mean, std: std}
	}
	return stats
}

func zscore(amount float64, s sectorStats) float64 {
	if s.std == 0 {
		return 0
	}
	return (amount - s.mean) / s.std
}

func invoiceKeyCounts(batch []domain.Receivable) map[string]int {
	counts := make(map[string]int, len(batch))
	for i := range batch {
		counts[batch[i].InvoiceKey]++
	}
	return counts
}

// amountP75 returns the 75th percentile of amounts using linear
// interpolation. Batches too small for a meaningful percentile (under
// four records) use the maximum, so nothing clears the bar alone.
func amountP75(batch []domain.Receivable) float64 {
	if len(batch) == 0 {
		return 0
	}
	amounts := make([]float64, len(batch))
	for i := range batch {
		amounts[i] = batch[i].Amount
	}
	sort.Float64s(amounts)

	if len(amounts) < 4 {
		return amounts[len(amounts)-1]
	}

	pos := 0.75 * float64(len(amounts)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return amounts[lo]
	}
	frac := pos - float64(lo)
	return amounts[lo] + frac*(amounts[hi]-amounts[lo])
}
