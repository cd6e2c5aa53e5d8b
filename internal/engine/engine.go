package engine

import (
	"time"

	"github.com/opensource-finance/caracara/internal/domain"
)

// Options tune a single analysis run.
type Options struct {
	// TopN is the report size. Zero means DefaultTopN.
	TopN int

	// Now anchors the overdue check. Zero means time.Now, which
	// callers needing reproducible output should avoid.
	Now time.Time
}

// Engine runs the full analysis pipeline over a batch. It holds no
// mutable state: the same batch and options always produce the same
// result, and the caller's slice is never touched.
type Engine struct {
	deriver   *FeatureDeriver
	scorer    *RiskScorer
	reporter  *CaseReporter
	evaluator *PerformanceEvaluator
	topN      int
}

// New builds an engine from config. Zero-value fields fall back to
// production defaults.
func New(cfg domain.EngineConfig) *Engine {
	topN := cfg.TopN
	if topN <= 0 {
		topN = DefaultTopN
	}
	return &Engine{
		deriver:   NewFeatureDeriver(cfg.BankKeywords),
		scorer:    NewRiskScorer(cfg.Weights),
		reporter:  NewCaseReporter(),
		evaluator: NewPerformanceEvaluator(cfg.AlertThreshold),
		topN:      topN,
	}
}

// Analyze validates, scores and reports a batch.
func (e *Engine) Analyze(batch []domain.Receivable, opts Options) (*domain.AnalysisResult, error) {
	result, _, err := e.AnalyzeScored(batch, opts)
	return result, err
}

// AnalyzeScored is Analyze plus the per-record scores, for callers that
// route alerts without re-scoring the batch.
func (e *Engine) AnalyzeScored(batch []domain.Receivable, opts Options) (*domain.AnalysisResult, []domain.ScoredReceivable, error) {
	if err := Validate(batch); err != nil {
		return nil, nil, err
	}

	recs := make([]domain.Receivable, len(batch))
	copy(recs, batch)

	now := opts.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}
	topN := opts.TopN
	if topN <= 0 {
		topN = e.topN
	}

	scored := e.ScoreBatch(recs, now)

	result := &domain.AnalysisResult{
		Summary:     summarize(scored),
		TopSuspects: e.reporter.Report(scored, topN),
		Metrics:     e.evaluator.Evaluate(scored),
	}
	return result, scored, nil
}

// ScoreBatch derives features and scores every record. The batch must
// already be validated and owned by the engine call.
func (e *Engine) ScoreBatch(recs []domain.Receivable, now time.Time) []domain.ScoredReceivable {
	features := e.deriver.Derive(recs, now)

	scored := make([]domain.ScoredReceivable, len(recs))
	for i := range recs {
		score := e.scorer.Score(features[i])
		scored[i] = domain.ScoredReceivable{
			Receivable: recs[i],
			Features:   features[i],
			RiskScore:  score,
			RiskTier:   TierFor(score),
		}
	}
	return scored
}

// summarize counts records per tier, ascending tier order. Every tier
// is present even when empty.
func summarize(scored []domain.ScoredReceivable) domain.TierSummary {
	counts := make(map[string]int, len(domain.Tiers))
	for i := range scored {
		counts[scored[i].RiskTier]++
	}
	summary := make(domain.TierSummary, 0, len(domain.Tiers))
	for _, tier := range domain.Tiers {
		summary = append(summary, domain.TierCount{Tier: tier, Count: counts[tier]})
	}
	return summary
}

// Validate checks the batch for required fields, failing on the first
// gap. Endorsee, ground truth and the entity ids are optional.
func Validate(batch []domain.Receivable) error {
	for i := range batch {
		r := &batch[i]
		switch {
		case r.ID == "":
			return &domain.MissingFieldError{Index: i, Field: "id_duplicata"}
		case r.InvoiceKey == "":
			return &domain.MissingFieldError{Index: i, Field: "chave_nfe"}
		case r.IssuedAt.IsZero():
			return &domain.MissingFieldError{Index: i, Field: "data_emissao"}
		case r.DueAt.IsZero():
			return &domain.MissingFieldError{Index: i, Field: "data_vencimento"}
		case r.CreditorName == "":
			return &domain.MissingFieldError{Index: i, Field: "nome_cedente"}
		case r.CreditorTaxID == "":
			return &domain.MissingFieldError{Index: i, Field: "cnpj_cedente"}
		case r.CreditorState == "":
			return &domain.MissingFieldError{Index: i, Field: "estado_cedente"}
		case r.CreditorSector == "":
			return &domain.MissingFieldError{Index: i, Field: "setor_cedente"}
		case r.DebtorName == "":
			return &domain.MissingFieldError{Index: i, Field: "nome_sacado"}
		case r.DebtorTaxID == "":
			return &domain.MissingFieldError{Index: i, Field: "cnpj_sacado"}
		case r.DebtorState == "":
			return &domain.MissingFieldError{Index: i, Field: "estado_sacado"}
		case r.Amount <= 0:
			return &domain.MissingFieldError{Index: i, Field: "valor"}
		}
	}
	return nil
}
