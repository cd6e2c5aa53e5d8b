package domain

// FeatureSet holds the indicators derived for one receivable within a
// batch. Batch-relative indicators (z-score, key frequency, high value)
// only make sense in the context of the batch they were derived from.
type FeatureSet struct {
	LiquidityRatio float64 `json:"ratio_liquidez"`
	RoundAmount    bool    `json:"valor_redondo"`
	SectorZScore   float64 `json:"zscore_setor"`

	// InvoiceKeyCount is the number of occurrences of the invoice key
	// in the batch, including this record.
	InvoiceKeyCount int `json:"freq_chave_nfe"`

	TaxIDRootMatch        bool `json:"raiz_cnpj_igual"`
	SameState             bool `json:"mesmo_estado"`
	AbnormalTerm          bool `json:"prazo_anomalo"`
	NoAcceptance          bool `json:"sem_aceite"`
	SuspiciousEndorsement bool `json:"endosso_suspeito"`
	Overdue               bool `json:"vencida"`
	SameStateHighValue    bool `json:"mesmo_estado_valor_alto"`
}

// Risk tiers, ordered from lowest to highest.
const (
	TierLow      = "LOW"
	TierModerate = "MODERATE"
	TierHigh     = "HIGH"
	TierCritical = "CRITICAL"
)

// Tiers lists the risk tiers in ascending order.
var Tiers = []string{TierLow, TierModerate, TierHigh, TierCritical}

// ScoredReceivable is a receivable with its derived features, additive
// risk score and tier.
type ScoredReceivable struct {
	Receivable
	Features  FeatureSet `json:"features"`
	RiskScore float64    `json:"risk_score"`
	RiskTier  string     `json:"classificacao"`
}

// Weights holds the per-indicator contribution to the risk score.
// Boolean indicators contribute their full weight when set; zscore and
// frequency contribute weight times their normalized value.
type Weights struct {
	RoundAmount           float64 `json:"valor_redondo"`
	SectorZScore          float64 `json:"zscore_norm"`
	InvoiceKeyFrequency   float64 `json:"freq_norm"`
	TaxIDRootMatch        float64 `json:"raiz_cnpj_igual"`
	AbnormalTerm          float64 `json:"prazo_anomalo"`
	NoAcceptance          float64 `json:"sem_aceite"`
	SuspiciousEndorsement float64 `json:"endosso_suspeito"`
	Overdue               float64 `json:"vencida"`
	SameStateHighValue    float64 `json:"mesmo_estado_valor_alto"`
}

// DefaultWeights returns the calibrated production weight table.
func DefaultWeights() Weights {
	return Weights{
		RoundAmount:           1.0,
		SectorZScore:          1.5,
		InvoiceKeyFrequency:   3.0,
		TaxIDRootMatch:        2.0,
		AbnormalTerm:          1.0,
		NoAcceptance:          1.0,
		SuspiciousEndorsement: 2.5,
		Overdue:               1.0,
		SameStateHighValue:    1.0,
	}
}

// DefaultBankKeywords is the whitelist of substrings that mark an
// endorsee as a regulated financial institution. Matching is
// case-insensitive.
var DefaultBankKeywords = []string{
	"Banco", "S.A.", "Unibanco", "Bradesco", "Itaú", "Santander", "BTG",
}
