package domain

import "time"

// Verdict is the outcome of an automated investigation of a flagged
// receivable.
type Verdict struct {
	ID           string    `json:"id"`
	ReceivableID string    `json:"id_duplicata"`
	Finding      string    `json:"finding"`
	RootCause    string    `json:"rootCause,omitempty"`
	Action       string    `json:"action"`
	Notes        []string  `json:"notes,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Investigation findings.
const (
	FindingConfirmedFraud = "CONFIRMED_FRAUD"
	FindingFalsePositive  = "FALSE_POSITIVE"
	FindingLegitimate     = "LEGITIMATE"
	FindingInconclusive   = "INCONCLUSIVE"
)

// Recommended actions.
const (
	ActionBlock   = "BLOCK"
	ActionRelease = "RELEASE"
	ActionHold    = "HOLD"
)

// Root causes of a confirmed problem.
const (
	RootCauseEntity      = "ENTIDADE"
	RootCauseOperational = "OPERACIONAL"
	RootCauseExternal    = "GOLPE_EXTERNO"
)

// Institution is an entry of the financial-institutions registry used
// to vet endorsees.
type Institution struct {
	TaxID      string `json:"cnpj"`
	Name       string `json:"razao_social"`
	Registered bool   `json:"registrada"`
	Standing   string `json:"situacao"` // "regular", "suspensa", "baixada"
	Category   string `json:"categoria,omitempty"`
}
