// Package domain defines the core interfaces and types for Caracara.
package domain

import (
	"strings"
	"time"
)

// Receivable represents a single trade receivable (duplicata) submitted
// for risk analysis. JSON field names follow the upstream wire contract
// used by originators and BI consumers.
type Receivable struct {
	// Core identifiers
	ID         string `json:"id_duplicata"`
	InvoiceKey string `json:"chave_nfe"`

	// Temporal
	IssuedAt time.Time `json:"data_emissao"`
	DueAt    time.Time `json:"data_vencimento"`
	TermDays int       `json:"prazo_dias"`

	// Creditor (cedente) - the company selling the receivable
	CreditorID     string `json:"id_cedente,omitempty"`
	CreditorName   string `json:"nome_cedente"`
	CreditorTaxID  string `json:"cnpj_cedente"`
	CreditorState  string `json:"estado_cedente"`
	CreditorSector string `json:"setor_cedente"`

	// Debtor (sacado) - the company owing the payment
	DebtorID     string `json:"id_sacado,omitempty"`
	DebtorName   string `json:"nome_sacado"`
	DebtorTaxID  string `json:"cnpj_sacado"`
	DebtorState  string `json:"estado_sacado"`
	DebtorSector string `json:"setor_sacado,omitempty"`

	// Financial details
	Product  string  `json:"produto"`
	Amount   float64 `json:"valor"`
	Accepted bool    `json:"aceite_sacado"`

	// Endorsee, when the title has been endorsed to a third party
	Endorsee string `json:"endossatario,omitempty"`

	// Ground truth, present only on labeled datasets. A nil FraudLabel
	// means the record is unlabeled.
	FraudLabel *int   `json:"label_fraude,omitempty"`
	FraudType  string `json:"tipo_fraude,omitempty"`
}

// Labeled reports whether the record carries ground truth.
func (r *Receivable) Labeled() bool {
	return r.FraudLabel != nil
}

// IsFraud reports the ground-truth label. False for unlabeled records.
func (r *Receivable) IsFraud() bool {
	return r.FraudLabel != nil && *r.FraudLabel == 1
}

// TaxIDRoot returns the first 8 digits of a Brazilian CNPJ, which
// identify the company independent of branch and check digits.
// Formatting characters are stripped first.
func TaxIDRoot(taxID string) string {
	var b strings.Builder
	for _, c := range taxID {
		if c >= '0' && c <= '9' {
			b.WriteRune(c)
			if b.Len() == 8 {
				break
			}
		}
	}
	return b.String()
}

// AnalyzeRequest is the API payload for batch analysis.
type AnalyzeRequest struct {
	Receivables []Receivable `json:"duplicatas"`
	TopN        int          `json:"top_n,omitempty"`
}

// SeedRequest configures synthetic dataset generation.
type SeedRequest struct {
	Creditors   int     `json:"cedentes,omitempty"`
	Debtors     int     `json:"sacados,omitempty"`
	Receivables int     `json:"duplicatas,omitempty"`
	FraudRate   float64 `json:"taxa_fraude,omitempty"`
	Seed        int64   `json:"seed,omitempty"`
}

// DatasetStatus summarizes the stored dataset.
type DatasetStatus struct {
	Total   int64 `json:"total"`
	Labeled int64 `json:"rotuladas"`
	Frauds  int64 `json:"fraudes"`
	Seeded  bool  `json:"populado"`
}
