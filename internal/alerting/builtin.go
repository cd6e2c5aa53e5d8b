package alerting

import "github.com/opensource-finance/caracara/internal/domain"

// DefaultRules returns the alert rules installed when the database has
// none. Operators can edit or disable them afterwards.
func DefaultRules() []domain.AlertRule {
	return []domain.AlertRule{
		{
			ID:          "builtin-critical-tier",
			Name:        "Classificação crítica",
			Description: "Any receivable scored into the CRITICAL tier",
			Expression:  `tier == "CRITICAL"`,
			Severity:    domain.SeverityCritical,
			Enabled:     true,
		},
		{
			ID:          "builtin-double-discount",
			Name:        "Duplicidade de chave NF-e",
			Description: "Invoice key appears on more than one title in the batch",
			Expression:  `duplicate_count > 1`,
			Severity:    domain.SeverityCritical,
			Enabled:     true,
		},
		{
			ID:          "builtin-shell-endorsement",
			Name:        "Endosso para entidade não regulada",
			Description: "High value title endorsed outside the regulated institution list",
			Expression:  `suspicious_endorsement && amount > 10000.0`,
			Severity:    domain.SeverityWarning,
			Enabled:     true,
		},
		{
			ID:          "builtin-circular-group",
			Name:        "Relação circular",
			Description: "Creditor and debtor share a tax id root in the same state",
			Expression:  `tax_root_match && same_state`,
			Severity:    domain.SeverityWarning,
			Enabled:     true,
		},
	}
}
