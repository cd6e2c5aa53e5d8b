package domain

import "time"

// AlertRule defines an operator-configurable routing rule evaluated
// over scored receivables. Matching cases are published for
// investigation.
type AlertRule struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`

	// CEL expression over the scored record, e.g.
	// `risk_score > 5.0 && suspicious_endorsement`
	Expression string `json:"expression"`

	Severity string `json:"severity"` // "info", "warning", "critical"
	Enabled  bool   `json:"enabled"`

	CreatedAt time.Time `json:"createdAt,omitempty"`
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
}

// Alert is a scored case matched by a rule.
type Alert struct {
	RuleID   string       `json:"ruleId"`
	RuleName string       `json:"ruleName"`
	Severity string       `json:"severity"`
	Case     ReportedCase `json:"case"`
}

// Alert severities.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)
