// Package alerting provides the CEL-based alert routing engine. Operators
// configure rules as CEL expressions over scored receivables; matching
// cases are turned into alerts and handed to the investigation pipeline.
package alerting

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"

	"github.com/opensource-finance/caracara/internal/domain"
	"github.com/opensource-finance/caracara/internal/engine"
)

// Engine compiles and evaluates alert rules. Rules are hot-reloadable
// from the database.
type Engine struct {
	mu         sync.RWMutex
	env        *cel.Env
	compiled   map[string]*compiledRule
	maxWorkers int
}

type compiledRule struct {
	rule    domain.AlertRule
	program cel.Program
}

// NewEngine creates an alert engine with the scored-receivable variable
// set registered in the CEL environment.
func NewEngine(maxWorkers int) (*Engine, error) {
	if maxWorkers <= 0 {
		maxWorkers = 10
	}

	env, err := cel.NewEnv(
		cel.Variable("risk_score", cel.DoubleType),
		cel.Variable("tier", cel.StringType),
		cel.Variable("amount", cel.DoubleType),
		cel.Variable("duplicate_count", cel.IntType),
		cel.Variable("sector", cel.StringType),
		cel.Variable("creditor_state", cel.StringType),
		cel.Variable("debtor_state", cel.StringType),
		cel.Variable("endorsee", cel.StringType),
		cel.Variable("zscore", cel.DoubleType),
		cel.Variable("same_state", cel.BoolType),
		cel.Variable("suspicious_endorsement", cel.BoolType),
		cel.Variable("no_acceptance", cel.BoolType),
		cel.Variable("overdue", cel.BoolType),
		cel.Variable("round_amount", cel.BoolType),
		cel.Variable("abnormal_term", cel.BoolType),
		cel.Variable("tax_root_match", cel.BoolType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	return &Engine{
		env:        env,
		compiled:   make(map[string]*compiledRule),
		maxWorkers: maxWorkers,
	}, nil
}

// Validate compiles a rule without loading it.
func (e *Engine) Validate(rule domain.AlertRule) error {
	e.mu.RLock()
	defer e.mu.RUnlock()

	_, err := e.compile(rule)
	return err
}

// Load compiles and loads a single rule.
func (e *Engine) Load(rule domain.AlertRule) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	c, err := e.compile(rule)
	if err != nil {
		return err
	}
	e.compiled[rule.ID] = c
	return nil
}

// Reload replaces all loaded rules atomically. Disabled rules are
// skipped. On a compile error the previous rule set stays active.
func (e *Engine) Reload(rules []domain.AlertRule) error {
	next := make(map[string]*compiledRule)

	e.mu.Lock()
	defer e.mu.Unlock()

	for _, rule := range rules {
		if !rule.Enabled {
			continue
		}
		c, err := e.compile(rule)
		if err != nil {
			return err
		}
		next[rule.ID] = c
	}

	e.compiled = next
	return nil
}

// Count returns the number of loaded rules.
func (e *Engine) Count() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.compiled)
}

// Loaded returns the currently loaded rule configurations.
func (e *Engine) Loaded() []domain.AlertRule {
	e.mu.RLock()
	defer e.mu.RUnlock()

	rules := make([]domain.AlertRule, 0, len(e.compiled))
	for _, c := range e.compiled {
		rules = append(rules, c.rule)
	}
	return rules
}

// EvaluateBatch runs every loaded rule over every scored record in
// parallel and returns the alerts in input order. A rule that errors on
// one record is skipped for that record.
func (e *Engine) EvaluateBatch(ctx context.Context, scored []domain.ScoredReceivable) ([]domain.Alert, error) {
	e.mu.RLock()
	rules := make([]*compiledRule, 0, len(e.compiled))
	for _, c := range e.compiled {
		rules = append(rules, c)
	}
	e.mu.RUnlock()

	if len(rules) == 0 || len(scored) == 0 {
		return nil, nil
	}

	perRecord := make([][]domain.Alert, len(scored))
	sem := make(chan struct{}, e.maxWorkers)
	var wg sync.WaitGroup

	for i := range scored {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			perRecord[idx] = e.evaluateRecord(rules, &scored[idx])
		}(i)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var alerts []domain.Alert
	for _, batch := range perRecord {
		alerts = append(alerts, batch...)
	}
	return alerts, nil
}

func (e *Engine) evaluateRecord(rules []*compiledRule, s *domain.ScoredReceivable) []domain.Alert {
	activation := map[string]any{
		"risk_score":             s.RiskScore,
		"tier":                   s.RiskTier,
		"amount":                 s.Amount,
		"duplicate_count":        int64(s.Features.InvoiceKeyCount),
		"sector":                 s.CreditorSector,
		"creditor_state":         s.CreditorState,
		"debtor_state":           s.DebtorState,
		"endorsee":               s.Endorsee,
		"zscore":                 s.Features.SectorZScore,
		"same_state":             s.Features.SameState,
		"suspicious_endorsement": s.Features.SuspiciousEndorsement,
		"no_acceptance":          s.Features.NoAcceptance,
		"overdue":                s.Features.Overdue,
		"round_amount":           s.Features.RoundAmount,
		"abnormal_term":          s.Features.AbnormalTerm,
		"tax_root_match":         s.Features.TaxIDRootMatch,
	}

	var alerts []domain.Alert
	for _, c := range rules {
		out, _, err := c.program.Eval(activation)
		if err != nil {
			continue
		}
		if matched, ok := out.(types.Bool); ok && bool(matched) {
			alerts = append(alerts, domain.Alert{
				RuleID:   c.rule.ID,
				RuleName: c.rule.Name,
				Severity: c.rule.Severity,
				Case:     engine.CaseFor(s),
			})
		}
	}
	return alerts
}

func (e *Engine) compile(rule domain.AlertRule) (*compiledRule, error) {
	ast, issues := e.env.Compile(rule.Expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("failed to compile rule %s: %w", rule.ID, issues.Err())
	}

	if ast.OutputType() != cel.BoolType {
		return nil, fmt.Errorf("rule %s: expression must return bool, got %s", rule.ID, ast.OutputType())
	}

	program, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("failed to create program for rule %s: %w", rule.ID, err)
	}

	return &compiledRule{rule: rule, program: program}, nil
}
