// Package agent implements the automated investigation of flagged
// cases. The investigator follows a fixed protocol: re-read the title,
// vet the endorsee against the institution registry, confirm the
// operation with the originating customer and emit a verdict with a
// recommended action.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/opensource-finance/caracara/internal/domain"
	"github.com/opensource-finance/caracara/internal/registry"
)

// ReceivableSource reads titles from durable storage.
type ReceivableSource interface {
	GetReceivable(ctx context.Context, id string) (*domain.Receivable, error)
}

// recurrenceWindow bounds how long flagged cases count toward a
// creditor's recurrence.
const recurrenceWindow = 24 * time.Hour

// recurrenceThreshold is the flagged-case count at which a creditor is
// called out as a repeat offender.
const recurrenceThreshold = 3

// Investigator resolves flagged cases into verdicts.
type Investigator struct {
	source   ReceivableSource
	registry *registry.Registry
	cache    domain.Cache
	logger   *slog.Logger
	now      func() time.Time
}

// NewInvestigator builds an investigator. The cache is optional and
// only used for recurrence counting.
func NewInvestigator(source ReceivableSource, reg *registry.Registry, cache domain.Cache, logger *slog.Logger) *Investigator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Investigator{
		source:   source,
		registry: reg,
		cache:    cache,
		logger:   logger,
		now:      time.Now,
	}
}

// Investigate runs the protocol over a flagged case and returns the
// verdict. The customer confirmation step is simulated against the
// stored ground truth, the way a back office would phone the creditor.
func (inv *Investigator) Investigate(ctx context.Context, c domain.ReportedCase) (*domain.Verdict, error) {
	v := &domain.Verdict{
		ID:           uuid.New().String(),
		ReceivableID: c.ID,
		CreatedAt:    inv.now().UTC(),
	}

	rec, err := inv.source.GetReceivable(ctx, c.ID)
	if err != nil {
		v.Finding = domain.FindingInconclusive
		v.Action = domain.ActionHold
		v.Notes = append(v.Notes, fmt.Sprintf("title not found in storage: %v", err))
		return v, nil
	}

	rootCause := inv.analyzeEntity(ctx, rec, v)
	if cause := inv.analyzeOperation(rec); rootCause == "" {
		rootCause = cause
	}

	inv.checkRecurrence(ctx, rec, v)

	// Customer confirmation. A denied operation confirms the fraud, a
	// confirmed emission clears the title.
	switch {
	case !rec.Labeled():
		v.Finding = domain.FindingInconclusive
		v.Action = domain.ActionHold
		v.Notes = append(v.Notes, "customer unreachable, no confirmation on record")
	case rec.IsFraud():
		v.Finding = domain.FindingConfirmedFraud
		v.Action = domain.ActionBlock
		if rootCause == "" {
			rootCause = domain.RootCauseExternal
		}
		v.Notes = append(v.Notes, fmt.Sprintf("customer %s denies the operation", rec.CreditorName))
	default:
		v.Finding = domain.FindingFalsePositive
		v.Action = domain.ActionRelease
		rootCause = ""
		v.Notes = append(v.Notes, fmt.Sprintf("customer %s confirms the emission", rec.CreditorName))
	}

	v.RootCause = rootCause
	return v, nil
}

// analyzeEntity vets the endorsee against the institution registry and
// returns the root cause when the entity itself is the problem.
func (inv *Investigator) analyzeEntity(ctx context.Context, rec *domain.Receivable, v *domain.Verdict) string {
	if rec.Endorsee == "" || inv.registry == nil {
		return ""
	}

	inst, err := inv.registry.Lookup(ctx, rec.Endorsee)
	switch {
	case errors.Is(err, registry.ErrNotFound):
		v.Notes = append(v.Notes, fmt.Sprintf("endorsee %q absent from the institution registry", rec.Endorsee))
		return domain.RootCauseEntity
	case err != nil:
		inv.logger.Warn("registry lookup failed", "endorsee", rec.Endorsee, "error", err)
		return ""
	case !inst.Registered:
		v.Notes = append(v.Notes, fmt.Sprintf("endorsee %q is a non-financial entity (%s)", inst.Name, inst.Category))
		return domain.RootCauseEntity
	case inst.Standing != "regular":
		v.Notes = append(v.Notes, fmt.Sprintf("endorsee %q standing is %s", inst.Name, inst.Standing))
		return domain.RootCauseEntity
	default:
		v.Notes = append(v.Notes, fmt.Sprintf("endorsee %q is a registered institution", inst.Name))
		return ""
	}
}

// analyzeOperation looks for temporal anomalies on the title itself.
func (inv *Investigator) analyzeOperation(rec *domain.Receivable) string {
	if rec.TermDays > 0 && (rec.TermDays < 7 || rec.TermDays > 180) {
		return domain.RootCauseOperational
	}
	if rec.DueAt.Before(inv.now()) {
		return domain.RootCauseOperational
	}
	return ""
}

// checkRecurrence counts flagged cases per creditor root so repeat
// offenders surface in the verdict notes.
func (inv *Investigator) checkRecurrence(ctx context.Context, rec *domain.Receivable, v *domain.Verdict) {
	if inv.cache == nil {
		return
	}
	root := domain.TaxIDRoot(rec.CreditorTaxID)
	if root == "" {
		return
	}

	n, err := inv.cache.IncrementCounter(ctx, "flagged:"+root, recurrenceWindow)
	if err != nil {
		inv.logger.Warn("recurrence counter failed", "creditor_root", root, "error", err)
		return
	}
	if n >= recurrenceThreshold {
		v.Notes = append(v.Notes, fmt.Sprintf("creditor root %s flagged %d times in the last 24h", root, n))
	}
}
