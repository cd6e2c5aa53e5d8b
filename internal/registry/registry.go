// Package registry provides a lookup service for endorsement
// counterparties. It simulates a regulator registry of financial
// institutions; lookups go through the cache so repeated investigations
// of the same endorsee do not hit the backing dataset.
package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/opensource-finance/caracara/internal/domain"
)

// ErrNotFound is returned when the entity is not in the registry.
var ErrNotFound = errors.New("institution not found")

// institutionTTL bounds how long a lookup stays cached.
const institutionTTL = time.Hour

// Registry resolves entity names against the institution dataset.
type Registry struct {
	mu      sync.RWMutex
	byName  map[string]domain.Institution
	byTaxID map[string]domain.Institution
	cache   domain.Cache
	logger  *slog.Logger
}

// New creates a registry over the bundled dataset. The cache is
// optional; a nil cache disables lookup caching.
func New(cache domain.Cache, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{
		byName:  make(map[string]domain.Institution),
		byTaxID: make(map[string]domain.Institution),
		cache:   cache,
		logger:  logger,
	}
	for _, inst := range seedInstitutions() {
		r.index(inst)
	}
	return r
}

// index stores an entry under both keys. Entities without a tax ID
// (pessoas físicas in the dataset) are name-only.
func (r *Registry) index(inst domain.Institution) {
	r.byName[normalizeName(inst.Name)] = inst
	if digits := normalizeTaxID(inst.TaxID); digits != "" {
		r.byTaxID[digits] = inst
	}
}

// Lookup resolves an entity by exact name, case-insensitively. The
// result distinguishes registered financial institutions from known
// non-financial entities; unknown names return ErrNotFound.
func (r *Registry) Lookup(ctx context.Context, name string) (*domain.Institution, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("entity name is required")
	}

	key := normalizeName(name)

	if r.cache != nil {
		if inst, err := r.cache.GetInstitution(ctx, key); err == nil && inst != nil {
			return inst, nil
		}
	}

	r.mu.RLock()
	inst, ok := r.byName[key]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}

	if r.cache != nil {
		if err := r.cache.SetInstitution(ctx, key, &inst, institutionTTL); err != nil {
			r.logger.Warn("failed to cache institution", "name", inst.Name, "error", err)
		}
	}
	return &inst, nil
}

// LookupTaxID resolves an entity by CNPJ. Punctuation is ignored, so
// both "60.701.190/0001-04" and "60701190000104" resolve.
func (r *Registry) LookupTaxID(taxID string) (*domain.Institution, error) {
	digits := normalizeTaxID(taxID)
	if digits == "" {
		return nil, fmt.Errorf("tax id is required")
	}

	r.mu.RLock()
	inst, ok := r.byTaxID[digits]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return &inst, nil
}

// Register adds or replaces an institution entry at runtime.
func (r *Registry) Register(inst domain.Institution) {
	r.mu.Lock()
	r.index(inst)
	r.mu.Unlock()
}

// All returns every registry entry, sorted by name.
func (r *Registry) All() []domain.Institution {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Institution, 0, len(r.byName))
	for _, inst := range r.byName {
		out = append(out, inst)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Name < out[b].Name })
	return out
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// normalizeTaxID keeps only the CNPJ digits.
func normalizeTaxID(taxID string) string {
	var b strings.Builder
	for _, c := range taxID {
		if c >= '0' && c <= '9' {
			b.WriteByte(byte(c))
		}
	}
	return b.String()
}
