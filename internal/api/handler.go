package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/opensource-finance/caracara/internal/alerting"
	"github.com/opensource-finance/caracara/internal/domain"
	"github.com/opensource-finance/caracara/internal/engine"
	"github.com/opensource-finance/caracara/internal/metrics"
	"github.com/opensource-finance/caracara/internal/registry"
	"github.com/opensource-finance/caracara/internal/repository"
	"github.com/opensource-finance/caracara/internal/synthetic"
)

// Handler holds dependencies for API handlers.
type Handler struct {
	repo         domain.Repository
	cache        domain.Cache
	bus          domain.EventBus
	engine       *engine.Engine
	alerts       *alerting.Engine
	institutions *registry.Registry
	collector    *metrics.Collector
	seed         domain.SeedConfig
	version      string
}

// NewHandler creates a new API handler.
func NewHandler(repo domain.Repository, cache domain.Cache, bus domain.EventBus, eng *engine.Engine, alerts *alerting.Engine, reg *registry.Registry, collector *metrics.Collector, seed domain.SeedConfig, version string) *Handler {
	return &Handler{
		repo:         repo,
		cache:        cache,
		bus:          bus,
		engine:       eng,
		alerts:       alerts,
		institutions: reg,
		collector:    collector,
		seed:         seed,
		version:      version,
	}
}

// Analyze handles POST /v1/analyze: scores a submitted batch and
// returns the risk summary, the top suspect report and, when the batch
// carries ground truth, the detection metrics.
func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()

	var req domain.AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}
	if len(req.Receivables) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "duplicatas is required",
		})
		return
	}

	result, scored, err := h.engine.AnalyzeScored(req.Receivables, engine.Options{TopN: req.TopN})
	if err != nil {
		var missing *domain.MissingFieldError
		if errors.As(err, &missing) {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": missing.Error(),
			})
			return
		}
		slog.Error("analysis failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "analysis failed",
		})
		return
	}

	if h.collector != nil {
		scores := make([]float64, len(scored))
		for i := range scored {
			scores[i] = scored[i].RiskScore
		}
		h.collector.RecordBatch(time.Since(start), scores)
	}

	h.routeAlerts(ctx, scored)

	writeJSON(w, http.StatusOK, result)
}

// routeAlerts evaluates the loaded alert rules over the scored batch
// and publishes matches for investigation. Ground truth never leaves
// the process on the bus.
func (h *Handler) routeAlerts(ctx context.Context, scored []domain.ScoredReceivable) {
	if h.alerts == nil || h.alerts.Count() == 0 {
		return
	}

	alerts, err := h.alerts.EvaluateBatch(ctx, scored)
	if err != nil {
		slog.Error("alert evaluation failed", "error", err)
		return
	}

	for _, alert := range alerts {
		if h.collector != nil {
			h.collector.RecordFlagged(alert.Severity)
		}
		if h.bus == nil {
			continue
		}
		alert.Case = alert.Case.Sanitize()
		payload, err := json.Marshal(alert)
		if err != nil {
			continue
		}
		if err := h.bus.Publish(ctx, domain.TopicCaseFlagged, payload); err != nil {
			slog.Error("failed to publish flagged case", "case", alert.Case.ID, "error", err)
		}
	}
}

// SeedDataset handles POST /v1/dataset/seed: replaces the stored
// dataset with a freshly generated synthetic one.
func (h *Handler) SeedDataset(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.repo == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "repository not available",
		})
		return
	}

	cfg := h.seed
	if r.ContentLength > 0 {
		var req domain.SeedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{
				"error": "invalid JSON request body",
			})
			return
		}
		if req.Creditors > 0 {
			cfg.Creditors = req.Creditors
		}
		if req.Debtors > 0 {
			cfg.Debtors = req.Debtors
		}
		if req.Receivables > 0 {
			cfg.Receivables = req.Receivables
		}
		if req.FraudRate > 0 {
			cfg.FraudRate = req.FraudRate
		}
		if req.Seed != 0 {
			cfg.Seed = req.Seed
		}
	}

	dataset := synthetic.NewFactory(cfg.Seed, time.Now().UTC()).Generate(cfg)

	if err := h.repo.ClearReceivables(ctx); err != nil {
		slog.Error("failed to clear dataset", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to clear previous dataset",
		})
		return
	}
	if err := h.repo.SaveReceivables(ctx, dataset); err != nil {
		slog.Error("failed to save dataset", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to save dataset",
		})
		return
	}

	frauds := 0
	for i := range dataset {
		if dataset[i].IsFraud() {
			frauds++
		}
	}

	if h.bus != nil {
		status := domain.DatasetStatus{
			Total:   int64(len(dataset)),
			Labeled: int64(len(dataset)),
			Frauds:  int64(frauds),
			Seeded:  true,
		}
		if payload, err := json.Marshal(status); err == nil {
			if err := h.bus.Publish(ctx, domain.TopicDatasetSeeded, payload); err != nil {
				slog.Error("failed to publish seed event", "error", err)
			}
		}
	}

	slog.Info("dataset seeded", "total", len(dataset), "frauds", frauds, "seed", cfg.Seed)
	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "dataset seeded",
		"total":   len(dataset),
		"fraudes": frauds,
		"seed":    cfg.Seed,
	})
}

// DatasetStatus handles GET /v1/dataset/status.
func (h *Handler) DatasetStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	total, err := h.repo.CountReceivables(ctx)
	if err != nil {
		slog.Error("failed to count receivables", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to read dataset status",
		})
		return
	}
	labeled, frauds, err := h.repo.CountFrauds(ctx)
	if err != nil {
		slog.Error("failed to count frauds", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to read dataset status",
		})
		return
	}

	writeJSON(w, http.StatusOK, domain.DatasetStatus{
		Total:   total,
		Labeled: labeled,
		Frauds:  frauds,
		Seeded:  total > 0,
	})
}

// ClearDataset handles DELETE /v1/dataset.
func (h *Handler) ClearDataset(w http.ResponseWriter, r *http.Request) {
	if err := h.repo.ClearReceivables(r.Context()); err != nil {
		slog.Error("failed to clear dataset", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to clear dataset",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "dataset cleared",
	})
}

// FraudReport handles GET /v1/reports/frauds: runs the engine over the
// stored dataset and returns the analysis. Query param n bounds the
// suspect report size.
func (h *Handler) FraudReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	total, err := h.repo.CountReceivables(ctx)
	if err != nil {
		slog.Error("failed to count receivables", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to load dataset",
		})
		return
	}
	if total == 0 {
		writeJSON(w, http.StatusConflict, map[string]string{
			"error": "dataset is empty, seed it first",
		})
		return
	}

	dataset, err := h.repo.ListReceivables(ctx, int(total), 0)
	if err != nil {
		slog.Error("failed to load dataset", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to load dataset",
		})
		return
	}

	start := time.Now()
	result, scored, err := h.engine.AnalyzeScored(dataset, engine.Options{TopN: queryInt(r, "n", 0)})
	if err != nil {
		slog.Error("stored dataset failed validation", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "stored dataset failed validation",
		})
		return
	}

	if h.collector != nil {
		scores := make([]float64, len(scored))
		for i := range scored {
			scores[i] = scored[i].RiskScore
		}
		h.collector.RecordBatch(time.Since(start), scores)
	}

	h.routeAlerts(ctx, scored)

	writeJSON(w, http.StatusOK, result)
}

// Health returns server health status.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "healthy"

	if h.repo != nil {
		if err := h.repo.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}
	if h.cache != nil {
		if err := h.cache.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  status,
		"version": h.version,
	})
}

// Ready returns whether the server is ready to accept traffic.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"ready": "true",
	})
}

// DatasetAnalytics handles GET /v1/analytics/summary.
func (h *Handler) DatasetAnalytics(w http.ResponseWriter, r *http.Request) {
	summary, err := h.repo.DatasetSummary(r.Context())
	if err != nil {
		slog.Error("failed to build dataset summary", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to build dataset summary",
		})
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// FraudDistribution handles GET /v1/analytics/fraud-distribution.
func (h *Handler) FraudDistribution(w http.ResponseWriter, r *http.Request) {
	dist, err := h.repo.FraudTypeDistribution(r.Context())
	if err != nil {
		slog.Error("failed to build fraud distribution", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to build fraud distribution",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"distribuicao": dist,
	})
}

// TopCreditors handles GET /v1/analytics/top-creditors.
func (h *Handler) TopCreditors(w http.ResponseWriter, r *http.Request) {
	n := queryInt(r, "n", 10)
	creditors, err := h.repo.TopCreditorsByExposure(r.Context(), n)
	if err != nil {
		slog.Error("failed to rank creditors", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to rank creditors",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"cedentes": creditors,
		"count":    len(creditors),
	})
}

// ListInstitutions handles GET /mocks/institutions: the simulated
// regulator registry, exposed so external tooling can vet endorsees
// the same way the investigator does.
func (h *Handler) ListInstitutions(w http.ResponseWriter, r *http.Request) {
	insts := h.institutions.All()
	writeJSON(w, http.StatusOK, map[string]any{
		"institutions": insts,
		"count":        len(insts),
	})
}

// GetInstitution handles GET /mocks/institutions/{taxid}.
func (h *Handler) GetInstitution(w http.ResponseWriter, r *http.Request) {
	inst, err := h.institutions.LookupTaxID(chi.URLParam(r, "taxid"))
	if err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{
				"error": "institution not found",
			})
			return
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, inst)
}

// ListAlertRules handles GET /v1/alert-rules.
func (h *Handler) ListAlertRules(w http.ResponseWriter, r *http.Request) {
	rules, err := h.repo.ListAlertRules(r.Context())
	if err != nil {
		slog.Error("failed to list alert rules", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to list alert rules",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"rules":  rules,
		"count":  len(rules),
		"loaded": h.alerts.Count(),
	})
}

// GetAlertRule handles GET /v1/alert-rules/{id}.
func (h *Handler) GetAlertRule(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	rule, err := h.repo.GetAlertRule(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{
				"error": "alert rule not found",
			})
			return
		}
		slog.Error("failed to get alert rule", "id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to get alert rule",
		})
		return
	}
	writeJSON(w, http.StatusOK, rule)
}

// CreateAlertRule handles POST /v1/alert-rules: validates the CEL
// expression, persists the rule and loads it into the running engine.
func (h *Handler) CreateAlertRule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var rule domain.AlertRule
	if err := json.NewDecoder(r.Body).Decode(&rule); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}
	if rule.ID == "" || rule.Name == "" || rule.Expression == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "id, name, and expression are required",
		})
		return
	}
	if rule.Severity == "" {
		rule.Severity = domain.SeverityWarning
	}

	if err := h.alerts.Validate(rule); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid CEL expression: " + err.Error(),
		})
		return
	}

	now := time.Now().UTC()
	rule.CreatedAt = now
	rule.UpdatedAt = now

	if err := h.repo.SaveAlertRule(ctx, &rule); err != nil {
		slog.Error("failed to save alert rule", "id", rule.ID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to save alert rule",
		})
		return
	}

	if rule.Enabled {
		if err := h.alerts.Load(rule); err != nil {
			slog.Error("failed to load alert rule", "id", rule.ID, "error", err)
		}
	}

	slog.Info("alert rule created", "id", rule.ID, "name", rule.Name)
	writeJSON(w, http.StatusCreated, rule)
}

// DeleteAlertRule handles DELETE /v1/alert-rules/{id}: disables the
// rule and reloads the engine from the database.
func (h *Handler) DeleteAlertRule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	if err := h.repo.DeleteAlertRule(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{
				"error": "alert rule not found",
			})
			return
		}
		slog.Error("failed to delete alert rule", "id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to delete alert rule",
		})
		return
	}

	h.reloadAlertRules(ctx)

	slog.Info("alert rule deleted", "id", id)
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "alert rule deleted",
	})
}

// ReloadAlertRules handles POST /v1/alert-rules/reload.
func (h *Handler) ReloadAlertRules(w http.ResponseWriter, r *http.Request) {
	if err := h.reloadAlertRules(r.Context()); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to reload alert rules: " + err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "alert rules reloaded",
		"count":   h.alerts.Count(),
	})
}

func (h *Handler) reloadAlertRules(ctx context.Context) error {
	rules, err := h.repo.ListAlertRules(ctx)
	if err != nil {
		slog.Error("failed to list alert rules for reload", "error", err)
		return err
	}
	configs := make([]domain.AlertRule, 0, len(rules))
	for _, r := range rules {
		configs = append(configs, *r)
	}
	if err := h.alerts.Reload(configs); err != nil {
		slog.Error("failed to reload alert rules", "error", err)
		return err
	}
	slog.Info("alert rules reloaded", "count", h.alerts.Count())
	return nil
}

// ListVerdicts handles GET /v1/verdicts.
func (h *Handler) ListVerdicts(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	verdicts, err := h.repo.ListVerdicts(r.Context(), limit)
	if err != nil {
		slog.Error("failed to list verdicts", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": "failed to list verdicts",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"verdicts": verdicts,
		"count":    len(verdicts),
	})
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
