package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/opensource-finance/caracara/internal/alerting"
	"github.com/opensource-finance/caracara/internal/bus"
	"github.com/opensource-finance/caracara/internal/domain"
	"github.com/opensource-finance/caracara/internal/engine"
	"github.com/opensource-finance/caracara/internal/metrics"
	"github.com/opensource-finance/caracara/internal/registry"
	"github.com/opensource-finance/caracara/internal/repository"
)

// createTestServer wires a full server over a temp sqlite database and
// an in-process bus.
func createTestServer(t *testing.T) *Server {
	t.Helper()

	cfg := domain.ServerConfig{
		Host:         "localhost",
		Port:         8080,
		ReadTimeout:  30,
		WriteTimeout: 30,
	}

	repo, err := repository.New(domain.RepositoryConfig{
		Driver:     "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "api_test.db"),
	})
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	eventBus := bus.NewChannelBus(100)
	t.Cleanup(func() { eventBus.Close() })

	alerts, err := alerting.NewEngine(4)
	if err != nil {
		t.Fatalf("failed to create alert engine: %v", err)
	}
	if err := alerts.Reload(alerting.DefaultRules()); err != nil {
		t.Fatalf("failed to load builtin alert rules: %v", err)
	}

	seed := domain.SeedConfig{
		Creditors:   5,
		Debtors:     20,
		Receivables: 200,
		FraudRate:   0.15,
		Seed:        42,
	}

	eng := engine.New(domain.EngineConfig{})
	reg := registry.New(nil, nil)

	return NewServer(cfg, repo, nil, eventBus, eng, alerts, reg, metrics.NewCollector(), seed, "test-v1")
}

func testBatch() []domain.Receivable {
	issue := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	batch := make([]domain.Receivable, 0, 6)
	for i := 0; i < 6; i++ {
		batch = append(batch, domain.Receivable{
			ID:             fmt.Sprintf("dup-%d", i),
			InvoiceKey:     fmt.Sprintf("352505%038d", i),
			IssuedAt:       issue,
			DueAt:          issue.AddDate(0, 0, 60),
			TermDays:       60,
			CreditorName:   "Indústria Queiroz Ltda",
			CreditorTaxID:  "12.345.678/0001-90",
			CreditorState:  "SP",
			CreditorSector: "Construção",
			DebtorName:     "Comercial Duarte S.A.",
			DebtorTaxID:    "98.765.432/0001-10",
			DebtorState:    "RJ",
			Amount:         5000 + float64(i)*137.5,
			Accepted:       true,
		})
	}
	return batch
}

func postJSON(t *testing.T, server *Server, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	server.Router().ServeHTTP(rr, req)
	return rr
}

func get(t *testing.T, server *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rr := httptest.NewRecorder()
	server.Router().ServeHTTP(rr, req)
	return rr
}

func TestAnalyzeEndpoint(t *testing.T) {
	server := createTestServer(t)

	t.Run("SuccessfulAnalysis", func(t *testing.T) {
		rr := postJSON(t, server, "/v1/analyze", domain.AnalyzeRequest{Receivables: testBatch()})
		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
		}

		var resp domain.AnalysisResult
		if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to parse response: %v", err)
		}
		if len(resp.Summary) != len(domain.Tiers) {
			t.Errorf("summary has %d tiers, want %d", len(resp.Summary), len(domain.Tiers))
		}
		if !strings.Contains(rr.Body.String(), `"resumo_risco":{"LOW":`) {
			t.Errorf("summary must serialize as a keyed object: %s", rr.Body.String())
		}
		if resp.Metrics != nil {
			t.Error("unlabeled batch must not produce detection metrics")
		}
		if rr.Header().Get(RequestIDHeader) == "" {
			t.Error("expected request id header")
		}
	})

	t.Run("MissingField", func(t *testing.T) {
		batch := testBatch()
		batch[2].DebtorTaxID = ""
		rr := postJSON(t, server, "/v1/analyze", domain.AnalyzeRequest{Receivables: batch})
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("expected status 400, got %d", rr.Code)
		}
		if !strings.Contains(rr.Body.String(), "cnpj_sacado") {
			t.Errorf("error should name the missing field: %s", rr.Body.String())
		}
	})

	t.Run("EmptyBatch", func(t *testing.T) {
		rr := postJSON(t, server, "/v1/analyze", domain.AnalyzeRequest{})
		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rr.Code)
		}
	})

	t.Run("InvalidJSON", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/v1/analyze", strings.NewReader("{nope"))
		rr := httptest.NewRecorder()
		server.Router().ServeHTTP(rr, req)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rr.Code)
		}
	})
}

func TestDatasetLifecycle(t *testing.T) {
	server := createTestServer(t)

	t.Run("StatusEmpty", func(t *testing.T) {
		rr := get(t, server, "/v1/dataset/status")
		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rr.Code)
		}
		var status domain.DatasetStatus
		json.Unmarshal(rr.Body.Bytes(), &status)
		if status.Seeded || status.Total != 0 {
			t.Errorf("fresh database reports %+v", status)
		}
	})

	t.Run("ReportBeforeSeed", func(t *testing.T) {
		rr := get(t, server, "/v1/reports/frauds")
		if rr.Code != http.StatusConflict {
			t.Errorf("expected status 409, got %d", rr.Code)
		}
	})

	t.Run("Seed", func(t *testing.T) {
		rr := postJSON(t, server, "/v1/dataset/seed", domain.SeedRequest{Receivables: 200})
		if rr.Code != http.StatusCreated {
			t.Fatalf("expected status 201, got %d: %s", rr.Code, rr.Body.String())
		}
	})

	t.Run("StatusSeeded", func(t *testing.T) {
		rr := get(t, server, "/v1/dataset/status")
		var status domain.DatasetStatus
		json.Unmarshal(rr.Body.Bytes(), &status)
		if !status.Seeded || status.Total != 230 {
			t.Errorf("status after seed: %+v", status)
		}
		if status.Frauds == 0 {
			t.Error("seeded dataset should contain frauds")
		}
	})

	t.Run("FraudReport", func(t *testing.T) {
		rr := get(t, server, "/v1/reports/frauds?n=10")
		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
		}
		var resp domain.AnalysisResult
		if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to parse report: %v", err)
		}
		if len(resp.TopSuspects) != 10 {
			t.Errorf("report has %d suspects, want 10", len(resp.TopSuspects))
		}
		if resp.Metrics == nil {
			t.Fatal("labeled dataset must produce detection metrics")
		}
		if resp.Metrics.ActualFrauds == 0 {
			t.Error("metrics should count the injected frauds")
		}
	})

	t.Run("Analytics", func(t *testing.T) {
		rr := get(t, server, "/v1/analytics/summary")
		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rr.Code)
		}
		var summary domain.DatasetSummary
		json.Unmarshal(rr.Body.Bytes(), &summary)
		if summary.Total != 230 || summary.TotalAmount <= 0 {
			t.Errorf("summary: %+v", summary)
		}

		rr = get(t, server, "/v1/analytics/fraud-distribution")
		if rr.Code != http.StatusOK {
			t.Errorf("fraud-distribution status %d", rr.Code)
		}
		rr = get(t, server, "/v1/analytics/top-creditors?n=3")
		if rr.Code != http.StatusOK {
			t.Errorf("top-creditors status %d", rr.Code)
		}
	})

	t.Run("Clear", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodDelete, "/v1/dataset", nil)
		rr := httptest.NewRecorder()
		server.Router().ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rr.Code)
		}

		rr = get(t, server, "/v1/dataset/status")
		var status domain.DatasetStatus
		json.Unmarshal(rr.Body.Bytes(), &status)
		if status.Total != 0 {
			t.Errorf("dataset not cleared: %+v", status)
		}
	})
}

func TestAlertRuleEndpoints(t *testing.T) {
	server := createTestServer(t)

	rule := domain.AlertRule{
		ID:         "rule-high-score",
		Name:       "High score",
		Expression: "risk_score > 5.0",
		Severity:   domain.SeverityCritical,
		Enabled:    true,
	}

	t.Run("Create", func(t *testing.T) {
		rr := postJSON(t, server, "/v1/alert-rules", rule)
		if rr.Code != http.StatusCreated {
			t.Fatalf("expected status 201, got %d: %s", rr.Code, rr.Body.String())
		}
	})

	t.Run("CreateInvalidExpression", func(t *testing.T) {
		bad := rule
		bad.ID = "rule-bad"
		bad.Expression = "not_a_var > 1"
		rr := postJSON(t, server, "/v1/alert-rules", bad)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rr.Code)
		}
	})

	t.Run("Get", func(t *testing.T) {
		rr := get(t, server, "/v1/alert-rules/rule-high-score")
		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rr.Code)
		}
		var got domain.AlertRule
		json.Unmarshal(rr.Body.Bytes(), &got)
		if got.Expression != rule.Expression {
			t.Errorf("expression = %s", got.Expression)
		}
	})

	t.Run("GetUnknown", func(t *testing.T) {
		rr := get(t, server, "/v1/alert-rules/nope")
		if rr.Code != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", rr.Code)
		}
	})

	t.Run("Reload", func(t *testing.T) {
		rr := postJSON(t, server, "/v1/alert-rules/reload", nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
		}
		if server.Handler().alerts.Count() != 1 {
			t.Errorf("loaded count = %d, want 1 (only the persisted rule)", server.Handler().alerts.Count())
		}
	})

	t.Run("Delete", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodDelete, "/v1/alert-rules/rule-high-score", nil)
		rr := httptest.NewRecorder()
		server.Router().ServeHTTP(rr, req)
		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rr.Code)
		}
		if server.Handler().alerts.Count() != 0 {
			t.Errorf("engine still holds %d rules after delete", server.Handler().alerts.Count())
		}
	})
}

func TestHealthEndpoints(t *testing.T) {
	server := createTestServer(t)

	rr := get(t, server, "/health")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	var health map[string]string
	json.Unmarshal(rr.Body.Bytes(), &health)
	if health["status"] != "healthy" || health["version"] != "test-v1" {
		t.Errorf("health: %v", health)
	}

	rr = get(t, server, "/ready")
	if rr.Code != http.StatusOK {
		t.Errorf("ready status %d", rr.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	server := createTestServer(t)

	postJSON(t, server, "/v1/analyze", domain.AnalyzeRequest{Receivables: testBatch()})

	rr := get(t, server, "/metrics")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "caracara_batches_scored_total 1") {
		t.Error("exposition missing scored batch counter")
	}
}

func TestVerdictsEndpoint(t *testing.T) {
	server := createTestServer(t)

	rr := get(t, server, "/v1/verdicts")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	var resp struct {
		Count int `json:"count"`
	}
	json.Unmarshal(rr.Body.Bytes(), &resp)
	if resp.Count != 0 {
		t.Errorf("fresh database has %d verdicts", resp.Count)
	}
}

func TestInstitutionEndpoints(t *testing.T) {
	server := createTestServer(t)

	t.Run("List", func(t *testing.T) {
		rr := get(t, server, "/mocks/institutions")
		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rr.Code)
		}
		var resp struct {
			Institutions []domain.Institution `json:"institutions"`
			Count        int                  `json:"count"`
		}
		if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to parse response: %v", err)
		}
		if resp.Count == 0 || len(resp.Institutions) != resp.Count {
			t.Errorf("institution list: count=%d len=%d", resp.Count, len(resp.Institutions))
		}
	})

	t.Run("GetByTaxID", func(t *testing.T) {
		rr := get(t, server, "/mocks/institutions/60701190000104")
		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
		}
		var inst domain.Institution
		json.Unmarshal(rr.Body.Bytes(), &inst)
		if !inst.Registered || inst.Standing != "regular" {
			t.Errorf("expected a registered bank, got %+v", inst)
		}
	})

	t.Run("Unknown", func(t *testing.T) {
		rr := get(t, server, "/mocks/institutions/00000000000000")
		if rr.Code != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", rr.Code)
		}
	})
}
