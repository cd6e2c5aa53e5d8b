//go:build integration
// +build integration

// Package integration provides end-to-end tests for the Caracara fraud scoring engine.
//
// These tests verify the COMPLETE analysis pipeline:
//
//	Duplicatas → Features → Risk Score → Report → Alerts → Investigation → Verdict
//
// Run with: go test -tags=integration -v ./tests/integration/...
//
// UNDERSTANDING THE DOMAIN:
//
//  1. DUPLICATA: A Brazilian trade receivable - an invoice-backed credit
//     title issued by a creditor (cedente) against a debtor (sacado)
//
//  2. FEATURE: A fraud indicator derived from the batch. Each record gets
//     statistical features (amount z-score within sector, P75 outliers),
//     relational features (shared invoice keys, shared tax ID roots), and
//     structural features (abnormal terms, missing acceptance, endorsements)
//
//  3. SCORE: Weighted sum of triggered indicators, mapped to a tier:
//     - Score <= 1.0      → LOW
//     - Score 1.0 - 3.0   → MODERATE
//     - Score 3.0 - 5.0   → HIGH
//     - Score > 5.0       → CRITICAL
//
//  4. ALERT: CEL rules evaluated over scored records. Matches are published
//     to the event bus and picked up by the investigation worker.
//
//  5. VERDICT: The worker's resolution - CONFIRMED_FRAUD, FALSE_POSITIVE,
//     LEGITIMATE, or INCONCLUSIVE, with a recommended action.
//
// These tests expect a running server with an empty or disposable database:
//
//	CARACARA_TEST_URL=http://localhost:8080 go test -tags=integration ./tests/integration/...
package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"testing"
	"time"
)

type TestConfig struct {
	BaseURL string
}

func getTestConfig() TestConfig {
	baseURL := os.Getenv("CARACARA_TEST_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	return TestConfig{BaseURL: baseURL}
}

// ============================================================================
// API Request/Response Types (matching Caracara's API contract)
// ============================================================================

type Duplicata struct {
	ID             string  `json:"id_duplicata"`
	InvoiceKey     string  `json:"chave_nfe"`
	IssuedAt       string  `json:"data_emissao"`
	DueAt          string  `json:"data_vencimento"`
	TermDays       int     `json:"prazo_dias"`
	CreditorName   string  `json:"nome_cedente"`
	CreditorTaxID  string  `json:"cnpj_cedente"`
	CreditorState  string  `json:"estado_cedente"`
	CreditorSector string  `json:"setor_cedente"`
	DebtorName     string  `json:"nome_sacado"`
	DebtorTaxID    string  `json:"cnpj_sacado"`
	DebtorState    string  `json:"estado_sacado"`
	Product        string  `json:"produto"`
	Amount         float64 `json:"valor"`
	Accepted       bool    `json:"aceite_sacado"`
	Endorsee       string  `json:"endossatario,omitempty"`
}

type AnalyzeRequest struct {
	Duplicatas []Duplicata `json:"duplicatas"`
	TopN       int         `json:"top_n,omitempty"`
}

type ReportedCase struct {
	ID            string   `json:"id_duplicata"`
	CreditorName  string   `json:"nome_cedente"`
	CreditorTaxID string   `json:"cnpj_cedente"`
	DebtorName    string   `json:"nome_sacado"`
	DebtorTaxID   string   `json:"cnpj_sacado"`
	Amount        float64  `json:"valor"`
	RiskScore     float64  `json:"risk_score"`
	RiskTier      string   `json:"classificacao"`
	Reasons       []string `json:"motivos"`
}

type DetectionMetrics struct {
	Total        int    `json:"total"`
	ActualFrauds int    `json:"fraudes_reais"`
	Flagged      int    `json:"detectadas"`
	PrecisionPct string `json:"precisao_pct"`
	RecallPct    string `json:"recall_pct"`
	F1Pct        string `json:"f1_pct"`
}

type AnalysisResult struct {
	Summary     map[string]int    `json:"resumo_risco"`
	TopSuspects []ReportedCase    `json:"top_suspeitos"`
	Metrics     *DetectionMetrics `json:"metricas"`
}

type Verdict struct {
	ID           string `json:"id"`
	ReceivableID string `json:"id_duplicata"`
	Finding      string `json:"finding"`
	Action       string `json:"action"`
}

// ============================================================================
// Test Helper Functions
// ============================================================================

func doRequest(t *testing.T, config TestConfig, method, path string, payload any) (*http.Response, []byte) {
	t.Helper()

	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("Failed to marshal request: %v", err)
		}
		body = bytes.NewReader(b)
	}

	httpReq, err := http.NewRequest(method, config.BaseURL+path, body)
	if err != nil {
		t.Fatalf("Failed to create request: %v", err)
	}
	if payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(httpReq)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Failed to read response: %v", err)
	}
	return resp, respBody
}

func analyze(t *testing.T, config TestConfig, req AnalyzeRequest) AnalysisResult {
	t.Helper()

	resp, body := doRequest(t, config, "POST", "/v1/analyze", req)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", resp.StatusCode, string(body))
	}

	var result AnalysisResult
	if err := json.Unmarshal(body, &result); err != nil {
		t.Fatalf("Failed to unmarshal response: %v (body: %s)", err, string(body))
	}
	return result
}

// normalDuplicata builds a plain 60-day receivable with nothing suspicious.
func normalDuplicata(i int) Duplicata {
	return Duplicata{
		ID:             fmt.Sprintf("dup-normal-%03d", i),
		InvoiceKey:     fmt.Sprintf("352506%038d", i),
		IssuedAt:       "2026-06-01T00:00:00Z",
		DueAt:          "2030-07-31T00:00:00Z",
		TermDays:       60,
		CreditorName:   fmt.Sprintf("Distribuidora Horizonte %d Ltda", i),
		CreditorTaxID:  fmt.Sprintf("%02d.111.222/0001-99", 10+i),
		CreditorState:  "SP",
		CreditorSector: "Alimentos",
		DebtorName:     fmt.Sprintf("Comercial Andrade %d ME", i),
		DebtorTaxID:    fmt.Sprintf("%02d.333.444/0001-55", 40+i),
		DebtorState:    "RJ",
		Product:        "Arroz tipo 1 - 5kg",
		Amount:         4800.00 + float64(i)*137.50,
		Accepted:       true,
	}
}

// ============================================================================
// SCENARIO 1: Clean Batch (No High-Risk Cases)
// ============================================================================

func TestCleanBatch_LowRisk(t *testing.T) {
	/*
	   SCENARIO: Eight unremarkable receivables. Different creditors, accepted
	   by the debtor, ordinary terms and amounts, no endorsements.

	   EXPECTED BEHAVIOR:
	   - No record crosses the HIGH tier
	   - Summary still reports all four tiers (zero-filled)
	   - Metrics is null (no record carries a fraud label)
	*/
	config := getTestConfig()

	req := AnalyzeRequest{}
	for i := 0; i < 8; i++ {
		req.Duplicatas = append(req.Duplicatas, normalDuplicata(i))
	}

	result := analyze(t, config, req)

	if len(result.Summary) != 4 {
		t.Errorf("Expected 4 tier buckets, got %d", len(result.Summary))
	}

	if n := result.Summary["CRITICAL"]; n > 0 {
		t.Errorf("Expected no CRITICAL cases in clean batch, got %d", n)
	}

	if result.Metrics != nil {
		t.Errorf("Expected null metrics for unlabeled batch, got %+v", result.Metrics)
	}

	t.Logf("✓ Clean batch scored: summary=%v", result.Summary)
}

// ============================================================================
// SCENARIO 2: Double Discount (Shared Invoice Key)
// ============================================================================

func TestDuplicateInvoiceKey_Flagged(t *testing.T) {
	/*
	   SCENARIO: The same NF-e key appears on three receivables. This is the
	   classic double-discount fraud: one invoice sold to several funders.

	   EXPECTED BEHAVIOR:
	   - invoice_key_count = 3 for all three records
	   - Frequency contribution: clamp(3-1, 0, 3) * 3.0 = 6.0 → CRITICAL
	   - The duplicated records head the top suspects list
	*/
	config := getTestConfig()

	req := AnalyzeRequest{}
	for i := 0; i < 6; i++ {
		req.Duplicatas = append(req.Duplicatas, normalDuplicata(i))
	}
	sharedKey := fmt.Sprintf("352506%038d", 777)
	for i := 0; i < 3; i++ {
		d := normalDuplicata(100 + i)
		d.InvoiceKey = sharedKey
		req.Duplicatas = append(req.Duplicatas, d)
	}

	result := analyze(t, config, req)

	if len(result.TopSuspects) == 0 {
		t.Fatal("Expected top suspects for duplicated invoice key")
	}

	top := result.TopSuspects[0]
	if top.RiskTier != "CRITICAL" {
		t.Errorf("Expected CRITICAL tier for triple-discounted invoice, got %s (score %.2f)",
			top.RiskTier, top.RiskScore)
	}

	hasDuplicateReason := false
	for _, r := range top.Reasons {
		if r != "" {
			hasDuplicateReason = true
		}
	}
	if !hasDuplicateReason {
		t.Error("Expected reasons explaining the duplicate invoice key")
	}

	t.Logf("✓ Double discount flagged: tier=%s, score=%.2f, reasons=%v",
		top.RiskTier, top.RiskScore, top.Reasons)
}

// ============================================================================
// SCENARIO 3: Suspicious Endorsement
// ============================================================================

func TestShellEndorsement_RaisesScore(t *testing.T) {
	/*
	   SCENARIO: A receivable endorsed to "Holding Patrimonial XYZ" instead of
	   a bank. Legitimate duplicata endorsements go to financial institutions;
	   an endorsement to an unrelated shell company is a laundering signal.

	   EXPECTED BEHAVIOR:
	   - suspicious_endorsement fires (endorsee matches no bank keyword)
	   - The endorsed record scores strictly higher than its clean twin
	*/
	config := getTestConfig()

	req := AnalyzeRequest{}
	for i := 0; i < 8; i++ {
		req.Duplicatas = append(req.Duplicatas, normalDuplicata(i))
	}
	endorsed := normalDuplicata(200)
	endorsed.Endorsee = "Holding Patrimonial XYZ Ltda"
	req.Duplicatas = append(req.Duplicatas, endorsed)

	bankEndorsed := normalDuplicata(201)
	bankEndorsed.Endorsee = "Banco Bradesco S.A."
	req.Duplicatas = append(req.Duplicatas, bankEndorsed)

	result := analyze(t, config, req)

	var shellScore, bankScore float64
	found := 0
	for _, c := range result.TopSuspects {
		switch c.ID {
		case endorsed.ID:
			shellScore = c.RiskScore
			found++
		case bankEndorsed.ID:
			bankScore = c.RiskScore
			found++
		}
	}

	if found >= 1 && shellScore <= bankScore {
		t.Errorf("Expected shell endorsement (%.2f) to outscore bank endorsement (%.2f)",
			shellScore, bankScore)
	}

	t.Logf("✓ Shell endorsement scored: shell=%.2f, bank=%.2f", shellScore, bankScore)
}

// ============================================================================
// SCENARIO 4: Input Validation
// ============================================================================

func TestMissingDebtorTaxID_Error(t *testing.T) {
	/*
	   SCENARIO: Request with a record missing cnpj_sacado

	   EXPECTED: HTTP 400 Bad Request naming the missing field
	*/
	config := getTestConfig()

	d := normalDuplicata(0)
	d.DebtorTaxID = "" // Missing!

	resp, body := doRequest(t, config, "POST", "/v1/analyze", AnalyzeRequest{
		Duplicatas: []Duplicata{d},
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400 for missing cnpj_sacado, got %d: %s", resp.StatusCode, string(body))
	}

	t.Logf("✓ Validation test passed: missing cnpj_sacado → HTTP %d", resp.StatusCode)
}

func TestEmptyBatch_Error(t *testing.T) {
	/*
	   SCENARIO: Request with an empty duplicatas array

	   EXPECTED: HTTP 400 Bad Request
	*/
	config := getTestConfig()

	resp, body := doRequest(t, config, "POST", "/v1/analyze", AnalyzeRequest{})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400 for empty batch, got %d: %s", resp.StatusCode, string(body))
	}

	t.Logf("✓ Validation test passed: empty batch → HTTP %d", resp.StatusCode)
}

// ============================================================================
// SCENARIO 5: Simulated Regulator Registry
// ============================================================================

func TestInstitutionRegistry_Mock(t *testing.T) {
	/*
	   SCENARIO: The simulated registrador/SERASA registry that backs
	   investigations is also exposed for external tooling.

	   EXPECTED BEHAVIOR:
	   - Listing returns the seeded institutions with a count
	   - A known bank CNPJ resolves to a registered institution
	   - An unknown CNPJ returns 404
	*/
	config := getTestConfig()

	resp, body := doRequest(t, config, "GET", "/mocks/institutions", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Failed to list institutions: %d %s", resp.StatusCode, string(body))
	}

	var listing struct {
		Institutions []struct {
			Name       string `json:"razao_social"`
			Registered bool   `json:"registrada"`
		} `json:"institutions"`
		Count int `json:"count"`
	}
	if err := json.Unmarshal(body, &listing); err != nil {
		t.Fatalf("Failed to unmarshal listing: %v", err)
	}
	if listing.Count == 0 || len(listing.Institutions) != listing.Count {
		t.Errorf("Expected populated listing, got count=%d len=%d", listing.Count, len(listing.Institutions))
	}

	resp, body = doRequest(t, config, "GET", "/mocks/institutions/60701190000104", nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200 for Itaú CNPJ, got %d: %s", resp.StatusCode, string(body))
	}

	resp, _ = doRequest(t, config, "GET", "/mocks/institutions/00000000000000", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown CNPJ, got %d", resp.StatusCode)
	}

	t.Logf("✓ Registry exposed: %d institutions", listing.Count)
}

// ============================================================================
// SCENARIO 6: Full Pipeline (Seed → Report → Alerts → Verdicts)
// ============================================================================

func TestFullPipeline_SeedReportVerdicts(t *testing.T) {
	/*
	   SCENARIO: The complete labeled workflow.

	   1. Seed a deterministic synthetic dataset (15% injected fraud)
	   2. Run the fraud report over the stored dataset
	   3. Labeled data → detection metrics are computed
	   4. Flagged cases flow through the event bus to the investigation
	      worker, which resolves verdicts asynchronously

	   EXPECTED BEHAVIOR:
	   - Seed returns 201 with fraud count > 0
	   - Report returns suspects and non-null metrics with "NN.NN%" strings
	   - Verdicts appear within a few seconds of the report
	*/
	config := getTestConfig()

	// Step 1: clear and seed
	resp, body := doRequest(t, config, "DELETE", "/v1/dataset", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Failed to clear dataset: %d %s", resp.StatusCode, string(body))
	}

	resp, body = doRequest(t, config, "POST", "/v1/dataset/seed", map[string]any{
		"cedentes":    10,
		"sacados":     40,
		"duplicatas":  400,
		"taxa_fraude": 0.15,
		"seed":        42,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("Failed to seed dataset: %d %s", resp.StatusCode, string(body))
	}

	var seedResp struct {
		Total  int `json:"total"`
		Frauds int `json:"fraudes"`
	}
	if err := json.Unmarshal(body, &seedResp); err != nil {
		t.Fatalf("Failed to unmarshal seed response: %v", err)
	}
	if seedResp.Frauds == 0 {
		t.Fatal("Expected injected frauds in seeded dataset")
	}
	t.Logf("✓ Seeded %d receivables (%d frauds)", seedResp.Total, seedResp.Frauds)

	// Step 2: fraud report
	resp, body = doRequest(t, config, "GET", "/v1/reports/frauds?n=20", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Fraud report failed: %d %s", resp.StatusCode, string(body))
	}

	var report AnalysisResult
	if err := json.Unmarshal(body, &report); err != nil {
		t.Fatalf("Failed to unmarshal report: %v", err)
	}

	if len(report.TopSuspects) == 0 {
		t.Error("Expected suspects in the fraud report")
	}
	if report.Metrics == nil {
		t.Fatal("Expected non-null metrics for fully labeled dataset")
	}
	if report.Metrics.ActualFrauds != seedResp.Frauds {
		t.Errorf("Metrics fraud count %d != seeded %d", report.Metrics.ActualFrauds, seedResp.Frauds)
	}
	if len(report.Metrics.RecallPct) == 0 || report.Metrics.RecallPct[len(report.Metrics.RecallPct)-1] != '%' {
		t.Errorf("Expected percentage-formatted recall, got %q", report.Metrics.RecallPct)
	}
	t.Logf("✓ Report: %d suspects, precision=%s, recall=%s, f1=%s",
		len(report.TopSuspects), report.Metrics.PrecisionPct, report.Metrics.RecallPct, report.Metrics.F1Pct)

	// Step 3: wait for the investigation worker to resolve verdicts
	deadline := time.Now().Add(10 * time.Second)
	var verdicts struct {
		Verdicts []Verdict `json:"verdicts"`
		Count    int       `json:"count"`
	}
	for time.Now().Before(deadline) {
		resp, body = doRequest(t, config, "GET", "/v1/verdicts?limit=100", nil)
		if resp.StatusCode == http.StatusOK {
			if err := json.Unmarshal(body, &verdicts); err == nil && verdicts.Count > 0 {
				break
			}
		}
		time.Sleep(250 * time.Millisecond)
	}

	if verdicts.Count == 0 {
		t.Fatal("Expected verdicts from the investigation worker, got none")
	}

	for _, v := range verdicts.Verdicts {
		switch v.Finding {
		case "CONFIRMED_FRAUD", "FALSE_POSITIVE", "LEGITIMATE", "INCONCLUSIVE":
		default:
			t.Errorf("Unexpected finding %q in verdict %s", v.Finding, v.ID)
		}
	}

	t.Logf("✓ Pipeline complete: %d verdicts resolved", verdicts.Count)
}
