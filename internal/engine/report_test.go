package engine

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/opensource-finance/caracara/internal/domain"
)

func scoredWith(id string, score float64) domain.ScoredReceivable {
	r := baseReceivable(id)
	return domain.ScoredReceivable{
		Receivable: r,
		RiskScore:  score,
		RiskTier:   TierFor(score),
	}
}

func TestCaseReporter(t *testing.T) {
	cr := NewCaseReporter()

	t.Run("OrderAndLimit", func(t *testing.T) {
		scored := []domain.ScoredReceivable{
			scoredWith("low", 1),
			scoredWith("high", 7),
			scoredWith("mid", 4),
		}

		cases := cr.Report(scored, 2)
		if len(cases) != 2 {
			t.Fatalf("expected 2 cases, got %d", len(cases))
		}
		if cases[0].ID != "high" || cases[1].ID != "mid" {
			t.Errorf("expected [high mid], got [%s %s]", cases[0].ID, cases[1].ID)
		}
	})

	t.Run("StableTies", func(t *testing.T) {
		// Equal scores keep submission order.
		scored := []domain.ScoredReceivable{
			scoredWith("a", 5),
			scoredWith("b", 5),
			scoredWith("c", 5),
		}

		cases := cr.Report(scored, 3)
		got := []string{cases[0].ID, cases[1].ID, cases[2].ID}
		want := []string{"a", "b", "c"}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("expected order %v, got %v", want, got)
			}
		}
	})

	t.Run("DefaultN", func(t *testing.T) {
		scored := make([]domain.ScoredReceivable, 30)
		for i := range scored {
			scored[i] = scoredWith("r", float64(i))
		}

		cases := cr.Report(scored, 0)
		if len(cases) != DefaultTopN {
			t.Errorf("expected default of %d cases, got %d", DefaultTopN, len(cases))
		}
	})

	t.Run("NLargerThanBatch", func(t *testing.T) {
		cases := cr.Report([]domain.ScoredReceivable{scoredWith("only", 2)}, 10)
		if len(cases) != 1 {
			t.Errorf("expected 1 case, got %d", len(cases))
		}
	})

	t.Run("Reasons", func(t *testing.T) {
		s := scoredWith("r", 9)
		s.Endorsee = "Recuperadora Fenix Ltda"
		s.TermDays = 3
		s.Features = domain.FeatureSet{
			InvoiceKeyCount:       3,
			SuspiciousEndorsement: true,
			TaxIDRootMatch:        true,
			SectorZScore:          2.71,
			AbnormalTerm:          true,
		}

		cases := cr.Report([]domain.ScoredReceivable{s}, 1)
		reasons := cases[0].Reasons
		want := []string{
			"invoice key appears 3x in the batch",
			"endorsed to unrecognized entity: Recuperadora Fenix Ltda",
			"creditor and debtor share tax id root 12345678",
			"amount deviates from sector norm (z=2.7)",
			"abnormal payment term of 3 days",
		}
		if len(reasons) != len(want) {
			t.Fatalf("expected %d reasons, got %d: %v", len(want), len(reasons), reasons)
		}
		for i := range want {
			if reasons[i] != want[i] {
				t.Errorf("reason %d: expected %q, got %q", i, want[i], reasons[i])
			}
		}
	})

	t.Run("AmountCarriedInReasons", func(t *testing.T) {
		s := scoredWith("r", 4)
		s.Amount = 50000
		s.Features = domain.FeatureSet{
			InvoiceKeyCount:    1,
			RoundAmount:        true,
			SameStateHighValue: true,
		}

		cases := cr.Report([]domain.ScoredReceivable{s}, 1)
		reasons := cases[0].Reasons
		want := []string{
			"suspiciously round amount of R$ 50000.00",
			"high value of R$ 50000.00 between same-state parties",
		}
		if len(reasons) != len(want) {
			t.Fatalf("expected %d reasons, got %d: %v", len(want), len(reasons), reasons)
		}
		for i := range want {
			if reasons[i] != want[i] {
				t.Errorf("reason %d: expected %q, got %q", i, want[i], reasons[i])
			}
		}
	})

	t.Run("CleanRecordEmptyReasons", func(t *testing.T) {
		s := scoredWith("r", 0)
		s.Features = domain.FeatureSet{InvoiceKeyCount: 1}

		cases := cr.Report([]domain.ScoredReceivable{s}, 1)
		raw, err := json.Marshal(cases[0])
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		if !strings.Contains(string(raw), `"motivos":[]`) {
			t.Errorf("clean record must serialize an empty list, got %s", raw)
		}
	})

	t.Run("CarriesFullRecord", func(t *testing.T) {
		s := scoredWith("r-full", 2)
		s.Features = domain.FeatureSet{InvoiceKeyCount: 1}

		c := CaseFor(&s)
		if c.CreditorTaxID != s.CreditorTaxID || c.DebtorTaxID != s.DebtorTaxID {
			t.Error("case must carry both tax ids")
		}
		if !c.IssuedAt.Equal(s.IssuedAt) || !c.DueAt.Equal(s.DueAt) || c.TermDays != s.TermDays {
			t.Error("case must carry the dates and term")
		}
		if c.Accepted != s.Accepted || c.InvoiceKey != s.InvoiceKey {
			t.Error("case must carry acceptance and invoice key")
		}

		raw, err := json.Marshal(c)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		for _, key := range []string{
			"cnpj_cedente", "estado_cedente", "setor_cedente",
			"cnpj_sacado", "estado_sacado",
			"data_emissao", "data_vencimento", "prazo_dias", "aceite_sacado",
		} {
			if !strings.Contains(string(raw), `"`+key+`"`) {
				t.Errorf("serialized case missing %q: %s", key, raw)
			}
		}
	})

	t.Run("ModestZScoreNotReported", func(t *testing.T) {
		s := scoredWith("r", 1)
		s.Features = domain.FeatureSet{InvoiceKeyCount: 1, SectorZScore: 1.9}

		cases := cr.Report([]domain.ScoredReceivable{s}, 1)
		for _, reason := range cases[0].Reasons {
			if strings.Contains(reason, "sector norm") {
				t.Errorf("z-score below 2 must not be reported, got %q", reason)
			}
		}
	})
}

func TestSanitize(t *testing.T) {
	label := 1
	c := domain.ReportedCase{Receivable: domain.Receivable{
		ID: "r-1", FraudLabel: &label, FraudType: "DUPLICIDADE",
	}}

	clean := c.Sanitize()
	if clean.FraudLabel != nil || clean.FraudType != "" {
		t.Error("expected ground truth stripped")
	}
	if c.FraudLabel == nil {
		t.Error("original must be untouched")
	}
}
