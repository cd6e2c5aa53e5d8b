package domain

import (
	"encoding/json"
	"testing"
)

func TestTierSummaryJSON(t *testing.T) {
	summary := TierSummary{
		{Tier: TierLow, Count: 7},
		{Tier: TierModerate, Count: 2},
		{Tier: TierHigh, Count: 1},
		{Tier: TierCritical, Count: 0},
	}

	t.Run("KeyedObjectInAscendingOrder", func(t *testing.T) {
		raw, err := json.Marshal(summary)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		want := `{"LOW":7,"MODERATE":2,"HIGH":1,"CRITICAL":0}`
		if string(raw) != want {
			t.Errorf("summary = %s, want %s", raw, want)
		}
	})

	t.Run("ReadableAsMap", func(t *testing.T) {
		raw, _ := json.Marshal(AnalysisResult{Summary: summary})
		var resp struct {
			Summary map[string]int `json:"resumo_risco"`
		}
		if err := json.Unmarshal(raw, &resp); err != nil {
			t.Fatalf("unmarshal into map: %v", err)
		}
		if resp.Summary[TierLow] != 7 || resp.Summary[TierCritical] != 0 {
			t.Errorf("summary map = %v", resp.Summary)
		}
	})

	t.Run("RoundTrip", func(t *testing.T) {
		raw, _ := json.Marshal(summary)
		var got TierSummary
		if err := json.Unmarshal(raw, &got); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if len(got) != len(summary) {
			t.Fatalf("round trip lost tiers: %v", got)
		}
		for i := range summary {
			if got[i] != summary[i] {
				t.Errorf("tier %d: got %+v, want %+v", i, got[i], summary[i])
			}
		}
	})

	t.Run("RejectsUnknownTier", func(t *testing.T) {
		var got TierSummary
		if err := json.Unmarshal([]byte(`{"LOW":1,"MODERATE":0,"HIGH":0,"CRITICAL":0,"EXTREME":9}`), &got); err == nil {
			t.Error("expected error for unknown tier key")
		}
	})

	t.Run("RejectsMissingTier", func(t *testing.T) {
		var got TierSummary
		if err := json.Unmarshal([]byte(`{"LOW":1}`), &got); err == nil {
			t.Error("expected error for missing tiers")
		}
	})
}
