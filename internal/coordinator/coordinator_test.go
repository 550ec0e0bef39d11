package coordinator

import (
	"testing"

	"github.com/Vodeneev/oddwatch/internal/pkg/models"
)

func TestSampleOutcomes_CapsAtThree(t *testing.T) {
	raw := models.RawMarket{
		RawMarketID: "correct_score",
		Outcomes: []models.RawOutcome{
			{Name: "1:0", Price: 8.0},
			{Name: "2:0", Price: 10.0},
			{Name: "2:1", Price: 9.0},
			{Name: "0:0", Price: 7.5},
			{Name: "1:1", Price: 6.5},
		},
	}
	out := sampleOutcomes(raw)
	if len(out) != 3 {
		t.Fatalf("sampleOutcomes returned %d outcomes, want 3", len(out))
	}
	if out[0].Name != "1:0" || out[1].Name != "2:0" || out[2].Name != "2:1" {
		t.Errorf("expected the first 3 outcomes in order, got %+v", out)
	}
}

func TestSampleOutcomes_FewerThanLimitKeepsAll(t *testing.T) {
	raw := models.RawMarket{
		RawMarketID: "moneyline",
		Outcomes: []models.RawOutcome{
			{Name: "1", Price: 2.1},
			{Name: "2", Price: 3.4},
		},
	}
	out := sampleOutcomes(raw)
	if len(out) != 2 {
		t.Fatalf("sampleOutcomes returned %d outcomes, want 2", len(out))
	}
}
