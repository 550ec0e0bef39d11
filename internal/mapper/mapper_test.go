package mapper

import (
	"testing"
	"time"

	"github.com/Vodeneev/oddwatch/internal/pkg/models"
)

func boolPtr(b bool) *bool { return &b }

func TestNormalize_BaselineMoneyline(t *testing.T) {
	m := New()
	raw := models.RawMarket{
		RawMarketID: "910",
		Outcomes: []models.RawOutcome{
			{Name: "1", Price: 2.10},
			{Name: "X", Price: 3.30},
			{Name: "2", Price: 3.50},
		},
	}
	mapped, ok := m.Normalize(models.BookPrimary, raw)
	if !ok {
		t.Fatal("expected baseline rule to match")
	}
	if mapped.CanonicalMarketID != MarketMoneyline {
		t.Errorf("canonical market = %q, want %q", mapped.CanonicalMarketID, MarketMoneyline)
	}
	if len(mapped.Outcomes) != 3 {
		t.Fatalf("expected 3 outcomes, got %d", len(mapped.Outcomes))
	}
}

func TestNormalize_UnknownRawID(t *testing.T) {
	m := New()
	_, ok := m.Normalize(models.BookPrimary, models.RawMarket{RawMarketID: "no-such-id"})
	if ok {
		t.Error("expected unmapped result for an unknown raw market id")
	}
}

func TestLoadOverrides_HighestPriorityWins(t *testing.T) {
	m := New()
	m.LoadOverrides([]Override{
		{
			Book: models.BookCompetitorA, RawMarketID: "x1",
			CanonicalMarket: MarketMoneyline, Priority: 1,
			OutcomeNames: map[string]string{"home": OutcomeHome},
		},
		{
			Book: models.BookCompetitorA, RawMarketID: "x1",
			CanonicalMarket: MarketTotal, HasLine: true, Priority: 5,
			OutcomeNames: map[string]string{"over": OutcomeOver, "under": OutcomeUnder},
		},
	})

	raw := models.RawMarket{
		RawMarketID: "x1",
		Line:        floatPtr(2.5),
		Outcomes: []models.RawOutcome{
			{Name: "over", Price: 1.9},
			{Name: "under", Price: 1.95},
		},
	}
	mapped, ok := m.Normalize(models.BookCompetitorA, raw)
	if !ok {
		t.Fatal("expected override rule to match")
	}
	if mapped.CanonicalMarketID != MarketTotal {
		t.Errorf("expected the priority-5 override to win, got canonical market %q", mapped.CanonicalMarketID)
	}
	if mapped.Line != 2.5 {
		t.Errorf("line = %v, want 2.5", mapped.Line)
	}
}

func TestLoadOverrides_TiePriorityBrokenByCreatedAt(t *testing.T) {
	m := New()
	older := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := older.Add(time.Hour)
	m.LoadOverrides([]Override{
		{
			Book: models.BookCompetitorA, RawMarketID: "x1",
			CanonicalMarket: MarketMoneyline, Priority: 5, CreatedAt: older,
			OutcomeNames: map[string]string{"1": OutcomeHome},
		},
		{
			Book: models.BookCompetitorA, RawMarketID: "x1",
			CanonicalMarket: MarketTotal, HasLine: true, Priority: 5, CreatedAt: newer,
			OutcomeNames: map[string]string{"over": OutcomeOver, "under": OutcomeUnder},
		},
	})

	mapped, ok := m.Normalize(models.BookCompetitorA, models.RawMarket{
		RawMarketID: "x1",
		Line:        floatPtr(2.5),
		Outcomes:    []models.RawOutcome{{Name: "over", Price: 1.9}},
	})
	if !ok {
		t.Fatal("expected an override rule to match")
	}
	if mapped.CanonicalMarketID != MarketTotal {
		t.Errorf("expected the most recently created override to win a priority tie, got canonical market %q", mapped.CanonicalMarketID)
	}
}

func TestLoadOverrides_ReplacesPreviousTable(t *testing.T) {
	m := New()
	m.LoadOverrides([]Override{
		{Book: models.BookCompetitorB, RawMarketID: "y1", CanonicalMarket: MarketMoneyline, OutcomeNames: map[string]string{"1": OutcomeHome}},
	})
	if _, ok := m.Normalize(models.BookCompetitorB, models.RawMarket{RawMarketID: "y1"}); !ok {
		t.Fatal("expected first override set to apply")
	}

	// A second LoadOverrides call must replace the whole table, not merge onto it.
	m.LoadOverrides(nil)
	if _, ok := m.Normalize(models.BookCompetitorB, models.RawMarket{RawMarketID: "y1"}); ok {
		t.Error("expected override from a previous LoadOverrides call to be gone after a reload")
	}
}

func TestLineFor_PresentLineWinsOverHandicapHome(t *testing.T) {
	r := rule{CanonicalMarket: MarketHandicap, HasLine: true}
	line := lineFor(r, models.RawMarket{Line: floatPtr(1.5), HandicapHome: floatPtr(-0.5)})
	if line == nil || *line != 1.5 {
		t.Errorf("lineFor = %v, want 1.5 (an explicit Line must not be overridden by HandicapHome)", line)
	}
}

func TestLineFor_FallsBackToHandicapHomeWhenLineMissing(t *testing.T) {
	r := rule{CanonicalMarket: MarketHandicap, HasLine: true}
	line := lineFor(r, models.RawMarket{HandicapHome: floatPtr(-0.5)})
	if line == nil || *line != -0.5 {
		t.Errorf("lineFor = %v, want -0.5", line)
	}
}

func TestNormalizeOutcomeName_SeparatorVariants(t *testing.T) {
	tests := []struct{ a, b string }{
		{"Home - Away", "Home & Away"},
		{"Home-Away", "Home&Away"},
		{"  Home - Away  ", "Home - Away"},
	}
	for _, tt := range tests {
		if normalizeOutcomeName(tt.a) != normalizeOutcomeName(tt.b) {
			t.Errorf("normalizeOutcomeName(%q) != normalizeOutcomeName(%q)", tt.a, tt.b)
		}
	}
}

func TestNormalize_InactiveOutcomeCarried(t *testing.T) {
	m := New()
	raw := models.RawMarket{
		RawMarketID: "910",
		Outcomes: []models.RawOutcome{
			{Name: "1", Price: 2.10, IsActive: boolPtr(false)},
			{Name: "X", Price: 3.30},
			{Name: "2", Price: 3.50},
		},
	}
	mapped, ok := m.Normalize(models.BookPrimary, raw)
	if !ok {
		t.Fatal("expected baseline rule to match")
	}
	home, found := firstOutcome(mapped.Outcomes, OutcomeHome)
	if !found {
		t.Fatal("home outcome missing")
	}
	if home.Active {
		t.Error("expected home outcome to carry through as inactive")
	}
}

func firstOutcome(outcomes []models.Outcome, name string) (models.Outcome, bool) {
	for _, o := range outcomes {
		if o.Name == name {
			return o, true
		}
	}
	return models.Outcome{}, false
}

func floatPtr(f float64) *float64 { return &f }
