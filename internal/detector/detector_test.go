package detector

import (
	"testing"
	"time"

	"github.com/Vodeneev/oddwatch/internal/pkg/models"
)

func testSettings() models.Settings {
	return models.Settings{
		AlertsEnabled:     true,
		WarningThreshold:  5.0,
		ElevatedThreshold: 10.0,
		CriticalThreshold: 20.0,
	}
}

func key(eventID int64, b models.Book, market string) models.MarketKey {
	return models.MarketKey{EventID: eventID, Book: b, CanonicalMarket: market, Line: models.LineSentinel}
}

func TestDetectEvent_FreshMarketUpsertsAndHistory(t *testing.T) {
	d := New(testSettings())
	now := time.Now()
	fresh := []FreshMarket{
		{Book: models.BookPrimary, MappedMarket: models.MappedMarket{
			CanonicalMarketID: "moneyline",
			Outcomes:          []models.Outcome{{Name: "home", Price: 2.0, Active: true}},
		}},
	}
	wb := d.DetectEvent(1, nil, fresh, map[models.Book]bool{models.BookPrimary: true}, now)
	if len(wb.Upserts) != 1 || len(wb.History) != 1 {
		t.Fatalf("expected 1 upsert and 1 history row for a brand new market, got %d/%d", len(wb.Upserts), len(wb.History))
	}
	if len(wb.Alerts) != 0 {
		t.Errorf("a market appearing for the first time must not alert, got %d alerts", len(wb.Alerts))
	}
}

func TestDetectEvent_PriceChangeAboveThresholdAlerts(t *testing.T) {
	d := New(testSettings())
	now := time.Now()
	eventID := int64(1)
	previous := []models.CurrentMarket{
		{
			MarketKey: key(eventID, models.BookPrimary, "moneyline"),
			Outcomes:  []models.Outcome{{Name: "home", Price: 2.0, Active: true}},
		},
	}
	fresh := []FreshMarket{
		{Book: models.BookPrimary, MappedMarket: models.MappedMarket{
			CanonicalMarketID: "moneyline",
			Outcomes:          []models.Outcome{{Name: "home", Price: 2.4, Active: true}}, // +20%
		}},
		{Book: models.BookCompetitorA, MappedMarket: models.MappedMarket{
			CanonicalMarketID: "moneyline",
			Outcomes:          []models.Outcome{{Name: "home", Price: 2.2, Active: true}},
		}},
	}
	wb := d.DetectEvent(eventID, previous, fresh, map[models.Book]bool{models.BookPrimary: true, models.BookCompetitorA: true}, now)

	var found bool
	for _, a := range wb.Alerts {
		if a.Type == models.AlertPriceChange && a.Book == models.BookPrimary {
			found = true
			if a.Severity != models.SeverityCritical {
				t.Errorf("a 20%% move should be severity critical, got %s", a.Severity)
			}
		}
	}
	if !found {
		t.Fatal("expected a price_change alert for the primary book's moneyline move")
	}
}

func TestDetectEvent_PriceChangeBelowThresholdNoAlert(t *testing.T) {
	d := New(testSettings())
	now := time.Now()
	eventID := int64(1)
	previous := []models.CurrentMarket{
		{MarketKey: key(eventID, models.BookPrimary, "moneyline"), Outcomes: []models.Outcome{{Name: "home", Price: 2.0, Active: true}}},
	}
	fresh := []FreshMarket{
		{Book: models.BookPrimary, MappedMarket: models.MappedMarket{CanonicalMarketID: "moneyline", Outcomes: []models.Outcome{{Name: "home", Price: 2.02, Active: true}}}},
		{Book: models.BookCompetitorA, MappedMarket: models.MappedMarket{CanonicalMarketID: "moneyline", Outcomes: []models.Outcome{{Name: "home", Price: 2.0, Active: true}}}},
	}
	wb := d.DetectEvent(eventID, previous, fresh, map[models.Book]bool{models.BookPrimary: true, models.BookCompetitorA: true}, now)
	for _, a := range wb.Alerts {
		if a.Type == models.AlertPriceChange {
			t.Errorf("a 1%% move is below the warning threshold and must not alert: %+v", a)
		}
	}
}

func TestDetectEvent_MarketDisappearanceMarksUnavailableAndAlerts(t *testing.T) {
	d := New(testSettings())
	now := time.Now()
	eventID := int64(1)
	previous := []models.CurrentMarket{
		{MarketKey: key(eventID, models.BookPrimary, "moneyline"), Outcomes: []models.Outcome{{Name: "home", Price: 2.0, Active: true}}},
		{MarketKey: key(eventID, models.BookCompetitorA, "moneyline"), Outcomes: []models.Outcome{{Name: "home", Price: 2.0, Active: true}}},
	}
	// both books scraped and returned nothing for this event: both markets disappeared.
	wb := d.DetectEvent(eventID, previous, nil, map[models.Book]bool{models.BookPrimary: true, models.BookCompetitorA: true}, now)

	if len(wb.Unavailable) != 2 {
		t.Fatalf("expected both previously-offered markets marked unavailable, got %d", len(wb.Unavailable))
	}
	var availAlerts int
	for _, a := range wb.Alerts {
		if a.Type == models.AlertAvailability {
			availAlerts++
			if a.Severity != models.SeverityWarning {
				t.Errorf("availability alerts are always severity warning, got %s", a.Severity)
			}
		}
	}
	if availAlerts != 2 {
		t.Errorf("expected 2 availability alerts (matched market on both books), got %d", availAlerts)
	}
}

func TestDetectEvent_UnscrapedBookDoesNotTriggerUnavailable(t *testing.T) {
	d := New(testSettings())
	now := time.Now()
	eventID := int64(1)
	previous := []models.CurrentMarket{
		{MarketKey: key(eventID, models.BookPrimary, "moneyline"), Outcomes: []models.Outcome{{Name: "home", Price: 2.0, Active: true}}},
	}
	// primary book was not part of this cycle's scrape at all — absence carries no signal.
	wb := d.DetectEvent(eventID, previous, nil, map[models.Book]bool{models.BookCompetitorA: true}, now)
	if len(wb.Unavailable) != 0 {
		t.Errorf("a book that wasn't scraped this cycle must not produce unavailable markets, got %d", len(wb.Unavailable))
	}
}

func TestDetectEvent_DirectionDisagreementOneAlertPerOutcome(t *testing.T) {
	d := New(testSettings())
	now := time.Now()
	eventID := int64(1)
	previous := []models.CurrentMarket{
		{MarketKey: key(eventID, models.BookPrimary, "moneyline"), Outcomes: []models.Outcome{
			{Name: "home", Price: 2.0, Active: true}, {Name: "away", Price: 2.0, Active: true},
		}},
		{MarketKey: key(eventID, models.BookCompetitorA, "moneyline"), Outcomes: []models.Outcome{
			{Name: "home", Price: 2.0, Active: true}, {Name: "away", Price: 2.0, Active: true},
		}},
	}
	fresh := []FreshMarket{
		{Book: models.BookPrimary, MappedMarket: models.MappedMarket{CanonicalMarketID: "moneyline", Outcomes: []models.Outcome{
			{Name: "home", Price: 2.2, Active: true}, // primary up
			{Name: "away", Price: 1.8, Active: true}, // primary down
		}}},
		{Book: models.BookCompetitorA, MappedMarket: models.MappedMarket{CanonicalMarketID: "moneyline", Outcomes: []models.Outcome{
			{Name: "home", Price: 1.8, Active: true}, // competitor down: disagrees
			{Name: "away", Price: 1.6, Active: true}, // competitor down: agrees
		}}},
	}
	wb := d.DetectEvent(eventID, previous, fresh, map[models.Book]bool{models.BookPrimary: true, models.BookCompetitorA: true}, now)

	var disagreements []models.RiskAlert
	for _, a := range wb.Alerts {
		if a.Type == models.AlertDirectionDisagree {
			disagreements = append(disagreements, a)
		}
	}
	if len(disagreements) != 1 {
		t.Fatalf("expected exactly 1 direction disagreement alert (home only), got %d", len(disagreements))
	}
	if disagreements[0].OutcomeName != "home" {
		t.Errorf("expected the disagreement on 'home', got %q", disagreements[0].OutcomeName)
	}
}
