package cache

import (
	"testing"
	"time"

	"github.com/Vodeneev/oddwatch/internal/pkg/models"
)

func TestBuildEntries_TimestampsReflectMostRecentMarket(t *testing.T) {
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	rows := []models.CurrentMarket{
		{
			MarketKey:       models.MarketKey{EventID: 1, Book: models.BookPrimary, CanonicalMarket: "moneyline"},
			Outcomes:        []models.Outcome{{Name: "home", Price: 2.0, Active: true}},
			LastUpdatedAt:   base,
			LastConfirmedAt: base,
		},
		{
			MarketKey:       models.MarketKey{EventID: 1, Book: models.BookPrimary, CanonicalMarket: "total", Line: 2.5},
			Outcomes:        []models.Outcome{{Name: "over", Price: 1.9, Active: true}},
			LastUpdatedAt:   base.Add(time.Hour), // most recent for this book
			LastConfirmedAt: base.Add(30 * time.Minute),
		},
	}

	entries := BuildEntries(rows)
	entry, ok := entries[models.BookPrimary]
	if !ok {
		t.Fatal("expected a primary book entry")
	}
	wantCaptured := base.Add(time.Hour).Format(time.RFC3339)
	if entry.CapturedAt != wantCaptured {
		t.Errorf("CapturedAt = %s, want the most recent market's timestamp %s", entry.CapturedAt, wantCaptured)
	}
	wantConfirmed := base.Add(30 * time.Minute).Format(time.RFC3339)
	if entry.LastConfirmedAt != wantConfirmed {
		t.Errorf("LastConfirmedAt = %s, want %s", entry.LastConfirmedAt, wantConfirmed)
	}
	if len(entry.Markets) != 2 {
		t.Fatalf("expected both markets carried through, got %d", len(entry.Markets))
	}
}

func TestBuildEntries_SeparatesByBook(t *testing.T) {
	now := time.Now()
	rows := []models.CurrentMarket{
		{MarketKey: models.MarketKey{EventID: 1, Book: models.BookPrimary, CanonicalMarket: "moneyline"}, LastUpdatedAt: now, LastConfirmedAt: now},
		{MarketKey: models.MarketKey{EventID: 1, Book: models.BookCompetitorA, CanonicalMarket: "moneyline"}, LastUpdatedAt: now, LastConfirmedAt: now},
	}
	entries := BuildEntries(rows)
	if len(entries) != 2 {
		t.Fatalf("expected one entry per book, got %d", len(entries))
	}
}

func TestWarmup_GroupsByEvent(t *testing.T) {
	c := New()
	now := time.Now()
	rows := []models.CurrentMarket{
		{MarketKey: models.MarketKey{EventID: 1, Book: models.BookPrimary, CanonicalMarket: "moneyline"}, LastUpdatedAt: now, LastConfirmedAt: now},
		{MarketKey: models.MarketKey{EventID: 2, Book: models.BookPrimary, CanonicalMarket: "moneyline"}, LastUpdatedAt: now, LastConfirmedAt: now},
	}
	c.Warmup(rows)
	if c.Len() != 2 {
		t.Fatalf("expected 2 warmed events, got %d", c.Len())
	}
	if _, ok := c.Get(1); !ok {
		t.Error("expected event 1 to be present after warmup")
	}
}
