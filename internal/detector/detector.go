// Package detector implements the Coordinator's per-event comparison pass: diffing this
// cycle's freshly scraped markets against the Odds Cache's previous view to find changed
// prices, markets that disappeared, and disagreements in direction across books. Grounded
// on the teacher's line-movement comparator (internal/calculator/calculator/line_movement.go),
// which compared a fresh odd against stored extremes by percent change; here the comparison
// is against the single previous value per market, not a running max/min, since spec.md's
// CurrentMarket model keeps one latest value rather than an extremes window.
package detector

import (
	"time"

	"github.com/google/uuid"

	"github.com/Vodeneev/oddwatch/internal/pkg/models"
)

// WriteBatch is everything one event's detection pass produced for the write queue to
// persist in a single transaction. spec.md §4.3 Phase 4.
type WriteBatch struct {
	BatchID      uuid.UUID
	EventID      int64
	Upserts      []models.CurrentMarket
	Touches      []models.MarketKey
	Unavailable  []models.MarketKey
	History      []models.HistoricalMarketRow
	Unmapped     []models.UnmappedMarket
	Alerts       []models.RiskAlert
	ScrapeStatus models.EventScrapeStatus
}

// Detector compares one event's freshly scraped, already-mapped markets against its
// previous current_markets rows and produces a WriteBatch.
type Detector struct {
	settings models.Settings
}

func New(settings models.Settings) *Detector {
	return &Detector{settings: settings}
}

// FreshMarket is one mapped market as scraped this cycle for one book.
type FreshMarket struct {
	Book models.Book
	models.MappedMarket
}

// DetectEvent runs the full Phase 4 pass for one event: change/availability detection
// (4.1/4.2) followed by risk detection (4.3). previous is the event's current_markets rows
// before this cycle; fresh is every market successfully mapped this cycle, across every
// book that was scraped. A book that was scraped but returned zero markets for this event
// must still appear as a key in scrapedBooks so its previously-seen markets can be marked
// unavailable — silently absent data and "book returned nothing" are different signals.
// spec.md §4.3 Phase 4.1/4.2 boundary behavior.
func (d *Detector) DetectEvent(eventID int64, previous []models.CurrentMarket, fresh []FreshMarket, scrapedBooks map[models.Book]bool, now time.Time) WriteBatch {
	batch := WriteBatch{BatchID: uuid.New(), EventID: eventID}

	prevByKey := make(map[models.MarketKey]models.CurrentMarket, len(previous))
	for _, p := range previous {
		prevByKey[p.MarketKey] = p
	}

	freshByKey := make(map[models.MarketKey]FreshMarket, len(fresh))
	for _, f := range fresh {
		key := models.MarketKey{EventID: eventID, Book: f.Book, CanonicalMarket: f.CanonicalMarketID, Line: f.Line}
		freshByKey[key] = f
	}
	matched := matchedMarketLines(prevByKey, freshByKey)

	for key, f := range freshByKey {
		prev, existed := prevByKey[key]
		if !existed || !prev.Available() {
			batch.Upserts = append(batch.Upserts, newCurrentMarket(key, f.Outcomes, now))
			batch.History = append(batch.History, models.HistoricalMarketRow{MarketKey: key, Outcomes: f.Outcomes, CapturedAt: now})
			continue
		}
		if models.EqualOutcomes(prev.Outcomes, f.Outcomes) {
			batch.Touches = append(batch.Touches, key)
			continue
		}
		batch.Upserts = append(batch.Upserts, newCurrentMarket(key, f.Outcomes, now))
		batch.History = append(batch.History, models.HistoricalMarketRow{MarketKey: key, Outcomes: f.Outcomes, CapturedAt: now})
		if d.settings.AlertsEnabled {
			batch.Alerts = append(batch.Alerts, d.priceChangeAlerts(batch.BatchID, key, prev.Outcomes, f.Outcomes, matched, now)...)
		}
	}

	for key, prev := range prevByKey {
		if !scrapedBooks[key.Book] {
			continue // book wasn't scraped this cycle; its markets' absence is not a signal
		}
		if _, stillFresh := freshByKey[key]; stillFresh {
			continue
		}
		if !prev.Available() {
			continue // already marked unavailable in an earlier cycle
		}
		batch.Unavailable = append(batch.Unavailable, key)
		if d.settings.AlertsEnabled {
			if alert, ok := availabilityAlert(batch.BatchID, key, prev.Outcomes, matched, now); ok {
				batch.Alerts = append(batch.Alerts, alert)
			}
		}
	}

	if d.settings.AlertsEnabled {
		batch.Alerts = append(batch.Alerts, d.directionDisagreementAlerts(batch.BatchID, prevByKey, freshByKey, matched, now)...)
	}

	batch.ScrapeStatus = models.DeriveScrapeStatus(eventID, batch.BatchID.String(), scrapedBooks, now)

	return batch
}

func newCurrentMarket(key models.MarketKey, outcomes []models.Outcome, now time.Time) models.CurrentMarket {
	return models.CurrentMarket{
		MarketKey:       key,
		Outcomes:        outcomes,
		LastUpdatedAt:   now,
		LastConfirmedAt: now,
	}
}
