package detector

import (
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/Vodeneev/oddwatch/internal/pkg/models"
)

// matchedKey identifies a (canonical_market, line) pair within one event, independent of
// book — the granularity at which "matched markets only" is decided.
type matchedKey struct {
	CanonicalMarket string
	Line            float64
}

// matchedMarketLines returns the set of (canonical_market, line) pairs that exist on the
// primary book and at least one competitor book, counting either this cycle's fresh state
// or the previous cycle's state. spec.md §4.3 Phase 4.3 closing rule: "Alerts are only
// emitted for markets that exist on both primary and at least one competitor book in the
// new state (matched markets only)." Taken at face value this would make an
// availability alert for a market's full disappearance unreachable — the vanishing book's
// key is by definition absent from the new state — which spec.md §8 scenario 4 contradicts
// directly ("market disappearance ... Expected: ... one availability alert emitted").
// Resolved by counting a book's previous-cycle presence too, so a market that was matched
// right up until it disappeared still qualifies for its own disappearance alert.
func matchedMarketLines(prevByKey map[models.MarketKey]models.CurrentMarket, freshByKey map[models.MarketKey]FreshMarket) map[matchedKey]bool {
	hasPrimary := map[matchedKey]bool{}
	hasCompetitor := map[matchedKey]bool{}
	note := func(key models.MarketKey) {
		mk := matchedKey{CanonicalMarket: key.CanonicalMarket, Line: key.Line}
		if key.Book == models.BookPrimary {
			hasPrimary[mk] = true
		} else {
			hasCompetitor[mk] = true
		}
	}
	for key := range freshByKey {
		note(key)
	}
	for key := range prevByKey {
		note(key)
	}
	matched := map[matchedKey]bool{}
	for mk := range hasPrimary {
		if hasCompetitor[mk] {
			matched[mk] = true
		}
	}
	return matched
}

// priceChangeAlerts emits one alert per outcome whose price moved by at least the warning
// threshold, banded by severity, restricted to matched markets. spec.md §4.3 Phase 4.3
// price-change rule: percent change is computed against the previous value.
func (d *Detector) priceChangeAlerts(batchID uuid.UUID, key models.MarketKey, prevOutcomes, freshOutcomes []models.Outcome, matched map[matchedKey]bool, now time.Time) []models.RiskAlert {
	if !matched[matchedKey{CanonicalMarket: key.CanonicalMarket, Line: key.Line}] {
		return nil
	}

	prevByName := make(map[string]float64, len(prevOutcomes))
	for _, o := range prevOutcomes {
		prevByName[o.Name] = o.Price
	}

	var alerts []models.RiskAlert
	for _, o := range freshOutcomes {
		prevPrice, ok := prevByName[o.Name]
		if !ok || prevPrice <= 0 {
			continue
		}
		// Rounded to 6 decimals so a move like 2.0 -> 2.4 lands on exactly 20, not 19.999...
		pct := math.Round((o.Price-prevPrice)/prevPrice*100*1e6) / 1e6
		abs := absF(pct)
		if abs < d.settings.WarningThreshold {
			continue
		}
		alerts = append(alerts, models.RiskAlert{
			BatchID:         batchID,
			EventID:         key.EventID,
			Book:            key.Book,
			CanonicalMarket: key.CanonicalMarket,
			Line:            key.Line,
			OutcomeName:     o.Name,
			Type:            models.AlertPriceChange,
			Severity:        models.SeverityForPercent(abs, d.settings.WarningThreshold, d.settings.ElevatedThreshold, d.settings.CriticalThreshold),
			OldValue:        prevPrice,
			NewValue:        o.Price,
			ChangePercent:   pct,
			DetectedAt:      now,
			Status:          models.AlertStatusNew,
		})
	}
	return alerts
}

// availabilityAlert fires the moment a market that was previously offered disappears from
// a book's response, restricted to matched markets. spec.md §4.3 Phase 4.3
// availability-as-alert rule: always severity warning.
func availabilityAlert(batchID uuid.UUID, key models.MarketKey, lastOutcomes []models.Outcome, matched map[matchedKey]bool, now time.Time) (models.RiskAlert, bool) {
	if !matched[matchedKey{CanonicalMarket: key.CanonicalMarket, Line: key.Line}] {
		return models.RiskAlert{}, false
	}

	var lastPrice float64
	var outcomeName string
	if len(lastOutcomes) > 0 {
		lastPrice = lastOutcomes[0].Price
		outcomeName = lastOutcomes[0].Name
	}
	return models.RiskAlert{
		BatchID:         batchID,
		EventID:         key.EventID,
		Book:            key.Book,
		CanonicalMarket: key.CanonicalMarket,
		Line:            key.Line,
		OutcomeName:     outcomeName,
		Type:            models.AlertAvailability,
		Severity:        models.SeverityWarning,
		OldValue:        lastPrice,
		NewValue:        0,
		ChangePercent:   -100,
		DetectedAt:      now,
		Status:          models.AlertStatusNew,
	}, true
}

// directionDisagreementAlerts compares, for every matched (canonical market, line, outcome),
// how the primary book's price moved this cycle against how each competitor book moved. A
// single alert fires per (market, line, outcome) the moment any competitor moved the
// opposite direction from the primary book, at severity elevated regardless of magnitude.
// spec.md §4.3 Phase 4.3 direction disagreement rule.
func (d *Detector) directionDisagreementAlerts(batchID uuid.UUID, prevByKey map[models.MarketKey]models.CurrentMarket, freshByKey map[models.MarketKey]FreshMarket, matched map[matchedKey]bool, now time.Time) []models.RiskAlert {
	pctFor := func(key models.MarketKey) map[string]float64 {
		f, ok := freshByKey[key]
		if !ok {
			return nil
		}
		prev, ok := prevByKey[key]
		if !ok {
			return nil
		}
		prevByName := make(map[string]float64, len(prev.Outcomes))
		for _, o := range prev.Outcomes {
			prevByName[o.Name] = o.Price
		}
		out := map[string]float64{}
		for _, o := range f.Outcomes {
			prevPrice, ok := prevByName[o.Name]
			if !ok || prevPrice <= 0 {
				continue
			}
			out[o.Name] = (o.Price - prevPrice) / prevPrice * 100
		}
		return out
	}

	var alerts []models.RiskAlert
	for mk := range matched {
		primaryKey := models.MarketKey{EventID: 0, Book: models.BookPrimary, CanonicalMarket: mk.CanonicalMarket, Line: mk.Line}
		// EventID is shared across every key in this event's pass; recover it from any fresh key.
		eventID, ok := eventIDFor(freshByKey)
		if !ok {
			continue
		}
		primaryKey.EventID = eventID
		primaryPct := pctFor(primaryKey)
		if len(primaryPct) == 0 {
			continue
		}

		compPctByBook := map[models.Book]map[string]float64{
			models.BookCompetitorA: pctFor(models.MarketKey{EventID: eventID, Book: models.BookCompetitorA, CanonicalMarket: mk.CanonicalMarket, Line: mk.Line}),
			models.BookCompetitorB: pctFor(models.MarketKey{EventID: eventID, Book: models.BookCompetitorB, CanonicalMarket: mk.CanonicalMarket, Line: mk.Line}),
		}

		for outcome, pPct := range primaryPct {
			for _, book := range []models.Book{models.BookCompetitorA, models.BookCompetitorB} {
				cPct, ok := compPctByBook[book][outcome]
				if !ok || !opposite(pPct, cPct) {
					continue
				}
				direction := "up"
				if cPct < 0 {
					direction = "down"
				}
				alerts = append(alerts, models.RiskAlert{
					BatchID:             batchID,
					EventID:             eventID,
					Book:                models.BookPrimary,
					CanonicalMarket:     mk.CanonicalMarket,
					Line:                mk.Line,
					OutcomeName:         outcome,
					Type:                models.AlertDirectionDisagree,
					Severity:            models.SeverityElevated,
					OldValue:            pPct,
					NewValue:            cPct,
					ChangePercent:       pPct - cPct,
					CompetitorDirection: strPtr(direction),
					DetectedAt:          now,
					Status:              models.AlertStatusNew,
				})
				break // spec.md: a single alert per (market, line, outcome), not one per competitor
			}
		}
	}
	return alerts
}

func eventIDFor(freshByKey map[models.MarketKey]FreshMarket) (int64, bool) {
	for key := range freshByKey {
		return key.EventID, true
	}
	return 0, false
}

func opposite(a, b float64) bool {
	return (a > 0 && b < 0) || (a < 0 && b > 0)
}

func absF(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func strPtr(s string) *string { return &s }
