package models

import "time"

// LineSentinel is substituted for a NULL line so uniqueness keys collide correctly,
// per spec.md §3 CurrentMarket invariant and GLOSSARY "Line".
const LineSentinel = 0.0

// Outcome is one selectable result within a market.
type Outcome struct {
	Name   string  `json:"name"`
	Price  float64 `json:"price"`
	Active bool    `json:"active"`
}

// MarketKey identifies one (event, book, canonical_market_id, line) tuple.
type MarketKey struct {
	EventID         int64
	Book            Book
	CanonicalMarket string
	Line            float64 // LineSentinel when the market has no line
}

// LineOrSentinel normalizes an optional line for use in a MarketKey / DB uniqueness key.
func LineOrSentinel(line *float64) float64 {
	if line == nil {
		return LineSentinel
	}
	return *line
}

// CurrentMarket is the latest known odds for one MarketKey. spec.md §3.
type CurrentMarket struct {
	MarketKey
	Outcomes         []Outcome
	LastUpdatedAt    time.Time
	LastConfirmedAt  time.Time
	UnavailableSince *time.Time // nil == currently available
}

// Available reports whether the market is currently offered.
func (c *CurrentMarket) Available() bool {
	return c.UnavailableSince == nil
}

// Margin computes the overround: Σ(1/price) - 1, per spec.md §6 and GLOSSARY.
func (c *CurrentMarket) Margin() float64 {
	sum := 0.0
	for _, o := range c.Outcomes {
		if o.Price > 0 {
			sum += 1.0 / o.Price
		}
	}
	return sum - 1.0
}

// OutcomeByName returns the outcome with the given canonical name, if present.
func (c *CurrentMarket) OutcomeByName(name string) (Outcome, bool) {
	for _, o := range c.Outcomes {
		if o.Name == name {
			return o, true
		}
	}
	return Outcome{}, false
}

// HistoricalMarketRow is an append-only snapshot of a market whose numbers changed. spec.md §3.
type HistoricalMarketRow struct {
	MarketKey
	Outcomes  []Outcome
	CapturedAt time.Time
}

// EqualOutcomes reports whether two outcome sets are exactly equal by canonical name and price,
// per spec.md §4.3 Phase 4.1: "Market equality is exact on the numeric outcome prices; outcomes
// are matched by canonical outcome name". A changed outcome *set* (not just price) also counts
// as a change, per §8 boundary behavior.
func EqualOutcomes(a, b []Outcome) bool {
	if len(a) != len(b) {
		return false
	}
	byName := make(map[string]float64, len(a))
	for _, o := range a {
		byName[o.Name] = o.Price
	}
	for _, o := range b {
		price, ok := byName[o.Name]
		if !ok || price != o.Price {
			return false
		}
	}
	return true
}
