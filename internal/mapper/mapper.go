// Package mapper translates each book's raw market/outcome vocabulary into the canonical
// market space the rest of the system compares across books. Grounded on the teacher's
// internal/pkg/line package, which documented (but didn't enforce in code) the same
// per-book field mapping this package now applies directly. spec.md §4.2.
package mapper

import (
	"strings"
	"sync/atomic"
	"time"

	"github.com/Vodeneev/oddwatch/internal/pkg/models"
)

// Canonical market ids. A handful of markets cover the vast majority of pre-match football
// liquidity; anything else is recorded as unmapped rather than guessed at. spec.md §4.2.
const (
	MarketMoneyline = "moneyline"
	MarketHandicap  = "handicap"
	MarketTotal     = "total"
)

// Canonical outcome names within a market.
const (
	OutcomeHome  = "home"
	OutcomeDraw  = "draw"
	OutcomeAway  = "away"
	OutcomeOver  = "over"
	OutcomeUnder = "under"
)

// rule describes how one book's raw market id maps to a canonical market, and how its raw
// outcome names map to canonical outcome names.
type rule struct {
	CanonicalMarket string
	HasLine         bool // handicap/total carry a line value; moneyline doesn't
	OutcomeNames    map[string]string
}

// ruleSet is the full mapping table for one Mapper snapshot. Swapped atomically so a
// reload never observes a half-updated table mid-cycle.
type ruleSet struct {
	byBookAndRawID map[models.Book]map[string]rule
}

// Mapper resolves RawMarket payloads to MappedMarket using the baseline compiled-in table,
// overlaid with any operator-supplied overrides. spec.md §4.2, §9 "Mapper reload" decision:
// overrides replace the whole table by atomic pointer swap, never patched field-by-field,
// so a reload is always all-or-nothing from the Normalize caller's point of view.
type Mapper struct {
	rules atomic.Pointer[ruleSet]
}

// New builds a Mapper seeded with the baseline table.
func New() *Mapper {
	m := &Mapper{}
	m.rules.Store(baselineRuleSet())
	return m
}

// Override is one operator-supplied correction or addition to the baseline table, loaded
// from the durable market_overrides table. Priority disambiguates multiple overrides
// targeting the same (book, raw market id); the highest wins. A tie in Priority falls back
// to CreatedAt: the most recently created override wins, so the latest operator edit always
// takes precedence over a stale one left at the same priority. spec.md §4.2, §8.
type Override struct {
	Book            models.Book
	RawMarketID     string
	CanonicalMarket string
	HasLine         bool
	OutcomeNames    map[string]string
	Priority        int
	CreatedAt       time.Time
}

// LoadOverrides rebuilds the full table from the baseline plus the given overrides and
// swaps it in atomically. Overrides always win over a baseline entry for the same (book,
// raw market id); among colliding overrides, the highest Priority wins, ties broken by the
// most recent CreatedAt.
func (m *Mapper) LoadOverrides(overrides []Override) {
	next := baselineRuleSet()
	winner := map[models.Book]map[string]Override{}
	for _, o := range overrides {
		if winner[o.Book] == nil {
			winner[o.Book] = map[string]Override{}
		}
		cur, ok := winner[o.Book][o.RawMarketID]
		if !ok || o.Priority > cur.Priority || (o.Priority == cur.Priority && o.CreatedAt.After(cur.CreatedAt)) {
			winner[o.Book][o.RawMarketID] = o
		}
	}
	for b, byID := range winner {
		if next.byBookAndRawID[b] == nil {
			next.byBookAndRawID[b] = map[string]rule{}
		}
		for rawID, o := range byID {
			next.byBookAndRawID[b][rawID] = rule{
				CanonicalMarket: o.CanonicalMarket,
				HasLine:         o.HasLine,
				OutcomeNames:    o.OutcomeNames,
			}
		}
	}
	m.rules.Store(next)
}

// Normalize maps one raw market to its canonical form. ok is false when the (book, raw
// market id) pair has no rule — the caller records it as an UnmappedMarket instead of
// dropping it. spec.md §4.2.
func (m *Mapper) Normalize(book models.Book, raw models.RawMarket) (models.MappedMarket, bool) {
	rules := m.rules.Load()
	byID, ok := rules.byBookAndRawID[book]
	if !ok {
		return models.MappedMarket{}, false
	}
	r, ok := byID[raw.RawMarketID]
	if !ok {
		return models.MappedMarket{}, false
	}

	out := models.MappedMarket{
		CanonicalMarketID: r.CanonicalMarket,
		Line:              models.LineOrSentinel(lineFor(r, raw)),
	}
	for _, rawOutcome := range raw.Outcomes {
		name, ok := r.OutcomeNames[normalizeOutcomeName(rawOutcome.Name)]
		if !ok {
			continue // an outcome this rule doesn't recognize; market stays mapped, outcome is dropped
		}
		active := rawOutcome.IsActive == nil || *rawOutcome.IsActive
		out.Outcomes = append(out.Outcomes, models.Outcome{
			Name:   name,
			Price:  rawOutcome.Price,
			Active: active,
		})
	}
	return out, true
}

// normalizeOutcomeName collapses the separator variants combined-market outcome names use
// across books (e.g. "Home - Away" vs "Home & Away") to a single canonical form before
// rule lookup, so the same rule matches regardless of which book sent it. spec.md §4.2.
func normalizeOutcomeName(name string) string {
	name = strings.ReplaceAll(name, " & ", " - ")
	name = strings.ReplaceAll(name, "&", "-")
	return strings.TrimSpace(name)
}

// lineFor resolves the line value for handicap/total markets. A record that omits a plain
// Line but carries HandicapHome (signed from the home side) uses HandicapHome; every other
// record uses its Line as-is. spec.md §4.2 "handicap/total
// special case".
func lineFor(r rule, raw models.RawMarket) *float64 {
	if !r.HasLine {
		return nil
	}
	if raw.Line == nil && raw.HandicapHome != nil {
		return raw.HandicapHome
	}
	return raw.Line
}
