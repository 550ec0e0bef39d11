package mapper

import "github.com/Vodeneev/oddwatch/internal/pkg/models"

// baselineRuleSet is the compiled-in mapping table, one entry per (book, raw market id)
// pair this system has confirmed the shape of. It mirrors the per-book field mapping the
// teacher's internal/pkg/line package documented: primary's factor ids (f=910/912 for
// the match result, f=927/928 for handicap, f=930/931 for totals), competitor A's
// type:key pairs, and competitor B's GE group numbers (G=1/2/17).
func baselineRuleSet() *ruleSet {
	return &ruleSet{
		byBookAndRawID: map[models.Book]map[string]rule{
			models.BookPrimary: {
				"910": {CanonicalMarket: MarketMoneyline, OutcomeNames: map[string]string{
					"1": OutcomeHome, "X": OutcomeDraw, "2": OutcomeAway,
				}},
				"912": {CanonicalMarket: MarketMoneyline, OutcomeNames: map[string]string{
					"1": OutcomeHome, "X": OutcomeDraw, "2": OutcomeAway,
				}},
				"927": {CanonicalMarket: MarketHandicap, HasLine: true, OutcomeNames: map[string]string{
					"1": OutcomeHome, "2": OutcomeAway,
				}},
				"928": {CanonicalMarket: MarketHandicap, HasLine: true, OutcomeNames: map[string]string{
					"1": OutcomeHome, "2": OutcomeAway,
				}},
				"930": {CanonicalMarket: MarketTotal, HasLine: true, OutcomeNames: map[string]string{
					"Over": OutcomeOver, "Under": OutcomeUnder,
				}},
				"931": {CanonicalMarket: MarketTotal, HasLine: true, OutcomeNames: map[string]string{
					"Over": OutcomeOver, "Under": OutcomeUnder,
				}},
			},
			models.BookCompetitorA: {
				"moneyline:s;0": {CanonicalMarket: MarketMoneyline, OutcomeNames: map[string]string{
					"home": OutcomeHome, "draw": OutcomeDraw, "away": OutcomeAway,
				}},
				"spread:s;0": {CanonicalMarket: MarketHandicap, HasLine: true, OutcomeNames: map[string]string{
					"home": OutcomeHome, "away": OutcomeAway,
				}},
				"total:s;0": {CanonicalMarket: MarketTotal, HasLine: true, OutcomeNames: map[string]string{
					"over": OutcomeOver, "under": OutcomeUnder,
				}},
			},
			models.BookCompetitorB: {
				"1": {CanonicalMarket: MarketMoneyline, OutcomeNames: map[string]string{
					"1": OutcomeHome, "2": OutcomeDraw, "3": OutcomeAway,
				}},
				"2": {CanonicalMarket: MarketHandicap, HasLine: true, OutcomeNames: map[string]string{
					"7": OutcomeHome, "8": OutcomeAway,
				}},
				"17": {CanonicalMarket: MarketTotal, HasLine: true, OutcomeNames: map[string]string{
					"9": OutcomeOver, "10": OutcomeUnder,
				}},
			},
		},
	}
}
