package coordinator

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Vodeneev/oddwatch/internal/pkg/models"
)

// discoveryResult is one book's discovery call outcome.
type discoveryResult struct {
	book   models.Book
	events []models.RawEvent
	err    error
}

// discoverAll calls DiscoverEvents on every enabled book concurrently. A single book's
// failure does not fail the cycle — its events are simply absent from this cycle's merge,
// per spec.md §7 "per-book/per-event errors are values, not exceptions".
func (c *Coordinator) discoverAll(ctx context.Context, enabled map[models.Book]bool) []discoveryResult {
	results := make([]discoveryResult, 0, len(c.books))
	g, gctx := errgroup.WithContext(ctx)
	out := make(chan discoveryResult, len(c.books))

	for b, client := range c.books {
		if !enabled[b] {
			continue
		}
		b, client := b, client
		g.Go(func() error {
			events, err := client.DiscoverEvents(gctx)
			out <- discoveryResult{book: b, events: events, err: err}
			return nil // a book's own error never cancels the group; captured per-result instead
		})
	}
	go func() {
		g.Wait()
		close(out)
	}()
	for r := range out {
		if r.err != nil {
			c.logger.Error("discovery failed", "book", r.book, "error", r.err)
		}
		results = append(results, r)
	}
	return results
}

// mergeDiscovered upserts every discovered event, joined across books by SharedKey, and
// returns the number of events each successful book discovered. spec.md §4.3 Phase 1 discovery merge: "a shared
// event key observed from more than one book in the same cycle is merged into one Event
// row, filling in whichever external ids are new."
func (c *Coordinator) mergeDiscovered(ctx context.Context, results []discoveryResult, now time.Time) (map[string]int, error) {
	perBookCounts := map[string]int{}

	tx, err := c.store.DB().BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin discovery merge transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, r := range results {
		if r.err != nil {
			continue
		}
		perBookCounts[string(r.book)] = len(r.events)
		for _, raw := range r.events {
			if raw.SharedKey == "" {
				continue // unjoinable event; dropped per spec.md §3 SharedEventKey invariant
			}
			tournamentID, err := c.store.UpsertTournament(ctx, tx, models.Tournament{
				Name: raw.TournamentName, Country: raw.TournamentCountry, Sport: "football",
			})
			if err != nil {
				return nil, err
			}

			event := models.Event{
				SharedKey:     raw.SharedKey,
				HomeTeam:      raw.HomeTeam,
				AwayTeam:      raw.AwayTeam,
				Kickoff:       raw.Kickoff,
				TournamentRef: tournamentID,
				LastSeenAt:    now,
			}
			if r.book == models.BookPrimary {
				id := raw.ExternalID
				event.PrimaryBookExternalID = &id
			} else {
				event.CompetitorExternalIDs = map[models.Book]string{r.book: raw.ExternalID}
			}
			if _, err := c.store.UpsertEvent(ctx, tx, event); err != nil {
				return nil, err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit discovery merge: %w", err)
	}
	return perBookCounts, nil
}
