package cache

import (
	"time"

	"github.com/Vodeneev/oddwatch/internal/pkg/models"
)

// Warmup replaces the cache contents with the given current_markets rows, called once at
// startup before the first scrape cycle (cmd/oddwatch passes the rows of events still
// inside the cache grace window). spec.md §4.5 Warmup.
func (c *Cache) Warmup(rows []models.CurrentMarket) {
	byEvent := make(map[int64]map[models.Book]models.CacheEntry)
	byEventID := map[int64][]models.CurrentMarket{}
	for _, m := range rows {
		byEventID[m.EventID] = append(byEventID[m.EventID], m)
	}
	for eventID, eventRows := range byEventID {
		byEvent[eventID] = BuildEntries(eventRows)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = byEvent
}

// BuildEntries groups one event's current_markets rows into the per-book CacheEntry shape
// the Odds Cache and the Write Queue's post-commit refresh both use. spec.md §4.5.
func BuildEntries(rows []models.CurrentMarket) map[models.Book]models.CacheEntry {
	entries := make(map[models.Book]models.CacheEntry)
	latestUpdated := map[models.Book]time.Time{}
	latestConfirmed := map[models.Book]time.Time{}
	for _, m := range rows {
		entry := entries[m.Book]
		if m.LastUpdatedAt.After(latestUpdated[m.Book]) {
			latestUpdated[m.Book] = m.LastUpdatedAt
			entry.CapturedAt = m.LastUpdatedAt.Format(time.RFC3339)
		}
		if m.LastConfirmedAt.After(latestConfirmed[m.Book]) {
			latestConfirmed[m.Book] = m.LastConfirmedAt
			entry.LastConfirmedAt = m.LastConfirmedAt.Format(time.RFC3339)
		}

		cm := models.CacheMarket{
			CanonicalMarketID: m.CanonicalMarket,
			Line:              m.Line,
			Outcomes:          m.Outcomes,
			Available:         m.Available(),
		}
		if m.UnavailableSince != nil {
			s := m.UnavailableSince.Format(time.RFC3339)
			cm.UnavailableSince = &s
		}
		entry.Markets = append(entry.Markets, cm)
		entries[m.Book] = entry
	}
	return entries
}
