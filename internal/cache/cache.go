// Package cache is the process-local Odds Cache: the read model every query-facing API
// serves from, kept authoritative in memory and never read back from PostgreSQL on the hot
// path. spec.md §4.5: "the cache is process-local; it is not shared across replicas and is
// not read from Redis or any external store."
package cache

import (
	"sync"
	"time"

	"github.com/Vodeneev/oddwatch/internal/pkg/models"
)

// Cache holds the latest known markets for every (event, book) pair currently tracked.
// Each event's full set of per-book entries is replaced atomically as a whole map value,
// never mutated field-by-field, so a reader never observes a half-written event.
// spec.md §4.5 "atomic whole-entry replacement".
type Cache struct {
	mu   sync.RWMutex
	data map[int64]map[models.Book]models.CacheEntry
}

func New() *Cache {
	return &Cache{data: make(map[int64]map[models.Book]models.CacheEntry)}
}

// Put replaces the full set of per-book entries for one event.
func (c *Cache) Put(eventID int64, entries map[models.Book]models.CacheEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[eventID] = entries
}

// PutBook replaces a single book's entry within an event without disturbing the other
// books' entries.
func (c *Cache) PutBook(eventID int64, book models.Book, entry models.CacheEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	byBook, ok := c.data[eventID]
	if !ok {
		byBook = make(map[models.Book]models.CacheEntry)
		c.data[eventID] = byBook
	}
	byBook[book] = entry
}

// Get returns the cached entries for one event, and whether the event is tracked at all.
func (c *Cache) Get(eventID int64) (map[models.Book]models.CacheEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	byBook, ok := c.data[eventID]
	if !ok {
		return nil, false
	}
	out := make(map[models.Book]models.CacheEntry, len(byBook))
	for k, v := range byBook {
		out[k] = v
	}
	return out, true
}

// Evict drops an event's cache entries once it has aged past the configured grace window
// past kickoff. spec.md §4.3 Eviction.
func (c *Cache) Evict(eventID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, eventID)
}

// EvictStale removes every tracked event whose kickoff (as looked up via kickoffOf) is
// older than now minus grace, returning how many were evicted.
func (c *Cache) EvictStale(now time.Time, grace time.Duration, kickoffOf func(eventID int64) (time.Time, bool)) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	evicted := 0
	for eventID := range c.data {
		kickoff, ok := kickoffOf(eventID)
		if !ok || now.Sub(kickoff) > grace {
			delete(c.data, eventID)
			evicted++
		}
	}
	return evicted
}

// Snapshot returns a copy of every tracked event's cached entries, used by the event-list
// read endpoint. Reads never touch PostgreSQL. spec.md §4.5 "reads go to the Cache".
func (c *Cache) Snapshot() map[int64]map[models.Book]models.CacheEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[int64]map[models.Book]models.CacheEntry, len(c.data))
	for eventID, byBook := range c.data {
		copyByBook := make(map[models.Book]models.CacheEntry, len(byBook))
		for k, v := range byBook {
			copyByBook[k] = v
		}
		out[eventID] = copyByBook
	}
	return out
}

// Len reports how many events currently have at least one cached entry.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}
