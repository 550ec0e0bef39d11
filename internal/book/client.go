// Package book defines the common interface every upstream sportsbook client satisfies,
// and the shared error types the Coordinator reacts to per book. spec.md §4.1.
package book

import (
	"context"
	"errors"

	"github.com/Vodeneev/oddwatch/internal/pkg/models"
)

// Client is satisfied by every upstream book integration. Each implementation owns its
// own concurrency limiter and, where the upstream requires it, its own request pacing —
// the Coordinator only decides which events to ask for, never how fast a given book can
// be asked. spec.md §4.1, §5.
type Client interface {
	// Book identifies which upstream this client talks to.
	Book() models.Book

	// DiscoverEvents lists upcoming football fixtures currently offered by this book.
	DiscoverEvents(ctx context.Context) ([]models.RawEvent, error)

	// FetchEventMarkets fetches the full markets payload for one event, addressed by the
	// book-specific external id returned from DiscoverEvents.
	FetchEventMarkets(ctx context.Context, externalID string) (models.RawMarkets, error)
}

// ErrEventGone is returned by FetchEventMarkets when the upstream no longer recognizes the
// external id (the fixture was pulled or postponed) — the Coordinator treats it as a
// whole-event availability loss rather than a transient fetch error. spec.md §4.3 Phase 3.
var ErrEventGone = errors.New("book: event no longer offered upstream")

// IsEventGone reports whether err (possibly wrapped) is ErrEventGone.
func IsEventGone(err error) bool {
	return errors.Is(err, ErrEventGone)
}
