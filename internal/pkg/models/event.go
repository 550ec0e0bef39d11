package models

import "time"

// Book identifies one of the three upstream sportsbooks.
type Book string

const (
	BookPrimary     Book = "primary"
	BookCompetitorA Book = "competitor_a"
	BookCompetitorB Book = "competitor_b"
)

// AllBooks is the fixed set of books this system scrapes.
var AllBooks = []Book{BookPrimary, BookCompetitorA, BookCompetitorB}

// UrgencyTier buckets an event by time-to-kickoff for priority queueing.
type UrgencyTier int

const (
	UrgencyImminent UrgencyTier = iota // kickoff < now+30m
	UrgencySoon                        // 30m..2h
	UrgencyFuture                      // >2h
)

// TierFor classifies kickoff relative to now per spec §4.3 Phase 2.
func TierFor(kickoff, now time.Time) UrgencyTier {
	switch d := kickoff.Sub(now); {
	case d < 30*time.Minute:
		return UrgencyImminent
	case d < 2*time.Hour:
		return UrgencySoon
	default:
		return UrgencyFuture
	}
}

// Tournament mirrors spec.md §3 Tournament.
type Tournament struct {
	ID      int64
	Name    string
	Country string
	Sport   string // always "football"; carried as a field per spec, not an enum.
}

// Event is one football fixture, joined across books by SharedEventKey.
type Event struct {
	EventID                int64
	SharedKey              string
	HomeTeam               string
	AwayTeam               string
	Kickoff                time.Time
	TournamentRef          int64
	PrimaryBookExternalID  *string
	CompetitorExternalIDs  map[Book]string
	DiscoveredAt           time.Time
	LastSeenAt             time.Time
}

// CoverageCount returns how many books currently offer this event.
func (e *Event) CoverageCount() int {
	n := 0
	if e.PrimaryBookExternalID != nil && *e.PrimaryBookExternalID != "" {
		n++
	}
	n += len(e.CompetitorExternalIDs)
	return n
}

// HasPrimaryBook reports whether the primary book offers this event.
func (e *Event) HasPrimaryBook() bool {
	return e.PrimaryBookExternalID != nil && *e.PrimaryBookExternalID != ""
}

// ScrapeStatus is one event's outcome for a single scrape batch: whether at least one of
// its books was reachable. spec.md §4.3 Phase 3, §6 persisted state layout.
type ScrapeStatus string

const (
	ScrapeStatusCompleted ScrapeStatus = "COMPLETED"
	ScrapeStatusFailed    ScrapeStatus = "FAILED"
)

// EventScrapeStatus is one event's persisted scrape outcome for the most recent batch that
// touched it. spec.md §6.
type EventScrapeStatus struct {
	EventID     int64
	BatchID     string
	Status      ScrapeStatus
	BooksOK     []Book
	BooksFailed []Book
	RecordedAt  time.Time
}

// DeriveScrapeStatus applies spec.md §4.3 Phase 3: "An event with at least one book
// succeeding is COMPLETED; total failure is FAILED." scrapedBooks holds every book this
// cycle attempted, keyed true on success (including a confirmed "event gone" response).
func DeriveScrapeStatus(eventID int64, batchID string, scrapedBooks map[Book]bool, now time.Time) EventScrapeStatus {
	st := EventScrapeStatus{EventID: eventID, BatchID: batchID, RecordedAt: now}
	for _, b := range AllBooks {
		ok, attempted := scrapedBooks[b]
		if !attempted {
			continue
		}
		if ok {
			st.BooksOK = append(st.BooksOK, b)
		} else {
			st.BooksFailed = append(st.BooksFailed, b)
		}
	}
	if len(st.BooksOK) > 0 {
		st.Status = ScrapeStatusCompleted
	} else {
		st.Status = ScrapeStatusFailed
	}
	return st
}
