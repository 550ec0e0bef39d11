package models

import "time"

// UnmappedStatus is the operator review status of an UnmappedMarket. spec.md §3.
type UnmappedStatus string

const (
	UnmappedNew          UnmappedStatus = "NEW"
	UnmappedAcknowledged UnmappedStatus = "ACKNOWLEDGED"
	UnmappedMapped       UnmappedStatus = "MAPPED"
	UnmappedIgnored      UnmappedStatus = "IGNORED"
)

// UnmappedMarket is one (book, raw_market_id) the Mapper could not translate. spec.md §3.
type UnmappedMarket struct {
	Book            Book
	RawMarketID     string
	FirstSeenAt     time.Time
	LastSeenAt      time.Time
	OccurrenceCount int
	SampleOutcomes  []Outcome
	Status          UnmappedStatus
}
