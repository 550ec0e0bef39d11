package models

import "time"

// Settings is the single-row operator configuration. spec.md §3.
//
// A Settings value is snapshotted by the Scheduler at the start of each cycle and passed
// by value into the Coordinator, so a mid-cycle mutation never affects the batches of the
// cycle already in flight — spec.md §5 "Settings are re-read at the start of each cycle"
// and §9's open question about the snapshotting window.
type Settings struct {
	ScrapeInterval   time.Duration
	EnabledBooks     map[Book]bool
	RetentionHorizon time.Duration // how long past kickoff an event's rows survive
	CacheGraceWindow time.Duration // spec.md §4.3 Eviction / §4.5 Warmup grace
	BatchSize        int

	AlertsEnabled     bool
	WarningThreshold  float64 // percent
	ElevatedThreshold float64
	CriticalThreshold float64
	AlertCooldown     time.Duration
	LookbackWindow    time.Duration
}

// DefaultSettings returns conservative defaults matching spec.md's illustrative numbers.
func DefaultSettings() Settings {
	return Settings{
		ScrapeInterval:   30 * time.Second,
		EnabledBooks:     map[Book]bool{BookPrimary: true, BookCompetitorA: true, BookCompetitorB: true},
		RetentionHorizon: 72 * time.Hour,
		CacheGraceWindow: 2 * time.Hour,
		BatchSize:        50,

		AlertsEnabled:     true,
		WarningThreshold:  5.0,
		ElevatedThreshold: 10.0,
		CriticalThreshold: 20.0,
		AlertCooldown:     10 * time.Minute,
		LookbackWindow:    24 * time.Hour,
	}
}
