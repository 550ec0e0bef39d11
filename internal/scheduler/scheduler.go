// Package scheduler drives the Coordinator's scrape cycle on a ticker and runs the
// independent retention cleanup job. Grounded on the teacher's ValueCalculator async
// ticker/start/stop machinery (internal/calculator/calculator/calculator.go,
// async.go), generalized from a single on/off flag to an explicit
// Stopped/Running/Paused state machine. spec.md §4.7, §9 "Scheduler state exposure".
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Vodeneev/oddwatch/internal/coordinator"
	"github.com/Vodeneev/oddwatch/internal/pkg/models"
	"github.com/Vodeneev/oddwatch/internal/pkg/storage"
)

// State is the Scheduler's run state, read directly by callers (API handlers, health
// checks) rather than derived from ticker/goroutine internals — spec.md §9 resolves the
// open question this way so "is it running" never requires reaching into private fields.
type State string

const (
	StateStopped State = "stopped"
	StateRunning State = "running"
	StatePaused  State = "paused"
)

// Scheduler owns the scrape ticker, the cleanup ticker, and the Coordinator they both feed.
type Scheduler struct {
	store       *storage.Store
	coordinator *coordinator.Coordinator
	logger      *slog.Logger

	cleanupInterval time.Duration

	mu       sync.RWMutex
	state    State
	cancel   context.CancelFunc
	trigger  chan struct{}
	progress chan coordinator.Progress
}

// New constructs a Scheduler in the Stopped state.
func New(store *storage.Store, coord *coordinator.Coordinator, cleanupInterval time.Duration, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		store:           store,
		coordinator:     coord,
		logger:          logger,
		cleanupInterval: cleanupInterval,
		state:           StateStopped,
		trigger:         make(chan struct{}, 1),
		progress:        make(chan coordinator.Progress, 256),
	}
}

// State reports the current run state.
func (s *Scheduler) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Progress returns the channel every cycle's Progress events are forwarded on, meant to be
// drained by the Broadcaster's scrape_progress publisher.
func (s *Scheduler) Progress() <-chan coordinator.Progress {
	return s.progress
}

// Start begins the scrape/cleanup loop. A no-op if already running or paused.
func (s *Scheduler) Start(parent context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateStopped {
		return
	}
	ctx, cancel := context.WithCancel(parent)
	s.cancel = cancel
	s.state = StateRunning
	go s.loop(ctx)
	go s.cleanupLoop(ctx)
}

// Stop halts the loop entirely; a subsequent Start begins a fresh run.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.state = StateStopped
}

// Pause suspends cycle triggering without tearing down the loop's goroutines; Resume lifts
// it. Distinct from Stop so an operator can freeze scraping during maintenance and resume
// without losing the cleanup ticker's cadence.
func (s *Scheduler) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateRunning {
		s.state = StatePaused
	}
}

// Resume lifts a Pause.
func (s *Scheduler) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StatePaused {
		s.state = StateRunning
	}
}

// TriggerNow requests an out-of-band cycle in addition to the regular ticker cadence. A
// no-op while Stopped or if a trigger is already pending.
func (s *Scheduler) TriggerNow() {
	if s.State() == StateStopped {
		return
	}
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

// loop runs one cycle per scrape interval (or on demand via TriggerNow), skipping cycles
// entirely while Paused. Each cycle re-reads Settings and snapshots it by value before
// handing it to the Coordinator, so a mid-cycle settings edit never affects a cycle already
// in flight. spec.md §5, §9.
func (s *Scheduler) loop(ctx context.Context) {
	settings, err := s.store.LoadSettings(ctx)
	if err != nil {
		s.logger.Error("scheduler: load initial settings failed", "error", err)
		settings = models.DefaultSettings()
	}
	ticker := time.NewTicker(settings.ScrapeInterval)
	defer ticker.Stop()

	runCycle := func() {
		if s.State() == StatePaused {
			return
		}
		settings, err := s.store.LoadSettings(ctx)
		if err != nil {
			s.logger.Error("scheduler: load settings failed, using previous interval", "error", err)
			return
		}
		if err := s.coordinator.ReloadMapper(ctx); err != nil {
			s.logger.Error("scheduler: reload mapper overrides failed, using previous table", "error", err)
		}
		for p := range s.coordinator.Run(ctx, settings) {
			select {
			case s.progress <- p:
			default:
				s.logger.Warn("scheduler: progress channel full, dropping event", "phase", p.Phase)
			}
		}
		ticker.Reset(settings.ScrapeInterval)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.trigger:
			runCycle()
		case <-ticker.C:
			runCycle()
		}
	}
}

// cleanupLoop runs retention cleanup on its own cadence, independent of the scrape ticker
// so a slow scrape cycle never delays it. spec.md §4.7 "cleanup job".
func (s *Scheduler) cleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(s.cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			settings, err := s.store.LoadSettings(ctx)
			if err != nil {
				s.logger.Error("scheduler: load settings for cleanup failed", "error", err)
				continue
			}
			if err := s.store.CleanupRetention(ctx, settings.RetentionHorizon); err != nil {
				s.logger.Error("scheduler: cleanup failed", "error", err)
			}
		}
	}
}
