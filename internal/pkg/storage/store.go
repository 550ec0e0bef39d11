// Package storage is the PostgreSQL persistence layer: events, tournaments, current and
// historical markets, unmapped markets, risk alerts, and the single-row settings table.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq"

	"github.com/Vodeneev/oddwatch/internal/pkg/config"
)

// Store is the single PostgreSQL handle shared by every table-specific method set in this
// package. Methods are split across files by table family (events.go, markets.go, ...)
// the way the teacher split odds-snapshot and diff-bet storage into separate files, but
// here they share one *sql.DB and one schema instead of one struct per table.
type Store struct {
	db *sql.DB
}

// New opens the connection, pings it, and creates the schema if absent.
func New(ctx context.Context, cfg config.PostgresConfig) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("postgres DSN is required")
	}

	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	s := &Store{db: db}
	if err := s.initSchema(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	slog.Info("postgres storage initialized")
	return s, nil
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the raw handle for callers (the write queue) that need explicit transactions
// spanning more than one table family.
func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) initSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS tournaments (
			id SERIAL PRIMARY KEY,
			name VARCHAR(300) NOT NULL,
			country VARCHAR(150) NOT NULL DEFAULT '',
			sport VARCHAR(50) NOT NULL DEFAULT 'football',
			UNIQUE(name, country)
		)`,
		`CREATE TABLE IF NOT EXISTS events (
			id SERIAL PRIMARY KEY,
			shared_key VARCHAR(500) NOT NULL UNIQUE,
			home_team VARCHAR(300) NOT NULL,
			away_team VARCHAR(300) NOT NULL,
			kickoff TIMESTAMP NOT NULL,
			tournament_id INTEGER NOT NULL REFERENCES tournaments(id),
			primary_external_id VARCHAR(200),
			competitor_a_external_id VARCHAR(200),
			competitor_b_external_id VARCHAR(200),
			discovered_at TIMESTAMP NOT NULL DEFAULT NOW(),
			last_seen_at TIMESTAMP NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_kickoff ON events(kickoff)`,
		`CREATE TABLE IF NOT EXISTS current_markets (
			id SERIAL PRIMARY KEY,
			event_id INTEGER NOT NULL REFERENCES events(id) ON DELETE CASCADE,
			book VARCHAR(30) NOT NULL,
			canonical_market VARCHAR(100) NOT NULL,
			line DOUBLE PRECISION NOT NULL DEFAULT 0,
			outcomes JSONB NOT NULL,
			last_updated_at TIMESTAMP NOT NULL,
			last_confirmed_at TIMESTAMP NOT NULL,
			unavailable_since TIMESTAMP,
			UNIQUE(event_id, book, canonical_market, line)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_current_markets_event ON current_markets(event_id)`,
		`CREATE TABLE IF NOT EXISTS market_history (
			id SERIAL PRIMARY KEY,
			event_id INTEGER NOT NULL REFERENCES events(id) ON DELETE CASCADE,
			book VARCHAR(30) NOT NULL,
			canonical_market VARCHAR(100) NOT NULL,
			line DOUBLE PRECISION NOT NULL DEFAULT 0,
			outcomes JSONB NOT NULL,
			captured_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_market_history_lookup ON market_history(event_id, book, canonical_market, line, captured_at DESC)`,
		`CREATE TABLE IF NOT EXISTS unmapped_markets (
			id SERIAL PRIMARY KEY,
			book VARCHAR(30) NOT NULL,
			raw_market_id VARCHAR(200) NOT NULL,
			first_seen_at TIMESTAMP NOT NULL,
			last_seen_at TIMESTAMP NOT NULL,
			occurrence_count INTEGER NOT NULL DEFAULT 1,
			sample_outcomes JSONB NOT NULL,
			status VARCHAR(20) NOT NULL DEFAULT 'NEW',
			UNIQUE(book, raw_market_id)
		)`,
		`CREATE TABLE IF NOT EXISTS risk_alerts (
			id SERIAL PRIMARY KEY,
			batch_id UUID NOT NULL,
			event_id INTEGER NOT NULL REFERENCES events(id) ON DELETE CASCADE,
			book VARCHAR(30) NOT NULL,
			canonical_market VARCHAR(100) NOT NULL,
			line DOUBLE PRECISION NOT NULL DEFAULT 0,
			outcome_name VARCHAR(100) NOT NULL,
			alert_type VARCHAR(40) NOT NULL,
			severity VARCHAR(20) NOT NULL,
			old_value DOUBLE PRECISION NOT NULL,
			new_value DOUBLE PRECISION NOT NULL,
			change_percent DOUBLE PRECISION NOT NULL,
			competitor_direction VARCHAR(20),
			detected_at TIMESTAMP NOT NULL,
			status VARCHAR(20) NOT NULL DEFAULT 'NEW'
		)`,
		`CREATE INDEX IF NOT EXISTS idx_risk_alerts_event ON risk_alerts(event_id)`,
		`CREATE INDEX IF NOT EXISTS idx_risk_alerts_detected ON risk_alerts(detected_at DESC)`,
		`CREATE TABLE IF NOT EXISTS event_scrape_status (
			event_id INTEGER PRIMARY KEY REFERENCES events(id) ON DELETE CASCADE,
			batch_id UUID NOT NULL,
			status VARCHAR(20) NOT NULL,
			books_ok VARCHAR(200) NOT NULL DEFAULT '',
			books_failed VARCHAR(200) NOT NULL DEFAULT '',
			recorded_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS market_overrides (
			id SERIAL PRIMARY KEY,
			book VARCHAR(30) NOT NULL,
			raw_market_id VARCHAR(200) NOT NULL,
			canonical_market VARCHAR(100) NOT NULL,
			has_line BOOLEAN NOT NULL DEFAULT FALSE,
			outcome_names JSONB NOT NULL,
			priority INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_market_overrides_lookup ON market_overrides(book, raw_market_id)`,
		`CREATE TABLE IF NOT EXISTS settings (
			id INTEGER PRIMARY KEY DEFAULT 1,
			scrape_interval_seconds INTEGER NOT NULL,
			enabled_books VARCHAR(200) NOT NULL,
			retention_horizon_seconds INTEGER NOT NULL,
			cache_grace_window_seconds INTEGER NOT NULL,
			batch_size INTEGER NOT NULL,
			alerts_enabled BOOLEAN NOT NULL,
			warning_threshold DOUBLE PRECISION NOT NULL,
			elevated_threshold DOUBLE PRECISION NOT NULL,
			critical_threshold DOUBLE PRECISION NOT NULL,
			alert_cooldown_seconds INTEGER NOT NULL,
			lookback_window_seconds INTEGER NOT NULL,
			CHECK (id = 1)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement failed: %w", err)
		}
	}
	return nil
}
