package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/Vodeneev/oddwatch/internal/pkg/models"
)

// SeedSettings inserts the single settings row if it doesn't exist yet, using the given
// defaults. Called once at startup from cmd/oddwatch; subsequent runs read the live row.
func (s *Store) SeedSettings(ctx context.Context, defaults models.Settings) error {
	const query = `
	INSERT INTO settings (
		id, scrape_interval_seconds, enabled_books, retention_horizon_seconds,
		cache_grace_window_seconds, batch_size, alerts_enabled,
		warning_threshold, elevated_threshold, critical_threshold,
		alert_cooldown_seconds, lookback_window_seconds
	) VALUES (1, $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	ON CONFLICT (id) DO NOTHING`
	_, err := s.db.ExecContext(ctx, query,
		int(defaults.ScrapeInterval.Seconds()), encodeEnabledBooks(defaults.EnabledBooks),
		int(defaults.RetentionHorizon.Seconds()), int(defaults.CacheGraceWindow.Seconds()),
		defaults.BatchSize, defaults.AlertsEnabled,
		defaults.WarningThreshold, defaults.ElevatedThreshold, defaults.CriticalThreshold,
		int(defaults.AlertCooldown.Seconds()), int(defaults.LookbackWindow.Seconds()),
	)
	if err != nil {
		return fmt.Errorf("seed settings: %w", err)
	}
	return nil
}

// LoadSettings reads the live settings row. spec.md §5: "Settings are re-read at the start
// of each cycle" — the Scheduler calls this once per cycle and snapshots the result.
func (s *Store) LoadSettings(ctx context.Context) (models.Settings, error) {
	const query = `
	SELECT scrape_interval_seconds, enabled_books, retention_horizon_seconds,
	       cache_grace_window_seconds, batch_size, alerts_enabled,
	       warning_threshold, elevated_threshold, critical_threshold,
	       alert_cooldown_seconds, lookback_window_seconds
	FROM settings WHERE id = 1`
	var scrapeSec, retentionSec, graceSec, cooldownSec, lookbackSec int
	var enabledBooks string
	var out models.Settings
	err := s.db.QueryRowContext(ctx, query).Scan(
		&scrapeSec, &enabledBooks, &retentionSec, &graceSec, &out.BatchSize, &out.AlertsEnabled,
		&out.WarningThreshold, &out.ElevatedThreshold, &out.CriticalThreshold,
		&cooldownSec, &lookbackSec,
	)
	if err == sql.ErrNoRows {
		return models.DefaultSettings(), nil
	}
	if err != nil {
		return models.Settings{}, fmt.Errorf("load settings: %w", err)
	}
	out.ScrapeInterval = time.Duration(scrapeSec) * time.Second
	out.RetentionHorizon = time.Duration(retentionSec) * time.Second
	out.CacheGraceWindow = time.Duration(graceSec) * time.Second
	out.AlertCooldown = time.Duration(cooldownSec) * time.Second
	out.LookbackWindow = time.Duration(lookbackSec) * time.Second
	out.EnabledBooks = decodeEnabledBooks(enabledBooks)
	return out, nil
}

// UpdateSettings overwrites the live settings row, e.g. from an operator API call.
func (s *Store) UpdateSettings(ctx context.Context, set models.Settings) error {
	const query = `
	UPDATE settings SET
		scrape_interval_seconds = $1, enabled_books = $2, retention_horizon_seconds = $3,
		cache_grace_window_seconds = $4, batch_size = $5, alerts_enabled = $6,
		warning_threshold = $7, elevated_threshold = $8, critical_threshold = $9,
		alert_cooldown_seconds = $10, lookback_window_seconds = $11
	WHERE id = 1`
	_, err := s.db.ExecContext(ctx, query,
		int(set.ScrapeInterval.Seconds()), encodeEnabledBooks(set.EnabledBooks),
		int(set.RetentionHorizon.Seconds()), int(set.CacheGraceWindow.Seconds()),
		set.BatchSize, set.AlertsEnabled,
		set.WarningThreshold, set.ElevatedThreshold, set.CriticalThreshold,
		int(set.AlertCooldown.Seconds()), int(set.LookbackWindow.Seconds()),
	)
	if err != nil {
		return fmt.Errorf("update settings: %w", err)
	}
	return nil
}

func encodeEnabledBooks(m map[models.Book]bool) string {
	var names []string
	for b, on := range m {
		if on {
			names = append(names, string(b))
		}
	}
	return strings.Join(names, ",")
}

func decodeEnabledBooks(csv string) map[models.Book]bool {
	out := map[models.Book]bool{}
	for _, part := range strings.Split(csv, ",") {
		if part == "" {
			continue
		}
		out[models.Book(part)] = true
	}
	return out
}
