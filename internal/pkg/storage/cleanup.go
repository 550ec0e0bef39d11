package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// CleanupRetention deletes everything tied to events whose kickoff is older than the
// retention horizon. Order matters: children before parents, even though ON DELETE CASCADE
// on events would handle current_markets/market_history/risk_alerts, we delete explicitly
// so row counts are observable and so unmapped_markets (which isn't keyed to an event) is
// swept on the same pass. spec.md §4.7 periodic cleanup; resolved open question on exact
// table order: risk_alerts, market_history, current_markets, events, orphaned tournaments,
// then stale reviewed unmapped_markets.
func (s *Store) CleanupRetention(ctx context.Context, horizon time.Duration) error {
	cutoff := time.Now().Add(-horizon)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin cleanup tx: %w", err)
	}
	defer tx.Rollback()

	steps := []struct {
		label string
		query string
	}{
		{"risk_alerts", `DELETE FROM risk_alerts WHERE event_id IN (SELECT id FROM events WHERE kickoff < $1)`},
		{"market_history", `DELETE FROM market_history WHERE event_id IN (SELECT id FROM events WHERE kickoff < $1)`},
		{"current_markets", `DELETE FROM current_markets WHERE event_id IN (SELECT id FROM events WHERE kickoff < $1)`},
		{"events", `DELETE FROM events WHERE kickoff < $1`},
		{"tournaments", `DELETE FROM tournaments WHERE id NOT IN (SELECT DISTINCT tournament_id FROM events)`},
	}

	for _, step := range steps {
		res, err := tx.ExecContext(ctx, step.query, cutoff)
		if err != nil {
			return fmt.Errorf("cleanup %s: %w", step.label, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			slog.Info("retention cleanup", "table", step.label, "rows_deleted", n)
		}
	}

	// unmapped_markets ages out independently of any event; sweep anything untouched since
	// before the retention horizon and already reviewed, so NEW items always survive for
	// operator triage.
	res, err := tx.ExecContext(ctx, `DELETE FROM unmapped_markets WHERE last_seen_at < $1 AND status != 'NEW'`, cutoff)
	if err != nil {
		return fmt.Errorf("cleanup unmapped_markets: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		slog.Info("retention cleanup", "table", "unmapped_markets", "rows_deleted", n)
	}

	return tx.Commit()
}
