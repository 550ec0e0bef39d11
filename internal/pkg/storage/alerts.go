package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Vodeneev/oddwatch/internal/pkg/models"
)

// InsertRiskAlert records one detected movement. spec.md §3 RiskAlert, §4.3 Phase 4.3.
func (s *Store) InsertRiskAlert(ctx context.Context, tx *sql.Tx, a models.RiskAlert) (int64, error) {
	var direction sql.NullString
	if a.CompetitorDirection != nil {
		direction = sql.NullString{String: *a.CompetitorDirection, Valid: true}
	}
	const query = `
	INSERT INTO risk_alerts (
		batch_id, event_id, book, canonical_market, line, outcome_name,
		alert_type, severity, old_value, new_value, change_percent,
		competitor_direction, detected_at, status
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, 'NEW')
	RETURNING id`
	var id int64
	err := tx.QueryRowContext(ctx, query,
		a.BatchID, a.EventID, string(a.Book), a.CanonicalMarket, a.Line, a.OutcomeName,
		string(a.Type), string(a.Severity), a.OldValue, a.NewValue, a.ChangePercent,
		direction, a.DetectedAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert risk alert: %w", err)
	}
	return id, nil
}

// RecentAlertsForMarket returns alerts for the same (event, book, market, line, outcome,
// type) detected at or after since, newest first. The cooldown check itself runs against
// Redis (internal/alertstore) and does not call this query.
func (s *Store) RecentAlertsForMarket(ctx context.Context, key models.MarketKey, outcomeName string, alertType models.AlertType, since time.Time) ([]models.RiskAlert, error) {
	const query = `
	SELECT id, batch_id, event_id, book, canonical_market, line, outcome_name,
	       alert_type, severity, old_value, new_value, change_percent,
	       competitor_direction, detected_at, status
	FROM risk_alerts
	WHERE event_id = $1 AND book = $2 AND canonical_market = $3 AND line = $4
	  AND outcome_name = $5 AND alert_type = $6 AND detected_at >= $7
	ORDER BY detected_at DESC`
	rows, err := s.db.QueryContext(ctx, query, key.EventID, string(key.Book), key.CanonicalMarket, key.Line, outcomeName, string(alertType), since)
	if err != nil {
		return nil, fmt.Errorf("query recent alerts: %w", err)
	}
	defer rows.Close()
	return scanRiskAlerts(rows)
}

// AlertsByStatus lists alerts for the operator review surface. spec.md §6.
func (s *Store) AlertsByStatus(ctx context.Context, status models.AlertStatus, limit int) ([]models.RiskAlert, error) {
	if limit <= 0 {
		limit = 100
	}
	const query = `
	SELECT id, batch_id, event_id, book, canonical_market, line, outcome_name,
	       alert_type, severity, old_value, new_value, change_percent,
	       competitor_direction, detected_at, status
	FROM risk_alerts WHERE status = $1 ORDER BY detected_at DESC LIMIT $2`
	rows, err := s.db.QueryContext(ctx, query, string(status), limit)
	if err != nil {
		return nil, fmt.Errorf("query alerts by status: %w", err)
	}
	defer rows.Close()
	return scanRiskAlerts(rows)
}

// AcknowledgeAlert marks one alert ACKNOWLEDGED, a terminal operator action. spec.md §3.
func (s *Store) AcknowledgeAlert(ctx context.Context, id int64) error {
	const query = `UPDATE risk_alerts SET status = 'ACKNOWLEDGED' WHERE id = $1`
	res, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("acknowledge alert: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func scanRiskAlerts(rows *sql.Rows) ([]models.RiskAlert, error) {
	var out []models.RiskAlert
	for rows.Next() {
		var a models.RiskAlert
		var book, alertType, severity, status string
		var direction sql.NullString
		var batchID uuid.UUID
		if err := rows.Scan(
			&a.ID, &batchID, &a.EventID, &book, &a.CanonicalMarket, &a.Line, &a.OutcomeName,
			&alertType, &severity, &a.OldValue, &a.NewValue, &a.ChangePercent,
			&direction, &a.DetectedAt, &status,
		); err != nil {
			return nil, fmt.Errorf("scan risk alert: %w", err)
		}
		a.BatchID = batchID
		a.Book = models.Book(book)
		a.Type = models.AlertType(alertType)
		a.Severity = models.AlertSeverity(severity)
		a.Status = models.AlertStatus(status)
		if direction.Valid {
			a.CompetitorDirection = &direction.String
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
