package models

import (
	"time"

	"github.com/google/uuid"
)

// AlertType enumerates the kinds of RiskAlert this system emits. spec.md §4.3 Phase 4.3.
type AlertType string

const (
	AlertPriceChange          AlertType = "price_change"
	AlertDirectionDisagree    AlertType = "direction_disagreement"
	AlertAvailability         AlertType = "availability"
)

// AlertSeverity is the operator-facing severity band. spec.md §4.3 Phase 4.3.
type AlertSeverity string

const (
	SeverityWarning  AlertSeverity = "warning"
	SeverityElevated AlertSeverity = "elevated"
	SeverityCritical AlertSeverity = "critical"
)

// AlertStatus tracks operator acknowledgement; PAST is derived, never stored directly. spec.md §3.
type AlertStatus string

const (
	AlertStatusNew          AlertStatus = "NEW"
	AlertStatusAcknowledged AlertStatus = "ACKNOWLEDGED"
	AlertStatusPast         AlertStatus = "PAST"
)

// RiskAlert is one detected movement worth operator attention. spec.md §3.
type RiskAlert struct {
	ID                  int64
	BatchID             uuid.UUID
	EventID             int64
	Book                Book
	CanonicalMarket     string
	Line                float64
	OutcomeName         string
	Type                AlertType
	Severity            AlertSeverity
	OldValue            float64
	NewValue            float64
	ChangePercent       float64
	CompetitorDirection *string // set only for direction_disagreement alerts
	DetectedAt          time.Time
	Status              AlertStatus
}

// DerivedStatus computes PAST from kickoff, per spec.md §3 RiskAlert.
func DerivedStatus(stored AlertStatus, kickoff, now time.Time) AlertStatus {
	if stored == AlertStatusAcknowledged {
		return stored
	}
	if kickoff.Before(now) {
		return AlertStatusPast
	}
	return stored
}

// SeverityForPercent buckets |pct| into a band given the three configured thresholds,
// ascending: warning <= elevated <= critical. spec.md §4.3 Phase 4.3 price-change rule.
func SeverityForPercent(absPct, warn, elevated, critical float64) AlertSeverity {
	switch {
	case absPct >= critical:
		return SeverityCritical
	case absPct >= elevated:
		return SeverityElevated
	default:
		return SeverityWarning
	}
}
