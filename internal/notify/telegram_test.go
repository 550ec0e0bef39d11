package notify

import (
	"strings"
	"testing"
	"time"

	"github.com/Vodeneev/oddwatch/internal/pkg/models"
)

func TestSeverityRank_OrdersCriticalAboveElevatedAboveWarning(t *testing.T) {
	if severityRank(models.SeverityCritical) <= severityRank(models.SeverityElevated) {
		t.Error("expected critical to outrank elevated")
	}
	if severityRank(models.SeverityElevated) <= severityRank(models.SeverityWarning) {
		t.Error("expected elevated to outrank warning")
	}
}

func TestEscapeMarkdown_EscapesTelegramSpecialChars(t *testing.T) {
	got := escapeMarkdown("Team_A vs. Team*B (draw)")
	for _, ch := range []string{"_", ".", "*", "(", ")"} {
		if !strings.Contains(got, "\\"+ch) {
			t.Errorf("escapeMarkdown(%q) = %q, expected escaped %q", "Team_A vs. Team*B (draw)", got, ch)
		}
	}
}

func TestFormatRiskAlert_PriceChange(t *testing.T) {
	a := models.RiskAlert{
		Book:            models.BookCompetitorA,
		CanonicalMarket: "moneyline",
		OutcomeName:     "home",
		Type:            models.AlertPriceChange,
		Severity:        models.SeverityCritical,
		OldValue:        2.0,
		NewValue:        2.5,
		ChangePercent:   25.0,
		DetectedAt:      time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC),
	}
	msg := formatRiskAlert(a, "Home FC vs Away FC")
	if !strings.Contains(msg, "Home FC") {
		t.Error("expected the escaped event name to appear in the message")
	}
	if !strings.Contains(msg, "2.00") || !strings.Contains(msg, "2.50") {
		t.Errorf("expected old/new prices in message: %s", msg)
	}
	if !strings.Contains(msg, "🚨") {
		t.Errorf("expected the critical-severity icon, got: %s", msg)
	}
}

func TestFormatRiskAlert_Availability(t *testing.T) {
	a := models.RiskAlert{
		Type:       models.AlertAvailability,
		Severity:   models.SeverityWarning,
		OldValue:   1.85,
		DetectedAt: time.Now(),
	}
	msg := formatRiskAlert(a, "")
	if !strings.Contains(msg, "no longer offered") {
		t.Errorf("expected availability wording, got: %s", msg)
	}
}

func TestNotifyRiskAlert_NilReceiverReturnsError(t *testing.T) {
	var n *TelegramNotifier
	if err := n.NotifyRiskAlert(nil, models.RiskAlert{}, ""); err == nil {
		t.Error("expected an error from a nil notifier rather than a panic")
	}
}
