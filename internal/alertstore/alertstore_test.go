package alertstore

import (
	"testing"

	"github.com/Vodeneev/oddwatch/internal/pkg/models"
)

func TestCooldownKey_DistinguishesOutcomeAndLine(t *testing.T) {
	base := models.RiskAlert{
		EventID: 1, Book: models.BookPrimary, CanonicalMarket: "total",
		Line: 2.5, OutcomeName: "over", Type: models.AlertPriceChange,
	}
	other := base
	other.OutcomeName = "under"

	if cooldownKey(base) == cooldownKey(other) {
		t.Error("expected different outcomes to produce different cooldown keys")
	}

	sameAgain := base
	if cooldownKey(base) != cooldownKey(sameAgain) {
		t.Error("expected the same alert fields to produce the same cooldown key")
	}

	differentLine := base
	differentLine.Line = 3.5
	if cooldownKey(base) == cooldownKey(differentLine) {
		t.Error("expected different lines to produce different cooldown keys")
	}
}
