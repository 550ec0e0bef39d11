package storage

import (
	"testing"

	"github.com/Vodeneev/oddwatch/internal/pkg/models"
)

func TestEncodeDecodeEnabledBooks_RoundTrip(t *testing.T) {
	m := map[models.Book]bool{
		models.BookPrimary:     true,
		models.BookCompetitorA: false,
		models.BookCompetitorB: true,
	}
	encoded := encodeEnabledBooks(m)
	decoded := decodeEnabledBooks(encoded)

	if !decoded[models.BookPrimary] || !decoded[models.BookCompetitorB] {
		t.Errorf("decodeEnabledBooks(%q) = %v, want primary and competitor_b enabled", encoded, decoded)
	}
	if decoded[models.BookCompetitorA] {
		t.Errorf("decodeEnabledBooks(%q) = %v, want competitor_a absent (was disabled)", encoded, decoded)
	}
}

func TestDecodeEnabledBooks_Empty(t *testing.T) {
	decoded := decodeEnabledBooks("")
	if len(decoded) != 0 {
		t.Errorf("decodeEnabledBooks(\"\") = %v, want empty map", decoded)
	}
}

func TestDecodeEnabledBooks_IgnoresEmptySegments(t *testing.T) {
	decoded := decodeEnabledBooks("primary,,competitor_a,")
	if len(decoded) != 2 || !decoded[models.BookPrimary] || !decoded[models.BookCompetitorA] {
		t.Errorf("decodeEnabledBooks() = %v, want primary and competitor_a only", decoded)
	}
}
