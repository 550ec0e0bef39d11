package storage

import (
	"reflect"
	"testing"

	"github.com/Vodeneev/oddwatch/internal/pkg/models"
)

func TestJoinSplitBooks_RoundTrip(t *testing.T) {
	books := []models.Book{models.BookPrimary, models.BookCompetitorA, models.BookCompetitorB}
	joined := joinBooks(books)
	if joined != "primary,competitor_a,competitor_b" {
		t.Errorf("joinBooks() = %q, want comma-joined book names", joined)
	}
	if got := splitBooks(joined); !reflect.DeepEqual(got, books) {
		t.Errorf("splitBooks(joinBooks(x)) = %v, want %v", got, books)
	}
}

func TestSplitBooks_Empty(t *testing.T) {
	if got := splitBooks(""); got != nil {
		t.Errorf("splitBooks(\"\") = %v, want nil", got)
	}
}
