package models

import (
	"testing"
	"time"
)

func TestDeriveScrapeStatus_AnySuccessIsCompleted(t *testing.T) {
	st := DeriveScrapeStatus(1, "batch-1", map[Book]bool{
		BookPrimary:     true,
		BookCompetitorA: false,
	}, time.Now())
	if st.Status != ScrapeStatusCompleted {
		t.Errorf("status = %s, want COMPLETED when at least one book succeeded", st.Status)
	}
	if len(st.BooksOK) != 1 || st.BooksOK[0] != BookPrimary {
		t.Errorf("BooksOK = %v, want [primary]", st.BooksOK)
	}
	if len(st.BooksFailed) != 1 || st.BooksFailed[0] != BookCompetitorA {
		t.Errorf("BooksFailed = %v, want [competitor_a]", st.BooksFailed)
	}
}

func TestDeriveScrapeStatus_TotalFailureIsFailed(t *testing.T) {
	st := DeriveScrapeStatus(1, "batch-1", map[Book]bool{
		BookPrimary:     false,
		BookCompetitorA: false,
		BookCompetitorB: false,
	}, time.Now())
	if st.Status != ScrapeStatusFailed {
		t.Errorf("status = %s, want FAILED when every attempted book failed", st.Status)
	}
}

func TestDeriveScrapeStatus_UnattemptedBookIgnored(t *testing.T) {
	st := DeriveScrapeStatus(1, "batch-1", map[Book]bool{BookPrimary: true}, time.Now())
	if len(st.BooksOK)+len(st.BooksFailed) != 1 {
		t.Errorf("a book never present in scrapedBooks must not appear in either list, got ok=%v failed=%v", st.BooksOK, st.BooksFailed)
	}
}

func TestCoverageCount(t *testing.T) {
	p := "p1"
	e := Event{
		PrimaryBookExternalID: &p,
		CompetitorExternalIDs: map[Book]string{BookCompetitorA: "a1"},
	}
	if e.CoverageCount() != 2 {
		t.Errorf("coverage count = %d, want 2", e.CoverageCount())
	}
	if !e.HasPrimaryBook() {
		t.Error("expected HasPrimaryBook to be true")
	}
}
