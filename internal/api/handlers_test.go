package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Vodeneev/oddwatch/internal/pkg/models"
)

func TestMarginOf(t *testing.T) {
	outcomes := []models.Outcome{
		{Name: "home", Price: 2.0},
		{Name: "draw", Price: 3.0},
		{Name: "away", Price: 4.0},
	}
	got := marginOf(outcomes)
	want := 1.0/2.0 + 1.0/3.0 + 1.0/4.0 - 1.0
	if diff := got - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("marginOf() = %v, want %v", got, want)
	}
}

func TestMarginOf_SkipsNonPositivePrices(t *testing.T) {
	outcomes := []models.Outcome{{Name: "home", Price: 0}, {Name: "away", Price: 2.0}}
	got := marginOf(outcomes)
	want := 1.0/2.0 - 1.0
	if diff := got - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("marginOf() = %v, want %v (zero price skipped)", got, want)
	}
}

func TestSplitFirstSegment(t *testing.T) {
	tests := []struct {
		path      string
		wantFirst string
		wantRest  string
		wantOK    bool
	}{
		{"123", "123", "", true},
		{"123/history", "123", "history", true},
		{"", "", "", false},
		{"123/history/extra", "123", "history/extra", true},
	}
	for _, tt := range tests {
		first, rest, ok := splitFirstSegment(tt.path)
		if first != tt.wantFirst || rest != tt.wantRest || ok != tt.wantOK {
			t.Errorf("splitFirstSegment(%q) = (%q, %q, %v), want (%q, %q, %v)",
				tt.path, first, rest, ok, tt.wantFirst, tt.wantRest, tt.wantOK)
		}
	}
}

func TestHandlePing(t *testing.T) {
	w := httptest.NewRecorder()
	handlePing(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
	if w.Body.String() != "pong\n" {
		t.Errorf("body = %q, want %q", w.Body.String(), "pong\n")
	}
}

func TestHandleHealth(t *testing.T) {
	w := httptest.NewRecorder()
	handleHealth(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}
