package competitora

import "testing"

func TestAmericanToDecimal(t *testing.T) {
	tests := []struct {
		american int
		want     float64
	}{
		{150, 2.5},
		{-200, 1.5},
		{100, 2.0},
		{-100, 2.0},
	}
	for _, tt := range tests {
		if got := americanToDecimal(tt.american); got != tt.want {
			t.Errorf("americanToDecimal(%d) = %v, want %v", tt.american, got, tt.want)
		}
	}
}

func TestTeamNames(t *testing.T) {
	home, away := teamNames([]participant{
		{Alignment: "away", Name: "Away Team"},
		{Alignment: "home", Name: "Home Team"},
	})
	if home != "Home Team" || away != "Away Team" {
		t.Errorf("teamNames() = (%q, %q), want (Home Team, Away Team)", home, away)
	}
}

func TestTeamNames_MissingAlignment(t *testing.T) {
	home, away := teamNames([]participant{{Alignment: "home", Name: "Solo"}})
	if home != "Solo" || away != "" {
		t.Errorf("teamNames() = (%q, %q), want (Solo, \"\")", home, away)
	}
}
