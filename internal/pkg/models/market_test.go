package models

import "testing"

func TestEqualOutcomes(t *testing.T) {
	a := []Outcome{{Name: "home", Price: 2.0}, {Name: "away", Price: 1.8}}
	b := []Outcome{{Name: "away", Price: 1.8}, {Name: "home", Price: 2.0}}
	if !EqualOutcomes(a, b) {
		t.Error("expected outcome sets equal by name regardless of order")
	}

	c := []Outcome{{Name: "home", Price: 2.1}, {Name: "away", Price: 1.8}}
	if EqualOutcomes(a, c) {
		t.Error("expected a changed price to count as unequal")
	}

	d := []Outcome{{Name: "home", Price: 2.0}}
	if EqualOutcomes(a, d) {
		t.Error("expected a changed outcome set (not just price) to count as unequal")
	}
}

func TestMargin(t *testing.T) {
	m := CurrentMarket{Outcomes: []Outcome{
		{Name: "home", Price: 2.0},
		{Name: "draw", Price: 3.0},
		{Name: "away", Price: 4.0},
	}}
	got := m.Margin()
	want := 1.0/2.0 + 1.0/3.0 + 1.0/4.0 - 1.0
	if diff := got - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("margin = %v, want %v", got, want)
	}
}

func TestLineOrSentinel(t *testing.T) {
	if LineOrSentinel(nil) != LineSentinel {
		t.Errorf("LineOrSentinel(nil) = %v, want sentinel %v", LineOrSentinel(nil), LineSentinel)
	}
	line := 2.5
	if LineOrSentinel(&line) != 2.5 {
		t.Errorf("LineOrSentinel(&2.5) = %v, want 2.5", LineOrSentinel(&line))
	}
}
