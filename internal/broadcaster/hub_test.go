package broadcaster

import (
	"reflect"
	"testing"
)

func TestParseTopics_EmptyMeansAllTopics(t *testing.T) {
	if got := parseTopics(""); got != nil {
		t.Errorf("parseTopics(\"\") = %v, want nil (all topics)", got)
	}
}

func TestParseTopics_SplitsCommaList(t *testing.T) {
	got := parseTopics("odds_updates,risk_alerts")
	want := map[string]bool{"odds_updates": true, "risk_alerts": true}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("parseTopics() = %v, want %v", got, want)
	}
}

func TestParseTopics_IgnoresEmptySegments(t *testing.T) {
	got := parseTopics("odds_updates,,risk_alerts,")
	want := map[string]bool{"odds_updates": true, "risk_alerts": true}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("parseTopics() = %v, want %v", got, want)
	}
}

func TestSubscriber_WantsTopic(t *testing.T) {
	all := newSubscriber(nil, nil)
	if !all.wantsTopic("anything") {
		t.Error("a subscriber with nil topics should want every topic")
	}

	filtered := newSubscriber(nil, map[string]bool{"odds_updates": true})
	if !filtered.wantsTopic("odds_updates") {
		t.Error("expected subscriber to want a subscribed topic")
	}
	if filtered.wantsTopic("risk_alerts") {
		t.Error("expected subscriber to not want an unsubscribed topic")
	}
}

func TestHub_LenTracksSubscribers(t *testing.T) {
	h := NewHub()
	if h.Len() != 0 {
		t.Errorf("Len() on empty hub = %d, want 0", h.Len())
	}
	sub := newSubscriber(nil, nil)
	h.subscribers[sub] = struct{}{}
	if h.Len() != 1 {
		t.Errorf("Len() after adding a subscriber = %d, want 1", h.Len())
	}
	h.remove(sub)
	if h.Len() != 0 {
		t.Errorf("Len() after removing the subscriber = %d, want 0", h.Len())
	}
}
