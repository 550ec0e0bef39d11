package book

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsEventGone(t *testing.T) {
	if !IsEventGone(ErrEventGone) {
		t.Error("expected ErrEventGone itself to be recognized")
	}
	if !IsEventGone(fmt.Errorf("fetch failed: %w", ErrEventGone)) {
		t.Error("expected a wrapped ErrEventGone to be recognized")
	}
	if IsEventGone(errors.New("some other failure")) {
		t.Error("expected an unrelated error to not be recognized as event-gone")
	}
	if IsEventGone(nil) {
		t.Error("expected nil to not be recognized as event-gone")
	}
}
