package scheduler

import (
	"testing"
	"time"
)

func TestScheduler_InitialStateIsStopped(t *testing.T) {
	s := New(nil, nil, time.Minute, nil)
	if s.State() != StateStopped {
		t.Errorf("initial state = %s, want %s", s.State(), StateStopped)
	}
}

func TestScheduler_PauseResumeNoopWhileStopped(t *testing.T) {
	s := New(nil, nil, time.Minute, nil)
	s.Pause()
	if s.State() != StateStopped {
		t.Errorf("Pause() while stopped changed state to %s, want it to stay %s", s.State(), StateStopped)
	}
	s.Resume()
	if s.State() != StateStopped {
		t.Errorf("Resume() while stopped changed state to %s, want it to stay %s", s.State(), StateStopped)
	}
}

func TestScheduler_TriggerNowNoopWhileStopped(t *testing.T) {
	s := New(nil, nil, time.Minute, nil)
	s.TriggerNow()
	select {
	case <-s.trigger:
		t.Error("TriggerNow() queued a trigger while stopped, want a no-op")
	default:
	}
}

func TestScheduler_PauseAndResumeTransitions(t *testing.T) {
	s := New(nil, nil, time.Minute, nil)
	s.mu.Lock()
	s.state = StateRunning
	s.mu.Unlock()

	s.Pause()
	if s.State() != StatePaused {
		t.Errorf("state after Pause() = %s, want %s", s.State(), StatePaused)
	}

	s.Resume()
	if s.State() != StateRunning {
		t.Errorf("state after Resume() = %s, want %s", s.State(), StateRunning)
	}
}

func TestScheduler_TriggerNowQueuesWhileRunning(t *testing.T) {
	s := New(nil, nil, time.Minute, nil)
	s.mu.Lock()
	s.state = StateRunning
	s.mu.Unlock()

	s.TriggerNow()
	select {
	case <-s.trigger:
	default:
		t.Error("TriggerNow() while running should queue a pending trigger")
	}

	s.TriggerNow()
	s.TriggerNow()
	select {
	case <-s.trigger:
	default:
		t.Error("expected the first queued trigger to remain pending")
	}
	select {
	case <-s.trigger:
		t.Error("TriggerNow() should not queue a second pending trigger on top of one already pending")
	default:
	}
}

func TestScheduler_StopResetsState(t *testing.T) {
	s := New(nil, nil, time.Minute, nil)
	s.mu.Lock()
	s.state = StateRunning
	s.mu.Unlock()

	s.Stop()
	if s.State() != StateStopped {
		t.Errorf("state after Stop() = %s, want %s", s.State(), StateStopped)
	}
}
