package control

import (
	"testing"
	"time"
)

func TestSignalsAreLevelTriggered(t *testing.T) {
	t.Parallel()

	s := NewState()
	if s.AnyStop() || s.PauseRequested() {
		t.Fatalf("fresh state must have no signals set")
	}

	s.RequestStopAfterItem()
	if !s.StopAfterItem() || !s.AnyStop() {
		t.Fatalf("stop-after-item should stay set")
	}
	if s.StopNow() || s.StopAfterUnit() {
		t.Fatalf("other stop flags must stay independent")
	}
}

func TestAwaitResumeClearedByResume(t *testing.T) {
	t.Parallel()

	s := NewState()
	s.RequestPause()

	go func() {
		time.Sleep(50 * time.Millisecond)
		s.Resume()
	}()

	if stopped := s.AwaitResume(); stopped {
		t.Fatalf("AwaitResume reported a stop, expected plain resume")
	}
	if s.PauseRequested() {
		t.Fatalf("pause flag should be cleared after Resume")
	}
}

func TestAwaitResumeBrokenByStop(t *testing.T) {
	t.Parallel()

	s := NewState()
	s.RequestPause()

	go func() {
		time.Sleep(50 * time.Millisecond)
		s.RequestStopNow()
	}()

	if stopped := s.AwaitResume(); !stopped {
		t.Fatalf("AwaitResume should report the stop signal")
	}
}

func TestProgressCounters(t *testing.T) {
	t.Parallel()

	s := NewState()
	s.ResetProgress(3)
	if n := s.RecordDone(); n != 1 {
		t.Fatalf("expected 1 after first record, got %d", n)
	}
	s.RecordDone()
	done, total := s.Progress()
	if done != 2 || total != 3 {
		t.Fatalf("unexpected progress %d/%d", done, total)
	}

	s.ResetProgress(10)
	done, total = s.Progress()
	if done != 0 || total != 10 {
		t.Fatalf("ResetProgress did not reset: %d/%d", done, total)
	}
}

func TestInterrupted(t *testing.T) {
	t.Parallel()

	s := NewState()
	if s.Interrupted() {
		t.Fatalf("fresh state is not interrupted")
	}
	s.RequestPause()
	if !s.Interrupted() {
		t.Fatalf("pause counts as interrupted")
	}
	s.Resume()
	if !s.Interrupted() {
		t.Fatalf("interrupted must stay set after a resumed pause")
	}
}
