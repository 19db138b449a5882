// Package control holds the cooperative cancellation state shared between
// the signal-raising caller and the single pipeline goroutine.
package control

import (
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Phase describes where the pipeline currently is in its lifecycle.
type Phase int32

const (
	PhaseIdle Phase = iota
	PhaseRunning
	PhasePaused
	PhaseStopping
	PhaseDone
)

// State carries the four level-triggered signals plus progress counters for
// one batch. Signal setters may be called from any goroutine; the pipeline
// goroutine is the only consumer. Flags stay set until the batch ends, except
// pause which is cleared by Resume.
type State struct {
	stopNow       atomic.Bool
	stopAfterUnit atomic.Bool
	stopAfterItem atomic.Bool
	pauseRequest  atomic.Bool
	everPaused    atomic.Bool

	phase    atomic.Int32
	dayIndex atomic.Int64
	dayTotal atomic.Int64
	done     atomic.Int64
	total    atomic.Int64

	// BatchID identifies one batch run in logs and artifacts.
	BatchID string
}

// NewState creates a fresh batch state in the idle phase.
func NewState() *State {
	return &State{BatchID: uuid.NewString()}
}

// RequestStopNow asks for an immediate abort of the whole batch.
func (s *State) RequestStopNow() { s.stopNow.Store(true) }

// RequestStopAfterUnit asks to finish the current date, then terminate.
func (s *State) RequestStopAfterUnit() { s.stopAfterUnit.Store(true) }

// RequestStopAfterItem asks to finish the current record, then terminate.
func (s *State) RequestStopAfterItem() { s.stopAfterItem.Store(true) }

// RequestPause asks to block after the current record until Resume.
func (s *State) RequestPause() {
	s.pauseRequest.Store(true)
	s.everPaused.Store(true)
}

// Resume clears a pending pause request.
func (s *State) Resume() { s.pauseRequest.Store(false) }

func (s *State) StopNow() bool       { return s.stopNow.Load() }
func (s *State) StopAfterUnit() bool { return s.stopAfterUnit.Load() }
func (s *State) StopAfterItem() bool { return s.stopAfterItem.Load() }
func (s *State) PauseRequested() bool { return s.pauseRequest.Load() }

// AnyStop reports whether any of the three stop variants is set.
func (s *State) AnyStop() bool {
	return s.stopNow.Load() || s.stopAfterUnit.Load() || s.stopAfterItem.Load()
}

// Interrupted reports whether any stop or pause signal fired during the
// batch, including pauses that were later resumed; it selects the log
// artifact classification at batch end.
func (s *State) Interrupted() bool {
	return s.AnyStop() || s.everPaused.Load()
}

func (s *State) SetPhase(p Phase) { s.phase.Store(int32(p)) }
func (s *State) Phase() Phase     { return Phase(s.phase.Load()) }

// AwaitResume blocks until the pause flag is cleared or a stop variant
// arrives. It returns true if the wait ended because of a stop signal.
func (s *State) AwaitResume() bool {
	s.SetPhase(PhasePaused)
	defer s.SetPhase(PhaseRunning)
	for s.pauseRequest.Load() {
		if s.AnyStop() {
			return true
		}
		time.Sleep(200 * time.Millisecond)
	}
	return false
}

// SetDay records progress through the batch's date list.
func (s *State) SetDay(index, total int) {
	s.dayIndex.Store(int64(index))
	s.dayTotal.Store(int64(total))
}

// Day returns the 1-based current date index and the date count.
func (s *State) Day() (int, int) {
	return int(s.dayIndex.Load()), int(s.dayTotal.Load())
}

// ResetProgress starts the per-day record counters over.
func (s *State) ResetProgress(total int) {
	s.done.Store(0)
	s.total.Store(int64(total))
}

// RecordDone advances the per-day processed counter and returns it.
func (s *State) RecordDone() int {
	return int(s.done.Add(1))
}

// Progress returns processed and total record counts for the current day.
func (s *State) Progress() (int, int) {
	return int(s.done.Load()), int(s.total.Load())
}
