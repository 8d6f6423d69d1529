package core

import (
	"net/url"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Phase is the orchestrator's state-machine position.
type Phase int32

const (
	PhaseCreated Phase = iota
	PhaseDiscovering
	PhaseFuzzing
	PhaseAnalyzing
	PhaseReporting
	PhaseCompleted
	PhaseAborted
)

func (p Phase) String() string {
	switch p {
	case PhaseCreated:
		return "created"
	case PhaseDiscovering:
		return "discovering"
	case PhaseFuzzing:
		return "fuzzing"
	case PhaseAnalyzing:
		return "analyzing"
	case PhaseReporting:
		return "reporting"
	case PhaseCompleted:
		return "completed"
	case PhaseAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition is possible.
func (p Phase) Terminal() bool {
	return p == PhaseCompleted || p == PhaseAborted
}

// ScanSession owns the per-scan identity, phase and cancellation flag.
// The orchestrator is its only writer.
type ScanSession struct {
	ID        string
	Target    *url.URL
	StartedAt time.Time

	phase     atomic.Int32
	cancelled atomic.Bool
}

func NewScanSession(target *url.URL) *ScanSession {
	s := &ScanSession{
		ID:        uuid.NewString(),
		Target:    target,
		StartedAt: time.Now(),
	}
	s.phase.Store(int32(PhaseCreated))
	return s
}

func (s *ScanSession) Phase() Phase {
	return Phase(s.phase.Load())
}

// transition moves to next if that is a legal step from the current
// phase. Aborted is reachable from any non-terminal phase; otherwise
// only the forward sequence is allowed.
func (s *ScanSession) transition(next Phase) bool {
	for {
		current := Phase(s.phase.Load())
		if current.Terminal() {
			return false
		}
		legal := next == PhaseAborted || next == current+1
		if !legal {
			return false
		}
		if s.phase.CompareAndSwap(int32(current), int32(next)) {
			Logger.Debugf("session %s: phase %s -> %s", s.ID, current, next)
			return true
		}
	}
}

// Cancel flips the cooperative cancellation flag. Workers observe it at
// loop boundaries; in-flight probes are allowed to finish.
func (s *ScanSession) Cancel() {
	s.cancelled.Store(true)
}

func (s *ScanSession) Cancelled() bool {
	return s.cancelled.Load()
}
