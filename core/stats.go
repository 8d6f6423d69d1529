package core

import (
	"sync/atomic"
	"time"
)

// ScanStats aggregates session counters. All methods are safe for
// concurrent use by the worker pool.
type ScanStats struct {
	candidatesFound int64
	probesSent      int64
	hits            int64
	errors          int64
	retries         int64
}

func NewScanStats() *ScanStats {
	return &ScanStats{}
}

func (s *ScanStats) IncrementCandidates() {
	atomic.AddInt64(&s.candidatesFound, 1)
}

func (s *ScanStats) IncrementProbes() {
	atomic.AddInt64(&s.probesSent, 1)
}

func (s *ScanStats) IncrementHits() {
	atomic.AddInt64(&s.hits, 1)
}

func (s *ScanStats) IncrementErrors() {
	atomic.AddInt64(&s.errors, 1)
}

func (s *ScanStats) IncrementRetries() {
	atomic.AddInt64(&s.retries, 1)
}

func (s *ScanStats) GetCandidatesFound() int64 {
	return atomic.LoadInt64(&s.candidatesFound)
}

func (s *ScanStats) GetProbesSent() int64 {
	return atomic.LoadInt64(&s.probesSent)
}

func (s *ScanStats) GetHits() int64 {
	return atomic.LoadInt64(&s.hits)
}

func (s *ScanStats) GetErrors() int64 {
	return atomic.LoadInt64(&s.errors)
}

func (s *ScanStats) GetRetries() int64 {
	return atomic.LoadInt64(&s.retries)
}

func (s *ScanStats) GetRPS(elapsed time.Duration) float64 {
	seconds := elapsed.Seconds()
	if seconds <= 0 {
		return 0
	}
	return float64(s.GetProbesSent()) / seconds
}
