package core

import (
	"fmt"
	"sync"

	jsoniter "github.com/json-iterator/go"

	"github.com/dp2pwn/surfacer/internal/netutil"
)

// ConsoleSink prints discovered resources as they are observed:
// [origin] - [code-NNN] - url.
type ConsoleSink struct {
	Quiet   bool
	JSONOut bool
	Output  *Output
}

func (s *ConsoleSink) Consume(obs Observation) {
	if !obs.Hit() {
		return
	}

	display := netutil.NormalizeDisplayURL(obs.URL)
	line := fmt.Sprintf("[%s] - [code-%d] - %s", obs.Origin, obs.StatusCode, display)
	if s.JSONOut {
		if data, err := jsoniter.MarshalToString(obs); err == nil {
			line = data
		}
	} else if s.Quiet {
		line = display
	}

	fmt.Println(line)
	if s.Output != nil {
		s.Output.WriteLine(line)
	}
}

// ReportSink appends every observation, hit or miss, to a JSONL log for
// downstream analysis tooling.
type ReportSink struct {
	Output *Output
}

func (s *ReportSink) Consume(obs Observation) {
	if s.Output == nil {
		return
	}
	if data, err := jsoniter.MarshalToString(obs); err == nil {
		s.Output.WriteLine(data)
	}
}

// Summary is the terminal scan digest.
type Summary struct {
	SessionID    string           `json:"session_id"`
	Phase        string           `json:"phase"`
	Observations int64            `json:"observations"`
	Hits         int64            `json:"hits"`
	ByOrigin     map[Origin]int64 `json:"by_origin"`
	ByStatus     map[string]int64 `json:"by_status"`
	Dropped      int64            `json:"dropped"`
	Errors       int64            `json:"errors"`
	Retries      int64            `json:"retries"`
}

// SummarySink accumulates per-origin and per-status hit counters.
type SummarySink struct {
	mu       sync.Mutex
	total    int64
	hits     int64
	byOrigin map[Origin]int64
	byStatus map[string]int64
}

func NewSummarySink() *SummarySink {
	return &SummarySink{
		byOrigin: make(map[Origin]int64),
		byStatus: make(map[string]int64),
	}
}

func (s *SummarySink) Consume(obs Observation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.total++
	s.byStatus[obs.StatusClass()]++
	if obs.Hit() {
		s.hits++
		s.byOrigin[obs.Origin]++
	}
}

func (s *SummarySink) Snapshot() (total, hits int64, byOrigin map[Origin]int64, byStatus map[string]int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	byOrigin = make(map[Origin]int64, len(s.byOrigin))
	for k, v := range s.byOrigin {
		byOrigin[k] = v
	}
	byStatus = make(map[string]int64, len(s.byStatus))
	for k, v := range s.byStatus {
		byStatus[k] = v
	}
	return s.total, s.hits, byOrigin, byStatus
}
