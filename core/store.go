package core

import (
	"container/heap"
	"sync"
)

// StoreDiagnostics counts store-level events that are deliberately
// non-fatal: capacity drops, evictions and priority merges.
type StoreDiagnostics struct {
	Submitted int64
	Merged    int64
	Evicted   int64
	Dropped   int64
}

type storeEntry struct {
	cand  Candidate
	seq   uint64
	index int
}

// candidateHeap is a max-heap on priority; equal priorities fall back to
// insertion order so dequeue stays deterministic.
type candidateHeap []*storeEntry

func (h candidateHeap) Len() int { return len(h) }

func (h candidateHeap) Less(i, j int) bool {
	if h[i].cand.Priority != h[j].cand.Priority {
		return h[i].cand.Priority > h[j].cand.Priority
	}
	return h[i].seq < h[j].seq
}

func (h candidateHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *candidateHeap) Push(x any) {
	entry := x.(*storeEntry)
	entry.index = len(*h)
	*h = append(*h, entry)
}

func (h *candidateHeap) Pop() any {
	old := *h
	n := len(old)
	entry := old[n-1]
	old[n-1] = nil
	entry.index = -1
	*h = old[:n-1]
	return entry
}

// CandidateStore is the single shared work queue all producers feed.
// It deduplicates by fingerprint, orders by priority (FIFO among equal
// scores) and is bounded: a full store evicts its lowest-priority
// resident when something better arrives, otherwise drops the incoming
// candidate so producers never block.
type CandidateStore struct {
	mu       sync.Mutex
	notEmpty *sync.Cond
	entries  candidateHeap
	byFP     map[string]*storeEntry
	capacity int
	seq      uint64
	closed   bool
	diag     StoreDiagnostics
}

const DefaultStoreCapacity = 4096

func NewCandidateStore(capacity int) *CandidateStore {
	if capacity <= 0 {
		capacity = DefaultStoreCapacity
	}
	s := &CandidateStore{
		byFP:     make(map[string]*storeEntry),
		capacity: capacity,
	}
	s.notEmpty = sync.NewCond(&s.mu)
	return s
}

// Submit inserts or merges the candidate by fingerprint. Merging keeps
// the maximum priority ever seen and the richer origin tag. Returns
// false when the candidate was dropped (capacity, or store closed).
func (s *CandidateStore) Submit(cand Candidate) bool {
	fp := cand.Fingerprint()
	if fp == "" {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}
	s.diag.Submitted++

	if existing, ok := s.byFP[fp]; ok {
		s.diag.Merged++
		if cand.Priority > existing.cand.Priority {
			existing.cand.Priority = cand.Priority
			heap.Fix(&s.entries, existing.index)
		}
		if cand.Origin.richness() > existing.cand.Origin.richness() {
			existing.cand.Origin = cand.Origin
		}
		return true
	}

	if len(s.entries) >= s.capacity {
		victim := s.lowestLocked()
		if victim == nil || cand.Priority <= victim.cand.Priority {
			s.diag.Dropped++
			return false
		}
		heap.Remove(&s.entries, victim.index)
		delete(s.byFP, victim.cand.Fingerprint())
		s.diag.Evicted++
	}

	entry := &storeEntry{cand: cand, seq: s.seq}
	s.seq++
	heap.Push(&s.entries, entry)
	s.byFP[fp] = entry
	s.notEmpty.Signal()
	return true
}

// lowestLocked scans for the eviction victim: the lowest priority,
// latest-inserted resident. Linear, but only runs when the store is at
// capacity.
func (s *CandidateStore) lowestLocked() *storeEntry {
	var victim *storeEntry
	for _, e := range s.entries {
		if victim == nil ||
			e.cand.Priority < victim.cand.Priority ||
			(e.cand.Priority == victim.cand.Priority && e.seq > victim.seq) {
			victim = e
		}
	}
	return victim
}

// Dequeue blocks until a candidate is available or the store is closed
// and drained; the second return value is false on end-of-stream.
func (s *CandidateStore) Dequeue() (Candidate, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for len(s.entries) == 0 && !s.closed {
		s.notEmpty.Wait()
	}
	if len(s.entries) == 0 {
		return Candidate{}, false
	}

	entry := heap.Pop(&s.entries).(*storeEntry)
	delete(s.byFP, entry.cand.Fingerprint())
	return entry.cand, true
}

// Close rejects future submissions and unblocks waiters once residents
// are drained.
func (s *CandidateStore) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.notEmpty.Broadcast()
}

func (s *CandidateStore) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *CandidateStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *CandidateStore) Diagnostics() StoreDiagnostics {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.diag
}
