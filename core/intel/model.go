package intel

import (
	"hash/fnv"
	"sync"
	"sync/atomic"
)

const modelShardCount = 16

// DefaultAlpha is the EMA learning rate applied per observation.
const DefaultAlpha = 0.1

// NeutralPrior is the score assumed for feature keys the model has
// never seen.
const NeutralPrior = 0.3

type modelShard struct {
	mu      sync.RWMutex
	weights map[string]float64
	samples map[string]int
}

// Model maps path-shape feature keys to hit-rate weights in [0,1].
// Updates are serialized per shard so cross-key updates from different
// workers proceed concurrently; reads take the shard read lock and are
// never exposed to partial writes.
//
// Lifecycle is scan-session scoped: a fresh model per session, no
// persistence.
type Model struct {
	alpha     float64
	shards    [modelShardCount]*modelShard
	observed  int64
	corrupted atomic.Bool
}

func NewModel(alpha float64) *Model {
	if alpha <= 0 || alpha >= 1 {
		alpha = DefaultAlpha
	}
	m := &Model{alpha: alpha}
	for i := range m.shards {
		m.shards[i] = &modelShard{
			weights: make(map[string]float64),
			samples: make(map[string]int),
		}
	}
	return m
}

func (m *Model) shardFor(key string) *modelShard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return m.shards[h.Sum32()%modelShardCount]
}

// Update folds a binary outcome into the key's weight via exponential
// moving average. With outcome in {0,1} the weight cannot leave [0,1];
// if it somehow does the model declares itself corrupted and scoring
// falls back to the neutral prior until Reset.
func (m *Model) Update(key string, outcome float64) {
	if outcome < 0 {
		outcome = 0
	}
	if outcome > 1 {
		outcome = 1
	}

	shard := m.shardFor(key)
	shard.mu.Lock()
	current, ok := shard.weights[key]
	if !ok {
		current = NeutralPrior
	}
	next := (1-m.alpha)*current + m.alpha*outcome
	if next < 0 || next > 1 {
		shard.mu.Unlock()
		m.corrupted.Store(true)
		return
	}
	shard.weights[key] = next
	shard.samples[key]++
	shard.mu.Unlock()

	atomic.AddInt64(&m.observed, 1)
}

// Weight returns the key's weight, its sample count and whether the key
// exists. A corrupted model answers as if empty.
func (m *Model) Weight(key string) (float64, int, bool) {
	if m.corrupted.Load() {
		return NeutralPrior, 0, false
	}
	shard := m.shardFor(key)
	shard.mu.RLock()
	defer shard.mu.RUnlock()
	w, ok := shard.weights[key]
	if !ok {
		return NeutralPrior, 0, false
	}
	return w, shard.samples[key], true
}

// Snapshot copies every key above the given weight threshold. Each
// shard is copied under its read lock, so individual weights are always
// fully written values.
func (m *Model) Snapshot(threshold float64) map[string]float64 {
	out := make(map[string]float64)
	if m.corrupted.Load() {
		return out
	}
	for _, shard := range m.shards {
		shard.mu.RLock()
		for k, w := range shard.weights {
			if w >= threshold {
				out[k] = w
			}
		}
		shard.mu.RUnlock()
	}
	return out
}

// Observations reports how many outcomes have been folded in.
func (m *Model) Observations() int64 {
	return atomic.LoadInt64(&m.observed)
}

// Corrupted reports whether an out-of-range weight was detected.
func (m *Model) Corrupted() bool {
	return m.corrupted.Load()
}

// Reset drops all learned weights and clears the corruption flag.
func (m *Model) Reset() {
	for _, shard := range m.shards {
		shard.mu.Lock()
		shard.weights = make(map[string]float64)
		shard.samples = make(map[string]int)
		shard.mu.Unlock()
	}
	atomic.StoreInt64(&m.observed, 0)
	m.corrupted.Store(false)
}
