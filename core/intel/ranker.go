package intel

import (
	"math/rand"
	"strings"
	"sync"
)

// RankerConfig exposes the exploration knobs; zero values fall back to
// the documented defaults.
type RankerConfig struct {
	Epsilon          float64 // chance of keeping a low-scoring shape alive
	ExplorationBonus float64 // additive bonus for under-sampled keys
	MinSamples       int     // below this a key counts as under-sampled
	PredictThreshold float64 // minimum weight for shape synthesis
	PredictInterval  int64   // observations between Generate runs
	PredictLimit     int     // cap on candidates per Generate run
}

func (c *RankerConfig) applyDefaults() {
	if c.Epsilon <= 0 {
		c.Epsilon = 0.1
	}
	if c.ExplorationBonus <= 0 {
		c.ExplorationBonus = 0.05
	}
	if c.MinSamples <= 0 {
		c.MinSamples = 5
	}
	if c.PredictThreshold <= 0 {
		c.PredictThreshold = 0.55
	}
	if c.PredictInterval <= 0 {
		c.PredictInterval = 25
	}
	if c.PredictLimit <= 0 {
		c.PredictLimit = 40
	}
}

// Prediction is a ranker-synthesized path plus its model-derived score.
type Prediction struct {
	Path  string
	Score float64
}

// Ranker scores candidates against the shared model and periodically
// synthesizes new candidates from high-weight shapes. It only ever
// reads the model.
type Ranker struct {
	model *Model
	cfg   RankerConfig

	mu            sync.Mutex
	rng           *rand.Rand
	lastGenerated int64
}

func NewRanker(model *Model, cfg RankerConfig, seed int64) *Ranker {
	cfg.applyDefaults()
	return &Ranker{
		model: model,
		cfg:   cfg,
		rng:   rand.New(rand.NewSource(seed)),
	}
}

// Rank scores a URL in [0,1]: the mean weight of its feature keys,
// neutral prior for unknown keys, plus an exploration bonus while the
// keys are under-sampled. With probability epsilon a low score is
// bumped to the prior so early misses cannot permanently bury a whole
// feature class.
func (r *Ranker) Rank(rawURL string) float64 {
	keys := FeatureKeys(rawURL)
	if len(keys) == 0 {
		return NeutralPrior
	}

	var total float64
	underSampled := false
	for _, key := range keys {
		w, samples, known := r.model.Weight(key)
		if !known || samples < r.cfg.MinSamples {
			underSampled = true
		}
		total += w
	}
	score := total / float64(len(keys))
	if underSampled {
		score += r.cfg.ExplorationBonus
	}

	if score < NeutralPrior {
		r.mu.Lock()
		explore := r.rng.Float64() < r.cfg.Epsilon
		r.mu.Unlock()
		if explore {
			score = NeutralPrior
		}
	}

	if score > 1 {
		score = 1
	}
	if score < 0 {
		score = 0
	}
	return score
}

// ShouldGenerate reports whether enough new observations accumulated
// since the last synthesis run, and consumes the interval when so.
func (r *Ranker) ShouldGenerate() bool {
	seen := r.model.Observations()
	r.mu.Lock()
	defer r.mu.Unlock()
	if seen-r.lastGenerated < r.cfg.PredictInterval {
		return false
	}
	r.lastGenerated = seen
	return true
}

// Generate synthesizes paths by instantiating high-weight shape
// templates against the discovered base directories. basePaths should
// be paths that actually exist on the target.
func (r *Ranker) Generate(basePaths []string) []Prediction {
	shapes := r.model.Snapshot(r.cfg.PredictThreshold)
	if len(shapes) == 0 || len(basePaths) == 0 {
		return nil
	}

	bases := baseDirectories(basePaths)
	seen := make(map[string]struct{})
	var out []Prediction

	for key, weight := range shapes {
		shape, ok := strings.CutPrefix(key, "shape:")
		if !ok {
			continue
		}
		leaf := lastSegment(shape)
		if leaf == "" {
			continue
		}
		for _, base := range bases {
			p := joinPath(base, instantiateSegment(leaf))
			if p == "" {
				continue
			}
			if _, dup := seen[p]; dup {
				continue
			}
			seen[p] = struct{}{}
			out = append(out, Prediction{Path: p, Score: weight})
			if len(out) >= r.cfg.PredictLimit {
				return out
			}
		}
	}
	return out
}

// baseDirectories reduces hit paths to their unique parent directories.
func baseDirectories(paths []string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, p := range paths {
		dir := parentDir(p)
		if _, dup := seen[dir]; dup {
			continue
		}
		seen[dir] = struct{}{}
		out = append(out, dir)
	}
	return out
}

func parentDir(p string) string {
	p = strings.TrimSuffix(p, "/")
	idx := strings.LastIndex(p, "/")
	if idx <= 0 {
		return "/"
	}
	return p[:idx]
}

func lastSegment(shape string) string {
	shape = strings.TrimSuffix(shape, "/")
	idx := strings.LastIndex(shape, "/")
	if idx < 0 {
		return shape
	}
	return shape[idx+1:]
}

// instantiateSegment turns a template placeholder into something
// probe-able.
func instantiateSegment(seg string) string {
	switch seg {
	case "{id}":
		return "1"
	case "{uuid}":
		return "00000000-0000-0000-0000-000000000001"
	case "{hash}":
		return strings.Repeat("0", 16)
	default:
		return seg
	}
}

func joinPath(base, leaf string) string {
	if leaf == "" {
		return ""
	}
	if base == "/" || base == "" {
		return "/" + leaf
	}
	return base + "/" + leaf
}
