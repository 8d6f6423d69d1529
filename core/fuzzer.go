package core

import (
	"net/url"
	"strings"
)

// FuzzerConfig bounds the mutational expansion. Zero values take the
// defaults documented on each field.
type FuzzerConfig struct {
	MaxTraversalDepth int      // parent-segment insertions per variant, default 3
	MaxPerBase        int      // emitted candidates per base, default 64
	ProbeParams       []string // parameter names appended to API-ish paths
}

func (c *FuzzerConfig) applyDefaults() {
	if c.MaxTraversalDepth <= 0 {
		c.MaxTraversalDepth = 3
	}
	if c.MaxPerBase <= 0 {
		c.MaxPerBase = 64
	}
	if len(c.ProbeParams) == 0 {
		c.ProbeParams = DefaultProbeParams
	}
}

// Priority tiers by transformation aggressiveness: cheap variants are
// better signal per probe, so they outrank deep traversal chains.
const (
	fuzzScoreSimple    = 0.55 // case / trailing slash
	fuzzScoreEncoding  = 0.45 // percent and double encoding
	fuzzScoreParam     = 0.40 // probe parameter injection
	fuzzScoreExtension = 0.35 // extension swaps
	fuzzScoreTraversal = 0.30 // parent-segment chains, scaled down per level
)

// Fuzzer generates systematic path variants from a base candidate. The
// expansion is deterministic for a given base and configuration.
type Fuzzer struct {
	cfg FuzzerConfig
}

func NewFuzzer(cfg FuzzerConfig) *Fuzzer {
	cfg.applyDefaults()
	return &Fuzzer{cfg: cfg}
}

type fuzzVariant struct {
	path  string
	score float64
}

// Expand derives fuzzed candidates from base. Variants that normalize
// back to the base's own fingerprint are discarded so the fuzzer never
// re-submits what it started from.
func (f *Fuzzer) Expand(base Candidate) []Candidate {
	u, err := url.Parse(base.URL)
	if err != nil {
		return nil
	}
	basePath := u.Path
	if basePath == "" || basePath == "/" {
		return nil
	}

	variants := make([]fuzzVariant, 0, f.cfg.MaxPerBase)
	seen := map[string]struct{}{basePath: {}}
	add := func(p string, score float64) {
		if p == "" || len(variants) >= f.cfg.MaxPerBase {
			return
		}
		if _, dup := seen[p]; dup {
			return
		}
		seen[p] = struct{}{}
		variants = append(variants, fuzzVariant{path: p, score: score})
	}

	f.caseVariants(basePath, add)
	f.slashVariants(basePath, add)
	f.encodingVariants(basePath, add)
	f.extensionVariants(basePath, add)
	f.traversalVariants(basePath, add)
	f.parameterVariants(basePath, add)

	out := make([]Candidate, 0, len(variants))
	baseFP := base.Fingerprint()
	for _, v := range variants {
		target := u.Scheme + "://" + u.Host + v.path
		cand, ok := NewCandidate(nil, target, OriginFuzzed, v.score, base.Depth+1)
		if !ok || cand.Fingerprint() == baseFP {
			continue
		}
		out = append(out, cand)
	}
	return out
}

func (f *Fuzzer) caseVariants(p string, add func(string, float64)) {
	add(strings.ToUpper(p), fuzzScoreSimple)
	add(strings.ToLower(p), fuzzScoreSimple)

	// Capitalize the final segment only; full title-casing rarely
	// matches real routes.
	idx := strings.LastIndex(strings.TrimSuffix(p, "/"), "/")
	if idx >= 0 && idx+1 < len(p) {
		seg := p[idx+1:]
		add(p[:idx+1]+strings.ToUpper(seg[:1])+seg[1:], fuzzScoreSimple)
	}
}

func (f *Fuzzer) slashVariants(p string, add func(string, float64)) {
	if strings.HasSuffix(p, "/") {
		add(strings.TrimSuffix(p, "/"), fuzzScoreSimple)
	} else {
		add(p+"/", fuzzScoreSimple)
	}
}

func (f *Fuzzer) encodingVariants(p string, add func(string, float64)) {
	// Percent-encode the final segment's characters that servers often
	// decode differently, then double-encode the slash before it.
	add(strings.ReplaceAll(p, "/", "/%2e/"), fuzzScoreEncoding)
	add(percentEncodeLastSegment(p), fuzzScoreEncoding)

	idx := strings.LastIndex(p, "/")
	if idx > 0 {
		add(p[:idx]+"%2F"+p[idx+1:], fuzzScoreEncoding)
		add(p[:idx]+"%252F"+p[idx+1:], fuzzScoreEncoding)
	}
}

func percentEncodeLastSegment(p string) string {
	idx := strings.LastIndex(p, "/")
	if idx < 0 || idx+1 >= len(p) {
		return ""
	}
	seg := p[idx+1:]
	var b strings.Builder
	for i := 0; i < len(seg); i++ {
		c := seg[i]
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') {
			b.WriteString(percentEscape(c))
		} else {
			b.WriteByte(c)
		}
		// Encoding the first letter is usually enough to change server
		// routing; encoding everything just bloats the store.
		if i == 0 {
			b.WriteString(seg[1:])
			break
		}
	}
	return p[:idx+1] + b.String()
}

func percentEscape(c byte) string {
	const hexDigits = "0123456789ABCDEF"
	return string([]byte{'%', hexDigits[c>>4], hexDigits[c&0x0F]})
}

func (f *Fuzzer) extensionVariants(p string, add func(string, float64)) {
	if strings.HasSuffix(p, "/") {
		return
	}
	extensions := []string{".json", ".bak", ".old", ".txt"}
	trimmed := p
	if dot := strings.LastIndex(p, "."); dot > strings.LastIndex(p, "/") {
		trimmed = p[:dot]
	}
	for _, ext := range extensions {
		add(trimmed+ext, fuzzScoreExtension)
	}
}

func (f *Fuzzer) traversalVariants(p string, add func(string, float64)) {
	trimmed := strings.TrimPrefix(p, "/")
	for depth := 1; depth <= f.cfg.MaxTraversalDepth; depth++ {
		prefix := strings.Repeat("../", depth)
		// Deeper chains are progressively cheaper signal.
		score := fuzzScoreTraversal - float64(depth-1)*0.05
		add("/"+prefix+trimmed, score)
		add("/"+strings.Repeat("%2e%2e/", depth)+trimmed, score)
	}
}

func (f *Fuzzer) parameterVariants(p string, add func(string, float64)) {
	if strings.HasSuffix(p, "/") {
		return
	}
	for _, param := range f.cfg.ProbeParams {
		add(p+"?"+param+"=1", fuzzScoreParam)
	}
}
