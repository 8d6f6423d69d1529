package core

import (
	"net/url"
	"strings"

	"github.com/dp2pwn/surfacer/internal/netutil"
)

// Origin marks where a candidate came from. It is diagnostic only and
// never influences scheduling.
type Origin string

const (
	OriginSeed      Origin = "seed"
	OriginCrawled   Origin = "crawled"
	OriginFuzzed    Origin = "fuzzed"
	OriginPredicted Origin = "predicted"
)

// richness orders origins for merge decisions: when two candidates share
// a fingerprint, the richer tag wins.
func (o Origin) richness() int {
	switch o {
	case OriginPredicted:
		return 3
	case OriginFuzzed:
		return 2
	case OriginCrawled:
		return 1
	default:
		return 0
	}
}

// Candidate is a not-yet-probed path hypothesis. Immutable except for
// the priority score, which the store may raise on merge.
type Candidate struct {
	URL         string
	Origin      Origin
	Priority    float64
	Depth       int
	fingerprint string
}

// NewCandidate normalizes raw against base and builds a candidate. The
// second return value is false when raw cannot be resolved into a
// probe-able absolute URL.
func NewCandidate(base *url.URL, raw string, origin Origin, priority float64, depth int) (Candidate, bool) {
	normalized, ok := NormalizeURL(base, raw)
	if !ok {
		return Candidate{}, false
	}
	if priority < 0 {
		priority = 0
	}
	if priority > 1 {
		priority = 1
	}
	return Candidate{
		URL:         normalized,
		Origin:      origin,
		Priority:    priority,
		Depth:       depth,
		fingerprint: CanonicalFingerprint(normalized),
	}, true
}

// Fingerprint returns the canonical dedup key. Two candidates with the
// same fingerprint are the same entity regardless of origin.
func (c Candidate) Fingerprint() string {
	if c.fingerprint == "" {
		return CanonicalFingerprint(c.URL)
	}
	return c.fingerprint
}

// Path returns the request path portion of the candidate URL, falling
// back to the raw string when it does not parse.
func (c Candidate) Path() string {
	u, err := url.Parse(c.URL)
	if err != nil {
		return c.URL
	}
	if u.Path == "" {
		return "/"
	}
	return u.Path
}

// CanonicalFingerprint reduces a URL to its dedup key: lowercased
// scheme/host, default ports stripped, fragment dropped, duplicate
// slashes collapsed, percent-escapes uppercased and the query rendered
// in sorted order. Path case, trailing slashes and the escapes
// themselves are preserved; the fuzzer probes exactly those dimensions
// and its variants must stay distinct entities.
func CanonicalFingerprint(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return strings.TrimSpace(raw)
	}

	host := strings.ToLower(u.Host)
	switch {
	case u.Scheme == "http" && strings.HasSuffix(host, ":80"):
		host = strings.TrimSuffix(host, ":80")
	case u.Scheme == "https" && strings.HasSuffix(host, ":443"):
		host = strings.TrimSuffix(host, ":443")
	}

	p := u.EscapedPath()
	for strings.Contains(p, "//") {
		p = strings.ReplaceAll(p, "//", "/")
	}
	if p == "" {
		p = "/"
	}
	p = upperHexEscapes(p)

	key := strings.ToLower(u.Scheme) + "://" + host + p
	if u.RawQuery != "" {
		key += "?" + netutil.NormalizeQuery(u.RawQuery)
	}
	return key
}

// upperHexEscapes rewrites %xx escapes with uppercase hex digits so that
// %2f and %2F fingerprint identically without decoding the escape.
func upperHexEscapes(s string) string {
	if !strings.Contains(s, "%") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '%' && i+2 < len(s) && isHex(s[i+1]) && isHex(s[i+2]) {
			b.WriteByte('%')
			b.WriteByte(upperHex(s[i+1]))
			b.WriteByte(upperHex(s[i+2]))
			i += 2
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

func isHex(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func upperHex(c byte) byte {
	if c >= 'a' && c <= 'f' {
		return c - ('a' - 'A')
	}
	return c
}
