package core

import (
	"bytes"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	// fetch("/api/x"), axios.get('/x'), xhr.open("GET", "/x")
	jsCallRe = regexp.MustCompile(`(?i)(?:fetch|axios\.\w+|\.open)\(\s*(?:["'][A-Z]+["']\s*,\s*)?["']([^"']+)["']`)
	// quoted absolute or root-relative reference-like literals
	jsLiteralRe = regexp.MustCompile(`["'](https?://[^"'\s]+|/[a-zA-Z0-9_\-./]{2,}(?:\?[^"'\s]*)?)["']`)
)

// Extractor parses fetched content for linked-resource candidates. It
// is stateless apart from its scope configuration; malformed content
// degrades to zero candidates, never an error.
type Extractor struct {
	scopeHost  string
	allowSubs  bool
	crawlScore float64
}

func NewExtractor(scopeHost string, allowSubs bool) *Extractor {
	return &Extractor{
		scopeHost:  strings.ToLower(scopeHost),
		allowSubs:  allowSubs,
		crawlScore: 0.6,
	}
}

// Extract pulls candidates out of an observation body. HTML-looking
// content goes through goquery; anything else is scanned for URL
// literals, which also covers scripts and JSON.
func (e *Extractor) Extract(body []byte, base *url.URL, depth int) []Candidate {
	if len(body) == 0 || base == nil {
		return nil
	}

	var refs []string
	if looksLikeHTML(body) {
		refs = append(refs, e.extractMarkup(body, base)...)
	}
	refs = append(refs, extractScriptRefs(body)...)

	var out []Candidate
	for _, ref := range refs {
		cand, ok := NewCandidate(base, ref, OriginCrawled, e.crawlScore, depth+1)
		if !ok {
			continue
		}
		if !e.inScope(cand.URL) {
			continue
		}
		out = append(out, cand)
	}
	return out
}

func (e *Extractor) extractMarkup(body []byte, base *url.URL) []string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		Logger.Debugf("markup parse failed for %s: %v", base, err)
		return nil
	}

	var refs []string
	doc.Find("[href]").Each(func(_ int, sel *goquery.Selection) {
		if v, ok := sel.Attr("href"); ok {
			refs = append(refs, v)
		}
	})
	doc.Find("[src]").Each(func(_ int, sel *goquery.Selection) {
		if v, ok := sel.Attr("src"); ok {
			refs = append(refs, v)
		}
	})
	doc.Find("form[action]").Each(func(_ int, sel *goquery.Selection) {
		if v, ok := sel.Attr("action"); ok {
			refs = append(refs, v)
		}
	})
	doc.Find("meta[http-equiv='refresh']").Each(func(_ int, sel *goquery.Selection) {
		if v, ok := sel.Attr("content"); ok {
			if idx := strings.Index(strings.ToLower(v), "url="); idx != -1 {
				refs = append(refs, v[idx+4:])
			}
		}
	})
	return refs
}

// extractScriptRefs scans raw content for fetch/XHR call targets and
// path-looking string literals.
func extractScriptRefs(body []byte) []string {
	text := string(body)
	seen := make(map[string]struct{})
	var refs []string

	add := func(ref string) {
		ref = strings.TrimSpace(ref)
		if ref == "" {
			return
		}
		if _, dup := seen[ref]; dup {
			return
		}
		seen[ref] = struct{}{}
		refs = append(refs, ref)
	}

	for _, m := range jsCallRe.FindAllStringSubmatch(text, -1) {
		add(m[1])
	}
	for _, m := range jsLiteralRe.FindAllStringSubmatch(text, -1) {
		// Skip MIME types and the like that sneak past the pattern.
		if strings.Contains(m[1], " ") {
			continue
		}
		add(m[1])
	}
	return refs
}

func (e *Extractor) inScope(raw string) bool {
	if e.scopeHost == "" {
		return true
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	if host == e.scopeHost {
		return true
	}
	return e.allowSubs && strings.HasSuffix(host, "."+e.scopeHost)
}

func looksLikeHTML(body []byte) bool {
	sample := body
	if len(sample) > 1024 {
		sample = sample[:1024]
	}
	lower := strings.ToLower(string(sample))
	return strings.Contains(lower, "<html") || strings.Contains(lower, "<head") ||
		strings.Contains(lower, "<body") || strings.Contains(lower, "<div") ||
		strings.Contains(lower, "<a ")
}
