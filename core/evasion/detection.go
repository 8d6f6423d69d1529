package evasion

import (
	"net/http"
	"regexp"
	"strings"
)

// BlockSignal classifies how hostile a response is.
type BlockSignal int

const (
	// BlockNone covers normal responses including plain 404s.
	BlockNone BlockSignal = iota
	// BlockRateLimited is a 429-class throttle.
	BlockRateLimited
	// BlockWAF is a hard block page (WAF, challenge, IP ban).
	BlockWAF
)

type blockSignature struct {
	name      string
	headerKey string
	headerRe  *regexp.Regexp
	bodyRe    *regexp.Regexp
}

var blockSignatures = []blockSignature{
	{
		name:      "Cloudflare",
		headerKey: "Server",
		headerRe:  regexp.MustCompile(`(?i)cloudflare`),
		bodyRe:    regexp.MustCompile(`(?i)cloudflare|attention required|checking your browser|ray id`),
	},
	{
		name:      "Akamai",
		headerKey: "Server",
		headerRe:  regexp.MustCompile(`(?i)akamaighost|akamai`),
		bodyRe:    regexp.MustCompile(`(?i)akamai|reference #\d+\.\w+`),
	},
	{
		name:      "Incapsula",
		headerKey: "X-Iinfo",
		headerRe:  regexp.MustCompile(`.+`),
		bodyRe:    regexp.MustCompile(`(?i)incapsula|request unsuccessful|incident id`),
	},
	{
		name:      "ModSecurity",
		headerKey: "Server",
		headerRe:  regexp.MustCompile(`(?i)mod_security|modsecurity`),
		bodyRe:    regexp.MustCompile(`(?i)mod_security|not acceptable`),
	},
}

var genericBlockBody = regexp.MustCompile(`(?i)access denied|your ip has been blocked|bot detected|suspicious activity|security policy|captcha|challenge`)

// DetectBlock inspects a response for blocking signals. Plain misses
// (404, 500s without indicators) are not blocks; only the status codes
// WAFs actually answer with are considered at all.
func DetectBlock(status int, headers http.Header, body []byte) (BlockSignal, string) {
	if status == http.StatusTooManyRequests {
		return BlockRateLimited, "rate-limit"
	}

	switch status {
	case http.StatusForbidden, http.StatusNotAcceptable, http.StatusServiceUnavailable:
	default:
		return BlockNone, ""
	}

	sample := body
	if len(sample) > 2048 {
		sample = sample[:2048]
	}
	lowerBody := strings.ToLower(string(sample))

	for _, sig := range blockSignatures {
		if v := headers.Get(sig.headerKey); v != "" && sig.headerRe.MatchString(v) {
			return BlockWAF, sig.name
		}
		if sig.bodyRe.MatchString(lowerBody) {
			return BlockWAF, sig.name
		}
	}

	if genericBlockBody.MatchString(lowerBody) {
		return BlockWAF, "generic"
	}

	return BlockNone, ""
}
