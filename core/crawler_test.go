package core

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractorFindsMarkupReferences(t *testing.T) {
	extractor := NewExtractor("example.com", false)
	base, _ := url.Parse("https://example.com/")
	body := []byte(`<html><body>
		<a href="/admin">admin</a>
		<script src="/assets/app.js"></script>
		<form action="/login"></form>
	</body></html>`)

	candidates := extractor.Extract(body, base, 0)

	var urls []string
	for _, cand := range candidates {
		urls = append(urls, cand.URL)
		assert.Equal(t, OriginCrawled, cand.Origin)
		assert.Equal(t, 1, cand.Depth)
	}
	assert.Contains(t, urls, "https://example.com/admin")
	assert.Contains(t, urls, "https://example.com/assets/app.js")
	assert.Contains(t, urls, "https://example.com/login")
}

func TestExtractorFindsScriptReferences(t *testing.T) {
	extractor := NewExtractor("example.com", false)
	base, _ := url.Parse("https://example.com/app.js")
	body := []byte(`fetch("/api/v2/users"); axios.get('/api/orders'); var x = "/internal/config";`)

	candidates := extractor.Extract(body, base, 1)

	var urls []string
	for _, cand := range candidates {
		urls = append(urls, cand.URL)
	}
	assert.Contains(t, urls, "https://example.com/api/v2/users")
	assert.Contains(t, urls, "https://example.com/api/orders")
	assert.Contains(t, urls, "https://example.com/internal/config")
}

func TestExtractorEnforcesScope(t *testing.T) {
	base, _ := url.Parse("https://example.com/")
	body := []byte(`<html><body>
		<a href="https://evil.com/steal">x</a>
		<a href="https://api.example.com/v1">y</a>
		<a href="/local">z</a>
	</body></html>`)

	strict := NewExtractor("example.com", false)
	var urls []string
	for _, cand := range strict.Extract(body, base, 0) {
		urls = append(urls, cand.URL)
	}
	assert.Contains(t, urls, "https://example.com/local")
	assert.NotContains(t, urls, "https://evil.com/steal")
	assert.NotContains(t, urls, "https://api.example.com/v1")

	withSubs := NewExtractor("example.com", true)
	urls = urls[:0]
	for _, cand := range withSubs.Extract(body, base, 0) {
		urls = append(urls, cand.URL)
	}
	assert.Contains(t, urls, "https://api.example.com/v1")
	assert.NotContains(t, urls, "https://evil.com/steal")
}

func TestExtractorMalformedContentYieldsNothing(t *testing.T) {
	extractor := NewExtractor("example.com", false)
	base, _ := url.Parse("https://example.com/")

	assert.Empty(t, extractor.Extract([]byte{0x00, 0x8f, 0xfe, 0x12}, base, 0))
	assert.Empty(t, extractor.Extract(nil, base, 0))
	assert.Empty(t, extractor.Extract([]byte("plain text without links"), base, 0))
}
