package core

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectPlatformsFromHeaders(t *testing.T) {
	headers := http.Header{}
	headers.Set("X-Vercel-Id", "iad1::abc123")
	headers.Set("Server", "Vercel")

	platforms := DetectPlatforms(headers, nil)
	assert.Contains(t, platforms, PlatformVercel)
}

func TestDetectPlatformsFromBody(t *testing.T) {
	body := []byte(`<html><link rel="stylesheet" href="/wp-content/themes/site/style.min.js"></html>`)
	platforms := DetectPlatforms(http.Header{}, body)
	assert.Contains(t, platforms, PlatformWordPress)
}

func TestDetectPlatformsCanStackBehindCDN(t *testing.T) {
	headers := http.Header{}
	headers.Set("Via", "1.1 abc.cloudfront.net (CloudFront)")
	body := []byte(`{"framework":"express"}`)

	platforms := DetectPlatforms(headers, body)
	assert.Contains(t, platforms, PlatformAWS)
	assert.Contains(t, platforms, PlatformExpress)
}

func TestDetectPlatformsUnknownFallback(t *testing.T) {
	platforms := DetectPlatforms(http.Header{}, []byte("hello world"))
	assert.Equal(t, []Platform{PlatformUnknown}, platforms)
}

func TestKeywordPathsExpandCategoriesAndShapes(t *testing.T) {
	paths := KeywordPaths([]string{"admin", "billing"})

	assert.Contains(t, paths, "/administrator")
	assert.Contains(t, paths, "/admin/dashboard")
	assert.Contains(t, paths, "/billing")
	assert.Contains(t, paths, "/api/billing")
	assert.Contains(t, paths, "/v1/billing")

	seen := map[string]int{}
	for _, p := range paths {
		seen[p]++
		assert.Equal(t, 1, seen[p], "duplicate path %s", p)
	}
}

func TestSeedPathsAlwaysNonEmpty(t *testing.T) {
	for platform := range platformPatterns {
		assert.NotEmpty(t, SeedPaths(platform), "no seed paths for %s", platform)
	}
	assert.NotEmpty(t, SeedPaths(PlatformUnknown))
}
