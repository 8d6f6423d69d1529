package intel

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShapeTemplateCollapsesDynamicSegments(t *testing.T) {
	cases := map[string]string{
		"/api/users/42":                        "/api/users/{id}",
		"/files/550e8400-e29b-41d4-a716-446655440000": "/files/{uuid}",
		"/cache/deadbeefdeadbeef":              "/cache/{hash}",
		"/Docs/Guide":                          "/docs/guide",
		"/":                                    "/",
	}
	for input, want := range cases {
		assert.Equal(t, want, ShapeTemplate(input), "shape of %s", input)
	}
}

func TestFeatureKeysIncludeShapeExtensionDepth(t *testing.T) {
	keys := FeatureKeys("https://example.com/api/export.json")
	assert.Contains(t, keys, "shape:/api/export.json")
	assert.Contains(t, keys, "ext:.json")
	assert.Contains(t, keys, "depth:2")
}

func TestFeatureKeysUnparseableURL(t *testing.T) {
	assert.Empty(t, FeatureKeys("http://exa mple.com/%zz"))
}

func TestPathKeywordsFiltersNoise(t *testing.T) {
	keywords := PathKeywords("/admin/user-profiles/42/config.bak")
	assert.Contains(t, keywords, "admin")
	assert.Contains(t, keywords, "user")
	assert.Contains(t, keywords, "profiles")
	assert.Contains(t, keywords, "config")
	assert.Contains(t, keywords, "bak")
	assert.NotContains(t, keywords, "42")
}
