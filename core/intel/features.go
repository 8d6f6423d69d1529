package intel

import (
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strings"
)

var (
	idSegment   = regexp.MustCompile(`^\d+$`)
	uuidSegment = regexp.MustCompile(`(?i)^[a-f0-9]{8}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{12}$`)
	hashSegment = regexp.MustCompile(`(?i)^[a-f0-9]{16,}$`)
)

// ShapeTemplate reduces a path to its structural shape: numeric
// segments become {id}, UUIDs {uuid}, long hex runs {hash}. The shape
// is what the model learns hit rates for, not the literal path.
func ShapeTemplate(p string) string {
	p = strings.TrimSpace(p)
	if p == "" || p == "/" {
		return "/"
	}
	segments := strings.Split(strings.Trim(p, "/"), "/")
	for i, seg := range segments {
		switch {
		case uuidSegment.MatchString(seg):
			segments[i] = "{uuid}"
		case hashSegment.MatchString(seg):
			segments[i] = "{hash}"
		case idSegment.MatchString(seg):
			segments[i] = "{id}"
		default:
			segments[i] = strings.ToLower(seg)
		}
	}
	return "/" + strings.Join(segments, "/")
}

// FeatureKeys extracts the model keys for a request URL: the shape
// template, the extension and the path depth. A URL that fails to parse
// contributes no features.
func FeatureKeys(rawURL string) []string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil
	}
	p := u.Path
	if p == "" {
		p = "/"
	}

	keys := make([]string, 0, 3)
	keys = append(keys, "shape:"+ShapeTemplate(p))

	if ext := strings.ToLower(path.Ext(p)); ext != "" {
		keys = append(keys, "ext:"+ext)
	}

	depth := strings.Count(strings.TrimSuffix(p, "/"), "/")
	keys = append(keys, fmt.Sprintf("depth:%d", depth))

	return keys
}

// PathKeywords pulls meaningful tokens out of a path for keyword-driven
// fuzzing: alphanumeric runs longer than two characters that are not
// purely numeric.
func PathKeywords(p string) []string {
	parts := regexp.MustCompile(`[/\-_.]`).Split(p, -1)
	seen := make(map[string]struct{})
	var keywords []string
	for _, part := range parts {
		clean := strings.Map(func(r rune) rune {
			if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
				return r
			}
			return -1
		}, part)
		if len(clean) <= 2 || idSegment.MatchString(clean) {
			continue
		}
		lower := strings.ToLower(clean)
		if _, dup := seen[lower]; dup {
			continue
		}
		seen[lower] = struct{}{}
		keywords = append(keywords, lower)
	}
	return keywords
}
