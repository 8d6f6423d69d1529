package core

import (
	"net/url"
	"path"
	"strings"
)

var (
	linkExclusionFragments = []string{
		"node_modules", "gravatar", "schema.org", "gstatic.com", "fontawesome",
		"spinner.gif", "captcha",
	}

	fileExtensionExclusions = map[string]struct{}{
		".zip": {}, ".dmg": {}, ".rpm": {}, ".deb": {}, ".gz": {}, ".tar": {},
		".jpg": {}, ".jpeg": {}, ".png": {}, ".gif": {}, ".svg": {}, ".bmp": {}, ".ico": {},
		".woff": {}, ".woff2": {}, ".ttf": {}, ".otf": {}, ".eot": {}, ".mp3": {}, ".mp4": {},
		".avi": {}, ".mov": {}, ".mpeg": {}, ".css": {}, ".scss": {}, ".less": {}, ".exe": {},
	}
)

// NormalizeURL resolves candidate relative to base and filters out
// schemes and static assets that can never be discovery targets.
func NormalizeURL(base *url.URL, candidate string) (string, bool) {
	candidate = strings.TrimSpace(candidate)
	if candidate == "" {
		return "", false
	}

	// Drop javascript/data/mailto style links early.
	lower := strings.ToLower(candidate)
	if strings.HasPrefix(lower, "javascript:") || strings.HasPrefix(lower, "mailto:") || strings.HasPrefix(lower, "data:") || strings.HasPrefix(lower, "tel:") {
		return "", false
	}

	if strings.HasPrefix(candidate, "//") {
		if base != nil {
			candidate = base.Scheme + ":" + candidate
		} else {
			candidate = "http:" + candidate
		}
	}

	candidate = strings.Trim(candidate, "\"'<>[](){} ")
	if candidate == "" {
		return "", false
	}

	var resolved *url.URL
	var err error
	if base != nil {
		resolved, err = base.Parse(candidate)
	} else {
		resolved, err = url.Parse(candidate)
	}
	if err != nil {
		return "", false
	}

	if resolved.Scheme == "" && base != nil {
		resolved.Scheme = base.Scheme
	}
	if resolved.Host == "" && base != nil {
		resolved.Host = base.Host
	}
	if resolved.Host == "" {
		return "", false
	}

	resolved.Fragment = ""
	if resolved.Path == "" {
		resolved.Path = "/"
	}

	if shouldExclude(resolved) {
		return "", false
	}

	return resolved.String(), true
}

func shouldExclude(u *url.URL) bool {
	pathLower := strings.ToLower(u.Path)
	for _, frag := range linkExclusionFragments {
		if strings.Contains(pathLower, frag) {
			return true
		}
	}

	ext := strings.ToLower(path.Ext(u.Path))
	if ext != "" {
		if _, ok := fileExtensionExclusions[ext]; ok {
			return true
		}
	}

	return false
}
