package core

import (
	"net/http"
	"strings"
)

// Platform identifies the hosting stack behind the target, detected
// from the seed response. It selects which seed path list the engine
// injects before fuzzing starts.
type Platform string

const (
	PlatformUnknown   Platform = "unknown"
	PlatformVercel    Platform = "vercel"
	PlatformFirebase  Platform = "firebase"
	PlatformNetlify   Platform = "netlify"
	PlatformAWS       Platform = "aws"
	PlatformWordPress Platform = "wordpress"
	PlatformLaravel   Platform = "laravel"
	PlatformExpress   Platform = "express"
	PlatformDjango    Platform = "django"
)

var platformPatterns = map[Platform][]string{
	PlatformVercel:    {"vercel", "x-vercel", "_next/static"},
	PlatformFirebase:  {"firebase", "__/firebase"},
	PlatformNetlify:   {"netlify", "_redirects"},
	PlatformAWS:       {"x-amz", "cloudfront", "amazonaws"},
	PlatformWordPress: {"wp-content", "wp-includes", "wordpress"},
	PlatformLaravel:   {"laravel_session", "x-laravel"},
	PlatformExpress:   {"x-powered-by: express", "express"},
	PlatformDjango:    {"csrftoken", "django"},
}

// DetectPlatforms matches header and body indicators against known
// platform signatures. Multiple platforms can match (CDN in front of an
// app server); none matching yields unknown.
func DetectPlatforms(headers http.Header, body []byte) []Platform {
	var headerBlob strings.Builder
	for k, vals := range headers {
		headerBlob.WriteString(strings.ToLower(k))
		headerBlob.WriteString(": ")
		headerBlob.WriteString(strings.ToLower(strings.Join(vals, " ")))
		headerBlob.WriteString("\n")
	}
	haystack := headerBlob.String()

	sample := body
	if len(sample) > 8192 {
		sample = sample[:8192]
	}
	bodyLower := strings.ToLower(string(sample))

	var detected []Platform
	for platform, patterns := range platformPatterns {
		for _, pattern := range patterns {
			if strings.Contains(haystack, pattern) || strings.Contains(bodyLower, pattern) {
				detected = append(detected, platform)
				break
			}
		}
	}
	if len(detected) == 0 {
		detected = append(detected, PlatformUnknown)
	}
	return detected
}

// SeedPaths returns the platform-specific path list used to prime the
// candidate store.
func SeedPaths(platform Platform) []string {
	switch platform {
	case PlatformVercel:
		return []string{
			"/api", "/api/auth", "/api/users", "/api/data",
			"/_next/static", "/_next/data", "/_next/image",
			"/auth", "/login", "/dashboard", "/profile",
		}
	case PlatformFirebase:
		return []string{
			"/__/firebase", "/__/auth", "/__/config",
			"/api", "/v1", "/rest/v1", "/users", "/posts",
		}
	case PlatformNetlify:
		return []string{
			"/_redirects", "/_headers", "/.netlify/functions",
			"/api", "/admin",
		}
	case PlatformWordPress:
		return []string{
			"/wp-admin", "/wp-login.php", "/wp-json", "/xmlrpc.php",
			"/wp-json/wp/v2/users", "/admin", "/login",
		}
	case PlatformLaravel:
		return []string{
			"/storage", "/vendor", "/.env", "/api", "/telescope",
			"/horizon", "/login", "/register",
		}
	case PlatformDjango:
		return []string{
			"/static", "/media", "/admin", "/api", "/accounts",
		}
	default:
		return universalSeedPaths
	}
}

var universalSeedPaths = []string{
	"/api", "/api/v1", "/api/v2", "/graphql", "/rest",
	"/auth", "/login", "/register", "/signin", "/signup",
	"/oauth", "/token",
	"/admin", "/dashboard", "/panel", "/control",
	"/user", "/users", "/profile", "/account",
	"/data", "/files", "/uploads", "/storage",
	"/config", "/settings", "/setup",
	"/robots.txt", "/sitemap.xml", "/.env", "/config.json",
	"/package.json", "/composer.json",
	"/.well-known/security.txt", "/.well-known/jwks.json",
}

// naturalPathCategories mirrors path sets observed across real
// applications; keyword-driven fuzzing draws from matching categories.
var naturalPathCategories = map[string][]string{
	"admin": {
		"/admin", "/administrator", "/admin/login", "/admin/dashboard",
		"/admin/config", "/admincp",
	},
	"api": {
		"/api", "/api/v1", "/api/v2", "/graphql", "/rest",
		"/api/docs", "/api/swagger",
	},
	"auth": {
		"/login", "/signin", "/logout", "/register", "/signup",
		"/auth", "/oauth", "/sso", "/password/reset",
	},
	"files": {
		"/uploads", "/files", "/documents", "/assets",
		"/static", "/media", "/downloads", "/backups",
	},
	"config": {
		"/config", "/settings", "/setup", "/install", "/.env", "/config.json",
	},
	"dev": {
		"/dev", "/staging", "/test", "/debug", "/console", "/api/debug",
	},
	"logs": {
		"/logs", "/log", "/debug/log",
	},
}

// KeywordPaths returns natural paths whose category matches one of the
// extracted keywords, plus generic shapes built from the keyword
// itself.
func KeywordPaths(keywords []string) []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(p string) {
		if _, dup := seen[p]; dup {
			return
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}

	for _, kw := range keywords {
		if paths, ok := naturalPathCategories[kw]; ok {
			for _, p := range paths {
				add(p)
			}
		}
		add("/" + kw)
		add("/api/" + kw)
		add("/" + kw + "/v1")
		add("/v1/" + kw)
		add("/" + kw + ".json")
	}
	return out
}
