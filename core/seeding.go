package core

import (
	"bytes"
	"context"
	"regexp"
	"strings"

	sitemap "github.com/oxffaa/gopher-parse-sitemap"
)

var sitemapLocations = []string{
	"/sitemap.xml",
	"/sitemap_news.xml",
	"/sitemap_index.xml",
	"/sitemap-index.xml",
	"/sitemapindex.xml",
	"/sitemap-news.xml",
	"/post-sitemap.xml",
	"/page-sitemap.xml",
	"/category-sitemap.xml",
	"/author-sitemap.xml",
}

var robotsAllowRe = regexp.MustCompile(`(?i)^\s*(?:dis)?allow:\s*`)

// Seeder pulls starting candidates out of the target's own navigation
// hints before the crawl proper begins. Everything goes through the
// shared transport so seeding respects proxy and timeout settings.
type Seeder struct {
	transport Transport
	submit    func(raw string, origin Origin, priority float64)
}

func NewSeeder(transport Transport, submit func(raw string, origin Origin, priority float64)) *Seeder {
	return &Seeder{transport: transport, submit: submit}
}

// SeedRobots fetches /robots.txt and submits every Allow/Disallow path.
// Paths a site bothers to mention in robots.txt are disproportionately
// interesting, so they seed at crawl priority.
func (s *Seeder) SeedRobots(ctx context.Context, site string) {
	resp, err := s.transport.Execute(ctx, "GET", strings.TrimRight(site, "/")+"/robots.txt", nil)
	if err != nil {
		Logger.Debugf("robots.txt fetch failed: %v", err)
		return
	}
	if resp.StatusCode != 200 {
		return
	}

	for _, line := range strings.Split(string(resp.Body), "\n") {
		if !robotsAllowRe.MatchString(line) {
			continue
		}
		path := strings.TrimSpace(robotsAllowRe.ReplaceAllString(line, ""))
		path = strings.TrimSuffix(path, "*")
		if path == "" || path == "/" || strings.Contains(path, "*") {
			continue
		}
		s.submit(path, OriginSeed, 0.6)
	}
}

// SeedSitemap tries the common sitemap locations and submits every
// entry location it can parse.
func (s *Seeder) SeedSitemap(ctx context.Context, site string) {
	base := strings.TrimRight(site, "/")
	for _, loc := range sitemapLocations {
		resp, err := s.transport.Execute(ctx, "GET", base+loc, nil)
		if err != nil || resp.StatusCode != 200 {
			continue
		}
		Logger.Infof("Found sitemap: %s", base+loc)
		err = sitemap.Parse(bytes.NewReader(resp.Body), func(entry sitemap.Entry) error {
			s.submit(entry.GetLocation(), OriginSeed, 0.55)
			return nil
		})
		if err != nil {
			Logger.Debugf("sitemap parse failed for %s: %v", loc, err)
		}
	}
}

// SeedPlatform probes the root, detects the serving platform from the
// response, and submits platform specific plus universal seed paths.
// The root observation itself is returned so the engine can record it.
func (s *Seeder) SeedPlatform(ctx context.Context, site string, headers map[string]string) []Platform {
	resp, err := s.transport.Execute(ctx, "GET", site, headers)
	if err != nil {
		Logger.Debugf("platform probe failed: %v", err)
		return nil
	}

	platforms := DetectPlatforms(resp.Headers, resp.Body)
	for _, p := range platforms {
		Logger.Infof("Detected platform: %s", p)
		for _, path := range SeedPaths(p) {
			s.submit(path, OriginSeed, 0.65)
		}
	}
	for _, path := range universalSeedPaths {
		s.submit(path, OriginSeed, 0.5)
	}
	return platforms
}
