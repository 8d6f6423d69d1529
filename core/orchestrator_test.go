package core

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/dp2pwn/surfacer/core/evasion"
)

type fakeRoute struct {
	status int
	body   string
	header http.Header
}

// fakeTransport serves scripted routes by path and records every
// request it sees.
type fakeTransport struct {
	mu       sync.Mutex
	routes   map[string]fakeRoute
	requests []string
	delay    time.Duration
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{routes: make(map[string]fakeRoute)}
}

func (f *fakeTransport) route(path string, status int, body string) {
	f.routes[path] = fakeRoute{status: status, body: body}
}

func (f *fakeTransport) Execute(ctx context.Context, method, rawURL string, headers map[string]string) (*Response, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	f.requests = append(f.requests, u.RequestURI())
	route, ok := f.routes[u.Path]
	f.mu.Unlock()

	if f.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(f.delay):
		}
	}

	if !ok {
		return &Response{StatusCode: 404, Headers: http.Header{}, Body: []byte("not found")}, nil
	}
	header := route.header
	if header == nil {
		header = http.Header{"Content-Type": []string{"text/html"}}
	}
	return &Response{StatusCode: route.status, Headers: header, Body: []byte(route.body)}, nil
}

func (f *fakeTransport) seen(path string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.requests {
		if p == path {
			return true
		}
	}
	return false
}

func (f *fakeTransport) seenMatching(substr string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.requests {
		if strings.Contains(p, substr) {
			return true
		}
	}
	return false
}

func fastScanConfig() ScanConfig {
	return ScanConfig{
		Seed:             "https://target.test",
		Quiet:            true,
		Concurrency:      3,
		MaxCrawlDepth:    2,
		StoreCapacity:    1024,
		RetryLimit:       1,
		PhaseGracePeriod: 50 * time.Millisecond,
		PhaseBudget:      5 * time.Second,
		Evasion: evasion.Config{
			SuspectAfter:      2,
			BackoffAfter:      5,
			FailureWindow:     time.Minute,
			DelayFloor:        time.Millisecond,
			DelayCap:          2 * time.Millisecond,
			CooldownPause:     time.Millisecond,
			RequestsPerSecond: 100000,
			JitterPercent:     -1,
		},
	}
}

func TestEngineDiscoversCrawlsAndFuzzes(t *testing.T) {
	transport := newFakeTransport()
	transport.route("/", 200, `<html><body>
		<a href="/admin">admin</a>
		<script>fetch("/api/users")</script>
	</body></html>`)
	transport.route("/admin", 200, `<html><body>control panel</body></html>`)
	transport.route("/api/users", 200, `[{"id":1}]`)

	engine, err := NewEngine(fastScanConfig(), transport)
	assert.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	summary, err := engine.Run(ctx)
	assert.NoError(t, err)
	assert.Equal(t, "completed", summary.Phase)

	// The crawler followed the seed page's references.
	assert.True(t, transport.seen("/admin"), "crawled link was never probed")
	assert.True(t, transport.seen("/api/users"), "script reference was never probed")

	// The fuzzing phase expanded the hit on /admin.
	assert.True(t, transport.seenMatching("/ADMIN"), "case fuzz variant was never probed")

	assert.GreaterOrEqual(t, summary.Hits, int64(3))
	assert.Greater(t, summary.Observations, summary.Hits)
	assert.Greater(t, summary.ByOrigin[OriginCrawled], int64(0))
}

func TestEngineNeverProbesSameFingerprintTwice(t *testing.T) {
	transport := newFakeTransport()
	transport.route("/", 200, `<html><body>
		<a href="/admin">one</a>
		<a href="/admin">two</a>
		<a href="/admin#section">three</a>
	</body></html>`)
	transport.route("/admin", 200, `<html><body><a href="/">home</a></body></html>`)

	engine, err := NewEngine(fastScanConfig(), transport)
	assert.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	_, err = engine.Run(ctx)
	assert.NoError(t, err)

	transport.mu.Lock()
	defer transport.mu.Unlock()
	counts := map[string]int{}
	for _, p := range transport.requests {
		counts[p]++
	}
	// The root is fetched once for platform detection and once as a
	// probe; every other path must be probed exactly once.
	for p, n := range counts {
		if p == "/" {
			assert.LessOrEqual(t, n, 2, "root fetched %d times", n)
			continue
		}
		assert.Equal(t, 1, n, "path %s probed %d times", p, n)
	}
}

func TestEngineCancellationAbortsWithPartialResults(t *testing.T) {
	transport := newFakeTransport()
	transport.delay = 10 * time.Millisecond
	transport.route("/", 200, `<html><body><a href="/a">a</a><a href="/b">b</a></body></html>`)
	transport.route("/a", 200, `<html><body>a</body></html>`)
	transport.route("/b", 200, `<html><body>b</body></html>`)

	engine, err := NewEngine(fastScanConfig(), transport)
	assert.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(80 * time.Millisecond)
		cancel()
	}()

	summary, err := engine.Run(ctx)
	assert.NoError(t, err)
	assert.Equal(t, "aborted", summary.Phase)

	// Whatever completed before the abort is still reported.
	transport.mu.Lock()
	requested := len(transport.requests)
	transport.mu.Unlock()
	assert.LessOrEqual(t, summary.Observations, int64(requested))
}

func TestEngineStopIsCooperative(t *testing.T) {
	transport := newFakeTransport()
	transport.delay = 5 * time.Millisecond
	transport.route("/", 200, `<html><body><a href="/x">x</a></body></html>`)

	engine, err := NewEngine(fastScanConfig(), transport)
	assert.NoError(t, err)

	done := make(chan Summary, 1)
	go func() {
		summary, _ := engine.Run(context.Background())
		done <- summary
	}()

	time.Sleep(50 * time.Millisecond)
	engine.Stop()

	select {
	case summary := <-done:
		assert.Equal(t, "aborted", summary.Phase)
	case <-time.After(5 * time.Second):
		t.Fatalf("engine did not stop")
	}
}

func TestEngineStopBeforeRunAborts(t *testing.T) {
	transport := newFakeTransport()
	transport.route("/", 200, `<html><body><a href="/x">x</a></body></html>`)

	engine, err := NewEngine(fastScanConfig(), transport)
	assert.NoError(t, err)

	// A stop that lands before the run starts must not be lost.
	engine.Stop()

	summary, err := engine.Run(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, "aborted", summary.Phase)
}

func TestEngineRejectsBadSeeds(t *testing.T) {
	_, err := NewEngine(ScanConfig{Seed: "ftp://example.com"}, newFakeTransport())
	assert.Error(t, err)

	_, err = NewEngine(ScanConfig{Seed: "not a url at all ://"}, newFakeTransport())
	assert.Error(t, err)
}
