package core

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dp2pwn/surfacer/core/evasion"
	"github.com/dp2pwn/surfacer/core/intel"
	"github.com/dp2pwn/surfacer/internal/netutil"
)

// Engine drives a scan session end to end: seeding, the worker pool,
// phase progression and the terminal summary. All candidate traffic
// funnels through submit, all probe results through observe.
type Engine struct {
	cfg     ScanConfig
	session *ScanSession

	store     *CandidateStore
	registry  *URLRegistry
	stats     *ScanStats
	transport Transport
	extractor *Extractor
	fuzzer    *Fuzzer
	seeder    *Seeder

	model   *intel.Model
	learner *intel.Learner
	ranker  *intel.Ranker

	evasion *evasion.Controller

	sinks   []ObservationSink
	summary *SummarySink

	mu       sync.Mutex
	hits     []Candidate
	hitPaths []string
	keywords map[string]struct{}

	inflight atomic.Int64
	cancel   context.CancelFunc
}

// NewEngine assembles an engine from the configuration. A nil transport
// selects the default HTTP transport; tests inject their own.
func NewEngine(cfg ScanConfig, transport Transport) (*Engine, error) {
	cfg.ApplyDefaults()

	target, err := url.Parse(cfg.Seed)
	if err != nil {
		return nil, err
	}
	if target.Scheme != "http" && target.Scheme != "https" {
		return nil, errors.New("seed must be an absolute http(s) URL")
	}
	if cfg.ScopeHost == "" {
		cfg.ScopeHost = target.Hostname()
	}

	if transport == nil {
		transport, err = NewHTTPTransport(cfg.Timeout, cfg.Proxy, !cfg.NoRedirect)
		if err != nil {
			return nil, err
		}
	}

	model := intel.NewModel(cfg.Alpha)
	summary := NewSummarySink()

	e := &Engine{
		cfg:       cfg,
		session:   NewScanSession(target),
		store:     NewCandidateStore(cfg.StoreCapacity),
		registry:  NewURLRegistry(),
		stats:     NewScanStats(),
		transport: transport,
		extractor: NewExtractor(cfg.ScopeHost, cfg.IncludeSubs),
		fuzzer:    NewFuzzer(cfg.Fuzzer),
		model:     model,
		learner:   intel.NewLearner(model),
		ranker:    intel.NewRanker(model, cfg.Ranker, time.Now().UnixNano()),
		evasion:   evasion.NewController(cfg.Evasion, evasion.NewIdentityPool(cfg.Proxies), time.Now),
		summary:   summary,
		keywords:  make(map[string]struct{}),
	}
	e.seeder = NewSeeder(transport, e.submitSeed)

	console := &ConsoleSink{Quiet: cfg.Quiet, JSONOut: cfg.JSONOut}
	if cfg.OutputDir != "" {
		out, err := NewOutput(cfg.OutputDir, target.Hostname())
		if err != nil {
			return nil, err
		}
		console.Output = out
		report, err := NewOutput(cfg.OutputDir, target.Hostname()+"_observations.jsonl")
		if err != nil {
			return nil, err
		}
		e.sinks = append(e.sinks, &ReportSink{Output: report})
	}
	e.sinks = append(e.sinks, console, summary)
	return e, nil
}

// Session exposes the session for callers that report progress.
func (e *Engine) Session() *ScanSession {
	return e.session
}

// Stats exposes the live counters.
func (e *Engine) Stats() *ScanStats {
	return e.stats
}

// Stop requests cooperative shutdown. In-flight probes finish and the
// session terminates as Aborted.
func (e *Engine) Stop() {
	e.session.Cancel()
	e.mu.Lock()
	cancel := e.cancel
	e.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Run executes the scan to completion or abort and returns the terminal
// summary. It is a single-shot call.
func (e *Engine) Run(ctx context.Context) (Summary, error) {
	if !e.session.transition(PhaseDiscovering) {
		return Summary{}, errors.New("session already started")
	}
	Logger.Infof("session %s: scanning %s", e.session.ID, e.session.Target)

	ctx, cancel := context.WithCancel(ctx)
	e.mu.Lock()
	e.cancel = cancel
	e.mu.Unlock()
	defer cancel()
	if e.session.Cancelled() {
		// Stop raced the startup; honor it before dispatching anything.
		cancel()
	}

	e.seed(ctx)

	g := new(errgroup.Group)
	for i := 0; i < e.cfg.Concurrency; i++ {
		g.Go(func() error {
			e.worker(ctx)
			return nil
		})
	}
	g.Go(func() error {
		e.supervise(ctx)
		return nil
	})
	_ = g.Wait()

	e.session.transition(PhaseCompleted)
	e.closeSinks()

	elapsed := time.Since(e.session.StartedAt)
	Logger.Infof("session %s: %d candidates, %d probes, %d hits in %s (%.1f req/s)",
		e.session.ID, e.stats.GetCandidatesFound(), e.stats.GetProbesSent(),
		e.stats.GetHits(), elapsed.Round(time.Millisecond), e.stats.GetRPS(elapsed))
	return e.buildSummary(), nil
}

// seed primes the store from the target itself: the seed URL, platform
// specific paths discovered from the root response and, when enabled,
// robots.txt and sitemap entries.
func (e *Engine) seed(ctx context.Context) {
	if cand, ok := NewCandidate(nil, e.session.Target.String(), OriginSeed, 1.0, 0); ok {
		e.submit(cand)
	}

	site := e.session.Target.Scheme + "://" + e.session.Target.Host
	e.seeder.SeedPlatform(ctx, site, e.identityHeaders())
	if e.cfg.SeedRobots {
		e.seeder.SeedRobots(ctx, site)
	}
	if e.cfg.SeedSitemap {
		e.seeder.SeedSitemap(ctx, site)
	}
}

// submitSeed adapts the seeder callback onto submit: relative paths are
// resolved against the target origin.
func (e *Engine) submitSeed(raw string, origin Origin, priority float64) {
	cand, ok := NewCandidate(e.session.Target, raw, origin, priority, 0)
	if !ok {
		return
	}
	e.submit(cand)
}

// submit is the single entry point for new candidates. Anything probed
// earlier in the session is skipped; the store handles in-flight
// deduplication and priority merging.
func (e *Engine) submit(cand Candidate) bool {
	if e.registry.Seen(cand.Fingerprint()) {
		return false
	}
	// Derived candidates blend their producer's score with the learned
	// likelihood so observed shape statistics steer the queue.
	if cand.Origin != OriginSeed {
		cand.Priority = (cand.Priority + e.ranker.Rank(cand.URL)) / 2
	}
	if !e.store.Submit(cand) {
		return false
	}
	e.stats.IncrementCandidates()
	return true
}

func (e *Engine) worker(ctx context.Context) {
	for {
		if ctx.Err() != nil || e.session.Cancelled() {
			return
		}
		cand, ok := e.store.Dequeue()
		if !ok {
			return
		}
		if e.registry.Duplicate(cand.Fingerprint()) {
			continue
		}

		e.inflight.Add(1)
		if e.pace(ctx) {
			obs := e.dispatch(ctx, cand)
			e.observe(obs, cand)
		}
		e.inflight.Add(-1)
	}
}

// pace honors the evasion controller's delay. Returns false when the
// context ended before the delay elapsed.
func (e *Engine) pace(ctx context.Context) bool {
	delay := e.evasion.Authorize()
	if delay <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func (e *Engine) identityHeaders() map[string]string {
	id := e.evasion.CurrentIdentity()
	headers := make(map[string]string, len(id.Headers)+1)
	for k, v := range id.Headers {
		headers[k] = v
	}
	if id.UserAgent != "" {
		headers["User-Agent"] = id.UserAgent
	}
	return headers
}

// dispatch probes a single candidate, retrying transport failures, and
// feeds the outcome back into the evasion controller.
func (e *Engine) dispatch(ctx context.Context, cand Candidate) Observation {
	obs := Observation{
		Fingerprint: cand.Fingerprint(),
		URL:         cand.URL,
		Origin:      cand.Origin,
		Depth:       cand.Depth,
		Timestamp:   time.Now(),
	}

	var resp *Response
	var err error
	for attempt := 0; attempt <= e.cfg.RetryLimit; attempt++ {
		if attempt > 0 {
			e.stats.IncrementRetries()
			wait := evasion.ExponentialBackoff(attempt, e.cfg.Evasion.DelayFloor, e.cfg.Evasion.DelayCap)
			if wait > 0 {
				timer := time.NewTimer(wait)
				select {
				case <-ctx.Done():
					timer.Stop()
				case <-timer.C:
				}
			}
		}
		start := time.Now()
		resp, err = e.transport.Execute(ctx, "GET", cand.URL, e.identityHeaders())
		obs.Latency = time.Since(start)
		if err == nil || ctx.Err() != nil {
			break
		}
	}
	e.stats.IncrementProbes()

	if err != nil {
		obs.Failure = err.Error()
		e.stats.IncrementErrors()
		e.evasion.Report(evasion.Outcome{Latency: obs.Latency, TransportError: true})
		return obs
	}

	obs.StatusCode = resp.StatusCode
	obs.Headers = resp.Headers
	obs.Body = resp.Body
	obs.ContentType = resp.Headers.Get("Content-Type")
	obs.Signature = ContentSignature(resp.Body)
	obs.Length = len(resp.Body)

	signal, detail := evasion.DetectBlock(resp.StatusCode, resp.Headers, resp.Body)
	if signal != evasion.BlockNone {
		Logger.Debugf("block signal on %s: %s", cand.URL, detail)
	}
	e.evasion.Report(evasion.Outcome{
		StatusCode: resp.StatusCode,
		Latency:    obs.Latency,
		Signal:     signal,
	})
	return obs
}

// observe fans the observation out to sinks, updates the model and
// feeds derived candidates back into the store according to the current
// phase.
func (e *Engine) observe(obs Observation, cand Candidate) {
	e.learner.Observe(obs.URL, obs.Hit())
	for _, sink := range e.sinks {
		sink.Consume(obs)
	}

	if !obs.Hit() {
		return
	}
	e.stats.IncrementHits()
	e.recordHit(cand)

	phase := e.session.Phase()

	if cand.Depth < e.cfg.MaxCrawlDepth {
		if base, err := url.Parse(obs.URL); err == nil {
			for _, next := range e.extractor.Extract(obs.Body, base, cand.Depth) {
				e.submit(next)
			}
		}
	}

	if phase >= PhaseFuzzing {
		for _, variant := range e.fuzzer.Expand(cand) {
			e.submit(variant)
		}
	}

	if phase >= PhaseAnalyzing && e.ranker.ShouldGenerate() {
		e.generatePredictions()
	}
}

func (e *Engine) recordHit(cand Candidate) {
	path := cand.Path()
	e.mu.Lock()
	e.hits = append(e.hits, cand)
	e.hitPaths = append(e.hitPaths, path)
	for _, kw := range intel.PathKeywords(path) {
		e.keywords[kw] = struct{}{}
	}
	e.mu.Unlock()
}

func (e *Engine) snapshotHits() ([]Candidate, []string, []string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	hits := make([]Candidate, len(e.hits))
	copy(hits, e.hits)
	paths := make([]string, len(e.hitPaths))
	copy(paths, e.hitPaths)
	keywords := make([]string, 0, len(e.keywords))
	for kw := range e.keywords {
		keywords = append(keywords, kw)
	}
	return hits, paths, keywords
}

// supervise advances the phase machine. A phase ends when the store
// runs empty with no in-flight probes for the grace period, or when the
// phase budget expires; the probe budget short-circuits straight to
// Reporting.
func (e *Engine) supervise(ctx context.Context) {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	phaseStart := time.Now()
	var idleSince time.Time

	for {
		select {
		case <-ctx.Done():
			e.session.transition(PhaseAborted)
			e.store.Close()
			return
		case <-ticker.C:
		}
		if e.session.Cancelled() {
			e.session.transition(PhaseAborted)
			e.store.Close()
			return
		}

		phase := e.session.Phase()
		if phase.Terminal() {
			e.store.Close()
			return
		}
		if phase == PhaseReporting {
			// Workers drain what is left; once the store is empty the
			// run loop finishes the session.
			e.store.Close()
			if e.store.Len() == 0 && e.inflight.Load() == 0 {
				return
			}
			continue
		}

		if e.cfg.ProbeBudget > 0 && e.stats.GetProbesSent() >= e.cfg.ProbeBudget {
			Logger.Infof("session %s: probe budget exhausted", e.session.ID)
			e.advanceTo(PhaseReporting, &phaseStart, &idleSince)
			continue
		}

		idle := e.store.Len() == 0 && e.inflight.Load() == 0
		if !idle {
			idleSince = time.Time{}
		} else if idleSince.IsZero() {
			idleSince = time.Now()
		}

		expired := time.Since(phaseStart) >= e.cfg.PhaseBudget
		drained := !idleSince.IsZero() && time.Since(idleSince) >= e.cfg.PhaseGracePeriod
		if expired || drained {
			e.advanceTo(phase+1, &phaseStart, &idleSince)
		}
	}
}

func (e *Engine) advanceTo(next Phase, phaseStart *time.Time, idleSince *time.Time) {
	for e.session.Phase() < next {
		current := e.session.Phase()
		if !e.session.transition(current + 1) {
			return
		}
		e.enterPhase(current + 1)
	}
	*phaseStart = time.Now()
	*idleSince = time.Time{}
}

// enterPhase performs the one-shot work each phase begins with.
func (e *Engine) enterPhase(phase Phase) {
	switch phase {
	case PhaseFuzzing:
		hits, _, keywords := e.snapshotHits()
		Logger.Infof("session %s: fuzzing %d discovered resources", e.session.ID, len(hits))
		for _, hit := range hits {
			for _, variant := range e.fuzzer.Expand(hit) {
				e.submit(variant)
			}
		}
		for _, path := range KeywordPaths(keywords) {
			e.submitSeed(path, OriginFuzzed, 0.4)
		}
	case PhaseAnalyzing:
		e.generatePredictions()
	case PhaseReporting:
		e.store.Close()
	}
}

// generatePredictions turns high-weight learned shapes into concrete
// candidates rooted at directories that produced hits.
func (e *Engine) generatePredictions() {
	_, paths, _ := e.snapshotHits()
	preds := e.ranker.Generate(paths)
	if len(preds) == 0 {
		return
	}
	Logger.Infof("session %s: synthesized %d predicted paths", e.session.ID, len(preds))
	for _, pred := range preds {
		e.submitSeed(netutil.NormalizePathComponent(pred.Path), OriginPredicted, pred.Score)
	}
}

func (e *Engine) closeSinks() {
	for _, sink := range e.sinks {
		switch s := sink.(type) {
		case *ConsoleSink:
			if s.Output != nil {
				s.Output.Close()
			}
		case *ReportSink:
			if s.Output != nil {
				s.Output.Close()
			}
		}
	}
}

func (e *Engine) buildSummary() Summary {
	total, hits, byOrigin, byStatus := e.summary.Snapshot()
	diag := e.store.Diagnostics()
	return Summary{
		SessionID:    e.session.ID,
		Phase:        e.session.Phase().String(),
		Observations: total,
		Hits:         hits,
		ByOrigin:     byOrigin,
		ByStatus:     byStatus,
		Dropped:      diag.Dropped + diag.Evicted,
		Errors:       e.stats.GetErrors(),
		Retries:      e.stats.GetRetries(),
	}
}
