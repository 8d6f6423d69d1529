package evasion

import (
	"math/rand"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Mode is the controller's blocking-avoidance state.
type Mode int32

const (
	ModeNormal Mode = iota
	ModeSuspected
	ModeBackoff
	ModeCooldown
)

func (m Mode) String() string {
	switch m {
	case ModeNormal:
		return "normal"
	case ModeSuspected:
		return "suspected"
	case ModeBackoff:
		return "backoff"
	case ModeCooldown:
		return "cooldown"
	default:
		return "unknown"
	}
}

// Outcome is the per-probe result fed back into the controller.
type Outcome struct {
	StatusCode     int
	Latency        time.Duration
	TransportError bool
	Signal         BlockSignal
}

func (o Outcome) success() bool {
	return !o.TransportError && o.Signal == BlockNone &&
		o.StatusCode >= 200 && o.StatusCode < 400
}

// DefaultRequestsPerSecond paces Normal-mode dispatch when no rate is
// configured.
const DefaultRequestsPerSecond = 10

// Config carries the controller thresholds. Zero values take the
// documented defaults; everything is deliberately tunable since the
// right numbers are target-dependent.
type Config struct {
	SuspectAfter      int           // consecutive failures before Suspected
	BackoffAfter      int           // failures within FailureWindow before Backoff
	FailureWindow     time.Duration // sliding window for BackoffAfter
	DelayFloor        time.Duration
	DelayCap          time.Duration
	CooldownAfter     int           // capped failures before Cooldown
	CooldownPause     time.Duration
	RequestsPerSecond float64       // Normal-mode pacing
	JitterPercent     float64
}

func (c *Config) applyDefaults() {
	if c.SuspectAfter <= 0 {
		c.SuspectAfter = 2
	}
	if c.BackoffAfter <= 0 {
		c.BackoffAfter = 5
	}
	if c.FailureWindow <= 0 {
		c.FailureWindow = 30 * time.Second
	}
	if c.DelayFloor <= 0 {
		c.DelayFloor = time.Second
	}
	if c.DelayCap <= 0 {
		c.DelayCap = 60 * time.Second
	}
	if c.DelayCap < c.DelayFloor {
		c.DelayCap = c.DelayFloor
	}
	if c.CooldownAfter <= 0 {
		c.CooldownAfter = 3
	}
	if c.CooldownPause <= 0 {
		c.CooldownPause = 90 * time.Second
	}
	if c.RequestsPerSecond <= 0 {
		c.RequestsPerSecond = DefaultRequestsPerSecond
	}
}

// Controller is the session-global gate in front of every probe. All
// Authorize/Report calls are linearized; the state machine itself never
// sleeps and takes its time from an injectable clock so tests can
// script it.
type Controller struct {
	cfg        Config
	identities IdentityProvider
	now        func() time.Time

	mu             sync.Mutex
	mode           Mode
	consecFails    int
	cappedFails    int
	delay          time.Duration
	failTimes      []time.Time
	current        Identity
	rotations      int
	cooldownServed bool
	limiter        *rate.Limiter
	rng            *rand.Rand
}

func NewController(cfg Config, identities IdentityProvider, now func() time.Time) *Controller {
	cfg.applyDefaults()
	if identities == nil {
		identities = NewIdentityPool(nil)
	}
	if now == nil {
		now = time.Now
	}
	c := &Controller{
		cfg:        cfg,
		identities: identities,
		now:        now,
		delay:      cfg.DelayFloor,
		limiter:    rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
		rng:        rand.New(rand.NewSource(now().UnixNano())),
	}
	c.current = identities.Next()
	return c
}

// Authorize returns the delay the caller must honor before dispatching.
// It never sleeps itself.
func (c *Controller) Authorize() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.mode {
	case ModeNormal:
		return c.limiter.ReserveN(c.now(), 1).DelayFrom(c.now())
	case ModeSuspected:
		return Jitter(c.rng, c.cfg.DelayFloor, c.cfg.JitterPercent)
	case ModeBackoff:
		return Jitter(c.rng, c.delay, c.cfg.JitterPercent)
	case ModeCooldown:
		if !c.cooldownServed {
			c.cooldownServed = true
			return c.cfg.CooldownPause
		}
		c.delay = c.cfg.DelayFloor
		return c.cfg.DelayFloor
	default:
		return c.cfg.DelayFloor
	}
}

// Report feeds a probe outcome into the state machine.
func (c *Controller) Report(o Outcome) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if o.success() {
		// Only an explicit success resets the escalation. Coming out of
		// Cooldown this is the one path back to Normal.
		c.mode = ModeNormal
		c.consecFails = 0
		c.cappedFails = 0
		c.delay = c.cfg.DelayFloor
		c.failTimes = c.failTimes[:0]
		return
	}

	now := c.now()
	c.consecFails++
	c.failTimes = append(c.failTimes, now)
	c.pruneWindow(now)

	// Rate-limit class answers skip the counters entirely.
	if o.Signal == BlockRateLimited || o.Signal == BlockWAF {
		c.enterBackoff()
		return
	}

	switch c.mode {
	case ModeNormal:
		if c.consecFails >= c.cfg.SuspectAfter {
			c.mode = ModeSuspected
		}
	case ModeSuspected:
		if len(c.failTimes) >= c.cfg.BackoffAfter {
			c.enterBackoff()
		}
	case ModeBackoff:
		c.escalate()
	case ModeCooldown:
		// Failures reported for probes that were already in flight when
		// the pause began stay parked. Once the pause has been served,
		// a failure means the target is still blocking and escalation
		// restarts from the floor with a fresh identity.
		if c.cooldownServed {
			c.cappedFails = 0
			c.delay = c.cfg.DelayFloor
			c.mode = ModeBackoff
			c.rotate()
		}
	}
}

func (c *Controller) pruneWindow(now time.Time) {
	cutoff := now.Add(-c.cfg.FailureWindow)
	kept := c.failTimes[:0]
	for _, t := range c.failTimes {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	c.failTimes = kept
}

func (c *Controller) enterBackoff() {
	if c.mode != ModeBackoff {
		c.mode = ModeBackoff
		if c.delay < c.cfg.DelayFloor {
			c.delay = c.cfg.DelayFloor
		}
		c.rotate()
		return
	}
	c.escalate()
}

func (c *Controller) escalate() {
	if c.delay >= c.cfg.DelayCap {
		c.delay = c.cfg.DelayCap
		c.cappedFails++
		if c.cappedFails >= c.cfg.CooldownAfter {
			c.mode = ModeCooldown
			c.cooldownServed = false
		}
		return
	}
	c.delay *= 2
	if c.delay > c.cfg.DelayCap {
		c.delay = c.cfg.DelayCap
	}
}

func (c *Controller) rotate() {
	c.current = c.identities.Next()
	c.rotations++
}

// CurrentIdentity returns the persona every outgoing probe should wear.
func (c *Controller) CurrentIdentity() Identity {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

func (c *Controller) CurrentMode() Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// Rotations reports how many identity rotations happened; diagnostic.
func (c *Controller) Rotations() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rotations
}
