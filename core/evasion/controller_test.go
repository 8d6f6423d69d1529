package evasion

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// fakeClock advances only when told to, so the state machine is fully
// scripted.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestController(cfg Config) (*Controller, *fakeClock) {
	clock := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	return NewController(cfg, NewIdentityPool(nil), clock.now), clock
}

func failure() Outcome { return Outcome{StatusCode: 404} }

func success() Outcome { return Outcome{StatusCode: 200} }

func TestControllerEscalatesThroughModes(t *testing.T) {
	ctrl, clock := newTestController(Config{
		SuspectAfter:  2,
		BackoffAfter:  5,
		FailureWindow: 30 * time.Second,
		DelayFloor:    time.Second,
		DelayCap:      60 * time.Second,
		JitterPercent: -1, // disable jitter so delays are exact
	})

	assert.Equal(t, ModeNormal, ctrl.CurrentMode())

	for i := 0; i < 2; i++ {
		ctrl.Report(failure())
		clock.advance(time.Second)
	}
	assert.Equal(t, ModeSuspected, ctrl.CurrentMode())

	for i := 0; i < 3; i++ {
		ctrl.Report(failure())
		clock.advance(time.Second)
	}
	assert.Equal(t, ModeBackoff, ctrl.CurrentMode())

	// Delay doubles per further failure and never decreases.
	prev := ctrl.Authorize()
	for i := 0; i < 8; i++ {
		ctrl.Report(failure())
		clock.advance(time.Second)
		delay := ctrl.Authorize()
		assert.GreaterOrEqual(t, delay, prev, "delay shrank on failure %d", i)
		assert.LessOrEqual(t, delay, 60*time.Second)
		prev = delay
	}
	assert.Equal(t, 60*time.Second, prev)
}

func TestControllerNormalModePacesAtDefaultRate(t *testing.T) {
	ctrl, _ := newTestController(Config{JitterPercent: -1})

	// First dispatch goes straight through; the next one waits one
	// token interval at the default rate.
	assert.Equal(t, time.Duration(0), ctrl.Authorize())
	assert.InDelta(t, 1.0/DefaultRequestsPerSecond, ctrl.Authorize().Seconds(), 0.001)
}

func TestControllerRateLimitTriggersImmediateBackoff(t *testing.T) {
	ctrl, _ := newTestController(Config{})

	assert.Equal(t, ModeNormal, ctrl.CurrentMode())
	ctrl.Report(Outcome{StatusCode: 429, Signal: BlockRateLimited})
	assert.Equal(t, ModeBackoff, ctrl.CurrentMode())
	assert.Equal(t, 1, ctrl.Rotations())
}

func TestControllerRotatesIdentityOnBackoffEntryOnly(t *testing.T) {
	ctrl, clock := newTestController(Config{
		SuspectAfter:  2,
		BackoffAfter:  3,
		DelayFloor:    time.Second,
		DelayCap:      8 * time.Second,
		JitterPercent: -1,
	})

	before := ctrl.CurrentIdentity()
	for i := 0; i < 3; i++ {
		ctrl.Report(failure())
		clock.advance(time.Second)
	}
	assert.Equal(t, ModeBackoff, ctrl.CurrentMode())
	assert.Equal(t, 1, ctrl.Rotations())
	assert.NotEqual(t, before.UserAgent, ctrl.CurrentIdentity().UserAgent)

	// Staying inside Backoff escalates but does not rotate again.
	ctrl.Report(failure())
	ctrl.Report(failure())
	assert.Equal(t, 1, ctrl.Rotations())
}

func TestControllerCooldownPauseServedExactlyOnce(t *testing.T) {
	ctrl, clock := newTestController(Config{
		SuspectAfter:  1,
		BackoffAfter:  1,
		DelayFloor:    time.Second,
		DelayCap:      2 * time.Second,
		CooldownAfter: 2,
		CooldownPause: 90 * time.Second,
		JitterPercent: -1,
	})

	// Drive straight to Backoff, then sustain the cap until Cooldown.
	for i := 0; i < 10 && ctrl.CurrentMode() != ModeCooldown; i++ {
		ctrl.Report(failure())
		clock.advance(time.Second)
	}
	assert.Equal(t, ModeCooldown, ctrl.CurrentMode())

	assert.Equal(t, 90*time.Second, ctrl.Authorize())
	// Second call resumes at the floor, not the pause.
	assert.Equal(t, time.Second, ctrl.Authorize())
	assert.Equal(t, ModeCooldown, ctrl.CurrentMode())
}

func TestControllerFailureAfterCooldownReescalates(t *testing.T) {
	ctrl, clock := newTestController(Config{
		SuspectAfter:  1,
		BackoffAfter:  1,
		DelayFloor:    time.Second,
		DelayCap:      2 * time.Second,
		CooldownAfter: 2,
		CooldownPause: 90 * time.Second,
		JitterPercent: -1,
	})

	for i := 0; i < 10 && ctrl.CurrentMode() != ModeCooldown; i++ {
		ctrl.Report(failure())
		clock.advance(time.Second)
	}
	assert.Equal(t, ModeCooldown, ctrl.CurrentMode())
	assert.Equal(t, 1, ctrl.Rotations())

	// Serve the pause and the floor-delay retry.
	assert.Equal(t, 90*time.Second, ctrl.Authorize())
	assert.Equal(t, time.Second, ctrl.Authorize())

	// The retry failing means the target is still blocking: escalation
	// restarts from the floor with a fresh identity instead of probing
	// at the floor forever.
	ctrl.Report(failure())
	assert.Equal(t, ModeBackoff, ctrl.CurrentMode())
	assert.Equal(t, 2, ctrl.Rotations())
	assert.Equal(t, time.Second, ctrl.Authorize())

	ctrl.Report(failure())
	assert.Equal(t, 2*time.Second, ctrl.Authorize())

	// And the full cycle can reach Cooldown again.
	for i := 0; i < 10 && ctrl.CurrentMode() != ModeCooldown; i++ {
		ctrl.Report(failure())
		clock.advance(time.Second)
	}
	assert.Equal(t, ModeCooldown, ctrl.CurrentMode())
	assert.Equal(t, 90*time.Second, ctrl.Authorize())
}

func TestControllerSuccessResetsToNormalAndFloor(t *testing.T) {
	ctrl, clock := newTestController(Config{
		SuspectAfter:  1,
		BackoffAfter:  1,
		DelayFloor:    time.Second,
		DelayCap:      16 * time.Second,
		JitterPercent: -1,
	})

	for i := 0; i < 6; i++ {
		ctrl.Report(failure())
		clock.advance(time.Second)
	}
	assert.Equal(t, ModeBackoff, ctrl.CurrentMode())
	assert.Greater(t, ctrl.Authorize(), time.Second)

	ctrl.Report(success())
	assert.Equal(t, ModeNormal, ctrl.CurrentMode())

	// Escalating again starts from the floor.
	ctrl.Report(failure())
	ctrl.Report(failure())
	assert.Equal(t, ModeBackoff, ctrl.CurrentMode())
	assert.Equal(t, time.Second, ctrl.Authorize())
}

func TestControllerTransportErrorCountsAsFailure(t *testing.T) {
	ctrl, clock := newTestController(Config{SuspectAfter: 2, JitterPercent: -1})

	ctrl.Report(Outcome{TransportError: true})
	clock.advance(time.Second)
	ctrl.Report(Outcome{TransportError: true})
	assert.Equal(t, ModeSuspected, ctrl.CurrentMode())
}

func TestJitterIsAdditiveOnly(t *testing.T) {
	ctrl, _ := newTestController(Config{JitterPercent: 25})
	base := 4 * time.Second
	for i := 0; i < 50; i++ {
		d := Jitter(ctrl.rng, base, 25)
		assert.GreaterOrEqual(t, d, base)
		assert.LessOrEqual(t, d, base+time.Second)
	}
}
