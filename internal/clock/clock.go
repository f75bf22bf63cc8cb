// Package clock implements the Clock/Sync Service: a single game_time
// axis that advances at wall-clock rate and blends toward the audio
// playback position once audio starts. See spec.md section 4.C.
package clock

import (
	"log/slog"
	"sync"
	"time"
)

const (
	snapThresholdSec  = 0.100
	blendThresholdSec = 0.010
	blendFactor       = 0.1

	// timingDegradedSec is how long |drift| must exceed the snap
	// threshold before TimingDegraded is logged as advisory.
	timingDegradedSec = 1.0
)

// audioAnchor records the instant audio started producing samples.
type audioAnchor struct {
	g0     float64 // game_time at the instant audio began
	offset float64 // calibrated audio_offset, signed seconds
	set    bool
}

// Clock owns game_time and the audio anchor. The intended caller is
// the single-threaded hot path described in spec.md section 5; the
// mutex only guards against incidental cross-goroutine reads (e.g. a
// UI poll) racing with Tick.
type Clock struct {
	mu sync.Mutex

	logger *slog.Logger
	now    func() time.Time

	lastTick    time.Time
	gameTime    float64
	playStarted bool
	stopped     bool

	anchor audioAnchor

	latencyCompSec  float64
	visualOffsetSec float64

	driftOverSince time.Time
	driftOver      bool
}

// New constructs a Clock. nowFn defaults to time.Now; tests inject a
// fake clock to drive game_time deterministically.
func New(logger *slog.Logger, nowFn func() time.Time, latencyCompSec, visualOffsetSec float64) *Clock {
	if logger == nil {
		logger = slog.Default()
	}
	if nowFn == nil {
		nowFn = time.Now
	}
	return &Clock{
		logger:          logger,
		now:             nowFn,
		latencyCompSec:  latencyCompSec,
		visualOffsetSec: visualOffsetSec,
	}
}

// Start marks play_started: game_time begins at zero and advances at
// wall-clock rate until an audio anchor is set. Calling Start again
// after Stop begins a fresh session (the runtime reuses one Clock
// across play, recording, and calibration sessions).
func (c *Clock) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.playStarted = true
	c.stopped = false
	c.lastTick = c.now()
	c.gameTime = 0
	c.anchor = audioAnchor{}
	c.driftOver = false
}

// VisualOffsetSec returns the configured visual offset, used by the
// Scheduler to shift spawn Y without touching the audio anchor.
func (c *Clock) VisualOffsetSec() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.visualOffsetSec
}

// LatencyCompSec returns the configured input latency compensation.
func (c *Clock) LatencyCompSec() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.latencyCompSec
}

// AnchorAudio records that audio began producing samples at the
// current game_time, with the given calibrated offset.
func (c *Clock) AnchorAudio(audioOffsetSec float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.anchor = audioAnchor{g0: c.gameTime, offset: audioOffsetSec, set: true}
}

// Tick advances game_time by the elapsed wall-clock time since the
// last tick, then corrects it toward the audio position if an anchor
// is set. audioPos is the current playback position in seconds, or a
// negative value if audio has not started or its position is
// unavailable (spec.md section 7: missing audio position falls back
// to pure wall-clock game_time).
func (c *Clock) Tick(audioPos float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped || !c.playStarted {
		return
	}

	now := c.now()
	dt := now.Sub(c.lastTick).Seconds()
	c.lastTick = now
	c.gameTime += dt

	if !c.anchor.set || audioPos < 0 {
		return
	}

	expected := c.anchor.g0 + audioPos + c.anchor.offset
	drift := expected - c.gameTime

	switch {
	case abs(drift) > snapThresholdSec:
		c.gameTime = expected
		c.noteDriftLocked(true)
	case abs(drift) > blendThresholdSec:
		c.gameTime += blendFactor * drift
		c.noteDriftLocked(false)
	default:
		c.noteDriftLocked(false)
	}
}

// noteDriftLocked tracks how long |drift| has stayed above the snap
// threshold and logs TimingDegraded as an advisory warning, never an
// abort, once it has exceeded timingDegradedSec.
func (c *Clock) noteDriftLocked(overThreshold bool) {
	if !overThreshold {
		c.driftOver = false
		return
	}
	if !c.driftOver {
		c.driftOver = true
		c.driftOverSince = c.now()
		return
	}
	if c.now().Sub(c.driftOverSince).Seconds() > timingDegradedSec {
		c.logger.Warn("timing degraded: drift exceeded snap threshold for over 1s", "component", "clock.sync")
		c.driftOverSince = c.now()
	}
}

// GameTime returns the current game_time in seconds.
func (c *Clock) GameTime() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gameTime
}

// Stop freezes game_time and drops the audio anchor. The Clock holds
// no audio device; silencing audio is done by Runtime.Stop.
func (c *Clock) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopped = true
	c.anchor = audioAnchor{}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
