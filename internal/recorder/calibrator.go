package recorder

import (
	"sort"

	"rhythmcore/internal/errs"
)

const (
	calibratorClickHz     = 880.0
	calibratorPeriodSec   = 0.75
	calibratorTicks       = 12
	calibratorLane        = 1
	minSamplesForResult   = 3
	minSamplesForTrimming = 5
)

// Calibrator holds the times of calibratorTicks clicks and collects the
// player's signed input offset in seconds for each tap, measured from
// the Y of the click note the caller matched the tap to. It plays no
// audio itself.
type Calibrator struct {
	expectedTicks []float64 // game_time of each synthesised click
	offsets       []float64 // signed offset per matched tap
}

// NewCalibrator schedules calibratorTicks click events starting at
// startGameTime, spaced calibratorPeriodSec apart.
func NewCalibrator(startGameTime float64) *Calibrator {
	ticks := make([]float64, calibratorTicks)
	for i := range ticks {
		ticks[i] = startGameTime + float64(i)*calibratorPeriodSec
	}
	return &Calibrator{expectedTicks: ticks}
}

// ExpectedTicks returns the scheduled click times, for driving a
// Scheduler with a synthetic single-lane chart.
func (c *Calibrator) ExpectedTicks() []float64 {
	return c.expectedTicks
}

// Lane is the lane the synthetic click chart's notes occupy, for
// callers matching taps back to the right LiveNote set.
func (c *Calibrator) Lane() int {
	return calibratorLane
}

// Tap records a tap at noteY (the visible click note's head Y when the
// tap landed) against the judgment line y_target, at fall speed v. The
// signed offset is (y_note - y_target) / v.
func (c *Calibrator) Tap(noteY, yTarget, v float64) {
	c.offsets = append(c.offsets, (noteY-yTarget)/v)
}

// Result averages the recorded offsets after trimming the extreme high
// and low if at least minSamplesForTrimming were recorded. Fewer than
// minSamplesForResult taps reports errs.ErrInsufficientSamples and the
// caller should leave audio_offset unchanged.
func (c *Calibrator) Result() (float64, error) {
	if len(c.offsets) < minSamplesForResult {
		return 0, errs.ErrInsufficientSamples
	}

	sorted := append([]float64(nil), c.offsets...)
	sort.Float64s(sorted)

	if len(sorted) >= minSamplesForTrimming {
		sorted = sorted[1 : len(sorted)-1]
	}

	var sum float64
	for _, v := range sorted {
		sum += v
	}
	return sum / float64(len(sorted)), nil
}
