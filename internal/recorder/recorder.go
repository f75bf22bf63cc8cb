// Package recorder implements the inverse uses of the Clock/Scheduler/
// Judge trio: turning live input into a Chart document (Recorder), and
// measuring a player's input latency against a synthesised click track
// (Calibrator).
package recorder

import (
	"sort"

	"rhythmcore/internal/chart"
)

// holdThresholdSec is how long after a press a release must arrive for
// the recorded note to become a hold rather than a tap.
const holdThresholdSec = 0.200

// pressState tracks an unreleased press while recording.
type pressState struct {
	lane    int
	pressAt float64
}

// Recorder captures press/release events on the chart/game time axis
// and emits a Chart document once recording stops.
type Recorder struct {
	open  map[int]*pressState // lane -> open press
	notes []chart.Note
}

// New constructs an empty Recorder.
func New() *Recorder {
	return &Recorder{open: make(map[int]*pressState)}
}

// Press records a press in lane at t seconds on the chart axis.
func (r *Recorder) Press(lane int, t float64) {
	r.open[lane] = &pressState{lane: lane, pressAt: t}
}

// Release records a release in lane at t seconds. If longer than
// holdThresholdSec elapsed since the matching press, the note is
// recorded as a hold; otherwise as a tap.
func (r *Recorder) Release(lane int, t float64) {
	open, ok := r.open[lane]
	if !ok {
		return
	}
	delete(r.open, lane)
	r.emit(open, t)
}

func (r *Recorder) emit(open *pressState, releaseAt float64) {
	dur := releaseAt - open.pressAt
	if dur <= holdThresholdSec {
		dur = 0
	}
	if dur < 0 {
		dur = 0
	}
	r.notes = append(r.notes, chart.Note{TimeSec: open.pressAt, Lane: open.lane, DurSec: dur})
}

// Stop flushes any still-held keys at t, then quantises and dedups the
// recorded notes, and returns the resulting Chart document.
func (r *Recorder) Stop(t float64, name, file string, bpm int, duration float64, difficulty chart.Difficulty) *chart.Chart {
	lanes := make([]int, 0, len(r.open))
	for lane := range r.open {
		lanes = append(lanes, lane)
	}
	sort.Ints(lanes)
	for _, lane := range lanes {
		r.emit(r.open[lane], t)
	}
	r.open = make(map[int]*pressState)

	notes := quantize(r.notes)

	c := &chart.Chart{
		Name:       name,
		File:       file,
		BPM:        bpm,
		Duration:   duration,
		Difficulty: difficulty,
		Notes:      notes,
	}
	c.Sort()
	return c
}

// quantize rounds each note's time to the nearest multiple of
// medianInterval/4 and drops duplicate (round(t,2), lane) pairs.
func quantize(notes []chart.Note) []chart.Note {
	if len(notes) == 0 {
		return nil
	}
	sorted := append([]chart.Note(nil), notes...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].TimeSec < sorted[j].TimeSec })

	step := medianInterval(sorted) / 4
	if step <= 0 {
		step = 0.01
	}

	seen := make(map[[2]float64]bool)
	var out []chart.Note
	for _, n := range sorted {
		qt := round(n.TimeSec/step) * step
		key := [2]float64{round2(qt), float64(n.Lane)}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, chart.Note{TimeSec: qt, Lane: n.Lane, DurSec: n.DurSec})
	}
	return out
}

// medianInterval estimates the inter-note interval from the first up
// to 20 gaps that land in (0.1s, 2.0s).
func medianInterval(sorted []chart.Note) float64 {
	var gaps []float64
	for i := 1; i < len(sorted) && len(gaps) < 20; i++ {
		gap := sorted[i].TimeSec - sorted[i-1].TimeSec
		if gap > 0.1 && gap < 2.0 {
			gaps = append(gaps, gap)
		}
	}
	if len(gaps) == 0 {
		return 0.25
	}
	sort.Float64s(gaps)
	mid := len(gaps) / 2
	if len(gaps)%2 == 1 {
		return gaps[mid]
	}
	return (gaps[mid-1] + gaps[mid]) / 2
}

func round(v float64) float64 {
	if v < 0 {
		return -round(-v)
	}
	return float64(int(v + 0.5))
}

func round2(v float64) float64 {
	const scale = 100
	return float64(int(v*scale+0.5)) / scale
}
