package fixtures

import (
	"math/rand/v2"
	"sort"

	"rhythmcore/internal/chart"
)

// EventKind distinguishes a press from a release in a scripted stream.
type EventKind int

const (
	Press EventKind = iota
	Release
)

// InputEvent is one scripted press or release, offset from a known
// Chart note by a timing error, for feeding Judge/Recorder/Calibrator
// tests a reproducible "player" without a real input device.
type InputEvent struct {
	Kind EventKind
	Lane int
	At   float64 // chart/game time the event is delivered at
}

// ScriptInputs builds a press/release stream for every note in c,
// each offset from the note's true time by a timing error sampled
// from [-jitterSec, +jitterSec]. Holds emit a release at the note's
// end time plus its own independent jitter sample. The stream is
// sorted by delivery time, as a real input loop would observe it.
func ScriptInputs(c *chart.Chart, jitterSec float64, seed uint64) []InputEvent {
	rng := rand.New(rand.NewPCG(seed, seed^0x2545f4914f6cdd1d))

	events := make([]InputEvent, 0, len(c.Notes)*2)
	for _, n := range c.Notes {
		pressAt := n.TimeSec + jitter(rng, jitterSec)
		if pressAt < 0 {
			pressAt = 0
		}
		events = append(events, InputEvent{Kind: Press, Lane: n.Lane, At: pressAt})

		if n.IsHold() {
			releaseAt := n.EndSec() + jitter(rng, jitterSec)
			if releaseAt < pressAt {
				releaseAt = pressAt
			}
			events = append(events, InputEvent{Kind: Release, Lane: n.Lane, At: releaseAt})
		} else {
			events = append(events, InputEvent{Kind: Release, Lane: n.Lane, At: pressAt})
		}
	}

	sort.SliceStable(events, func(i, j int) bool { return events[i].At < events[j].At })
	return events
}

func jitter(rng *rand.Rand, jitterSec float64) float64 {
	if jitterSec <= 0 {
		return 0
	}
	return (rng.Float64()*2 - 1) * jitterSec
}
