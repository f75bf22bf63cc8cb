// Package builder implements the Chart Builder: it filters Analyser
// onsets by difficulty, assigns lanes from spectral centroid
// percentiles, and produces a Chart ready for caching.
package builder

import (
	"math/rand/v2"
	"path/filepath"
	"sort"

	"rhythmcore/internal/analyzer"
	"rhythmcore/internal/chart"
)

// Build turns Analyser Features into a Chart for the given difficulty.
// seed makes Expert mode's simultaneous-note coin flips reproducible,
// per the design note that random choice must come from a seedable
// generator.
func Build(features *analyzer.Features, audioPath, songName string, difficulty chart.Difficulty, seed uint64) *chart.Chart {
	c33, c66 := percentiles(features.SpectralCentroid, 33, 66)
	meanStrength := mean(features.OnsetEnvelope)

	accepted := sweep(features.OnsetTimes, features.OnsetStrengths, meanStrength, 0.5, 0.15)
	notes := assignLanes(accepted, features, c33, c66)
	notes = applyDifficulty(notes, difficulty, seed)

	sort.Slice(notes, func(i, j int) bool {
		if notes[i].TimeSec != notes[j].TimeSec {
			return notes[i].TimeSec < notes[j].TimeSec
		}
		return notes[i].Lane < notes[j].Lane
	})

	name := songName
	if name == "" {
		name = trimExt(filepath.Base(audioPath))
	}

	bpm := int(features.TempoBPM)
	if bpm <= 0 {
		bpm = 120
	}

	return &chart.Chart{
		Name:       name,
		File:       filepath.Base(audioPath),
		BPM:        bpm,
		Duration:   features.DurationSec,
		Difficulty: difficulty,
		Notes:      notes,
	}
}

// sweep walks onsets in time order, rejecting ones below the strength
// threshold or too close to the previously accepted onset.
func sweep(times, strengths []float64, meanStrength, onsetThreshold, minNoteGap float64) []float64 {
	var accepted []float64
	lastT := -1.0
	for i, t := range times {
		if meanStrength > 0 && i < len(strengths) && strengths[i] < onsetThreshold*meanStrength {
			continue
		}
		if lastT >= 0 && t-lastT < minNoteGap {
			continue
		}
		accepted = append(accepted, t)
		lastT = t
	}
	return accepted
}

// assignLanes reads the spectral centroid at the frame containing each
// accepted onset and buckets it into one of three lanes by percentile.
func assignLanes(times []float64, features *analyzer.Features, c33, c66 float64) []chart.Note {
	notes := make([]chart.Note, 0, len(times))
	for _, t := range times {
		centroid := centroidAt(features.SpectralCentroid, features.FrameHopSec, t)
		lane := 2
		switch {
		case centroid < c33:
			lane = 0
		case centroid < c66:
			lane = 1
		}
		notes = append(notes, chart.Note{TimeSec: t, Lane: lane})
	}
	return notes
}

func centroidAt(centroid []float64, hopSec, t float64) float64 {
	if len(centroid) == 0 || hopSec <= 0 {
		return 0
	}
	idx := int(t / hopSec)
	if idx < 0 {
		idx = 0
	}
	if idx >= len(centroid) {
		idx = len(centroid) - 1
	}
	return centroid[idx]
}

// applyDifficulty thins or duplicates notes per difficulty tier.
func applyDifficulty(notes []chart.Note, difficulty chart.Difficulty, seed uint64) []chart.Note {
	times := make([]float64, len(notes))
	for i, n := range notes {
		times[i] = n.TimeSec
	}

	switch difficulty {
	case chart.Easy:
		return refilter(notes, 0.50)
	case chart.Medium:
		return refilter(notes, 0.25)
	case chart.Hard, chart.Custom:
		return notes
	case chart.Expert:
		return expand(notes, seed)
	default:
		return notes
	}
}

func refilter(notes []chart.Note, minGap float64) []chart.Note {
	var kept []chart.Note
	lastT := -1.0
	for _, n := range notes {
		if lastT < 0 || n.TimeSec-lastT >= minGap {
			kept = append(kept, n)
			lastT = n.TimeSec
		}
	}
	return kept
}

// expand adds, with 25% probability per accepted note, a simultaneous
// second note in a different lane chosen uniformly from the other two.
func expand(notes []chart.Note, seed uint64) []chart.Note {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	out := make([]chart.Note, 0, len(notes))
	out = append(out, notes...)
	for _, n := range notes {
		if rng.Float64() >= 0.25 {
			continue
		}
		otherLanes := make([]int, 0, 2)
		for lane := 0; lane < 3; lane++ {
			if lane != n.Lane {
				otherLanes = append(otherLanes, lane)
			}
		}
		pick := otherLanes[rng.IntN(len(otherLanes))]
		out = append(out, chart.Note{TimeSec: n.TimeSec, Lane: pick})
	}
	return out
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// percentiles returns the pLow and pHigh percentiles (0-100) of xs.
func percentiles(xs []float64, pLow, pHigh float64) (float64, float64) {
	if len(xs) == 0 {
		return 0, 0
	}
	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)
	return percentileOf(sorted, pLow), percentileOf(sorted, pHigh)
}

func percentileOf(sorted []float64, p float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	rank := p / 100 * float64(len(sorted)-1)
	lo := int(rank)
	hi := lo + 1
	if hi >= len(sorted) {
		return sorted[len(sorted)-1]
	}
	frac := rank - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

func trimExt(name string) string {
	ext := filepath.Ext(name)
	return name[:len(name)-len(ext)]
}
