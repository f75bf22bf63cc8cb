// Package chart defines the Chart/ChartNote document produced by the
// audio analyser + builder pipeline and persisted as a sibling JSON
// file next to the source audio.
package chart

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Difficulty selects how aggressively the Builder filters onsets.
type Difficulty string

const (
	Easy   Difficulty = "easy"
	Medium Difficulty = "medium"
	Hard   Difficulty = "hard"
	Expert Difficulty = "expert"
	Custom Difficulty = "custom"
)

// ParseDifficulty validates a difficulty string from the CLI or a
// persisted chart file.
func ParseDifficulty(s string) (Difficulty, error) {
	switch Difficulty(s) {
	case Easy, Medium, Hard, Expert, Custom:
		return Difficulty(s), nil
	default:
		return "", fmt.Errorf("unknown difficulty %q", s)
	}
}

// Note is a single playable event: dur_sec == 0 is a tap, dur_sec > 0
// is a hold whose tail ends at t_sec+dur_sec.
type Note struct {
	TimeSec float64
	Lane    int
	DurSec  float64
}

// IsHold reports whether the note is a hold note.
func (n Note) IsHold() bool { return n.DurSec > 0 }

// EndSec returns the time the note's tail passes the judgment line.
func (n Note) EndSec() float64 { return n.TimeSec + n.DurSec }

// Chart is the immutable document keyed by (audio path, difficulty).
// Notes are sorted by (t, lane) ascending; two notes may share a time
// only if their lanes differ.
type Chart struct {
	Name       string
	File       string
	BPM        int
	Duration   float64
	Difficulty Difficulty
	Notes      []Note
}

// Validate checks the chart's sort/uniqueness invariant.
func (c *Chart) Validate() error {
	for i := 1; i < len(c.Notes); i++ {
		prev, cur := c.Notes[i-1], c.Notes[i]
		if cur.TimeSec < prev.TimeSec {
			return fmt.Errorf("chart notes out of order at index %d", i)
		}
		if cur.TimeSec == prev.TimeSec && cur.Lane == prev.Lane {
			return fmt.Errorf("duplicate (t, lane) at index %d", i)
		}
		if cur.TimeSec == prev.TimeSec && cur.Lane < prev.Lane {
			return fmt.Errorf("chart notes out of lane order at index %d", i)
		}
	}
	for i, n := range c.Notes {
		if n.TimeSec < 0 || n.DurSec < 0 {
			return fmt.Errorf("note %d has negative time or duration", i)
		}
		if n.Lane < 0 || n.Lane > 2 {
			return fmt.Errorf("note %d has out-of-range lane %d", i, n.Lane)
		}
	}
	return nil
}

// Sort orders notes by (t, lane) ascending, the Chart invariant.
func (c *Chart) Sort() {
	sort.Slice(c.Notes, func(i, j int) bool {
		if c.Notes[i].TimeSec != c.Notes[j].TimeSec {
			return c.Notes[i].TimeSec < c.Notes[j].TimeSec
		}
		return c.Notes[i].Lane < c.Notes[j].Lane
	})
}

// noteJSON is the wire shape: [t, lane] for taps, [t, lane, dur] for
// holds.
type noteJSON []float64

type documentJSON struct {
	Name       string     `json:"name"`
	File       string     `json:"file"`
	BPM        int        `json:"bpm"`
	Duration   float64    `json:"duration"`
	Difficulty Difficulty `json:"difficulty"`
	Notes      []noteJSON `json:"notes"`
}

// MarshalJSON implements the chart document wire format.
func (c *Chart) MarshalJSON() ([]byte, error) {
	doc := documentJSON{
		Name:       c.Name,
		File:       c.File,
		BPM:        c.BPM,
		Duration:   round2(c.Duration),
		Difficulty: c.Difficulty,
		Notes:      make([]noteJSON, len(c.Notes)),
	}
	for i, n := range c.Notes {
		if n.IsHold() {
			doc.Notes[i] = noteJSON{n.TimeSec, float64(n.Lane), n.DurSec}
		} else {
			doc.Notes[i] = noteJSON{n.TimeSec, float64(n.Lane)}
		}
	}
	return json.MarshalIndent(doc, "", "  ")
}

// UnmarshalJSON parses the chart document wire format.
func (c *Chart) UnmarshalJSON(data []byte) error {
	var doc documentJSON
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	notes := make([]Note, len(doc.Notes))
	for i, raw := range doc.Notes {
		if len(raw) < 2 {
			return fmt.Errorf("note %d has too few fields", i)
		}
		n := Note{TimeSec: raw[0], Lane: int(raw[1])}
		if len(raw) >= 3 {
			n.DurSec = raw[2]
		}
		notes[i] = n
	}
	c.Name = doc.Name
	c.File = doc.File
	c.BPM = doc.BPM
	c.Duration = doc.Duration
	c.Difficulty = doc.Difficulty
	c.Notes = notes
	return nil
}

func round2(v float64) float64 {
	const scale = 100
	return float64(int(v*scale+0.5)) / scale
}
