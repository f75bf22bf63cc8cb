package exporter

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"rhythmcore/internal/chart"
)

const (
	smColumnCount  = 4 // lanes 0-2 used, column 3 always empty
	smRowsPerBeat  = 48
	smBeatsPerBar  = 4
	smRowsPerBar   = smRowsPerBeat * smBeatsPerBar
	smTapChar      = '1'
	smHoldHeadChar = '2'
	smHoldTailChar = '3'
)

type smEvent struct {
	row int
	col int
	ch  byte
}

// ToStepMania exports a Chart as a StepMania .sm simfile with a single
// difficulty chart using 3 of 4 columns, quantized to 48th-beat rows.
func ToStepMania(c *chart.Chart, outputDir, baseName string) (string, error) {
	bpm := c.BPM
	if bpm <= 0 {
		bpm = 120
	}

	events := make([]smEvent, 0, len(c.Notes)*2)
	maxRow := 0
	for _, n := range c.Notes {
		row := secToRow(n.TimeSec, float64(bpm))
		if row > maxRow {
			maxRow = row
		}
		if n.IsHold() {
			events = append(events, smEvent{row: row, col: n.Lane, ch: smHoldHeadChar})
			endRow := secToRow(n.EndSec(), float64(bpm))
			if endRow > maxRow {
				maxRow = endRow
			}
			events = append(events, smEvent{row: endRow, col: n.Lane, ch: smHoldTailChar})
		} else {
			events = append(events, smEvent{row: row, col: n.Lane, ch: smTapChar})
		}
	}

	barCount := maxRow/smRowsPerBar + 1
	bars := make([][]byte, barCount)
	for i := range bars {
		bar := make([]byte, smRowsPerBar*smColumnCount)
		for j := range bar {
			bar[j] = '0'
		}
		bars[i] = bar
	}
	for _, e := range events {
		bar := e.row / smRowsPerBar
		rowInBar := e.row % smRowsPerBar
		bars[bar][rowInBar*smColumnCount+e.col] = e.ch
	}

	var b strings.Builder
	fmt.Fprintf(&b, "#TITLE:%s;\n", c.Name)
	fmt.Fprintf(&b, "#ARTIST:;\n")
	fmt.Fprintf(&b, "#MUSIC:%s;\n", filepath.Base(c.File))
	b.WriteString("#OFFSET:0.000000;\n")
	fmt.Fprintf(&b, "#BPMS:0.000=%.3f;\n", float64(bpm))
	fmt.Fprintf(&b, "#SAMPLELENGTH:%.6f;\n\n", c.Duration)

	b.WriteString("#NOTES:\n")
	b.WriteString("     dance-single:\n")
	b.WriteString("     :\n")
	fmt.Fprintf(&b, "     %s:\n", capitalize(string(c.Difficulty)))
	b.WriteString("     5:\n")
	b.WriteString("     0,0,0,0,0:\n")
	for i, bar := range bars {
		for row := 0; row < smRowsPerBar; row++ {
			for col := 0; col < smColumnCount; col++ {
				b.WriteByte(bar[row*smColumnCount+col])
			}
			b.WriteByte('\n')
		}
		if i < len(bars)-1 {
			b.WriteString(",\n")
		}
	}
	b.WriteString(";\n")

	outputPath := filepath.Join(outputDir, sanitizeBaseName(baseName)+".sm")
	if err := os.WriteFile(outputPath, []byte(b.String()), 0o644); err != nil {
		return "", fmt.Errorf("write stepmania simfile: %w", err)
	}
	return outputPath, nil
}

func secToRow(t, bpm float64) int {
	beat := t * bpm / 60.0
	return int(beat*float64(smRowsPerBeat) + 0.5)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
