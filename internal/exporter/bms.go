package exporter

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"rhythmcore/internal/chart"
)

const (
	bmsRowsPerBeat   = 48
	bmsBeatsPerMeasure = 4
	bmsRowsPerMeasure = bmsRowsPerBeat * bmsBeatsPerMeasure
)

// bmsKeyChannels maps lane 0-2 to the BMS visible-note channels for a
// 5/7-key layout's first three keys (11, 12, 13); hold notes use the
// matching long-note channel (channel+40).
var bmsKeyChannels = [3]int{11, 12, 13}

type bmsEvent struct {
	row     int
	channel int
}

// ToBMS exports a Chart as a three-key BMS file (.bms), one WAV slot
// ("01") triggered for every note, using long-note channels for holds.
func ToBMS(c *chart.Chart, outputDir, baseName string) (string, error) {
	bpm := c.BPM
	if bpm <= 0 {
		bpm = 120
	}

	events := make([]bmsEvent, 0, len(c.Notes)*2)
	maxRow := 0
	for _, n := range c.Notes {
		ch := bmsKeyChannels[n.Lane]
		row := secToRow(n.TimeSec, float64(bpm))
		if row > maxRow {
			maxRow = row
		}
		if n.IsHold() {
			lnCh := ch + 40
			events = append(events, bmsEvent{row: row, channel: lnCh})
			endRow := secToRow(n.EndSec(), float64(bpm))
			if endRow > maxRow {
				maxRow = endRow
			}
			events = append(events, bmsEvent{row: endRow, channel: lnCh})
		} else {
			events = append(events, bmsEvent{row: row, channel: ch})
		}
	}

	measureCount := maxRow/bmsRowsPerMeasure + 1
	type measureChannel map[int][]byte // channel -> row slots, each 2 bytes
	measures := make([]map[int][]byte, measureCount)
	for i := range measures {
		measures[i] = make(map[int][]byte)
	}
	for _, e := range events {
		m := e.row / bmsRowsPerMeasure
		rowInMeasure := e.row % bmsRowsPerMeasure
		slots, ok := measures[m][e.channel]
		if !ok {
			slots = make([]byte, bmsRowsPerMeasure*2)
			for i := range slots {
				slots[i] = '0'
			}
		}
		copy(slots[rowInMeasure*2:rowInMeasure*2+2], []byte("01"))
		measures[m][e.channel] = slots
	}

	var b strings.Builder
	fmt.Fprintf(&b, "#PLAYER 1\n")
	fmt.Fprintf(&b, "#TITLE %s\n", c.Name)
	fmt.Fprintf(&b, "#ARTIST \n")
	fmt.Fprintf(&b, "#BPM %d\n", bpm)
	fmt.Fprintf(&b, "#PLAYLEVEL 1\n")
	fmt.Fprintf(&b, "#RANK 2\n")
	fmt.Fprintf(&b, "#WAV01 note.wav\n\n")

	for i, chans := range measures {
		channels := make([]int, 0, len(chans))
		for ch := range chans {
			channels = append(channels, ch)
		}
		sort.Ints(channels)
		for _, ch := range channels {
			fmt.Fprintf(&b, "#%03d%02d:%s\n", i, ch, string(chans[ch]))
		}
	}

	outputPath := filepath.Join(outputDir, sanitizeBaseName(baseName)+".bms")
	if err := os.WriteFile(outputPath, []byte(b.String()), 0o644); err != nil {
		return "", fmt.Errorf("write bms chart: %w", err)
	}
	return outputPath, nil
}
