package exporter

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"rhythmcore/internal/chart"
)

// quantizeToleranceSec bounds how far a round-tripped note time may
// drift from the source chart due to row quantization in the on-disk
// format (48 rows per beat, the same resolution the writers use).
const quantizeToleranceSec = 0.05

// verifiedNote is a note recovered from a parsed export file.
type verifiedNote struct {
	TimeSec float64
	Lane    int
}

// Verify re-parses an exported file and checks its note count,
// ordering, and timing against the source Chart, the same structural
// check the teacher's verify.go performs on a re-read playlist.
func Verify(c *chart.Chart, path string, format Format) error {
	var got []verifiedNote
	var err error

	switch format {
	case FormatOsuMania:
		got, err = parseOsuMania(path)
	case FormatStepMania:
		got, err = parseStepMania(path)
	case FormatBMS:
		got, err = parseBMS(path)
	default:
		return fmt.Errorf("unknown export format: %s", format)
	}
	if err != nil {
		return fmt.Errorf("parse export: %w", err)
	}

	want := wantedNotes(c)
	if len(got) != len(want) {
		return fmt.Errorf("note count mismatch: source has %d, export has %d", len(want), len(got))
	}

	for i := 1; i < len(got); i++ {
		if got[i].TimeSec < got[i-1].TimeSec {
			return fmt.Errorf("export notes out of order at index %d", i)
		}
	}

	for i := range want {
		if absf(got[i].TimeSec-want[i].TimeSec) > quantizeToleranceSec {
			return fmt.Errorf("note %d time drift too large: source %.3f export %.3f", i, want[i].TimeSec, got[i].TimeSec)
		}
		if got[i].Lane != want[i].Lane {
			return fmt.Errorf("note %d lane mismatch: source %d export %d", i, want[i].Lane, got[i].Lane)
		}
	}

	return nil
}

// wantedNotes flattens a Chart into the (time, lane) pairs an export
// is expected to reproduce: one entry per tap, two per hold (head and
// tail), matching how every writer emits hold events.
func wantedNotes(c *chart.Chart) []verifiedNote {
	notes := make([]verifiedNote, 0, len(c.Notes)*2)
	for _, n := range c.Notes {
		notes = append(notes, verifiedNote{TimeSec: n.TimeSec, Lane: n.Lane})
		if n.IsHold() {
			notes = append(notes, verifiedNote{TimeSec: n.EndSec(), Lane: n.Lane})
		}
	}
	sort.Slice(notes, func(i, j int) bool {
		if notes[i].TimeSec != notes[j].TimeSec {
			return notes[i].TimeSec < notes[j].TimeSec
		}
		return notes[i].Lane < notes[j].Lane
	})
	return notes
}

var osuHitObjectLine = regexp.MustCompile(`^(\d+),(\d+),(\d+),(\d+),(\d+),(.*)$`)

func parseOsuMania(path string) ([]verifiedNote, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var notes []verifiedNote
	inHitObjects := false
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "[HitObjects]" {
			inHitObjects = true
			continue
		}
		if !inHitObjects || line == "" {
			continue
		}
		m := osuHitObjectLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		x, _ := strconv.Atoi(m[1])
		timeMs, _ := strconv.Atoi(m[3])
		objType, _ := strconv.Atoi(m[4])
		lane := int(float64(x) / (512.0 / float64(maniaColumnCount)))

		notes = append(notes, verifiedNote{TimeSec: float64(timeMs) / 1000.0, Lane: lane})

		if objType&128 != 0 {
			// Hold note: extra field is "endTime:hitSample".
			parts := strings.Split(m[6], ":")
			if len(parts) > 0 {
				if endMs, err := strconv.Atoi(parts[0]); err == nil {
					notes = append(notes, verifiedNote{TimeSec: float64(endMs) / 1000.0, Lane: lane})
				}
			}
		}
	}
	sort.Slice(notes, func(i, j int) bool {
		if notes[i].TimeSec != notes[j].TimeSec {
			return notes[i].TimeSec < notes[j].TimeSec
		}
		return notes[i].Lane < notes[j].Lane
	})
	return notes, scanner.Err()
}

var smBPMLine = regexp.MustCompile(`#BPMS:0\.000=([\d.]+);`)

func parseStepMania(path string) ([]verifiedNote, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	text := string(data)

	bpm := 120.0
	if m := smBPMLine.FindStringSubmatch(text); m != nil {
		bpm, _ = strconv.ParseFloat(m[1], 64)
	}

	idx := strings.Index(text, "#NOTES:")
	if idx < 0 {
		return nil, fmt.Errorf("no #NOTES section found")
	}
	body := text[idx:]
	semicolon := strings.LastIndex(body, ";")
	if semicolon >= 0 {
		body = body[:semicolon]
	}

	lines := strings.Split(body, "\n")
	// Skip the six header lines (NOTES:, style, author, difficulty,
	// meter, radar) that precede the measure data.
	dataStart := 0
	colons := 0
	for i, l := range lines {
		if strings.HasSuffix(strings.TrimSpace(l), ":") {
			colons++
		}
		if colons >= 6 {
			dataStart = i + 1
			break
		}
	}

	var notes []verifiedNote
	var holdStart [smColumnCount]int
	var holdOpen [smColumnCount]bool
	row := 0
	for _, l := range lines[dataStart:] {
		l = strings.TrimSpace(l)
		if l == "" || l == "," {
			continue
		}
		if len(l) < smColumnCount {
			continue
		}
		for col := 0; col < smColumnCount; col++ {
			switch l[col] {
			case smTapChar:
				notes = append(notes, verifiedNote{TimeSec: rowToSec(row, bpm), Lane: col})
			case smHoldHeadChar:
				holdStart[col] = row
				holdOpen[col] = true
			case smHoldTailChar:
				if holdOpen[col] {
					notes = append(notes, verifiedNote{TimeSec: rowToSec(holdStart[col], bpm), Lane: col})
					notes = append(notes, verifiedNote{TimeSec: rowToSec(row, bpm), Lane: col})
					holdOpen[col] = false
				}
			}
		}
		row++
	}

	sort.Slice(notes, func(i, j int) bool {
		if notes[i].TimeSec != notes[j].TimeSec {
			return notes[i].TimeSec < notes[j].TimeSec
		}
		return notes[i].Lane < notes[j].Lane
	})
	return notes, nil
}

func rowToSec(row int, bpm float64) float64 {
	beat := float64(row) / float64(smRowsPerBeat)
	return beat * 60.0 / bpm
}

var bmsBPMLine = regexp.MustCompile(`#BPM (\d+)`)
var bmsMeasureLine = regexp.MustCompile(`^#(\d{3})(\d{2}):(.*)$`)

func parseBMS(path string) ([]verifiedNote, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	text := string(data)

	bpm := 120.0
	if m := bmsBPMLine.FindStringSubmatch(text); m != nil {
		bpm, _ = strconv.ParseFloat(m[1], 64)
	}

	laneByChannel := map[int]int{}
	for lane, ch := range bmsKeyChannels {
		laneByChannel[ch] = lane
		laneByChannel[ch+40] = lane
	}

	var notes []verifiedNote
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		m := bmsMeasureLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		measure, _ := strconv.Atoi(m[1])
		channel, _ := strconv.Atoi(m[2])
		lane, ok := laneByChannel[channel]
		if !ok {
			continue
		}
		slots := m[3]
		slotCount := len(slots) / 2
		if slotCount == 0 {
			continue
		}
		rowsPerSlot := bmsRowsPerMeasure / slotCount
		for i := 0; i < slotCount; i++ {
			obj := slots[i*2 : i*2+2]
			if obj == "00" {
				continue
			}
			row := measure*bmsRowsPerMeasure + i*rowsPerSlot
			notes = append(notes, verifiedNote{TimeSec: rowToSec(row, bpm), Lane: lane})
		}
	}

	sort.Slice(notes, func(i, j int) bool {
		if notes[i].TimeSec != notes[j].TimeSec {
			return notes[i].TimeSec < notes[j].TimeSec
		}
		return notes[i].Lane < notes[j].Lane
	})
	return notes, nil
}

func absf(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
