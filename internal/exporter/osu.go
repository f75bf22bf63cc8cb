package exporter

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"rhythmcore/internal/chart"
)

const maniaColumnCount = 3

// ToOsuMania exports a Chart as an osu!mania keymode-3 beatmap
// (.osu, file format v14), one hit object per note ordered by time.
func ToOsuMania(c *chart.Chart, outputDir, baseName string) (string, error) {
	var b strings.Builder

	b.WriteString("osu file format v14\n\n")

	b.WriteString("[General]\n")
	fmt.Fprintf(&b, "AudioFilename: %s\n", filepath.Base(c.File))
	b.WriteString("Mode: 3\n\n")

	b.WriteString("[Metadata]\n")
	fmt.Fprintf(&b, "Title:%s\n", c.Name)
	fmt.Fprintf(&b, "Version:%s\n\n", c.Difficulty)

	b.WriteString("[Difficulty]\n")
	fmt.Fprintf(&b, "CircleSize:%d\n", maniaColumnCount)
	b.WriteString("OverallDifficulty:5\n")
	b.WriteString("HPDrainRate:5\n\n")

	b.WriteString("[TimingPoints]\n")
	if c.BPM > 0 {
		beatLengthMs := 60000.0 / float64(c.BPM)
		fmt.Fprintf(&b, "0,%.6f,4,2,0,50,1,0\n", beatLengthMs)
	}
	b.WriteString("\n")

	b.WriteString("[HitObjects]\n")
	for _, n := range c.Notes {
		x := maniaColumnX(n.Lane)
		timeMs := int(n.TimeSec*1000 + 0.5)
		if n.IsHold() {
			endMs := int(n.EndSec()*1000 + 0.5)
			fmt.Fprintf(&b, "%d,192,%d,128,0,%d:0:0:0:0:\n", x, timeMs, endMs)
		} else {
			fmt.Fprintf(&b, "%d,192,%d,1,0,0:0:0:0:\n", x, timeMs)
		}
	}

	outputPath := filepath.Join(outputDir, sanitizeBaseName(baseName)+".osu")
	if err := os.WriteFile(outputPath, []byte(b.String()), 0o644); err != nil {
		return "", fmt.Errorf("write osu beatmap: %w", err)
	}
	return outputPath, nil
}

// maniaColumnX returns the hit-object x coordinate for a lane, the
// column center under osu!mania's x = (col+0.5)*512/columnCount rule.
func maniaColumnX(lane int) int {
	return int((float64(lane)+0.5) * 512.0 / float64(maniaColumnCount))
}
