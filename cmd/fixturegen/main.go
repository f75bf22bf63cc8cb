package main

import (
	"flag"
	"fmt"
	"log"
	"strings"

	"rhythmcore/internal/fixtures"
)

// fixturegen produces deterministic click-track WAV fixtures used by
// analyser/builder tests and demos.
func main() {
	outDir := flag.String("out", "./testdata/audio", "output directory for generated audio")
	seed := flag.Int("seed", 1337, "random seed for deterministic fixtures")
	bpmLadderStr := flag.String("bpm-ladder", "80,100,120,128,140,160", "comma-separated BPM ladder")
	includeSwing := flag.Bool("include-swing", true, "include a swing/shuffle click fixture")
	swingRatio := flag.Float64("swing-ratio", 0.6, "off-beat position as a fraction of the beat duration")
	includeTempoRamp := flag.Bool("include-tempo-ramp", true, "include a dynamic tempo fixture")
	rampStart := flag.Float64("ramp-start-bpm", 128, "tempo ramp start BPM")
	rampEnd := flag.Float64("ramp-end-bpm", 100, "tempo ramp end BPM")

	flag.Parse()

	var ladder []float64
	for _, s := range strings.Split(*bpmLadderStr, ",") {
		var v float64
		if _, err := fmt.Sscanf(strings.TrimSpace(s), "%f", &v); err == nil {
			ladder = append(ladder, v)
		}
	}
	if len(ladder) == 0 {
		ladder = []float64{120}
	}

	cfg := fixtures.Config{
		OutputDir:    *outDir,
		SampleRate:   22050,
		Seed:         int64(*seed),
		BPMLadder:    ladder,
		SwingRatio:   *swingRatio,
		IncludeSwing: *includeSwing,
		IncludeRamp:  *includeTempoRamp,
		RampStartBPM: *rampStart,
		RampEndBPM:   *rampEnd,
	}

	manifest, err := fixtures.Generate(cfg)
	if err != nil {
		log.Fatalf("generate fixtures: %v", err)
	}

	log.Printf("fixturegen wrote %d fixtures to %s (sample_rate=%d)", len(manifest.Fixtures), cfg.OutputDir, cfg.SampleRate)
}
