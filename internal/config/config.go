// Package config holds the tuning parameters and process-level flags
// shared by the chart generator CLI and the runtime library. Every
// global the source code used to keep as a module-level singleton
// becomes an explicit field here, constructed once at startup and
// passed down.
package config

import (
	"flag"
	"os"
)

// Config holds the runtime's tuning-parameter table plus the
// process-level settings (data directory, log level) a real deployment
// needs.
type Config struct {
	// Runtime tuning parameters.
	FallSpeedPxS    float64 // fall_speed_px_s
	YTargetMin      float64 // y_target low end
	YTargetMax      float64 // y_target high end
	MinNoteGap      float64 // min_note_gap, seconds
	OnsetThreshold  float64 // onset_threshold, fraction of mean strength
	LatencyCompSec  float64 // latency_comp_sec
	VisualOffsetSec float64 // visual_offset_sec
	AudioStartDelay float64 // audio_start_delay, seconds

	// Process settings.
	DataDir  string
	LogLevel string
}

// Defaults returns the default tuning parameters.
func Defaults() *Config {
	return &Config{
		FallSpeedPxS:    350,
		YTargetMin:      70,
		YTargetMax:      100,
		MinNoteGap:      0.15,
		OnsetThreshold:  0.5,
		LatencyCompSec:  0.150,
		VisualOffsetSec: 0.0,
		AudioStartDelay: 0.05,
		DataDir:         defaultDataDir(),
		LogLevel:        "info",
	}
}

// Parse builds a Config from command-line flags, seeded with Defaults.
func Parse() *Config {
	cfg := Defaults()

	flag.Float64Var(&cfg.FallSpeedPxS, "fall-speed", cfg.FallSpeedPxS, "note fall speed in pixels/sec")
	flag.Float64Var(&cfg.MinNoteGap, "min-note-gap", cfg.MinNoteGap, "minimum seconds between accepted onsets")
	flag.Float64Var(&cfg.OnsetThreshold, "onset-threshold", cfg.OnsetThreshold, "onset strength threshold, fraction of mean")
	flag.Float64Var(&cfg.LatencyCompSec, "latency-comp", cfg.LatencyCompSec, "input latency compensation in seconds")
	flag.Float64Var(&cfg.VisualOffsetSec, "visual-offset", cfg.VisualOffsetSec, "visual offset in seconds")
	flag.Float64Var(&cfg.AudioStartDelay, "audio-start-delay", cfg.AudioStartDelay, "audio start delay in seconds")
	flag.StringVar(&cfg.DataDir, "data-dir", cfg.DataDir, "data directory for the chart library index")
	flag.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug, info, warn, error)")

	flag.Parse()
	return cfg
}

// FallTime returns the lead time the scheduler needs, given a
// playfield's target height.
func (c *Config) FallTime(yTarget, ySpawn float64) float64 {
	return (ySpawn - yTarget) / c.FallSpeedPxS
}

func defaultDataDir() string {
	if dir := os.Getenv("RHYTHMCORE_DATA_DIR"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".rhythmcore"
	}
	return home + "/.rhythmcore"
}
