// Command chartgen is the offline chart generation CLI: given an
// audio file and a difficulty, it runs the Audio Analyser and Chart
// Builder and persists the result as a sibling cache file, per
// spec.md section 6's "generate <audio_path> [difficulty]" interface.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"rhythmcore/internal/analyzer"
	"rhythmcore/internal/builder"
	"rhythmcore/internal/chart"
	"rhythmcore/internal/config"
	"rhythmcore/internal/errs"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg := config.Parse()
	args := flag.Args()
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "usage: chartgen [flags] <audio_path> [difficulty]")
		return 1
	}

	audioPath := args[0]
	difficultyArg := "hard"
	if len(args) >= 2 {
		difficultyArg = args[1]
	}
	difficulty, err := chart.ParseDifficulty(difficultyArg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	level := slog.LevelInfo
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	az := analyzer.New(logger)

	c, err := generate(az, logger, audioPath, difficulty)
	if err != nil {
		if errors.Is(err, errs.ErrAnalyserUnavailable) {
			logger.Error("analyser unavailable", "error", err)
			return 2
		}
		logger.Error("chart generation failed", "error", err)
		return 1
	}

	logger.Info("chart generated",
		"audio", audioPath,
		"difficulty", difficulty,
		"bpm", c.BPM,
		"notes", len(c.Notes),
		"cache_path", chart.CachePath(audioPath, difficulty),
	)
	return 0
}

// generate runs the Analyser/Builder pipeline through the cache-or-
// regenerate helper, so a fresh cache file is reused instead of
// re-decoding the audio on every invocation.
func generate(az analyzer.Analyzer, logger *slog.Logger, audioPath string, difficulty chart.Difficulty) (*chart.Chart, error) {
	return chart.LoadOrGenerate(logger, audioPath, difficulty, func() (*chart.Chart, error) {
		features, err := az.Analyze(context.Background(), audioPath)
		if err != nil {
			return nil, err
		}
		c := builder.Build(features, audioPath, "", difficulty, chartSeed(audioPath))
		if err := c.Validate(); err != nil {
			return nil, fmt.Errorf("generated chart invalid: %w", err)
		}
		return c, nil
	})
}

// chartSeed derives a stable seed from the audio path so Expert mode's
// duplicate-note coin flips are reproducible across runs of the same
// file, without requiring the caller to pass one explicitly.
func chartSeed(audioPath string) uint64 {
	var h uint64 = 14695981039346656037
	for i := 0; i < len(audioPath); i++ {
		h ^= uint64(audioPath[i])
		h *= 1099511628211
	}
	return h
}
