// Package analyzer implements the offline Audio Analyser: given a file
// path it decodes the audio, then estimates tempo, detects onsets, and
// computes a frame-wise spectral centroid. Feature extraction failures
// are non-fatal; the Analyser degrades to best-effort values and logs
// which subroutine gave up.
package analyzer

import (
	"context"
	"log/slog"
)

// Features is everything the Chart Builder needs from the Analyser.
type Features struct {
	SampleRate       int
	DurationSec      float64
	OnsetTimes       []float64
	OnsetStrengths   []float64 // envelope value at each entry of OnsetTimes
	OnsetEnvelope    []float64 // full envelope, one value per analysis frame
	TempoBPM         float64
	SpectralCentroid []float64 // one value per analysis frame, Hz
	FrameHopSec      float64   // frame index * FrameHopSec = frame time
}

// Analyzer abstracts the analysis backend. There is only one
// implementation in this repo (CPU-based DSP), but the interface keeps
// the Chart Builder decoupled from decode/DSP details and testable
// against synthetic fixtures.
type Analyzer interface {
	Analyze(ctx context.Context, path string) (*Features, error)
}

// CPUAnalyzer runs decode and feature extraction in-process. Decode and
// feature extraction are expected to run on a background worker, never
// on the runtime's hot tick path.
type CPUAnalyzer struct {
	logger *slog.Logger
}

// New constructs a CPUAnalyzer.
func New(logger *slog.Logger) *CPUAnalyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &CPUAnalyzer{logger: logger}
}

// Analyze decodes path and extracts tempo, onsets, and spectral
// centroid. Decode failures are fatal (NotFound/DecodeFailed); feature
// extraction failures degrade to fallback values per-subroutine.
func (a *CPUAnalyzer) Analyze(ctx context.Context, path string) (*Features, error) {
	samples, sampleRate, err := decodeToMono22050(path)
	if err != nil {
		return nil, err
	}

	durationSec := float64(len(samples)) / float64(sampleRate)

	frames := stftMagnitudes(samples, sampleRate, frameSize, hopSize)

	envelope, err := onsetEnvelope(frames)
	if err != nil {
		a.logger.Warn("onset envelope degraded", "component", "analyzer.onset_envelope", "path", path, "error", err)
		envelope = make([]float64, len(frames))
	}

	onsetTimes, onsetStrengths, err := detectOnsets(envelope, hopSize, sampleRate)
	if err != nil {
		a.logger.Warn("onset detection degraded", "component", "analyzer.onset_detection", "path", path, "error", err)
		onsetTimes = nil
		onsetStrengths = nil
	}

	tempo, err := estimateTempo(envelope, hopSize, sampleRate)
	if err != nil {
		a.logger.Warn("tempo estimation degraded, using fallback", "component", "analyzer.tempo_estimation", "path", path, "error", err)
		tempo = fallbackBPM
	}

	centroid, err := spectralCentroid(frames, sampleRate, frameSize)
	if err != nil {
		a.logger.Warn("spectral centroid degraded", "component", "analyzer.spectral_centroid", "path", path, "error", err)
		centroid = make([]float64, len(frames))
	}

	return &Features{
		SampleRate:       sampleRate,
		DurationSec:      durationSec,
		OnsetTimes:       onsetTimes,
		OnsetStrengths:   onsetStrengths,
		OnsetEnvelope:    envelope,
		TempoBPM:         tempo,
		SpectralCentroid: centroid,
		FrameHopSec:      float64(hopSize) / float64(sampleRate),
	}, nil
}
