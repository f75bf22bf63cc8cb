// Package fixtures synthesises deterministic audio and input-event
// fixtures so analyser/builder/judge tests never need to decode a
// real audio file or hand-time a keyboard session.
package fixtures

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
)

// Config controls which audio fixtures Generate emits.
type Config struct {
	OutputDir    string
	SampleRate   int
	Seed         int64
	BPMLadder    []float64
	SwingRatio   float64 // e.g. 0.6 means the off-beat click lands at 60% of the beat duration
	IncludeSwing bool
	IncludeRamp  bool
	RampStartBPM float64
	RampEndBPM   float64
}

// Manifest describes the generated fixtures and their ground-truth
// onset times, so a test can assert the analyser recovers them.
type Manifest struct {
	SampleRate int               `json:"sample_rate"`
	Seed       int64             `json:"seed"`
	Fixtures   []ManifestFixture `json:"fixtures"`
}

// ManifestFixture is one rendered WAV and its known properties.
type ManifestFixture struct {
	File        string    `json:"file"`
	Type        string    `json:"type"`
	BPM         float64   `json:"bpm,omitempty"`
	TargetBPM   float64   `json:"target_bpm,omitempty"`
	Beats       int       `json:"beats,omitempty"`
	DurationSec float64   `json:"duration_sec"`
	SwingRatio  float64   `json:"swing_ratio,omitempty"`
	OnsetTimes  []float64 `json:"onset_times"`
}

// Generate writes WAV fixtures and a manifest.json into cfg.OutputDir.
func Generate(cfg Config) (*Manifest, error) {
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 22050
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = "./testdata/audio"
	}

	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir output: %w", err)
	}

	manifest := &Manifest{SampleRate: cfg.SampleRate, Seed: cfg.Seed}

	for _, bpm := range cfg.BPMLadder {
		filename := fmt.Sprintf("click_%dbpm.wav", int(bpm))
		path := filepath.Join(cfg.OutputDir, filename)
		durationSec, onsets := renderClickTrack(path, cfg.SampleRate, bpm, 32, 0, 1.0)
		manifest.Fixtures = append(manifest.Fixtures, ManifestFixture{
			File:        filename,
			Type:        "click",
			BPM:         bpm,
			Beats:       32,
			DurationSec: durationSec,
			OnsetTimes:  onsets,
		})
	}

	if cfg.IncludeSwing && len(cfg.BPMLadder) > 0 {
		bpm := cfg.BPMLadder[len(cfg.BPMLadder)/2]
		filename := "swing_click.wav"
		path := filepath.Join(cfg.OutputDir, filename)
		durationSec, onsets := renderClickTrack(path, cfg.SampleRate, bpm, 32, cfg.SwingRatio, 1.0)
		manifest.Fixtures = append(manifest.Fixtures, ManifestFixture{
			File:        filename,
			Type:        "swing_click",
			BPM:         bpm,
			SwingRatio:  cfg.SwingRatio,
			Beats:       32,
			DurationSec: durationSec,
			OnsetTimes:  onsets,
		})
	}

	if cfg.IncludeRamp {
		filename := "tempo_ramp.wav"
		path := filepath.Join(cfg.OutputDir, filename)
		durationSec, onsets := renderTempoRamp(path, cfg.SampleRate, cfg.RampStartBPM, cfg.RampEndBPM, 64)
		manifest.Fixtures = append(manifest.Fixtures, ManifestFixture{
			File:        filename,
			Type:        "tempo_ramp",
			BPM:         cfg.RampStartBPM,
			TargetBPM:   cfg.RampEndBPM,
			Beats:       64,
			DurationSec: durationSec,
			OnsetTimes:  onsets,
		})
	}

	manifestPath := filepath.Join(cfg.OutputDir, "manifest.json")
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal manifest: %w", err)
	}
	if err := os.WriteFile(manifestPath, data, 0o644); err != nil {
		return nil, fmt.Errorf("write manifest: %w", err)
	}

	return manifest, nil
}

// renderClickTrack writes a mono WAV with a short decaying click on
// every beat and returns the duration plus the exact onset times used,
// so a test can compare against what the analyser detects.
func renderClickTrack(path string, sampleRate int, bpm float64, beats int, swingRatio float64, amplitude float64) (float64, []float64) {
	secondsPerBeat := 60.0 / bpm
	totalDuration := secondsPerBeat * float64(beats)
	samples := int(totalDuration * float64(sampleRate))
	data := make([]float64, samples)

	onsets := make([]float64, 0, beats)
	clickLen := int(0.01 * float64(sampleRate))
	for i := 0; i < beats; i++ {
		offsetSec := secondsPerBeat * float64(i)
		if swingRatio > 0 && i%2 == 1 {
			offsetSec = secondsPerBeat*float64(i-1) + secondsPerBeat*swingRatio
		}
		onsets = append(onsets, offsetSec)

		offset := int(offsetSec * float64(sampleRate))
		for j := 0; j < clickLen && offset+j < len(data); j++ {
			data[offset+j] += amplitude * math.Exp(-4*float64(j)/float64(clickLen))
		}
	}

	writeWAV(path, data, sampleRate)
	return totalDuration, onsets
}

// renderTempoRamp writes clicks whose tempo ramps linearly, beat by
// beat, from startBPM to endBPM, returning the known onset times.
func renderTempoRamp(path string, sampleRate int, startBPM, endBPM float64, beats int) (float64, []float64) {
	data := []float64{}
	currentTime := 0.0
	clickLen := int(0.01 * float64(sampleRate))
	onsets := make([]float64, 0, beats)

	for i := 0; i < beats; i++ {
		progress := float64(i) / float64(beats-1)
		bpm := startBPM + (endBPM-startBPM)*progress
		secondsPerBeat := 60.0 / bpm
		offset := int(currentTime * float64(sampleRate))
		onsets = append(onsets, currentTime)

		ensure := offset + clickLen
		if ensure > len(data) {
			data = append(data, make([]float64, ensure-len(data))...)
		}

		for j := 0; j < clickLen; j++ {
			data[offset+j] += math.Exp(-4 * float64(j) / float64(clickLen))
		}

		currentTime += secondsPerBeat
	}

	writeWAV(path, data, sampleRate)
	return currentTime, onsets
}

// writeWAV writes mono 16-bit PCM WAV, matched to what
// internal/analyzer.decodeWAV expects to read back.
func writeWAV(path string, samples []float64, sampleRate int) {
	buf := make([]int16, len(samples))
	for i, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		buf[i] = int16(s * 32767)
	}

	byteRate := sampleRate * 2
	blockAlign := int16(2)
	bitsPerSample := int16(16)
	dataSize := len(buf) * 2
	riffSize := 36 + dataSize

	f, err := os.Create(path)
	if err != nil {
		panic(err)
	}
	defer f.Close()

	f.Write([]byte("RIFF"))
	binary.Write(f, binary.LittleEndian, uint32(riffSize))
	f.Write([]byte("WAVE"))
	f.Write([]byte("fmt "))
	binary.Write(f, binary.LittleEndian, uint32(16))
	binary.Write(f, binary.LittleEndian, uint16(1))
	binary.Write(f, binary.LittleEndian, uint16(1))
	binary.Write(f, binary.LittleEndian, uint32(sampleRate))
	binary.Write(f, binary.LittleEndian, uint32(byteRate))
	binary.Write(f, binary.LittleEndian, blockAlign)
	binary.Write(f, binary.LittleEndian, bitsPerSample)
	f.Write([]byte("data"))
	binary.Write(f, binary.LittleEndian, uint32(dataSize))
	for _, v := range buf {
		binary.Write(f, binary.LittleEndian, v)
	}
}
