// Package errs collects the sentinel error kinds shared across the
// chart generator and the runtime, per the error-handling design.
package errs

import "errors"

var (
	// ErrNotFound means the referenced audio file does not exist.
	ErrNotFound = errors.New("audio file not found")
	// ErrDecodeFailed means the audio file exists but could not be decoded.
	ErrDecodeFailed = errors.New("audio decode failed")
	// ErrAnalyserUnavailable means no analysis backend could be constructed.
	ErrAnalyserUnavailable = errors.New("analyser unavailable")
	// ErrCacheCorrupt means a cached chart file exists but is unreadable;
	// callers should regenerate rather than abort.
	ErrCacheCorrupt = errors.New("chart cache corrupt")
	// ErrAudioDeviceBusy means the runtime's audio device is already in use.
	ErrAudioDeviceBusy = errors.New("audio device busy")
	// ErrInsufficientSamples means calibration did not receive enough taps.
	ErrInsufficientSamples = errors.New("insufficient calibration samples")
)
