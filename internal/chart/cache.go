package chart

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"rhythmcore/internal/errs"
)

// CachePath derives the sibling cache document path for an audio file
// and difficulty.
func CachePath(audioPath string, difficulty Difficulty) string {
	ext := filepath.Ext(audioPath)
	base := strings.TrimSuffix(audioPath, ext)
	return fmt.Sprintf("%s.%s.chart.json", base, difficulty)
}

// Load reads a persisted Chart document. A JSON error is reported as
// errs.ErrCacheCorrupt so callers know to regenerate rather than abort.
func Load(path string) (*Chart, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Chart
	if err := c.UnmarshalJSON(data); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", errs.ErrCacheCorrupt, path, err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", errs.ErrCacheCorrupt, path, err)
	}
	return &c, nil
}

// Save writes a Chart document to path, creating parent directories as
// needed. The file is opened write-then-close, never held open.
func Save(path string, c *Chart) error {
	data, err := c.MarshalJSON()
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0o644)
}

// LoadOrGenerate returns the cached chart for audioPath+difficulty if
// its cache file is newer than the audio file; otherwise it calls
// generate, persists the result, and returns that. A corrupt or
// unreadable cache is treated the same as a missing one; logger may be
// nil, in which case slog.Default() is used.
func LoadOrGenerate(logger *slog.Logger, audioPath string, difficulty Difficulty, generate func() (*Chart, error)) (*Chart, error) {
	if logger == nil {
		logger = slog.Default()
	}
	cachePath := CachePath(audioPath, difficulty)

	audioInfo, err := os.Stat(audioPath)
	if os.IsNotExist(err) {
		return nil, errs.ErrNotFound
	} else if err != nil {
		return nil, err
	}

	cacheInfo, err := os.Stat(cachePath)
	if err == nil && cacheInfo.ModTime().After(audioInfo.ModTime()) {
		if c, loadErr := Load(cachePath); loadErr == nil {
			return c, nil
		} else {
			logger.Warn("chart cache degraded, regenerating", "component", "chart.cache", "path", cachePath, "error", loadErr)
		}
	}

	c, err := generate()
	if err != nil {
		return nil, err
	}
	if err := Save(cachePath, c); err != nil {
		return nil, err
	}
	return c, nil
}
