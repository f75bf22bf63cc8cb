package config

import "testing"

func TestDefaults(t *testing.T) {
	c := Defaults()
	if c.FallSpeedPxS != 350 {
		t.Fatalf("FallSpeedPxS = %v, want 350", c.FallSpeedPxS)
	}
	if c.MinNoteGap != 0.15 {
		t.Fatalf("MinNoteGap = %v, want 0.15", c.MinNoteGap)
	}
	if c.OnsetThreshold != 0.5 {
		t.Fatalf("OnsetThreshold = %v, want 0.5", c.OnsetThreshold)
	}
	if c.LatencyCompSec != 0.150 {
		t.Fatalf("LatencyCompSec = %v, want 0.150", c.LatencyCompSec)
	}
	if c.AudioStartDelay != 0.05 {
		t.Fatalf("AudioStartDelay = %v, want 0.05", c.AudioStartDelay)
	}
}

func TestFallTime(t *testing.T) {
	c := Defaults()
	got := c.FallTime(85, 600)
	want := (600.0 - 85.0) / 350.0
	if got != want {
		t.Fatalf("FallTime = %v, want %v", got, want)
	}
}
