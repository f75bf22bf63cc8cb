package recorder

import (
	"testing"

	"rhythmcore/internal/chart"
)

func TestTapVsHoldThreshold(t *testing.T) {
	r := New()
	r.Press(0, 1.0)
	r.Release(0, 1.1) // 100ms, below threshold -> tap

	r.Press(1, 2.0)
	r.Release(1, 2.3) // 300ms, above threshold -> hold

	c := r.Stop(3.0, "demo", "demo.mp3", 120, 3.0, chart.Custom)
	if len(c.Notes) != 2 {
		t.Fatalf("expected 2 notes, got %d", len(c.Notes))
	}
	for _, n := range c.Notes {
		if n.Lane == 0 && n.IsHold() {
			t.Fatalf("lane 0 note should be a tap: %+v", n)
		}
		if n.Lane == 1 && !n.IsHold() {
			t.Fatalf("lane 1 note should be a hold: %+v", n)
		}
	}
}

func TestStopFlushesStillHeldKeys(t *testing.T) {
	r := New()
	r.Press(2, 0.5)
	c := r.Stop(1.0, "demo", "demo.mp3", 120, 1.0, chart.Custom)
	if len(c.Notes) != 1 {
		t.Fatalf("expected flushed note on stop, got %d", len(c.Notes))
	}
}

func TestQuantizeDedupes(t *testing.T) {
	notes := []chart.Note{
		{TimeSec: 0.501, Lane: 0},
		{TimeSec: 0.499, Lane: 0},
		{TimeSec: 1.0, Lane: 1},
		{TimeSec: 1.5, Lane: 2},
	}
	out := quantize(notes)
	if len(out) != 3 {
		t.Fatalf("expected dedup to 3 notes, got %d: %+v", len(out), out)
	}
}

func TestMedianIntervalFallback(t *testing.T) {
	got := medianInterval(nil)
	if got != 0.25 {
		t.Fatalf("expected fallback interval 0.25, got %v", got)
	}
}
