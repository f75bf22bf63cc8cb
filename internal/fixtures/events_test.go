package fixtures

import (
	"testing"

	"rhythmcore/internal/chart"
)

func testChart() *chart.Chart {
	return &chart.Chart{
		Notes: []chart.Note{
			{TimeSec: 1.0, Lane: 0},
			{TimeSec: 2.0, Lane: 1, DurSec: 0.5},
			{TimeSec: 3.0, Lane: 2},
		},
	}
}

func TestScriptInputsZeroJitterMatchesChart(t *testing.T) {
	c := testChart()
	events := ScriptInputs(c, 0, 1)

	if len(events) != 6 {
		t.Fatalf("expected 6 events (press+release per note), got %d", len(events))
	}
	for i := 1; i < len(events); i++ {
		if events[i].At < events[i-1].At {
			t.Fatalf("events not sorted by time at index %d", i)
		}
	}
	for _, e := range events {
		if e.Kind != Press {
			continue
		}
		for _, n := range c.Notes {
			if n.Lane == e.Lane && e.At != n.TimeSec {
				t.Fatalf("zero-jitter press in lane %d at %v, want %v", e.Lane, e.At, n.TimeSec)
			}
		}
	}
}

func TestScriptInputsDeterministicWithSeed(t *testing.T) {
	c := testChart()
	a := ScriptInputs(c, 0.05, 42)
	b := ScriptInputs(c, 0.05, 42)

	if len(a) != len(b) {
		t.Fatalf("length mismatch")
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("event %d differs between runs: %+v vs %+v", i, a[i], b[i])
		}
	}
}

func TestScriptInputsDifferentSeedsDiverge(t *testing.T) {
	c := testChart()
	a := ScriptInputs(c, 0.05, 1)
	b := ScriptInputs(c, 0.05, 2)

	same := true
	for i := range a {
		if a[i].At != b[i].At {
			same = false
		}
	}
	if same {
		t.Fatalf("expected different seeds to produce different jitter")
	}
}

func TestScriptInputsHoldReleaseNeverBeforePress(t *testing.T) {
	c := testChart()
	events := ScriptInputs(c, 0.3, 7)

	var pressAt float64
	for _, e := range events {
		if e.Lane == 1 && e.Kind == Press {
			pressAt = e.At
		}
		if e.Lane == 1 && e.Kind == Release && e.At < pressAt {
			t.Fatalf("release before press for lane 1 hold")
		}
	}
}
