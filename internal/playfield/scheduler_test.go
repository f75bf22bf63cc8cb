package playfield

import (
	"testing"

	"rhythmcore/internal/chart"
)

func testGeometry() Geometry {
	return Geometry{YTarget: 85, YSpawn: 600, FallSpeedPxS: 350}
}

func TestEmptyChartIsImmediatelyDone(t *testing.T) {
	c := &chart.Chart{}
	s := NewScheduler(c, testGeometry(), []string{"p1"}, nil)
	s.Tick(0, 1.0/60)
	if !s.Done() {
		t.Fatalf("expected Done() on empty chart")
	}
}

func TestSpawnDeterministicFunctionOfGameTime(t *testing.T) {
	c := &chart.Chart{Notes: []chart.Note{{TimeSec: 1.0, Lane: 1}, {TimeSec: 2.0, Lane: 0}, {TimeSec: 3.0, Lane: 2}}}
	geom := testGeometry()
	fallTime := geom.FallTime()

	run := func() []float64 {
		s := NewScheduler(c, geom, []string{"p1"}, nil)
		var ys []float64
		for gt := 0.0; gt < 5.0; gt += 1.0 / 60 {
			s.Tick(gt, 1.0/60)
			for _, n := range s.Falling() {
				ys = append(ys, n.Y)
			}
		}
		return ys
	}

	a := run()
	b := run()
	if len(a) != len(b) {
		t.Fatalf("non-deterministic spawn sequence: lengths %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("non-deterministic Y at %d: %v vs %v", i, a[i], b[i])
		}
	}

	_ = fallTime
}

func TestYAtInvariant(t *testing.T) {
	geom := testGeometry()
	c := &chart.Chart{Notes: []chart.Note{{TimeSec: 1.0, Lane: 1}}}
	s := NewScheduler(c, geom, []string{"p1"}, nil)

	s.Tick(0, 1.0/60)
	falling := s.Falling()
	if len(falling) != 1 {
		t.Fatalf("expected note to be spawned immediately, got %d falling", len(falling))
	}
	n := falling[0]

	fallTime := geom.FallTime()
	spawnEffective := 1.0 - fallTime

	got := n.YAt(1.0, geom)
	want := geom.YTarget
	if absDiff(got, want) > 1e-9 {
		t.Fatalf("y(ChartNote.t) = %v, want y_target = %v", got, want)
	}

	got2 := n.YAt(spawnEffective, geom)
	if absDiff(got2, geom.YSpawn) > 1e-9 {
		t.Fatalf("y(t_spawn_effective) = %v, want y_spawn = %v", got2, geom.YSpawn)
	}
}

func TestLateSpawnCompensation(t *testing.T) {
	geom := testGeometry()
	c := &chart.Chart{Notes: []chart.Note{{TimeSec: 1.0, Lane: 1}, {TimeSec: 2.0, Lane: 0}, {TimeSec: 3.0, Lane: 2}}}
	s := NewScheduler(c, geom, []string{"p1"}, nil)

	// fall_time is (600-85)/350 ≈ 1.471s, so by game_time 0.6 the 1.0s
	// note (spawn time ≈ -0.471) and the 2.0s note (≈ 0.529) are both due.
	s.Tick(0.6, 0.6)
	falling := s.Falling()
	if len(falling) != 2 {
		t.Fatalf("expected exactly 2 notes spawned at late first tick, got %d", len(falling))
	}
	n := falling[0]
	if n.ChartIndex != 0 {
		t.Fatalf("first falling note has chart index %d, want 0", n.ChartIndex)
	}
	lateBy := 0.6 - (1.0 - geom.FallTime())
	wantY := geom.YSpawn - lateBy*geom.FallSpeedPxS
	if absDiff(n.Y, wantY) > 1e-9 {
		t.Fatalf("late-spawn Y = %v, want %v", n.Y, wantY)
	}

	s.Tick(1.0, 0.4)
	falling = s.Falling()
	if len(falling) != 2 {
		t.Fatalf("expected both spawned notes still falling at t=1.0, got %d", len(falling))
	}
	if absDiff(falling[0].Y, geom.YTarget) > 1e-6 {
		t.Fatalf("at t=1.0 Y should equal y_target, got %v", falling[0].Y)
	}
}

func TestReapToMissed(t *testing.T) {
	geom := testGeometry()
	c := &chart.Chart{Notes: []chart.Note{{TimeSec: 1.0, Lane: 1}}}
	var missed []*LiveNote
	s := NewScheduler(c, geom, []string{"p1"}, func(n *LiveNote) { missed = append(missed, n) })

	for gt := 0.0; gt < 3.0; gt += 1.0 / 60 {
		s.Tick(gt, 1.0/60)
	}

	if len(missed) != 1 {
		t.Fatalf("expected note to be reaped as missed, got %d missed", len(missed))
	}
	if missed[0].State != Missed {
		t.Fatalf("expected state Missed, got %v", missed[0].State)
	}
	if !s.Done() {
		t.Fatalf("expected Done() after last note reaped past end of chart")
	}
}

func TestHoldAndRelease(t *testing.T) {
	geom := testGeometry()
	c := &chart.Chart{Notes: []chart.Note{{TimeSec: 2.0, Lane: 1, DurSec: 1.0}}}
	s := NewScheduler(c, geom, []string{"p1"}, nil)

	s.Tick(2.0, 1.0/60)
	falling := s.Falling()
	if len(falling) != 1 {
		t.Fatalf("expected hold note to be falling at its head time")
	}
	id := falling[0].ID
	s.Hold(id)

	held := s.Held()
	if len(held) != 1 {
		t.Fatalf("expected 1 held note")
	}

	s.Tick(2.5, 0.5)
	held = s.Held()
	if absDiff(held[0].HoldProgress, 0.5) > 1e-9 {
		t.Fatalf("hold_progress = %v, want 0.5", held[0].HoldProgress)
	}

	final := s.Release(id, Completed)
	if final == nil || final.State != Completed {
		t.Fatalf("expected Completed on release, got %+v", final)
	}
}

func absDiff(a, b float64) float64 {
	if a < b {
		return b - a
	}
	return a - b
}
