package judge

import (
	"testing"

	"rhythmcore/internal/chart"
	"rhythmcore/internal/playfield"
)

func testGeometry() playfield.Geometry {
	return playfield.Geometry{YTarget: 85, YSpawn: 600, FallSpeedPxS: 350}
}

func TestPerfectTimingScenario(t *testing.T) {
	c := &chart.Chart{Notes: []chart.Note{
		{TimeSec: 1.0, Lane: 1},
		{TimeSec: 2.0, Lane: 0},
		{TimeSec: 3.0, Lane: 2},
	}}
	geom := testGeometry()
	j := setup(t, c, geom)

	presses := []struct {
		t    float64
		lane int
	}{
		{1.0, 1}, {2.0, 0}, {3.0, 2},
	}
	var total int
	for _, p := range presses {
		j.scheduler.Tick(p.t, 1.0/60)
		popup := j.Press("p1", p.lane, p.t)
		if popup == nil {
			t.Fatalf("expected a hit at t=%v lane=%d", p.t, p.lane)
		}
		if popup.Rating != Perfect {
			t.Fatalf("expected Perfect at t=%v, got %v", p.t, popup.Rating)
		}
		total += popup.Points
	}

	score := j.Score("p1")
	if score.Combo != 3 {
		t.Fatalf("expected combo 3, got %d", score.Combo)
	}
	if score.Score != 330 {
		t.Fatalf("expected score 330 (100+110+120), got %d", score.Score)
	}
}

func TestHoldReleaseRatings(t *testing.T) {
	cases := []struct {
		name       string
		releaseAt  float64
		wantRating Rating
		wantCombo  int
	}{
		{"perfect release", 2.98, Perfect, 2},
		{"ok release", 3.30, Ok, 1},
		{"miss release", 3.50, Miss, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := &chart.Chart{Notes: []chart.Note{{TimeSec: 2.0, Lane: 1, DurSec: 1.0}}}
			geom := testGeometry()
			j := setup(t, c, geom)

			j.scheduler.Tick(2.0, 1.0/60)
			pressPopup := j.Press("p1", 1, 2.0)
			if pressPopup == nil {
				t.Fatalf("expected press to register on hold note head")
			}

			j.scheduler.Tick(tc.releaseAt, tc.releaseAt-2.0)
			popup := j.Release("p1", 1)
			if popup == nil {
				t.Fatalf("expected release popup")
			}
			if popup.Rating != tc.wantRating {
				t.Fatalf("rating = %v, want %v", popup.Rating, tc.wantRating)
			}
			if j.Score("p1").Combo != tc.wantCombo {
				t.Fatalf("combo = %d, want %d", j.Score("p1").Combo, tc.wantCombo)
			}
		})
	}
}

func TestHoldPressAwardsHalvedComboBonus(t *testing.T) {
	c := &chart.Chart{Notes: []chart.Note{
		{TimeSec: 1.0, Lane: 1},
		{TimeSec: 2.0, Lane: 1, DurSec: 1.0},
	}}
	geom := testGeometry()
	j := setup(t, c, geom)

	j.scheduler.Tick(1.0, 1.0/60)
	if popup := j.Press("p1", 1, 1.0); popup == nil || popup.Rating != Perfect {
		t.Fatalf("expected perfect tap to build combo to 1")
	}

	j.scheduler.Tick(2.0, 1.0/60)
	popup := j.Press("p1", 1, 2.0)
	if popup == nil {
		t.Fatalf("expected hold-start press to register")
	}
	// Combo is 1 walking into the hold-start press; comboBonus(100, 1)/2 = 55.
	want := comboBonus(100, 1) / 2
	if popup.Points != want {
		t.Fatalf("hold-start points = %d, want %d (comboBonus(points, combo)/2)", popup.Points, want)
	}
	if j.Score("p1").Combo != 2 {
		t.Fatalf("expected hold-start press to increment combo to 2, got %d", j.Score("p1").Combo)
	}
}

func TestComboBonusFormula(t *testing.T) {
	cases := []struct {
		base, combo, want int
	}{
		{100, 0, 100},
		{100, 1, 110},
		{100, 10, 200},
		{100, 20, 200}, // combo capped at 10 for the bonus
	}
	for _, tc := range cases {
		if got := comboBonus(tc.base, tc.combo); got != tc.want {
			t.Fatalf("comboBonus(%d, %d) = %d, want %d", tc.base, tc.combo, got, tc.want)
		}
	}
}

func TestMissResetsCombo(t *testing.T) {
	c := &chart.Chart{Notes: []chart.Note{{TimeSec: 1.0, Lane: 0}}}
	geom := testGeometry()
	j := setup(t, c, geom)

	for gt := 0.0; gt < 3.0; gt += 1.0 / 60 {
		j.scheduler.Tick(gt, 1.0/60)
	}

	if j.Score("p1").Combo != 0 {
		t.Fatalf("expected combo reset to 0 after miss, got %d", j.Score("p1").Combo)
	}
}

func TestGameOverEmptyChart(t *testing.T) {
	c := &chart.Chart{}
	geom := testGeometry()
	j := setup(t, c, geom)
	j.scheduler.Tick(0, 1.0/60)

	over := j.GameOver()
	if over == nil {
		t.Fatalf("expected game over on empty chart")
	}
	if over.TopScore != 0 {
		t.Fatalf("expected top score 0, got %d", over.TopScore)
	}
	if len(over.WinnerIDs) != 1 || over.WinnerIDs[0] != "p1" {
		t.Fatalf("unexpected winners: %v", over.WinnerIDs)
	}
}

func setup(t *testing.T, c *chart.Chart, geom playfield.Geometry) *Judge {
	t.Helper()
	var j *Judge
	s := playfield.NewScheduler(c, geom, []string{"p1"}, func(n *playfield.LiveNote) { j.OnMissed(n) })
	j = New(s, []string{"p1"})
	return j
}
