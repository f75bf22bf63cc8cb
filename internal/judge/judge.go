// Package judge converts input events into rated hits against the
// Scheduler's Falling/Held LiveNotes, maintains per-player score and
// combo, and emits popups and the end-of-game event.
package judge

import (
	"sort"

	"rhythmcore/internal/playfield"
)

// Rating is the category a hit or release falls into.
type Rating string

const (
	Perfect Rating = "perfect"
	Great   Rating = "great"
	Good    Rating = "good"
	Ok      Rating = "ok"
	Miss    Rating = "miss"
)

// Popup is a transient scoring event the UI renders near the judgment
// line.
type Popup struct {
	PlayerID string
	Lane     int
	Rating   Rating
	Points   int
}

// ScoreState is a player's running score and combo. Score never
// decreases during chart playback; combo resets to 0 on Miss.
type ScoreState struct {
	Score int
	Combo int
}

// GameOver is emitted once the scheduler cursor has reached the end of
// the chart and no LiveNotes remain Falling or Held.
type GameOver struct {
	WinnerIDs []string
	TopScore  int
}

// radii together define the pixel hit window: events further than
// head_radius + target_radius from y_target are ignored outright.
const (
	headRadiusPx   = 20
	targetRadiusPx = 20
	hitWindowPx    = headRadiusPx + targetRadiusPx
)

// Judge holds the Scheduler it judges against and per-player score
// state. It is single-threaded, matching the runtime's hot-path model.
type Judge struct {
	scheduler *playfield.Scheduler
	scores    map[string]*ScoreState
}

// New constructs a Judge for the given scheduler and player ids.
func New(scheduler *playfield.Scheduler, playerIDs []string) *Judge {
	scores := make(map[string]*ScoreState, len(playerIDs))
	for _, id := range playerIDs {
		scores[id] = &ScoreState{}
	}
	return &Judge{scheduler: scheduler, scores: scores}
}

// Score returns the ScoreState for a player, or nil if unknown.
func (j *Judge) Score(playerID string) *ScoreState {
	return j.scores[playerID]
}

// OnMissed resets a player's combo when the Scheduler reaps an unhit
// LiveNote; wire this as the Scheduler's MissedHook.
func (j *Judge) OnMissed(n *playfield.LiveNote) {
	if s, ok := j.scores[n.PlayerID]; ok {
		s.Combo = 0
	}
}

// Press matches a press event to the closest eligible Falling LiveNote
// in (player, lane) and scores it, measuring each candidate's head at
// gameTime. gameTime is already on the chart axis (caller has
// subtracted latency_comp_sec). Returns nil if no LiveNote was within
// the hit window.
func (j *Judge) Press(playerID string, lane int, gameTime float64) *Popup {
	candidates := j.candidates(playerID, lane)
	if len(candidates) == 0 {
		return nil
	}

	yTarget := geometryYTarget(j.scheduler)
	best, d := closest(candidates, yTarget, gameTime, j.scheduler.Geometry())
	if best == nil {
		return nil
	}
	if d > hitWindowPx {
		return nil
	}

	rating, points := pixelRating(d)
	score := j.scores[playerID]

	if best.IsHold() {
		j.scheduler.Hold(best.ID)
		if score != nil {
			awarded := comboBonus(points, score.Combo) / 2
			score.Combo++
			score.Score += awarded
			return &Popup{PlayerID: playerID, Lane: lane, Rating: rating, Points: awarded}
		}
		return &Popup{PlayerID: playerID, Lane: lane, Rating: rating, Points: points / 2}
	}

	j.scheduler.RemoveFalling(best.ID)
	if score != nil {
		awarded := comboBonus(points, score.Combo)
		score.Combo++
		score.Score += awarded
		return &Popup{PlayerID: playerID, Lane: lane, Rating: rating, Points: awarded}
	}
	return &Popup{PlayerID: playerID, Lane: lane, Rating: rating, Points: points}
}

// Release matches a release event to a player's currently held note in
// lane and scores it by hold_progress epsilon. Returns nil if the
// player holds nothing in that lane.
func (j *Judge) Release(playerID string, lane int) *Popup {
	var held *playfield.LiveNote
	for _, n := range j.scheduler.Held() {
		if n.PlayerID == playerID && n.Note.Lane == lane {
			held = n
			break
		}
	}
	if held == nil {
		return nil
	}

	eps := absf(held.HoldProgress - 1.0)
	rating, points, comboDelta := holdRating(eps)

	final := playfield.Completed
	if rating == Miss {
		final = playfield.Missed
	}
	j.scheduler.Release(held.ID, final)

	score := j.scores[playerID]
	if score == nil {
		return &Popup{PlayerID: playerID, Lane: lane, Rating: rating, Points: points}
	}

	if comboDelta < 0 {
		score.Combo = 0
		return &Popup{PlayerID: playerID, Lane: lane, Rating: rating, Points: 0}
	}

	awarded := comboBonus(points, score.Combo)
	score.Combo += comboDelta
	score.Score += awarded
	return &Popup{PlayerID: playerID, Lane: lane, Rating: rating, Points: awarded}
}

// GameOver reports the end-of-game event if the Scheduler is Done,
// with ties possible among the highest scorers.
func (j *Judge) GameOver() *GameOver {
	if !j.scheduler.Done() {
		return nil
	}
	top := -1
	for _, s := range j.scores {
		if s.Score > top {
			top = s.Score
		}
	}
	var winners []string
	for id, s := range j.scores {
		if s.Score == top {
			winners = append(winners, id)
		}
	}
	sort.Strings(winners)
	return &GameOver{WinnerIDs: winners, TopScore: top}
}

func (j *Judge) candidates(playerID string, lane int) []*playfield.LiveNote {
	var out []*playfield.LiveNote
	for _, n := range j.scheduler.Falling() {
		if n.PlayerID == playerID && n.Note.Lane == lane {
			out = append(out, n)
		}
	}
	return out
}

// closest picks the candidate whose head, at gameTime, is nearest
// yTarget, breaking ties by the lowest Chart index, and returns that
// distance.
func closest(notes []*playfield.LiveNote, yTarget, gameTime float64, geom playfield.Geometry) (*playfield.LiveNote, float64) {
	var best *playfield.LiveNote
	bestD := 0.0
	for _, n := range notes {
		d := absf(n.YAt(gameTime, geom) - yTarget)
		if best == nil || d < bestD || (d == bestD && n.ChartIndex < best.ChartIndex) {
			best = n
			bestD = d
		}
	}
	return best, bestD
}

// pixelRating maps a hit's pixel distance from y_target to a rating.
func pixelRating(d float64) (Rating, int) {
	switch {
	case d < 15:
		return Perfect, 100
	case d < 30:
		return Great, 75
	case d < 45:
		return Good, 50
	default:
		return Ok, 25
	}
}

// holdRating maps a hold-release timing epsilon to a rating. A
// negative comboDelta signals a combo reset.
func holdRating(eps float64) (Rating, int, int) {
	switch {
	case eps < 0.05:
		return Perfect, 100, 1
	case eps < 0.10:
		return Great, 75, 1
	case eps < 0.20:
		return Good, 50, 1
	case eps < 0.35:
		return Ok, 25, 0
	default:
		return Miss, 0, -1
	}
}

// comboBonus applies base * (1 + min(combo, 10)/10), floored.
func comboBonus(base, combo int) int {
	if combo > 10 {
		combo = 10
	}
	return base + (base*combo)/10
}

func geometryYTarget(s *playfield.Scheduler) float64 {
	// Read from the Scheduler's own Geometry: Judge keeps none of its
	// own so this package never drifts from the Scheduler's notion of
	// y_target.
	return s.Geometry().YTarget
}

func absf(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
