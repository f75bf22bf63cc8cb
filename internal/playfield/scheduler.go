package playfield

import (
	"sort"

	"rhythmcore/internal/chart"
)

// reapSlopPx is the "slop" distance reaping allows past y_target: a
// Falling LiveNote whose entire body is below y_target - slop and not
// held transitions to Missed.
const reapSlopPx = 20

// MissedHook is called whenever a LiveNote transitions to Missed on
// reap, so the Judge can reset that player's combo.
type MissedHook func(note *LiveNote)

// Scheduler drives the Chart cursor and the Falling/Held LiveNote sets
// for one shared PlayfieldGeometry. Every playerID spawns its own copy
// of each ChartNote so players are judged independently against a
// shared chart. It is single-threaded: Tick must not be called
// concurrently with itself or with mutation of its LiveNote maps from
// another goroutine.
type Scheduler struct {
	chart           *chart.Chart
	geometry        Geometry
	playerIDs       []string
	visualOffsetSec float64

	cursor   int
	nextID   int
	falling  map[int]*LiveNote
	held     map[int]*LiveNote
	onMissed MissedHook
}

// NewScheduler constructs a Scheduler for a Chart, a shared playfield
// geometry, and the set of player ids who each see their own copy of
// every note.
func NewScheduler(c *chart.Chart, geometry Geometry, playerIDs []string, onMissed MissedHook) *Scheduler {
	return &Scheduler{
		chart:     c,
		geometry:  geometry,
		playerIDs: playerIDs,
		falling:   make(map[int]*LiveNote),
		held:      make(map[int]*LiveNote),
		onMissed:  onMissed,
	}
}

// SetVisualOffsetSec sets the spawn-Y-only visual offset. visual_offset
// shifts spawn Y; audio_offset shifts the Clock anchor; the two never
// interact.
func (s *Scheduler) SetVisualOffsetSec(v float64) {
	s.visualOffsetSec = v
}

// SetMissedHook replaces the MissedHook invoked on reap. Callers that
// need the Scheduler and its hook's target (e.g. a Judge) to reference
// each other construct the Scheduler first with a nil hook, build the
// other side against it, then wire the hook in — avoiding a
// constructor-time cycle.
func (s *Scheduler) SetMissedHook(hook MissedHook) {
	s.onMissed = hook
}

// Geometry returns the shared PlayfieldGeometry this Scheduler uses.
func (s *Scheduler) Geometry() Geometry {
	return s.geometry
}

// Done reports whether the cursor has reached the end of the chart and
// no LiveNotes remain Falling or Held, the game_over condition.
func (s *Scheduler) Done() bool {
	return s.cursor >= len(s.chart.Notes) && len(s.falling) == 0 && len(s.held) == 0
}

// Falling returns the currently Falling LiveNotes in spawn (ID) order,
// owned by the caller only for reading; use Hold/Release to mutate.
func (s *Scheduler) Falling() []*LiveNote {
	out := make([]*LiveNote, 0, len(s.falling))
	for _, n := range s.falling {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Held returns the currently HeldByPlayer LiveNotes.
func (s *Scheduler) Held() []*LiveNote {
	out := make([]*LiveNote, 0, len(s.held))
	for _, n := range s.held {
		out = append(out, n)
	}
	return out
}

// Tick advances the Scheduler by one frame: spawns any notes whose
// effective spawn time has passed, advances Falling Y, accumulates
// hold progress, and reaps notes that have fallen below the judgment
// line unheld.
func (s *Scheduler) Tick(gameTime, dt float64) {
	s.spawn(gameTime)

	for _, n := range s.falling {
		n.Y = n.YAt(gameTime, s.geometry)
	}

	for _, n := range s.held {
		if n.Note.DurSec > 0 {
			n.HoldProgress += dt / n.Note.DurSec
		}
	}

	s.reap(gameTime)
}

// spawn emits, for every player, a LiveNote for each chart index whose
// effective spawn time (t - fall_time) has passed gameTime. late_by
// feeds the initial Y so the head still crosses y_target exactly at
// ChartNote.t regardless of how late the spawn happened.
func (s *Scheduler) spawn(gameTime float64) {
	fallTime := s.geometry.FallTime()
	for s.cursor < len(s.chart.Notes) {
		note := s.chart.Notes[s.cursor]
		spawnedAt := note.TimeSec - fallTime
		if spawnedAt > gameTime {
			return
		}
		for _, playerID := range s.playerIDs {
			live := &LiveNote{
				ID:                s.nextID,
				ChartIndex:        s.cursor,
				Note:              note,
				PlayerID:          playerID,
				State:             Falling,
				spawnedAtGameTime: spawnedAt,
				visualOffsetPxs:   s.visualOffsetSec * s.geometry.FallSpeedPxS,
			}
			s.nextID++
			live.Y = live.YAt(gameTime, s.geometry)
			s.falling[live.ID] = live
		}
		s.cursor++
	}
}

// reap removes Falling LiveNotes whose body has fully passed the
// judgment line without being hit.
func (s *Scheduler) reap(gameTime float64) {
	for id, n := range s.falling {
		tailTime := gameTime
		if n.IsHold() {
			tailTime = gameTime - n.Note.DurSec
		}
		tailY := n.YAt(tailTime, s.geometry)
		if tailY < s.geometry.YTarget-reapSlopPx {
			n.State = Missed
			delete(s.falling, id)
			if s.onMissed != nil {
				s.onMissed(n)
			}
		}
	}
}

// Hold transitions a Falling LiveNote to HeldByPlayer. The Judge calls
// this once a press has been matched to a hold note.
func (s *Scheduler) Hold(id int) {
	n, ok := s.falling[id]
	if !ok {
		return
	}
	delete(s.falling, id)
	n.State = HeldByPlayer
	n.HoldProgress = 0
	s.held[id] = n
}

// Release removes a HeldByPlayer LiveNote and marks it with the
// caller's final state (Completed or Missed).
func (s *Scheduler) Release(id int, final State) *LiveNote {
	n, ok := s.held[id]
	if !ok {
		return nil
	}
	delete(s.held, id)
	n.State = final
	return n
}

// RemoveFalling removes a Falling tap LiveNote once the Judge has
// matched and scored it.
func (s *Scheduler) RemoveFalling(id int) *LiveNote {
	n, ok := s.falling[id]
	if !ok {
		return nil
	}
	delete(s.falling, id)
	n.State = Completed
	return n
}

// Clear drops every Falling and HeldByPlayer LiveNote without marking
// them Missed or invoking the MissedHook; the runtime calls this on
// stop(), per spec.md section 5's "clears all LiveNotes and held-state."
// The cursor is left in place, since stop() does not rewind the chart.
func (s *Scheduler) Clear() {
	s.falling = make(map[int]*LiveNote)
	s.held = make(map[int]*LiveNote)
}
