// Package playfield implements the Note Scheduler and the LiveNote
// state machine it drives: spawning ChartNotes onto a scrolling
// playfield so their heads cross the judgment line at chart time.
package playfield

// Geometry is the per-player PlayfieldGeometry: fixed target height,
// spawn height, and fall speed. FallTime is the lead time the
// Scheduler needs before a note's chart time.
type Geometry struct {
	YTarget      float64
	YSpawn       float64
	FallSpeedPxS float64
}

// FallTime returns (y_spawn - y_target) / v.
func (g Geometry) FallTime() float64 {
	return (g.YSpawn - g.YTarget) / g.FallSpeedPxS
}
