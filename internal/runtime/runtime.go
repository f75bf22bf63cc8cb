// Package runtime wires the Clock/Sync Service, Note Scheduler, and
// Judge into the single-threaded hot path described in spec.md section
// 5: a tick(dt) entry point that advances game_time, spawns/reaps
// LiveNotes, and scores input, with play start/stop and the deferred
// audio-start schedule as an explicit state machine rather than
// callback/coroutine control flow. It is the Provider the optional
// status server (internal/httpapi) polls. The same Runtime also
// drives the two Recorder/Calibrator sessions (ModeRecording,
// ModeCalibrating) that feed the recorded chart and the measured
// input-latency offset back into this package's own Clock.
package runtime

import (
	"container/heap"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"rhythmcore/internal/chart"
	"rhythmcore/internal/clock"
	"rhythmcore/internal/config"
	"rhythmcore/internal/errs"
	"rhythmcore/internal/httpapi"
	"rhythmcore/internal/judge"
	"rhythmcore/internal/playfield"
	"rhythmcore/internal/recorder"
)

// AudioDevice is the external collaborator the Clock Service drives
// exclusively: play/stop and a queryable playback position. Callers
// supply a concrete implementation backed by whatever audio library
// the embedding application already uses; this package never decodes
// or mixes audio itself.
type AudioDevice interface {
	// Play begins playback from the start of the track. It returns
	// errs.ErrAudioDeviceBusy if the device is already in use by
	// another session.
	Play() error
	// Stop silences playback immediately.
	Stop()
	// PositionSec returns the current playback position in seconds and
	// true, or false if the position is not currently available (audio
	// hasn't started, or the device can't report it this tick).
	PositionSec() (float64, bool)
}

// deferredEvent is one entry in the min-heap of scheduled callbacks
// keyed by game_time, per the design note that deferred audio-start
// scheduling (and anything like it) should be a heap rather than a
// one-off timer goroutine.
type deferredEvent struct {
	at float64
	fn func()
}

// eventHeap implements container/heap.Interface, ordering deferredEvents
// by scheduled game_time.
type eventHeap []deferredEvent

func (h eventHeap) Len() int           { return len(h) }
func (h eventHeap) Less(i, j int) bool { return h[i].at < h[j].at }
func (h eventHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *eventHeap) Push(x any) { *h = append(*h, x.(deferredEvent)) }

func (h *eventHeap) Pop() any {
	old := *h
	n := len(old)
	ev := old[n-1]
	*h = old[:n-1]
	return ev
}

// Runtime owns one play session: the Clock, Scheduler, and Judge for a
// single Chart, plus the injected audio device and the deferred-event
// queue that implements spec.md's audio_start_delay scheduling. It is
// not safe for concurrent use; Tick, Press, and Release must all be
// called from the same hot-path goroutine (spec.md section 5).
type Runtime struct {
	sessionID string
	logger    *slog.Logger
	cfg       *config.Config

	clock     *clock.Clock
	geom      playfield.Geometry
	scheduler *playfield.Scheduler
	judge     *judge.Judge
	audio     AudioDevice

	playerIDs       []string
	audioOffsetSec  float64
	mode            httpapi.Mode
	lastErr         error
	audioAnchored   bool
	pending         eventHeap
	lastGameTimeSec float64

	rec            *recorder.Recorder
	calibrator     *recorder.Calibrator
	calibScheduler *playfield.Scheduler
}

// New constructs a Runtime for one Chart and player set, sharing a
// single PlayfieldGeometry across players (spec.md section 3). audio
// may be nil, in which case game_time runs on pure wall-clock for the
// whole session (spec.md section 7's fallback behaviour). nowFn
// defaults to time.Now; tests inject a fake clock for determinism.
func New(cfg *config.Config, logger *slog.Logger, c *chart.Chart, geom playfield.Geometry, audio AudioDevice, playerIDs []string, nowFn func() time.Time) *Runtime {
	if logger == nil {
		logger = slog.Default()
	}
	sessionID := uuid.New().String()
	rt := &Runtime{
		sessionID: sessionID,
		logger:    logger.With("session_id", sessionID),
		cfg:       cfg,
		audio:     audio,
		playerIDs: append([]string(nil), playerIDs...),
		mode:      httpapi.ModeIdle,
	}
	// The Scheduler needs the Judge's MissedHook and the Judge needs the
	// Scheduler to read candidate LiveNotes from; break the cycle (spec.md
	// section 9: cyclic object graphs resolve to one-way references) by
	// constructing the Scheduler with no hook, then the Judge against it,
	// then wiring the Judge's OnMissed back in.
	rt.geom = geom
	rt.scheduler = playfield.NewScheduler(c, geom, playerIDs, nil)
	rt.judge = judge.New(rt.scheduler, playerIDs)
	rt.scheduler.SetMissedHook(rt.judge.OnMissed)
	rt.clock = clock.New(logger, nowFn, cfg.LatencyCompSec, cfg.VisualOffsetSec)
	rt.scheduler.SetVisualOffsetSec(cfg.VisualOffsetSec)
	return rt
}

// SetAudioOffsetSec sets the calibrated audio_offset that will be
// applied the next time the Clock anchors to audio, per the open
// question in spec.md section 9: audio_offset shifts the Clock anchor
// only, independent of visual_offset.
func (rt *Runtime) SetAudioOffsetSec(v float64) {
	rt.audioOffsetSec = v
}

// Start marks play_started: game_time begins advancing at wall-clock
// rate immediately, and audio playback is scheduled audio_start_delay
// seconds in the future (spec.md section 4.C). Notes begin spawning on
// the very next Tick, independent of when audio actually starts.
func (rt *Runtime) Start() {
	rt.clock.Start()
	rt.mode = httpapi.ModePlaying
	rt.lastErr = nil
	rt.audioAnchored = false
	rt.scheduleAt(rt.cfg.AudioStartDelay, rt.startAudio)
}

// scheduleAt pushes a deferred callback keyed by the game_time it
// should fire at.
func (rt *Runtime) scheduleAt(delaySec float64, fn func()) {
	heap.Push(&rt.pending, deferredEvent{at: rt.clock.GameTime() + delaySec, fn: fn})
}

// startAudio fires when the deferred audio-start event's time has
// passed. A busy device is reported as an advisory error and never
// aborts play: game_time simply continues on wall-clock rate, matching
// spec.md section 7's "missing audio position ⇒ fall back to pure
// wall-clock game_time."
func (rt *Runtime) startAudio() {
	if rt.audio == nil {
		return
	}
	if err := rt.audio.Play(); err != nil {
		rt.lastErr = fmt.Errorf("audio start failed: %w", err)
		if errors.Is(err, errs.ErrAudioDeviceBusy) {
			rt.logger.Warn("audio device busy, continuing on wall-clock time", "component", "runtime.audio", "error", err)
		} else {
			rt.logger.Warn("audio start failed, continuing on wall-clock time", "component", "runtime.audio", "error", err)
		}
		return
	}
	rt.clock.AnchorAudio(rt.audioOffsetSec)
	rt.audioAnchored = true
}

// fireDue runs every deferred event whose scheduled game_time has
// passed, in time order.
func (rt *Runtime) fireDue() {
	now := rt.clock.GameTime()
	for len(rt.pending) > 0 && rt.pending[0].at <= now {
		ev := heap.Pop(&rt.pending).(deferredEvent)
		ev.fn()
	}
}

// Tick is the single hot-path entry point: it must never perform disk
// I/O or audio decoding (spec.md section 5). It advances game_time,
// fires any due deferred events, and — depending on mode — advances
// either the play Scheduler or the calibration session's synthetic
// click Scheduler.
func (rt *Runtime) Tick(dt float64) {
	if rt.mode != httpapi.ModePlaying && rt.mode != httpapi.ModeCalibrating && rt.mode != httpapi.ModeRecording {
		return
	}

	rt.fireDue()

	audioPos := -1.0
	if rt.audioAnchored && rt.audio != nil {
		if pos, ok := rt.audio.PositionSec(); ok {
			audioPos = pos
		}
	}
	rt.clock.Tick(audioPos)
	rt.fireDue()

	gt := rt.clock.GameTime()
	rt.lastGameTimeSec = gt

	switch rt.mode {
	case httpapi.ModePlaying:
		rt.scheduler.Tick(gt, dt)
		if over := rt.judge.GameOver(); over != nil {
			rt.mode = httpapi.ModeGameOver
		}
	case httpapi.ModeCalibrating:
		rt.calibScheduler.Tick(gt, dt)
	case httpapi.ModeRecording:
		// game_time advances; notes accumulate only on Press/Release.
	}
}

// Press feeds a press event into the Judge. tPressSec is the caller's
// raw event timestamp on the audio-playback axis; Runtime subtracts
// latency_comp_sec before matching, per spec.md section 4.E.
func (rt *Runtime) Press(playerID string, lane int, tPressSec float64) *judge.Popup {
	if rt.mode != httpapi.ModePlaying {
		return nil
	}
	adjusted := tPressSec - rt.clock.LatencyCompSec()
	popup := rt.judge.Press(playerID, lane, adjusted)
	return popup
}

// Release feeds a release event into the Judge for playerID's
// currently held note in lane, if any.
func (rt *Runtime) Release(playerID string, lane int) *judge.Popup {
	if rt.mode != httpapi.ModePlaying {
		return nil
	}
	return rt.judge.Release(playerID, lane)
}

// Stop halts audio, clears all LiveNotes and held-state, cancels any
// pending audio-start schedule, and freezes ScoreState for inspection
// (spec.md section 5's cancellation contract).
func (rt *Runtime) Stop() {
	if rt.audio != nil {
		rt.audio.Stop()
	}
	rt.clock.Stop()
	rt.scheduler.Clear()
	rt.pending = nil
	rt.rec = nil
	rt.calibrator = nil
	rt.calibScheduler = nil
	rt.mode = httpapi.ModeIdle
}

// StartRecording begins a live-recording session: game_time starts
// over from zero on the shared Clock (no audio anchor; recording runs
// on pure wall-clock time) and RecordPress/RecordRelease begin
// accumulating notes. A prior recording or calibration session, if
// any, is discarded.
func (rt *Runtime) StartRecording() {
	rt.rec = recorder.New()
	rt.calibrator = nil
	rt.calibScheduler = nil
	rt.clock.Start()
	rt.mode = httpapi.ModeRecording
}

// RecordPress feeds a press into the open recording session. It is a
// no-op outside ModeRecording.
func (rt *Runtime) RecordPress(lane int) {
	if rt.mode != httpapi.ModeRecording {
		return
	}
	rt.rec.Press(lane, rt.clock.GameTime())
}

// RecordRelease feeds a release into the open recording session. It is
// a no-op outside ModeRecording.
func (rt *Runtime) RecordRelease(lane int) {
	if rt.mode != httpapi.ModeRecording {
		return
	}
	rt.rec.Release(lane, rt.clock.GameTime())
}

// StopRecording ends the recording session and returns the recorded
// Chart, or nil if no recording session was open.
func (rt *Runtime) StopRecording(name, file string, bpm int, duration float64, difficulty chart.Difficulty) *chart.Chart {
	if rt.rec == nil {
		return nil
	}
	c := rt.rec.Stop(rt.clock.GameTime(), name, file, bpm, duration, difficulty)
	rt.rec = nil
	rt.clock.Stop()
	rt.mode = httpapi.ModeIdle
	return c
}

// StartCalibration begins a calibration session: a synthetic
// single-lane click chart is driven through its own Scheduler (sharing
// the play session's Geometry) so CalibrationTap can match taps to
// click notes exactly the way Press matches taps to chart notes.
func (rt *Runtime) StartCalibration() {
	rt.clock.Start()
	rt.calibrator = recorder.NewCalibrator(rt.clock.GameTime())
	rt.rec = nil

	lane := rt.calibrator.Lane()
	notes := make([]chart.Note, len(rt.calibrator.ExpectedTicks()))
	for i, t := range rt.calibrator.ExpectedTicks() {
		notes[i] = chart.Note{TimeSec: t, Lane: lane}
	}
	calibChart := &chart.Chart{Notes: notes}
	rt.calibScheduler = playfield.NewScheduler(calibChart, rt.geom, []string{"calibration"}, nil)

	rt.mode = httpapi.ModeCalibrating
}

// CalibrationTap matches a tap against the nearest falling click note
// and records its timing offset with the open Calibrator. It is a
// no-op outside ModeCalibrating or once every click has been consumed.
func (rt *Runtime) CalibrationTap() {
	if rt.mode != httpapi.ModeCalibrating {
		return
	}
	lane := rt.calibrator.Lane()
	var best *playfield.LiveNote
	bestD := -1.0
	for _, n := range rt.calibScheduler.Falling() {
		if n.Note.Lane != lane {
			continue
		}
		d := absf(n.Y - rt.geom.YTarget)
		if best == nil || d < bestD {
			best = n
			bestD = d
		}
	}
	if best == nil {
		return
	}
	rt.calibrator.Tap(best.Y, rt.geom.YTarget, rt.geom.FallSpeedPxS)
	rt.calibScheduler.RemoveFalling(best.ID)
}

// StopCalibration ends the calibration session, applies the measured
// offset as the new audio_offset_sec if enough taps were recorded, and
// returns the measured offset. errs.ErrInsufficientSamples is returned
// (and audio_offset_sec left unchanged) if fewer than the minimum
// number of taps were recorded.
func (rt *Runtime) StopCalibration() (float64, error) {
	if rt.calibrator == nil {
		return 0, errs.ErrInsufficientSamples
	}
	offset, err := rt.calibrator.Result()
	rt.calibrator = nil
	rt.calibScheduler = nil
	rt.clock.Stop()
	rt.mode = httpapi.ModeIdle
	if err != nil {
		rt.logger.Warn("calibration degraded, audio offset unchanged", "component", "runtime.calibration", "error", err)
		return 0, err
	}
	rt.SetAudioOffsetSec(offset)
	return offset, nil
}

func absf(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// GameTime returns the current game_time, mainly for tests that want
// to assert against the Scheduler/Judge independent of Tick's return.
func (rt *Runtime) GameTime() float64 {
	return rt.lastGameTimeSec
}

// Snapshot implements httpapi.Provider: a read-only view of the
// current mode, last error, computed offsets, and the first player's
// score/combo, for an optional introspection overlay.
func (rt *Runtime) Snapshot() httpapi.Snapshot {
	snap := httpapi.Snapshot{
		Mode:            rt.mode,
		AudioOffsetSec:  rt.audioOffsetSec,
		VisualOffsetSec: rt.cfg.VisualOffsetSec,
		LatencyCompSec:  rt.cfg.LatencyCompSec,
	}
	if rt.lastErr != nil {
		snap.LastError = rt.lastErr.Error()
	}
	if len(rt.playerIDs) > 0 {
		if s := rt.judge.Score(rt.playerIDs[0]); s != nil {
			snap.Score = s.Score
			snap.Combo = s.Combo
		}
	}
	return snap
}

// SessionID identifies this play session for log correlation, in the
// same spirit as the teacher's per-job uuid.New().String() ids.
func (rt *Runtime) SessionID() string {
	return rt.sessionID
}
