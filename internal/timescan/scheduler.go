// Package timescan animates a laid-out strip: glyphs start flickering one
// after another, settle, and a reveal mask sweeps over them.
//
// All mutation happens on the host's loop goroutine, either inside a frame
// callback or inside Play and Stop. A run id invalidates callbacks that
// belong to an earlier run.
package timescan

import (
	"math"
	"time"

	"glyph-timescan/internal/config"
	"glyph-timescan/internal/layout"
)

// Timing controls how fast glyphs start and how long each one flickers.
type Timing struct {
	GlyphsPerSecond  float64
	FlickerSteps     int
	EffectDurationMs float64
}

// TimingFrom extracts timing from the options.
func TimingFrom(o config.Options) Timing {
	return Timing{
		GlyphsPerSecond:  o.Animation.GlyphsPerSecond,
		FlickerSteps:     o.Animation.FlickerSteps,
		EffectDurationMs: o.Animation.EffectDurationMs,
	}
}

// ScanStepMs is the delay between two glyph starts, at least 1ms.
func (t Timing) ScanStepMs() float64 {
	gps := config.Finite(t.GlyphsPerSecond, 0)
	if gps <= 0 {
		return math.Max(1, 1000/config.Default().Animation.GlyphsPerSecond)
	}
	return math.Max(1, 1000/gps)
}

// GlyphDurationMs is how long one glyph flickers, at least 1ms. A
// non-finite duration falls back to the default.
func (t Timing) GlyphDurationMs() float64 {
	return math.Max(1, config.Finite(t.EffectDurationMs, config.Default().Animation.EffectDurationMs))
}

// StepDurationMs is the time one flicker layer stays up, at least 1ms.
func (t Timing) StepDurationMs() float64 {
	return math.Max(1, t.GlyphDurationMs()/float64(max(1, t.FlickerSteps)))
}

// TotalMs is the playback length for n glyphs.
func (t Timing) TotalMs(n int) float64 {
	if n <= 0 {
		return 0
	}
	return float64(n-1)*t.ScanStepMs() + t.GlyphDurationMs()
}

// Phase is a glyph's place in its lifecycle.
type Phase int

const (
	Pending Phase = iota
	Flickering
	Settled
)

func (p Phase) String() string {
	switch p {
	case Pending:
		return "pending"
	case Flickering:
		return "flickering"
	case Settled:
		return "settled"
	}
	return "unknown"
}

// State is the per-glyph animation state plus the reveal width.
type State struct {
	Visible         []bool
	ActiveLayer     []int
	ConsumedHidden  []bool
	OverlayRevealPx float64
	RunID           uint64
}

func newState(n int, runID uint64) State {
	s := State{
		Visible:        make([]bool, n),
		ActiveLayer:    make([]int, n),
		ConsumedHidden: make([]bool, n),
		RunID:          runID,
	}
	for i := range s.ActiveLayer {
		s.ActiveLayer[i] = -1
	}
	return s
}

// Phase derives glyph i's phase from its flags.
func (s State) Phase(i int) Phase {
	switch {
	case s.ConsumedHidden[i]:
		return Settled
	case s.Visible[i]:
		return Flickering
	}
	return Pending
}

func (s State) clone() State {
	return State{
		Visible:         append([]bool(nil), s.Visible...),
		ActiveLayer:     append([]int(nil), s.ActiveLayer...),
		ConsumedHidden:  append([]bool(nil), s.ConsumedHidden...),
		OverlayRevealPx: s.OverlayRevealPx,
		RunID:           s.RunID,
	}
}

// Scheduler plays one strip at a time on a FrameLoop.
type Scheduler struct {
	loop   *FrameLoop
	timing Timing
	strip  layout.Strip

	state State
	runID uint64

	frame    FrameID
	hasFrame bool
	start    time.Duration
	started  bool
	playing  bool
}

// NewScheduler returns an idle scheduler with an empty strip.
func NewScheduler(loop *FrameLoop, timing Timing) *Scheduler {
	return &Scheduler{loop: loop, timing: timing, state: newState(0, 0)}
}

// SetStrip replaces the strip and resets all state. Playback, if any, is
// stopped; the new strip is not started.
func (s *Scheduler) SetStrip(strip layout.Strip) {
	s.strip = strip
	s.Stop()
}

// SetTiming changes timing for the next run.
func (s *Scheduler) SetTiming(t Timing) { s.timing = t }

// Strip returns the current strip.
func (s *Scheduler) Strip() layout.Strip { return s.strip }

// Playing reports whether a run is in progress.
func (s *Scheduler) Playing() bool { return s.playing }

// RunID returns the current run id.
func (s *Scheduler) RunID() uint64 { return s.runID }

// State returns a copy of the animation state.
func (s *Scheduler) State() State { return s.state.clone() }

// Stop cancels playback and resets every glyph to Pending with no reveal.
// It is synchronous and idempotent.
func (s *Scheduler) Stop() {
	s.runID++
	s.reset()
}

// Play starts a run from the beginning, stopping any run in progress.
// An empty strip only resets.
func (s *Scheduler) Play() {
	s.runID++
	s.reset()
	if s.strip.Len() == 0 {
		return
	}
	s.playing = true
	s.schedule(s.runID)
}

func (s *Scheduler) reset() {
	if s.hasFrame {
		s.loop.CancelFrame(s.frame)
		s.hasFrame = false
	}
	s.started = false
	s.playing = false
	s.state = newState(s.strip.Len(), s.runID)
}

func (s *Scheduler) schedule(runID uint64) {
	s.frame = s.loop.RequestFrame(func(ts time.Duration) { s.animate(runID, ts) })
	s.hasFrame = true
}

func (s *Scheduler) animate(runID uint64, ts time.Duration) {
	if runID != s.runID {
		return
	}
	s.hasFrame = false
	if !s.started {
		s.start, s.started = ts, true
	}

	elapsed := float64(ts-s.start) / float64(time.Millisecond)
	n := s.strip.Len()
	scanStep := s.timing.ScanStepMs()
	duration := s.timing.GlyphDurationMs()
	stepDuration := s.timing.StepDurationMs()
	steps := max(1, s.timing.FlickerSteps)

	furthest := -1
	st := &s.state
	for i := 0; i < n; i++ {
		start := float64(i) * scanStep
		var variants []string
		if i < len(s.strip.Variants) {
			variants = s.strip.Variants[i]
		}
		switch {
		case elapsed < start:
			st.Visible[i], st.ActiveLayer[i], st.ConsumedHidden[i] = false, -1, false
		case elapsed >= start+duration || len(variants) == 0:
			furthest = i
			st.Visible[i], st.ActiveLayer[i], st.ConsumedHidden[i] = false, -1, true
		default:
			step := min(steps-1, int(math.Floor((elapsed-start)/stepDuration)))
			st.Visible[i], st.ActiveLayer[i], st.ConsumedHidden[i] = true, step%len(variants), false
		}
	}
	if furthest >= 0 {
		s.revealThrough(furthest)
	}

	if elapsed >= s.timing.TotalMs(n) {
		st.OverlayRevealPx = s.strip.TotalWidth
		s.playing = false
		s.started = false
		return
	}
	s.schedule(runID)
}

func (s *Scheduler) revealThrough(i int) {
	w := 0.0
	if i < len(s.strip.RevealWidths) {
		w = s.strip.RevealWidths[i]
	}
	w = math.Min(w, s.strip.TotalWidth)
	s.state.OverlayRevealPx = math.Max(s.state.OverlayRevealPx, w)
}
