package timescan

import (
	"math"

	"glyph-timescan/internal/layout"
	"glyph-timescan/internal/pool"
)

// Snapshot is what a host needs to draw one frame.
type Snapshot struct {
	State
	TotalWidthPx float64
	Playing      bool
}

// Session binds overlay text, its glyphs and a container width to a
// Scheduler. Layout is recomputed from those inputs whenever one changes.
// A Trigger that arrives before any glyphs is remembered and fires as soon
// as glyphs are set.
type Session struct {
	params layout.Params
	sched  *Scheduler

	text           string
	glyphs         []pool.GlyphRecord
	containerWidth float64

	triggerKey uint64
	pending    bool
}

// NewSession returns a session playing on loop.
func NewSession(loop *FrameLoop, params layout.Params, timing Timing) *Session {
	return &Session{params: params, sched: NewScheduler(loop, timing)}
}

// Text returns the overlay text.
func (s *Session) Text() string { return s.text }

// SetText records the overlay text. Glyphs for it are resolved by the host
// and handed over with SetGlyphs.
func (s *Session) SetText(text string) {
	s.text = text
}

// Glyphs returns the current glyph records.
func (s *Session) Glyphs() []pool.GlyphRecord { return s.glyphs }

// SetGlyphs replaces the glyph records, rebuilds the strip and resets
// playback. A pending trigger fires once glyphs are present.
func (s *Session) SetGlyphs(glyphs []pool.GlyphRecord) {
	s.glyphs = glyphs
	s.rebuild()
	if s.pending && len(glyphs) > 0 {
		s.pending = false
		s.fire()
	}
}

// ContainerWidth returns the width the strip is fitted to.
func (s *Session) ContainerWidth() float64 { return s.containerWidth }

// SetContainerWidth refits the strip. Unchanged widths are ignored so a
// running playback survives spurious resize notifications.
func (s *Session) SetContainerWidth(w float64) {
	if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
		w = 0
	}
	if w == s.containerWidth {
		return
	}
	s.containerWidth = w
	s.rebuild()
}

// SetParams changes layout parameters and rebuilds the strip.
func (s *Session) SetParams(p layout.Params) {
	s.params = p
	s.rebuild()
}

func (s *Session) rebuild() {
	s.sched.SetStrip(layout.Build(s.glyphs, s.params, s.containerWidth))
}

// CanTrigger reports whether there is anything to play.
func (s *Session) CanTrigger() bool { return len(s.glyphs) > 0 }

// Trigger requests a playback from the start. Without glyphs the request is
// deferred until SetGlyphs supplies some. It reports whether playback
// started now.
func (s *Session) Trigger() bool {
	if !s.CanTrigger() {
		s.pending = true
		return false
	}
	s.pending = false
	s.fire()
	return true
}

func (s *Session) fire() {
	s.triggerKey++
	s.sched.Play()
}

// TriggerKey counts the playbacks requested so far.
func (s *Session) TriggerKey() uint64 { return s.triggerKey }

// Pending reports whether a trigger waits for glyphs.
func (s *Session) Pending() bool { return s.pending }

// Stop cancels playback and drops a deferred trigger.
func (s *Session) Stop() {
	s.pending = false
	s.sched.Stop()
}

// Strip returns the current layout.
func (s *Session) Strip() layout.Strip { return s.sched.Strip() }

// Playing reports whether a run is in progress.
func (s *Session) Playing() bool { return s.sched.Playing() }

// Snapshot copies the state for drawing.
func (s *Session) Snapshot() Snapshot {
	return Snapshot{
		State:        s.sched.State(),
		TotalWidthPx: s.sched.Strip().TotalWidth,
		Playing:      s.sched.Playing(),
	}
}
