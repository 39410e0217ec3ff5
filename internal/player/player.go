// Package player runs a timescan in a terminal: it resolves overlay text to
// glyphs, drives playback from a ticker and redraws on every frame.
package player

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gdamore/tcell/v2"

	"glyph-timescan/assets"
	"glyph-timescan/internal/config"
	"glyph-timescan/internal/layout"
	"glyph-timescan/internal/pool"
	"glyph-timescan/internal/render"
	"glyph-timescan/internal/timescan"
)

// GlyphSource resolves overlay text into the glyphs covering it.
// *pool.Resolver implements it.
type GlyphSource interface {
	Resolve(ctx context.Context, text string, minGlyphs int) []pool.GlyphRecord
}

// Options configures a Player.
type Options struct {
	Config    config.Options
	Source    GlyphSource
	Texts     []string // cycled with the next key; empty means the demo texts
	MinGlyphs int      // 0 means Config.Animation.MinGlyphs
	SessionID string
	Logger    *slog.Logger
}

// Player is one viewer's timescan. It is driven by Run and must not be
// shared between goroutines.
type Player struct {
	screen   tcell.Screen
	renderer *render.Renderer
	loop     *timescan.FrameLoop
	session  *timescan.Session
	source   GlyphSource
	log      *slog.Logger

	texts     []string
	idx       int
	minGlyphs int
	sessionID string
	interval  time.Duration

	message    string
	wasPlaying bool
	playStart  time.Time
	epoch      time.Time

	now    func() time.Time
	record func(PlayLog)
}

// New creates a Player drawing on screen. The screen must be initialised.
func New(screen tcell.Screen, opts Options) (*Player, error) {
	if screen == nil {
		return nil, errors.New("player: nil screen")
	}
	if opts.Source == nil {
		return nil, errors.New("player: nil glyph source")
	}
	cfg := opts.Config.Sanitize()
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	texts := opts.Texts
	if len(texts) == 0 {
		texts = assets.DemoTexts
	}
	minGlyphs := opts.MinGlyphs
	if minGlyphs <= 0 {
		minGlyphs = cfg.Animation.MinGlyphs
	}
	interval := cfg.Animation.FrameInterval
	if interval <= 0 {
		interval = config.Default().Animation.FrameInterval
	}

	loop := timescan.NewFrameLoop()
	return &Player{
		screen:    screen,
		renderer:  render.NewRenderer(screen, cfg.Layout.CellWidthPx, cfg.Layout.CellHeightPx),
		loop:      loop,
		session:   timescan.NewSession(loop, layout.ParamsFrom(cfg), timescan.TimingFrom(cfg)),
		source:    opts.Source,
		log:       logger,
		texts:     texts,
		minGlyphs: pool.MinGlyphs(float64(minGlyphs)),
		sessionID: opts.SessionID,
		interval:  interval,
		now:       time.Now,
		record:    newPlayRecorder(logger).Record,
	}, nil
}

// Run plays the first text and then handles input until the viewer quits,
// the screen is finalised or ctx is cancelled. Only cancellation returns an
// error.
func (p *Player) Run(ctx context.Context) error {
	done := make(chan struct{})
	defer close(done)

	// Start an async input reader goroutine.
	eventCh := make(chan tcell.Event, 32)
	go func() {
		for {
			ev := p.screen.PollEvent()
			if ev == nil {
				close(eventCh)
				return
			}
			select {
			case eventCh <- ev:
			case <-done:
				return
			}
		}
	}()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.epoch = p.now()
	p.session.SetContainerWidth(p.renderer.ContainerWidthPx())
	p.selectText(ctx, 0)
	p.play()
	p.draw()

	for {
		select {
		case <-ctx.Done():
			p.interrupt("cancelled")
			return ctx.Err()
		case ev, ok := <-eventCh:
			if !ok {
				p.interrupt("disconnected")
				return nil
			}
			switch ev := ev.(type) {
			case *tcell.EventResize:
				p.screen.Sync()
				p.resize()
			case *tcell.EventKey:
				if !p.handle(ctx, keyToAction(ev)) {
					return nil
				}
			}
			p.draw()
		case <-ticker.C:
			if p.tick() {
				p.draw()
			}
		}
	}
}

// handle applies one action. It returns false when the player should exit.
func (p *Player) handle(ctx context.Context, a Action) bool {
	switch a {
	case ActionPlay:
		p.interrupt("restarted")
		p.play()
	case ActionStop:
		p.interrupt("stopped")
		p.session.Stop()
	case ActionNext:
		p.interrupt("skipped")
		p.selectText(ctx, p.idx+1)
		p.play()
	case ActionQuit:
		p.interrupt("quit")
		return false
	}
	return true
}

// selectText makes texts[i] the overlay text and resolves its glyphs.
func (p *Player) selectText(ctx context.Context, i int) {
	p.idx = i % len(p.texts)
	text := p.texts[p.idx]
	p.session.Stop()
	p.session.SetText(text)
	glyphs := p.source.Resolve(ctx, text, p.minGlyphs)
	p.session.SetGlyphs(glyphs)
	p.message = ""
	if len(glyphs) == 0 {
		p.message = "no glyphs for this text"
	}
	p.log.Debug("text selected", "session", p.sessionID, "text", text, "glyphs", len(glyphs))
}

func (p *Player) play() {
	p.session.Trigger()
	if p.session.Playing() {
		p.wasPlaying = true
		p.playStart = p.now()
	}
}

// tick advances the frame loop. It reports whether anything ran.
func (p *Player) tick() bool {
	if p.loop.Pending() == 0 {
		return false
	}
	p.loop.Fire(p.now().Sub(p.epoch))
	if p.wasPlaying && !p.session.Playing() {
		p.wasPlaying = false
		p.record(p.playLog(true, ""))
	}
	return true
}

// resize refits the strip to the screen and restarts a running playback.
func (p *Player) resize() {
	w := p.renderer.ContainerWidthPx()
	if w == p.session.ContainerWidth() {
		return
	}
	replay := p.session.Playing()
	p.interrupt("resized")
	p.session.SetContainerWidth(w)
	if replay {
		p.play()
	}
}

// interrupt logs the running playback, if any, as not completed.
func (p *Player) interrupt(reason string) {
	if !p.wasPlaying {
		return
	}
	p.wasPlaying = false
	if p.session.Playing() {
		p.record(p.playLog(false, reason))
	}
}

func (p *Player) playLog(completed bool, reason string) PlayLog {
	l := PlayLog{
		Session:    p.sessionID,
		Text:       p.session.Text(),
		RunID:      p.session.TriggerKey(),
		StartedAt:  p.playStart,
		Completed:  completed,
		Reason:     reason,
		DurationMs: p.now().Sub(p.playStart).Milliseconds(),
	}
	l.describeStrip(p.session.Strip(), p.session.ContainerWidth())
	return l
}

func (p *Player) draw() {
	strip := p.session.Strip()
	snap := p.session.Snapshot()
	p.renderer.DrawFrame(render.Frame{Text: p.session.Text(), Strip: strip, Snapshot: snap})
	p.renderer.DrawStatus(render.Status{
		Text:    p.session.Text(),
		Glyphs:  strip.Len(),
		RunID:   p.session.TriggerKey(),
		Playing: snap.Playing,
		Message: p.message,
	})
}
