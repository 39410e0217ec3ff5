// Package stream serves timescan playback over websockets. Each connection
// owns a session; the browser sends text, width and play/stop commands and
// receives one frame per tick while a playback runs.
package stream

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"glyph-timescan/internal/config"
	"glyph-timescan/internal/layout"
	"glyph-timescan/internal/pool"
	"glyph-timescan/internal/timescan"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 4096
	maxTextRunes   = 256
)

// Source resolves overlay text into glyph records.
type Source interface {
	Resolve(ctx context.Context, text string, minGlyphs int) []pool.GlyphRecord
}

// Hub accepts websocket connections and runs one session per connection.
// The stream has no authentication; browsers are limited to the serving
// host plus any origins passed to AllowOrigins.
type Hub struct {
	cfg      config.Options
	source   Source
	log      *slog.Logger
	upgrader websocket.Upgrader
	origins  []string

	mu          sync.Mutex
	subscribers map[string]*subscriber
}

type subscriber struct {
	id   string
	conn *websocket.Conn
	mu   sync.Mutex
}

// WriteMessage sends a websocket message guarded by the subscriber's mutex
// and write deadline.
func (s *subscriber) WriteMessage(messageType int, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return s.conn.WriteMessage(messageType, data)
}

func (s *subscriber) writeJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.WriteMessage(websocket.TextMessage, data)
}

// NewHub returns a hub playing glyphs from source with the given options.
func NewHub(cfg config.Options, source Source, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	h := &Hub{
		cfg:         cfg.Sanitize(),
		source:      source,
		log:         logger,
		subscribers: make(map[string]*subscriber),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

// AllowOrigins lets browsers on the given origins (e.g.
// "https://example.com") connect in addition to the serving host. Call it
// before serving.
func (h *Hub) AllowOrigins(origins ...string) {
	for _, o := range origins {
		if o = strings.TrimRight(strings.TrimSpace(o), "/"); o != "" {
			h.origins = append(h.origins, o)
		}
	}
}

// checkOrigin accepts clients that send no Origin header, same-host
// browsers and configured origins.
func (h *Hub) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	if strings.EqualFold(u.Host, r.Host) {
		return true
	}
	for _, o := range h.origins {
		if strings.EqualFold(o, origin) {
			return true
		}
	}
	h.log.Warn("websocket origin rejected", "origin", origin)
	return false
}

// Count reports the number of connected subscribers.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers)
}

// ServeHTTP upgrades the request and serves the connection until either
// side closes it.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "err", err)
		return
	}
	sub := &subscriber{id: uuid.NewString(), conn: conn}
	h.mu.Lock()
	h.subscribers[sub.id] = sub
	h.mu.Unlock()
	h.log.Info("stream connected", "session", sub.id, "remote", r.RemoteAddr)

	defer func() {
		h.mu.Lock()
		delete(h.subscribers, sub.id)
		h.mu.Unlock()
		conn.Close()
		h.log.Info("stream disconnected", "session", sub.id)
	}()

	if err := h.serve(r.Context(), sub); err != nil && !isClosed(err) {
		h.log.Warn("stream failed", "session", sub.id, "err", err)
	}
}

// Close sends a close frame to every subscriber. Their read loops end and
// the connections are released by ServeHTTP.
func (h *Hub) Close() {
	h.mu.Lock()
	subs := make([]*subscriber, 0, len(h.subscribers))
	for _, sub := range h.subscribers {
		subs = append(subs, sub)
	}
	h.mu.Unlock()

	msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
	for _, sub := range subs {
		if err := sub.WriteMessage(websocket.CloseMessage, msg); err != nil {
			h.log.Debug("close frame not sent", "session", sub.id, "err", err)
		}
	}
}

func isClosed(err error) bool {
	return websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) ||
		errors.Is(err, websocket.ErrCloseSent)
}

// serve runs one connection's session. Reads happen on their own goroutine;
// every session mutation and write happens here.
func (h *Hub) serve(ctx context.Context, sub *subscriber) error {
	sub.conn.SetReadLimit(maxMessageSize)

	cmdCh := make(chan Command, 8)
	readErr := make(chan error, 1)
	done := make(chan struct{})
	defer close(done)
	go func() {
		defer close(cmdCh)
		for {
			var cmd Command
			if err := sub.conn.ReadJSON(&cmd); err != nil {
				readErr <- err
				return
			}
			select {
			case cmdCh <- cmd:
			case <-done:
				return
			}
		}
	}()

	c := newConnSession(h, sub.id)
	if err := sub.writeJSON(c.frame(true, "")); err != nil {
		return err
	}

	ticker := time.NewTicker(h.cfg.Animation.FrameInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case cmd, ok := <-cmdCh:
			if !ok {
				return <-readErr
			}
			tokens, errMsg := c.apply(ctx, cmd)
			if err := sub.writeJSON(c.frame(tokens, errMsg)); err != nil {
				return err
			}
		case <-ticker.C:
			if !c.tick() {
				continue
			}
			if err := sub.writeJSON(c.frame(false, "")); err != nil {
				return err
			}
		}
	}
}

// connSession is the per-connection playback state.
type connSession struct {
	hub     *Hub
	id      string
	loop    *timescan.FrameLoop
	session *timescan.Session
	epoch   time.Time
	min     int
}

func newConnSession(h *Hub, id string) *connSession {
	loop := timescan.NewFrameLoop()
	return &connSession{
		hub:     h,
		id:      id,
		loop:    loop,
		session: timescan.NewSession(loop, layout.ParamsFrom(h.cfg), timescan.TimingFrom(h.cfg)),
		epoch:   time.Now(),
		min:     h.cfg.Animation.MinGlyphs,
	}
}

// apply runs one command. It reports whether the strip changed and an
// error text for the client.
func (c *connSession) apply(ctx context.Context, cmd Command) (bool, string) {
	switch cmd.Op {
	case OpText:
		text := truncateRunes(cmd.Text, maxTextRunes)
		if cmd.MinGlyphs > 0 {
			c.min = pool.MinGlyphs(float64(cmd.MinGlyphs))
		}
		c.session.SetText(text)
		c.session.SetGlyphs(c.hub.source.Resolve(ctx, text, c.min))
		return true, ""
	case OpWidth:
		before := c.session.ContainerWidth()
		c.session.SetContainerWidth(cmd.Width)
		return c.session.ContainerWidth() != before, ""
	case OpPlay:
		c.session.Trigger()
		return false, ""
	case OpStop:
		c.session.Stop()
		return false, ""
	}
	return false, "unknown op " + quote(cmd.Op)
}

// tick advances the frame loop and reports whether a frame ran.
func (c *connSession) tick() bool {
	if c.loop.Pending() == 0 {
		return false
	}
	c.loop.Fire(time.Since(c.epoch))
	return true
}

func (c *connSession) frame(withTokens bool, errMsg string) Frame {
	snap := c.session.Snapshot()
	f := Frame{
		Session:         c.id,
		RunID:           snap.RunID,
		Visible:         snap.Visible,
		ActiveLayer:     snap.ActiveLayer,
		ConsumedHidden:  snap.ConsumedHidden,
		OverlayRevealPx: snap.OverlayRevealPx,
		TotalWidthPx:    snap.TotalWidthPx,
		Playing:         snap.Playing,
		Pending:         c.session.Pending(),
		Error:           errMsg,
	}
	if withTokens {
		strip := c.session.Strip()
		f.Text = c.session.Text()
		f.Tokens = tokenFrames(strip)
		f.GapPx = strip.GapPx
	}
	return f
}

func truncateRunes(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

func quote(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
