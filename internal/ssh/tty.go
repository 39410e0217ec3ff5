// Package ssh adapts gliderlabs SSH sessions to tcell screens so every
// connection can run its own player.
package ssh

import (
	"sync"

	"github.com/gdamore/tcell/v2"
	gossh "github.com/gliderlabs/ssh"
)

// FallbackWindow is used when a client reports a zero-sized terminal.
var FallbackWindow = gossh.Window{Width: 80, Height: 24}

// SessionTty is the tcell.Tty of one SSH connection. Window changes that
// repeat the current size are dropped, so the player only refits its strip
// when the terminal really changed.
type SessionTty struct {
	session gossh.Session
	winCh   <-chan gossh.Window

	mu       sync.Mutex
	window   gossh.Window
	onResize func()
	watch    sync.Once
}

// NewSessionTty wraps s. pty carries the initial window; winCh delivers
// window-change requests.
func NewSessionTty(s gossh.Session, pty gossh.Pty, winCh <-chan gossh.Window) *SessionTty {
	return &SessionTty{
		session: s,
		window:  usableWindow(pty.Window),
		winCh:   winCh,
	}
}

func usableWindow(w gossh.Window) gossh.Window {
	if w.Width <= 0 || w.Height <= 0 {
		return FallbackWindow
	}
	return w
}

func (t *SessionTty) Read(b []byte) (int, error) { return t.session.Read(b) }
func (t *SessionTty) Write(b []byte) (int, error) { return t.session.Write(b) }
func (t *SessionTty) Close() error { return t.session.Close() }

// Start, Stop and Drain do nothing: the channel is opened and closed by the
// server handler and writes go straight out.
func (t *SessionTty) Start() error { return nil }
func (t *SessionTty) Stop() error { return nil }
func (t *SessionTty) Drain() error { return nil }

// WindowSize returns the current terminal size in cells.
func (t *SessionTty) WindowSize() (tcell.WindowSize, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return tcell.WindowSize{Width: t.window.Width, Height: t.window.Height}, nil
}

// NotifyResize sets the callback for window changes; nil unregisters it.
// The window channel is drained by one goroutine for the whole session.
func (t *SessionTty) NotifyResize(cb func()) {
	t.mu.Lock()
	t.onResize = cb
	t.mu.Unlock()

	t.watch.Do(func() {
		go t.watchWindow()
	})
}

func (t *SessionTty) watchWindow() {
	for win := range t.winCh {
		win = usableWindow(win)
		t.mu.Lock()
		if win == t.window {
			t.mu.Unlock()
			continue
		}
		t.window = win
		cb := t.onResize
		t.mu.Unlock()
		if cb != nil {
			cb()
		}
	}
}
