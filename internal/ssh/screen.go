package ssh

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/gdamore/tcell/v2"
	gossh "github.com/gliderlabs/ssh"
)

// DefaultTerm is used when the client sends no TERM or one we do not trust.
const DefaultTerm = "xterm-256color"

// ErrNoPty is returned for sessions opened without a pseudo-terminal.
var ErrNoPty = errors.New("ssh: session has no pty")

// allowedTerms lists the terminal types whose terminfo entries are loaded on
// behalf of a client. Anything else falls back to DefaultTerm.
var allowedTerms = map[string]bool{
	"xterm":                 true,
	"xterm-256color":        true,
	"xterm-color":           true,
	"screen":                true,
	"screen-256color":       true,
	"tmux":                  true,
	"tmux-256color":         true,
	"linux":                 true,
	"vt100":                 true,
	"vt220":                 true,
	"rxvt-unicode":          true,
	"rxvt-unicode-256color": true,
	"alacritty":             true,
}

// TermFromEnv picks the TERM value from a session environment.
func TermFromEnv(environ []string) string {
	for _, env := range environ {
		if term, ok := strings.CutPrefix(env, "TERM="); ok {
			if allowedTerms[term] {
				return term
			}
			return DefaultTerm
		}
	}
	return DefaultTerm
}

// termMu protects os.Setenv("TERM") around screen creation.
var termMu sync.Mutex

// NewScreen creates and initialises a tcell screen drawing into s. The
// caller must call Fini on it when the session ends.
func NewScreen(s gossh.Session) (tcell.Screen, error) {
	pty, winCh, hasPTY := s.Pty()
	if !hasPTY {
		return nil, ErrNoPty
	}
	term := TermFromEnv(s.Environ())
	if pty.Term != "" && allowedTerms[pty.Term] {
		term = pty.Term
	}

	// TERM must be set in the process environment before the terminfo
	// lookup.
	tty := NewSessionTty(s, pty, winCh)
	termMu.Lock()
	_ = os.Setenv("TERM", term)
	screen, err := tcell.NewTerminfoScreenFromTty(tty)
	termMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("ssh: terminal setup: %w", err)
	}
	if err := screen.Init(); err != nil {
		return nil, fmt.Errorf("ssh: screen init: %w", err)
	}
	return screen, nil
}
