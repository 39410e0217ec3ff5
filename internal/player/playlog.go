package player

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"glyph-timescan/internal/layout"
)

// PlayLog records one playback, finished or interrupted.
type PlayLog struct {
	Session   string    `json:"session,omitempty"`
	Text      string    `json:"text"`
	RunID     uint64    `json:"runId"`
	StartedAt time.Time `json:"startedAt"`

	Glyphs      int     `json:"glyphs"`
	Repeats     int     `json:"repeats,omitempty"` // tokens added to fill the width
	ContainerPx float64 `json:"containerPx,omitempty"`
	Scale       float64 `json:"scale"`

	Completed  bool   `json:"completed"`
	Reason     string `json:"reason,omitempty"` // what interrupted the playback
	DurationMs int64  `json:"durationMs"`
}

// describeStrip fills the strip fields of l.
func (l *PlayLog) describeStrip(s layout.Strip, containerPx float64) {
	l.Glyphs = s.Len()
	l.Repeats = 0
	for _, t := range s.Tokens {
		if t.Repeat {
			l.Repeats++
		}
	}
	l.ContainerPx = containerPx
	l.Scale = s.Scale
}

// playRecorder appends play logs as JSON lines, one file per UTC day:
// <dir>/plays-2006-01-02.jsonl. Failures are logged and never reach the
// player.
type playRecorder struct {
	dir string
	log *slog.Logger

	mu sync.Mutex
}

func newPlayRecorder(logger *slog.Logger) *playRecorder {
	dir, err := playLogDir()
	if err != nil {
		logger.Debug("play log disabled", "err", err)
	}
	return &playRecorder{dir: dir, log: logger}
}

// Record appends l to the file of the day the playback started.
func (r *playRecorder) Record(l PlayLog) {
	if r.dir == "" {
		return
	}
	if err := r.append(l); err != nil {
		r.log.Warn("play log not written", "session", l.Session, "err", err)
	}
}

func (r *playRecorder) append(l PlayLog) error {
	data, err := json.Marshal(l)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(playLogPath(r.dir, l.StartedAt), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(append(data, '\n')); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func playLogPath(dir string, started time.Time) string {
	return filepath.Join(dir, fmt.Sprintf("plays-%s.jsonl", started.UTC().Format(time.DateOnly)))
}

// playLogDir returns the directory where playback logs are stored:
// $XDG_DATA_HOME/glyph-timescan, defaulting to ~/.local/share/glyph-timescan.
func playLogDir() (string, error) {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, "glyph-timescan"), nil
}
