package render

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"

	"glyph-timescan/assets"
)

// Status is the information shown on the bottom line.
type Status struct {
	Text    string
	Glyphs  int
	RunID   uint64
	Playing bool
	Message string
}

// DrawStatus renders a separator and the status line at the bottom of the
// screen. A message is set into the separator.
func (r *Renderer) DrawStatus(st Status) {
	w, h := r.screen.Size()
	if h < 2 {
		return
	}
	y := h - 2
	r.drawHLine(y, r.theme.Rule)

	state := "idle"
	if st.Playing {
		state = "playing"
	}
	if st.Message != "" {
		r.drawText(2, y, " "+runewidth.Truncate(st.Message, max(0, w-6), "…")+" ", r.theme.Status)
	}
	line := fmt.Sprintf("%d glyphs  run %d  %s", st.Glyphs, st.RunID, state)
	hintW := runewidth.StringWidth(assets.StatusHint)
	room := w - hintW - 2
	if room < 0 {
		room = w
		hintW = 0
	}
	r.drawText(0, y+1, runewidth.Truncate(line, room, "…"), r.theme.Status)
	if hintW > 0 {
		r.drawText(w-hintW, y+1, assets.StatusHint, r.theme.Hint)
	}
	r.screen.Show()
}

func (r *Renderer) drawHLine(y int, style tcell.Style) {
	w, _ := r.screen.Size()
	for x := 0; x < w; x++ {
		r.screen.SetContent(x, y, '─', nil, style)
	}
}

// drawText writes text starting at column x, advancing by each rune's cell
// width. It returns the column after the last rune.
func (r *Renderer) drawText(x, y int, text string, style tcell.Style) int {
	col := x
	for _, ch := range text {
		rw := runewidth.RuneWidth(ch)
		if rw == 0 {
			continue
		}
		r.screen.SetContent(col, y, ch, nil, style)
		col += rw
	}
	return col
}
