// Package render draws a timescan strip onto a tcell screen. Glyph images
// are stood in for by rune faces; the overlay text shows wherever the reveal
// mask has passed.
package render

import (
	"math"

	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"

	"glyph-timescan/assets"
	"glyph-timescan/internal/layout"
	"glyph-timescan/internal/timescan"
)

// margin is the number of columns kept free on each side of the strip.
const margin = 2

// statusRows is the number of rows reserved for the status line.
const statusRows = 2

// Renderer draws strips onto a tcell screen.
type Renderer struct {
	screen tcell.Screen
	camera *Camera
	theme  Theme
}

// NewRenderer creates a Renderer for screen with the given cell size in
// strip pixels.
func NewRenderer(screen tcell.Screen, cellWidthPx, cellHeightPx float64) *Renderer {
	return &Renderer{
		screen: screen,
		camera: NewCamera(cellWidthPx, cellHeightPx),
		theme:  DefaultTheme,
	}
}

// SetTheme replaces the palette.
func (r *Renderer) SetTheme(t Theme) { r.theme = t }

// Camera exposes the pixel to cell mapping of the last frame.
func (r *Renderer) Camera() *Camera { return r.camera }

// ContainerWidthPx is the strip width that fits the screen.
func (r *Renderer) ContainerWidthPx() float64 {
	w, _ := r.screen.Size()
	return r.camera.WidthPx(w - 2*margin)
}

// Frame is everything DrawFrame needs.
type Frame struct {
	Text     string
	Strip    layout.Strip
	Snapshot timescan.Snapshot
}

// DrawFrame clears the screen and draws the strip, the revealed text and
// the mask edge. Call DrawStatus afterwards to finish the frame.
func (r *Renderer) DrawFrame(f Frame) {
	r.screen.Clear()
	w, h := r.screen.Size()
	viewH := h - statusRows

	s := f.Strip
	rows := 1
	for _, t := range s.Tokens {
		rows = max(rows, r.camera.Rows(float64(t.RenderHeight)))
	}
	rows = min(rows, max(1, viewH))
	cols := r.camera.Columns(s.TotalWidth)
	r.camera.Center(cols, rows, w, viewH)
	textRow := r.camera.OffsetY + rows/2

	reveal := math.Max(0, math.Min(f.Snapshot.OverlayRevealPx, s.TotalWidth))

	for i, t := range s.Tokens {
		file, style := t.File, r.theme.Glyph
		if layer, ok := activeLayer(f.Snapshot.State, i); ok && i < len(s.Variants) && layer < len(s.Variants[i]) {
			file, style = s.Variants[i][layer], r.theme.Flicker
		}
		face := Face(file)

		startPx := s.RevealWidths[i] - float64(s.SlotWidths[i])
		c0 := r.camera.PxToScreen(startPx)
		c1 := r.camera.PxToScreen(startPx + float64(s.SlotWidths[i]))
		if c1 <= c0 {
			c1 = c0 + 1
		}
		for col := c0; col < c1 && col < w; col++ {
			if r.camera.ScreenToPx(col) < reveal {
				continue
			}
			for row := 0; row < rows; row++ {
				r.screen.SetContent(col, r.camera.OffsetY+row, faceRune(face, file, col-c0, row), nil, style)
			}
		}
	}

	r.drawRevealedText(f.Text, textRow, cols, reveal)
	if reveal > 0 && reveal < s.TotalWidth {
		r.drawEdge(reveal, rows, textRow)
	}
}

// activeLayer reports the flicker layer of glyph i when it is flickering.
func activeLayer(st timescan.State, i int) (int, bool) {
	if i >= len(st.Visible) || i >= len(st.ActiveLayer) {
		return 0, false
	}
	if !st.Visible[i] || st.ActiveLayer[i] < 0 {
		return 0, false
	}
	return st.ActiveLayer[i], true
}

func (r *Renderer) drawRevealedText(text string, y, cols int, reveal float64) {
	text = runewidth.Truncate(text, cols, "")
	col := r.camera.OffsetX
	for _, ch := range text {
		rw := runewidth.RuneWidth(ch)
		if rw == 0 {
			continue
		}
		if r.camera.ScreenToPx(col) >= reveal {
			return
		}
		r.putGlyph(col, y, string(ch), r.theme.Text)
		col += rw
	}
}

// drawEdge shades the column the reveal mask currently ends in.
func (r *Renderer) drawEdge(reveal float64, rows, textRow int) {
	col := r.camera.PxToScreen(reveal)
	frac := (reveal - r.camera.ScreenToPx(col)) / r.camera.CellWidthPx
	shade := assets.Shades[min(len(assets.Shades)-1, int(frac*float64(len(assets.Shades))))]
	for row := 0; row < rows; row++ {
		y := r.camera.OffsetY + row
		if y == textRow {
			continue
		}
		r.screen.SetContent(col, y, shade, nil, r.theme.Edge)
	}
}

// putGlyph draws a single glyph (ASCII or wide rune) at screen position (x, y).
func (r *Renderer) putGlyph(x, y int, glyph string, style tcell.Style) {
	runes := []rune(glyph)
	if len(runes) == 0 {
		return
	}
	mainc := runes[0]
	var combc []rune
	if len(runes) > 1 {
		combc = runes[1:]
	}
	r.screen.SetContent(x, y, mainc, combc, style)
	if runewidth.StringWidth(glyph) == 2 {
		// Fill the second column to avoid rendering artifacts.
		r.screen.SetContent(x+1, y, ' ', nil, style)
	}
}
