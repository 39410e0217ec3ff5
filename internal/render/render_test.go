package render

import (
	"strings"
	"testing"

	"github.com/gdamore/tcell/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"glyph-timescan/internal/layout"
	"glyph-timescan/internal/pool"
	"glyph-timescan/internal/timescan"
)

func newSimScreen(t *testing.T, w, h int) tcell.SimulationScreen {
	t.Helper()
	ss := tcell.NewSimulationScreen("UTF-8")
	require.NoError(t, ss.Init())
	ss.SetSize(w, h)
	return ss
}

// testStrip is three 16px glyphs with 8px gaps: at 8px cells each glyph
// spans two columns with one blank column between neighbours.
func testStrip() layout.Strip {
	glyphs := []pool.GlyphRecord{
		{Width: 16, Height: 16, File: "/g/a.svg", FlickerVariants: []string{"/g/x.svg", "/g/y.svg"}},
		{Width: 16, Height: 16, File: "/g/b.svg", FlickerVariants: []string{"/g/z.svg"}},
		{Width: 16, Height: 16, File: "/g/c.svg"},
	}
	return layout.Build(glyphs, layout.Params{GlyphHeight: 16, GapPx: 8, Frames: 2}, 0)
}

func idle(n int) timescan.Snapshot {
	st := timescan.State{
		Visible:        make([]bool, n),
		ActiveLayer:    make([]int, n),
		ConsumedHidden: make([]bool, n),
	}
	for i := range st.ActiveLayer {
		st.ActiveLayer[i] = -1
	}
	return timescan.Snapshot{State: st}
}

func cell(s tcell.Screen, x, y int) (rune, tcell.Style) {
	r, _, style, _ := s.GetContent(x, y)
	return r, style
}

func row(s tcell.Screen, y int) []rune {
	w, _ := s.Size()
	out := make([]rune, w)
	for x := range out {
		r, _ := cell(s, x, y)
		if r == 0 {
			r = ' '
		}
		out[x] = r
	}
	return out
}

// glyphColumns returns the first and one-past-last column of token i.
func glyphColumns(c *Camera, s layout.Strip, i int) (int, int) {
	end := s.RevealWidths[i]
	return c.PxToScreen(end - float64(s.SlotWidths[i])), c.PxToScreen(end)
}

func TestCamera(t *testing.T) {
	c := NewCamera(8, 16)
	assert.Equal(t, 6, c.Columns(48))
	assert.Equal(t, 7, c.Columns(49))
	assert.Equal(t, 0, c.Columns(0))
	assert.Equal(t, 3, c.Rows(52))
	assert.Equal(t, 1, c.Rows(2))

	c.Center(6, 1, 40, 8)
	assert.Equal(t, 17, c.OffsetX)
	assert.Equal(t, 3, c.OffsetY)
	assert.Equal(t, 19, c.PxToScreen(16))
	assert.Equal(t, 16.0, c.ScreenToPx(19))

	fallback := NewCamera(0, -1)
	assert.Equal(t, 8.0, fallback.CellWidthPx)
	assert.Equal(t, 16.0, fallback.CellHeightPx)
}

func TestFaceIsStable(t *testing.T) {
	assert.Nil(t, Face(""))
	assert.Equal(t, Face("/g/a.svg"), Face("/g/a.svg"))
	assert.NotEmpty(t, Face("/g/a.svg"))
	assert.Equal(t, ' ', faceRune(nil, "", 0, 0))
}

func TestDrawFrameIdleCoversText(t *testing.T) {
	ss := newSimScreen(t, 40, 10)
	r := NewRenderer(ss, 8, 16)
	s := testStrip()
	require.Equal(t, []float64{16, 40, 64}, s.RevealWidths)

	r.DrawFrame(Frame{Text: "Hello", Strip: s, Snapshot: idle(3)})
	ss.Show()

	cam := r.Camera()
	y := cam.OffsetY
	for i := range s.Tokens {
		c0, c1 := glyphColumns(cam, s, i)
		require.Equal(t, 2, c1-c0)
		for x := c0; x < c1; x++ {
			ch, style := cell(ss, x, y)
			assert.Contains(t, Face(s.Tokens[i].File), ch, "glyph %d column %d", i, x)
			assert.Equal(t, DefaultTheme.Glyph, style)
		}
	}

	first, last := cam.OffsetX, cam.OffsetX+cam.Columns(s.TotalWidth)
	left, _ := cell(ss, first-1, y)
	right, _ := cell(ss, last, y)
	gap, _ := cell(ss, first+2, y)
	assert.Equal(t, ' ', left)
	assert.Equal(t, ' ', right)
	assert.Equal(t, ' ', gap)
	assert.NotContains(t, string(row(ss, y)), "H")
}

func TestDrawFrameRevealsText(t *testing.T) {
	ss := newSimScreen(t, 40, 10)
	r := NewRenderer(ss, 8, 16)
	s := testStrip()

	snap := idle(3)
	snap.OverlayRevealPx = s.RevealWidths[0] + s.GapPx
	r.DrawFrame(Frame{Text: "Hello", Strip: s, Snapshot: snap})
	ss.Show()

	cam := r.Camera()
	line := row(ss, cam.OffsetY)
	assert.Equal(t, "Hel", string(line[cam.OffsetX:cam.OffsetX+3]))

	c0, _ := glyphColumns(cam, s, 1)
	require.Equal(t, cam.OffsetX+3, c0)
	ch, style := cell(ss, c0, cam.OffsetY)
	assert.Contains(t, Face("/g/b.svg"), ch)
	assert.Equal(t, DefaultTheme.Glyph, style)
}

func TestDrawFrameShowsFlickerVariant(t *testing.T) {
	ss := newSimScreen(t, 40, 10)
	r := NewRenderer(ss, 8, 16)
	s := testStrip()

	snap := idle(3)
	snap.Visible[0] = true
	snap.ActiveLayer[0] = 1
	r.DrawFrame(Frame{Text: "Hello", Strip: s, Snapshot: snap})
	ss.Show()

	cam := r.Camera()
	ch, style := cell(ss, cam.OffsetX, cam.OffsetY)
	assert.Contains(t, Face("/g/y.svg"), ch)
	assert.Equal(t, DefaultTheme.Flicker, style)
}

func TestDrawFrameEdge(t *testing.T) {
	ss := newSimScreen(t, 40, 12)
	r := NewRenderer(ss, 8, 8)
	s := testStrip() // 16px tall glyphs span two 8px rows

	snap := idle(3)
	snap.OverlayRevealPx = 20
	r.DrawFrame(Frame{Text: "Hello", Strip: s, Snapshot: snap})
	ss.Show()

	cam := r.Camera()
	edgeCol := cam.PxToScreen(20)
	textRow := cam.OffsetY + 1
	ch, style := cell(ss, edgeCol, cam.OffsetY)
	assert.Contains(t, []rune{'░', '▒', '▓', '█'}, ch)
	assert.Equal(t, DefaultTheme.Edge, style)
	text, _ := cell(ss, edgeCol, textRow)
	assert.Equal(t, 'l', text)
}

func TestDrawStatus(t *testing.T) {
	ss := newSimScreen(t, 80, 10)
	r := NewRenderer(ss, 8, 16)
	r.DrawStatus(Status{Text: "Hello", Glyphs: 3, RunID: 2, Playing: true})

	assert.Equal(t, strings.Repeat("─", 80), string(row(ss, 8)))
	line := string(row(ss, 9))
	assert.True(t, strings.HasPrefix(line, "3 glyphs  run 2  playing"), line)
	assert.True(t, strings.HasSuffix(line, "[q] quit"), line)
}

func TestContainerWidthPx(t *testing.T) {
	ss := newSimScreen(t, 40, 10)
	r := NewRenderer(ss, 8, 16)
	assert.Equal(t, 36*8.0, r.ContainerWidthPx())
}

func TestDrawStatusMessage(t *testing.T) {
	ss := newSimScreen(t, 80, 10)
	r := NewRenderer(ss, 8, 16)
	r.DrawStatus(Status{Message: "no glyphs for this text"})

	assert.True(t, strings.HasPrefix(string(row(ss, 8)), "── no glyphs for this text ──"), string(row(ss, 8)))
	assert.True(t, strings.HasPrefix(string(row(ss, 9)), "0 glyphs  run 0  idle"))
}
