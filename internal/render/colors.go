package render

import (
	"github.com/gdamore/tcell/v2"

	"glyph-timescan/assets"
	"glyph-timescan/internal/rng"
)

// Theme holds the styles used to draw one strip.
type Theme struct {
	Glyph   tcell.Style // base glyph, not flickering
	Flicker tcell.Style // glyph showing a flicker variant
	Text    tcell.Style // revealed overlay text
	Edge    tcell.Style // reveal mask edge
	Status  tcell.Style
	Hint    tcell.Style
	Rule    tcell.Style
}

// DefaultTheme is the player's palette.
var DefaultTheme = Theme{
	Glyph:   tcell.StyleDefault.Foreground(tcell.ColorSlateGray).Background(tcell.ColorBlack),
	Flicker: tcell.StyleDefault.Foreground(tcell.ColorAqua).Background(tcell.ColorBlack).Bold(true),
	Text:    tcell.StyleDefault.Foreground(tcell.ColorWhite).Background(tcell.ColorBlack),
	Edge:    tcell.StyleDefault.Foreground(tcell.ColorTeal).Background(tcell.ColorBlack),
	Status:  tcell.StyleDefault.Foreground(tcell.ColorWhite),
	Hint:    tcell.StyleDefault.Foreground(tcell.ColorGray),
	Rule:    tcell.StyleDefault.Foreground(tcell.ColorGray),
}

// Face returns the rune set standing in for an image file. The same file
// always maps to the same face; an empty file has none.
func Face(file string) []rune {
	if file == "" || len(assets.GlyphFaces) == 0 {
		return nil
	}
	return assets.GlyphFaces[rng.Hash32(file)%uint32(len(assets.GlyphFaces))]
}

// faceRune picks the rune drawn at a cell of a glyph so neighbouring cells
// of one glyph differ.
func faceRune(face []rune, file string, col, row int) rune {
	if len(face) == 0 {
		return ' '
	}
	h := int(rng.Hash32(file) >> 8)
	return face[(h+col*3+row)%len(face)]
}
