package layout

import (
	"math"

	"glyph-timescan/internal/pool"
)

// Strip is a laid-out glyph sequence scaled to its container.
type Strip struct {
	Tokens []RenderToken

	// Variants holds the flicker variant list per token.
	Variants [][]string

	SlotWidths   []int
	RevealWidths []float64
	TotalWidth   float64

	Scale       float64
	GlyphHeight float64
	GapPx       float64
}

// Len is the number of tokens.
func (s Strip) Len() int { return len(s.Tokens) }

// Build fits glyphs to containerWidth and then scales the result so it fills
// the container. containerWidth <= 0 means no fitting and a scale of 1.
func Build(glyphs []pool.GlyphRecord, p Params, containerWidth float64) Strip {
	if math.IsNaN(containerWidth) || math.IsInf(containerWidth, 0) {
		containerWidth = 0
	}
	p = p.normalized()
	fitted := Fit(glyphs, p, containerWidth)

	records := make([]pool.GlyphRecord, len(fitted))
	for i, t := range fitted {
		records[i] = t.GlyphRecord
	}
	natural := TotalWidth(SlotWidths(records, p.GlyphHeight), p.GapPx)

	scale := 1.0
	if containerWidth > 0 && natural > 0 {
		scale = containerWidth / natural
	}
	height := math.Max(MinScaledHeight, p.GlyphHeight*scale)
	gap := math.Max(MinScaledGap, p.GapPx*scale)

	s := Strip{
		Tokens:      fitted,
		Variants:    make([][]string, len(fitted)),
		SlotWidths:  make([]int, len(fitted)),
		Scale:       scale,
		GlyphHeight: height,
		GapPx:       gap,
	}
	for i := range s.Tokens {
		t := &s.Tokens[i]
		t.RenderWidth, t.RenderHeight = RenderSize(t.Width, t.Height, height)
		s.SlotWidths[i] = t.RenderWidth
		s.Variants[i] = FlickerVariants(t.GlyphRecord, p.Frames)
	}
	s.TotalWidth = TotalWidth(s.SlotWidths, gap)
	s.RevealWidths = RevealWidths(s.SlotWidths, gap)
	return s
}
