// Package layout turns glyph records into a horizontal strip: per-glyph
// render sizes, slot widths, the total width and cumulative reveal widths.
// Everything here is a pure function of its inputs.
package layout

import (
	"math"

	"glyph-timescan/internal/config"
	"glyph-timescan/internal/pool"
)

const (
	// MinRenderHeight and MinRenderWidth clamp a single glyph's size.
	MinRenderHeight = 16
	MinRenderWidth  = 12

	// MinScaledHeight and MinScaledGap clamp the strip after scaling.
	MinScaledHeight = 12
	MinScaledGap    = 1

	// MaxRenderedGlyphs caps the token count produced by Fit.
	MaxRenderedGlyphs = 256
)

// Params are the layout inputs that do not depend on the glyphs.
type Params struct {
	GlyphHeight float64
	GapPx       float64

	// Frames is the number of flicker frames per glyph; <= 0 keeps the
	// provided variant lists untouched.
	Frames int

	// MaxGlyphs caps Fit; <= 0 means MaxRenderedGlyphs.
	MaxGlyphs int
}

// ParamsFrom extracts layout parameters from the options.
func ParamsFrom(o config.Options) Params {
	return Params{
		GlyphHeight: o.Layout.GlyphHeight,
		GapPx:       o.Layout.GlyphGapPx,
		Frames:      o.Animation.PrecomputedFrames,
		MaxGlyphs:   o.Layout.MaxRenderedGlyphs,
	}
}

// normalized replaces non-finite or out-of-range geometry with the defaults.
func (p Params) normalized() Params {
	d := config.Default().Layout
	p.GlyphHeight = config.Positive(p.GlyphHeight, d.GlyphHeight)
	p.GapPx = config.NonNegative(p.GapPx, d.GlyphGapPx)
	return p
}

func (p Params) maxGlyphs() int {
	if p.MaxGlyphs <= 0 {
		return MaxRenderedGlyphs
	}
	return p.MaxGlyphs
}

// RenderToken is a glyph placed on the strip.
type RenderToken struct {
	pool.GlyphRecord

	RenderWidth  int
	RenderHeight int

	// Repeat marks tokens appended by cyclic extension.
	Repeat bool
}

// RenderSize preserves the glyph's aspect ratio at the target height.
// Non-finite inputs are treated as 1 (sizes) or 0 (target).
func RenderSize(width, height, targetHeight float64) (w, h int) {
	width = config.Finite(width, 1)
	height = math.Max(1, config.Finite(height, 1))
	targetHeight = config.Finite(targetHeight, 0)

	h = max(MinRenderHeight, round(targetHeight))
	w = max(MinRenderWidth, round(width/height*float64(h)))
	return w, h
}

// round rounds half toward +Inf.
func round(v float64) int {
	return int(math.Floor(v + 0.5))
}

// SlotWidths returns the render width of each glyph at targetHeight.
func SlotWidths(glyphs []pool.GlyphRecord, targetHeight float64) []int {
	out := make([]int, len(glyphs))
	for i, g := range glyphs {
		out[i], _ = RenderSize(g.Width, g.Height, targetHeight)
	}
	return out
}

// TotalWidth is the sum of widths plus a gap between each pair.
// A non-finite or negative gap counts as zero.
func TotalWidth(widths []int, gap float64) float64 {
	if len(widths) == 0 {
		return 0
	}
	gap = config.NonNegative(gap, 0)
	sum := 0
	for _, w := range widths {
		sum += w
	}
	return float64(sum) + gap*float64(len(widths)-1)
}

// RevealWidths returns, per index, how far the reveal mask must extend to
// uncover that glyph: the width prefix sum plus index*gap.
func RevealWidths(widths []int, gap float64) []float64 {
	gap = config.NonNegative(gap, 0)
	out := make([]float64, len(widths))
	consumed := 0
	for i, w := range widths {
		consumed += w
		out[i] = float64(consumed) + float64(i)*gap
	}
	return out
}

// FlickerVariants returns the variant list used while glyph g flickers.
// Empty entries are dropped; with frames > 0 the list is cut to frames or
// padded with the glyph's own file.
func FlickerVariants(g pool.GlyphRecord, frames int) []string {
	provided := make([]string, 0, len(g.FlickerVariants))
	for _, v := range g.FlickerVariants {
		if v != "" {
			provided = append(provided, v)
		}
	}
	if frames <= 0 {
		return provided
	}
	if len(provided) >= frames {
		return provided[:frames]
	}
	for len(provided) < frames {
		provided = append(provided, g.File)
	}
	return provided
}
