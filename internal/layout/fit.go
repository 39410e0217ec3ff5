package layout

import (
	"slices"

	"glyph-timescan/internal/config"
	"glyph-timescan/internal/pool"
)

// Fit adjusts the glyph sequence to targetWidth at the natural geometry of
// p. A strip that is too wide loses trailing glyphs (at least one is kept).
// A strip that is too narrow is extended by walking the sequence back and
// forth: cycle 0 is the original order, cycle 1 reversed, cycle 2 forward,
// and so on. Each repeated glyph shows a file from its own base+variant set
// other than the base, so repeats look varied. Extension stops at the first
// glyph that would overflow or at the glyph cap. targetWidth <= 0 returns
// the sequence unchanged. Non-finite geometry in p falls back to the
// defaults.
func Fit(glyphs []pool.GlyphRecord, p Params, targetWidth float64) []RenderToken {
	p = p.normalized()
	targetWidth = config.Finite(targetWidth, 0)
	widths := SlotWidths(glyphs, p.GlyphHeight)
	limit := p.maxGlyphs()

	out := make([]RenderToken, 0, min(len(glyphs), limit))
	for i, g := range glyphs {
		if i == limit {
			break
		}
		out = append(out, token(g, widths[i], p.GlyphHeight, false))
	}
	if targetWidth <= 0 || len(out) == 0 {
		return out
	}

	natural := TotalWidth(widths[:len(out)], p.GapPx)
	switch {
	case natural > targetWidth:
		return trim(out, widths, p.GapPx, targetWidth)
	case natural < targetWidth:
		return extend(out, glyphs, widths, p, targetWidth, natural)
	}
	return out
}

func trim(tokens []RenderToken, widths []int, gap, target float64) []RenderToken {
	used := float64(widths[0])
	n := 1
	for n < len(tokens) {
		next := used + gap + float64(widths[n])
		if next > target {
			break
		}
		used = next
		n++
	}
	return tokens[:n]
}

func extend(tokens []RenderToken, glyphs []pool.GlyphRecord, widths []int, p Params, target, used float64) []RenderToken {
	limit := p.maxGlyphs()
	n := len(glyphs)
	for cycle := 1; len(tokens) < limit; cycle++ {
		for step := 0; step < n; step++ {
			if len(tokens) >= limit {
				return tokens
			}
			i := step
			if cycle%2 == 1 {
				i = n - 1 - step
			}
			next := used + p.GapPx + float64(widths[i])
			if next > target {
				return tokens
			}
			used = next

			g := glyphs[i]
			g.File = repeatFile(g, cycle, step)
			tokens = append(tokens, token(g, widths[i], p.GlyphHeight, true))
		}
	}
	return tokens
}

// repeatFile picks the file shown by a repeated glyph occurrence from the
// glyph's deduplicated base+variant set, skipping the base file. A set that
// leaves at most one candidate besides the base keeps the base.
func repeatFile(g pool.GlyphRecord, cycle, step int) string {
	unique := uniqueFiles(g)
	if len(unique) <= 2 {
		return g.File
	}
	idx := (cycle + step) % len(unique)
	if idx == 0 {
		idx = 1
	}
	return unique[idx]
}

func uniqueFiles(g pool.GlyphRecord) []string {
	out := make([]string, 0, 1+len(g.FlickerVariants))
	out = append(out, g.File)
	for _, v := range g.FlickerVariants {
		if v != "" && !slices.Contains(out, v) {
			out = append(out, v)
		}
	}
	return out
}

func token(g pool.GlyphRecord, width int, targetHeight float64, repeat bool) RenderToken {
	_, h := RenderSize(g.Width, g.Height, targetHeight)
	return RenderToken{GlyphRecord: g, RenderWidth: width, RenderHeight: h, Repeat: repeat}
}
