package render

import "math"

// Camera maps strip pixels onto terminal cells. The strip is laid out in
// pixels; each cell covers CellWidthPx by CellHeightPx of it.
type Camera struct {
	OffsetX int // first column of the strip
	OffsetY int // first row of the strip

	CellWidthPx  float64
	CellHeightPx float64
}

// NewCamera returns a camera with the given cell size. Non-positive sizes
// fall back to 8x16.
func NewCamera(cellWidthPx, cellHeightPx float64) *Camera {
	if !(cellWidthPx > 0) {
		cellWidthPx = 8
	}
	if !(cellHeightPx > 0) {
		cellHeightPx = 16
	}
	return &Camera{CellWidthPx: cellWidthPx, CellHeightPx: cellHeightPx}
}

// Center positions a strip of stripW columns and stripH rows in the middle
// of a viewW by viewH view.
func (c *Camera) Center(stripW, stripH, viewW, viewH int) {
	c.OffsetX = max(0, (viewW-stripW)/2)
	c.OffsetY = max(0, (viewH-stripH)/2)
}

// Columns is how many cells px covers, rounded up.
func (c *Camera) Columns(px float64) int {
	if !(px > 0) {
		return 0
	}
	return int(math.Ceil(px / c.CellWidthPx))
}

// Rows is how many rows a glyph of px height spans, at least one.
func (c *Camera) Rows(px float64) int {
	return max(1, int(math.Round(px/c.CellHeightPx)))
}

// PxToScreen converts a strip x position in pixels to a screen column.
func (c *Camera) PxToScreen(px float64) int {
	return c.OffsetX + int(math.Floor(px/c.CellWidthPx))
}

// ScreenToPx returns the strip pixel at the left edge of screen column sx.
func (c *Camera) ScreenToPx(sx int) float64 {
	return float64(sx-c.OffsetX) * c.CellWidthPx
}

// WidthPx is the pixel width of cols columns.
func (c *Camera) WidthPx(cols int) float64 {
	return float64(max(0, cols)) * c.CellWidthPx
}
