package assets

// GlyphFaces are the rune sets used to draw a glyph image in a terminal.
// A glyph's file locator hashes to one face; the face's runes fill the glyph's
// cells so the same file always looks the same and alternate files differ.
var GlyphFaces = [][]rune{
	[]rune("ᚠᚢᚦᚨᚱᚲ"),
	[]rune("ᚷᚹᚺᚾᛁᛃ"),
	[]rune("ᛇᛈᛉᛊᛏᛒ"),
	[]rune("ᛖᛗᛚᛜᛞᛟ"),
	[]rune("⟊⟒⟟⟡⟢⟣"),
	[]rune("⌬⌭⌮⌯⌰⌱"),
	[]rune("⍟⍜⍝⍞⍠⍡"),
	[]rune("⏃⏄⏅⏆⏇⏈"),
}

// Shades are the fill runes of the reveal mask edge, lightest first.
var Shades = []rune{'░', '▒', '▓', '█'}

// StatusHint is shown at the right end of the status line.
const StatusHint = "[space] play  [s] stop  [n] next  [q] quit"
