// Package manifest reads the glyph phrase corpus manifest and patches
// precomputed flicker variants back into it.
//
// Reading is deliberately tolerant: items or glyphs of the wrong shape are
// skipped or defaulted the same way the corpus tooling always has, so a
// partially hand-edited manifest still compiles.
package manifest

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
	"golang.org/x/text/unicode/norm"
)

// Sentinel errors for manifest loading.
var (
	// ErrNotFound is returned when the manifest file does not exist.
	ErrNotFound = errors.New("manifest: not found")

	// ErrInvalidJSON is returned when the manifest is not valid JSON.
	ErrInvalidJSON = errors.New("manifest: invalid JSON")
)

// Glyph is one glyph descriptor of a phrase item.
type Glyph struct {
	// Pos is the glyph's position inside its item's glyphs array.
	Pos int

	// Index is the numeric glyph index (0 when absent or non-numeric).
	Index int

	// IndexKey is the index as it appears in seed strings ("" when absent).
	IndexKey string

	Width  float64
	Height float64

	// File is the asset path exactly as written in the manifest.
	File string

	// FlickerVariants holds variants already present in the manifest.
	FlickerVariants []string
}

// Item is one phrase of the corpus.
type Item struct {
	// Pos is the item's position inside the manifest items array.
	Pos int

	ID     string
	Phrase string
	Glyphs []Glyph
}

// Manifest is a parsed corpus manifest. Raw keeps the original bytes so
// patches can be applied without losing unknown fields.
type Manifest struct {
	Path string
	Raw  []byte

	// HasItems reports whether the manifest carried an items array at all.
	HasItems bool
	Items    []Item

	resolvedSeed    float64
	hasResolvedSeed bool
}

// Load reads and parses the manifest at path.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("read manifest %s: %w", path, err)
	}
	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	m.Path = path
	return m, nil
}

// Parse builds a Manifest from raw JSON.
func Parse(data []byte) (*Manifest, error) {
	if !gjson.ValidBytes(data) {
		return nil, ErrInvalidJSON
	}
	root := gjson.ParseBytes(data)
	m := &Manifest{Raw: data}

	if seed, ok := number(root.Get("resolvedSeed")); ok {
		m.resolvedSeed = seed
		m.hasResolvedSeed = true
	}

	items := root.Get("items")
	if !items.IsArray() {
		return m, nil
	}
	m.HasItems = true

	pos := 0
	items.ForEach(func(_, v gjson.Result) bool {
		m.Items = append(m.Items, parseItem(pos, v))
		pos++
		return true
	})
	return m, nil
}

func parseItem(pos int, v gjson.Result) Item {
	it := Item{
		Pos:    pos,
		ID:     scalarString(v.Get("id")),
		Phrase: norm.NFC.String(scalarString(v.Get("phrase"))),
	}
	glyphs := v.Get("glyphs")
	if !glyphs.IsArray() {
		return it
	}
	gpos := 0
	glyphs.ForEach(func(_, g gjson.Result) bool {
		if g.IsObject() {
			it.Glyphs = append(it.Glyphs, parseGlyph(gpos, g))
		}
		gpos++
		return true
	})
	return it
}

func parseGlyph(pos int, g gjson.Result) Glyph {
	gl := Glyph{
		Pos:      pos,
		IndexKey: scalarString(g.Get("index")),
		Width:    numberOr(g.Get("width"), 1),
		Height:   numberOr(g.Get("height"), 1),
		File:     scalarString(g.Get("file")),
	}
	if idx, ok := number(g.Get("index")); ok {
		gl.Index = int(idx)
	}
	if vs := g.Get("flickerVariants"); vs.IsArray() {
		gl.FlickerVariants = []string{}
		vs.ForEach(func(_, v gjson.Result) bool {
			gl.FlickerVariants = append(gl.FlickerVariants, scalarString(v))
			return true
		})
	}
	return gl
}

// ResolvedSeed returns the manifest's resolvedSeed when it is a finite number.
func (m *Manifest) ResolvedSeed() (float64, bool) {
	return m.resolvedSeed, m.hasResolvedSeed
}

// NormalizePath turns a manifest asset path into a clean relative path:
// backslashes become slashes and leading slashes are dropped.
func NormalizePath(p string) string {
	return strings.TrimLeft(strings.ReplaceAll(p, `\`, "/"), "/")
}

// FormatNumber renders f the way seed strings have always spelled numbers.
func FormatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// number coerces a JSON value to a finite float. Strings holding numbers are
// accepted; null, booleans and objects are not.
func number(r gjson.Result) (float64, bool) {
	var f float64
	switch r.Type {
	case gjson.Number:
		f = r.Num
	case gjson.String:
		s := strings.TrimSpace(r.Str)
		if s == "" {
			return 0, false
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		f = v
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func numberOr(r gjson.Result, fallback float64) float64 {
	if f, ok := number(r); ok {
		return f
	}
	return fallback
}

// scalarString stringifies strings and numbers; everything else is "".
func scalarString(r gjson.Result) string {
	switch r.Type {
	case gjson.String:
		return r.Str
	case gjson.Number:
		return FormatNumber(r.Num)
	case gjson.True:
		return "true"
	case gjson.False:
		return "false"
	}
	return ""
}
