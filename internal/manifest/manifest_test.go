package manifest

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

const sampleManifest = `{
  "resolvedSeed": 1234,
  "source": "corpus-v2",
  "items": [
    {
      "id": "p-1",
      "phrase": "Café",
      "glyphs": [
        {"index": 0, "width": 10, "height": 20, "file": "\\glyphs\\a.svg", "extra": true},
        {"index": "2", "width": "bad", "file": "/glyphs/b.svg", "flickerVariants": ["x.svg", 3]},
        "not-a-glyph",
        {"width": 8, "height": 8}
      ]
    },
    {"id": 7, "phrase": "second"},
    {"id": "p-3", "glyphs": {}}
  ]
}`

func TestParseTolerantShapes(t *testing.T) {
	m, err := Parse([]byte(sampleManifest))
	require.NoError(t, err)
	require.True(t, m.HasItems)
	require.Len(t, m.Items, 3)

	seed, ok := m.ResolvedSeed()
	require.True(t, ok)
	assert.Equal(t, 1234.0, seed)

	first := m.Items[0]
	assert.Equal(t, "p-1", first.ID)
	assert.Equal(t, "Café", first.Phrase, "phrase text is NFC-normalized")
	require.Len(t, first.Glyphs, 3, "non-object glyph entries are skipped")

	a := first.Glyphs[0]
	assert.Equal(t, 0, a.Pos)
	assert.Equal(t, "0", a.IndexKey)
	assert.Equal(t, 10.0, a.Width)
	assert.Equal(t, 20.0, a.Height)
	assert.Nil(t, a.FlickerVariants)

	b := first.Glyphs[1]
	assert.Equal(t, 2, b.Index)
	assert.Equal(t, "2", b.IndexKey)
	assert.Equal(t, 1.0, b.Width, "non-numeric width falls back to 1")
	assert.Equal(t, 1.0, b.Height, "missing height falls back to 1")
	assert.Equal(t, []string{"x.svg", "3"}, b.FlickerVariants)

	noFile := first.Glyphs[2]
	assert.Equal(t, 3, noFile.Pos, "positions track the raw array")
	assert.Equal(t, "", noFile.File)
	assert.Equal(t, "", noFile.IndexKey)

	assert.Equal(t, "7", m.Items[1].ID)
	assert.Empty(t, m.Items[1].Glyphs)
	assert.Empty(t, m.Items[2].Glyphs)
}

func TestParseWithoutItems(t *testing.T) {
	m, err := Parse([]byte(`{"resolvedSeed": null}`))
	require.NoError(t, err)
	assert.False(t, m.HasItems)
	_, ok := m.ResolvedSeed()
	assert.False(t, ok, "null seeds are treated as absent")
}

func TestParseInvalidJSON(t *testing.T) {
	_, err := Parse([]byte(`{"items": [`))
	require.ErrorIs(t, err, ErrInvalidJSON)
}

func TestLoadMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "manifest.json"))
	require.ErrorIs(t, err, ErrNotFound)
}

func TestNormalizePath(t *testing.T) {
	cases := map[string]string{
		`\glyphs\a.svg`:    "glyphs/a.svg",
		"//glyphs/b.svg":   "glyphs/b.svg",
		"glyphs/c.svg":     "glyphs/c.svg",
		"":                 "",
		`dir\sub/file.png`: "dir/sub/file.png",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizePath(in), "NormalizePath(%q)", in)
	}
}

func TestWriteVariantsPreservesUnknownFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manifest.json")
	require.NoError(t, os.WriteFile(path, []byte(sampleManifest), 0o644))

	m, err := Load(path)
	require.NoError(t, err)

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	err = m.WriteVariants([]VariantPatch{
		{ItemPos: 0, GlyphPos: 0, Variants: []string{"v1.svg", "v2.svg"}},
		{ItemPos: 0, GlyphPos: 1, Variants: []string{"v3.svg"}},
	}, PatchMeta{Frames: 2, BucketScale: 100, GeneratedAt: at})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	doc := gjson.ParseBytes(data)

	assert.Equal(t, "corpus-v2", doc.Get("source").String())
	assert.True(t, doc.Get("items.0.glyphs.0.extra").Bool())
	assert.Equal(t, `["v1.svg","v2.svg"]`, compactArray(doc.Get("items.0.glyphs.0.flickerVariants")))
	assert.Equal(t, `["v3.svg"]`, compactArray(doc.Get("items.0.glyphs.1.flickerVariants")))
	assert.Equal(t, "not-a-glyph", doc.Get("items.0.glyphs.2").String())
	assert.Equal(t, int64(2), doc.Get("flickerVariantFrames").Int())
	assert.Equal(t, int64(100), doc.Get("flickerVariantBucketScale").Int())
	assert.Equal(t, "2026-03-01T12:00:00Z", doc.Get("flickerVariantsGeneratedAt").String())
	assert.Equal(t, byte('\n'), data[len(data)-1])

	reparsed, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"v1.svg", "v2.svg"}, reparsed.Items[0].Glyphs[0].FlickerVariants)
}

func compactArray(r gjson.Result) string {
	out := "["
	for i, v := range r.Array() {
		if i > 0 {
			out += ","
		}
		out += `"` + v.String() + `"`
	}
	return out + "]"
}
