package pool

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"glyph-timescan/internal/rng"
)

type corpusGlyph struct {
	Index           int      `json:"index"`
	Width           float64  `json:"width"`
	Height          float64  `json:"height"`
	File            string   `json:"file,omitempty"`
	FlickerVariants []string `json:"flickerVariants,omitempty"`
}

type corpusItem struct {
	ID     string        `json:"id"`
	Phrase string        `json:"phrase"`
	Glyphs []corpusGlyph `json:"glyphs"`
}

// writeCorpus lays out a manifest and its glyph files under a temp dir and
// returns the manifest path.
func writeCorpus(t *testing.T, seed any, items []corpusItem, skip ...string) string {
	t.Helper()
	root := t.TempDir()
	doc := map[string]any{"items": items}
	if seed != nil {
		doc["resolvedSeed"] = seed
	}
	data, err := json.Marshal(doc)
	require.NoError(t, err)
	path := filepath.Join(root, "manifest.json")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	skipped := make(map[string]bool)
	for _, s := range skip {
		skipped[s] = true
	}
	for _, it := range items {
		for _, g := range it.Glyphs {
			if g.File == "" || skipped[g.File] {
				continue
			}
			dst := filepath.Join(root, filepath.FromSlash(g.File))
			require.NoError(t, os.MkdirAll(filepath.Dir(dst), 0o755))
			require.NoError(t, os.WriteFile(dst, []byte("<svg/>"), 0o644))
		}
	}
	return path
}

func threeItems() []corpusItem {
	return []corpusItem{
		{ID: "a", Phrase: "alpha", Glyphs: []corpusGlyph{
			{Index: 0, Width: 10, Height: 20, File: "g/a0.svg", FlickerVariants: []string{"g/b0.svg", "g/outside.svg", "/g/c0.svg"}},
			{Index: 1, Width: 12, Height: 20, File: "g/a1.svg"},
		}},
		{ID: "b", Phrase: "beta", Glyphs: []corpusGlyph{
			{Index: 0, Width: 20, Height: 20, File: "g/b0.svg"},
		}},
		{ID: "c", Phrase: "gamma", Glyphs: []corpusGlyph{
			{Index: 0, Width: 5, Height: 20, File: "g/c0.svg"},
			{Index: 1, Width: 5, Height: 20},
		}},
	}
}

func compileOpts(manifestPath string, t *testing.T) CompileOptions {
	return CompileOptions{
		ManifestPath: manifestPath,
		AssetRoot:    filepath.Join(t.TempDir(), "assets"),
		URLPrefix:    "/glyphs/",
		SampleSize:   500,
		Frames:       3,
	}
}

func TestCompile(t *testing.T) {
	path := writeCorpus(t, 7, threeItems())
	opts := compileOpts(path, t)

	res, err := Compile(context.Background(), opts)
	require.NoError(t, err)
	p := res.Pool

	assert.Equal(t, uint32(7), p.Seed)
	assert.Equal(t, 3, p.SampledCount)
	assert.Equal(t, 3, p.TotalCount)
	assert.Equal(t, 5, p.GlyphCount)
	assert.Len(t, p.GlyphTokens, 5)
	assert.Len(t, p.Phrases, 3)
	assert.ElementsMatch(t, []string{"g/a0.svg", "g/a1.svg", "g/b0.svg", "g/c0.svg"}, res.Assets)

	byID := map[string]PhraseRecord{}
	for _, ph := range p.Phrases {
		byID[ph.ID] = ph
	}
	a0 := byID["a"].Glyphs[0]
	assert.Equal(t, "/glyphs/g/a0.svg", a0.File)
	assert.Equal(t, []string{"/glyphs/g/b0.svg", "/glyphs/g/c0.svg", "/glyphs/g/a0.svg"}, a0.FlickerVariants,
		"variants outside the shipped set are dropped and the list is padded with the base file")

	noFile := byID["c"].Glyphs[1]
	assert.Equal(t, "", noFile.File)
	assert.Equal(t, []string{"", "", ""}, noFile.FlickerVariants)

	for _, g := range p.GlyphTokens {
		assert.Len(t, g.FlickerVariants, 3)
	}
	for _, f := range res.Assets {
		assert.FileExists(t, filepath.Join(opts.AssetRoot, filepath.FromSlash(f)))
	}

	read, err := ReadFile(res.OutputPath)
	require.NoError(t, err)
	assert.Equal(t, p, read)
	assert.Equal(t, GeneratedHeader, read.Generated)
}

func TestCompileReproducible(t *testing.T) {
	var items []corpusItem
	for i := 0; i < 40; i++ {
		items = append(items, corpusItem{ID: fmt.Sprint("p", i), Phrase: fmt.Sprint("phrase ", i)})
	}
	path := writeCorpus(t, nil, items)

	opts := compileOpts(path, t)
	opts.SampleSize = 10
	first, err := Compile(context.Background(), opts)
	require.NoError(t, err)
	second, err := Compile(context.Background(), opts)
	require.NoError(t, err)

	assert.Equal(t, rng.Hash32("glyph-pool"), first.Pool.Seed)
	assert.Equal(t, 10, first.Pool.SampledCount)
	assert.Equal(t, 40, first.Pool.TotalCount)
	assert.Equal(t, first.Pool.Phrases, second.Pool.Phrases)

	opts.Seed, opts.HasSeed = 99, true
	other, err := Compile(context.Background(), opts)
	require.NoError(t, err)
	assert.Equal(t, uint32(99), other.Pool.Seed)
	assert.NotEqual(t, first.Pool.Phrases, other.Pool.Phrases)
}

func TestCompileSmallCorpusKeepsEverything(t *testing.T) {
	var items []corpusItem
	for i := 0; i < 10; i++ {
		items = append(items, corpusItem{ID: fmt.Sprint(i), Phrase: fmt.Sprint("text ", i)})
	}
	res, err := Compile(context.Background(), compileOpts(writeCorpus(t, 3, items), t))
	require.NoError(t, err)
	assert.Equal(t, 10, res.Pool.SampledCount)

	var ids []string
	for _, ph := range res.Pool.Phrases {
		ids = append(ids, ph.ID)
	}
	assert.ElementsMatch(t, []string{"0", "1", "2", "3", "4", "5", "6", "7", "8", "9"}, ids)
}

func TestCompileErrors(t *testing.T) {
	ctx := context.Background()

	_, err := Compile(ctx, compileOpts(filepath.Join(t.TempDir(), "manifest.json"), t))
	require.ErrorIs(t, err, ErrManifestNotFound)

	_, err = Compile(ctx, compileOpts(writeCorpus(t, nil, nil), t))
	require.ErrorIs(t, err, ErrEmptyCorpus)

	_, err = Compile(ctx, compileOpts(writeCorpus(t, nil, threeItems(), "g/b0.svg"), t))
	var missing *MissingAssetError
	require.True(t, errors.As(err, &missing))
	assert.Contains(t, missing.Path, filepath.FromSlash("g/b0.svg"))

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = Compile(cancelled, compileOpts(writeCorpus(t, nil, threeItems()), t))
	require.ErrorIs(t, err, context.Canceled)
}

func TestCompileProbeWarnsOnDrift(t *testing.T) {
	items := []corpusItem{{ID: "x", Phrase: "x", Glyphs: []corpusGlyph{
		{Index: 0, Width: 10, Height: 10, File: "g/wide.png"},
		{Index: 1, Width: 10, Height: 10, File: "g/note.svg"},
	}}}
	path := writeCorpus(t, 1, items)

	f, err := os.Create(filepath.Join(filepath.Dir(path), "g", "wide.png"))
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, image.NewGray(image.Rect(0, 0, 20, 10))))
	require.NoError(t, f.Close())

	var buf bytes.Buffer
	opts := compileOpts(path, t)
	opts.Probe = true
	opts.Logger = slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	_, err = Compile(context.Background(), opts)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "glyph geometry drift")
	assert.Contains(t, out, "file=g/wide.png")
	assert.Contains(t, out, "probe skipped")
}

func TestRatioDrift(t *testing.T) {
	_, off := ratioDrift(10, 10, 101, 100)
	assert.False(t, off)
	d, off := ratioDrift(10, 10, 20, 10)
	assert.True(t, off)
	assert.InDelta(t, 1.0, d, 1e-9)
	_, off = ratioDrift(0, 10, 20, 10)
	assert.False(t, off)
}

func fivePhrases(seed uint32) *GlyphPool {
	p := &GlyphPool{Seed: seed}
	for i := 0; i < 5; i++ {
		ph := PhraseRecord{ID: fmt.Sprint(i)}
		for j := 0; j < i; j++ {
			ph.Glyphs = append(ph.Glyphs, GlyphRecord{Index: j, Width: 1, Height: 1})
		}
		p.Phrases = append(p.Phrases, ph)
	}
	return p
}

func TestPickPhrase(t *testing.T) {
	p := fivePhrases(42)
	start := int(rng.Hash32("42:hello") % 5)

	got, ok := PickPhrase(p, "hello", 1)
	require.True(t, ok)
	assert.Equal(t, p.Phrases[start], got)

	for i := 0; i < 3; i++ {
		again, _ := PickPhrase(p, "hello", 1)
		assert.Equal(t, got, again)
	}

	// Phrase i has i glyphs; the first at or after start with >= 4 glyphs.
	want := start
	for len(p.Phrases[want].Glyphs) < 4 {
		want = (want + 1) % 5
	}
	got, _ = PickPhrase(p, "hello", 4)
	assert.Equal(t, p.Phrases[want], got)

	got, _ = PickPhrase(p, "hello", 50)
	assert.Equal(t, p.Phrases[start], got, "falls back to the start phrase")

	_, ok = PickPhrase(&GlyphPool{}, "hello", 1)
	assert.False(t, ok)
	_, ok = PickPhrase(nil, "hello", 1)
	assert.False(t, ok)
}

func TestMinGlyphs(t *testing.T) {
	assert.Equal(t, 1, MinGlyphs(0))
	assert.Equal(t, 1, MinGlyphs(-3))
	assert.Equal(t, 3, MinGlyphs(3.9))
}

func TestLoaderCoalescesConcurrentLoads(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	l := NewLoader(func(context.Context) (*GlyphPool, error) {
		calls.Add(1)
		<-release
		return fivePhrases(1), nil
	})

	const callers = 8
	var wg sync.WaitGroup
	results := make([]*GlyphPool, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p, err := l.Load(context.Background())
			assert.NoError(t, err)
			results[i] = p
		}(i)
	}
	for calls.Load() == 0 {
		// wait for the first caller to enter the load
	}
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, p := range results {
		assert.Same(t, results[0], p)
	}
	assert.True(t, l.Loaded())

	_, err := l.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestLoaderForgetsFailure(t *testing.T) {
	fail := true
	calls := 0
	l := NewLoader(func(context.Context) (*GlyphPool, error) {
		calls++
		if fail {
			return nil, errors.New("boom")
		}
		return fivePhrases(2), nil
	})

	_, err := l.Load(context.Background())
	require.Error(t, err)
	assert.False(t, l.Loaded())

	fail = false
	p, err := l.Load(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, p)
	assert.Equal(t, 2, calls)
}

func TestFileLoaderMissingArtifact(t *testing.T) {
	_, err := FileLoader(filepath.Join(t.TempDir(), ArtifactName)).Load(context.Background())
	require.ErrorIs(t, err, ErrArtifactNotFound)
}

func TestResolver(t *testing.T) {
	calls := 0
	l := NewLoader(func(context.Context) (*GlyphPool, error) {
		calls++
		return fivePhrases(42), nil
	})
	r, err := NewResolver(l, 4, nil)
	require.NoError(t, err)

	got := r.Resolve(context.Background(), "  hello ", 1)
	want, _ := PickPhrase(fivePhrases(42), "hello", 1)
	if want.Glyphs == nil {
		assert.Empty(t, got)
	} else {
		assert.Equal(t, want.Glyphs, got)
	}
	r.Resolve(context.Background(), "hello", 1)
	assert.Equal(t, 1, calls)
}

func TestResolverDegradesToEmpty(t *testing.T) {
	l := NewLoader(func(context.Context) (*GlyphPool, error) {
		return nil, errors.New("unavailable")
	})
	var buf bytes.Buffer
	r, err := NewResolver(l, 0, slog.New(slog.NewTextHandler(&buf, nil)))
	require.NoError(t, err)

	got := r.Resolve(context.Background(), "hello", 1)
	assert.NotNil(t, got)
	assert.Empty(t, got)
	assert.Contains(t, buf.String(), "glyph pool unavailable")

	empty, err := NewResolver(NewLoader(func(context.Context) (*GlyphPool, error) {
		return &GlyphPool{}, nil
	}), 0, nil)
	require.NoError(t, err)
	assert.Empty(t, empty.Resolve(context.Background(), "hello", 1))
}
