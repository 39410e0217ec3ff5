package pool

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"glyph-timescan/internal/manifest"
	"glyph-timescan/internal/rng"
	"glyph-timescan/internal/sample"
)

// Build defaults.
const (
	DefaultSampleSize = 500
	DefaultFrames     = 4
)

// CompileOptions configures Compile.
type CompileOptions struct {
	// ManifestPath is the corpus manifest.
	ManifestPath string

	// SourceRoot is where manifest file paths are resolved. Empty means the
	// manifest's directory.
	SourceRoot string

	// AssetRoot receives copies of the referenced glyph files.
	AssetRoot string

	// OutputPath is the artifact path. Empty means AssetRoot/pool.gen.json.
	OutputPath string

	// URLPrefix is prepended to relative asset paths to form locators.
	URLPrefix string

	SampleSize int
	Frames     int

	// Seed overrides the manifest seed when HasSeed is set.
	Seed    uint32
	HasSeed bool

	// Probe decodes staged image headers and warns about geometry drift.
	Probe bool

	Logger *slog.Logger
}

// Result describes a finished compile.
type Result struct {
	Pool       *GlyphPool
	OutputPath string

	// Assets lists the staged relative paths in first-seen order.
	Assets []string
}

// Seed resolves the sampling seed: explicit override, then the manifest's
// resolvedSeed, then Hash32("glyph-pool").
func Seed(m *manifest.Manifest, override uint32, hasOverride bool) uint32 {
	if hasOverride {
		return override
	}
	if s, ok := m.ResolvedSeed(); ok {
		return rng.ToUint32(s)
	}
	return rng.Hash32("glyph-pool")
}

// Compile samples the corpus, filters and pads flicker variants, stages the
// referenced assets and writes the pool artifact. Any missing input is fatal.
func Compile(ctx context.Context, opts CompileOptions) (*Result, error) {
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	size := opts.SampleSize
	if size <= 0 {
		size = DefaultSampleSize
	}
	frames := opts.Frames
	if frames <= 0 {
		frames = DefaultFrames
	}
	sourceRoot := opts.SourceRoot
	if sourceRoot == "" {
		sourceRoot = filepath.Dir(opts.ManifestPath)
	}
	out := opts.OutputPath
	if out == "" {
		out = filepath.Join(opts.AssetRoot, ArtifactName)
	}

	m, err := manifest.Load(opts.ManifestPath)
	if err != nil {
		if errors.Is(err, manifest.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrManifestNotFound, opts.ManifestPath)
		}
		return nil, err
	}
	if len(m.Items) == 0 {
		return nil, ErrEmptyCorpus
	}

	seed := Seed(m, opts.Seed, opts.HasSeed)
	sampled := sample.Reservoir(m.Items, size, rng.New(seed))
	log.Debug("sampled phrases", "seed", seed, "sampled", len(sampled), "total", len(m.Items))

	var files []string
	geometry := make(map[string]manifest.Glyph)
	for _, it := range sampled {
		for _, g := range it.Glyphs {
			f := manifest.NormalizePath(g.File)
			if f == "" {
				continue
			}
			if _, ok := geometry[f]; !ok {
				geometry[f] = g
				files = append(files, f)
			}
		}
	}

	locate := func(rel string) string {
		if rel == "" {
			return ""
		}
		return opts.URLPrefix + rel
	}

	p := &GlyphPool{
		Generated:    GeneratedHeader,
		Source:       filepath.ToSlash(opts.ManifestPath),
		Seed:         seed,
		Frames:       frames,
		SampledCount: len(sampled),
		TotalCount:   len(m.Items),
		Phrases:      make([]PhraseRecord, 0, len(sampled)),
		GlyphTokens:  []GlyphRecord{},
	}
	for _, it := range sampled {
		phrase := PhraseRecord{ID: it.ID, Text: it.Phrase, Glyphs: make([]GlyphRecord, 0, len(it.Glyphs))}
		for _, g := range it.Glyphs {
			base := manifest.NormalizePath(g.File)
			variants := shippedVariants(g.FlickerVariants, geometry, base, frames)
			for i := range variants {
				variants[i] = locate(variants[i])
			}
			rec := GlyphRecord{
				Index:           g.Index,
				Width:           g.Width,
				Height:          g.Height,
				File:            locate(base),
				FlickerVariants: variants,
			}
			phrase.Glyphs = append(phrase.Glyphs, rec)
			p.GlyphTokens = append(p.GlyphTokens, rec)
		}
		p.Phrases = append(p.Phrases, phrase)
	}
	p.GlyphCount = len(p.GlyphTokens)

	if err := stage(ctx, sourceRoot, opts.AssetRoot, files); err != nil {
		return nil, err
	}
	if opts.Probe {
		for _, f := range files {
			g := geometry[f]
			probeGeometry(log, filepath.Join(opts.AssetRoot, filepath.FromSlash(f)), f, g.Width, g.Height)
		}
	}

	if err := WriteFile(out, p); err != nil {
		return nil, err
	}

	log.Info("wrote glyph pool", "path", out, "phrases", len(p.Phrases), "glyphs", p.GlyphCount)
	log.Info("copied glyph assets", "count", len(files), "dir", opts.AssetRoot)
	return &Result{Pool: p, OutputPath: out, Assets: files}, nil
}

// shippedVariants keeps provided variants that are part of the shipped file
// set, takes at most frames of them and pads with the base file.
func shippedVariants(provided []string, shipped map[string]manifest.Glyph, base string, frames int) []string {
	out := make([]string, 0, frames)
	for _, v := range provided {
		if len(out) == frames {
			break
		}
		v = manifest.NormalizePath(v)
		if v == "" {
			continue
		}
		if _, ok := shipped[v]; ok {
			out = append(out, v)
		}
	}
	for len(out) < frames {
		out = append(out, base)
	}
	return out
}

func stage(ctx context.Context, sourceRoot, assetRoot string, files []string) error {
	if err := os.MkdirAll(assetRoot, 0o755); err != nil {
		return fmt.Errorf("create asset root: %w", err)
	}
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		rel := filepath.FromSlash(f)
		if err := copyFile(filepath.Join(sourceRoot, rel), filepath.Join(assetRoot, rel)); err != nil {
			return err
		}
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &MissingAssetError{Path: src}
		}
		return fmt.Errorf("open asset: %w", err)
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("create asset dir: %w", err)
	}
	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create asset: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy asset %s: %w", src, err)
	}
	return out.Close()
}
