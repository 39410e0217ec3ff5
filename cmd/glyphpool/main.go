// glyphpool prepares the glyph corpus for the timescan. Build:
//
//	go build -o glyphpool ./cmd/glyphpool
//
// Usage:
//
//	./glyphpool precompute [-root dir] [-manifest manifest.json] [-frames 4]
//	./glyphpool build [-root dir] [-assets public/glyphs] [-size 500] [-seed n]
//
// precompute writes flicker variants into the manifest in place; build
// samples the corpus into pool.gen.json and stages the referenced images.
// GLYPH_POOL_SIZE, GLYPH_POOL_SEED, GLYPH_POOL_FRAMES and
// GLYPH_FLICKER_FRAMES override the config file; flags override both.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"

	"glyph-timescan/internal/config"
	"glyph-timescan/internal/flicker"
	"glyph-timescan/internal/manifest"
	"glyph-timescan/internal/pool"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := run(ctx, os.Args[1:], os.Getenv, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

const usage = "usage: glyphpool precompute|build [flags]"

// errUsage is returned for a missing or unknown subcommand.
var errUsage = errors.New(usage)

// buildFlags holds the flags shared by both subcommands.
type buildFlags struct {
	root      string
	manifest  string
	assets    string
	out       string
	urlPrefix string
	config    string
	size      int
	seed      string
	frames    int
	probe     bool
	verbose   bool
}

func newFlagSet(name string, stderr io.Writer) (*flag.FlagSet, *buildFlags) {
	f := &buildFlags{}
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&f.root, "root", ".", "Corpus root; manifest file paths resolve against it")
	fs.StringVar(&f.manifest, "manifest", "manifest.json", "Corpus manifest, relative to -root unless absolute")
	fs.StringVar(&f.config, "config", "", "Optional ini file overriding the built-in defaults")
	fs.IntVar(&f.frames, "frames", 0, "Flicker variants per glyph (0 keeps the configured value)")
	fs.BoolVar(&f.verbose, "v", false, "Verbose logging")
	if name == "build" {
		fs.StringVar(&f.assets, "assets", filepath.Join("public", "glyphs"), "Directory receiving the staged glyph images")
		fs.StringVar(&f.out, "out", "", "Pool artifact path (default <assets>/"+pool.ArtifactName+")")
		fs.StringVar(&f.urlPrefix, "url-prefix", "", "Locator prefix for staged images (empty keeps the configured value)")
		fs.IntVar(&f.size, "size", 0, "Phrases to sample (0 keeps the configured value)")
		fs.StringVar(&f.seed, "seed", "", "Sampling seed overriding the manifest's resolvedSeed")
		fs.BoolVar(&f.probe, "probe", false, "Decode staged images and warn about geometry drift")
	}
	return fs, f
}

func run(ctx context.Context, args []string, getenv func(string) string, stderr io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}
	cmd, rest := args[0], args[1:]
	if cmd != "precompute" && cmd != "build" {
		return fmt.Errorf("unknown command %q: %w", cmd, errUsage)
	}

	fs, f := newFlagSet(cmd, stderr)
	if err := fs.Parse(rest); err != nil {
		return err
	}

	level := slog.LevelInfo
	if f.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	cfg, err := config.Load(f.config)
	if err != nil {
		return err
	}
	cfg = cfg.ApplyEnv(getenv)

	manifestPath := f.manifest
	if !filepath.IsAbs(manifestPath) {
		manifestPath = filepath.Join(f.root, manifestPath)
	}

	if cmd == "precompute" {
		frames := cfg.Build.FlickerFrames
		if f.frames > 0 {
			frames = f.frames
		}
		return precompute(manifestPath, frames, logger)
	}

	opts := pool.CompileOptions{
		ManifestPath: manifestPath,
		SourceRoot:   f.root,
		AssetRoot:    f.assets,
		OutputPath:   f.out,
		URLPrefix:    cfg.Build.URLPrefix,
		SampleSize:   cfg.Build.SampleSize,
		Frames:       cfg.Build.PoolFrames,
		Seed:         cfg.Build.Seed,
		HasSeed:      cfg.Build.HasSeed,
		Probe:        f.probe,
		Logger:       logger,
	}
	if f.urlPrefix != "" {
		opts.URLPrefix = f.urlPrefix
	}
	if f.size > 0 {
		opts.SampleSize = f.size
	}
	if f.frames > 0 {
		opts.Frames = f.frames
	}
	if f.seed != "" {
		seed, ok := config.ParseSeed(f.seed)
		if !ok {
			return fmt.Errorf("invalid -seed %q", f.seed)
		}
		opts.Seed, opts.HasSeed = seed, true
	}

	res, err := pool.Compile(ctx, opts)
	if err != nil {
		return err
	}
	logger.Info("glyph pool ready",
		"path", res.OutputPath,
		"phrases", res.Pool.SampledCount,
		"glyphs", res.Pool.GlyphCount,
		"seed", res.Pool.Seed)
	return nil
}

func precompute(path string, frames int, logger *slog.Logger) error {
	m, err := manifest.Load(path)
	if err != nil {
		return err
	}
	res, err := flicker.Precompute(m, flicker.Options{Frames: frames, Logger: logger})
	if err != nil {
		return err
	}
	if err := m.WriteVariants(res.Patches, res.Meta); err != nil {
		return err
	}
	logger.Info("manifest updated", "path", path, "glyphs", res.Glyphs, "frames", res.Meta.Frames)
	return nil
}
