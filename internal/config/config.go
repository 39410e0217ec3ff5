// Package config holds the recognized options, their defaults, and loading
// from ini files and the environment.
package config

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"gopkg.in/ini.v1"

	"glyph-timescan/assets"
	"glyph-timescan/internal/rng"
)

// Layout configures strip geometry.
type Layout struct {
	GlyphHeight       float64
	GlyphGapPx        float64
	MaxRenderedGlyphs int

	// CellWidthPx and CellHeightPx map pixels to terminal cells.
	CellWidthPx  float64
	CellHeightPx float64
}

// Animation configures playback timing and phrase selection.
type Animation struct {
	GlyphsPerSecond   float64
	FlickerSteps      int
	EffectDurationMs  float64
	PrecomputedFrames int
	MinGlyphs         int
	FrameInterval     time.Duration
}

// Build configures the pool compiler.
type Build struct {
	SampleSize    int
	PoolFrames    int
	FlickerFrames int
	URLPrefix     string

	// Seed overrides the manifest seed when HasSeed is set.
	Seed    uint32
	HasSeed bool
}

// Options is the full configuration surface.
type Options struct {
	Layout    Layout
	Animation Animation
	Build     Build
}

// Default returns the documented defaults.
func Default() Options {
	return Options{
		Layout: Layout{
			GlyphHeight:       52,
			GlyphGapPx:        3,
			MaxRenderedGlyphs: 256,
			CellWidthPx:       8,
			CellHeightPx:      16,
		},
		Animation: Animation{
			GlyphsPerSecond:   36,
			FlickerSteps:      9,
			EffectDurationMs:  200,
			PrecomputedFrames: 4,
			MinGlyphs:         1,
			FrameInterval:     16 * time.Millisecond,
		},
		Build: Build{
			SampleSize:    500,
			PoolFrames:    4,
			FlickerFrames: 4,
			URLPrefix:     "/glyphs/",
		},
	}
}

var loadOptions = ini.LoadOptions{
	InsensitiveSections:     true,
	InsensitiveKeys:         true,
	SkipUnrecognizableLines: true,
}

// Load reads the embedded defaults and, when path is not empty, the user's
// file on top of them. Missing keys keep their defaults; malformed numbers
// fall back to the default rather than failing.
func Load(path string) (Options, error) {
	sources := []any{assets.DefaultConfig}
	if path != "" {
		sources = append(sources, path)
	}
	f, err := ini.LoadSources(loadOptions, sources[0], sources[1:]...)
	if err != nil {
		return Options{}, fmt.Errorf("load config: %w", err)
	}
	return FromFile(f), nil
}

// FromFile maps an ini file onto Options, starting from Default.
func FromFile(f *ini.File) Options {
	o := Default()

	layout := f.Section("layout")
	o.Layout.GlyphHeight = floatKey(layout, "glyph_height", o.Layout.GlyphHeight)
	o.Layout.GlyphGapPx = floatKey(layout, "glyph_gap_px", o.Layout.GlyphGapPx)
	o.Layout.MaxRenderedGlyphs = intKey(layout, "max_rendered_glyphs", o.Layout.MaxRenderedGlyphs)
	o.Layout.CellWidthPx = floatKey(layout, "cell_width_px", o.Layout.CellWidthPx)
	o.Layout.CellHeightPx = floatKey(layout, "cell_height_px", o.Layout.CellHeightPx)

	anim := f.Section("animation")
	o.Animation.GlyphsPerSecond = floatKey(anim, "glyphs_per_second", o.Animation.GlyphsPerSecond)
	o.Animation.FlickerSteps = intKey(anim, "flicker_steps", o.Animation.FlickerSteps)
	o.Animation.EffectDurationMs = floatKey(anim, "effect_duration_ms", o.Animation.EffectDurationMs)
	o.Animation.PrecomputedFrames = intKey(anim, "precomputed_frames", o.Animation.PrecomputedFrames)
	o.Animation.MinGlyphs = intKey(anim, "min_glyphs", o.Animation.MinGlyphs)
	if ms := floatKey(anim, "frame_interval_ms", 0); ms > 0 {
		o.Animation.FrameInterval = time.Duration(ms * float64(time.Millisecond))
	}

	build := f.Section("build")
	o.Build.SampleSize = intKey(build, "sample_size", o.Build.SampleSize)
	o.Build.PoolFrames = intKey(build, "pool_frames", o.Build.PoolFrames)
	o.Build.FlickerFrames = intKey(build, "flicker_frames", o.Build.FlickerFrames)
	if v := strings.TrimSpace(build.Key("url_prefix").String()); v != "" {
		o.Build.URLPrefix = v
	}
	if s, ok := ParseSeed(build.Key("seed").String()); ok {
		o.Build.Seed, o.Build.HasSeed = s, true
	}

	return o.Sanitize()
}

// Environment variables read by ApplyEnv.
const (
	EnvPoolSize      = "GLYPH_POOL_SIZE"
	EnvPoolSeed      = "GLYPH_POOL_SEED"
	EnvPoolFrames    = "GLYPH_POOL_FRAMES"
	EnvFlickerFrames = "GLYPH_FLICKER_FRAMES"
)

// ApplyEnv overrides build settings from the environment. Unset or
// non-numeric variables are ignored.
func (o Options) ApplyEnv(getenv func(string) string) Options {
	if v, ok := parseInt(getenv(EnvPoolSize)); ok {
		o.Build.SampleSize = v
	}
	if v, ok := parseInt(getenv(EnvPoolFrames)); ok {
		o.Build.PoolFrames = v
	}
	if v, ok := parseInt(getenv(EnvFlickerFrames)); ok {
		o.Build.FlickerFrames = v
	}
	if s, ok := ParseSeed(getenv(EnvPoolSeed)); ok {
		o.Build.Seed, o.Build.HasSeed = s, true
	}
	return o.Sanitize()
}

// Sanitize replaces non-finite or out-of-range values with defaults so no
// NaN reaches layout or timing.
func (o Options) Sanitize() Options {
	d := Default()
	o.Layout.GlyphHeight = Positive(o.Layout.GlyphHeight, d.Layout.GlyphHeight)
	o.Layout.GlyphGapPx = NonNegative(o.Layout.GlyphGapPx, d.Layout.GlyphGapPx)
	if o.Layout.MaxRenderedGlyphs <= 0 {
		o.Layout.MaxRenderedGlyphs = d.Layout.MaxRenderedGlyphs
	}
	o.Layout.CellWidthPx = Positive(o.Layout.CellWidthPx, d.Layout.CellWidthPx)
	o.Layout.CellHeightPx = Positive(o.Layout.CellHeightPx, d.Layout.CellHeightPx)

	o.Animation.GlyphsPerSecond = Positive(o.Animation.GlyphsPerSecond, d.Animation.GlyphsPerSecond)
	if o.Animation.FlickerSteps <= 0 {
		o.Animation.FlickerSteps = d.Animation.FlickerSteps
	}
	o.Animation.EffectDurationMs = Positive(o.Animation.EffectDurationMs, d.Animation.EffectDurationMs)
	if o.Animation.PrecomputedFrames < 0 {
		o.Animation.PrecomputedFrames = d.Animation.PrecomputedFrames
	}
	if o.Animation.MinGlyphs < 1 {
		o.Animation.MinGlyphs = 1
	}
	if o.Animation.FrameInterval <= 0 {
		o.Animation.FrameInterval = d.Animation.FrameInterval
	}

	if o.Build.SampleSize < 0 {
		o.Build.SampleSize = d.Build.SampleSize
	}
	if o.Build.PoolFrames < 0 {
		o.Build.PoolFrames = d.Build.PoolFrames
	}
	if o.Build.FlickerFrames <= 0 {
		o.Build.FlickerFrames = d.Build.FlickerFrames
	}
	return o
}

// Finite returns v, or fallback when v is NaN or infinite.
func Finite(v, fallback float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fallback
	}
	return v
}

// Positive returns v when it is finite and above zero, else fallback.
func Positive(v, fallback float64) float64 {
	if v = Finite(v, fallback); v <= 0 {
		return fallback
	}
	return v
}

// NonNegative returns v when it is finite and not below zero, else fallback.
func NonNegative(v, fallback float64) float64 {
	if v = Finite(v, fallback); v < 0 {
		return fallback
	}
	return v
}

func floatKey(s *ini.Section, name string, fallback float64) float64 {
	if !s.HasKey(name) {
		return fallback
	}
	v, err := s.Key(name).Float64()
	if err != nil {
		return fallback
	}
	return Finite(v, fallback)
}

func intKey(s *ini.Section, name string, fallback int) int {
	if !s.HasKey(name) {
		return fallback
	}
	v, err := s.Key(name).Float64()
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return fallback
	}
	return int(math.Floor(v))
}

func parseInt(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return int(math.Floor(v)), true
}

// ParseSeed accepts any finite number and wraps it to 32 bits. Empty or
// non-numeric input reports false.
func ParseSeed(s string) (uint32, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return rng.ToUint32(v), true
}
