package pool

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"glyph-timescan/internal/rng"
)

// PickPhrase maps text to a phrase deterministically. The start index is
// Hash32("{seed}:{text}") mod the phrase count; with minGlyphs above 1 the
// phrases are probed forward (wrapping) for the first with enough glyphs,
// falling back to the start phrase. ok is false for an empty pool.
func PickPhrase(p *GlyphPool, text string, minGlyphs int) (phrase PhraseRecord, ok bool) {
	if p == nil || len(p.Phrases) == 0 {
		return PhraseRecord{}, false
	}
	n := len(p.Phrases)
	start := int(rng.Hash32(strconv.FormatUint(uint64(p.Seed), 10)+":"+text) % uint32(n))
	if minGlyphs <= 1 {
		return p.Phrases[start], true
	}
	for off := 0; off < n; off++ {
		c := p.Phrases[(start+off)%n]
		if len(c.Glyphs) >= minGlyphs {
			return c, true
		}
	}
	return p.Phrases[start], true
}

// MinGlyphs normalizes a minimum-glyph hint: non-finite or below one means 1.
func MinGlyphs(v float64) int {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 1 {
		return 1
	}
	return int(math.Floor(v))
}

// DefaultCacheSize bounds the Resolver cache.
const DefaultCacheSize = 1024

type resolveKey struct {
	text      string
	minGlyphs int
}

// Resolver turns overlay text into the glyphs of its phrase, caching the
// answer per (text, minGlyphs). It is safe for concurrent use.
type Resolver struct {
	loader *Loader
	cache  *lru.Cache[resolveKey, []GlyphRecord]
	log    *slog.Logger
}

// NewResolver returns a Resolver backed by loader. size <= 0 means
// DefaultCacheSize.
func NewResolver(loader *Loader, size int, logger *slog.Logger) (*Resolver, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	cache, err := lru.New[resolveKey, []GlyphRecord](size)
	if err != nil {
		return nil, fmt.Errorf("pool: resolver cache: %w", err)
	}
	return &Resolver{loader: loader, cache: cache, log: logger}, nil
}

// Resolve returns the glyphs for text. Load failures and unmapped text yield
// an empty slice; failures are not cached.
func (r *Resolver) Resolve(ctx context.Context, text string, minGlyphs int) []GlyphRecord {
	text = strings.TrimSpace(text)
	if minGlyphs < 1 {
		minGlyphs = 1
	}
	key := resolveKey{text: text, minGlyphs: minGlyphs}
	if g, ok := r.cache.Get(key); ok {
		return g
	}

	p, err := r.loader.Load(ctx)
	if err != nil {
		r.log.Warn("glyph pool unavailable", "err", err)
		return []GlyphRecord{}
	}
	phrase, ok := PickPhrase(p, text, minGlyphs)
	if !ok {
		r.log.Warn("glyph pool has no phrases")
		return []GlyphRecord{}
	}
	glyphs := phrase.Glyphs
	if glyphs == nil {
		glyphs = []GlyphRecord{}
	}
	r.cache.Add(key, glyphs)
	return glyphs
}
