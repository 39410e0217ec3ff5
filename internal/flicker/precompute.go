package flicker

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"glyph-timescan/internal/manifest"
	"glyph-timescan/internal/rng"
)

// ErrNoGlyphRecords is returned when no glyph in the manifest names a file.
var ErrNoGlyphRecords = errors.New("flicker: manifest has no glyph records")

// ErrMissingItems is returned when the manifest has no items array.
var ErrMissingItems = errors.New("flicker: invalid manifest: missing items[]")

// Selector draws per-glyph variants from an Index.
type Selector struct {
	Index    *Index
	Frames   int
	BaseSeed string
}

// Seed returns the per-glyph seed: Hash32("{base}:{phraseID}:{index}:{file}").
func (s *Selector) Seed(phraseID, indexKey, file string) uint32 {
	return rng.Hash32(s.BaseSeed + ":" + phraseID + ":" + indexKey + ":" + file)
}

// Variants returns exactly s.Frames variants for one glyph. The result only
// depends on the corpus, the base seed, and the glyph's identity.
func (s *Selector) Variants(phraseID, indexKey string, r Record) []string {
	src := rng.New(s.Seed(phraseID, indexKey, r.File))
	return Pick(s.Index.Candidates(r), s.Frames, src)
}

// Options configures Precompute.
type Options struct {
	// Frames is the number of variants per glyph. Zero or less means DefaultFrames.
	Frames int

	// Now stamps the manifest. Nil means time.Now.
	Now func() time.Time

	Logger *slog.Logger
}

// Result is the outcome of a precompute pass.
type Result struct {
	Patches []manifest.VariantPatch
	Meta    manifest.PatchMeta
	Glyphs  int
}

// BaseSeed returns the manifest's resolvedSeed spelled as in seed strings,
// or Hash32("flicker-variants") when the manifest has none.
func BaseSeed(m *manifest.Manifest) string {
	if seed, ok := m.ResolvedSeed(); ok {
		return manifest.FormatNumber(seed)
	}
	return fmt.Sprint(rng.Hash32("flicker-variants"))
}

// Precompute assigns flicker variants to every glyph that names a file.
// The manifest itself is not modified; apply the result with
// manifest.WriteVariants.
func Precompute(m *manifest.Manifest, opts Options) (*Result, error) {
	if !m.HasItems {
		return nil, ErrMissingItems
	}
	frames := opts.Frames
	if frames <= 0 {
		frames = DefaultFrames
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	type ref struct {
		item  *manifest.Item
		glyph *manifest.Glyph
	}
	var refs []ref
	var records []Record
	for i := range m.Items {
		it := &m.Items[i]
		for j := range it.Glyphs {
			g := &it.Glyphs[j]
			if g.File == "" {
				continue
			}
			refs = append(refs, ref{item: it, glyph: g})
			records = append(records, Record{File: g.File, Width: g.Width, Height: g.Height})
		}
	}
	if len(records) == 0 {
		return nil, ErrNoGlyphRecords
	}

	sel := &Selector{Index: NewIndex(records), Frames: frames, BaseSeed: BaseSeed(m)}
	res := &Result{
		Patches: make([]manifest.VariantPatch, 0, len(refs)),
		Meta: manifest.PatchMeta{
			Frames:      frames,
			BucketScale: BucketScale,
			GeneratedAt: now(),
		},
		Glyphs: len(refs),
	}
	for i, rf := range refs {
		variants := sel.Variants(rf.item.ID, rf.glyph.IndexKey, records[i])
		res.Patches = append(res.Patches, manifest.VariantPatch{
			ItemPos:  rf.item.Pos,
			GlyphPos: rf.glyph.Pos,
			Variants: variants,
		})
	}

	log.Info("precomputed flicker variants",
		"glyphs", res.Glyphs,
		"frames", frames,
		"files", len(sel.Index.Files()),
		"base_seed", sel.BaseSeed)
	return res, nil
}
