// Package flicker chooses, for every glyph of the corpus, a fixed number of
// alternate glyphs with a similar aspect ratio. The alternates are shown
// briefly while a glyph flickers before it settles.
package flicker

import (
	"math"

	"glyph-timescan/internal/rng"
)

const (
	// BucketScale multiplies aspect ratios before rounding them to bucket keys.
	BucketScale = 100

	// SearchRadius is how many buckets on each side of a glyph's own bucket
	// are searched for candidates.
	SearchRadius = 18

	// MinCandidates stops the bucket search early once reached.
	MinCandidates = 48

	// DefaultFrames is the number of variants precomputed per glyph.
	DefaultFrames = 4
)

// Record is one glyph as seen by the selector.
type Record struct {
	File   string
	Width  float64
	Height float64
}

// AspectRatio returns width/height with both sides clamped to at least 1.
func AspectRatio(width, height float64) float64 {
	return finiteAtLeastOne(width) / finiteAtLeastOne(height)
}

func finiteAtLeastOne(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 1 {
		return 1
	}
	return v
}

// BucketKey is the ratio bucket a glyph of the given size falls into.
func BucketKey(width, height float64) int {
	return roundHalfUp(AspectRatio(width, height) * BucketScale)
}

// roundHalfUp rounds .5 toward +Inf.
func roundHalfUp(v float64) int {
	return int(math.Floor(v + 0.5))
}

// Index is the deduplicated file universe plus its ratio buckets.
// It is built once per compiler run.
type Index struct {
	files   []string
	buckets map[int][]string
}

// NewIndex builds the file pool (first-seen order, no duplicates) and
// buckets every record by ratio key. Buckets keep duplicates in record order;
// Candidates dedupes as it accumulates.
func NewIndex(records []Record) *Index {
	idx := &Index{buckets: make(map[int][]string)}
	seen := make(map[string]bool, len(records))
	for _, r := range records {
		key := BucketKey(r.Width, r.Height)
		idx.buckets[key] = append(idx.buckets[key], r.File)
		if !seen[r.File] {
			seen[r.File] = true
			idx.files = append(idx.files, r.File)
		}
	}
	return idx
}

// Files returns the deduplicated file pool.
func (idx *Index) Files() []string { return idx.files }

// Bucket returns the files recorded under key.
func (idx *Index) Bucket(key int) []string { return idx.buckets[key] }

// nearby searches outward from key until MinCandidates distinct files are
// collected or SearchRadius is exhausted.
func (idx *Index) nearby(key int) []string {
	var out []string
	seen := make(map[string]bool)
	add := func(files []string) {
		for _, f := range files {
			if !seen[f] {
				seen[f] = true
				out = append(out, f)
			}
		}
	}
	for radius := 0; radius <= SearchRadius; radius++ {
		add(idx.buckets[key-radius])
		if radius > 0 {
			add(idx.buckets[key+radius])
		}
		if len(out) >= MinCandidates {
			break
		}
	}
	return out
}

// Candidates returns the draw pool for a glyph: nearby files other than the
// glyph's own. When the search finds nothing the whole pool is used; when
// excluding the own file leaves nothing, the whole pool minus the own file
// is tried, then the whole pool.
func (idx *Index) Candidates(r Record) []string {
	nearby := idx.nearby(BucketKey(r.Width, r.Height))
	if len(nearby) == 0 {
		nearby = idx.files
	}
	if pool := without(nearby, r.File); len(pool) > 0 {
		return pool
	}
	if pool := without(idx.files, r.File); len(pool) > 0 {
		return pool
	}
	return idx.files
}

func without(files []string, drop string) []string {
	out := make([]string, 0, len(files))
	for _, f := range files {
		if f != drop {
			out = append(out, f)
		}
	}
	return out
}

// Pick draws frames entries from pool without replacement, refilling the
// working pool from pool whenever it runs dry. When the random pick equals
// the previous pick and more than one candidate remains, the next slot is
// taken instead. An empty pool yields an empty result.
func Pick(pool []string, frames int, r rng.Source) []string {
	if frames <= 0 || len(pool) == 0 {
		return []string{}
	}
	work := make([]string, 0, len(pool))
	work = append(work, pool...)
	out := make([]string, 0, frames)
	previous := ""
	havePrevious := false

	for len(out) < frames {
		if len(work) == 0 {
			work = append(work, pool...)
		}
		i := rng.Intn(r, len(work))
		if havePrevious && work[i] == previous && len(work) > 1 {
			i = (i + 1) % len(work)
		}
		picked := work[i]
		work = append(work[:i], work[i+1:]...)
		out = append(out, picked)
		previous, havePrevious = picked, true
	}
	return out
}
