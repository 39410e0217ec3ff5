// Package sample draws bounded, order-randomized subsets from ordered corpora.
package sample

import "glyph-timescan/internal/rng"

// Reservoir returns min(k, len(items)) items chosen uniformly from items and
// shuffled. The first k items seed the reservoir; each later item at position
// i replaces slot floor(r*(i+1)) when that slot is below k. A Fisher–Yates
// pass over the reservoir, drawing from the same stream, fixes the order.
//
// items is never modified.
func Reservoir[T any](items []T, k int, r rng.Source) []T {
	size := min(k, len(items))
	if size <= 0 {
		return []T{}
	}

	out := make([]T, size)
	copy(out, items[:size])
	for i := size; i < len(items); i++ {
		if j := rng.Intn(r, i+1); j < size {
			out[j] = items[i]
		}
	}

	Shuffle(out, r)
	return out
}

// Shuffle performs an in-place Fisher–Yates shuffle.
func Shuffle[T any](s []T, r rng.Source) {
	for i := len(s) - 1; i > 0; i-- {
		j := rng.Intn(r, i+1)
		s[i], s[j] = s[j], s[i]
	}
}
