package sample

import (
	"fmt"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"glyph-timescan/internal/rng"
)

func seq(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func TestReservoirBoundedSize(t *testing.T) {
	cases := []struct {
		n, k, want int
	}{
		{0, 5, 0},
		{3, 0, 0},
		{3, -1, 0},
		{10, 500, 10},
		{500, 10, 10},
		{64, 64, 64},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("n=%d,k=%d", tc.n, tc.k), func(t *testing.T) {
			got := Reservoir(seq(tc.n), tc.k, rng.New(7))
			assert.Len(t, got, tc.want)
		})
	}
}

func TestReservoirMembersComeFromItemsWithoutDuplicates(t *testing.T) {
	items := seq(1000)
	got := Reservoir(items, 50, rng.New(rng.Hash32("glyph-pool")))
	seen := make(map[int]bool, len(got))
	for _, v := range got {
		require.True(t, v >= 0 && v < 1000, "value %d not from items", v)
		require.False(t, seen[v], "duplicate %d", v)
		seen[v] = true
	}
}

func TestReservoirDeterministic(t *testing.T) {
	items := seq(2000)
	a := Reservoir(items, 100, rng.New(42))
	b := Reservoir(items, 100, rng.New(42))
	assert.Equal(t, a, b)

	c := Reservoir(items, 100, rng.New(43))
	assert.NotEqual(t, a, c)
}

func TestReservoirSmallCorpusReturnsAllShuffled(t *testing.T) {
	items := seq(10)
	got := Reservoir(items, 500, rng.New(42))
	require.Len(t, got, 10)

	sorted := append([]int(nil), got...)
	sort.Ints(sorted)
	assert.Equal(t, items, sorted)
}

func TestReservoirDoesNotMutateInput(t *testing.T) {
	items := seq(30)
	Reservoir(items, 5, rng.New(3))
	assert.Equal(t, seq(30), items)
}

func TestReservoirEveryItemReachable(t *testing.T) {
	items := seq(20)
	hits := make(map[int]int)
	for seed := uint32(1); seed <= 400; seed++ {
		for _, v := range Reservoir(items, 3, rng.New(seed)) {
			hits[v]++
		}
	}
	for _, v := range items {
		assert.Positive(t, hits[v], "item %d never selected", v)
	}
}

func TestReservoirDrawOrder(t *testing.T) {
	// Scripted stream: item 2 (i=2) draws 0.1 -> j=0 replaces slot 0,
	// then the shuffle draw of 0.0 swaps slots 1 and 0.
	draws := []float64{0.1, 0.0}
	next := 0
	src := rng.Func(func() float64 {
		v := draws[next]
		next++
		return v
	})
	got := Reservoir([]string{"a", "b", "c"}, 2, src)
	assert.Equal(t, []string{"b", "c"}, got)
	assert.Equal(t, 2, next)
}

func TestShuffleKeepsMembers(t *testing.T) {
	s := seq(50)
	Shuffle(s, rng.New(99))
	sorted := append([]int(nil), s...)
	sort.Ints(sorted)
	assert.Equal(t, seq(50), sorted)
}
