// Package rng provides the seeded generators shared by the pool compiler and
// the runtime. Every stream is reproducible from its 32-bit seed.
package rng

import (
	"math"
	"unicode/utf16"
)

const (
	fnvOffset = 2166136261
	fnvPrime  = 16777619

	// weylStep is the odd increment added to the state on every draw.
	weylStep = 0x6d2b79f5
)

// Source yields floats in [0, 1).
type Source interface {
	Float64() float64
}

// Hash32 folds s into a 32-bit seed with FNV-1a over its UTF-16 code units,
// so seeds match the ones baked into existing manifests.
func Hash32(s string) uint32 {
	h := uint32(fnvOffset)
	for _, u := range utf16.Encode([]rune(s)) {
		h ^= uint32(u)
		h *= fnvPrime
	}
	return h
}

// Rng is a Mulberry32 generator.
type Rng struct {
	state uint32
}

// New returns a generator for seed. A zero seed is replaced by 1.
func New(seed uint32) *Rng {
	if seed == 0 {
		seed = 1
	}
	return &Rng{state: seed}
}

// Next advances the generator and returns the raw 32-bit output.
func (r *Rng) Next() uint32 {
	r.state += weylStep
	t := r.state
	t = (t ^ (t >> 15)) * (t | 1)
	t ^= t + (t^(t>>7))*(t|61)
	return t ^ (t >> 14)
}

// Float64 returns the next value in [0, 1).
func (r *Rng) Float64() float64 {
	return float64(r.Next()) / 4294967296.0
}

// Intn returns floor(Float64()*n). n <= 0 yields 0.
func (r *Rng) Intn(n int) int {
	return Intn(r, n)
}

// Intn draws an index in [0, n) from any Source.
func Intn(src Source, n int) int {
	if n <= 0 {
		return 0
	}
	i := int(src.Float64() * float64(n))
	if i >= n {
		i = n - 1
	}
	return i
}

// Func adapts a plain function to Source.
type Func func() float64

// Float64 calls f.
func (f Func) Float64() float64 { return f() }

// ToUint32 converts a manifest number to a seed with JavaScript ToUint32
// semantics: truncate toward zero, then wrap modulo 2^32.
func ToUint32(f float64) uint32 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	m := math.Mod(math.Trunc(f), 4294967296)
	if m < 0 {
		m += 4294967296
	}
	return uint32(m)
}
