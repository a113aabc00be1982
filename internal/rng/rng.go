// Package rng provides the random-number engine used for per-event sampling.
//
// Each worker owns its own engine. Engines are not safe for concurrent use;
// independent worker streams are derived from one run seed so that a run is
// reproducible for a fixed seed and worker count.
package rng

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// Engine draws uniform random numbers.
type Engine interface {
	// Flat returns a uniform draw on [lo, hi].
	Flat(lo, hi float64) float64
}

// Flat is an Engine backed by a PCG source.
type Flat struct {
	seed   uint64
	stream uint64
	src    *rand.PCG
}

// NewFlat returns an engine for the given seed and stream. Engines created with
// the same seed but different streams produce independent sequences.
func NewFlat(seed, stream uint64) *Flat {
	return &Flat{seed: seed, stream: stream, src: rand.NewPCG(seed, stream)}
}

// Flat implements Engine.
func (f *Flat) Flat(lo, hi float64) float64 {
	if lo == hi {
		return lo
	}
	return distuv.Uniform{Min: lo, Max: hi, Src: f.src}.Rand()
}

// Seed returns the seed and stream the engine was created with.
func (f *Flat) Seed() (seed, stream uint64) {
	return f.seed, f.stream
}

// NewSeed generates a run seed using crypto/rand.
func NewSeed() (uint64, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("read random seed: %w", err)
	}
	return binary.LittleEndian.Uint64(b[:]), nil
}

// ForWorker returns the engine for one worker of a run.
func ForWorker(runSeed uint64, worker int) *Flat {
	return NewFlat(runSeed, uint64(worker)+1)
}
