// Package cache memoizes per-subject predictions keyed by (subject,
// parameter vector). Correctness depends only on: bit-identical inputs
// hit, byte-distinct inputs miss; both a bounded LRU and an unbounded map
// satisfy that contract, and both are provided here.
package cache

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Key is an opaque, comparable cache key suitable for use as a Go map key.
type Key string

// KeyOf builds the cache key for a (subject, parameter vector) pair from
// the subject's stable ID and the raw IEEE-754 bytes of each parameter
// value, so that bit-identical float64 inputs hit and byte-distinct
// floats miss (including the -0.0 vs 0.0 and NaN-payload distinctions
// math.Float64bits preserves and == would not).
func KeyOf(subjectID string, params mat.Vector) Key {
	n := params.Len()
	buf := make([]byte, 0, len(subjectID)+1+n*8)
	buf = append(buf, subjectID...)
	buf = append(buf, 0)
	for i := 0; i < n; i++ {
		bits := math.Float64bits(params.AtVec(i))
		buf = append(buf,
			byte(bits>>56), byte(bits>>48), byte(bits>>40), byte(bits>>32),
			byte(bits>>24), byte(bits>>16), byte(bits>>8), byte(bits),
		)
	}
	return Key(buf)
}

// Cache memoizes prediction vectors. Implementations must be safe for
// concurrent reads and concurrent inserts.
type Cache interface {
	// Get returns the cached prediction for key, if present.
	Get(key Key) ([]float64, bool)
	// Put stores value under key.
	Put(key Key, value []float64)
	// Len returns the number of entries currently cached.
	Len() int
}
