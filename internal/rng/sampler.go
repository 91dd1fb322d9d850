// internal/rng/sampler.go

package rng

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

var (
	ErrZeroBound     = errors.New("rng: bound must be > 0")
	ErrTooManyDraws  = errors.New("rng: cannot draw more distinct values than the bound allows")
	ErrNegativeCount = errors.New("rng: count must not be negative")
)

// Uint64 reads one little-endian word from r.
func Uint64(r io.Reader) (uint64, error) {
	var b [8]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b[:]), nil
}

// Uint64n returns a uniform value in [0, n). Draws from the biased tail of
// the 64-bit range are rejected rather than folded with a modulo.
func Uint64n(r io.Reader, n uint64) (uint64, error) {
	if n == 0 {
		return 0, ErrZeroBound
	}
	if n&(n-1) == 0 {
		v, err := Uint64(r)
		return v & (n - 1), err
	}
	limit := math.MaxUint64 - math.MaxUint64%n
	for {
		v, err := Uint64(r)
		if err != nil {
			return 0, err
		}
		if v < limit {
			return v % n, nil
		}
	}
}

// Sample draws count values in [0, n). With distinct set, no value repeats
// and count may not exceed n.
//
// Distinct draws re-draw on collision, so they are meant for count much
// smaller than n; a full permutation of a small range still terminates but
// needs more draws as it fills.
func Sample(r io.Reader, count int, n uint64, distinct bool) ([]uint64, error) {
	if count < 0 {
		return nil, ErrNegativeCount
	}
	if n == 0 {
		return nil, ErrZeroBound
	}
	if distinct && uint64(count) > n {
		return nil, fmt.Errorf("%w: %d from %d", ErrTooManyDraws, count, n)
	}

	out := make([]uint64, 0, count)
	var seen map[uint64]struct{}
	if distinct {
		seen = make(map[uint64]struct{}, count)
	}
	for len(out) < count {
		v, err := Uint64n(r, n)
		if err != nil {
			return nil, err
		}
		if distinct {
			if _, dup := seen[v]; dup {
				continue
			}
			seen[v] = struct{}{}
		}
		out = append(out, v)
	}
	return out, nil
}
