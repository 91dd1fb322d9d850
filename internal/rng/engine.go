// internal/rng/engine.go
package rng

import "time"

const (
	goldenGamma = 0x9E3779B97F4A7C15
	mixMul1     = 0xBF58476D1CE4E5B9
	mixMul2     = 0x94D049BB133111EB
)

// Clock returns a nanosecond reading used to seed and reseed the Engine.
type Clock func() uint64

// SystemClock reads the wall clock in nanoseconds.
func SystemClock() uint64 {
	return uint64(time.Now().UnixNano())
}

// Engine pairs a splitmix-style advancer (x) with a xorshift128+ generator (s0, s1).
//
// An Engine is not safe for concurrent use. Inside a Pool it is only touched
// while the refill guard is held.
//
// Seeded from a clock, the output is only as unpredictable as the clock
// readings; this generator is fast and well mixed, not cryptographically secure.
type Engine struct {
	x     uint64
	s     [2]uint64
	clock Clock
}

// NewEngine returns an Engine with pinned state. A zero xorshift state is
// perturbed so the generator cannot sit on its all-zero fixed point.
func NewEngine(x, s0, s1 uint64) *Engine {
	e := &Engine{x: x, s: [2]uint64{s0, s1}, clock: SystemClock}
	e.perturb()
	return e
}

// SeedEngine builds an Engine from the clock in two stages: x from a first
// reading, s0 and s1 drawn from the advancer, then x re-keyed and s reseeded
// from later readings.
func SeedEngine(clock Clock) *Engine {
	if clock == nil {
		clock = SystemClock
	}
	e := &Engine{clock: clock}
	e.x = clock()
	e.s[0] = e.Advance()
	e.s[1] = e.Advance()
	e.ReseedX()
	e.Reseed()
	return e
}

// Advance steps x by the golden gamma and returns the splitmix finalizer of it.
func (e *Engine) Advance() uint64 {
	e.x += goldenGamma
	z := e.x
	z = (z ^ (z >> 30)) * mixMul1
	z = (z ^ (z >> 27)) * mixMul2
	return z ^ (z >> 31)
}

// Mix128 runs one xorshift128+ step.
func (e *Engine) Mix128() uint64 {
	s0, s1 := e.s[0], e.s[1]
	t := s0 ^ (s0 << 23)
	n1 := t ^ s1 ^ (t >> 18) ^ (s1 >> 5)
	e.s[0] = s1
	e.s[1] = n1
	return n1 + s1
}

// Reseed re-keys the xorshift words with two fresh clock readings, shifting
// s0 by 31 and s1 by 24 so the words diverge even for close readings.
func (e *Engine) Reseed() {
	e.s[0] = (e.s[0] << 31) ^ e.clock()
	e.s[1] = (e.s[1] << 24) ^ e.clock()
	e.perturb()
}

// ReseedX re-keys the advancer with a fresh clock reading.
func (e *Engine) ReseedX() {
	e.x = (e.x << 32) ^ e.clock()
}

// State returns a copy of the raw state.
func (e *Engine) State() (x, s0, s1 uint64) {
	return e.x, e.s[0], e.s[1]
}

// SetClock replaces the reseed clock.
func (e *Engine) SetClock(clock Clock) {
	if clock != nil {
		e.clock = clock
	}
}

func (e *Engine) perturb() {
	if e.s[0] == 0 && e.s[1] == 0 {
		e.s[0] = goldenGamma
	}
}
