// internal/rng/pool.go
package rng

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math/bits"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

const (
	// DefaultLanes is the lane count used when PoolConfig leaves it unset.
	DefaultLanes = 16
	// DefaultLaneWords gives 512-byte lanes, so two refills emit one KiB.
	DefaultLaneWords = 64

	wordBytes = 8
	groupSize = 4
)

var (
	ErrLaneCount   = errors.New("rng: lane count must be a positive power of two")
	ErrLaneSize    = errors.New("rng: lane must hold at least one group of 4 words")
	ErrInterrupted = errors.New("rng: refill interrupted")
)

// IsRetryable reports whether err came from an interrupted refill. The pool
// state is untouched in that case and the caller may simply try again.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrInterrupted)
}

// PoolConfig describes the lane geometry.
type PoolConfig struct {
	Lanes     int
	LaneWords int
}

// Validate checks the geometry without allocating anything.
func (c PoolConfig) Validate() error {
	if c.Lanes <= 0 || bits.OnesCount(uint(c.Lanes)) != 1 {
		return fmt.Errorf("%w: got %d", ErrLaneCount, c.Lanes)
	}
	if c.LaneWords < groupSize {
		return fmt.Errorf("%w: got %d", ErrLaneSize, c.LaneWords)
	}
	return nil
}

func (c PoolConfig) withDefaults() PoolConfig {
	if c.Lanes == 0 {
		c.Lanes = DefaultLanes
	}
	if c.LaneWords == 0 {
		c.LaneWords = DefaultLaneWords
	}
	return c
}

// Pool serves bytes out of a fixed set of lanes that are refreshed in place
// after every read.
//
// Refreshes, and every other use of the Engine, are serialized by one
// pool-wide guard. Lane selection and the copy out of a lane are lock free:
// a reader racing a refresh of the same lane may see a mix of old and new
// words. Each word is loaded atomically, so whatever it sees was produced by
// a completed fill or refresh step. Locking reads would bring back the
// contention the lanes exist to avoid.
type Pool struct {
	engine    *Engine
	guard     *semaphore.Weighted
	words     []atomic.Uint64
	laneWords int
	mask      uint64

	// hint mirrors engine s0 after every guarded step so selection can
	// read it without the guard.
	hint    atomic.Uint64
	refills atomic.Uint64
}

// NewPool allocates the lanes, fills them from the engine and refreshes each
// one once. The pool owns engine from here on.
func NewPool(engine *Engine, cfg PoolConfig) (*Pool, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if engine == nil {
		engine = SeedEngine(SystemClock)
	}

	p := &Pool{
		engine:    engine,
		guard:     semaphore.NewWeighted(1),
		words:     make([]atomic.Uint64, cfg.Lanes*cfg.LaneWords),
		laneWords: cfg.LaneWords,
		mask:      uint64(cfg.Lanes - 1),
	}
	for i := 0; i < cfg.Lanes; i++ {
		p.fillLane(p.lane(i))
	}
	for i := 0; i < cfg.Lanes; i++ {
		p.refreshLane(p.lane(i))
	}
	p.publish()
	return p, nil
}

// Lanes returns the lane count.
func (p *Pool) Lanes() int { return int(p.mask) + 1 }

// LaneWords returns the number of words per lane.
func (p *Pool) LaneWords() int { return p.laneWords }

// LaneBytes returns the size of one lane in bytes.
func (p *Pool) LaneBytes() int { return p.laneWords * wordBytes }

// Refills returns the number of completed lane refreshes.
func (p *Pool) Refills() uint64 { return p.refills.Load() }

// SelectLane picks a lane from the low bits of the live xorshift state.
func (p *Pool) SelectLane() int {
	return int(p.hint.Load() & p.mask)
}

// Read fills buf from successively selected lanes, refreshing each lane after
// it is copied. See ReadContext.
func (p *Pool) Read(buf []byte) (int, error) {
	return p.ReadContext(context.Background(), buf)
}

// ReadContext fills buf one lane at a time, in selection order. Every call
// refreshes at least one lane, so an empty read still advances the pool.
// If ctx ends while waiting for the guard, the bytes copied so far are
// returned with an error wrapping ErrInterrupted.
func (p *Pool) ReadContext(ctx context.Context, buf []byte) (int, error) {
	n := 0
	for {
		idx := p.SelectLane()
		n += p.copyLane(idx, buf[n:])
		if err := p.Refresh(ctx, idx); err != nil {
			return n, err
		}
		if n >= len(buf) {
			return n, nil
		}
	}
}

// Refresh regenerates lane idx under the guard.
func (p *Pool) Refresh(ctx context.Context, idx int) error {
	return p.WithEngine(ctx, func(*Engine) {
		p.refreshLane(p.lane(idx & int(p.mask)))
		p.refills.Add(1)
	})
}

// WithEngine runs fn with exclusive access to the engine. It is the only way
// to touch engine state once the pool exists.
func (p *Pool) WithEngine(ctx context.Context, fn func(*Engine)) error {
	if err := p.guard.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("%w: %w", ErrInterrupted, err)
	}
	defer p.guard.Release(1)
	fn(p.engine)
	p.publish()
	return nil
}

// Snapshot copies lane idx into a new slice of words.
func (p *Pool) Snapshot(idx int) []uint64 {
	lane := p.lane(idx & int(p.mask))
	out := make([]uint64, len(lane))
	for i := range lane {
		out[i] = lane[i].Load()
	}
	return out
}

func (p *Pool) lane(idx int) []atomic.Uint64 {
	off := idx * p.laneWords
	return p.words[off : off+p.laneWords]
}

func (p *Pool) publish() {
	_, s0, _ := p.engine.State()
	p.hint.Store(s0)
}

// copyLane writes up to one lane of little-endian words into dst.
func (p *Pool) copyLane(idx int, dst []byte) int {
	lane := p.lane(idx)
	var w [wordBytes]byte
	n := 0
	for i := 0; i < len(lane) && n < len(dst); i++ {
		binary.LittleEndian.PutUint64(w[:], lane[i].Load())
		n += copy(dst[n:], w[:])
	}
	return n
}

func (p *Pool) fillLane(lane []atomic.Uint64) {
	for i := range lane {
		lane[i].Store(p.engine.Mix128())
	}
}

// refreshLane rewrites lane in groups of four. The recombination depends on
// the parity of z1. Words past the last full group are left as they are.
func (p *Pool) refreshLane(lane []atomic.Uint64) {
	z1 := p.engine.Advance()
	z2 := p.engine.Advance()
	z3 := p.engine.Advance()
	for c := 0; c+groupSize <= len(lane); c += groupSize {
		x := p.engine.Mix128()
		y := p.engine.Mix128()
		w1, w2, w3 := lane[c+1].Load(), lane[c+2].Load(), lane[c+3].Load()
		if z1&1 == 0 {
			lane[c].Store(w1 ^ x ^ y)
			lane[c+1].Store(w2 ^ y ^ z1)
			lane[c+2].Store(w3 ^ x ^ z2)
			lane[c+3].Store(x ^ y ^ z3)
		} else {
			lane[c].Store(w1 ^ x ^ z2)
			lane[c+1].Store(w2 ^ x ^ y)
			lane[c+2].Store(w3 ^ y ^ z3)
			lane[c+3].Store(w3 ^ x ^ y ^ z1)
		}
	}
}
