// internal/device/device.go
package device

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/ArowuTest/srandom/internal/rng"
)

const (
	DefaultName       = "srandom"
	Version           = "1.10"
	DefaultReseedSpan = 255
	MaxReseedSpan     = math.MaxInt16

	// initialCountdown is the number of closes before the first policy reseed.
	initialCountdown = 2
)

var (
	ErrClosed     = errors.New("device: closed")
	ErrReseedSpan = fmt.Errorf("device: reseed span must not exceed %d", MaxReseedSpan)
)

// Config controls how a Device is built.
type Config struct {
	Name string
	Pool rng.PoolConfig
	// ReseedSpan masks the advancer output that reloads each reseed
	// countdown, so a countdown never exceeds ReseedSpan closes.
	ReseedSpan uint64
	Clock      rng.Clock
	Logger     zerolog.Logger
}

func (c Config) withDefaults() Config {
	if c.Name == "" {
		c.Name = DefaultName
	}
	if c.ReseedSpan == 0 {
		c.ReseedSpan = DefaultReseedSpan
	}
	if c.Clock == nil {
		c.Clock = rng.SystemClock
	}
	return c
}

// Device is the process-wide random byte service. Construct one at startup,
// hand it to whatever serves callers, and Shutdown it on exit.
type Device struct {
	name string
	pool *rng.Pool
	log  zerolog.Logger
	span uint64

	// guarded by the pool guard
	countdownX int64
	countdownS int64

	open      atomic.Int64
	openTotal atomic.Uint64
	bytesRead atomic.Uint64
	reseedsX  atomic.Uint64
	reseedsS  atomic.Uint64
	forced    atomic.Uint64
	closed    atomic.Bool
}

// New seeds an engine from the clock and builds the lane pool. It fails,
// and nothing should be registered, if the pool cannot be built.
func New(cfg Config) (*Device, error) {
	cfg = cfg.withDefaults()
	return NewWithEngine(rng.SeedEngine(cfg.Clock), cfg)
}

// NewWithEngine builds a Device around an already seeded engine.
func NewWithEngine(engine *rng.Engine, cfg Config) (*Device, error) {
	cfg = cfg.withDefaults()
	if cfg.ReseedSpan > MaxReseedSpan {
		return nil, ErrReseedSpan
	}
	engine.SetClock(cfg.Clock)

	pool, err := rng.NewPool(engine, cfg.Pool)
	if err != nil {
		return nil, fmt.Errorf("device: build pool: %w", err)
	}
	d := &Device{
		name:       cfg.Name,
		pool:       pool,
		log:        cfg.Logger.With().Str("device", cfg.Name).Logger(),
		span:       cfg.ReseedSpan,
		countdownX: initialCountdown,
		countdownS: initialCountdown,
	}
	d.log.Info().
		Int("lanes", pool.Lanes()).
		Int("lane_words", pool.LaneWords()).
		Str("version", Version).
		Msg("device ready")
	return d, nil
}

// Name returns the device name.
func (d *Device) Name() string { return d.name }

// Pool exposes the underlying lane pool.
func (d *Device) Pool() *rng.Pool { return d.pool }

// Open registers a new reader. It only fails once the device is shut down.
func (d *Device) Open() (*Handle, error) {
	if d.closed.Load() {
		return nil, ErrClosed
	}
	d.open.Add(1)
	d.openTotal.Add(1)
	return newHandle(d), nil
}

// Read serves len(p) bytes without an open handle.
func (d *Device) Read(p []byte) (int, error) {
	return d.ReadContext(context.Background(), p)
}

// ReadContext serves len(p) bytes. Cancelling ctx only matters while the
// refill guard is contended; the error is then retryable.
func (d *Device) ReadContext(ctx context.Context, p []byte) (int, error) {
	if d.closed.Load() {
		return 0, ErrClosed
	}
	n, err := d.pool.ReadContext(ctx, p)
	d.bytesRead.Add(uint64(n))
	return n, err
}

// Write accepts and discards p. Written bytes never reach the engine.
func (d *Device) Write(p []byte) (int, error) {
	if d.closed.Load() {
		return 0, ErrClosed
	}
	return len(p), nil
}

// Reseed re-keys both generators immediately, outside the close policy.
func (d *Device) Reseed(ctx context.Context) error {
	if d.closed.Load() {
		return ErrClosed
	}
	err := d.pool.WithEngine(ctx, func(e *rng.Engine) {
		e.ReseedX()
		e.Reseed()
	})
	if err != nil {
		return err
	}
	d.reseedsX.Add(1)
	d.reseedsS.Add(1)
	d.forced.Add(1)
	d.log.Info().Msg("forced reseed")
	return nil
}

// Shutdown stops the device. Later reads, writes and opens fail with
// ErrClosed; handles already open may still be closed.
func (d *Device) Shutdown() {
	if d.closed.Swap(true) {
		return
	}
	st := d.Status()
	d.log.Info().
		Int64("open", st.Open).
		Uint64("refills", st.Refills).
		Uint64("bytes", st.BytesRead).
		Msg("device shut down")
}

// release runs the close-time policy: tick both reseed countdowns, reseed
// whichever ran out, then refresh the lane a reader would pick next.
func (d *Device) release(ctx context.Context) error {
	d.open.Add(-1)
	if d.closed.Load() {
		return nil
	}

	var reseededX, reseededS bool
	err := d.pool.WithEngine(ctx, func(e *rng.Engine) {
		d.countdownX--
		if d.countdownX <= 0 {
			d.countdownX = int64(e.Advance() & d.span)
			e.ReseedX()
			reseededX = true
		}
		d.countdownS--
		if d.countdownS <= 0 {
			d.countdownS = int64(e.Advance() & d.span)
			e.Reseed()
			reseededS = true
		}
	})
	if err != nil {
		return err
	}
	if reseededX {
		d.reseedsX.Add(1)
		d.log.Debug().Msg("advancer reseeded")
	}
	if reseededS {
		d.reseedsS.Add(1)
		d.log.Debug().Msg("xorshift reseeded")
	}
	return d.pool.Refresh(ctx, d.pool.SelectLane())
}
