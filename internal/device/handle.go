package device

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Handle is one open reader of a Device. It is an io.ReadWriteCloser and
// may be shared between goroutines.
type Handle struct {
	id  uuid.UUID
	dev *Device

	read    atomic.Uint64
	written atomic.Uint64

	closeOnce sync.Once
	closeErr  error
	closed    atomic.Bool
}

var (
	_ io.ReadWriteCloser = (*Handle)(nil)
	_ io.WriterTo        = (*Handle)(nil)
)

func newHandle(d *Device) *Handle {
	return &Handle{id: uuid.New(), dev: d}
}

// ID identifies the handle.
func (h *Handle) ID() uuid.UUID { return h.id }

// BytesRead returns the bytes served through this handle.
func (h *Handle) BytesRead() uint64 { return h.read.Load() }

// BytesWritten returns the bytes accepted, and dropped, through this handle.
func (h *Handle) BytesWritten() uint64 { return h.written.Load() }

// Closed reports whether Close has been called.
func (h *Handle) Closed() bool { return h.closed.Load() }

func (h *Handle) Read(p []byte) (int, error) {
	return h.ReadContext(context.Background(), p)
}

// ReadContext fills p entirely, spanning as many lanes as it takes.
func (h *Handle) ReadContext(ctx context.Context, p []byte) (int, error) {
	if h.closed.Load() {
		return 0, ErrClosed
	}
	n, err := h.dev.ReadContext(ctx, p)
	h.read.Add(uint64(n))
	return n, err
}

// Write reports p as accepted and drops it.
func (h *Handle) Write(p []byte) (int, error) {
	if h.closed.Load() {
		return 0, ErrClosed
	}
	n, err := h.dev.Write(p)
	h.written.Add(uint64(n))
	return n, err
}

// WriteTo streams one lane-sized chunk at a time into w until w fails or
// accepts less than a full chunk. A failing writer only ends this call; the
// pool is unaffected.
func (h *Handle) WriteTo(w io.Writer) (int64, error) {
	buf := make([]byte, h.dev.pool.LaneBytes())
	var total int64
	for {
		n, err := h.Read(buf)
		if err != nil {
			return total, err
		}
		m, err := w.Write(buf[:n])
		total += int64(m)
		if err == nil && m < n {
			err = io.ErrShortWrite
		}
		if err != nil {
			return total, fmt.Errorf("device: copy to caller: %w", err)
		}
	}
}

// Close releases the handle. Only the first call has any effect.
func (h *Handle) Close() error {
	h.closeOnce.Do(func() {
		h.closed.Store(true)
		h.closeErr = h.dev.release(context.Background())
	})
	return h.closeErr
}
