package store

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/ArowuTest/srandom/internal/device"
)

// StatusSource yields the current device status.
type StatusSource interface {
	Status() device.Status
}

// Snapshotter writes a status snapshot every interval, and a final one when
// its context ends.
type Snapshotter struct {
	rec      Recorder
	src      StatusSource
	interval time.Duration
	log      zerolog.Logger
	now      func() time.Time
}

// NewSnapshotter returns a Snapshotter; Run does nothing when interval <= 0.
func NewSnapshotter(rec Recorder, src StatusSource, interval time.Duration, log zerolog.Logger) *Snapshotter {
	return &Snapshotter{rec: rec, src: src, interval: interval, log: log, now: time.Now}
}

// Run blocks until ctx is done.
func (s *Snapshotter) Run(ctx context.Context) {
	if s.interval <= 0 {
		return
	}
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			// ctx is already done; give the final write its own deadline.
			final, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			s.Take(final)
			cancel()
			return
		case <-ticker.C:
			s.Take(ctx)
		}
	}
}

// Take records one snapshot now.
func (s *Snapshotter) Take(ctx context.Context) {
	snap := SnapshotFrom(s.src.Status(), s.now().UTC())
	if err := s.rec.SaveSnapshot(ctx, snap); err != nil {
		s.log.Error().Err(err).Msg("status snapshot failed")
		return
	}
	s.log.Debug().Uint64("refills", snap.Refills).Msg("status snapshot saved")
}
