package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ArowuTest/srandom/internal/device"
	"github.com/ArowuTest/srandom/internal/models"
)

var epoch = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func TestSnapshotFrom(t *testing.T) {
	st := device.Status{
		Device: "srandom", Open: 2, OpenTotal: 9, Refills: 40, BytesRead: 1234,
		KBytes: 20, ReseedsS: 3, ReseedsX: 4, ForcedReseeds: 1,
	}
	snap := SnapshotFrom(st, epoch)
	assert.NotEqual(t, uuid.Nil, snap.ID)
	assert.Equal(t, epoch, snap.TakenAt)
	assert.Equal(t, "srandom", snap.Device)
	assert.Equal(t, int64(2), snap.Open)
	assert.Equal(t, uint64(9), snap.OpenTotal)
	assert.Equal(t, uint64(40), snap.Refills)
	assert.Equal(t, uint64(1234), snap.BytesRead)
	assert.Equal(t, uint64(20), snap.KBytes)
	assert.Equal(t, uint64(3), snap.ReseedsS)
	assert.Equal(t, uint64(4), snap.ReseedsX)
	assert.Equal(t, uint64(1), snap.ForcedReseeds)
}

// recorderSuite runs against any Recorder.
func recorderSuite(t *testing.T, rec Recorder) {
	ctx := context.Background()

	id := uuid.New()
	require.NoError(t, rec.SessionOpened(ctx, models.Session{ID: id, Device: "srandom", OpenedAt: epoch}))
	require.NoError(t, rec.SessionOpened(ctx, models.Session{ID: uuid.New(), Device: "srandom", OpenedAt: epoch.Add(time.Minute)}))
	require.NoError(t, rec.SessionClosed(ctx, id, epoch.Add(time.Second), 512, 3))
	assert.ErrorIs(t, rec.SessionClosed(ctx, uuid.New(), epoch, 0, 0), ErrNotFound)

	sessions, err := rec.ListSessions(ctx, 10)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Nil(t, sessions[0].ClosedAt, "newest first")
	assert.Equal(t, id, sessions[1].ID)
	require.NotNil(t, sessions[1].ClosedAt)
	assert.True(t, sessions[1].ClosedAt.Equal(epoch.Add(time.Second)))
	assert.Equal(t, uint64(512), sessions[1].BytesRead)
	assert.Equal(t, uint64(3), sessions[1].BytesWritten)

	for i := 0; i < 3; i++ {
		snap := SnapshotFrom(device.Status{Device: "srandom", Refills: uint64(i)}, epoch.Add(time.Duration(i)*time.Hour))
		require.NoError(t, rec.SaveSnapshot(ctx, snap))
	}
	snaps, err := rec.ListSnapshots(ctx, 2)
	require.NoError(t, err)
	require.Len(t, snaps, 2)
	assert.Equal(t, uint64(2), snaps[0].Refills)
	assert.Equal(t, uint64(1), snaps[1].Refills)
}

func TestMemoryStore(t *testing.T) {
	recorderSuite(t, NewMemory(0))
}

func TestMemoryStoreBounded(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(3)
	first := uuid.New()
	require.NoError(t, m.SessionOpened(ctx, models.Session{ID: first, OpenedAt: epoch}))
	for i := 1; i < 5; i++ {
		require.NoError(t, m.SessionOpened(ctx, models.Session{ID: uuid.New(), OpenedAt: epoch.Add(time.Duration(i) * time.Second)}))
		require.NoError(t, m.SaveSnapshot(ctx, models.StatusSnapshot{ID: uuid.New(), TakenAt: epoch.Add(time.Duration(i) * time.Second)}))
	}
	sessions, err := m.ListSessions(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, sessions, 3)
	assert.ErrorIs(t, m.SessionClosed(ctx, first, epoch, 0, 0), ErrNotFound, "oldest session evicted")

	snaps, err := m.ListSnapshots(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, snaps, 3)
}

// TestGormStore needs a disposable postgres database, e.g.
// SRANDOM_TEST_DSN="host=localhost user=postgres dbname=srandom_test sslmode=disable".
func TestGormStore(t *testing.T) {
	dsn := os.Getenv("SRANDOM_TEST_DSN")
	if dsn == "" {
		t.Skip("SRANDOM_TEST_DSN not set")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.Migrator().DropTable(&models.Session{}, &models.StatusSnapshot{}))

	rec, err := NewGorm(db)
	require.NoError(t, err)
	recorderSuite(t, rec)
}

type fixedSource struct{ st device.Status }

func (f fixedSource) Status() device.Status { return f.st }

func TestSnapshotterTake(t *testing.T) {
	m := NewMemory(0)
	s := NewSnapshotter(m, fixedSource{device.Status{Device: "srandom", Refills: 77}}, time.Hour, zerolog.Nop())
	s.now = func() time.Time { return epoch }
	s.Take(context.Background())

	snaps, err := m.ListSnapshots(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.Equal(t, uint64(77), snaps[0].Refills)
	assert.Equal(t, epoch, snaps[0].TakenAt)
}

func TestSnapshotterRun(t *testing.T) {
	m := NewMemory(0)
	s := NewSnapshotter(m, fixedSource{device.Status{Device: "srandom"}}, 5*time.Millisecond, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		snaps, _ := m.ListSnapshots(context.Background(), 0)
		return len(snaps) >= 2
	}, time.Second, 5*time.Millisecond)
	cancel()
	<-done

	before, _ := m.ListSnapshots(context.Background(), 500)
	assert.GreaterOrEqual(t, len(before), 3, "a final snapshot is written on stop")
}

func TestSnapshotterDisabled(t *testing.T) {
	m := NewMemory(0)
	s := NewSnapshotter(m, fixedSource{}, 0, zerolog.Nop())
	s.Run(context.Background()) // returns immediately
	snaps, _ := m.ListSnapshots(context.Background(), 0)
	assert.Empty(t, snaps)
}
