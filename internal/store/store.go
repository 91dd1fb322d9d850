// Package store keeps the diagnostics audit trail: who opened the device,
// how much they read, and periodic snapshots of the counters. Generator state
// is never stored.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/ArowuTest/srandom/internal/device"
	"github.com/ArowuTest/srandom/internal/models"
)

var ErrNotFound = errors.New("store: not found")

// Recorder persists session and status history.
type Recorder interface {
	SessionOpened(ctx context.Context, s models.Session) error
	SessionClosed(ctx context.Context, id uuid.UUID, closedAt time.Time, bytesRead, bytesWritten uint64) error
	SaveSnapshot(ctx context.Context, snap models.StatusSnapshot) error
	ListSnapshots(ctx context.Context, limit int) ([]models.StatusSnapshot, error)
	ListSessions(ctx context.Context, limit int) ([]models.Session, error)
}

// SnapshotFrom converts a device status into a row.
func SnapshotFrom(st device.Status, at time.Time) models.StatusSnapshot {
	return models.StatusSnapshot{
		ID:            uuid.New(),
		Device:        st.Device,
		TakenAt:       at,
		Open:          st.Open,
		OpenTotal:     st.OpenTotal,
		Refills:       st.Refills,
		BytesRead:     st.BytesRead,
		KBytes:        st.KBytes,
		ReseedsS:      st.ReseedsS,
		ReseedsX:      st.ReseedsX,
		ForcedReseeds: st.ForcedReseeds,
	}
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > 500 {
		return 100
	}
	return limit
}
