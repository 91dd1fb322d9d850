package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ArowuTest/srandom/internal/models"
)

// MemoryStore is a Recorder for running without a database. History is
// bounded and lost on restart.
type MemoryStore struct {
	mu        sync.Mutex
	capacity  int
	sessions  map[uuid.UUID]*models.Session
	order     []uuid.UUID
	snapshots []models.StatusSnapshot
}

// NewMemory keeps at most capacity sessions and capacity snapshots.
func NewMemory(capacity int) *MemoryStore {
	if capacity <= 0 {
		capacity = 1000
	}
	return &MemoryStore{capacity: capacity, sessions: make(map[uuid.UUID]*models.Session)}
}

func (m *MemoryStore) SessionOpened(_ context.Context, s models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[s.ID]; !ok {
		m.order = append(m.order, s.ID)
	}
	m.sessions[s.ID] = &s
	for len(m.order) > m.capacity {
		delete(m.sessions, m.order[0])
		m.order = m.order[1:]
	}
	return nil
}

func (m *MemoryStore) SessionClosed(_ context.Context, id uuid.UUID, closedAt time.Time, bytesRead, bytesWritten uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return ErrNotFound
	}
	s.ClosedAt = &closedAt
	s.BytesRead = bytesRead
	s.BytesWritten = bytesWritten
	return nil
}

func (m *MemoryStore) SaveSnapshot(_ context.Context, snap models.StatusSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots = append(m.snapshots, snap)
	if over := len(m.snapshots) - m.capacity; over > 0 {
		m.snapshots = append(m.snapshots[:0:0], m.snapshots[over:]...)
	}
	return nil
}

func (m *MemoryStore) ListSnapshots(_ context.Context, limit int) ([]models.StatusSnapshot, error) {
	m.mu.Lock()
	out := append([]models.StatusSnapshot(nil), m.snapshots...)
	m.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].TakenAt.After(out[j].TakenAt) })
	if limit = clampLimit(limit); len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) ListSessions(_ context.Context, limit int) ([]models.Session, error) {
	m.mu.Lock()
	out := make([]models.Session, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, *m.sessions[id])
	}
	m.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].OpenedAt.After(out[j].OpenedAt) })
	if limit = clampLimit(limit); len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
