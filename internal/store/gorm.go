package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ArowuTest/srandom/internal/models"
)

// GormStore is the postgres-backed Recorder.
type GormStore struct {
	db *gorm.DB
}

// NewGorm migrates the audit tables and returns a store over db.
func NewGorm(db *gorm.DB) (*GormStore, error) {
	if err := models.Migrate(db); err != nil {
		return nil, fmt.Errorf("store: migrate: %w", err)
	}
	return &GormStore{db: db}, nil
}

func (s *GormStore) SessionOpened(ctx context.Context, sess models.Session) error {
	if err := s.db.WithContext(ctx).Create(&sess).Error; err != nil {
		return fmt.Errorf("store: record session open: %w", err)
	}
	return nil
}

func (s *GormStore) SessionClosed(ctx context.Context, id uuid.UUID, closedAt time.Time, bytesRead, bytesWritten uint64) error {
	res := s.db.WithContext(ctx).
		Model(&models.Session{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"closed_at":     closedAt,
			"bytes_read":    bytesRead,
			"bytes_written": bytesWritten,
		})
	if res.Error != nil {
		return fmt.Errorf("store: record session close: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) SaveSnapshot(ctx context.Context, snap models.StatusSnapshot) error {
	if err := s.db.WithContext(ctx).Create(&snap).Error; err != nil {
		return fmt.Errorf("store: save snapshot: %w", err)
	}
	return nil
}

func (s *GormStore) ListSnapshots(ctx context.Context, limit int) ([]models.StatusSnapshot, error) {
	var snaps []models.StatusSnapshot
	err := s.db.WithContext(ctx).
		Order("taken_at desc").
		Limit(clampLimit(limit)).
		Find(&snaps).Error
	if err != nil {
		return nil, fmt.Errorf("store: list snapshots: %w", err)
	}
	return snaps, nil
}

func (s *GormStore) ListSessions(ctx context.Context, limit int) ([]models.Session, error) {
	var sessions []models.Session
	err := s.db.WithContext(ctx).
		Order("opened_at desc").
		Limit(clampLimit(limit)).
		Find(&sessions).Error
	if err != nil {
		return nil, fmt.Errorf("store: list sessions: %w", err)
	}
	return sessions, nil
}
