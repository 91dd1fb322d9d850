package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AdminUserRole enumerates roles carried in admin tokens.
type AdminUserRole string

const (
	RoleAdmin   AdminUserRole = "ADMIN"
	RoleAuditor AdminUserRole = "AUDITOR"
)

// Session is one open/close cycle of a device handle.
type Session struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Device       string     `gorm:"not null;index" json:"device"`
	RemoteAddr   string     `json:"remote_addr,omitempty"`
	OpenedAt     time.Time  `gorm:"not null;index" json:"opened_at"`
	ClosedAt     *time.Time `json:"closed_at,omitempty"`
	BytesRead    uint64     `gorm:"not null;default:0" json:"bytes_read"`
	BytesWritten uint64     `gorm:"not null;default:0" json:"bytes_written"`
	CreatedAt    time.Time  `json:"-"`
	UpdatedAt    time.Time  `json:"-"`
}

// StatusSnapshot records the device counters at one point in time.
type StatusSnapshot struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Device        string    `gorm:"not null;index" json:"device"`
	TakenAt       time.Time `gorm:"not null;index" json:"taken_at"`
	Open          int64     `gorm:"not null" json:"open"`
	OpenTotal     uint64    `gorm:"not null" json:"open_total"`
	Refills       uint64    `gorm:"not null" json:"refills"`
	BytesRead     uint64    `gorm:"not null" json:"bytes_read"`
	KBytes        uint64    `gorm:"not null" json:"kbytes"`
	ReseedsS      uint64    `gorm:"not null" json:"reseeds_s"`
	ReseedsX      uint64    `gorm:"not null" json:"reseeds_x"`
	ForcedReseeds uint64    `gorm:"not null" json:"forced_reseeds"`
	CreatedAt     time.Time `json:"-"`
}

// Migrate will create/update the audit tables.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&Session{},
		&StatusSnapshot{},
	)
}
