package domain

import (
	"time"

	"gorm.io/gorm"
)

// AuditLog is an append-only record of an action taken against an enquiry.
// Entries are never updated or deleted; the log is the system of record
// for who did what, when.
type AuditLog struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	EnquiryID   uint      `gorm:"not null;index" json:"enquiry_id"`
	Action      string    `gorm:"type:text;not null" json:"action"`
	PerformedBy string    `gorm:"not null" json:"performed_by"`
	CreatedAt   time.Time `json:"created_at"`
}

// TableName specifies the table name for AuditLog
func (AuditLog) TableName() string {
	return "audit_logs"
}

// BeforeCreate hook
func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	a.CreatedAt = time.Now()
	return nil
}
