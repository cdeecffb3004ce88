package domain

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Enquiry represents an inbound contact or investment lead
type Enquiry struct {
	ID                uint             `gorm:"primaryKey" json:"id"`
	Name              string           `gorm:"not null" json:"name"`
	Email             string           `gorm:"not null;index" json:"email"`
	Phone             *string          `json:"phone"`
	Message           string           `gorm:"type:text;not null" json:"message"`
	Category          string           `gorm:"default:'general'" json:"category"`
	Status            string           `gorm:"default:'active'" json:"status"` // active, inactive
	InvestmentAmount  *decimal.Decimal `gorm:"type:decimal(12,2)" json:"investment_amount"`
	PaymentStructure  *string          `json:"payment_structure"`
	TargetPaymentDate *time.Time       `json:"target_payment_date"`
	CreatedAt         time.Time        `json:"created_at"`
	UpdatedAt         *time.Time       `json:"updated_at"`
}

// TableName specifies the table name for Enquiry
func (Enquiry) TableName() string {
	return "enquiries"
}

// BeforeCreate hook
func (e *Enquiry) BeforeCreate(tx *gorm.DB) error {
	e.CreatedAt = time.Now()
	if e.Status == "" {
		e.Status = "active"
	}
	if e.Category == "" {
		e.Category = "general"
	}
	return nil
}
