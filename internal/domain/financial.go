package domain

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// TransactionType enumerates the kinds of financial events that can be
// recorded against an enquiry.
type TransactionType string

const (
	TransactionInvestment TransactionType = "investment"
	TransactionPayment    TransactionType = "payment"
)

// Valid reports whether t is one of the enumerated transaction types.
func (t TransactionType) Valid() bool {
	return t == TransactionInvestment || t == TransactionPayment
}

// Investment represents a pledged investment tied to an enquiry.
// Rows are immutable once created.
type Investment struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	EnquiryID uint            `gorm:"not null;index" json:"enquiry_id"`
	Amount    decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	CreatedAt time.Time       `json:"created_at"`
}

// TableName specifies the table name for Investment
func (Investment) TableName() string {
	return "investments"
}

// BeforeCreate hook
func (i *Investment) BeforeCreate(tx *gorm.DB) error {
	if i.CreatedAt.IsZero() {
		i.CreatedAt = time.Now()
	}
	return nil
}

// Payment represents an actual money movement tied to an enquiry.
// Rows are immutable once created.
type Payment struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	EnquiryID uint            `gorm:"not null;index" json:"enquiry_id"`
	Amount    decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"amount"`
	CreatedAt time.Time       `json:"created_at"`
}

// TableName specifies the table name for Payment
func (Payment) TableName() string {
	return "payments"
}

// BeforeCreate hook
func (p *Payment) BeforeCreate(tx *gorm.DB) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	return nil
}
