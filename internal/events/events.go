package events

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"ranchops/internal/domain"
)

// TransactionRecorded is published after a financial event has been
// durably committed.
type TransactionRecorded struct {
	EventID     string                 `json:"event_id"`
	EnquiryID   uint                   `json:"enquiry_id"`
	Type        domain.TransactionType `json:"type"`
	Amount      decimal.Decimal        `json:"amount"`
	PerformedBy string                 `json:"performed_by"`
	OccurredAt  time.Time              `json:"occurred_at"`
}

// Publisher delivers recorded-transaction events to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, event TransactionRecorded) error
	Close() error
}

// NopPublisher discards all events. Used when event publishing is disabled.
type NopPublisher struct{}

func (NopPublisher) Publish(ctx context.Context, event TransactionRecorded) error { return nil }

func (NopPublisher) Close() error { return nil }
