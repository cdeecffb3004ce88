package ledger

import (
	"context"
	"errors"
	"log"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gorm.io/gorm"

	"ranchops/internal/authz"
	"ranchops/internal/domain"
	"ranchops/internal/events"
	"ranchops/internal/metrics"
	apperrors "ranchops/pkg/errors"
)

// fallbackPerformedBy labels audit entries when neither the actor's display
// name nor a caller-supplied override is available.
const fallbackPerformedBy = "Authorized User"

// RecordRequest describes one financial event to record against an enquiry.
type RecordRequest struct {
	EnquiryID   uint
	Amount      float64
	Type        domain.TransactionType
	Actor       *authz.Actor // nil means unauthenticated
	PerformedBy string       // optional override for the audit entry
}

// FinancialEvent is the representation of a recorded transaction returned
// to callers.
type FinancialEvent struct {
	ID        uint                   `json:"id"`
	EnquiryID uint                   `json:"enquiry_id"`
	Type      domain.TransactionType `json:"type"`
	Amount    decimal.Decimal        `json:"amount"`
	CreatedAt time.Time              `json:"created_at"`
}

// Recorder records financial events against enquiries. Each accepted request
// creates the financial record, an audit-log entry describing it, and touches
// the parent enquiry's modification timestamp in a single database
// transaction. There is no partial-success state and no deduplication of
// identical requests.
type Recorder struct {
	db        *gorm.DB
	policy    authz.Policy
	publisher events.Publisher
}

// NewRecorder creates a recorder bound to the given database handle.
// publisher may be nil to disable event publishing.
func NewRecorder(db *gorm.DB, policy authz.Policy, publisher events.Publisher) *Recorder {
	return &Recorder{db: db, policy: policy, publisher: publisher}
}

// Record validates and authorizes the request, then atomically persists the
// financial event, its audit entry, and the enquiry timestamp touch.
// Validation and authorization failures return before any store interaction;
// a store failure rolls back all three writes.
func (r *Recorder) Record(ctx context.Context, req RecordRequest) (*FinancialEvent, error) {
	actorName := fallbackPerformedBy
	if req.Actor != nil {
		actorName = req.Actor.Username
	}
	log.Printf("[LEDGER] Record request: enquiry_id=%d, type=%s, amount=%v, actor=%s",
		req.EnquiryID, req.Type, req.Amount, actorName)

	if math.IsNaN(req.Amount) || math.IsInf(req.Amount, 0) || req.Amount <= 0 {
		log.Printf("[LEDGER] Record rejected: invalid amount %v", req.Amount)
		metrics.RecordTransaction(string(req.Type), "rejected")
		return nil, apperrors.New(apperrors.ErrCodeValidation, "amount must be a positive number")
	}

	if !req.Type.Valid() {
		log.Printf("[LEDGER] Record rejected: invalid type %q", req.Type)
		metrics.RecordTransaction(string(req.Type), "rejected")
		return nil, apperrors.New(apperrors.ErrCodeValidation, "type must be either investment or payment")
	}

	if err := r.policy.AuthorizeRecord(req.Actor, req.Type); err != nil {
		log.Printf("[LEDGER] Record rejected: authorization failed for enquiry_id=%d: %v", req.EnquiryID, err)
		metrics.RecordTransaction(string(req.Type), "rejected")
		return nil, err
	}

	var enquiry domain.Enquiry
	if err := r.db.WithContext(ctx).First(&enquiry, req.EnquiryID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("[LEDGER] Record rejected: enquiry id=%d not found", req.EnquiryID)
			metrics.RecordTransaction(string(req.Type), "rejected")
			return nil, apperrors.New(apperrors.ErrCodeNotFound, "enquiry not found")
		}
		log.Printf("[LEDGER] Record failed: database error looking up enquiry id=%d: %v", req.EnquiryID, err)
		metrics.RecordTransaction(string(req.Type), "error")
		return nil, apperrors.Wrap(apperrors.ErrCodeInternalError, "failed to record transaction", err)
	}

	amount := decimal.NewFromFloat(req.Amount).Round(2)
	performedBy := resolvePerformedBy(req.Actor, req.PerformedBy)
	action := formatAction(req.Type, req.Amount)

	var event *FinancialEvent
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		switch req.Type {
		case domain.TransactionInvestment:
			investment := domain.Investment{EnquiryID: enquiry.ID, Amount: amount}
			if err := tx.Create(&investment).Error; err != nil {
				return err
			}
			event = &FinancialEvent{
				ID:        investment.ID,
				EnquiryID: investment.EnquiryID,
				Type:      req.Type,
				Amount:    investment.Amount,
				CreatedAt: investment.CreatedAt,
			}
		case domain.TransactionPayment:
			payment := domain.Payment{EnquiryID: enquiry.ID, Amount: amount}
			if err := tx.Create(&payment).Error; err != nil {
				return err
			}
			event = &FinancialEvent{
				ID:        payment.ID,
				EnquiryID: payment.EnquiryID,
				Type:      req.Type,
				Amount:    payment.Amount,
				CreatedAt: payment.CreatedAt,
			}
		}

		entry := domain.AuditLog{
			EnquiryID:   enquiry.ID,
			Action:      action,
			PerformedBy: performedBy,
		}
		if err := tx.Create(&entry).Error; err != nil {
			return err
		}

		return tx.Model(&domain.Enquiry{}).
			Where("id = ?", enquiry.ID).
			Update("updated_at", time.Now()).Error
	})
	if err != nil {
		log.Printf("[LEDGER] Record failed: transaction rolled back for enquiry_id=%d: %v", req.EnquiryID, err)
		metrics.RecordTransaction(string(req.Type), "error")
		return nil, apperrors.Wrap(apperrors.ErrCodeInternalError, "failed to record transaction", err)
	}

	log.Printf("[LEDGER] Record successful: id=%d, enquiry_id=%d, type=%s, amount=%s, performed_by=%s",
		event.ID, event.EnquiryID, event.Type, event.Amount, performedBy)
	metrics.RecordTransaction(string(req.Type), "success")

	r.publish(*event, performedBy)
	return event, nil
}

// publish delivers the recorded event best-effort; a publish failure never
// fails the already-committed request.
func (r *Recorder) publish(event FinancialEvent, performedBy string) {
	if r.publisher == nil {
		return
	}

	recorded := events.TransactionRecorded{
		EventID:     uuid.NewString(),
		EnquiryID:   event.EnquiryID,
		Type:        event.Type,
		Amount:      event.Amount,
		PerformedBy: performedBy,
		OccurredAt:  event.CreatedAt,
	}

	go func() {
		if err := r.publisher.Publish(context.Background(), recorded); err != nil {
			log.Printf("[LEDGER] Warning: failed to publish transaction event id=%d: %v", event.ID, err)
			metrics.RecordEventPublished(false)
			return
		}
		metrics.RecordEventPublished(true)
	}()
}

// resolvePerformedBy picks the audit entry's actor label: the actor's display
// name, then the caller-supplied override, then a generic fallback.
func resolvePerformedBy(actor *authz.Actor, override string) string {
	if actor != nil && actor.DisplayName != "" {
		return actor.DisplayName
	}
	if override != "" {
		return override
	}
	return fallbackPerformedBy
}

// formatAction builds the deterministic audit action text, e.g.
// "Logged payment: $1,234.50".
func formatAction(txType domain.TransactionType, amount float64) string {
	printer := message.NewPrinter(language.AmericanEnglish)
	return printer.Sprintf("Logged %s: $%.2f", string(txType), amount)
}
