package services

import (
	"context"
	"errors"
	"log"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"ranchops/internal/domain"
	"ranchops/internal/metrics"
	apperrors "ranchops/pkg/errors"
)

// EnquiryService implements enquiry intake and staff reads
type EnquiryService struct {
	db           *gorm.DB
	emailService *EmailService
}

// NewEnquiryService creates a new enquiry service
func NewEnquiryService(db *gorm.DB, emailService *EmailService) *EnquiryService {
	return &EnquiryService{
		db:           db,
		emailService: emailService,
	}
}

// CreateEnquiryPayload carries fields submitted through the public intake form
type CreateEnquiryPayload struct {
	Name              string   `json:"name"`
	Email             string   `json:"email"`
	Phone             *string  `json:"phone"`
	Message           string   `json:"message"`
	Category          string   `json:"category"`
	InvestmentAmount  *float64 `json:"investment_amount"`
	PaymentStructure  *string  `json:"payment_structure"`
	TargetPaymentDate *string  `json:"target_payment_date"` // RFC 3339 date
}

// EnquiryResult is the external representation of an enquiry
type EnquiryResult struct {
	ID                int     `json:"id"`
	Name              string  `json:"name"`
	Email             string  `json:"email"`
	Phone             *string `json:"phone,omitempty"`
	Message           string  `json:"message"`
	Category          string  `json:"category"`
	Status            string  `json:"status"`
	InvestmentAmount  *string `json:"investment_amount,omitempty"`
	PaymentStructure  *string `json:"payment_structure,omitempty"`
	TargetPaymentDate *string `json:"target_payment_date,omitempty"`
	CreatedAt         string  `json:"created_at"`
	UpdatedAt         *string `json:"updated_at,omitempty"`
}

// TransactionResult is one financial event attached to an enquiry
type TransactionResult struct {
	ID        int             `json:"id"`
	EnquiryID int             `json:"enquiry_id"`
	Type      string          `json:"type"`
	Amount    decimal.Decimal `json:"amount"`
	CreatedAt string          `json:"created_at"`
}

// AuditLogResult is one audit trail entry for an enquiry
type AuditLogResult struct {
	ID          int    `json:"id"`
	EnquiryID   int    `json:"enquiry_id"`
	Action      string `json:"action"`
	PerformedBy string `json:"performed_by"`
	CreatedAt   string `json:"created_at"`
}

// Create implements the public enquiry intake method
func (s *EnquiryService) Create(ctx context.Context, p *CreateEnquiryPayload) (*EnquiryResult, error) {
	log.Printf("[ENQUIRY] Create request: name=%s, email=%s", strings.TrimSpace(p.Name), strings.TrimSpace(p.Email))

	if err := s.validateEnquiry(p); err != nil {
		log.Printf("[ENQUIRY] Create failed: validation error: %v", err)
		return nil, err
	}

	enquiry := &domain.Enquiry{
		Name:    strings.TrimSpace(p.Name),
		Email:   strings.ToLower(strings.TrimSpace(p.Email)),
		Message: strings.TrimSpace(p.Message),
		Status:  "active",
	}

	if category := strings.TrimSpace(p.Category); category != "" {
		enquiry.Category = strings.ToLower(category)
	}
	if p.Phone != nil && strings.TrimSpace(*p.Phone) != "" {
		phone := strings.TrimSpace(*p.Phone)
		enquiry.Phone = &phone
	}
	if p.InvestmentAmount != nil {
		amount := decimal.NewFromFloat(*p.InvestmentAmount).Round(2)
		enquiry.InvestmentAmount = &amount
	}
	if p.PaymentStructure != nil && strings.TrimSpace(*p.PaymentStructure) != "" {
		structure := strings.TrimSpace(*p.PaymentStructure)
		enquiry.PaymentStructure = &structure
	}
	if p.TargetPaymentDate != nil && strings.TrimSpace(*p.TargetPaymentDate) != "" {
		target, err := time.Parse(time.RFC3339, strings.TrimSpace(*p.TargetPaymentDate))
		if err != nil {
			return nil, apperrors.New(apperrors.ErrCodeValidation, "target_payment_date must be an RFC 3339 timestamp")
		}
		enquiry.TargetPaymentDate = &target
	}

	if err := s.db.WithContext(ctx).Create(enquiry).Error; err != nil {
		log.Printf("[ENQUIRY] Create failed: database error: %v", err)
		return nil, apperrors.Wrap(apperrors.ErrCodeInternalError, "failed to save enquiry", err)
	}

	log.Printf("[ENQUIRY] Create successful: id=%d, name=%s, email=%s", enquiry.ID, enquiry.Name, enquiry.Email)
	metrics.RecordEnquiry()

	// Notify staff by email (async, never fails the request)
	go func() {
		if err := s.emailService.SendEnquiryNotification(enquiry); err != nil {
			log.Printf("[ENQUIRY] Warning: failed to send notification email: %v", err)
		}
	}()

	return convertEnquiryToResult(enquiry), nil
}

// List implements the list enquiries method (staff only)
func (s *EnquiryService) List(ctx context.Context, skip, limit int) ([]*EnquiryResult, error) {
	log.Printf("[ENQUIRY] List request: skip=%d, limit=%d", skip, limit)

	var enquiries []domain.Enquiry
	query := s.db.WithContext(ctx).Order("created_at DESC")

	if skip > 0 {
		query = query.Offset(skip)
	}
	if limit > 0 {
		if limit > 500 {
			limit = 500
		}
		query = query.Limit(limit)
	} else {
		query = query.Limit(100)
	}

	if err := query.Find(&enquiries).Error; err != nil {
		log.Printf("[ENQUIRY] List failed: database error: %v", err)
		return nil, apperrors.Wrap(apperrors.ErrCodeInternalError, "failed to list enquiries", err)
	}

	results := make([]*EnquiryResult, len(enquiries))
	for i, enquiry := range enquiries {
		results[i] = convertEnquiryToResult(&enquiry)
	}

	log.Printf("[ENQUIRY] List successful: returned %d enquiries", len(results))
	return results, nil
}

// Get implements the get enquiry method (staff only)
func (s *EnquiryService) Get(ctx context.Context, id uint) (*EnquiryResult, error) {
	log.Printf("[ENQUIRY] Get request: id=%d", id)

	enquiry, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	log.Printf("[ENQUIRY] Get successful: id=%d", enquiry.ID)
	return convertEnquiryToResult(enquiry), nil
}

// UpdateStatus flips an enquiry between active and inactive (staff only)
func (s *EnquiryService) UpdateStatus(ctx context.Context, id uint, status string) (*EnquiryResult, error) {
	log.Printf("[ENQUIRY] UpdateStatus request: id=%d, status=%s", id, status)

	status = strings.ToLower(strings.TrimSpace(status))
	if status != "active" && status != "inactive" {
		return nil, apperrors.New(apperrors.ErrCodeValidation, "status must be either active or inactive")
	}

	enquiry, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	enquiry.Status = status
	now := time.Now()
	enquiry.UpdatedAt = &now
	if err := s.db.WithContext(ctx).Save(enquiry).Error; err != nil {
		log.Printf("[ENQUIRY] UpdateStatus failed: save error: %v", err)
		return nil, apperrors.Wrap(apperrors.ErrCodeInternalError, "failed to update enquiry", err)
	}

	log.Printf("[ENQUIRY] UpdateStatus successful: id=%d, status=%s", enquiry.ID, status)
	return convertEnquiryToResult(enquiry), nil
}

// ListTransactions returns all financial events attached to an enquiry,
// newest first (staff only)
func (s *EnquiryService) ListTransactions(ctx context.Context, id uint) ([]*TransactionResult, error) {
	log.Printf("[ENQUIRY] ListTransactions request: enquiry_id=%d", id)

	if _, err := s.find(ctx, id); err != nil {
		return nil, err
	}

	var investments []domain.Investment
	if err := s.db.WithContext(ctx).Where("enquiry_id = ?", id).Find(&investments).Error; err != nil {
		log.Printf("[ENQUIRY] ListTransactions failed: database error: %v", err)
		return nil, apperrors.Wrap(apperrors.ErrCodeInternalError, "failed to list transactions", err)
	}

	var payments []domain.Payment
	if err := s.db.WithContext(ctx).Where("enquiry_id = ?", id).Find(&payments).Error; err != nil {
		log.Printf("[ENQUIRY] ListTransactions failed: database error: %v", err)
		return nil, apperrors.Wrap(apperrors.ErrCodeInternalError, "failed to list transactions", err)
	}

	results := make([]*TransactionResult, 0, len(investments)+len(payments))
	for _, investment := range investments {
		results = append(results, &TransactionResult{
			ID:        int(investment.ID),
			EnquiryID: int(investment.EnquiryID),
			Type:      string(domain.TransactionInvestment),
			Amount:    investment.Amount,
			CreatedAt: investment.CreatedAt.Format(time.RFC3339),
		})
	}
	for _, payment := range payments {
		results = append(results, &TransactionResult{
			ID:        int(payment.ID),
			EnquiryID: int(payment.EnquiryID),
			Type:      string(domain.TransactionPayment),
			Amount:    payment.Amount,
			CreatedAt: payment.CreatedAt.Format(time.RFC3339),
		})
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].CreatedAt > results[j].CreatedAt
	})

	log.Printf("[ENQUIRY] ListTransactions successful: enquiry_id=%d, returned %d transactions", id, len(results))
	return results, nil
}

// ListAuditLogs returns the audit trail for an enquiry, newest first (staff only)
func (s *EnquiryService) ListAuditLogs(ctx context.Context, id uint) ([]*AuditLogResult, error) {
	log.Printf("[ENQUIRY] ListAuditLogs request: enquiry_id=%d", id)

	if _, err := s.find(ctx, id); err != nil {
		return nil, err
	}

	var entries []domain.AuditLog
	if err := s.db.WithContext(ctx).Where("enquiry_id = ?", id).Order("created_at DESC").Find(&entries).Error; err != nil {
		log.Printf("[ENQUIRY] ListAuditLogs failed: database error: %v", err)
		return nil, apperrors.Wrap(apperrors.ErrCodeInternalError, "failed to list audit logs", err)
	}

	results := make([]*AuditLogResult, len(entries))
	for i, entry := range entries {
		results[i] = &AuditLogResult{
			ID:          int(entry.ID),
			EnquiryID:   int(entry.EnquiryID),
			Action:      entry.Action,
			PerformedBy: entry.PerformedBy,
			CreatedAt:   entry.CreatedAt.Format(time.RFC3339),
		}
	}

	log.Printf("[ENQUIRY] ListAuditLogs successful: enquiry_id=%d, returned %d entries", id, len(results))
	return results, nil
}

// find loads an enquiry or returns a typed not-found error
func (s *EnquiryService) find(ctx context.Context, id uint) (*domain.Enquiry, error) {
	var enquiry domain.Enquiry
	if err := s.db.WithContext(ctx).First(&enquiry, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("[ENQUIRY] enquiry id=%d not found", id)
			return nil, apperrors.New(apperrors.ErrCodeNotFound, "enquiry not found")
		}
		log.Printf("[ENQUIRY] database error loading enquiry id=%d: %v", id, err)
		return nil, apperrors.Wrap(apperrors.ErrCodeInternalError, "failed to load enquiry", err)
	}
	return &enquiry, nil
}

// validateEnquiry validates the intake form input
func (s *EnquiryService) validateEnquiry(p *CreateEnquiryPayload) error {
	name := strings.TrimSpace(p.Name)
	if len(name) < 2 || len(name) > 100 {
		return apperrors.New(apperrors.ErrCodeValidation, "name must be between 2 and 100 characters")
	}

	email := strings.TrimSpace(p.Email)
	emailRegex := regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	if !emailRegex.MatchString(email) {
		return apperrors.New(apperrors.ErrCodeValidation, "invalid email address")
	}

	message := strings.TrimSpace(p.Message)
	if len(message) < 1 {
		return apperrors.New(apperrors.ErrCodeValidation, "message is required")
	}
	if len(message) > 5000 {
		return apperrors.New(apperrors.ErrCodeValidation, "message must not exceed 5000 characters")
	}

	if p.Phone != nil && strings.TrimSpace(*p.Phone) != "" {
		phone := strings.TrimSpace(*p.Phone)
		phoneRegex := regexp.MustCompile(`^[\d\s\+\-\(\)]+$`)
		if !phoneRegex.MatchString(phone) || len(phone) < 10 || len(phone) > 20 {
			return apperrors.New(apperrors.ErrCodeValidation, "invalid phone number format")
		}
	}

	if p.InvestmentAmount != nil && *p.InvestmentAmount <= 0 {
		return apperrors.New(apperrors.ErrCodeValidation, "investment_amount must be greater than zero")
	}

	return nil
}

func convertEnquiryToResult(enquiry *domain.Enquiry) *EnquiryResult {
	result := &EnquiryResult{
		ID:        int(enquiry.ID),
		Name:      enquiry.Name,
		Email:     enquiry.Email,
		Message:   enquiry.Message,
		Category:  enquiry.Category,
		Status:    enquiry.Status,
		CreatedAt: enquiry.CreatedAt.Format(time.RFC3339),
	}

	if enquiry.Phone != nil {
		result.Phone = enquiry.Phone
	}
	if enquiry.InvestmentAmount != nil {
		amount := enquiry.InvestmentAmount.StringFixed(2)
		result.InvestmentAmount = &amount
	}
	if enquiry.PaymentStructure != nil {
		result.PaymentStructure = enquiry.PaymentStructure
	}
	if enquiry.TargetPaymentDate != nil {
		target := enquiry.TargetPaymentDate.Format(time.RFC3339)
		result.TargetPaymentDate = &target
	}
	if enquiry.UpdatedAt != nil {
		updatedAt := enquiry.UpdatedAt.Format(time.RFC3339)
		result.UpdatedAt = &updatedAt
	}

	return result
}
