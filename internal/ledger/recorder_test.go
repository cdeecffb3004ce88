package ledger

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"ranchops/internal/authz"
	"ranchops/internal/database"
	"ranchops/internal/domain"
	"ranchops/internal/events"
	apperrors "ranchops/pkg/errors"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	sqlDB, err := sql.Open("sqlite", "file::memory:")
	require.NoError(t, err)
	// A single connection keeps every session on the same in-memory database.
	sqlDB.SetMaxOpenConns(1)

	db, err := gorm.Open(sqlite.Dialector{DriverName: "sqlite", Conn: sqlDB}, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	t.Cleanup(func() { sqlDB.Close() })
	return db
}

func seedEnquiry(t *testing.T, db *gorm.DB) *domain.Enquiry {
	t.Helper()

	enquiry := &domain.Enquiry{
		Name:    "Hank Dalton",
		Email:   "hank@daltonranch.example",
		Message: "Interested in pledging towards the new feedlot.",
	}
	require.NoError(t, db.Create(enquiry).Error)
	return enquiry
}

func treasurerActor() *authz.Actor {
	return &authz.Actor{
		ID:          1,
		Username:    "jcooper",
		DisplayName: "Jane Cooper",
		Roles:       []authz.Role{authz.RoleTreasurer},
	}
}

func plainActor() *authz.Actor {
	return &authz.Actor{ID: 2, Username: "fhand"}
}

func countRows(t *testing.T, db *gorm.DB, model any) int64 {
	t.Helper()
	var count int64
	require.NoError(t, db.Model(model).Count(&count).Error)
	return count
}

func TestRecordRejectsInvalidAmount(t *testing.T) {
	db := newTestDB(t)
	enquiry := seedEnquiry(t, db)
	recorder := NewRecorder(db, authz.Policy{}, nil)

	for name, amount := range map[string]float64{
		"zero":     0,
		"negative": -25,
		"nan":      math.NaN(),
		"inf":      math.Inf(1),
	} {
		t.Run(name, func(t *testing.T) {
			_, err := recorder.Record(context.Background(), RecordRequest{
				EnquiryID: enquiry.ID,
				Amount:    amount,
				Type:      domain.TransactionInvestment,
				Actor:     treasurerActor(),
			})
			require.Error(t, err)
			assert.True(t, apperrors.IsValidation(err))
		})
	}

	assert.Zero(t, countRows(t, db, &domain.Investment{}))
	assert.Zero(t, countRows(t, db, &domain.AuditLog{}))
}

func TestRecordRejectsInvalidType(t *testing.T) {
	db := newTestDB(t)
	enquiry := seedEnquiry(t, db)
	recorder := NewRecorder(db, authz.Policy{}, nil)

	for _, txType := range []string{"transfer", "refund", ""} {
		_, err := recorder.Record(context.Background(), RecordRequest{
			EnquiryID: enquiry.ID,
			Amount:    100,
			Type:      domain.TransactionType(txType),
			Actor:     treasurerActor(),
		})
		require.Error(t, err)
		assert.True(t, apperrors.IsValidation(err), "type %q should be rejected", txType)
	}

	assert.Zero(t, countRows(t, db, &domain.Investment{}))
	assert.Zero(t, countRows(t, db, &domain.Payment{}))
	assert.Zero(t, countRows(t, db, &domain.AuditLog{}))
}

func TestRecordRejectsUnauthenticatedActor(t *testing.T) {
	db := newTestDB(t)
	enquiry := seedEnquiry(t, db)
	recorder := NewRecorder(db, authz.Policy{}, nil)

	for _, txType := range []domain.TransactionType{domain.TransactionInvestment, domain.TransactionPayment} {
		_, err := recorder.Record(context.Background(), RecordRequest{
			EnquiryID: enquiry.ID,
			Amount:    100,
			Type:      txType,
			Actor:     nil,
		})
		require.Error(t, err)
		assert.True(t, apperrors.IsForbidden(err), "type %q should require authentication", txType)
	}

	assert.Zero(t, countRows(t, db, &domain.Investment{}))
	assert.Zero(t, countRows(t, db, &domain.Payment{}))
	assert.Zero(t, countRows(t, db, &domain.AuditLog{}))
}

func TestRecordPaymentRequiresPrivilegedRole(t *testing.T) {
	db := newTestDB(t)
	enquiry := seedEnquiry(t, db)
	recorder := NewRecorder(db, authz.Policy{}, nil)

	actor := &authz.Actor{ID: 3, Username: "intern", Roles: []authz.Role{authz.RoleStaff}}
	_, err := recorder.Record(context.Background(), RecordRequest{
		EnquiryID: enquiry.ID,
		Amount:    100,
		Type:      domain.TransactionPayment,
		Actor:     actor,
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsForbidden(err))

	assert.Zero(t, countRows(t, db, &domain.Payment{}))
	assert.Zero(t, countRows(t, db, &domain.AuditLog{}))
}

func TestRecordInvestmentAllowsAnyAuthenticatedActor(t *testing.T) {
	db := newTestDB(t)
	enquiry := seedEnquiry(t, db)
	recorder := NewRecorder(db, authz.Policy{}, nil)

	time.Sleep(10 * time.Millisecond)

	event, err := recorder.Record(context.Background(), RecordRequest{
		EnquiryID: enquiry.ID,
		Amount:    250,
		Type:      domain.TransactionInvestment,
		Actor:     plainActor(),
	})
	require.NoError(t, err)
	require.NotNil(t, event)

	assert.Equal(t, enquiry.ID, event.EnquiryID)
	assert.Equal(t, domain.TransactionInvestment, event.Type)
	assert.Equal(t, "250", event.Amount.String())

	assert.EqualValues(t, 1, countRows(t, db, &domain.Investment{}))
	assert.EqualValues(t, 1, countRows(t, db, &domain.AuditLog{}))

	var updated domain.Enquiry
	require.NoError(t, db.First(&updated, enquiry.ID).Error)
	require.NotNil(t, updated.UpdatedAt)
	assert.True(t, updated.UpdatedAt.After(updated.CreatedAt),
		"enquiry timestamp should move forward on recording")
}

func TestRecordEnquiryNotFound(t *testing.T) {
	db := newTestDB(t)
	recorder := NewRecorder(db, authz.Policy{}, nil)

	_, err := recorder.Record(context.Background(), RecordRequest{
		EnquiryID: 9999,
		Amount:    100,
		Type:      domain.TransactionInvestment,
		Actor:     treasurerActor(),
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))

	assert.Zero(t, countRows(t, db, &domain.Investment{}))
	assert.Zero(t, countRows(t, db, &domain.AuditLog{}))
}

func TestRecordRollsBackWhenAuditWriteFails(t *testing.T) {
	db := newTestDB(t)
	enquiry := seedEnquiry(t, db)
	recorder := NewRecorder(db, authz.Policy{}, nil)

	// Inject a store fault on the audit-log write only; the financial event
	// write before it succeeds and must be rolled back.
	err := db.Callback().Create().Before("gorm:create").Register("test_fail_audit", func(tx *gorm.DB) {
		if tx.Statement.Table == "audit_logs" {
			tx.AddError(errors.New("injected audit-log failure"))
		}
	})
	require.NoError(t, err)

	_, err = recorder.Record(context.Background(), RecordRequest{
		EnquiryID: enquiry.ID,
		Amount:    500,
		Type:      domain.TransactionInvestment,
		Actor:     treasurerActor(),
	})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeInternalError, apperrors.CodeOf(err))

	assert.Zero(t, countRows(t, db, &domain.Investment{}), "financial event must not survive rollback")
	assert.Zero(t, countRows(t, db, &domain.AuditLog{}))
}

func TestRecordPaymentAuditText(t *testing.T) {
	db := newTestDB(t)
	enquiry := seedEnquiry(t, db)
	recorder := NewRecorder(db, authz.Policy{}, nil)

	event, err := recorder.Record(context.Background(), RecordRequest{
		EnquiryID: enquiry.ID,
		Amount:    1234.5,
		Type:      domain.TransactionPayment,
		Actor:     treasurerActor(),
	})
	require.NoError(t, err)
	assert.Equal(t, "1234.5", event.Amount.String())

	var entry domain.AuditLog
	require.NoError(t, db.First(&entry).Error)
	assert.Equal(t, "Logged payment: $1,234.50", entry.Action)
	assert.Equal(t, "Jane Cooper", entry.PerformedBy)
	assert.Equal(t, enquiry.ID, entry.EnquiryID)
}

func TestRecordPerformedByFallbacks(t *testing.T) {
	db := newTestDB(t)
	enquiry := seedEnquiry(t, db)
	recorder := NewRecorder(db, authz.Policy{}, nil)

	// Override supplied, actor has no display name.
	_, err := recorder.Record(context.Background(), RecordRequest{
		EnquiryID:   enquiry.ID,
		Amount:      100,
		Type:        domain.TransactionInvestment,
		Actor:       plainActor(),
		PerformedBy: "Ranch Office",
	})
	require.NoError(t, err)

	// Neither display name nor override.
	_, err = recorder.Record(context.Background(), RecordRequest{
		EnquiryID: enquiry.ID,
		Amount:    100,
		Type:      domain.TransactionInvestment,
		Actor:     plainActor(),
	})
	require.NoError(t, err)

	var entries []domain.AuditLog
	require.NoError(t, db.Order("id ASC").Find(&entries).Error)
	require.Len(t, entries, 2)
	assert.Equal(t, "Ranch Office", entries[0].PerformedBy)
	assert.Equal(t, "Authorized User", entries[1].PerformedBy)
}

func TestRecordDisplayNameWinsOverOverride(t *testing.T) {
	db := newTestDB(t)
	enquiry := seedEnquiry(t, db)
	recorder := NewRecorder(db, authz.Policy{}, nil)

	_, err := recorder.Record(context.Background(), RecordRequest{
		EnquiryID:   enquiry.ID,
		Amount:      100,
		Type:        domain.TransactionPayment,
		Actor:       treasurerActor(),
		PerformedBy: "Someone Else",
	})
	require.NoError(t, err)

	var entry domain.AuditLog
	require.NoError(t, db.First(&entry).Error)
	assert.Equal(t, "Jane Cooper", entry.PerformedBy)
}

func TestRecordDoesNotDeduplicate(t *testing.T) {
	db := newTestDB(t)
	enquiry := seedEnquiry(t, db)
	recorder := NewRecorder(db, authz.Policy{}, nil)

	req := RecordRequest{
		EnquiryID: enquiry.ID,
		Amount:    300,
		Type:      domain.TransactionInvestment,
		Actor:     treasurerActor(),
	}

	first, err := recorder.Record(context.Background(), req)
	require.NoError(t, err)
	second, err := recorder.Record(context.Background(), req)
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	assert.EqualValues(t, 2, countRows(t, db, &domain.Investment{}))
	assert.EqualValues(t, 2, countRows(t, db, &domain.AuditLog{}))
}

type capturingPublisher struct {
	mu     sync.Mutex
	events []events.TransactionRecorded
	done   chan struct{}
}

func (p *capturingPublisher) Publish(ctx context.Context, event events.TransactionRecorded) error {
	p.mu.Lock()
	p.events = append(p.events, event)
	p.mu.Unlock()
	close(p.done)
	return nil
}

func (p *capturingPublisher) Close() error { return nil }

func TestRecordPublishesEventAfterCommit(t *testing.T) {
	db := newTestDB(t)
	enquiry := seedEnquiry(t, db)
	publisher := &capturingPublisher{done: make(chan struct{})}
	recorder := NewRecorder(db, authz.Policy{}, publisher)

	event, err := recorder.Record(context.Background(), RecordRequest{
		EnquiryID: enquiry.ID,
		Amount:    750,
		Type:      domain.TransactionPayment,
		Actor:     treasurerActor(),
	})
	require.NoError(t, err)

	select {
	case <-publisher.done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for published event")
	}

	publisher.mu.Lock()
	defer publisher.mu.Unlock()
	require.Len(t, publisher.events, 1)
	published := publisher.events[0]
	assert.NotEmpty(t, published.EventID)
	assert.Equal(t, event.EnquiryID, published.EnquiryID)
	assert.Equal(t, domain.TransactionPayment, published.Type)
	assert.Equal(t, "Jane Cooper", published.PerformedBy)
	assert.True(t, event.Amount.Equal(published.Amount))
}

func TestFormatAction(t *testing.T) {
	assert.Equal(t, "Logged payment: $1,234.50", formatAction(domain.TransactionPayment, 1234.5))
	assert.Equal(t, "Logged investment: $500.00", formatAction(domain.TransactionInvestment, 500))
	assert.Equal(t, "Logged payment: $1,234,567.89", formatAction(domain.TransactionPayment, 1234567.89))
}
