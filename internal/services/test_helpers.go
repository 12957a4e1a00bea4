package services

import (
	"context"
	"time"

	"github.com/dmcallister-dev/medgate/internal/models"
	"github.com/google/uuid"
)

// FixedClock is a Clock pinned to a single instant for tests.
type FixedClock struct {
	Instant time.Time
}

func (c FixedClock) Now() time.Time {
	return c.Instant
}

// MockAttemptStore implements AttemptStore and PatternAttemptStore for testing
type MockAttemptStore struct {
	AppendFunc           func(ctx context.Context, attempt *models.LoginAttempt) error
	CountFailedFunc      func(ctx context.Context, identifier string, attemptType models.AttemptType, since time.Time) (int, error)
	RecentFailedByIPFunc func(ctx context.Context, ipAddress string, since time.Time) ([]*models.LoginAttempt, error)
	Appended             []*models.LoginAttempt
}

func (m *MockAttemptStore) Append(ctx context.Context, attempt *models.LoginAttempt) error {
	if m.AppendFunc != nil {
		return m.AppendFunc(ctx, attempt)
	}
	m.Appended = append(m.Appended, attempt)
	return nil
}

func (m *MockAttemptStore) CountFailed(ctx context.Context, identifier string, attemptType models.AttemptType, since time.Time) (int, error) {
	if m.CountFailedFunc != nil {
		return m.CountFailedFunc(ctx, identifier, attemptType, since)
	}
	return 0, nil
}

func (m *MockAttemptStore) RecentFailedByIP(ctx context.Context, ipAddress string, since time.Time) ([]*models.LoginAttempt, error) {
	if m.RecentFailedByIPFunc != nil {
		return m.RecentFailedByIPFunc(ctx, ipAddress, since)
	}
	return []*models.LoginAttempt{}, nil
}

// MockLockoutStore implements LockoutStore for testing
type MockLockoutStore struct {
	FindActiveFunc  func(ctx context.Context, identifier string, lockoutType models.AttemptType, now time.Time) (*models.AccountLockout, error)
	CreateFunc      func(ctx context.Context, lockout *models.AccountLockout) error
	DeactivateFunc  func(ctx context.Context, identifier string, lockoutType models.AttemptType) error
	CountRecentFunc func(ctx context.Context, identifier string, lockoutType models.AttemptType, since time.Time) (int, error)
	Created         []*models.AccountLockout
	Deactivated     []string
}

func (m *MockLockoutStore) FindActive(ctx context.Context, identifier string, lockoutType models.AttemptType, now time.Time) (*models.AccountLockout, error) {
	if m.FindActiveFunc != nil {
		return m.FindActiveFunc(ctx, identifier, lockoutType, now)
	}
	return nil, nil
}

func (m *MockLockoutStore) Create(ctx context.Context, lockout *models.AccountLockout) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, lockout)
	}
	m.Created = append(m.Created, lockout)
	return nil
}

func (m *MockLockoutStore) Deactivate(ctx context.Context, identifier string, lockoutType models.AttemptType) error {
	if m.DeactivateFunc != nil {
		return m.DeactivateFunc(ctx, identifier, lockoutType)
	}
	m.Deactivated = append(m.Deactivated, identifier+"|"+string(lockoutType))
	return nil
}

func (m *MockLockoutStore) CountRecent(ctx context.Context, identifier string, lockoutType models.AttemptType, since time.Time) (int, error) {
	if m.CountRecentFunc != nil {
		return m.CountRecentFunc(ctx, identifier, lockoutType, since)
	}
	return 0, nil
}

// MockEmergencyCodeStore implements EmergencyCodeStore for testing
type MockEmergencyCodeStore struct {
	CreateFunc     func(ctx context.Context, code *models.EmergencyAccessCode) error
	FindUsableFunc func(ctx context.Context, userID uuid.UUID, now time.Time) ([]*models.EmergencyAccessCode, error)
	MarkUsedFunc   func(ctx context.Context, codeID uuid.UUID, usedAt time.Time) (bool, error)
	Created        []*models.EmergencyAccessCode
	MarkedUsed     []uuid.UUID
}

func (m *MockEmergencyCodeStore) Create(ctx context.Context, code *models.EmergencyAccessCode) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, code)
	}
	code.ID = uuid.New()
	m.Created = append(m.Created, code)
	return nil
}

func (m *MockEmergencyCodeStore) FindUsable(ctx context.Context, userID uuid.UUID, now time.Time) ([]*models.EmergencyAccessCode, error) {
	if m.FindUsableFunc != nil {
		return m.FindUsableFunc(ctx, userID, now)
	}
	return []*models.EmergencyAccessCode{}, nil
}

func (m *MockEmergencyCodeStore) MarkUsed(ctx context.Context, codeID uuid.UUID, usedAt time.Time) (bool, error) {
	if m.MarkUsedFunc != nil {
		return m.MarkUsedFunc(ctx, codeID, usedAt)
	}
	m.MarkedUsed = append(m.MarkedUsed, codeID)
	return true, nil
}

// MockDeliveryChannel implements CodeDeliveryChannel for testing
type MockDeliveryChannel struct {
	DeliverCodeFunc func(ctx context.Context, email, code string, expiresAt time.Time) error
	DeliveredTo     []string
	DeliveredCodes  []string
}

func (m *MockDeliveryChannel) DeliverCode(ctx context.Context, email, code string, expiresAt time.Time) error {
	if m.DeliverCodeFunc != nil {
		return m.DeliverCodeFunc(ctx, email, code, expiresAt)
	}
	m.DeliveredTo = append(m.DeliveredTo, email)
	m.DeliveredCodes = append(m.DeliveredCodes, code)
	return nil
}

// MockAuditRepository implements AuditRepository for testing
type MockAuditRepository struct {
	CreateFunc        func(ctx context.Context, log *models.AuditLog) error
	GetByUserIDFunc   func(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.AuditLog, error)
	CountByUserIDFunc func(ctx context.Context, userID uuid.UUID) (int, error)
	CreatedLogs       []*models.AuditLog
}

func (m *MockAuditRepository) Create(ctx context.Context, log *models.AuditLog) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, log)
	}
	m.CreatedLogs = append(m.CreatedLogs, log)
	return nil
}

func (m *MockAuditRepository) GetByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.AuditLog, error) {
	if m.GetByUserIDFunc != nil {
		return m.GetByUserIDFunc(ctx, userID, limit, offset)
	}
	return []*models.AuditLog{}, nil
}

func (m *MockAuditRepository) CountByUserID(ctx context.Context, userID uuid.UUID) (int, error) {
	if m.CountByUserIDFunc != nil {
		return m.CountByUserIDFunc(ctx, userID)
	}
	return 0, nil
}
