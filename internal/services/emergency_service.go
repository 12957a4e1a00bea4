package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dmcallister-dev/medgate/internal/auth"
	"github.com/dmcallister-dev/medgate/internal/models"
	pkgauth "github.com/dmcallister-dev/medgate/pkg/auth"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// EmergencyCodeStore defines the interface for emergency code database operations
type EmergencyCodeStore interface {
	Create(ctx context.Context, code *models.EmergencyAccessCode) error
	FindUsable(ctx context.Context, userID uuid.UUID, now time.Time) ([]*models.EmergencyAccessCode, error)
	MarkUsed(ctx context.Context, codeID uuid.UUID, usedAt time.Time) (bool, error)
}

// CodeDeliveryChannel delivers a freshly issued code to the user out of band.
type CodeDeliveryChannel interface {
	DeliverCode(ctx context.Context, email, code string, expiresAt time.Time) error
}

// EmergencyConfig holds emergency code issuance settings.
type EmergencyConfig struct {
	CodeTTL    time.Duration
	CodeLength int
}

// EmergencyService issues and validates single-use emergency access codes.
// The plaintext code exists only in the return value and the delivery
// channel; storage and audit only ever see the bcrypt hash.
type EmergencyService struct {
	codes    EmergencyCodeStore
	delivery CodeDeliveryChannel
	audit    *AuditService
	timing   *auth.TimingDelay
	config   EmergencyConfig
	clock    Clock
	logger   *slog.Logger
}

// NewEmergencyService creates a new EmergencyService
func NewEmergencyService(codes EmergencyCodeStore, delivery CodeDeliveryChannel, audit *AuditService, timing *auth.TimingDelay, config EmergencyConfig, clock Clock, logger *slog.Logger) *EmergencyService {
	return &EmergencyService{
		codes:    codes,
		delivery: delivery,
		audit:    audit,
		timing:   timing,
		config:   config,
		clock:    clock,
		logger:   logger,
	}
}

// GenerateCode issues a new code for a user and delivers it. A delivery
// failure propagates to the caller; the stored code stays valid, so the
// administrator can retry issuance or read the code from the response.
func (s *EmergencyService) GenerateCode(ctx context.Context, userID uuid.UUID, email, reason string, actorID uuid.UUID, ipAddress *string) (*models.IssuedEmergencyCode, error) {
	code, err := pkgauth.GenerateEmergencyCode(s.config.CodeLength)
	if err != nil {
		return nil, err
	}

	hash, err := pkgauth.HashCode(code)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	record := &models.EmergencyAccessCode{
		UserID:    userID,
		CodeHash:  hash,
		Reason:    reason,
		CreatedAt: now,
		ExpiresAt: now.Add(s.config.CodeTTL),
	}
	if err := s.codes.Create(ctx, record); err != nil {
		return nil, err
	}

	s.audit.LogEmergencyAccess(ctx, models.AuditActionIssue, userID, &actorID, true, nil, ipAddress)

	if err := s.delivery.DeliverCode(ctx, email, code, record.ExpiresAt); err != nil {
		s.logger.ErrorContext(ctx, "emergency code delivery failed",
			slog.Any("user_id", userID),
			slog.Any("error", err),
		)
		return nil, err
	}

	return &models.IssuedEmergencyCode{
		Code:      code,
		ExpiresAt: record.ExpiresAt,
	}, nil
}

// ValidateCode redeems a code for a user. Wrong, expired, and already-used
// codes are all plain false; the distinction lives only in the audit log.
// The response is padded to a uniform duration regardless of outcome.
func (s *EmergencyService) ValidateCode(ctx context.Context, userID uuid.UUID, code string, ipAddress *string) (bool, error) {
	start := time.Now()
	defer s.timing.WaitFrom(start)

	now := s.clock.Now()
	candidates, err := s.codes.FindUsable(ctx, userID, now)
	if err != nil {
		return false, err
	}

	for _, candidate := range candidates {
		if err := pkgauth.CompareCode(candidate.CodeHash, code); err != nil {
			if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
				continue
			}
			return false, err
		}

		consumed, err := s.codes.MarkUsed(ctx, candidate.ID, now)
		if err != nil {
			return false, err
		}
		if !consumed {
			// Lost the race to a concurrent validation of the same code.
			s.audit.LogEmergencyAccess(ctx, models.AuditActionValidate, userID, nil, false, strPtr("code already used"), ipAddress)
			return false, nil
		}

		s.audit.LogEmergencyAccess(ctx, models.AuditActionValidate, userID, nil, true, nil, ipAddress)
		return true, nil
	}

	s.audit.LogEmergencyAccess(ctx, models.AuditActionValidate, userID, nil, false, strPtr("no matching usable code"), ipAddress)
	return false, nil
}
