package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/dmcallister-dev/medgate/internal/models"
	"github.com/dmcallister-dev/medgate/pkg/logger"
	"github.com/google/uuid"
)

// AuditRepository defines the interface for audit log database operations
type AuditRepository interface {
	Create(ctx context.Context, log *models.AuditLog) error
	GetByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.AuditLog, error)
	CountByUserID(ctx context.Context, userID uuid.UUID) (int, error)
}

// AuditService handles audit logging with dual-write pattern (slog + database)
type AuditService struct {
	repo   AuditRepository
	clock  Clock
	logger *slog.Logger
}

// NewAuditService creates a new AuditService
func NewAuditService(repo AuditRepository, clock Clock, logger *slog.Logger) *AuditService {
	return &AuditService{
		repo:   repo,
		clock:  clock,
		logger: logger,
	}
}

// LogLockout records that the guard locked an identifier out.
func (s *AuditService) LogLockout(ctx context.Context, lockout *models.AccountLockout) {
	s.logger.WarnContext(ctx, "lockout created",
		slog.String("identifier", logger.SanitizedIdentifier(lockout.Identifier)),
		slog.String("lockout_type", string(lockout.LockoutType)),
		slog.String("ip_address", lockout.IPAddress),
		slog.Bool("requires_manual_unlock", lockout.RequiresManualUnlock),
		slog.Time("expires_at", lockout.ExpiresAt),
	)

	resourceID := lockout.Identifier
	s.persist(ctx, &models.AuditLog{
		EventType:    models.AuditEventTypeLockout,
		ResourceType: strPtr(models.AuditResourceTypeLockout),
		ResourceID:   &resourceID,
		Action:       models.AuditActionCreate,
		Success:      true,
		IPAddress:    &lockout.IPAddress,
		Metadata: models.Metadata{
			"lockout_type":           string(lockout.LockoutType),
			"requires_manual_unlock": lockout.RequiresManualUnlock,
			"expires_at":             lockout.ExpiresAt.Format(time.RFC3339),
		},
		CreatedAt: s.clock.Now(),
	})
}

// LogUnlock records a manual unlock performed by an administrator.
func (s *AuditService) LogUnlock(ctx context.Context, actorID uuid.UUID, identifier string, lockoutType models.AttemptType, ipAddress *string) {
	s.logger.InfoContext(ctx, "lockout cleared",
		slog.String("identifier", logger.SanitizedIdentifier(identifier)),
		slog.String("lockout_type", string(lockoutType)),
		slog.Any("actor_id", actorID),
	)

	s.persist(ctx, &models.AuditLog{
		EventType:    models.AuditEventTypeUnlock,
		ActorID:      &actorID,
		ResourceType: strPtr(models.AuditResourceTypeLockout),
		ResourceID:   &identifier,
		Action:       models.AuditActionClear,
		Success:      true,
		IPAddress:    ipAddress,
		Metadata: models.Metadata{
			"lockout_type": string(lockoutType),
		},
		CreatedAt: s.clock.Now(),
	})
}

// LogFailedAttempt records a failed login in the audit trail. Only the
// masked identifier is stored here; the unmasked row lives in
// login_attempts.
func (s *AuditService) LogFailedAttempt(ctx context.Context, identifier string, attemptType models.AttemptType, ipAddress string, failureReason *string) {
	masked := logger.SanitizedIdentifier(identifier)

	s.logger.InfoContext(ctx, "login attempt failed",
		slog.String("identifier", masked),
		slog.String("attempt_type", string(attemptType)),
		slog.String("ip_address", ipAddress),
	)

	s.persist(ctx, &models.AuditLog{
		EventType:     models.AuditEventTypeLoginAttempt,
		Action:        models.AuditActionRecord,
		Success:       false,
		FailureReason: failureReason,
		IPAddress:     &ipAddress,
		Metadata: models.Metadata{
			"identifier":   masked,
			"attempt_type": string(attemptType),
		},
		CreatedAt: s.clock.Now(),
	})
}

// LogSecurityAlert records an attack pattern detected on a source IP.
func (s *AuditService) LogSecurityAlert(ctx context.Context, pattern, ipAddress string, attemptCount, distinctIdentifiers int) {
	s.logger.WarnContext(ctx, "attack pattern detected",
		slog.String("pattern", pattern),
		slog.String("ip_address", ipAddress),
		slog.Int("attempt_count", attemptCount),
		slog.Int("distinct_identifiers", distinctIdentifiers),
	)

	metadata := models.NewAlertMetadata(ipAddress, attemptCount, distinctIdentifiers)
	metadata["pattern"] = pattern

	s.persist(ctx, &models.AuditLog{
		EventType: models.AuditEventTypeSecurityAlert,
		Action:    models.AuditActionAlert,
		Success:   true,
		IPAddress: &ipAddress,
		Metadata:  metadata,
		CreatedAt: s.clock.Now(),
	})
}

// LogEmergencyAccess records issuance or validation of an emergency access
// code. The plaintext code never reaches this method.
func (s *AuditService) LogEmergencyAccess(ctx context.Context, action string, userID uuid.UUID, actorID *uuid.UUID, success bool, failureReason *string, ipAddress *string) {
	if success {
		s.logger.InfoContext(ctx, "emergency access event",
			slog.String("action", action),
			slog.Any("user_id", userID),
			slog.Any("actor_id", actorID),
		)
	} else {
		s.logger.WarnContext(ctx, "emergency access event failed",
			slog.String("action", action),
			slog.Any("user_id", userID),
			slog.Any("failure_reason", failureReason),
		)
	}

	resourceID := userID.String()
	s.persist(ctx, &models.AuditLog{
		EventType:     models.AuditEventTypeEmergencyAccess,
		ActorID:       actorID,
		ResourceType:  strPtr(models.AuditResourceTypeEmergencyCode),
		ResourceID:    &resourceID,
		Action:        action,
		Success:       success,
		FailureReason: failureReason,
		IPAddress:     ipAddress,
		CreatedAt:     s.clock.Now(),
	})
}

// GetUserAuditTrail returns a page of audit entries for a user.
func (s *AuditService) GetUserAuditTrail(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.AuditLog, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.GetByUserID(ctx, userID, limit, offset)
}

// GetCountForUser returns the total audit entries for a user.
func (s *AuditService) GetCountForUser(ctx context.Context, userID uuid.UUID) (int, error) {
	return s.repo.CountByUserID(ctx, userID)
}

// persist writes the row. A database failure is logged and swallowed; audit
// persistence must never block a security decision.
func (s *AuditService) persist(ctx context.Context, log *models.AuditLog) {
	if err := s.repo.Create(ctx, log); err != nil {
		s.logger.ErrorContext(ctx, "failed to persist audit log",
			slog.String("event_type", log.EventType),
			slog.Any("error", err),
		)
	}
}

func strPtr(s string) *string {
	return &s
}
