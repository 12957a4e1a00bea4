package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/dmcallister-dev/medgate/internal/models"
	"github.com/dmcallister-dev/medgate/pkg/logger"
	"github.com/google/uuid"
)

// AttemptStore defines the interface for login attempt database operations
type AttemptStore interface {
	Append(ctx context.Context, attempt *models.LoginAttempt) error
	CountFailed(ctx context.Context, identifier string, attemptType models.AttemptType, since time.Time) (int, error)
}

// LockoutStore defines the interface for lockout database operations
type LockoutStore interface {
	FindActive(ctx context.Context, identifier string, lockoutType models.AttemptType, now time.Time) (*models.AccountLockout, error)
	Create(ctx context.Context, lockout *models.AccountLockout) error
	Deactivate(ctx context.Context, identifier string, lockoutType models.AttemptType) error
	CountRecent(ctx context.Context, identifier string, lockoutType models.AttemptType, since time.Time) (int, error)
}

// GuardConfig holds the brute-force thresholds and windows.
type GuardConfig struct {
	MaxAttemptsPerIP     int
	MaxAttemptsPerUser   int
	AttemptWindow        time.Duration
	LockoutLadderMinutes [4]int
	EscalationWindow     time.Duration
}

// LockoutStatus is the read-only answer to "is this identifier locked, and
// until when". Remaining is zero both when unlocked and when the lockout
// needs a manual unlock; check the flags, not the duration.
type LockoutStatus struct {
	Locked               bool
	RequiresManualUnlock bool
	ExpiresAt            *time.Time
	Remaining            time.Duration
}

// BruteForceGuard decides whether authentication attempts may proceed and
// records their outcomes. Storage errors propagate to the caller, whose
// contract is to deny the login when the guard cannot answer. Audit and
// pattern-analysis failures never change a decision.
type BruteForceGuard struct {
	attempts AttemptStore
	lockouts LockoutStore
	audit    *AuditService
	analyzer *AttackPatternAnalyzer
	config   GuardConfig
	clock    Clock
	logger   *slog.Logger
}

// NewBruteForceGuard creates a new BruteForceGuard
func NewBruteForceGuard(attempts AttemptStore, lockouts LockoutStore, audit *AuditService, analyzer *AttackPatternAnalyzer, config GuardConfig, clock Clock, logger *slog.Logger) *BruteForceGuard {
	return &BruteForceGuard{
		attempts: attempts,
		lockouts: lockouts,
		audit:    audit,
		analyzer: analyzer,
		config:   config,
		clock:    clock,
		logger:   logger,
	}
}

// CheckAttempt gates a pending authentication attempt. An active lockout
// denies with LOCKED_OUT; crossing the failure threshold creates a lockout
// and denies with RATE_LIMITED; otherwise the attempt is allowed with the
// remaining headroom and a risk grade.
func (g *BruteForceGuard) CheckAttempt(ctx context.Context, identifier string, attemptType models.AttemptType, ipAddress string) (*models.AttemptResult, error) {
	if !attemptType.Valid() {
		return nil, models.ErrInvalidAttemptType
	}

	now := g.clock.Now()

	lockout, err := g.lockouts.FindActive(ctx, identifier, attemptType, now)
	if err != nil {
		return nil, err
	}
	if lockout != nil {
		return deniedResult(models.CheckReasonLockedOut, lockout), nil
	}

	maxAttempts := g.maxAttemptsFor(attemptType)
	failed, err := g.attempts.CountFailed(ctx, identifier, attemptType, now.Add(-g.config.AttemptWindow))
	if err != nil {
		return nil, err
	}

	if failed >= maxAttempts {
		lockout, err := g.createLockout(ctx, identifier, attemptType, ipAddress, now)
		if err != nil {
			return nil, err
		}
		return deniedResult(models.CheckReasonRateLimited, lockout), nil
	}

	return &models.AttemptResult{
		Allowed:           true,
		AttemptsRemaining: maxAttempts - failed,
		RiskLevel:         models.ClassifyRisk(failed, maxAttempts),
	}, nil
}

// RecordAttempt appends an attempt outcome. A success on the user dimension
// clears any active user lockout; a failure feeds the attack-pattern
// analyzer.
func (g *BruteForceGuard) RecordAttempt(ctx context.Context, identifier string, attemptType models.AttemptType, success bool, ipAddress string, userAgent, failureReason *string, additionalData models.Metadata) error {
	if !attemptType.Valid() {
		return models.ErrInvalidAttemptType
	}

	attempt := &models.LoginAttempt{
		Identifier:     identifier,
		AttemptType:    attemptType,
		Success:        success,
		IPAddress:      ipAddress,
		UserAgent:      userAgent,
		FailureReason:  failureReason,
		AdditionalData: additionalData,
		AttemptTime:    g.clock.Now(),
	}
	if err := g.attempts.Append(ctx, attempt); err != nil {
		return err
	}

	if success {
		if attemptType == models.AttemptTypeUser {
			if err := g.lockouts.Deactivate(ctx, identifier, models.AttemptTypeUser); err != nil {
				return err
			}
		}
		return nil
	}

	// Each failed login arrives once per dimension; auditing only the user
	// dimension keeps it to one event per failure.
	if attemptType == models.AttemptTypeUser {
		g.audit.LogFailedAttempt(ctx, identifier, attemptType, ipAddress, failureReason)
	}

	if _, err := g.analyzer.Analyze(ctx, ipAddress); err != nil {
		g.logger.ErrorContext(ctx, "pattern analysis failed",
			slog.String("ip_address", ipAddress),
			slog.Any("error", err),
		)
	}

	return nil
}

// IsLockedOut reports whether an identifier currently has an active lockout.
func (g *BruteForceGuard) IsLockedOut(ctx context.Context, identifier string, attemptType models.AttemptType) (bool, error) {
	status, err := g.RemainingLockoutTime(ctx, identifier, attemptType)
	if err != nil {
		return false, err
	}
	return status.Locked, nil
}

// RemainingLockoutTime returns the current lockout status for an identifier.
func (g *BruteForceGuard) RemainingLockoutTime(ctx context.Context, identifier string, attemptType models.AttemptType) (*LockoutStatus, error) {
	if !attemptType.Valid() {
		return nil, models.ErrInvalidAttemptType
	}

	now := g.clock.Now()
	lockout, err := g.lockouts.FindActive(ctx, identifier, attemptType, now)
	if err != nil {
		return nil, err
	}
	if lockout == nil {
		return &LockoutStatus{}, nil
	}

	status := &LockoutStatus{
		Locked:               true,
		RequiresManualUnlock: lockout.RequiresManualUnlock,
	}
	if !lockout.RequiresManualUnlock {
		expiresAt := lockout.ExpiresAt
		status.ExpiresAt = &expiresAt
		status.Remaining = expiresAt.Sub(now)
	}
	return status, nil
}

// ClearLockout performs a manual unlock on behalf of an administrator.
func (g *BruteForceGuard) ClearLockout(ctx context.Context, actorID uuid.UUID, identifier string, attemptType models.AttemptType, ipAddress *string) error {
	if !attemptType.Valid() {
		return models.ErrInvalidAttemptType
	}

	if err := g.lockouts.Deactivate(ctx, identifier, attemptType); err != nil {
		return err
	}

	g.audit.LogUnlock(ctx, actorID, identifier, attemptType, ipAddress)
	return nil
}

func (g *BruteForceGuard) maxAttemptsFor(attemptType models.AttemptType) int {
	if attemptType == models.AttemptTypeIP {
		return g.config.MaxAttemptsPerIP
	}
	return g.config.MaxAttemptsPerUser
}

// createLockout inserts a lockout escalated by the identifier's recent
// history. The insert is a no-op when a concurrent request already created
// the active lockout.
func (g *BruteForceGuard) createLockout(ctx context.Context, identifier string, attemptType models.AttemptType, ipAddress string, now time.Time) (*models.AccountLockout, error) {
	prior, err := g.lockouts.CountRecent(ctx, identifier, attemptType, now.Add(-g.config.EscalationWindow))
	if err != nil {
		return nil, err
	}

	duration := g.escalate(prior)
	lockout := &models.AccountLockout{
		Identifier:           identifier,
		LockoutType:          attemptType,
		Reason:               models.LockoutReasonBruteForce,
		IPAddress:            ipAddress,
		RequiresManualUnlock: duration.RequiresManualUnlock(),
		IsActive:             true,
		CreatedAt:            now,
		ExpiresAt:            duration.ExpiryFrom(now),
	}

	if err := g.lockouts.Create(ctx, lockout); err != nil {
		return nil, err
	}

	g.logger.WarnContext(ctx, "identifier locked out",
		slog.String("identifier", logger.SanitizedIdentifier(identifier)),
		slog.String("lockout_type", string(attemptType)),
		slog.Int("prior_lockouts", prior),
		slog.Bool("requires_manual_unlock", lockout.RequiresManualUnlock),
	)
	g.audit.LogLockout(ctx, lockout)

	return lockout, nil
}

// escalate maps the number of prior lockouts inside the escalation window to
// the next lockout duration. Past the last ladder rung only an administrator
// can unlock.
func (g *BruteForceGuard) escalate(priorLockouts int) models.LockoutDuration {
	if priorLockouts >= len(g.config.LockoutLadderMinutes) {
		return models.ManualUnlockLockout()
	}
	return models.TemporaryLockout(g.config.LockoutLadderMinutes[priorLockouts])
}

func deniedResult(reason string, lockout *models.AccountLockout) *models.AttemptResult {
	result := &models.AttemptResult{
		Allowed:              false,
		Reason:               reason,
		RequiresManualUnlock: lockout.RequiresManualUnlock,
		RiskLevel:            models.RiskCritical,
	}
	if !lockout.RequiresManualUnlock {
		expiresAt := lockout.ExpiresAt
		result.LockoutExpiresAt = &expiresAt
	}
	return result
}
