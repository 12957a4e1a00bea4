package background

import (
	"context"
	"log/slog"
	"time"
)

// Clock supplies the current time for retention cutoffs.
type Clock interface {
	Now() time.Time
}

// AttemptPurger removes login attempts older than a cutoff.
type AttemptPurger interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// LockoutExpirer flips expired finite lockouts inactive.
type LockoutExpirer interface {
	DeactivateExpired(ctx context.Context, now time.Time) (int64, error)
}

// CodePurger removes unredeemed expired emergency codes.
type CodePurger interface {
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// AuditPurger removes audit rows older than a cutoff.
type AuditPurger interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// Config controls what the cleanup pass touches. Attempt and audit purging
// default to off; those tables are audit trails and only shrink when an
// operator sets an explicit retention window.
type Config struct {
	Interval           time.Duration
	AttemptRetention   time.Duration
	AuditRetentionDays int
}

// CleanupManager runs the periodic maintenance pass: expired lockouts are
// deactivated, expired unused emergency codes removed, and optionally old
// attempt/audit rows purged.
type CleanupManager struct {
	attempts AttemptPurger
	lockouts LockoutExpirer
	codes    CodePurger
	audit    AuditPurger
	config   Config
	clock    Clock
	logger   *slog.Logger
	stopCh   chan struct{}
}

// NewCleanupManager creates a new cleanup manager
func NewCleanupManager(attempts AttemptPurger, lockouts LockoutExpirer, codes CodePurger, audit AuditPurger, config Config, clock Clock, logger *slog.Logger) *CleanupManager {
	return &CleanupManager{
		attempts: attempts,
		lockouts: lockouts,
		codes:    codes,
		audit:    audit,
		config:   config,
		clock:    clock,
		logger:   logger,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the periodic cleanup task
func (cm *CleanupManager) Start(ctx context.Context) {
	ticker := time.NewTicker(cm.config.Interval)
	defer ticker.Stop()

	// Run immediately on startup
	cm.runCleanup(ctx)

	for {
		select {
		case <-ticker.C:
			cm.runCleanup(ctx)
		case <-cm.stopCh:
			cm.logger.Info("cleanup manager stopped")
			return
		case <-ctx.Done():
			cm.logger.Info("cleanup manager context cancelled")
			return
		}
	}
}

func (cm *CleanupManager) runCleanup(ctx context.Context) {
	cleanupCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	now := cm.clock.Now()

	if n, err := cm.lockouts.DeactivateExpired(cleanupCtx, now); err != nil {
		cm.logger.Error("failed to deactivate expired lockouts", slog.Any("error", err))
	} else if n > 0 {
		cm.logger.Info("expired lockouts deactivated", slog.Int64("rows", n))
	}

	if n, err := cm.codes.DeleteExpired(cleanupCtx, now); err != nil {
		cm.logger.Error("failed to delete expired emergency codes", slog.Any("error", err))
	} else if n > 0 {
		cm.logger.Info("expired emergency codes deleted", slog.Int64("rows", n))
	}

	if cm.config.AttemptRetention > 0 {
		cutoff := now.Add(-cm.config.AttemptRetention)
		if n, err := cm.attempts.DeleteOlderThan(cleanupCtx, cutoff); err != nil {
			cm.logger.Error("failed to purge old login attempts", slog.Any("error", err))
		} else if n > 0 {
			cm.logger.Info("old login attempts purged", slog.Int64("rows", n))
		}
	}

	if cm.config.AuditRetentionDays > 0 {
		cutoff := now.AddDate(0, 0, -cm.config.AuditRetentionDays)
		if n, err := cm.audit.DeleteOlderThan(cleanupCtx, cutoff); err != nil {
			cm.logger.Error("failed to purge old audit logs", slog.Any("error", err))
		} else if n > 0 {
			cm.logger.Info("old audit logs purged", slog.Int64("rows", n))
		}
	}
}

// Stop signals the cleanup manager to stop
func (cm *CleanupManager) Stop() {
	close(cm.stopCh)
}
