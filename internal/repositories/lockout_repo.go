package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmcallister-dev/medgate/internal/database"
	"github.com/dmcallister-dev/medgate/internal/models"
	"github.com/jackc/pgx/v5"
)

// LockoutRepository handles database operations for account lockouts
type LockoutRepository struct {
	db *database.DB
}

// NewLockoutRepository creates a new LockoutRepository
func NewLockoutRepository(db *database.DB) *LockoutRepository {
	return &LockoutRepository{db: db}
}

// FindActive returns the active, unexpired lockout for (identifier, type),
// or nil when none exists.
func (r *LockoutRepository) FindActive(ctx context.Context, identifier string, lockoutType models.AttemptType, now time.Time) (*models.AccountLockout, error) {
	query := `
		SELECT id, identifier, lockout_type, reason, ip_address, requires_manual_unlock, is_active, created_at, expires_at
		FROM account_lockouts
		WHERE identifier = $1 AND lockout_type = $2 AND is_active = true AND expires_at > $3
		ORDER BY created_at DESC
		LIMIT 1
	`

	var lockout models.AccountLockout
	err := r.db.Pool.QueryRow(ctx, query, identifier, lockoutType, now).Scan(
		&lockout.ID, &lockout.Identifier, &lockout.LockoutType, &lockout.Reason,
		&lockout.IPAddress, &lockout.RequiresManualUnlock, &lockout.IsActive,
		&lockout.CreatedAt, &lockout.ExpiresAt,
	)
	if err != nil {
		mapped := database.MapPostgresError(err)
		if errors.Is(mapped, models.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find active lockout: %w", mapped)
	}

	return &lockout, nil
}

// Create inserts a lockout row. A partial unique index on
// (identifier, lockout_type) WHERE is_active makes the insert a no-op when
// another request already created the active lockout, so concurrent
// threshold crossings produce exactly one row.
//
// An expired row can still hold the index between cleanup passes, which
// would swallow the new lockout and freeze escalation, so any such stale
// row is released first inside the same transaction.
func (r *LockoutRepository) Create(ctx context.Context, lockout *models.AccountLockout) error {
	releaseStale := `
		UPDATE account_lockouts
		SET is_active = false
		WHERE identifier = $1 AND lockout_type = $2 AND is_active = true
			AND requires_manual_unlock = false AND expires_at <= $3
	`
	insert := `
		INSERT INTO account_lockouts (identifier, lockout_type, reason, ip_address, requires_manual_unlock, is_active, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, true, $6, $7)
		ON CONFLICT (identifier, lockout_type) WHERE is_active DO NOTHING
	`

	err := r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, releaseStale, lockout.Identifier, lockout.LockoutType, lockout.CreatedAt); err != nil {
			return err
		}

		_, err := tx.Exec(ctx, insert,
			lockout.Identifier,
			lockout.LockoutType,
			lockout.Reason,
			lockout.IPAddress,
			lockout.RequiresManualUnlock,
			lockout.CreatedAt,
			lockout.ExpiresAt,
		)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to create lockout: %w", database.MapPostgresError(err))
	}

	return nil
}

// Deactivate clears the active lockout for (identifier, type). Rows are
// flipped inactive, never deleted, so escalation history survives.
func (r *LockoutRepository) Deactivate(ctx context.Context, identifier string, lockoutType models.AttemptType) error {
	query := `
		UPDATE account_lockouts
		SET is_active = false
		WHERE identifier = $1 AND lockout_type = $2 AND is_active = true
	`

	_, err := r.db.Pool.Exec(ctx, query, identifier, lockoutType)
	if err != nil {
		return fmt.Errorf("failed to deactivate lockout: %w", database.MapPostgresError(err))
	}

	return nil
}

// CountRecent counts lockouts created for (identifier, type) since the given
// instant, active or not. Drives the escalation ladder.
func (r *LockoutRepository) CountRecent(ctx context.Context, identifier string, lockoutType models.AttemptType, since time.Time) (int, error) {
	query := `
		SELECT COUNT(*) FROM account_lockouts
		WHERE identifier = $1 AND lockout_type = $2 AND created_at >= $3
	`

	var count int
	err := r.db.Pool.QueryRow(ctx, query, identifier, lockoutType, since).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count recent lockouts: %w", database.MapPostgresError(err))
	}
	return count, nil
}

// DeactivateExpired flips expired finite lockouts inactive so the active
// flag stays truthful. Manual-unlock lockouts are untouched.
func (r *LockoutRepository) DeactivateExpired(ctx context.Context, now time.Time) (int64, error) {
	query := `
		UPDATE account_lockouts
		SET is_active = false
		WHERE is_active = true AND requires_manual_unlock = false AND expires_at <= $1
	`

	result, err := r.db.Pool.Exec(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("failed to deactivate expired lockouts: %w", database.MapPostgresError(err))
	}
	return result.RowsAffected(), nil
}
