package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/dmcallister-dev/medgate/internal/database"
	"github.com/dmcallister-dev/medgate/internal/models"
	"github.com/jackc/pgx/v5"
)

// LoginAttemptRepository handles database operations for login attempts.
// The table is append-only; nothing here updates or deletes rows apart from
// the optional retention purge.
type LoginAttemptRepository struct {
	db *database.DB
}

// NewLoginAttemptRepository creates a new LoginAttemptRepository
func NewLoginAttemptRepository(db *database.DB) *LoginAttemptRepository {
	return &LoginAttemptRepository{db: db}
}

// Append records a login attempt
func (r *LoginAttemptRepository) Append(ctx context.Context, attempt *models.LoginAttempt) error {
	query := `
		INSERT INTO login_attempts (identifier, attempt_type, success, ip_address, user_agent, failure_reason, additional_data, attempt_time)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.Pool.Exec(ctx, query,
		attempt.Identifier,
		attempt.AttemptType,
		attempt.Success,
		attempt.IPAddress,
		attempt.UserAgent,
		attempt.FailureReason,
		attempt.AdditionalData,
		attempt.AttemptTime,
	)
	if err != nil {
		return fmt.Errorf("failed to record login attempt: %w", database.MapPostgresError(err))
	}

	return nil
}

// CountFailed returns the number of failed attempts for an identifier within a time window
func (r *LoginAttemptRepository) CountFailed(ctx context.Context, identifier string, attemptType models.AttemptType, since time.Time) (int, error) {
	query := `
		SELECT COUNT(*) FROM login_attempts
		WHERE identifier = $1 AND attempt_type = $2 AND success = false AND attempt_time >= $3
	`

	var count int
	err := r.db.Pool.QueryRow(ctx, query, identifier, attemptType, since).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count failed attempts: %w", database.MapPostgresError(err))
	}
	return count, nil
}

// RecentFailedByIP returns the failed attempts originating from an IP within
// a time window, newest first. Used by attack-pattern analysis.
func (r *LoginAttemptRepository) RecentFailedByIP(ctx context.Context, ipAddress string, since time.Time) ([]*models.LoginAttempt, error) {
	query := `
		SELECT id, identifier, attempt_type, success, ip_address, user_agent, failure_reason, additional_data, attempt_time
		FROM login_attempts
		WHERE ip_address = $1 AND success = false AND attempt_time >= $2
		ORDER BY attempt_time DESC
	`

	rows, err := r.db.Pool.Query(ctx, query, ipAddress, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent failed attempts: %w", database.MapPostgresError(err))
	}

	return scanLoginAttemptRows(rows)
}

// DeleteOlderThan removes attempts older than the cutoff. Retention is
// disabled by default; this only runs when an explicit retention window is
// configured.
func (r *LoginAttemptRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM login_attempts WHERE attempt_time < $1`

	result, err := r.db.Pool.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge old login attempts: %w", database.MapPostgresError(err))
	}
	return result.RowsAffected(), nil
}

func scanLoginAttemptRows(rows pgx.Rows) ([]*models.LoginAttempt, error) {
	defer rows.Close()

	attempts := make([]*models.LoginAttempt, 0)

	for rows.Next() {
		var attempt models.LoginAttempt
		err := rows.Scan(
			&attempt.ID, &attempt.Identifier, &attempt.AttemptType, &attempt.Success,
			&attempt.IPAddress, &attempt.UserAgent, &attempt.FailureReason,
			&attempt.AdditionalData, &attempt.AttemptTime,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan login attempt: %w", err)
		}
		attempts = append(attempts, &attempt)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating login attempt rows: %w", err)
	}

	return attempts, nil
}
