package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/dmcallister-dev/medgate/internal/database"
	"github.com/dmcallister-dev/medgate/internal/models"
	"github.com/google/uuid"
)

// EmergencyCodeRepository handles database operations for emergency access
// codes. Only bcrypt hashes are stored; used codes are retained for the
// audit trail rather than deleted.
type EmergencyCodeRepository struct {
	db *database.DB
}

// NewEmergencyCodeRepository creates a new EmergencyCodeRepository
func NewEmergencyCodeRepository(db *database.DB) *EmergencyCodeRepository {
	return &EmergencyCodeRepository{db: db}
}

// Create stores a new emergency access code
func (r *EmergencyCodeRepository) Create(ctx context.Context, code *models.EmergencyAccessCode) error {
	query := `
		INSERT INTO emergency_access_codes (user_id, code_hash, reason, used, created_at, expires_at)
		VALUES ($1, $2, $3, false, $4, $5)
		RETURNING id
	`

	err := r.db.Pool.QueryRow(ctx, query,
		code.UserID,
		code.CodeHash,
		code.Reason,
		code.CreatedAt,
		code.ExpiresAt,
	).Scan(&code.ID)
	if err != nil {
		return fmt.Errorf("failed to create emergency code: %w", database.MapPostgresError(err))
	}

	return nil
}

// FindUsable returns the unused, unexpired codes for a user, newest first.
// The caller compares the presented code against each hash.
func (r *EmergencyCodeRepository) FindUsable(ctx context.Context, userID uuid.UUID, now time.Time) ([]*models.EmergencyAccessCode, error) {
	query := `
		SELECT id, user_id, code_hash, reason, used, used_at, created_at, expires_at
		FROM emergency_access_codes
		WHERE user_id = $1 AND used = false AND expires_at > $2
		ORDER BY created_at DESC
	`

	rows, err := r.db.Pool.Query(ctx, query, userID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to query usable emergency codes: %w", database.MapPostgresError(err))
	}
	defer rows.Close()

	codes := make([]*models.EmergencyAccessCode, 0)
	for rows.Next() {
		var code models.EmergencyAccessCode
		err := rows.Scan(
			&code.ID, &code.UserID, &code.CodeHash, &code.Reason,
			&code.Used, &code.UsedAt, &code.CreatedAt, &code.ExpiresAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan emergency code: %w", err)
		}
		codes = append(codes, &code)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating emergency code rows: %w", err)
	}

	return codes, nil
}

// MarkUsed consumes a code. The WHERE used = false guard makes consumption
// atomic: of two concurrent validations only one sees a row flipped, so the
// return value reports whether this caller won.
func (r *EmergencyCodeRepository) MarkUsed(ctx context.Context, codeID uuid.UUID, usedAt time.Time) (bool, error) {
	query := `
		UPDATE emergency_access_codes
		SET used = true, used_at = $2
		WHERE id = $1 AND used = false
	`

	result, err := r.db.Pool.Exec(ctx, query, codeID, usedAt)
	if err != nil {
		return false, fmt.Errorf("failed to mark emergency code used: %w", database.MapPostgresError(err))
	}

	return result.RowsAffected() == 1, nil
}

// DeleteExpired removes codes that expired without being redeemed. Used
// codes stay put; they document that emergency access happened.
func (r *EmergencyCodeRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	query := `DELETE FROM emergency_access_codes WHERE used = false AND expires_at <= $1`

	result, err := r.db.Pool.Exec(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired emergency codes: %w", database.MapPostgresError(err))
	}
	return result.RowsAffected(), nil
}
