package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/dmcallister-dev/medgate/internal/database"
	"github.com/dmcallister-dev/medgate/internal/models"
	"github.com/google/uuid"
)

// AuditLogRepository handles database operations for audit logs
type AuditLogRepository struct {
	db *database.DB
}

// NewAuditLogRepository creates a new AuditLogRepository
func NewAuditLogRepository(db *database.DB) *AuditLogRepository {
	return &AuditLogRepository{db: db}
}

// Create inserts a new audit log entry
func (r *AuditLogRepository) Create(ctx context.Context, log *models.AuditLog) error {
	query := `
		INSERT INTO audit_logs (event_type, actor_id, resource_type, resource_id, action, success, failure_reason, ip_address, user_agent, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id
	`

	err := r.db.Pool.QueryRow(ctx, query,
		log.EventType,
		log.ActorID,
		log.ResourceType,
		log.ResourceID,
		log.Action,
		log.Success,
		log.FailureReason,
		log.IPAddress,
		log.UserAgent,
		log.Metadata,
		log.CreatedAt,
	).Scan(&log.ID)
	if err != nil {
		return fmt.Errorf("failed to create audit log: %w", database.MapPostgresError(err))
	}

	return nil
}

// GetByUserID returns audit entries where the user is the actor, newest
// first, with limit/offset pagination.
func (r *AuditLogRepository) GetByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.AuditLog, error) {
	query := `
		SELECT id, event_type, actor_id, resource_type, resource_id, action, success, failure_reason, ip_address, user_agent, metadata, created_at
		FROM audit_logs
		WHERE actor_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Pool.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit logs: %w", database.MapPostgresError(err))
	}
	defer rows.Close()

	logs := make([]*models.AuditLog, 0)
	for rows.Next() {
		var log models.AuditLog
		err := rows.Scan(
			&log.ID, &log.EventType, &log.ActorID, &log.ResourceType, &log.ResourceID,
			&log.Action, &log.Success, &log.FailureReason, &log.IPAddress, &log.UserAgent,
			&log.Metadata, &log.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit log: %w", err)
		}
		logs = append(logs, &log)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit log rows: %w", err)
	}

	return logs, nil
}

// CountByUserID returns the total number of audit entries for a user
func (r *AuditLogRepository) CountByUserID(ctx context.Context, userID uuid.UUID) (int, error) {
	query := `SELECT COUNT(*) FROM audit_logs WHERE actor_id = $1`

	var count int
	err := r.db.Pool.QueryRow(ctx, query, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count audit logs: %w", database.MapPostgresError(err))
	}
	return count, nil
}

// DeleteOlderThan removes audit entries older than the cutoff. Only invoked
// when an explicit retention window is configured.
func (r *AuditLogRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM audit_logs WHERE created_at < $1`

	result, err := r.db.Pool.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge old audit logs: %w", database.MapPostgresError(err))
	}
	return result.RowsAffected(), nil
}
