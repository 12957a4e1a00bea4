package services_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/dmcallister-dev/medgate/internal/models"
	"github.com/dmcallister-dev/medgate/internal/services"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAuditService(repo *services.MockAuditRepository) *services.AuditService {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	return services.NewAuditService(repo, services.FixedClock{Instant: testInstant}, logger)
}

func TestAuditServiceLogLockout_PersistsRow(t *testing.T) {
	repo := &services.MockAuditRepository{}
	service := newTestAuditService(repo)

	service.LogLockout(context.Background(), &models.AccountLockout{
		Identifier:  "carol@clinic.example",
		LockoutType: models.AttemptTypeUser,
		Reason:      models.LockoutReasonBruteForce,
		IPAddress:   "203.0.113.7",
		ExpiresAt:   testInstant.Add(5 * time.Minute),
	})

	require.Len(t, repo.CreatedLogs, 1)
	log := repo.CreatedLogs[0]
	assert.Equal(t, models.AuditEventTypeLockout, log.EventType)
	assert.Equal(t, models.AuditActionCreate, log.Action)
	assert.Equal(t, "user", log.Metadata["lockout_type"])
	assert.Equal(t, testInstant, log.CreatedAt)
}

func TestAuditServicePersistFailureIsSwallowed(t *testing.T) {
	repo := &services.MockAuditRepository{
		CreateFunc: func(ctx context.Context, log *models.AuditLog) error {
			return errors.New("disk full")
		},
	}
	service := newTestAuditService(repo)

	// Must not panic or surface the error to the caller.
	service.LogSecurityAlert(context.Background(), models.PatternCredentialStuffing, "203.0.113.7", 21, 6)
}

func TestAuditServiceGetUserAuditTrail_ClampsPagination(t *testing.T) {
	var gotLimit, gotOffset int
	repo := &services.MockAuditRepository{
		GetByUserIDFunc: func(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.AuditLog, error) {
			gotLimit, gotOffset = limit, offset
			return []*models.AuditLog{}, nil
		},
	}
	service := newTestAuditService(repo)

	_, err := service.GetUserAuditTrail(context.Background(), uuid.New(), 500, -3)

	require.NoError(t, err)
	assert.Equal(t, 50, gotLimit)
	assert.Equal(t, 0, gotOffset)
}
