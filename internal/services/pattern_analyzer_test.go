package services_test

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/dmcallister-dev/medgate/internal/models"
	"github.com/dmcallister-dev/medgate/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAnalyzer(attempts *services.MockAttemptStore, auditRepo *services.MockAuditRepository) *services.AttackPatternAnalyzer {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	clock := services.FixedClock{Instant: testInstant}
	audit := services.NewAuditService(auditRepo, clock, logger)
	return services.NewAttackPatternAnalyzer(attempts, audit, services.PatternConfig{
		Window:                      10 * time.Minute,
		BruteForceThreshold:         25,
		StuffingIdentifierThreshold: 5,
		StuffingAttemptThreshold:    20,
	}, clock, logger)
}

// failedAttempts builds count user-dimension failures spread across n
// distinct identifiers.
func failedAttempts(count, identifiers int) []*models.LoginAttempt {
	attempts := make([]*models.LoginAttempt, 0, count)
	for i := 0; i < count; i++ {
		attempts = append(attempts, &models.LoginAttempt{
			Identifier:  fmt.Sprintf("user%d@clinic.example", i%identifiers),
			AttemptType: models.AttemptTypeUser,
			Success:     false,
			IPAddress:   "203.0.113.7",
		})
	}
	return attempts
}

func analyzeWith(t *testing.T, rows []*models.LoginAttempt) ([]string, *services.MockAuditRepository) {
	t.Helper()
	attempts := &services.MockAttemptStore{
		RecentFailedByIPFunc: func(ctx context.Context, ipAddress string, since time.Time) ([]*models.LoginAttempt, error) {
			return rows, nil
		},
	}
	auditRepo := &services.MockAuditRepository{}
	analyzer := newTestAnalyzer(attempts, auditRepo)

	patterns, err := analyzer.Analyze(context.Background(), "203.0.113.7")
	require.NoError(t, err)
	return patterns, auditRepo
}

func TestAnalyze_BelowThresholdsIsQuiet(t *testing.T) {
	patterns, auditRepo := analyzeWith(t, failedAttempts(24, 1))

	assert.Empty(t, patterns)
	assert.Empty(t, auditRepo.CreatedLogs)
}

func TestAnalyze_DistributedBruteForceAtThreshold(t *testing.T) {
	patterns, auditRepo := analyzeWith(t, failedAttempts(25, 1))

	assert.Equal(t, []string{models.PatternDistributedBruteForce}, patterns)
	require.Len(t, auditRepo.CreatedLogs, 1)
	assert.Equal(t, models.AuditEventTypeSecurityAlert, auditRepo.CreatedLogs[0].EventType)
	assert.Equal(t, models.PatternDistributedBruteForce, auditRepo.CreatedLogs[0].Metadata["pattern"])
}

func TestAnalyze_CredentialStuffing(t *testing.T) {
	// 20 attempts over 5 identifiers: stuffing fires, brute force does not.
	patterns, _ := analyzeWith(t, failedAttempts(20, 5))

	assert.Equal(t, []string{models.PatternCredentialStuffing}, patterns)
}

func TestAnalyze_CredentialStuffingNeedsBothThresholds(t *testing.T) {
	// Plenty of identifiers but too few attempts.
	patterns, _ := analyzeWith(t, failedAttempts(19, 6))
	assert.Empty(t, patterns)

	// Plenty of attempts but too few identifiers.
	patterns, _ = analyzeWith(t, failedAttempts(24, 4))
	assert.Empty(t, patterns)
}

func TestAnalyze_BothPatternsCanFire(t *testing.T) {
	patterns, auditRepo := analyzeWith(t, failedAttempts(25, 5))

	assert.ElementsMatch(t, []string{models.PatternDistributedBruteForce, models.PatternCredentialStuffing}, patterns)
	assert.Len(t, auditRepo.CreatedLogs, 2)
}

func TestAnalyze_IgnoresIPDimensionRows(t *testing.T) {
	rows := make([]*models.LoginAttempt, 0, 30)
	for i := 0; i < 30; i++ {
		rows = append(rows, &models.LoginAttempt{
			Identifier:  "203.0.113.7",
			AttemptType: models.AttemptTypeIP,
			Success:     false,
			IPAddress:   "203.0.113.7",
		})
	}

	patterns, _ := analyzeWith(t, rows)

	assert.Empty(t, patterns)
}
