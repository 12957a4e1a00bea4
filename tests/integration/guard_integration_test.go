package integration

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmcallister-dev/medgate/internal/models"
	"github.com/dmcallister-dev/medgate/pkg/auth"
)

var testDB *TestDB

func TestMain(m *testing.M) {
	ctx := context.Background()

	db, err := SetupTestDatabase(ctx)
	if err != nil {
		panic("failed to set up test database: " + err.Error())
	}
	testDB = db

	code := m.Run()

	testDB.Teardown(ctx)
	os.Exit(code)
}

func resetTables(t *testing.T) {
	t.Helper()
	require.NoError(t, testDB.CleanupTables(context.Background()))
}

func TestLockoutRepository_ConcurrentCreateKeepsSingleActiveRow(t *testing.T) {
	resetTables(t)
	ctx := context.Background()
	_, lockouts, _, _ := InitializeRepositories(testDB.DB)

	now := time.Now().UTC()
	var wg sync.WaitGroup
	errs := make(chan error, 10)

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- lockouts.Create(ctx, &models.AccountLockout{
				Identifier:  "carol@clinic.example",
				LockoutType: models.AttemptTypeUser,
				Reason:      models.LockoutReasonBruteForce,
				CreatedAt:   now,
				ExpiresAt:   now.Add(5 * time.Minute),
			})
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	var activeRows int
	err := testDB.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM account_lockouts WHERE identifier = $1 AND lockout_type = $2 AND is_active = true`,
		"carol@clinic.example", models.AttemptTypeUser,
	).Scan(&activeRows)
	require.NoError(t, err)
	assert.Equal(t, 1, activeRows)
}

func TestLockoutRepository_FindActiveIgnoresExpiredAndInactive(t *testing.T) {
	resetTables(t)
	ctx := context.Background()
	_, lockouts, _, _ := InitializeRepositories(testDB.DB)

	now := time.Now().UTC()

	require.NoError(t, lockouts.Create(ctx, &models.AccountLockout{
		Identifier:  "203.0.113.7",
		LockoutType: models.AttemptTypeIP,
		Reason:      models.LockoutReasonBruteForce,
		CreatedAt:   now.Add(-time.Hour),
		ExpiresAt:   now.Add(-30 * time.Minute),
	}))

	// Expired but still flagged active; FindActive must not return it.
	found, err := lockouts.FindActive(ctx, "203.0.113.7", models.AttemptTypeIP, now)
	require.NoError(t, err)
	assert.Nil(t, found)

	n, err := lockouts.DeactivateExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	// Deactivation frees the partial unique index for a fresh lockout.
	require.NoError(t, lockouts.Create(ctx, &models.AccountLockout{
		Identifier:  "203.0.113.7",
		LockoutType: models.AttemptTypeIP,
		Reason:      models.LockoutReasonBruteForce,
		CreatedAt:   now,
		ExpiresAt:   now.Add(15 * time.Minute),
	}))

	found, err = lockouts.FindActive(ctx, "203.0.113.7", models.AttemptTypeIP, now)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.WithinDuration(t, now.Add(15*time.Minute), found.ExpiresAt, time.Second)

	count, err := lockouts.CountRecent(ctx, "203.0.113.7", models.AttemptTypeIP, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestLockoutRepository_CreateSupersedesStaleExpiredRow(t *testing.T) {
	resetTables(t)
	ctx := context.Background()
	_, lockouts, _, _ := InitializeRepositories(testDB.DB)

	now := time.Now().UTC()

	// First offense expired six minutes ago but no cleanup pass has run, so
	// the row still holds the partial unique index.
	require.NoError(t, lockouts.Create(ctx, &models.AccountLockout{
		Identifier:  "carol@clinic.example",
		LockoutType: models.AttemptTypeUser,
		Reason:      models.LockoutReasonBruteForce,
		CreatedAt:   now.Add(-11 * time.Minute),
		ExpiresAt:   now.Add(-6 * time.Minute),
	}))

	// Second offense must persist despite the stale row.
	require.NoError(t, lockouts.Create(ctx, &models.AccountLockout{
		Identifier:  "carol@clinic.example",
		LockoutType: models.AttemptTypeUser,
		Reason:      models.LockoutReasonBruteForce,
		CreatedAt:   now,
		ExpiresAt:   now.Add(15 * time.Minute),
	}))

	found, err := lockouts.FindActive(ctx, "carol@clinic.example", models.AttemptTypeUser, now)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.WithinDuration(t, now.Add(15*time.Minute), found.ExpiresAt, time.Second)

	var activeRows int
	require.NoError(t, testDB.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM account_lockouts WHERE identifier = $1 AND is_active = true`,
		"carol@clinic.example",
	).Scan(&activeRows))
	assert.Equal(t, 1, activeRows)

	// Both offenses stay visible to the escalation ladder.
	count, err := lockouts.CountRecent(ctx, "carol@clinic.example", models.AttemptTypeUser, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestLockoutRepository_CreateKeepsManualUnlockRow(t *testing.T) {
	resetTables(t)
	ctx := context.Background()
	_, lockouts, _, _ := InitializeRepositories(testDB.DB)

	now := time.Now().UTC()

	require.NoError(t, lockouts.Create(ctx, &models.AccountLockout{
		Identifier:           "carol@clinic.example",
		LockoutType:          models.AttemptTypeUser,
		Reason:               models.LockoutReasonBruteForce,
		RequiresManualUnlock: true,
		CreatedAt:            now.Add(-time.Hour),
		ExpiresAt:            now.AddDate(100, 0, 0),
	}))

	// A later create attempt must not displace the manual-unlock hold.
	require.NoError(t, lockouts.Create(ctx, &models.AccountLockout{
		Identifier:  "carol@clinic.example",
		LockoutType: models.AttemptTypeUser,
		Reason:      models.LockoutReasonBruteForce,
		CreatedAt:   now,
		ExpiresAt:   now.Add(5 * time.Minute),
	}))

	found, err := lockouts.FindActive(ctx, "carol@clinic.example", models.AttemptTypeUser, now)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.True(t, found.RequiresManualUnlock)
}

func TestEmergencyCodeRepository_MarkUsedIsSingleUse(t *testing.T) {
	resetTables(t)
	ctx := context.Background()
	_, _, codes, _ := InitializeRepositories(testDB.DB)

	userID := uuid.New()
	now := time.Now().UTC()

	hash, err := auth.HashCode("A7KQ2MZX9P")
	require.NoError(t, err)

	code := &models.EmergencyAccessCode{
		UserID:    userID,
		CodeHash:  hash,
		Reason:    "locked out during on-call shift",
		CreatedAt: now,
		ExpiresAt: now.Add(4 * time.Hour),
	}
	require.NoError(t, codes.Create(ctx, code))
	require.NotEqual(t, uuid.Nil, code.ID)

	usable, err := codes.FindUsable(ctx, userID, now)
	require.NoError(t, err)
	require.Len(t, usable, 1)

	// Ten concurrent redemptions; exactly one may win.
	var wg sync.WaitGroup
	wins := make(chan bool, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := codes.MarkUsed(ctx, code.ID, now)
			if err == nil && ok {
				wins <- true
			}
		}()
	}
	wg.Wait()
	close(wins)

	winners := 0
	for range wins {
		winners++
	}
	assert.Equal(t, 1, winners)

	usable, err = codes.FindUsable(ctx, userID, now)
	require.NoError(t, err)
	assert.Empty(t, usable)
}

func TestEmergencyCodeRepository_DeleteExpiredKeepsUsedCodes(t *testing.T) {
	resetTables(t)
	ctx := context.Background()
	_, _, codes, _ := InitializeRepositories(testDB.DB)

	userID := uuid.New()
	now := time.Now().UTC()

	hash, err := auth.HashCode("EXPIREDONE")
	require.NoError(t, err)

	expired := &models.EmergencyAccessCode{
		UserID:    userID,
		CodeHash:  hash,
		Reason:    "issued for recovery drill last week",
		CreatedAt: now.Add(-8 * time.Hour),
		ExpiresAt: now.Add(-4 * time.Hour),
	}
	require.NoError(t, codes.Create(ctx, expired))

	used := &models.EmergencyAccessCode{
		UserID:    userID,
		CodeHash:  hash,
		Reason:    "issued and redeemed earlier today",
		CreatedAt: now.Add(-8 * time.Hour),
		ExpiresAt: now.Add(-4 * time.Hour),
	}
	require.NoError(t, codes.Create(ctx, used))
	ok, err := codes.MarkUsed(ctx, used.ID, now.Add(-5*time.Hour))
	require.NoError(t, err)
	require.True(t, ok)

	n, err := codes.DeleteExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	// The redeemed code survives as an audit trail row.
	var remaining int
	require.NoError(t, testDB.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM emergency_access_codes WHERE user_id = $1`, userID,
	).Scan(&remaining))
	assert.Equal(t, 1, remaining)
}

func TestLoginAttemptRepository_CountAndPurge(t *testing.T) {
	resetTables(t)
	ctx := context.Background()
	attempts, _, _, _ := InitializeRepositories(testDB.DB)

	now := time.Now().UTC()

	for i := 0; i < 3; i++ {
		require.NoError(t, attempts.Append(ctx, &models.LoginAttempt{
			Identifier:  "carol@clinic.example",
			AttemptType: models.AttemptTypeUser,
			Success:     false,
			IPAddress:   "203.0.113.7",
			AttemptTime: now.Add(-time.Duration(i) * time.Minute),
		}))
	}
	require.NoError(t, attempts.Append(ctx, &models.LoginAttempt{
		Identifier:  "carol@clinic.example",
		AttemptType: models.AttemptTypeUser,
		Success:     true,
		IPAddress:   "203.0.113.7",
		AttemptTime: now,
	}))
	require.NoError(t, attempts.Append(ctx, &models.LoginAttempt{
		Identifier:  "carol@clinic.example",
		AttemptType: models.AttemptTypeUser,
		Success:     false,
		IPAddress:   "203.0.113.7",
		AttemptTime: now.Add(-2 * time.Hour),
	}))

	count, err := attempts.CountFailed(ctx, "carol@clinic.example", models.AttemptTypeUser, now.Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	recent, err := attempts.RecentFailedByIP(ctx, "203.0.113.7", now.Add(-time.Hour))
	require.NoError(t, err)
	assert.Len(t, recent, 3)

	purged, err := attempts.DeleteOlderThan(ctx, now.Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)
}
