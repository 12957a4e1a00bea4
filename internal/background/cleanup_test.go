package background

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var cleanupInstant = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

type fixedClock struct{ instant time.Time }

func (c fixedClock) Now() time.Time { return c.instant }

type recordingPurger struct {
	cutoffs []time.Time
}

func (p *recordingPurger) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	p.cutoffs = append(p.cutoffs, cutoff)
	return 1, nil
}

type recordingExpirer struct {
	calls []time.Time
}

func (e *recordingExpirer) DeactivateExpired(ctx context.Context, now time.Time) (int64, error) {
	e.calls = append(e.calls, now)
	return 2, nil
}

type recordingCodePurger struct {
	calls []time.Time
}

func (p *recordingCodePurger) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	p.calls = append(p.calls, now)
	return 0, nil
}

func newTestManager(config Config, attempts *recordingPurger, lockouts *recordingExpirer, codes *recordingCodePurger, audit *recordingPurger) *CleanupManager {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	return NewCleanupManager(attempts, lockouts, codes, audit, config, fixedClock{instant: cleanupInstant}, logger)
}

func TestRunCleanup_AlwaysExpiresLockoutsAndCodes(t *testing.T) {
	attempts := &recordingPurger{}
	lockouts := &recordingExpirer{}
	codes := &recordingCodePurger{}
	audit := &recordingPurger{}

	cm := newTestManager(Config{Interval: time.Hour}, attempts, lockouts, codes, audit)
	cm.runCleanup(context.Background())

	require.Len(t, lockouts.calls, 1)
	assert.Equal(t, cleanupInstant, lockouts.calls[0])
	require.Len(t, codes.calls, 1)
	assert.Equal(t, cleanupInstant, codes.calls[0])

	// Retention disabled: attempt and audit tables are never touched.
	assert.Empty(t, attempts.cutoffs)
	assert.Empty(t, audit.cutoffs)
}

func TestRunCleanup_RetentionWindowsDriveCutoffs(t *testing.T) {
	attempts := &recordingPurger{}
	lockouts := &recordingExpirer{}
	codes := &recordingCodePurger{}
	audit := &recordingPurger{}

	cm := newTestManager(Config{
		Interval:           time.Hour,
		AttemptRetention:   90 * 24 * time.Hour,
		AuditRetentionDays: 365,
	}, attempts, lockouts, codes, audit)
	cm.runCleanup(context.Background())

	require.Len(t, attempts.cutoffs, 1)
	assert.Equal(t, cleanupInstant.Add(-90*24*time.Hour), attempts.cutoffs[0])

	require.Len(t, audit.cutoffs, 1)
	assert.Equal(t, cleanupInstant.AddDate(0, 0, -365), audit.cutoffs[0])
}

func TestCleanupManager_StopEndsLoop(t *testing.T) {
	attempts := &recordingPurger{}
	lockouts := &recordingExpirer{}
	codes := &recordingCodePurger{}
	audit := &recordingPurger{}

	cm := newTestManager(Config{Interval: time.Hour}, attempts, lockouts, codes, audit)

	done := make(chan struct{})
	go func() {
		cm.Start(context.Background())
		close(done)
	}()

	// Startup pass runs immediately; then stop.
	time.Sleep(50 * time.Millisecond)
	cm.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("cleanup manager did not stop")
	}

	assert.Len(t, lockouts.calls, 1)
}
