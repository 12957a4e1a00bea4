package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/dmcallister-dev/medgate/internal/handlers"
	"github.com/dmcallister-dev/medgate/internal/models"
	"github.com/dmcallister-dev/medgate/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAttemptsHandler(attempts *services.MockAttemptStore, lockouts *services.MockLockoutStore) *handlers.AttemptsHandler {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	clock := services.FixedClock{Instant: time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)}
	audit := services.NewAuditService(&services.MockAuditRepository{}, clock, logger)
	analyzer := services.NewAttackPatternAnalyzer(attempts, audit, services.PatternConfig{
		Window:                      10 * time.Minute,
		BruteForceThreshold:         25,
		StuffingIdentifierThreshold: 5,
		StuffingAttemptThreshold:    20,
	}, clock, logger)
	guard := services.NewBruteForceGuard(attempts, lockouts, audit, analyzer, services.GuardConfig{
		MaxAttemptsPerIP:     15,
		MaxAttemptsPerUser:   5,
		AttemptWindow:        60 * time.Minute,
		LockoutLadderMinutes: [4]int{5, 15, 60, 240},
		EscalationWindow:     24 * time.Hour,
	}, clock, logger)
	return handlers.NewAttemptsHandler(guard)
}

func postJSON(t *testing.T, handler http.HandlerFunc, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(raw))
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestCheckAttempt_AllowedResponseHidesCounts(t *testing.T) {
	handler := newTestAttemptsHandler(&services.MockAttemptStore{}, &services.MockLockoutStore{})

	rec := postJSON(t, handler.CheckAttempt, handlers.CheckAttemptRequest{
		Identifier:  "carol@clinic.example",
		AttemptType: "user",
		IPAddress:   "203.0.113.7",
	})

	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, true, body["allowed"])
	assert.NotContains(t, body, "attempts_remaining")
	assert.NotContains(t, body, "risk_level")
}

func TestCheckAttempt_LockedOut(t *testing.T) {
	expiresAt := time.Date(2026, 3, 14, 9, 45, 0, 0, time.UTC)
	lockouts := &services.MockLockoutStore{
		FindActiveFunc: func(ctx context.Context, identifier string, lockoutType models.AttemptType, now time.Time) (*models.AccountLockout, error) {
			return &models.AccountLockout{Identifier: identifier, LockoutType: lockoutType, IsActive: true, ExpiresAt: expiresAt}, nil
		},
	}
	handler := newTestAttemptsHandler(&services.MockAttemptStore{}, lockouts)

	rec := postJSON(t, handler.CheckAttempt, handlers.CheckAttemptRequest{
		Identifier:  "carol@clinic.example",
		AttemptType: "user",
		IPAddress:   "203.0.113.7",
	})

	require.Equal(t, http.StatusOK, rec.Code)

	var resp handlers.CheckAttemptResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Allowed)
	assert.Equal(t, models.CheckReasonLockedOut, resp.Reason)
	require.NotNil(t, resp.LockoutExpiresAt)
	assert.True(t, resp.LockoutExpiresAt.Equal(expiresAt))
}

func TestCheckAttempt_StorageErrorIs503(t *testing.T) {
	attempts := &services.MockAttemptStore{
		CountFailedFunc: func(ctx context.Context, identifier string, attemptType models.AttemptType, since time.Time) (int, error) {
			return 0, errors.New("connection refused")
		},
	}
	handler := newTestAttemptsHandler(attempts, &services.MockLockoutStore{})

	rec := postJSON(t, handler.CheckAttempt, handlers.CheckAttemptRequest{
		Identifier:  "carol@clinic.example",
		AttemptType: "user",
		IPAddress:   "203.0.113.7",
	})

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestCheckAttempt_RejectsBadBody(t *testing.T) {
	handler := newTestAttemptsHandler(&services.MockAttemptStore{}, &services.MockLockoutStore{})

	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	handler.CheckAttempt(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCheckAttempt_RejectsUnknownType(t *testing.T) {
	handler := newTestAttemptsHandler(&services.MockAttemptStore{}, &services.MockLockoutStore{})

	rec := postJSON(t, handler.CheckAttempt, handlers.CheckAttemptRequest{
		Identifier:  "carol@clinic.example",
		AttemptType: "device",
		IPAddress:   "203.0.113.7",
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRecordAttempt_Returns204(t *testing.T) {
	attempts := &services.MockAttemptStore{}
	handler := newTestAttemptsHandler(attempts, &services.MockLockoutStore{})

	reason := "invalid_password"
	rec := postJSON(t, handler.RecordAttempt, handlers.RecordAttemptRequest{
		Identifier:    "carol@clinic.example",
		AttemptType:   "user",
		Success:       false,
		IPAddress:     "203.0.113.7",
		FailureReason: &reason,
	})

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Len(t, attempts.Appended, 1)
}
