package models

import (
	"testing"
	"time"
)

func TestTemporaryLockout(t *testing.T) {
	d := TemporaryLockout(15)

	if d.RequiresManualUnlock() {
		t.Error("temporary lockout should not require manual unlock")
	}
	if d.Duration() != 15*time.Minute {
		t.Errorf("Duration() = %v, want 15m", d.Duration())
	}

	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	expiry := d.ExpiryFrom(now)
	if !expiry.Equal(now.Add(15 * time.Minute)) {
		t.Errorf("ExpiryFrom() = %v, want %v", expiry, now.Add(15*time.Minute))
	}
}

func TestManualUnlockLockout(t *testing.T) {
	d := ManualUnlockLockout()

	if !d.RequiresManualUnlock() {
		t.Error("expected manual unlock to be required")
	}
	if d.Duration() != 0 {
		t.Errorf("Duration() = %v, want 0 for manual-unlock lockouts", d.Duration())
	}

	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	expiry := d.ExpiryFrom(now)
	if expiry.Before(now.AddDate(99, 0, 0)) {
		t.Errorf("ExpiryFrom() = %v, want a far-future instant", expiry)
	}
}

func TestEmergencyAccessCode_IsExpired(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	code := &EmergencyAccessCode{ExpiresAt: now.Add(4 * time.Hour)}

	if code.IsExpired(now) {
		t.Error("code should not be expired before its expiry")
	}
	if !code.IsExpired(now.Add(4 * time.Hour)) {
		t.Error("code should be expired exactly at its expiry")
	}
	if !code.IsExpired(now.Add(5 * time.Hour)) {
		t.Error("code should be expired after its expiry")
	}
}
