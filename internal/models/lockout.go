package models

import (
	"time"

	"github.com/google/uuid"
)

// LockoutReasonBruteForce is the fixed reason recorded on every lockout
// created automatically by the guard.
const LockoutReasonBruteForce = "BRUTE_FORCE_PROTECTION"

// farFutureYears is how far out the stored expiry is pushed for lockouts
// that can only be cleared by an administrator.
const farFutureYears = 100

// AccountLockout is a denial-of-login record for an (identifier, type) pair.
// Rows are deactivated rather than deleted so lockout history survives for
// escalation decisions and audits.
type AccountLockout struct {
	ID                   uuid.UUID   `db:"id"`
	Identifier           string      `db:"identifier"`
	LockoutType          AttemptType `db:"lockout_type"`
	Reason               string      `db:"reason"`
	IPAddress            string      `db:"ip_address"`
	RequiresManualUnlock bool        `db:"requires_manual_unlock"`
	IsActive             bool        `db:"is_active"`
	CreatedAt            time.Time   `db:"created_at"`
	ExpiresAt            time.Time   `db:"expires_at"`
}

// LockoutDuration is either a finite lockout window or an indefinite hold
// that requires an administrator to clear. The tagged form keeps call sites
// from ever interpreting a magic sentinel value.
type LockoutDuration struct {
	minutes int
	manual  bool
}

// TemporaryLockout returns a finite lockout of the given number of minutes.
func TemporaryLockout(minutes int) LockoutDuration {
	return LockoutDuration{minutes: minutes}
}

// ManualUnlockLockout returns a lockout that never expires on its own.
func ManualUnlockLockout() LockoutDuration {
	return LockoutDuration{manual: true}
}

// RequiresManualUnlock reports whether the lockout must be cleared by an
// administrator.
func (d LockoutDuration) RequiresManualUnlock() bool {
	return d.manual
}

// Duration returns the finite lockout window. It is zero for manual-unlock
// lockouts; check RequiresManualUnlock first.
func (d LockoutDuration) Duration() time.Duration {
	if d.manual {
		return 0
	}
	return time.Duration(d.minutes) * time.Minute
}

// ExpiryFrom computes the stored expires_at for a lockout starting at now.
// Manual-unlock lockouts store a far-future expiry so that time-window
// queries treat them as never expiring.
func (d LockoutDuration) ExpiryFrom(now time.Time) time.Time {
	if d.manual {
		return now.AddDate(farFutureYears, 0, 0)
	}
	return now.Add(d.Duration())
}
