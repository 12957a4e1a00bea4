package models

import (
	"time"

	"github.com/google/uuid"
)

// EmergencyAccessCode is a single-use bypass credential for exceptional
// account-recovery scenarios. Only the bcrypt hash is ever stored; rows are
// kept after use or expiry as an audit trail.
//
// Per-code lifecycle: issued -> used (consumed by a matching validation), or
// issued -> expired once the clock passes ExpiresAt. Both end states are
// terminal; recovery after that point requires issuing a new code.
type EmergencyAccessCode struct {
	ID        uuid.UUID  `db:"id"`
	UserID    uuid.UUID  `db:"user_id"`
	CodeHash  string     `db:"code_hash"`
	Reason    string     `db:"reason"`
	Used      bool       `db:"used"`
	UsedAt    *time.Time `db:"used_at"`
	CreatedAt time.Time  `db:"created_at"`
	ExpiresAt time.Time  `db:"expires_at"`
}

// IsExpired reports whether the code can no longer be redeemed at now.
func (c *EmergencyAccessCode) IsExpired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// IssuedEmergencyCode carries the plaintext code back to the immediate
// caller. The plaintext exists only in this value and in the delivery
// channel; it is never persisted or logged.
type IssuedEmergencyCode struct {
	Code      string
	ExpiresAt time.Time
}
