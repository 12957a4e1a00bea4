package models

import (
	"time"

	"github.com/google/uuid"
)

// AttemptType selects which tracking dimension a login attempt or lockout
// applies to. The same failed login is recorded twice, once per dimension.
type AttemptType string

const (
	AttemptTypeIP   AttemptType = "ip"
	AttemptTypeUser AttemptType = "user"
)

// Valid reports whether t is one of the recognized attempt types.
func (t AttemptType) Valid() bool {
	return t == AttemptTypeIP || t == AttemptTypeUser
}

// LoginAttempt is a single authentication attempt. Rows are append-only:
// they are never updated or deleted, so the table doubles as an audit trail.
type LoginAttempt struct {
	ID             uuid.UUID   `db:"id"`
	Identifier     string      `db:"identifier"`
	AttemptType    AttemptType `db:"attempt_type"`
	Success        bool        `db:"success"`
	IPAddress      string      `db:"ip_address"`
	UserAgent      *string     `db:"user_agent"`
	FailureReason  *string     `db:"failure_reason"`
	AdditionalData Metadata    `db:"additional_data"`
	AttemptTime    time.Time   `db:"attempt_time"`
}
