package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types for audit logging
const (
	AuditEventTypeLoginAttempt    = "login_attempt"
	AuditEventTypeLockout         = "lockout"
	AuditEventTypeUnlock          = "unlock"
	AuditEventTypeSecurityAlert   = "security_alert"
	AuditEventTypeEmergencyAccess = "emergency_access"
)

// Resource types
const (
	AuditResourceTypeLockout       = "lockout"
	AuditResourceTypeEmergencyCode = "emergency_code"
)

// Actions
const (
	AuditActionRecord   = "record"
	AuditActionCreate   = "create"
	AuditActionClear    = "clear"
	AuditActionAlert    = "alert"
	AuditActionIssue    = "issue"
	AuditActionValidate = "validate"
)

type AuditLog struct {
	ID            uuid.UUID  `db:"id"`
	EventType     string     `db:"event_type"`
	ActorID       *uuid.UUID `db:"actor_id"`
	ResourceType  *string    `db:"resource_type"`
	ResourceID    *string    `db:"resource_id"`
	Action        string     `db:"action"`
	Success       bool       `db:"success"`
	FailureReason *string    `db:"failure_reason"`
	IPAddress     *string    `db:"ip_address"`
	UserAgent     *string    `db:"user_agent"`
	Metadata      Metadata   `db:"metadata"`
	CreatedAt     time.Time  `db:"created_at"`
}

// Metadata holds free-form structured context, persisted as JSONB. It is
// shared between audit events and login-attempt additional data.
type Metadata map[string]interface{}

// Scan implements sql.Scanner for JSONB
func (m *Metadata) Scan(value interface{}) error {
	if value == nil {
		*m = make(Metadata)
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return ErrBadRequest
	}

	var parsed map[string]interface{}
	if err := json.Unmarshal(bytes, &parsed); err != nil {
		return err
	}
	*m = Metadata(parsed)
	return nil
}

// Value implements driver.Valuer for JSONB
func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

// MarshalJSON implements json.Marshaler
func (m Metadata) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]interface{}(m))
}

// UnmarshalJSON implements json.Unmarshaler
func (m *Metadata) UnmarshalJSON(data []byte) error {
	var parsed map[string]interface{}
	if err := json.Unmarshal(data, &parsed); err != nil {
		return err
	}
	*m = Metadata(parsed)
	return nil
}

// NewAlertMetadata builds the metadata payload attached to an attack-pattern
// alert event.
func NewAlertMetadata(ipAddress string, attemptCount, distinctIdentifiers int) Metadata {
	return Metadata{
		"ip_address":           ipAddress,
		"attempt_count":        attemptCount,
		"distinct_identifiers": distinctIdentifiers,
	}
}
