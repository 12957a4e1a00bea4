package models

import "time"

// RiskLevel grades how close an identifier is to its failure threshold.
type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
)

// Denial reasons returned by the guard's check.
const (
	CheckReasonLockedOut   = "LOCKED_OUT"
	CheckReasonRateLimited = "RATE_LIMITED"
)

// Attack patterns the analyzer can flag on a source IP.
const (
	PatternDistributedBruteForce = "DISTRIBUTED_BRUTE_FORCE"
	PatternCredentialStuffing    = "CREDENTIAL_STUFFING"
)

// ClassifyRisk maps a failed-attempt count against its threshold to a risk
// tier: ratio < 0.3 is LOW, < 0.6 MEDIUM, < 0.9 HIGH, otherwise CRITICAL.
func ClassifyRisk(failedCount, maxAttempts int) RiskLevel {
	if maxAttempts <= 0 {
		return RiskCritical
	}
	ratio := float64(failedCount) / float64(maxAttempts)
	switch {
	case ratio < 0.3:
		return RiskLow
	case ratio < 0.6:
		return RiskMedium
	case ratio < 0.9:
		return RiskHigh
	default:
		return RiskCritical
	}
}

// AttemptResult is the guard's verdict for a pending authentication attempt.
// AttemptsRemaining and RiskLevel are for the internal caller only and must
// never be exposed to the end user facing the login form.
type AttemptResult struct {
	Allowed              bool
	Reason               string
	LockoutExpiresAt     *time.Time
	RequiresManualUnlock bool
	AttemptsRemaining    int
	RiskLevel            RiskLevel
}
