package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/dmcallister-dev/medgate/internal/models"
)

// PatternAttemptStore defines the attempt queries the analyzer needs
type PatternAttemptStore interface {
	RecentFailedByIP(ctx context.Context, ipAddress string, since time.Time) ([]*models.LoginAttempt, error)
}

// PatternConfig holds the attack detection thresholds.
type PatternConfig struct {
	Window                      time.Duration
	BruteForceThreshold         int
	StuffingIdentifierThreshold int
	StuffingAttemptThreshold    int
}

// AttackPatternAnalyzer inspects the recent failure history of a source IP
// after each failed attempt. Detections are audit events only; the analyzer
// never blocks traffic, since a busy shared NAT looks much like an attack.
type AttackPatternAnalyzer struct {
	attempts PatternAttemptStore
	audit    *AuditService
	config   PatternConfig
	clock    Clock
	logger   *slog.Logger
}

// NewAttackPatternAnalyzer creates a new AttackPatternAnalyzer
func NewAttackPatternAnalyzer(attempts PatternAttemptStore, audit *AuditService, config PatternConfig, clock Clock, logger *slog.Logger) *AttackPatternAnalyzer {
	return &AttackPatternAnalyzer{
		attempts: attempts,
		audit:    audit,
		config:   config,
		clock:    clock,
		logger:   logger,
	}
}

// Analyze evaluates the failure history of an IP inside the detection window
// and returns the patterns that fired. Both patterns may fire on the same
// call.
func (a *AttackPatternAnalyzer) Analyze(ctx context.Context, ipAddress string) ([]string, error) {
	since := a.clock.Now().Add(-a.config.Window)
	rows, err := a.attempts.RecentFailedByIP(ctx, ipAddress, since)
	if err != nil {
		return nil, err
	}

	// Every failed login is stored once per tracking dimension; only the
	// user-dimension rows carry credential identifiers, so counting those
	// counts actual attempts without doubling.
	attemptCount := 0
	identifiers := make(map[string]struct{})
	for _, row := range rows {
		if row.AttemptType != models.AttemptTypeUser {
			continue
		}
		attemptCount++
		identifiers[row.Identifier] = struct{}{}
	}

	var patterns []string
	if attemptCount >= a.config.BruteForceThreshold {
		patterns = append(patterns, models.PatternDistributedBruteForce)
	}
	if len(identifiers) >= a.config.StuffingIdentifierThreshold && attemptCount >= a.config.StuffingAttemptThreshold {
		patterns = append(patterns, models.PatternCredentialStuffing)
	}

	for _, pattern := range patterns {
		a.audit.LogSecurityAlert(ctx, pattern, ipAddress, attemptCount, len(identifiers))
	}

	return patterns, nil
}
