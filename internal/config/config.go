package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Database  DatabaseConfig
	Server    ServerConfig
	Auth      AuthConfig
	Guard     GuardConfig
	Emergency EmergencyConfig
	Email     EmailConfig
	Retention RetentionConfig
}

type DatabaseConfig struct {
	Host              string
	Port              int
	User              string
	Password          string
	Name              string
	SSLMode           string
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
}

type ServerConfig struct {
	Port                    string
	Env                     string
	LogLevel                string
	ReadTimeout             time.Duration
	WriteTimeout            time.Duration
	IdleTimeout             time.Duration
	GlobalRequestsPerMinute int
	AuthRequestsPerMinute   int
	TrustedProxies          []string
}

type AuthConfig struct {
	AdminJWTSecret string
	TokenExpiry    time.Duration
}

// GuardConfig carries the brute-force thresholds. The lockout ladder maps
// the number of prior lockouts in the escalation window to a duration in
// minutes; past the last rung the lockout requires a manual unlock.
type GuardConfig struct {
	MaxAttemptsPerIP            int
	MaxAttemptsPerUser          int
	AttemptWindow               time.Duration
	LockoutLadderMinutes        [4]int
	EscalationWindow            time.Duration
	PatternWindow               time.Duration
	BruteForceThreshold         int
	StuffingIdentifierThreshold int
	StuffingAttemptThreshold    int
}

type EmergencyConfig struct {
	CodeTTL        time.Duration
	CodeLength     int
	TimingBaseMs   int
	TimingJitterMs int
}

type EmailConfig struct {
	Enabled     bool
	AWSRegion   string
	FromAddress string
}

type RetentionConfig struct {
	CleanupInterval    time.Duration
	AttemptRetention   time.Duration // 0 keeps attempts forever
	AuditRetentionDays int           // 0 keeps audit rows forever
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	adminSecret := getEnv("ADMIN_JWT_SECRET", "")
	if adminSecret == "" {
		return nil, fmt.Errorf("ADMIN_JWT_SECRET is required")
	}

	env := getEnv("ENV", "development")

	cfg := &Config{
		Database: DatabaseConfig{
			Host:              getEnv("DB_HOST", "localhost"),
			Port:              getEnvAsInt("DB_PORT", 5432),
			User:              getEnv("DB_USER", "postgres"),
			Password:          getEnv("DB_PASSWORD", ""),
			Name:              getEnv("DB_NAME", "medgate"),
			SSLMode:           getEnv("DB_SSLMODE", "disable"),
			MaxConns:          int32(getEnvAsInt("DB_MAX_CONNS", 25)),
			MinConns:          int32(getEnvAsInt("DB_MIN_CONNS", 5)),
			MaxConnLifetime:   getEnvAsDuration("DB_MAX_CONN_LIFETIME", 5*time.Minute),
			MaxConnIdleTime:   getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 1*time.Minute),
			HealthCheckPeriod: getEnvAsDuration("DB_HEALTH_CHECK_PERIOD", 1*time.Minute),
		},
		Server: ServerConfig{
			Port:                    getEnv("PORT", "8080"),
			Env:                     env,
			LogLevel:                getEnv("LOG_LEVEL", "info"),
			ReadTimeout:             getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:            getEnvAsDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:             getEnvAsDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			GlobalRequestsPerMinute: getEnvAsInt("GLOBAL_REQUESTS_PER_MINUTE", 200),
			AuthRequestsPerMinute:   getEnvAsInt("AUTH_REQUESTS_PER_MINUTE", 5),
			TrustedProxies:          getEnvAsList("TRUSTED_PROXIES"),
		},
		Auth: AuthConfig{
			AdminJWTSecret: adminSecret,
			TokenExpiry:    getEnvAsDuration("ADMIN_TOKEN_EXPIRY", 1*time.Hour),
		},
		Guard: GuardConfig{
			MaxAttemptsPerIP:            getEnvAsInt("MAX_ATTEMPTS_PER_IP", 15),
			MaxAttemptsPerUser:          getEnvAsInt("MAX_ATTEMPTS_PER_USER", 5),
			AttemptWindow:               getEnvAsDuration("ATTEMPT_WINDOW", 60*time.Minute),
			LockoutLadderMinutes:        getEnvAsLadder("LOCKOUT_LADDER_MINUTES", [4]int{5, 15, 60, 240}),
			EscalationWindow:            getEnvAsDuration("ESCALATION_WINDOW", 24*time.Hour),
			PatternWindow:               getEnvAsDuration("PATTERN_WINDOW", 10*time.Minute),
			BruteForceThreshold:         getEnvAsInt("BRUTE_FORCE_THRESHOLD", 25),
			StuffingIdentifierThreshold: getEnvAsInt("STUFFING_IDENTIFIER_THRESHOLD", 5),
			StuffingAttemptThreshold:    getEnvAsInt("STUFFING_ATTEMPT_THRESHOLD", 20),
		},
		Emergency: EmergencyConfig{
			CodeTTL:        getEnvAsDuration("EMERGENCY_CODE_TTL", 4*time.Hour),
			CodeLength:     getEnvAsInt("EMERGENCY_CODE_LENGTH", 10),
			TimingBaseMs:   getEnvAsInt("EMERGENCY_TIMING_BASE_MS", 100),
			TimingJitterMs: getEnvAsInt("EMERGENCY_TIMING_JITTER_MS", 50),
		},
		Email: EmailConfig{
			Enabled:     getEnvAsBool("EMAIL_ENABLED", false),
			AWSRegion:   getEnv("AWS_REGION", "us-east-1"),
			FromAddress: getEnv("EMAIL_FROM_ADDRESS", ""),
		},
		Retention: RetentionConfig{
			CleanupInterval:    getEnvAsDuration("CLEANUP_INTERVAL", 1*time.Hour),
			AttemptRetention:   getEnvAsDuration("ATTEMPT_RETENTION", 0),
			AuditRetentionDays: getEnvAsInt("AUDIT_RETENTION_DAYS", 0),
		},
	}

	if cfg.Database.Password == "" {
		return nil, fmt.Errorf("DB_PASSWORD is required")
	}

	if err := validateAdminSecret(adminSecret, env); err != nil {
		return nil, err
	}

	if cfg.Email.Enabled && cfg.Email.FromAddress == "" {
		return nil, fmt.Errorf("EMAIL_FROM_ADDRESS is required when EMAIL_ENABLED=true")
	}

	if err := validateGuard(&cfg.Guard); err != nil {
		return nil, err
	}

	if cfg.Emergency.CodeLength < 8 {
		return nil, fmt.Errorf("EMERGENCY_CODE_LENGTH must be at least 8 (got %d)", cfg.Emergency.CodeLength)
	}

	return cfg, nil
}

// validateAdminSecret enforces minimum security standards for the admin JWT secret
func validateAdminSecret(secret, env string) error {
	minLength := 16 // Development minimum
	if env == "production" {
		minLength = 32 // Production requires stronger secret (256 bits)
	}

	if len(secret) < minLength {
		return fmt.Errorf("ADMIN_JWT_SECRET must be at least %d characters in %s environment (got %d)",
			minLength, env, len(secret))
	}

	weakSecrets := []string{
		"secret", "test", "password", "12345", "changeme",
		"admin", "root", "default", "example",
	}

	secretLower := strings.ToLower(secret)
	for _, weak := range weakSecrets {
		if secretLower == weak {
			return fmt.Errorf("ADMIN_JWT_SECRET cannot be a common weak value")
		}
	}

	return nil
}

func validateGuard(g *GuardConfig) error {
	if g.MaxAttemptsPerIP <= 0 || g.MaxAttemptsPerUser <= 0 {
		return fmt.Errorf("guard attempt thresholds must be positive")
	}
	if g.AttemptWindow <= 0 || g.PatternWindow <= 0 || g.EscalationWindow <= 0 {
		return fmt.Errorf("guard windows must be positive")
	}
	for i, minutes := range g.LockoutLadderMinutes {
		if minutes <= 0 {
			return fmt.Errorf("lockout ladder rung %d must be positive (got %d)", i, minutes)
		}
	}
	return nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultVal
}

func getEnvAsList(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	for i, part := range parts {
		parts[i] = strings.TrimSpace(part)
	}
	return parts
}

// getEnvAsLadder parses a comma-separated four-rung escalation ladder,
// e.g. "5,15,60,240". Malformed values fall back to the default.
func getEnvAsLadder(key string, defaultVal [4]int) [4]int {
	value := os.Getenv(key)
	if value == "" {
		return defaultVal
	}

	parts := strings.Split(value, ",")
	if len(parts) != len(defaultVal) {
		return defaultVal
	}

	var ladder [4]int
	for i, part := range parts {
		minutes, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return defaultVal
		}
		ladder[i] = minutes
	}
	return ladder
}
