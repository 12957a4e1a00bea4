package logger

import (
	"log/slog"
	"strings"
)

// SanitizedIdentifier masks an account identifier for logging. Email-shaped
// identifiers keep the first character and the TLD; anything else keeps the
// first and last character. PHI rules forbid logging identifiers verbatim.
func SanitizedIdentifier(identifier string) string {
	if identifier == "" {
		return "[empty]"
	}

	if strings.Contains(identifier, "@") {
		parts := strings.SplitN(identifier, "@", 2)
		username := parts[0]
		domain := parts[1]

		if len(username) > 1 {
			username = string(username[0]) + strings.Repeat("*", len(username)-1)
		}

		domainParts := strings.Split(domain, ".")
		if len(domainParts) > 1 {
			for i := 0; i < len(domainParts)-1; i++ {
				domainParts[i] = strings.Repeat("*", len(domainParts[i]))
			}
			domain = strings.Join(domainParts, ".")
		}

		return username + "@" + domain
	}

	if len(identifier) <= 2 {
		return strings.Repeat("*", len(identifier))
	}
	return string(identifier[0]) + strings.Repeat("*", len(identifier)-2) + string(identifier[len(identifier)-1])
}

// RedactedAttr returns a redacted slog attribute for sensitive values
// In production, returns "[REDACTED]"; in development, returns the actual value
func RedactedAttr(key, value, env string) slog.Attr {
	if env == "production" {
		return slog.String(key, "[REDACTED]")
	}
	return slog.String(key, value)
}

// SanitizeQueryString checks if query string contains sensitive parameters
// and returns true if the entire query string should be redacted
func SanitizeQueryString(rawQuery string) bool {
	sensitiveParams := map[string]bool{
		"password":   true,
		"token":      true,
		"secret":     true,
		"code":       true,
		"identifier": true,
		"email":      true,
		"auth":       true,
	}

	query := strings.ToLower(rawQuery)
	for param := range sensitiveParams {
		if strings.Contains(query, param) {
			return true
		}
	}
	return false
}
