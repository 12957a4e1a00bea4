package auth

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"golang.org/x/crypto/bcrypt"
)

const (
	// codeAlphabet is the 36-symbol alphabet emergency codes are drawn from.
	// Uppercase plus digits keeps codes unambiguous when read over the phone.
	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	// MinCodeLength is the floor for emergency code length. Eight characters
	// from a 36-symbol alphabet is ~41 bits, not guessable within a
	// four-hour validity window; the configured default is longer still.
	MinCodeLength = 8

	// BcryptCost for code hashes. Codes are high-entropy and short-lived,
	// so the interactive-login cost is sufficient here.
	BcryptCost = 12
)

// GenerateEmergencyCode returns a random alphanumeric code of the given
// length using crypto/rand. Lengths below MinCodeLength are rejected.
func GenerateEmergencyCode(length int) (string, error) {
	if length < MinCodeLength {
		return "", fmt.Errorf("code length must be at least %d (got %d)", MinCodeLength, length)
	}

	alphabetSize := big.NewInt(int64(len(codeAlphabet)))
	code := make([]byte, length)
	for i := range code {
		n, err := rand.Int(rand.Reader, alphabetSize)
		if err != nil {
			return "", fmt.Errorf("failed to generate emergency code: %w", err)
		}
		code[i] = codeAlphabet[n.Int64()]
	}

	return string(code), nil
}

// HashCode returns the bcrypt hash of an emergency code. The plaintext is
// never persisted; only this hash is stored.
func HashCode(code string) (string, error) {
	if code == "" {
		return "", fmt.Errorf("code cannot be empty")
	}
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(code), BcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash code: %w", err)
	}
	return string(hashedBytes), nil
}

// CompareCode checks a plaintext code against a stored hash.
func CompareCode(hashedCode, code string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedCode), []byte(code))
}
