package auth

import (
	"fmt"
	"time"

	"github.com/dmcallister-dev/medgate/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// RoleAdmin is the only role the ops API accepts.
const RoleAdmin = "admin"

// TokenManager signs and validates the bearer tokens used by the ops/admin
// endpoints. There is no user store behind it; the platform mints tokens for
// its administrators and this service only checks them.
type TokenManager struct {
	secret      string
	tokenExpiry time.Duration
}

// NewTokenManager creates a new TokenManager
func NewTokenManager(secret string, tokenExpiry time.Duration) *TokenManager {
	return &TokenManager{
		secret:      secret,
		tokenExpiry: tokenExpiry,
	}
}

// Generate creates a signed admin token for the given platform user.
func (tm *TokenManager) Generate(userID, role string) (string, error) {
	now := time.Now()
	claims := &models.AdminClaims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(tm.tokenExpiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(tm.secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign admin token: %w", err)
	}

	return tokenString, nil
}

// Validate verifies a token string and returns its claims.
func (tm *TokenManager) Validate(tokenString string) (*models.AdminClaims, error) {
	claims := &models.AdminClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(tm.secret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	if !token.Valid {
		return nil, models.ErrUnauthorized
	}

	if claims.UserID == "" {
		return nil, fmt.Errorf("invalid token: missing user id")
	}

	return claims, nil
}
