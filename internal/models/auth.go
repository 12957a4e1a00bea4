package models

import "github.com/golang-jwt/jwt/v5"

// AdminClaims are the JWT claims carried by tokens for the ops/admin API.
// Tokens are minted out of band (see cmd/admintoken); this service only
// validates them.
type AdminClaims struct {
	UserID string `json:"uid"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}
