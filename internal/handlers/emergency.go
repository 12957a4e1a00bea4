package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/dmcallister-dev/medgate/internal/auth"
	"github.com/dmcallister-dev/medgate/internal/services"
	pkghttp "github.com/dmcallister-dev/medgate/pkg/http"
	"github.com/google/uuid"
)

// EmergencyHandler handles emergency access code HTTP requests
type EmergencyHandler struct {
	emergency *services.EmergencyService
	ipConfig  *pkghttp.IPConfig
}

// NewEmergencyHandler creates a new EmergencyHandler
func NewEmergencyHandler(emergency *services.EmergencyService, ipConfig *pkghttp.IPConfig) *EmergencyHandler {
	return &EmergencyHandler{
		emergency: emergency,
		ipConfig:  ipConfig,
	}
}

// IssueCodeRequest is the body of POST /v1/emergency-codes
type IssueCodeRequest struct {
	UserID string `json:"user_id" validate:"required,uuid"`
	Email  string `json:"email" validate:"required,email"`
	Reason string `json:"reason" validate:"required,min=10,max=500"`
}

// IssueCodeResponse returns the plaintext code to the issuing administrator
// once; it exists nowhere else.
type IssueCodeResponse struct {
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ValidateCodeRequest is the body of POST /v1/emergency-codes/validate
type ValidateCodeRequest struct {
	UserID string `json:"user_id" validate:"required,uuid"`
	Code   string `json:"code" validate:"required,min=8,max=32"`
}

// ValidateCodeResponse is a bare verdict; why a code failed is audit-only.
type ValidateCodeResponse struct {
	Valid bool `json:"valid"`
}

// IssueCode handles POST /v1/emergency-codes (admin only)
func (h *EmergencyHandler) IssueCode(w http.ResponseWriter, r *http.Request) {
	var req IssueCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "invalid request body")
		return
	}
	if err := ValidateRequest(&req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	claims := auth.GetAdminFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "unauthorized")
		return
	}
	actorID, err := uuid.Parse(claims.UserID)
	if err != nil {
		pkghttp.WriteUnauthorized(w, "invalid actor id in token")
		return
	}

	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		pkghttp.WriteBadRequest(w, "invalid user id")
		return
	}

	clientIP := pkghttp.ExtractClientIP(r, h.ipConfig)
	issued, err := h.emergency.GenerateCode(r.Context(), userID, req.Email, req.Reason, actorID, &clientIP)
	if err != nil {
		pkghttp.WriteInternalError(w, "failed to issue emergency code")
		return
	}

	writeJSON(w, http.StatusCreated, IssueCodeResponse{
		Code:      issued.Code,
		ExpiresAt: issued.ExpiresAt,
	})
}

// ValidateCode handles POST /v1/emergency-codes/validate
func (h *EmergencyHandler) ValidateCode(w http.ResponseWriter, r *http.Request) {
	var req ValidateCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "invalid request body")
		return
	}
	if err := ValidateRequest(&req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		pkghttp.WriteBadRequest(w, "invalid user id")
		return
	}

	clientIP := pkghttp.ExtractClientIP(r, h.ipConfig)
	valid, err := h.emergency.ValidateCode(r.Context(), userID, req.Code, &clientIP)
	if err != nil {
		pkghttp.WriteServiceUnavailable(w, "code validation unavailable")
		return
	}

	writeJSON(w, http.StatusOK, ValidateCodeResponse{Valid: valid})
}
