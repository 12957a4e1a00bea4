package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/dmcallister-dev/medgate/internal/models"
	"github.com/dmcallister-dev/medgate/internal/services"
	pkghttp "github.com/dmcallister-dev/medgate/pkg/http"
)

// AttemptsHandler handles the attempt check/record HTTP requests
type AttemptsHandler struct {
	guard *services.BruteForceGuard
}

// NewAttemptsHandler creates a new AttemptsHandler
func NewAttemptsHandler(guard *services.BruteForceGuard) *AttemptsHandler {
	return &AttemptsHandler{
		guard: guard,
	}
}

// CheckAttemptRequest is the body of POST /v1/attempts/check
type CheckAttemptRequest struct {
	Identifier  string `json:"identifier" validate:"required,max=255"`
	AttemptType string `json:"attempt_type" validate:"required,oneof=ip user"`
	IPAddress   string `json:"ip_address" validate:"required,ip"`
}

// CheckAttemptResponse deliberately excludes attempt counts, thresholds, and
// risk grades; those stay between this service and its internal caller's
// logs, never a login form.
type CheckAttemptResponse struct {
	Allowed              bool       `json:"allowed"`
	Reason               string     `json:"reason,omitempty"`
	LockoutExpiresAt     *time.Time `json:"lockout_expires_at,omitempty"`
	RequiresManualUnlock bool       `json:"requires_manual_unlock,omitempty"`
}

// RecordAttemptRequest is the body of POST /v1/attempts
type RecordAttemptRequest struct {
	Identifier     string                 `json:"identifier" validate:"required,max=255"`
	AttemptType    string                 `json:"attempt_type" validate:"required,oneof=ip user"`
	Success        bool                   `json:"success"`
	IPAddress      string                 `json:"ip_address" validate:"required,ip"`
	UserAgent      *string                `json:"user_agent,omitempty" validate:"omitempty,max=1024"`
	FailureReason  *string                `json:"failure_reason,omitempty" validate:"omitempty,max=255"`
	AdditionalData map[string]interface{} `json:"additional_data,omitempty"`
}

// CheckAttempt handles POST /v1/attempts/check. When storage is down the
// response is 503: the caller's contract is to deny the login rather than
// let an attacker ride out an outage.
func (h *AttemptsHandler) CheckAttempt(w http.ResponseWriter, r *http.Request) {
	var req CheckAttemptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "invalid request body")
		return
	}
	if err := ValidateRequest(&req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	result, err := h.guard.CheckAttempt(r.Context(), req.Identifier, models.AttemptType(req.AttemptType), req.IPAddress)
	if err != nil {
		if errors.Is(err, models.ErrInvalidAttemptType) {
			pkghttp.WriteBadRequest(w, "invalid attempt type")
			return
		}
		pkghttp.WriteServiceUnavailable(w, "attempt check unavailable")
		return
	}

	writeJSON(w, http.StatusOK, CheckAttemptResponse{
		Allowed:              result.Allowed,
		Reason:               result.Reason,
		LockoutExpiresAt:     result.LockoutExpiresAt,
		RequiresManualUnlock: result.RequiresManualUnlock,
	})
}

// RecordAttempt handles POST /v1/attempts
func (h *AttemptsHandler) RecordAttempt(w http.ResponseWriter, r *http.Request) {
	var req RecordAttemptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "invalid request body")
		return
	}
	if err := ValidateRequest(&req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	err := h.guard.RecordAttempt(r.Context(), req.Identifier, models.AttemptType(req.AttemptType), req.Success, req.IPAddress, req.UserAgent, req.FailureReason, models.Metadata(req.AdditionalData))
	if err != nil {
		if errors.Is(err, models.ErrInvalidAttemptType) {
			pkghttp.WriteBadRequest(w, "invalid attempt type")
			return
		}
		pkghttp.WriteServiceUnavailable(w, "attempt recording unavailable")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, statusCode int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(body)
}
