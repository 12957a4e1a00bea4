package handlers

import (
	"net/http"
	"time"

	"github.com/dmcallister-dev/medgate/internal/auth"
	"github.com/dmcallister-dev/medgate/internal/models"
	"github.com/dmcallister-dev/medgate/internal/services"
	pkghttp "github.com/dmcallister-dev/medgate/pkg/http"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// LockoutsHandler handles the admin lockout inspection/unlock endpoints
type LockoutsHandler struct {
	guard    *services.BruteForceGuard
	ipConfig *pkghttp.IPConfig
}

// NewLockoutsHandler creates a new LockoutsHandler
func NewLockoutsHandler(guard *services.BruteForceGuard, ipConfig *pkghttp.IPConfig) *LockoutsHandler {
	return &LockoutsHandler{
		guard:    guard,
		ipConfig: ipConfig,
	}
}

// LockoutStatusResponse is the body of GET /v1/lockouts/{type}/{identifier}
type LockoutStatusResponse struct {
	Locked               bool       `json:"locked"`
	RequiresManualUnlock bool       `json:"requires_manual_unlock"`
	ExpiresAt            *time.Time `json:"expires_at,omitempty"`
	RemainingSeconds     int64      `json:"remaining_seconds"`
}

// GetLockout handles GET /v1/lockouts/{type}/{identifier}
func (h *LockoutsHandler) GetLockout(w http.ResponseWriter, r *http.Request) {
	identifier, attemptType, ok := lockoutParams(w, r)
	if !ok {
		return
	}

	status, err := h.guard.RemainingLockoutTime(r.Context(), identifier, attemptType)
	if err != nil {
		pkghttp.WriteInternalError(w, "failed to look up lockout")
		return
	}

	writeJSON(w, http.StatusOK, LockoutStatusResponse{
		Locked:               status.Locked,
		RequiresManualUnlock: status.RequiresManualUnlock,
		ExpiresAt:            status.ExpiresAt,
		RemainingSeconds:     int64(status.Remaining.Seconds()),
	})
}

// ClearLockout handles DELETE /v1/lockouts/{type}/{identifier}
func (h *LockoutsHandler) ClearLockout(w http.ResponseWriter, r *http.Request) {
	identifier, attemptType, ok := lockoutParams(w, r)
	if !ok {
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

	clientIP := pkghttp.ExtractClientIP(r, h.ipConfig)
	if err := h.guard.ClearLockout(r.Context(), actorID, identifier, attemptType, &clientIP); err != nil {
		pkghttp.WriteInternalError(w, "failed to clear lockout")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func lockoutParams(w http.ResponseWriter, r *http.Request) (string, models.AttemptType, bool) {
	identifier := chi.URLParam(r, "identifier")
	attemptType := models.AttemptType(chi.URLParam(r, "type"))
	if identifier == "" || !attemptType.Valid() {
		pkghttp.WriteBadRequest(w, "invalid lockout type or identifier")
		return "", "", false
	}
	return identifier, attemptType, true
}
