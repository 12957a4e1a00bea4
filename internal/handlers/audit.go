package handlers

import (
	"net/http"
	"strconv"

	"github.com/dmcallister-dev/medgate/internal/models"
	"github.com/dmcallister-dev/medgate/internal/services"
	pkghttp "github.com/dmcallister-dev/medgate/pkg/http"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// AuditHandler handles audit trail HTTP requests
type AuditHandler struct {
	audit *services.AuditService
}

// NewAuditHandler creates a new AuditHandler
func NewAuditHandler(audit *services.AuditService) *AuditHandler {
	return &AuditHandler{audit: audit}
}

// AuditLogResponse represents an audit log entry in HTTP response
type AuditLogResponse struct {
	ID            string                 `json:"id"`
	EventType     string                 `json:"event_type"`
	ActorID       *string                `json:"actor_id,omitempty"`
	ResourceType  *string                `json:"resource_type,omitempty"`
	ResourceID    *string                `json:"resource_id,omitempty"`
	Action        string                 `json:"action"`
	Success       bool                   `json:"success"`
	FailureReason *string                `json:"failure_reason,omitempty"`
	IPAddress     *string                `json:"ip_address,omitempty"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt     string                 `json:"created_at"`
}

// GetUserAuditTrail handles GET /v1/audit/users/{id} (admin only)
func (h *AuditHandler) GetUserAuditTrail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		pkghttp.WriteBadRequest(w, "invalid user id")
		return
	}

	limit := 50
	offset := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 100 {
			limit = l
		}
	}
	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		if o, err := strconv.Atoi(offsetStr); err == nil && o >= 0 {
			offset = o
		}
	}

	logs, err := h.audit.GetUserAuditTrail(ctx, userID, limit, offset)
	if err != nil {
		pkghttp.WriteInternalError(w, "failed to fetch audit trail")
		return
	}

	total, err := h.audit.GetCountForUser(ctx, userID)
	if err != nil {
		pkghttp.WriteInternalError(w, "failed to count audit entries")
		return
	}

	response := make([]*AuditLogResponse, len(logs))
	for i, log := range logs {
		response[i] = auditLogToResponse(log)
	}

	w.Header().Set("X-Total-Count", strconv.Itoa(total))
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"logs":   response,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

func auditLogToResponse(log *models.AuditLog) *AuditLogResponse {
	resp := &AuditLogResponse{
		ID:            log.ID.String(),
		EventType:     log.EventType,
		ResourceType:  log.ResourceType,
		ResourceID:    log.ResourceID,
		Action:        log.Action,
		Success:       log.Success,
		FailureReason: log.FailureReason,
		IPAddress:     log.IPAddress,
		Metadata:      log.Metadata,
		CreatedAt:     log.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
	if log.ActorID != nil {
		actor := log.ActorID.String()
		resp.ActorID = &actor
	}
	return resp
}
