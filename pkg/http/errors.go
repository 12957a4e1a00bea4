package http

import (
	"encoding/json"
	"net/http"
)

// ErrorResponse is the error envelope every non-2xx response carries. The
// message stays generic on security-sensitive paths; detail belongs in the
// audit log, not on the wire.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// errorCodes maps status codes to their stable machine-readable code.
var errorCodes = map[int]string{
	http.StatusBadRequest:          "bad_request",
	http.StatusUnauthorized:        "unauthorized",
	http.StatusForbidden:           "forbidden",
	http.StatusNotFound:            "not_found",
	http.StatusConflict:            "conflict",
	http.StatusTooManyRequests:     "rate_limit_exceeded",
	http.StatusServiceUnavailable:  "service_unavailable",
	http.StatusInternalServerError: "internal_error",
}

// WriteError writes a JSON error envelope with an explicit code.
func WriteError(w http.ResponseWriter, statusCode int, errorCode, message string) {
	WriteErrorWithDetails(w, statusCode, errorCode, message, "")
}

// WriteErrorWithDetails writes a JSON error envelope with optional context.
func WriteErrorWithDetails(w http.ResponseWriter, statusCode int, errorCode, message, details string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Error:   errorCode,
		Message: message,
		Details: details,
	})
}

func writeStatus(w http.ResponseWriter, statusCode int, message string) {
	WriteError(w, statusCode, errorCodes[statusCode], message)
}

func WriteBadRequest(w http.ResponseWriter, message string) {
	writeStatus(w, http.StatusBadRequest, message)
}

func WriteUnauthorized(w http.ResponseWriter, message string) {
	writeStatus(w, http.StatusUnauthorized, message)
}

func WriteForbidden(w http.ResponseWriter, message string) {
	writeStatus(w, http.StatusForbidden, message)
}

func WriteNotFound(w http.ResponseWriter, message string) {
	writeStatus(w, http.StatusNotFound, message)
}

func WriteConflict(w http.ResponseWriter, message string) {
	writeStatus(w, http.StatusConflict, message)
}

func WriteTooManyRequests(w http.ResponseWriter, message string) {
	writeStatus(w, http.StatusTooManyRequests, message)
}

func WriteServiceUnavailable(w http.ResponseWriter, message string) {
	writeStatus(w, http.StatusServiceUnavailable, message)
}

func WriteInternalError(w http.ResponseWriter, message string) {
	writeStatus(w, http.StatusInternalServerError, message)
}
