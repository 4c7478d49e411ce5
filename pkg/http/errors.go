package http

import (
	"encoding/json"
	"net/http"
)

// ErrorResponse is the JSON body of every non-2xx reply. Error is a stable
// machine-readable code; Message is for humans and may change.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func write(w http.ResponseWriter, statusCode int, errorCode, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Error:   errorCode,
		Message: message,
	})
}

func WriteBadRequest(w http.ResponseWriter, message string) {
	write(w, http.StatusBadRequest, "bad_request", message)
}

func WriteUnauthorized(w http.ResponseWriter, message string) {
	write(w, http.StatusUnauthorized, "unauthorized", message)
}

func WriteForbidden(w http.ResponseWriter, message string) {
	write(w, http.StatusForbidden, "forbidden", message)
}

func WriteNotFound(w http.ResponseWriter, message string) {
	write(w, http.StatusNotFound, "not_found", message)
}

// WriteTooManyRequests covers both the daily quota and the burst rate limit.
func WriteTooManyRequests(w http.ResponseWriter, message string) {
	write(w, http.StatusTooManyRequests, "rate_limit_exceeded", message)
}

// WriteGatewayTimeout reports a search that exceeded its execution deadline.
func WriteGatewayTimeout(w http.ResponseWriter, message string) {
	write(w, http.StatusGatewayTimeout, "search_timeout", message)
}

func WriteInternalError(w http.ResponseWriter, message string) {
	write(w, http.StatusInternalServerError, "internal_error", message)
}
