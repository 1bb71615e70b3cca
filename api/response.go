package api

import (
	"encoding/json"
	"errors"
	"net/http"

	log "github.com/sirupsen/logrus"

	"pyquest/service"
)

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.WithError(err).Warn("Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

// statusFor maps service errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrInvalidAmount), errors.Is(err, service.ErrInvalidTransactionType),
		errors.Is(err, service.ErrInvalidBadge):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrInsufficientDiamonds), errors.Is(err, service.ErrAlreadyCompleted):
		return http.StatusConflict
	case errors.Is(err, service.ErrTransactionFailure):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// writeServiceError replies with the mapped status. Internal details are logged, never returned.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)

	entry := log.WithFields(log.Fields{
		"path":   r.URL.Path,
		"status": status,
		"error":  err,
	})
	if status >= http.StatusInternalServerError {
		entry.Error("Request failed")
	} else {
		entry.Debug("Request rejected")
	}

	switch status {
	case http.StatusInternalServerError:
		writeJSON(w, status, ErrorResponse{Error: "internal error"})
	case http.StatusServiceUnavailable:
		writeJSON(w, status, ErrorResponse{Error: "temporarily unavailable, please retry", Retryable: true})
	default:
		writeJSON(w, status, ErrorResponse{Error: err.Error()})
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16))
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}
