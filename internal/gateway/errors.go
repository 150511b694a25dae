package gateway

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"authgate/internal/domain"
)

// WriteError maps a pipeline error to its HTTP status and writes the JSON
// error body. Credential and origin failures are the caller's fault (403);
// everything else, including unbound services and upstream failures, is a
// 500. The body always carries a message field.
func WriteError(w http.ResponseWriter, logger *slog.Logger, requestID string, err error) {
	status := http.StatusInternalServerError

	var (
		missing *domain.CredentialMissingError
		invalid *domain.CredentialInvalidError
		origin  *domain.OriginDeniedError
	)
	switch {
	case errors.As(err, &missing), errors.As(err, &invalid), errors.As(err, &origin):
		status = http.StatusForbidden
	}

	if status == http.StatusInternalServerError {
		logger.Error("request failed",
			slog.String("request_id", requestID),
			slog.String("error", err.Error()))
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"message": err.Error()})
}
