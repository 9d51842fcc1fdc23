package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/hmaged/signfleet/internal/realtime"
	"github.com/hmaged/signfleet/internal/repositories"
	"github.com/hmaged/signfleet/internal/services"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeDetail emits the `{"detail": "..."}` error shape used across the API.
func writeDetail(w http.ResponseWriter, status int, format string, args ...any) {
	writeJSON(w, status, map[string]string{"detail": fmt.Sprintf(format, args...)})
}

// writeError maps domain errors onto HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	var validationErr *services.ValidationError

	switch {
	case errors.Is(err, repositories.ErrNotFound),
		errors.Is(err, realtime.ErrNoClientAwaiting):
		writeDetail(w, http.StatusNotFound, "%s", err.Error())
	case errors.Is(err, realtime.ErrNameTaken),
		errors.Is(err, realtime.ErrDeviceOffline),
		errors.Is(err, services.ErrSetupNameTaken):
		writeDetail(w, http.StatusConflict, "%s", err.Error())
	case errors.Is(err, realtime.ErrCodeClaimed):
		writeDetail(w, http.StatusBadRequest, "code is not available, please request another one")
	case errors.As(err, &validationErr):
		writeDetail(w, http.StatusBadRequest, "%s", validationErr.Message)
	case errors.Is(err, services.ErrInvalidCredentials),
		errors.Is(err, services.ErrInvalidToken),
		errors.Is(err, services.ErrInvalidAPIKey):
		writeDetail(w, http.StatusUnauthorized, "%s", err.Error())
	default:
		writeDetail(w, http.StatusInternalServerError, "internal server error")
	}
}
