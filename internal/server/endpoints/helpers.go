package endpoints

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/jackzampolin/boighor/internal/assistant"
	"github.com/jackzampolin/boighor/internal/catalog"
	"github.com/jackzampolin/boighor/internal/reading"
	"github.com/jackzampolin/boighor/internal/storage"
	"github.com/jackzampolin/boighor/internal/viewer"
)

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// ErrorResponse is a standard error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// writeServiceError maps package sentinels to status codes.
func writeServiceError(w http.ResponseWriter, err error) {
	writeError(w, errorStatus(err), err.Error())
}

func errorStatus(err error) int {
	var genErr *assistant.GenerationError
	var extractErr *assistant.ExtractionError
	switch {
	case errors.Is(err, catalog.ErrNotFound),
		errors.Is(err, reading.ErrSessionNotFound),
		errors.Is(err, storage.ErrUnknownBucket):
		return http.StatusNotFound
	case errors.Is(err, catalog.ErrInvalid),
		errors.Is(err, storage.ErrInvalidPath),
		errors.Is(err, assistant.ErrUnknownKind),
		errors.Is(err, assistant.ErrUnsupportedFile):
		return http.StatusBadRequest
	case errors.Is(err, viewer.ErrNotLoaded),
		errors.Is(err, viewer.ErrClosed):
		return http.StatusConflict
	case errors.Is(err, reading.ErrTooManySessions):
		return http.StatusTooManyRequests
	case errors.Is(err, assistant.ErrNoProvider):
		return http.StatusServiceUnavailable
	case errors.As(err, &genErr), errors.As(err, &extractErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
