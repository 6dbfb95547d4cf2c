package handlers

import (
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/zatekoja/roadsideassist/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/roadsideassist/pkg/errors"
)

// envelope is the body of every API response
type envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func respondWithJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Warn().Err(err).Msg("Failed to encode response")
	}
}

func respondWithData(w http.ResponseWriter, statusCode int, data interface{}) {
	respondWithJSON(w, statusCode, envelope{Success: true, Data: data})
}

func respondWithError(w http.ResponseWriter, statusCode int, message string) {
	respondWithJSON(w, statusCode, envelope{Success: false, Message: message})
}

// respondWithAppError maps err to an HTTP status. Client errors carry their
// own message; server errors get a generic one, with the underlying error
// attached only in development.
func respondWithAppError(w http.ResponseWriter, r *http.Request, err error, devMode bool) {
	status := statusForError(err)
	if status < http.StatusInternalServerError {
		respondWithError(w, status, messageOf(err))
		return
	}

	observability.LoggerFromContext(r.Context()).Error().
		Err(err).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Msg("Request failed")

	body := envelope{Success: false, Message: "internal server error"}
	if status == http.StatusBadGateway {
		body.Message = "upstream service unavailable"
	}
	if devMode {
		body.Error = err.Error()
	}
	respondWithJSON(w, status, body)
}

func statusForError(err error) int {
	switch apperrors.TypeOf(err) {
	case apperrors.ErrorTypeValidation,
		apperrors.ErrorTypeInvalidCoordinates,
		apperrors.ErrorTypeInvalidRadius:
		return http.StatusBadRequest
	case apperrors.ErrorTypeUnauthorized:
		return http.StatusUnauthorized
	case apperrors.ErrorTypeNotFound:
		return http.StatusNotFound
	case apperrors.ErrorTypeConflict:
		return http.StatusConflict
	case apperrors.ErrorTypeExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func messageOf(err error) string {
	var appErr *apperrors.AppError
	if stderrors.As(err, &appErr) {
		return appErr.Message
	}
	return err.Error()
}
