// Package response writes plain JSON responses for handlers that sit outside
// the huma API, such as the chat proxy. Their bodies are the bare payload,
// and errors are {"error": message}.
package response

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	domainerrors "github.com/storyloom/storyloom-server/internal/errors"
	"github.com/storyloom/storyloom-server/internal/store"
)

// ErrorBody is the JSON shape of every error written by this package.
type ErrorBody struct {
	Error string `json:"error"`
}

// JSON writes v with the given status code.
func JSON(w http.ResponseWriter, status int, v any, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil && logger != nil {
		logger.Error("Failed to encode JSON response", "error", err)
	}
}

// Success writes v with 200 OK.
func Success(w http.ResponseWriter, v any, logger *slog.Logger) {
	JSON(w, http.StatusOK, v, logger)
}

// Error writes {"error": message} with the given status code.
func Error(w http.ResponseWriter, status int, message string, logger *slog.Logger) {
	JSON(w, status, ErrorBody{Error: message}, logger)
}

// BadRequest writes a 400 Bad Request response.
func BadRequest(w http.ResponseWriter, message string, logger *slog.Logger) {
	Error(w, http.StatusBadRequest, message, logger)
}

// Conflict writes a 409 Conflict response.
func Conflict(w http.ResponseWriter, message string, logger *slog.Logger) {
	Error(w, http.StatusConflict, message, logger)
}

// TooManyRequests writes a 429 Too Many Requests response.
func TooManyRequests(w http.ResponseWriter, message string, logger *slog.Logger) {
	Error(w, http.StatusTooManyRequests, message, logger)
}

// BadGateway writes a 502 Bad Gateway response.
func BadGateway(w http.ResponseWriter, message string, logger *slog.Logger) {
	Error(w, http.StatusBadGateway, message, logger)
}

// InternalError writes a 500 Internal Server Error response.
func InternalError(w http.ResponseWriter, message string, logger *slog.Logger) {
	Error(w, http.StatusInternalServerError, message, logger)
}

// HandleError writes a response matching err. Domain and store errors keep
// their status and message; anything else becomes a 500.
func HandleError(w http.ResponseWriter, err error, logger *slog.Logger) {
	var domainErr *domainerrors.Error
	if errors.As(err, &domainErr) {
		Error(w, domainErr.HTTPStatus(), domainErr.Message, logger)
		return
	}

	var storeErr *store.Error
	if errors.As(err, &storeErr) {
		Error(w, storeErr.HTTPCode(), storeErr.Message, logger)
		return
	}

	if logger != nil {
		logger.Error("Unhandled error", "error", err)
	}
	InternalError(w, "internal server error", logger)
}
