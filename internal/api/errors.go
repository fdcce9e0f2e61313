package api

import (
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	domainerrors "github.com/storyloom/storyloom-server/internal/errors"
	"github.com/storyloom/storyloom-server/internal/store"
)

// APIError implements huma.StatusError for domain and store errors.
type APIError struct { //nolint:revive // API prefix is intentional for clarity
	status  int
	Code    string `json:"code" doc:"Machine-readable error code"`
	Message string `json:"message" doc:"Human-readable error message"`
	Details any    `json:"details,omitempty" doc:"Additional error details"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return e.Message
}

// GetStatus implements huma.StatusError.
func (e *APIError) GetStatus() int {
	return e.status
}

// ContentType returns the content type for the error response.
func (e *APIError) ContentType(_ string) string {
	return "application/json"
}

// RegisterErrorHandler makes huma report domain and store errors with their
// own status and code. Call it after creating the huma.API.
func RegisterErrorHandler() {
	huma.NewError = func(status int, message string, errs ...error) huma.StatusError {
		for _, err := range errs {
			if apiErr := toAPIError(err); apiErr != nil {
				return apiErr
			}
		}

		apiErr := &APIError{
			status:  status,
			Code:    statusToCode(status),
			Message: message,
		}
		// huma reports request validation failures as a list of details.
		if len(errs) > 0 && status < http.StatusInternalServerError {
			details := make([]string, 0, len(errs))
			for _, err := range errs {
				details = append(details, err.Error())
			}
			apiErr.Details = details
		}
		return apiErr
	}
}

func toAPIError(err error) *APIError {
	var domainErr *domainerrors.Error
	if errors.As(err, &domainErr) {
		return &APIError{
			status:  domainErr.HTTPStatus(),
			Code:    string(domainErr.Code),
			Message: domainErr.Message,
			Details: domainErr.Details,
		}
	}

	var storeErr *store.Error
	if errors.As(err, &storeErr) {
		return &APIError{
			status:  storeErr.HTTPCode(),
			Code:    statusToCode(storeErr.HTTPCode()),
			Message: storeErr.Message,
		}
	}
	return nil
}

func statusToCode(status int) string {
	switch status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return string(domainerrors.CodeValidation)
	case http.StatusNotFound:
		return string(domainerrors.CodeNotFound)
	case http.StatusConflict:
		return string(domainerrors.CodeConflict)
	case http.StatusTooManyRequests:
		return string(domainerrors.CodeRateLimited)
	case http.StatusBadGateway:
		return string(domainerrors.CodeUpstream)
	case http.StatusServiceUnavailable:
		return string(domainerrors.CodeUnavailable)
	default:
		return string(domainerrors.CodeInternal)
	}
}

// isStorageFailure reports whether err came from the record store rather
// than from request validation.
func isStorageFailure(err error) bool {
	var storeErr *store.Error
	return errors.As(err, &storeErr)
}
