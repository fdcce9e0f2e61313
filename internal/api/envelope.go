package api

import (
	"strconv"

	"github.com/danielgtaylor/huma/v2"
)

// EnvelopeVersion is bumped whenever the envelope shape changes.
const EnvelopeVersion = 1

// APIEnvelope wraps every successful response and plain errors.
type APIEnvelope struct { //nolint:revive // API prefix is intentional for clarity
	Version int    `json:"v"`
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// APIErrorEnvelope carries a coded error.
type APIErrorEnvelope struct { //nolint:revive // API prefix is intentional for clarity
	Version int    `json:"v"`
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// EnvelopeTransformer wraps huma response bodies in the API envelope.
func EnvelopeTransformer(_ huma.Context, status string, v any) (any, error) {
	code, _ := strconv.Atoi(status)
	if code < 400 {
		return APIEnvelope{Version: EnvelopeVersion, Success: true, Data: v}, nil
	}

	switch e := v.(type) {
	case *APIError:
		return APIErrorEnvelope{
			Version: EnvelopeVersion,
			Error:   e.Message,
			Code:    e.Code,
			Message: e.Message,
			Details: e.Details,
		}, nil
	case error:
		return APIEnvelope{Version: EnvelopeVersion, Error: e.Error()}, nil
	default:
		return APIEnvelope{Version: EnvelopeVersion, Data: v}, nil
	}
}
