package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCode_HTTPStatus(t *testing.T) {
	tests := []struct {
		code Code
		want int
	}{
		{CodeNotFound, http.StatusNotFound},
		{CodeAlreadyExists, http.StatusConflict},
		{CodeSuperseded, http.StatusConflict},
		{CodeValidation, http.StatusBadRequest},
		{CodeRateLimited, http.StatusTooManyRequests},
		{CodeUpstream, http.StatusBadGateway},
		{CodeUnavailable, http.StatusServiceUnavailable},
		{CodeInternal, http.StatusInternalServerError},
		{Code("SOMETHING_ELSE"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.code.HTTPStatus())
		})
	}
}

func TestError_IsMatchesByCode(t *testing.T) {
	err := NotFoundf("book %d not found", 42)

	assert.True(t, Is(err, ErrNotFound))
	assert.False(t, Is(err, ErrUpstream))
	assert.Equal(t, "book 42 not found", err.Error())
}

func TestError_WrapKeepsCause(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := Upstream("chat completion failed").WithCause(cause)

	assert.True(t, Is(err, ErrUpstream))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "chat completion failed: connection refused", err.Error())
}

func TestError_WithDetails(t *testing.T) {
	details := map[string]string{"title": "too long"}
	err := ErrValidation.WithDetails(details)

	assert.Equal(t, details, err.Details)
	assert.Nil(t, ErrValidation.Details, "sentinel must not be mutated")
}
