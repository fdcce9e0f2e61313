package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/storyloom/storyloom-server/internal/errors"
	"github.com/storyloom/storyloom-server/internal/store"
)

func TestEnvelopeTransformer_AlwaysIncludesVersion(t *testing.T) {
	tests := []struct {
		name   string
		status string
		input  any
	}{
		{name: "success response", status: "200", input: map[string]string{"key": "value"}},
		{name: "created response", status: "201", input: map[string]string{"id": "123"}},
		{name: "no content response", status: "204", input: nil},
		{name: "bad request error", status: "400", input: errors.New("invalid input")},
		{
			name:   "conflict error with details",
			status: "409",
			input:  &APIError{Code: "CONFLICT", Message: "book already exists", Details: map[string]string{"id": "7"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := EnvelopeTransformer(nil, tt.status, tt.input)
			require.NoError(t, err)

			raw, err := json.Marshal(result)
			require.NoError(t, err)

			var envelope map[string]any
			require.NoError(t, json.Unmarshal(raw, &envelope))
			assert.Equal(t, float64(EnvelopeVersion), envelope["v"])
		})
	}
}

func TestEnvelopeTransformer_SuccessResponse(t *testing.T) {
	data := map[string]string{"title": "The Lantern"}

	result, err := EnvelopeTransformer(nil, "200", data)
	require.NoError(t, err)

	envelope, ok := result.(APIEnvelope)
	require.True(t, ok)
	assert.True(t, envelope.Success)
	assert.Equal(t, data, envelope.Data)
	assert.Empty(t, envelope.Error)
}

func TestEnvelopeTransformer_PlainError(t *testing.T) {
	result, err := EnvelopeTransformer(nil, "500", errors.New("boom"))
	require.NoError(t, err)

	envelope, ok := result.(APIEnvelope)
	require.True(t, ok)
	assert.False(t, envelope.Success)
	assert.Nil(t, envelope.Data)
	assert.Equal(t, "boom", envelope.Error)
}

func TestEnvelopeTransformer_CodedError(t *testing.T) {
	apiErr := &APIError{Code: "VALIDATION", Message: "validation failed", Details: []string{"title"}}

	result, err := EnvelopeTransformer(nil, "400", apiErr)
	require.NoError(t, err)

	envelope, ok := result.(APIErrorEnvelope)
	require.True(t, ok)
	assert.False(t, envelope.Success)
	assert.Equal(t, "VALIDATION", envelope.Code)
	assert.Equal(t, "validation failed", envelope.Message)
	assert.Equal(t, "validation failed", envelope.Error)
	assert.Equal(t, []string{"title"}, envelope.Details)
}

func TestToAPIError(t *testing.T) {
	t.Run("domain error keeps its status", func(t *testing.T) {
		apiErr := toAPIError(domainerrors.NotFoundf("book %d not found", 3))
		require.NotNil(t, apiErr)
		assert.Equal(t, http.StatusNotFound, apiErr.GetStatus())
		assert.Equal(t, string(domainerrors.CodeNotFound), apiErr.Code)
		assert.Equal(t, "book 3 not found", apiErr.Message)
	})

	t.Run("store error maps through its HTTP code", func(t *testing.T) {
		apiErr := toAPIError(store.ErrUnavailable.WithMessage("redis down"))
		require.NotNil(t, apiErr)
		assert.Equal(t, store.ErrUnavailable.HTTPCode(), apiErr.GetStatus())
		assert.Equal(t, "redis down", apiErr.Message)
	})

	t.Run("other errors are left to huma", func(t *testing.T) {
		assert.Nil(t, toAPIError(errors.New("plain")))
	})
}

func TestIsStorageFailure(t *testing.T) {
	assert.True(t, isStorageFailure(store.ErrUnavailable))
	assert.False(t, isStorageFailure(domainerrors.Validation("bad")))
	assert.False(t, isStorageFailure(errors.New("plain")))
}

func TestHumaErrors_AreEnveloped(t *testing.T) {
	ts := setupTestServer(t)

	resp := ts.api.Get("/api/v1/books/999")
	requireStatus(t, http.StatusNotFound, resp)

	envelope := decodeEnvelope[any](t, resp)
	assert.Equal(t, EnvelopeVersion, envelope.Version)
	assert.False(t, envelope.Success)
	assert.Equal(t, string(domainerrors.CodeNotFound), envelope.Code)
	assert.NotEmpty(t, envelope.Message)
}
