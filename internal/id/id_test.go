package id

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sseClientID = regexp.MustCompile(`^sse-[A-Za-z0-9_-]{21}$`)

func TestGenerate_SSEClientFormat(t *testing.T) {
	id, err := Generate("sse")
	require.NoError(t, err)

	assert.Regexp(t, sseClientID, id)
}

func TestGenerate_Unique(t *testing.T) {
	seen := make(map[string]struct{}, 500)
	for range 500 {
		id, err := Generate("sse")
		require.NoError(t, err)

		_, dup := seen[id]
		require.False(t, dup, "duplicate id %s", id)
		seen[id] = struct{}{}
	}
}
