package providers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storyloom/storyloom-server/internal/config"
	"github.com/storyloom/storyloom-server/internal/logger"
	"github.com/storyloom/storyloom-server/internal/store"
)

func TestOpenBackend(t *testing.T) {
	tests := []struct {
		backend string
		kind    store.Kind
	}{
		{config.BackendMemory, store.KindMemory},
		{config.BackendBadger, store.KindDocument},
		{config.BackendSQLite, store.KindIndexed},
	}

	for _, tt := range tests {
		t.Run(tt.backend, func(t *testing.T) {
			backend, err := OpenBackend(config.StorageConfig{
				Backend:  tt.backend,
				DataPath: t.TempDir(),
			}, logger.Discard())
			require.NoError(t, err)
			t.Cleanup(func() { _ = backend.Close() })

			assert.Equal(t, tt.kind, backend.Kind())
		})
	}
}

func TestOpenBackend_Unknown(t *testing.T) {
	_, err := OpenBackend(config.StorageConfig{Backend: "floppy"}, logger.Discard())
	assert.ErrorContains(t, err, "floppy")
}
