package providers

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/samber/do/v2"

	"github.com/storyloom/storyloom-server/internal/config"
	"github.com/storyloom/storyloom-server/internal/logger"
	"github.com/storyloom/storyloom-server/internal/sse"
	"github.com/storyloom/storyloom-server/internal/store"
	"github.com/storyloom/storyloom-server/internal/store/redis"
	"github.com/storyloom/storyloom-server/internal/store/sqlite"
)

// SSEManagerHandle wraps the SSE manager with its context for lifecycle management.
type SSEManagerHandle struct {
	*sse.Manager
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *SSEManagerHandle) Shutdown() error {
	h.cancel()
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Manager.Shutdown(ctx)
}

// ProvideSSEManager provides the server-sent events manager.
func ProvideSSEManager(i do.Injector) (*SSEManagerHandle, error) {
	log := do.MustInvoke[*logger.Logger](i)

	manager := sse.NewManager(log.Logger)

	// Start in background
	ctx, cancel := context.WithCancel(context.Background())
	go manager.Start(ctx)

	log.Info("SSE manager started")

	return &SSEManagerHandle{
		Manager: manager,
		cancel:  cancel,
	}, nil
}

// StoreHandle wraps the configured backend with shutdown capability.
type StoreHandle struct {
	store.Backend
}

// Shutdown implements do.Shutdownable.
func (h *StoreHandle) Shutdown() error {
	return h.Close()
}

// ProvideStore opens the configured record store.
func ProvideStore(i do.Injector) (*StoreHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	backend, err := OpenBackend(cfg.Storage, log)
	if err != nil {
		return nil, err
	}

	log.Info("Storage initialized",
		"backend", cfg.Storage.Backend,
		"kind", backend.Kind(),
		"data_path", cfg.Storage.DataPath,
	)

	return &StoreHandle{Backend: backend}, nil
}

// OpenBackend opens the backend named in cfg. It is shared with the CLI.
func OpenBackend(cfg config.StorageConfig, log *logger.Logger) (store.Backend, error) {
	switch cfg.Backend {
	case config.BackendMemory:
		log.Warn("Using the in-memory store; nothing survives a restart")
		return store.NewMemory(), nil

	case config.BackendBadger:
		return store.Open(filepath.Join(cfg.DataPath, "badger"), log.Component("badger"))

	case config.BackendSQLite:
		return sqlite.Open(filepath.Join(cfg.DataPath, "storyloom.db"), log.Component("sqlite"))

	case config.BackendRedis:
		ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
		defer cancel()
		return redis.Open(ctx, cfg.RedisURL, cfg.RedisPrefix, log.Component("redis"))

	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
