package providers

import (
	"context"
	"errors"
	"net/http"

	"github.com/samber/do/v2"

	"github.com/storyloom/storyloom-server/internal/api"
	"github.com/storyloom/storyloom-server/internal/config"
	"github.com/storyloom/storyloom-server/internal/logger"
	"github.com/storyloom/storyloom-server/internal/repository"
)

// HTTPServerHandle wraps http.Server with Shutdownable.
type HTTPServerHandle struct {
	*http.Server
}

// Shutdown implements do.Shutdownable.
func (h *HTTPServerHandle) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Server.Shutdown(ctx)
}

// ProvideHTTPServer provides the HTTP server and starts listening.
func ProvideHTTPServer(i do.Injector) (*HTTPServerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	historyHandle := do.MustInvoke[*HistoryHandle](i)
	chatHandle := do.MustInvoke[*ChatServiceHandle](i)
	limiterHandle := do.MustInvoke[*ChatLimiterHandle](i)

	services := &api.Services{
		Books:    do.MustInvoke[*repository.Books](i),
		Slides:   do.MustInvoke[*repository.Slides](i),
		Drawings: do.MustInvoke[*repository.Drawings](i),
		History:  historyHandle.Sessions,
		Chat:     chatHandle.ChatService,
	}

	handler := api.NewServer(cfg, storeHandle.Backend, services, sseHandle.Manager, limiterHandle.KeyedRateLimiter, log.Component("http"))

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start in background
	go func() {
		log.Info("HTTP server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server error", "error", err)
		}
	}()

	log.Info("Server running", "addr", srv.Addr, "public_url", cfg.Server.PublicBaseURL)

	return &HTTPServerHandle{Server: srv}, nil
}
