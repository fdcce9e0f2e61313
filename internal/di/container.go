// Package di provides dependency injection configuration for the Storyloom server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/storyloom/storyloom-server/internal/config"
	"github.com/storyloom/storyloom-server/internal/di/providers"
	"github.com/storyloom/storyloom-server/internal/logger"
	"github.com/storyloom/storyloom-server/internal/repository"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideSlogLogger)

	// Storage layer
	do.Provide(injector, providers.ProvideSSEManager)
	do.Provide(injector, providers.ProvideStore)
	do.Provide(injector, providers.ProvideIDSequence)
	do.Provide(injector, providers.ProvideSync)

	// Repositories
	do.Provide(injector, providers.ProvideBooks)
	do.Provide(injector, providers.ProvideDrawings)
	do.Provide(injector, providers.ProvideSlides)

	// AI and drawing support
	do.Provide(injector, providers.ProvideChatService)
	do.Provide(injector, providers.ProvideHistory)
	do.Provide(injector, providers.ProvideChatLimiter)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// Bootstrap initializes all services and returns handles for lifecycle management.
// This triggers lazy initialization of all core services.
func Bootstrap(injector *do.RootScope) error {
	if _, err := do.Invoke[*config.Config](injector); err != nil {
		return err
	}
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[*providers.SSEManagerHandle](injector)
	if _, err := do.Invoke[*providers.StoreHandle](injector); err != nil {
		return err
	}
	if _, err := do.Invoke[*repository.Sync](injector); err != nil {
		return err
	}
	_ = do.MustInvoke[*repository.Books](injector)
	_ = do.MustInvoke[*repository.Drawings](injector)
	_ = do.MustInvoke[*repository.Slides](injector)
	_ = do.MustInvoke[*providers.ChatServiceHandle](injector)
	_ = do.MustInvoke[*providers.HistoryHandle](injector)
	_ = do.MustInvoke[*providers.ChatLimiterHandle](injector)

	// Server
	_ = do.MustInvoke[*providers.HTTPServerHandle](injector)

	return nil
}
