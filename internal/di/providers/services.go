package providers

import (
	"github.com/samber/do/v2"

	"github.com/storyloom/storyloom-server/internal/color"
	"github.com/storyloom/storyloom-server/internal/config"
	"github.com/storyloom/storyloom-server/internal/id"
	"github.com/storyloom/storyloom-server/internal/llm"
	"github.com/storyloom/storyloom-server/internal/logger"
	"github.com/storyloom/storyloom-server/internal/repository"
	"github.com/storyloom/storyloom-server/internal/service"
)

// ProvideIDSequence provides the shared record id generator.
func ProvideIDSequence(i do.Injector) (*id.Sequence, error) {
	return id.NewSequence(), nil
}

// ProvideSync provides the collection write policy over the configured store.
func ProvideSync(i do.Injector) (*repository.Sync, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	policy, err := repository.ParseSyncPolicy(cfg.Storage.SyncPolicy)
	if err != nil {
		return nil, err
	}

	sync := repository.NewSync(storeHandle.Backend, policy, sseHandle.Manager)
	log.Info("Sync policy selected",
		"policy", policy,
		"per_record", sync.PerRecord(),
	)
	return sync, nil
}

// ProvideBooks provides the book repository.
func ProvideBooks(i do.Injector) (*repository.Books, error) {
	sync := do.MustInvoke[*repository.Sync](i)
	ids := do.MustInvoke[*id.Sequence](i)
	log := do.MustInvoke[*logger.Logger](i)

	return repository.NewBooks(sync, ids, log.Component("books")), nil
}

// ProvideDrawings provides the drawing snapshot store.
func ProvideDrawings(i do.Injector) (*repository.Drawings, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)
	historyHandle := do.MustInvoke[*HistoryHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return repository.NewDrawings(storeHandle.Backend, sseHandle.Manager, color.NewPalette(nil), log.Component("drawings"),
		repository.WithHistory(historyHandle.Sessions)), nil
}

// ProvideSlides provides the slide repository. Deleting a slide clears its
// drawings unless cascade delete is turned off.
func ProvideSlides(i do.Injector) (*repository.Slides, error) {
	cfg := do.MustInvoke[*config.Config](i)
	sync := do.MustInvoke[*repository.Sync](i)
	ids := do.MustInvoke[*id.Sequence](i)
	log := do.MustInvoke[*logger.Logger](i)

	var opts []repository.SlidesOption
	if cfg.Drawings.CascadeDelete {
		opts = append(opts, repository.WithDrawingInvalidator(do.MustInvoke[*repository.Drawings](i)))
	}

	return repository.NewSlides(sync, ids, log.Component("slides"), opts...), nil
}

// ChatServiceHandle holds the chat service, or nil when no provider is
// configured.
type ChatServiceHandle struct {
	*service.ChatService
}

// ProvideChatService provides the chat service for the configured provider.
func ProvideChatService(i do.Injector) (*ChatServiceHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	var client llm.Client
	switch cfg.AI.Provider {
	case config.ProviderOpenAI:
		client = llm.NewOpenAIClient(llm.OpenAIConfig{
			APIKey:  cfg.AI.APIKey,
			Model:   cfg.AI.Model,
			BaseURL: cfg.AI.BaseURL,
			Timeout: cfg.AI.Timeout,
		})
	case config.ProviderMock:
		client = llm.NewMockClient()
	default:
		log.Warn("Chat proxy disabled; /api/chat will answer AI unavailable")
		return &ChatServiceHandle{}, nil
	}

	log.Info("Chat provider ready", "provider", client.Name(), "model", cfg.AI.Model)
	chat := service.NewChatService(client, service.NewGenerations(), cfg.AI.Model, log.Component("chat"))
	return &ChatServiceHandle{ChatService: chat}, nil
}
