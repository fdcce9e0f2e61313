package providers

import (
	"github.com/samber/do/v2"

	"github.com/storyloom/storyloom-server/internal/config"
	"github.com/storyloom/storyloom-server/internal/history"
	"github.com/storyloom/storyloom-server/internal/logger"
	"github.com/storyloom/storyloom-server/internal/ratelimit"
)

// HistoryHandle wraps the undo histories with their sweeper.
type HistoryHandle struct {
	*history.Sessions
}

// Shutdown implements do.Shutdownable.
func (h *HistoryHandle) Shutdown() error {
	h.Stop()
	return nil
}

// ProvideHistory provides per-session undo histories and starts sweeping
// idle ones.
func ProvideHistory(i do.Injector) (*HistoryHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	sessions := history.NewSessions(cfg.Drawings.HistoryLimit, cfg.Drawings.HistoryTTL,
		history.WithMaxEntries(cfg.Drawings.HistoryMaxEntries))
	sessions.Start(sweepInterval)

	log.Info("Undo history started",
		"limit", cfg.Drawings.HistoryLimit,
		"ttl", cfg.Drawings.HistoryTTL,
		"max_entries", cfg.Drawings.HistoryMaxEntries,
	)

	return &HistoryHandle{Sessions: sessions}, nil
}

// ChatLimiterHandle wraps the per-client chat rate limiter.
type ChatLimiterHandle struct {
	*ratelimit.KeyedRateLimiter
}

// Shutdown implements do.Shutdownable.
func (h *ChatLimiterHandle) Shutdown() error {
	h.Stop()
	return nil
}

// ProvideChatLimiter provides the chat proxy rate limiter.
func ProvideChatLimiter(i do.Injector) (*ChatLimiterHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)

	limiter := ratelimit.New(cfg.AI.RateLimit, cfg.AI.RateBurst)
	limiter.Start(sweepInterval)

	return &ChatLimiterHandle{KeyedRateLimiter: limiter}, nil
}
