package api

import (
	"github.com/storyloom/storyloom-server/internal/history"
	"github.com/storyloom/storyloom-server/internal/repository"
	"github.com/storyloom/storyloom-server/internal/service"
)

// Services groups the repositories and services used by the API server.
type Services struct {
	Books    *repository.Books
	Slides   *repository.Slides
	Drawings *repository.Drawings
	History  *history.Sessions
	Chat     *service.ChatService // nil when no AI provider is configured
}
