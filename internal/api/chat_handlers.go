package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	domainerrors "github.com/storyloom/storyloom-server/internal/errors"
	"github.com/storyloom/storyloom-server/internal/http/response"
	"github.com/storyloom/storyloom-server/internal/service"
)

// Chat proxy error messages. Clients match on these strings.
const (
	msgInvalidPayload = "Invalid payload: messages must be an array"
	msgUpstream       = "Upstream AI error"
	msgUnavailable    = "AI unavailable"
)

// maxChatBodyBytes bounds a chat request; book text is sent inline.
const maxChatBodyBytes = 4 << 20

// chatPayload is the wire shape of POST /api/chat.
type chatPayload struct {
	Messages    json.RawMessage     `json:"messages"`
	BookContext service.BookContext `json:"bookContext"`
	Mode        string              `json:"mode"`
	UserProfile string              `json:"userProfile"`
	ChatHistory string              `json:"chatHistory"`
	Scope       string              `json:"scope"`
}

// handleChat proxies one chat request to the AI provider. Replies are bare
// JSON: {description, tags, imagePrompt} for tagsAndDescription and
// {content, imagePrompt} otherwise.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var payload chatPayload
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxChatBodyBytes)).Decode(&payload); err != nil {
		response.BadRequest(w, msgInvalidPayload, s.logger)
		return
	}

	messages, err := service.DecodeMessages(payload.Messages)
	if err != nil {
		response.BadRequest(w, msgInvalidPayload, s.logger)
		return
	}

	if s.services == nil || s.services.Chat == nil {
		s.logger.Warn("chat request with no AI provider configured")
		response.InternalError(w, msgUnavailable, s.logger)
		return
	}

	reply, err := s.services.Chat.Chat(r.Context(), service.ChatRequest{
		Mode:        service.ParseMode(payload.Mode),
		Messages:    messages,
		BookContext: payload.BookContext,
		UserProfile: payload.UserProfile,
		ChatHistory: payload.ChatHistory,
		Scope:       payload.Scope,
	})
	if err != nil {
		s.writeChatError(w, err)
		return
	}

	response.Success(w, reply, s.logger)
}

func (s *Server) writeChatError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domainerrors.ErrSuperseded):
		response.HandleError(w, err, s.logger)
	case errors.Is(err, domainerrors.ErrUpstream):
		response.BadGateway(w, msgUpstream, s.logger)
	default:
		s.logger.Error("chat failed", slog.String("error", err.Error()))
		response.InternalError(w, msgUnavailable, s.logger)
	}
}
