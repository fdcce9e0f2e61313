// Package service holds the AI-assist features layered over the chat
// provider.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/storyloom/storyloom-server/internal/domain"
	domainerrors "github.com/storyloom/storyloom-server/internal/errors"
	"github.com/storyloom/storyloom-server/internal/llm"
)

// Mode selects the prompt and reply shape of a chat request.
type Mode string

// Chat modes.
const (
	ModeTagsAndDescription  Mode = "tagsAndDescription"
	ModeStoryContinuation   Mode = "storyContinuation"
	ModeContextualAssistant Mode = "contextualAssistant"
	ModeStoryCoach          Mode = "storyCoach"
)

// Modes lists every mode.
var Modes = []Mode{ModeTagsAndDescription, ModeStoryContinuation, ModeContextualAssistant, ModeStoryCoach}

// ParseMode maps a mode name to a Mode. Empty and unknown names fall back
// to ModeTagsAndDescription.
func ParseMode(s string) Mode {
	for _, m := range Modes {
		if string(m) == s {
			return m
		}
	}
	return ModeTagsAndDescription
}

// IsConversational reports whether m replies with free text rather than
// tags.
func (m Mode) IsConversational() bool {
	return m != ModeTagsAndDescription
}

// Text is a string that also accepts JSON numbers.
type Text string

// UnmarshalJSON implements json.Unmarshaler.
func (t *Text) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*t = Text(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("expected string or number: %w", err)
	}
	*t = Text(n.String())
	return nil
}

// BookContext describes the book a request is about. Every field is
// optional.
type BookContext struct {
	Title       string `json:"title,omitempty"`
	Genre       string `json:"genre,omitempty"`
	Description string `json:"description,omitempty"`
	Text        string `json:"text,omitempty"`
	Chapter     Text   `json:"chapter,omitempty"`
}

// ChatRequest is a validated chat request.
type ChatRequest struct {
	Mode        Mode
	Messages    []llm.Message
	BookContext BookContext
	UserProfile string
	ChatHistory string
	// Scope groups requests that supersede each other, such as one per
	// book and mode. Requests without a scope never supersede anything.
	Scope string
}

// TagsResult is the reply of ModeTagsAndDescription.
type TagsResult struct {
	Tags        domain.TagSet `json:"tags"`
	ImagePrompt *string       `json:"imagePrompt"`
	Description string        `json:"description"`
}

// ChatReply is the reply of the conversational modes.
type ChatReply struct {
	ImagePrompt *string `json:"imagePrompt"`
	Content     string  `json:"content"`
}

var imageHintRe = regexp.MustCompile(`(?i)image|illustration|scene|setting`)

// emptyReply stands in for a completion with no content.
const emptyReply = "[No AI response - possibly empty prompt or token limit.]"

// ChatService turns chat requests into prompts and shapes the replies.
type ChatService struct {
	client      llm.Client
	generations *Generations
	logger      *slog.Logger
	model       string
}

// NewChatService creates a chat service. model may be empty to use the
// client's default.
func NewChatService(client llm.Client, generations *Generations, model string, logger *slog.Logger) *ChatService {
	if generations == nil {
		generations = NewGenerations()
	}
	return &ChatService{client: client, generations: generations, model: model, logger: logger}
}

// Chat runs req and returns either a *TagsResult or a *ChatReply depending
// on the mode.
//
// Provider failures come back as errors.ErrUpstream. If a newer request
// with the same scope started while this one was in flight, the reply is
// discarded and errors.ErrSuperseded is returned.
func (s *ChatService) Chat(ctx context.Context, req ChatRequest) (any, error) {
	var gen Generation
	if req.Scope != "" {
		gen = s.generations.Begin(req.Scope)
		defer s.generations.Finish(gen)
	}

	resp, err := s.client.Chat(ctx, llm.Request{
		Model:       s.model,
		Messages:    buildMessages(req),
		Temperature: llm.DefaultTemperature,
	})
	if err != nil {
		s.logger.Error("chat request failed",
			slog.String("mode", string(req.Mode)),
			slog.String("provider", s.client.Name()),
			slog.String("error", err.Error()))
		return nil, err
	}

	if req.Scope != "" && !s.generations.Current(gen) {
		s.logger.Debug("dropping superseded chat reply", slog.String("scope", req.Scope))
		return nil, domainerrors.Superseded("Superseded by a newer request")
	}

	content := strings.TrimSpace(resp.Content)
	s.logger.Debug("chat reply",
		slog.String("mode", string(req.Mode)),
		slog.String("preview", preview(content, 150)))

	imagePrompt := s.imagePrompt(req.BookContext, content)
	if req.Mode.IsConversational() {
		if content == "" {
			content = emptyReply
		}
		return &ChatReply{Content: content, ImagePrompt: imagePrompt}, nil
	}

	result := parseTagsReply(content, s.logger)
	result.ImagePrompt = imagePrompt
	return result, nil
}

// imagePrompt suggests an illustration when the reply talks about imagery.
func (s *ChatService) imagePrompt(b BookContext, content string) *string {
	if !imageHintRe.MatchString(content) {
		return nil
	}
	p := fmt.Sprintf(`Illustration of a scene from "%s" — %s`,
		orDefault(b.Title, defaultTitle), orDefault(b.Description, "main scene"))
	return &p
}

// parseTagsReply decodes a tagsAndDescription reply. Anything that is not
// the expected JSON becomes a reply whose description is the raw content.
func parseTagsReply(content string, logger *slog.Logger) *TagsResult {
	result := decodeTagsReply(content, logger)
	if result.Tags == nil {
		result.Tags = domain.TagSet{}
	}
	result.Tags.Normalize()
	if strings.TrimSpace(result.Description) == "" {
		result.Description = noDescriptionReply
	}
	return result
}

func decodeTagsReply(content string, logger *slog.Logger) *TagsResult {
	fallback := &TagsResult{Description: content}

	raw, err := parseStructuredJSON(content)
	if err != nil {
		return fallback
	}
	if err := validateTagsJSON(raw); err != nil {
		logger.Warn("tags reply does not match schema", slog.String("error", err.Error()))
		return fallback
	}

	var parsed TagsResult
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return fallback
	}
	parsed.ImagePrompt = nil
	return &parsed
}

func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
