// Package llm talks to chat-completion providers.
package llm

import "context"

// Role is the author of a chat message.
type Role string

// Message roles accepted by providers.
const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one chat turn.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Request is a chat-completion request. Zero values use the client's
// defaults.
type Request struct {
	Model       string
	Messages    []Message
	Temperature float64
	MaxTokens   int
}

// Response is the first choice of a completion.
type Response struct {
	Content          string
	Model            string
	PromptTokens     int64
	CompletionTokens int64
}

// Client is a chat-completion provider.
//
// Failures talking to the provider are returned as errors.ErrUpstream so
// callers can tell them from a reply that was legitimately empty.
type Client interface {
	Name() string
	Chat(ctx context.Context, req Request) (Response, error)
}
