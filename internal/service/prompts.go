package service

import (
	"fmt"
	"strings"

	"github.com/storyloom/storyloom-server/internal/domain"
	"github.com/storyloom/storyloom-server/internal/llm"
)

// SystemPrompt frames every chat request.
const SystemPrompt = "You are a creative assistant for storytellers."

const (
	defaultTitle       = "Untitled"
	defaultGenre       = "Fiction"
	defaultStoryText   = "Once upon a time..."
	noDescription      = "No description provided."
	noDescriptionReply = "No description generated."
)

func (b BookContext) title() string {
	return orDefault(b.Title, defaultTitle)
}

func (b BookContext) genre() string {
	return orDefault(b.Genre, defaultGenre)
}

func (b BookContext) description() string {
	return orDefault(b.Description, noDescription)
}

func orDefault(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}

func buildPrompt(req ChatRequest) string {
	b := req.BookContext
	switch req.Mode {
	case ModeStoryContinuation:
		return fmt.Sprintf(`Continue the story creatively while keeping tone and consistency.

Book: %q
Genre: %q
Chapter: %s
Story so far:
%s
`, b.title(), b.genre(), b.Chapter, orDefault(strings.TrimSpace(b.Text), defaultStoryText))

	case ModeContextualAssistant:
		return fmt.Sprintf(`You are a warm, reflective writing assistant.
Profile: %s
Recent chat: %s

Book Info:
%q, %s
%s

Task:
- Respond with thoughtful writing advice.
- Ask meaningful questions.
- Occasionally include vivid imagery or ideas.
`, req.UserProfile, req.ChatHistory, b.title(), b.genre(), b.description())

	case ModeStoryCoach:
		var convo strings.Builder
		for i, m := range req.Messages {
			if i > 0 {
				convo.WriteByte('\n')
			}
			fmt.Fprintf(&convo, "%s: %s", m.Role, m.Content)
		}
		return fmt.Sprintf(`You are an imaginative story coach helping a writer refine their ideas.

Book: %q (%s)
Description: %q

Conversation so far:
%s

Respond warmly and creatively to the latest message.
Include optional visual inspiration ideas.
`, b.title(), b.genre(), b.description(), convo.String())

	default:
		keys := make([]string, len(domain.TagCategories))
		for i, c := range domain.TagCategories {
			keys[i] = fmt.Sprintf("    %q: []", c)
		}
		return fmt.Sprintf(`Generate a JSON response with a 2-3 sentence creative summary and categorized tags.

Book: %q
Genre: %q
Description: %q

Format:
{
  "description": "...",
  "tags": {
%s
  }
}
`, b.title(), b.genre(), b.description(), strings.Join(keys, ",\n"))
	}
}

func buildMessages(req ChatRequest) []llm.Message {
	return []llm.Message{
		{Role: llm.RoleSystem, Content: SystemPrompt},
		{Role: llm.RoleUser, Content: buildPrompt(req)},
	}
}
