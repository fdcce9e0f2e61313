package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	domainerrors "github.com/storyloom/storyloom-server/internal/errors"
)

const (
	// OpenAIName identifies the OpenAI provider.
	OpenAIName = "openai"

	// DefaultModel is used when neither the config nor the request name one.
	DefaultModel = "gpt-4o-mini"

	// DefaultTemperature favours creative replies.
	DefaultTemperature = 0.8
)

// OpenAIConfig holds configuration for the OpenAI client.
type OpenAIConfig struct {
	APIKey      string
	Model       string
	BaseURL     string       // Optional (tests, compatible gateways)
	HTTPClient  *http.Client // Optional (tests)
	Temperature float64
	MaxRetries  int
	Timeout     time.Duration
}

// OpenAIClient implements Client using the official OpenAI SDK.
type OpenAIClient struct {
	client      openai.Client
	model       string
	temperature float64
}

// NewOpenAIClient creates a new OpenAI chat client.
func NewOpenAIClient(cfg OpenAIConfig) *OpenAIClient {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Temperature <= 0 {
		cfg.Temperature = DefaultTemperature
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &OpenAIClient{
		client:      openai.NewClient(opts...),
		model:       cfg.Model,
		temperature: cfg.Temperature,
	}
}

// Name returns the provider identifier.
func (c *OpenAIClient) Name() string {
	return OpenAIName
}

// Model returns the configured default model.
func (c *OpenAIClient) Model() string {
	return c.model
}

// Chat sends a chat-completion request.
func (c *OpenAIClient) Chat(ctx context.Context, req Request) (Response, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}
	temperature := req.Temperature
	if temperature <= 0 {
		temperature = c.temperature
	}

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages))
	for _, m := range req.Messages {
		switch m.Role {
		case RoleSystem:
			messages = append(messages, openai.SystemMessage(m.Content))
		case RoleAssistant:
			messages = append(messages, openai.AssistantMessage(m.Content))
		default:
			messages = append(messages, openai.UserMessage(m.Content))
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(model),
		Messages:    messages,
		Temperature: openai.Float(temperature),
	}
	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(req.MaxTokens))
	}

	completion, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return Response{}, mapOpenAIError(err)
	}

	resp := Response{
		Model:            completion.Model,
		PromptTokens:     completion.Usage.PromptTokens,
		CompletionTokens: completion.Usage.CompletionTokens,
	}
	if len(completion.Choices) > 0 {
		resp.Content = completion.Choices[0].Message.Content
	}
	return resp, nil
}

func mapOpenAIError(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}

	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		msg := fmt.Sprintf("OpenAI error (status %d)", apiErr.StatusCode)
		if apiErr.Message != "" {
			msg = fmt.Sprintf("OpenAI error (status %d): %s", apiErr.StatusCode, apiErr.Message)
		}
		return domainerrors.Upstream(msg).WithCause(err)
	}
	return domainerrors.Upstream("OpenAI request failed").WithCause(err)
}
