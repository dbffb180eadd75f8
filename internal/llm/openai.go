package llm

import (
	"context"
	"errors"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// Message is a minimal chat message.  Role must be one of "system", "user"
// or "assistant".
type Message struct {
	Role    string
	Content string
}

// Request describes a single completion.  A zero Model means the client's
// default model.
type Request struct {
	Model     string
	Messages  []Message
	MaxTokens int
}

// Client defines what the report generator and doctor suggester need from
// a language model.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// ErrNoChoices is returned when the API answers without any completion.
var ErrNoChoices = errors.New("llm: completion returned no choices")

// OpenAIClient calls the OpenAI chat completion API.
type OpenAIClient struct {
	client       *openai.Client
	defaultModel string
}

// NewOpenAIClient constructs an OpenAI-backed client.  baseURL may be empty
// to use the public API; it is mostly set for tests and compatible gateways.
func NewOpenAIClient(apiKey, baseURL, defaultModel string) *OpenAIClient {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	if defaultModel == "" {
		defaultModel = openai.GPT3Dot5Turbo
	}
	return &OpenAIClient{
		client:       openai.NewClientWithConfig(cfg),
		defaultModel: defaultModel,
	}
}

// Complete sends the messages to the chat completion API and returns the
// content of the first choice.
func (c *OpenAIClient) Complete(ctx context.Context, req Request) (string, error) {
	if c.client == nil {
		return "", errors.New("openai client not initialized")
	}
	model := req.Model
	if model == "" {
		model = c.defaultModel
	}

	oaMsgs := make([]openai.ChatCompletionMessage, 0, len(req.Messages))
	for _, m := range req.Messages {
		role := m.Role
		if role != openai.ChatMessageRoleSystem && role != openai.ChatMessageRoleUser && role != openai.ChatMessageRoleAssistant {
			// coerce anything unknown to user
			role = openai.ChatMessageRoleUser
		}
		oaMsgs = append(oaMsgs, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     model,
		Messages:  oaMsgs,
		MaxTokens: req.MaxTokens,
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", ErrNoChoices
	}
	return resp.Choices[0].Message.Content, nil
}
