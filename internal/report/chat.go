package report

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// DefaultChatModel is the model requested from Ollama when none is configured.
const DefaultChatModel = "llama3.2:1b"

// ChatOptions configures a chat-completions reporter.
type ChatOptions struct {
	BaseURL     string
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float32
	Timeout     time.Duration
}

// ChatReporter asks an OpenAI-compatible chat endpoint (Ollama, OpenAI,
// llama.cpp server, vLLM) for the report.
type ChatReporter struct {
	client *openai.Client
	opts   ChatOptions
}

// NewChatReporter builds a reporter from opts.
func NewChatReporter(opts ChatOptions) *ChatReporter {
	if opts.Model == "" {
		opts.Model = DefaultChatModel
	}
	cfg := openai.DefaultConfig(opts.APIKey)
	if opts.BaseURL != "" {
		cfg.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	}
	cfg.HTTPClient = &http.Client{Timeout: opts.Timeout}
	return &ChatReporter{client: openai.NewClientWithConfig(cfg), opts: opts}
}

func (c *ChatReporter) Generate(ctx context.Context, req Request) (string, error) {
	msgs := Messages(req)
	chat := make([]openai.ChatCompletionMessage, 0, len(msgs))
	for _, m := range msgs {
		role := openai.ChatMessageRoleUser
		if m.Role == "system" {
			role = openai.ChatMessageRoleSystem
		}
		chat = append(chat, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.opts.Model,
		Messages:    chat,
		MaxTokens:   c.opts.MaxTokens,
		Temperature: c.opts.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion: no choices returned")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
