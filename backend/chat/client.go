// Package chat relays a student's question to the hosted language model and
// hands back its answer. Nothing is remembered between requests.
package chat

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"bakustack/backend/config"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.uber.org/zap"
)

const (
	SystemPrompt = "You are a Baku Stack mentor. Expert coder. Concise answers."
	MaxTokens    = 1024

	defaultModel = "claude-3-haiku-20240307"
	maxErrorBody = 512
)

var ErrNotConfigured = errors.New("chat assistant is not configured")

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Completer produces the model's reply for a conversation.
type Completer interface {
	Complete(ctx context.Context, messages []Message) (string, error)
}

// UpstreamError is a non-2xx answer from the model API.
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("anthropic http %d: %s", e.StatusCode, e.Body)
}

type Client struct {
	sdk        anthropic.Client
	configured bool
	model      string
	log        *zap.Logger
}

func NewClient(cfg config.ChatConfig, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	apiKey := strings.TrimSpace(cfg.APIKey)
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultModel
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	// Один запрос на вопрос: повторы отдаём клиенту
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithHTTPClient(&http.Client{Timeout: timeout}),
		option.WithMaxRetries(0),
	}
	if baseURL := strings.TrimSpace(cfg.BaseURL); baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	return &Client{
		sdk:        anthropic.NewClient(opts...),
		configured: apiKey != "",
		model:      model,
		log:        log.With(zap.String("component", "chat_client")),
	}
}

func (c *Client) Configured() bool { return c.configured }

// Complete sends one Messages API call. A reply that cannot be decoded is
// returned as empty text, not as an error.
func (c *Client) Complete(ctx context.Context, messages []Message) (string, error) {
	if !c.Configured() {
		return "", ErrNotConfigured
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: MaxTokens,
		System:    []anthropic.TextBlockParam{{Text: SystemPrompt}},
		Messages:  make([]anthropic.MessageParam, 0, len(messages)),
	}
	for _, m := range messages {
		block := anthropic.NewTextBlock(m.Content)
		if m.Role == "assistant" {
			params.Messages = append(params.Messages, anthropic.NewAssistantMessage(block))
			continue
		}
		params.Messages = append(params.Messages, anthropic.NewUserMessage(block))
	}

	reply, err := c.sdk.Messages.New(ctx, params)
	if err != nil {
		return "", c.classify(ctx, err)
	}

	for _, block := range reply.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}
	c.log.Warn("model response has no text block", zap.Int("blocks", len(reply.Content)))
	return "", nil
}

// classify separates API refusals and transport failures from a body the
// SDK could not decode. Only the last one is swallowed.
func (c *Client) classify(ctx context.Context, err error) error {
	var apiErr *anthropic.Error
	var urlErr *url.Error
	switch {
	case errors.As(err, &apiErr):
		body := apiErr.Error()
		if len(body) > maxErrorBody {
			body = body[:maxErrorBody]
		}
		return &UpstreamError{StatusCode: apiErr.StatusCode, Body: body}
	case ctx.Err() != nil:
		return ctx.Err()
	case errors.As(err, &urlErr):
		return err
	}
	c.log.Warn("malformed model response, replying with empty text", zap.Error(err))
	return nil
}
