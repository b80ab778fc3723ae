package chat

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"go.uber.org/zap"
)

var ErrInvalidMessage = errors.New("message must be a non-empty string")

// Request is the body of POST /api/chat. History is the caller's own record
// of earlier turns.
type Request struct {
	Message string    `json:"message"`
	History []Message `json:"history,omitempty"`
}

// ParseRequest decodes and validates a chat body. A missing, empty or
// non-string message is rejected.
func ParseRequest(body []byte) (Request, error) {
	var wire struct {
		Message json.RawMessage `json:"message"`
		History []Message       `json:"history"`
	}
	if err := json.Unmarshal(body, &wire); err != nil {
		return Request{}, ErrInvalidMessage
	}

	var message string
	if len(wire.Message) == 0 || json.Unmarshal(wire.Message, &message) != nil {
		return Request{}, ErrInvalidMessage
	}
	if strings.TrimSpace(message) == "" {
		return Request{}, ErrInvalidMessage
	}
	return Request{Message: message, History: wire.History}, nil
}

type Assistant struct {
	completer  Completer
	configured func() bool
	log        *zap.Logger
}

// NewAssistant wires the proxy to c. The credential check happens per
// request so a missing key only breaks this endpoint.
func NewAssistant(c *Client, log *zap.Logger) *Assistant {
	return newAssistant(c, c.Configured, log)
}

func newAssistant(c Completer, configured func() bool, log *zap.Logger) *Assistant {
	if log == nil {
		log = zap.NewNop()
	}
	return &Assistant{completer: c, configured: configured, log: log.With(zap.String("component", "chat"))}
}

// Reply validates req, then forwards history plus the new message.
func (a *Assistant) Reply(ctx context.Context, req Request) (string, error) {
	if strings.TrimSpace(req.Message) == "" {
		return "", ErrInvalidMessage
	}
	if !a.configured() {
		a.log.Error("ANTHROPIC_API_KEY is not set")
		return "", ErrNotConfigured
	}

	messages := make([]Message, 0, len(req.History)+1)
	for _, m := range req.History {
		if (m.Role != "user" && m.Role != "assistant") || strings.TrimSpace(m.Content) == "" {
			continue
		}
		// The conversation has to open with a user turn.
		if len(messages) == 0 && m.Role != "user" {
			continue
		}
		messages = append(messages, m)
	}
	messages = append(messages, Message{Role: "user", Content: req.Message})

	text, err := a.completer.Complete(ctx, messages)
	if err != nil {
		a.log.Warn("model request failed", zap.Error(err))
		return "", err
	}
	return text, nil
}
