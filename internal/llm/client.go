package llm

import (
	"context"
	"fmt"

	"ocreceipt/pkg/config"

	"go.uber.org/zap"
)

const (
	RoleSystem = "system"
	RoleUser   = "user"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ResponseFormat struct {
	Type string `json:"type"`
}

// ChatRequest is the vendor-neutral shape of a completion call. Providers
// translate it into their own wire format.
type ChatRequest struct {
	Model          string          `json:"model"`
	Messages       []Message       `json:"messages"`
	Temperature    float64         `json:"temperature"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *ResponseFormat `json:"response_format,omitempty"`
}

// Client is the completion capability the structuring engine depends on.
type Client interface {
	// Complete runs a single chat completion and returns the assistant
	// message content.
	Complete(ctx context.Context, req ChatRequest) (string, error)
	Close() error
}

// New builds the provider selected by the configuration.
func New(ctx context.Context, cfg *config.LLMConfig, logger *zap.Logger) (Client, error) {
	switch cfg.Provider {
	case "groq":
		return NewGroq(&cfg.Groq, cfg.Timeout, logger)
	case "gigachat":
		return NewGigaChat(ctx, &cfg.GigaChat, logger)
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", cfg.Provider)
	}
}
