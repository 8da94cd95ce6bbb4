package llm

import (
	"context"
	"fmt"

	"ocreceipt/pkg/config"

	"github.com/Role1776/gigago"
	"go.uber.org/zap"
)

// GigaChat adapts the gigago client to the completion boundary. Useful when
// the service runs against Sber infrastructure instead of an OpenAI-shaped
// endpoint.
type GigaChat struct {
	client    *gigago.Client
	modelName string
	logger    *zap.Logger
}

func NewGigaChat(ctx context.Context, cfg *config.GigaChatConfig, logger *zap.Logger) (*GigaChat, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("GIGACHAT_API_KEY is not set")
	}

	opts := []gigago.Option{
		gigago.WithCustomScope(cfg.Scope),
	}
	if cfg.InsecureSkipVerify {
		opts = append(opts, gigago.WithCustomInsecureSkipVerify(true))
		logger.Warn("GigaChat TLS certificate verification is disabled")
	}

	client, err := gigago.NewClient(ctx, cfg.APIKey, opts...)
	if err != nil {
		return nil, fmt.Errorf("create GigaChat client: %w", err)
	}

	return &GigaChat{
		client:    client,
		modelName: cfg.Model,
		logger:    logger,
	}, nil
}

func (g *GigaChat) Complete(ctx context.Context, req ChatRequest) (string, error) {
	model := g.client.GenerativeModel(g.modelName)
	// The structuring engine always asks for deterministic output; gigago has
	// no response_format knob, so the JSON-only directive lives in the prompt.
	model.Temperature = 0
	if req.MaxTokens > 0 {
		model.MaxTokens = int32(req.MaxTokens)
	}

	var messages []gigago.Message
	for _, m := range req.Messages {
		if m.Role == RoleSystem {
			model.SystemInstruction = m.Content
			continue
		}
		messages = append(messages, gigago.Message{Role: gigago.RoleUser, Content: m.Content})
	}

	resp, err := model.Generate(ctx, messages)
	if err != nil {
		return "", fmt.Errorf("generate completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("completion response has no choices")
	}

	content := resp.Choices[0].Message.Content
	g.logger.Debug("completion received",
		zap.String("model", g.modelName),
		zap.Int("content_length", len(content)),
	)
	return content, nil
}

func (g *GigaChat) Close() error {
	if g.client != nil {
		g.client.Close()
	}
	return nil
}
