package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"
)

type geminiClient struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

func newGeminiClient(cfg Config) (*geminiClient, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("newGeminiClient: %w", err)
	}
	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey: cfg.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("newGeminiClient: %w", err)
	}
	return &geminiClient{client: client, model: cfg.Model, timeout: cfg.Timeout()}, nil
}

func (c *geminiClient) Chat(ctx context.Context, prompt, systemRole string) (string, error) {
	if systemRole == "" {
		systemRole = DefaultSystemRole
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	temperature := float32(chatTemperature)
	contents := []*genai.Content{
		genai.NewContentFromText(prompt, genai.RoleUser),
	}
	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemRole, genai.RoleUser),
		Temperature:       &temperature,
	})
	if err != nil {
		if isRateLimitError(err) {
			return "", fmt.Errorf("Chat: %w: %v", ErrRateLimited, err)
		}
		return "", fmt.Errorf("Chat: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("Chat: %w", ErrEmptyReply)
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil {
			b.WriteString(part.Text)
		}
	}
	reply := b.String()
	if strings.TrimSpace(reply) == "" {
		return "", fmt.Errorf("Chat: %w", ErrEmptyReply)
	}
	return reply, nil
}
