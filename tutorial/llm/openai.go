package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
)

const chatTemperature = 0.7

type openAIClient struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

func newOpenAIClient(cfg Config) (*openAIClient, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("newOpenAIClient: %w", err)
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	client := openai.NewClient(opts...)
	return &openAIClient{client: &client, model: cfg.Model, timeout: cfg.Timeout()}, nil
}

func (c *openAIClient) Chat(ctx context.Context, prompt, systemRole string) (string, error) {
	return c.chat(ctx, prompt, systemRole, "", nil)
}

func (c *openAIClient) ChatJSON(ctx context.Context, prompt, systemRole, name string, schema map[string]any) (string, error) {
	return c.chat(ctx, prompt, systemRole, name, schema)
}

func (c *openAIClient) chat(ctx context.Context, prompt, systemRole, schemaName string, schema map[string]any) (string, error) {
	if c.client == nil {
		return "", errors.New("openAIClient: client is nil")
	}
	if systemRole == "" {
		systemRole = DefaultSystemRole
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemRole),
			openai.UserMessage(prompt),
		},
		Temperature: openai.Float(chatTemperature),
	}
	if schema != nil {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &shared.ResponseFormatJSONSchemaParam{
				Type: "json_schema",
				JSONSchema: shared.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   schemaName,
					Schema: schema,
					Strict: openai.Bool(true),
				},
			},
		}
	}

	resp, err := callWithRetry(ctx, c.client, params)
	if err != nil {
		if isRateLimitError(err) {
			return "", fmt.Errorf("Chat: %w: %v", ErrRateLimited, err)
		}
		return "", fmt.Errorf("Chat: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("Chat: %w", ErrEmptyReply)
	}
	content := resp.Choices[0].Message.Content
	if strings.TrimSpace(content) == "" {
		return "", fmt.Errorf("Chat: %w", ErrEmptyReply)
	}
	return content, nil
}

func callWithRetry(ctx context.Context, client *openai.Client, params openai.ChatCompletionNewParams) (*openai.ChatCompletion, error) {
	const maxRetries = 3
	rateLimitWaitTimes := []time.Duration{65 * time.Second, 100 * time.Second, 135 * time.Second}
	serverErrorWaitTimes := []time.Duration{5 * time.Second, 30 * time.Second, 60 * time.Second}

	for attempt := 0; attempt < maxRetries; attempt++ {
		resp, err := client.Chat.Completions.New(ctx, params)
		if err != nil {
			if isRateLimitError(err) {
				if attempt < maxRetries-1 {
					time.Sleep(rateLimitWaitTimes[attempt])
					continue
				}
			} else if isServerError(err) {
				if attempt < maxRetries-1 {
					time.Sleep(serverErrorWaitTimes[attempt])
					continue
				}
			}
			return nil, err
		}
		return resp, nil
	}
	return nil, fmt.Errorf("failed after %d attempts due to API issues", maxRetries)
}

func isRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "too many requests")
}

func isServerError(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "500") ||
		strings.Contains(errStr, "internal server error") ||
		strings.Contains(errStr, "server_error")
}
