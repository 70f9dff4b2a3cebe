// Package llm is the boundary to the language-model collaborator: a small
// chat interface, YAML configuration, and one provider per backend.
package llm

import (
	"context"
	"errors"
	"fmt"
)

// DefaultSystemRole is applied when a caller passes an empty system role.
const DefaultSystemRole = "You are a helpful assistant."

var (
	// ErrEmptyReply reports that the call succeeded but produced no content.
	ErrEmptyReply = errors.New("llm: empty reply")
	// ErrRateLimited reports that retries were exhausted on rate-limit errors.
	ErrRateLimited = errors.New("llm: rate limited")
)

// Client is one synchronous prompt/reply exchange. Implementations return an
// error for transport or auth failures so callers can tell an unreachable
// endpoint apart from a legitimately empty answer.
type Client interface {
	Chat(ctx context.Context, prompt, systemRole string) (string, error)
}

// StructuredClient is an optional capability: providers that support
// JSON-schema response formats constrain the reply to the given schema.
// Callers type-assert and fall back to Chat when the provider lacks it.
type StructuredClient interface {
	Client
	ChatJSON(ctx context.Context, prompt, systemRole, name string, schema map[string]any) (string, error)
}

// NewClient builds the provider selected by cfg.Provider.
func NewClient(cfg Config) (Client, error) {
	switch cfg.Provider {
	case "", ProviderOpenAI:
		return newOpenAIClient(cfg)
	case ProviderGemini:
		return newGeminiClient(cfg)
	default:
		return nil, fmt.Errorf("NewClient: unknown provider %q", cfg.Provider)
	}
}
