// Package llm holds the chat collaborators that turn a prompt frame into an
// answer.
package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"repocite/internal/config"
)

var (
	ErrChatFailed      = errors.New("chat provider failed")
	ErrUnknownProvider = errors.New("unknown chat provider")
	ErrNoChoices       = errors.New("chat provider returned no choices")
)

// Chat roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message represents a single chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Chat generates an assistant reply for a conversation.
type Chat interface {
	Generate(ctx context.Context, messages []Message) (string, error)
}

// New builds the chat client selected by cfg.
func New(cfg config.ProviderConfig) (Chat, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("chat %s: model: %w", cfg.Provider, config.ErrMissingSetting)
	}
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second

	switch cfg.Provider {
	case config.ProviderOllama:
		if cfg.BaseURL == "" {
			return nil, fmt.Errorf("chat ollama: base_url: %w", config.ErrMissingSetting)
		}
		return NewOllamaChat(cfg.BaseURL, cfg.Model, timeout), nil
	case config.ProviderOpenAI, config.ProviderAzure:
		if cfg.BaseURL == "" {
			return nil, fmt.Errorf("chat %s: base_url: %w", cfg.Provider, config.ErrMissingSetting)
		}
		if cfg.Provider == config.ProviderAzure && cfg.APIVersion == "" {
			return nil, fmt.Errorf("chat azure: api_version: %w", config.ErrMissingSetting)
		}
		key, err := cfg.APIKey()
		if err != nil {
			return nil, err
		}
		oc := OpenAIConfig{
			BaseURL:    cfg.BaseURL,
			APIKey:     key,
			Model:      cfg.Model,
			Timeout:    timeout,
			MaxRetries: cfg.MaxRetries,
		}
		if cfg.Provider == config.ProviderAzure {
			oc.APIVersion = cfg.APIVersion
		}
		return NewOpenAIChat(oc), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
	}
}
