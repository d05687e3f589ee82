package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"repocite/internal/httpx"
)

// OpenAIConfig configures an OpenAI-compatible chat completions client.
type OpenAIConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	// APIVersion switches to Azure OpenAI deployments.
	APIVersion string
	Timeout    time.Duration
	MaxRetries int
}

// OpenAIChat calls an OpenAI-compatible /chat/completions endpoint.
type OpenAIChat struct {
	cfg    OpenAIConfig
	client *http.Client
}

// NewOpenAIChat creates a chat completions client.
func NewOpenAIChat(cfg OpenAIConfig) *OpenAIChat {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Minute
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &OpenAIChat{cfg: cfg, client: &http.Client{Timeout: cfg.Timeout}}
}

// Model returns the configured model or deployment name.
func (c *OpenAIChat) Model() string { return c.cfg.Model }

type completionRequest struct {
	Model    string    `json:"model,omitempty"`
	Messages []Message `json:"messages"`
}

type completionResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
}

func (c *OpenAIChat) endpoint() string {
	if c.cfg.APIVersion != "" {
		return fmt.Sprintf("%s/openai/deployments/%s/chat/completions?api-version=%s",
			c.cfg.BaseURL, url.PathEscape(c.cfg.Model), url.QueryEscape(c.cfg.APIVersion))
	}
	return c.cfg.BaseURL + "/chat/completions"
}

// Generate returns the content of the first choice.
func (c *OpenAIChat) Generate(ctx context.Context, messages []Message) (string, error) {
	reqBody := completionRequest{Messages: messages}
	if c.cfg.APIVersion == "" {
		reqBody.Model = c.cfg.Model
	}
	data, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal chat request: %w", err)
	}

	payload, err := httpx.PostJSON(ctx, c.client, c.endpoint(), data, func(req *http.Request) {
		if c.cfg.APIVersion != "" {
			req.Header.Set("api-key", c.cfg.APIKey)
		} else if c.cfg.APIKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
		}
	}, c.cfg.MaxRetries)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrChatFailed, err)
	}

	var out completionResponse
	if err := json.Unmarshal(payload, &out); err != nil {
		return "", fmt.Errorf("decode chat response: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", ErrNoChoices
	}
	return out.Choices[0].Message.Content, nil
}
