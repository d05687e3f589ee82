package embedder

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"repocite/internal/httpx"
)

// OpenAIConfig configures an OpenAI-compatible embeddings client.
type OpenAIConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	// APIVersion switches to Azure OpenAI: requests go to the deployment
	// named by Model and authenticate with the api-key header.
	APIVersion string
	Timeout    time.Duration
	MaxRetries int
}

// OpenAIEmbedder calls an OpenAI-compatible /embeddings endpoint.
type OpenAIEmbedder struct {
	cfg    OpenAIConfig
	client *http.Client
}

// NewOpenAIEmbedder creates an embeddings client using the provided configuration.
func NewOpenAIEmbedder(cfg OpenAIConfig) *OpenAIEmbedder {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &OpenAIEmbedder{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

// Model returns the configured model or deployment name.
func (e *OpenAIEmbedder) Model() string { return e.cfg.Model }

type openAIEmbedRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model,omitempty"`
}

type openAIEmbedResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

func (e *OpenAIEmbedder) endpoint() string {
	if e.cfg.APIVersion != "" {
		return fmt.Sprintf("%s/openai/deployments/%s/embeddings?api-version=%s",
			e.cfg.BaseURL, url.PathEscape(e.cfg.Model), url.QueryEscape(e.cfg.APIVersion))
	}
	return e.cfg.BaseURL + "/embeddings"
}

// Embed returns one embedding per text, ordered by the response's index field.
func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	reqBody := openAIEmbedRequest{Input: texts}
	if e.cfg.APIVersion == "" {
		reqBody.Model = e.cfg.Model
	}
	data, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal embed request: %w", err)
	}

	payload, err := httpx.PostJSON(ctx, e.client, e.endpoint(), data, e.authHeader, e.cfg.MaxRetries)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProviderFailed, err)
	}

	var out openAIEmbedResponse
	if err := json.Unmarshal(payload, &out); err != nil {
		return nil, fmt.Errorf("decode embed response: %w", err)
	}
	if len(out.Data) != len(texts) {
		return nil, fmt.Errorf("%w: expected %d embeddings, got %d", ErrCountMismatch, len(texts), len(out.Data))
	}
	sort.SliceStable(out.Data, func(i, j int) bool { return out.Data[i].Index < out.Data[j].Index })

	vecs := make([][]float32, len(out.Data))
	for i, d := range out.Data {
		vecs[i] = d.Embedding
	}
	return vecs, nil
}

func (e *OpenAIEmbedder) authHeader(req *http.Request) {
	if e.cfg.APIVersion != "" {
		req.Header.Set("api-key", e.cfg.APIKey)
		return
	}
	if e.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.cfg.APIKey)
	}
}
