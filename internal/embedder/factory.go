package embedder

import (
	"fmt"
	"time"

	"repocite/internal/config"
)

// New builds the embedder selected by cfg, wrapped in a Cached layer unless
// the cache size is negative.
func New(cfg config.EmbedderConfig) (Embedder, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("embedder %s: model: %w", cfg.Provider, config.ErrMissingSetting)
	}
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second

	var e Embedder
	switch cfg.Provider {
	case config.ProviderOllama:
		if cfg.BaseURL == "" {
			return nil, fmt.Errorf("embedder ollama: base_url: %w", config.ErrMissingSetting)
		}
		e = NewOllamaEmbedder(cfg.BaseURL, cfg.Model, timeout)
	case config.ProviderOpenAI, config.ProviderAzure:
		if cfg.BaseURL == "" {
			return nil, fmt.Errorf("embedder %s: base_url: %w", cfg.Provider, config.ErrMissingSetting)
		}
		if cfg.Provider == config.ProviderAzure && cfg.APIVersion == "" {
			return nil, fmt.Errorf("embedder azure: api_version: %w", config.ErrMissingSetting)
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
		e = NewOpenAIEmbedder(oc)
	case config.ProviderHugot:
		h, err := NewHugotEmbedder(cfg.Model, cfg.ModelDir)
		if err != nil {
			return nil, err
		}
		e = h
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
	}

	if cfg.CacheSize < 0 {
		return e, nil
	}
	return NewCached(e, cfg.CacheSize), nil
}
