// Package config loads repocite settings from YAML, .env files and the
// environment.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ErrMissingSetting is returned when a collaborator cannot be built because a
// required model, endpoint or key is absent.
var ErrMissingSetting = errors.New("missing setting")

// Providers.
const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
	ProviderAzure  = "azure"
	ProviderHugot  = "hugot"
)

const (
	DefaultOllamaURL  = "http://localhost:11434"
	DefaultOpenAIURL  = "https://api.openai.com/v1"
	DefaultEmbedModel = "nomic-embed-text"
	DefaultChatModel  = "qwen3:8b"
	DefaultHugotModel = "sentence-transformers/all-MiniLM-L6-v2"
	DefaultBatchSize  = 64
	DefaultCacheSize  = 10000
	DefaultK          = 20
	DefaultRoot       = "/"
	DefaultIndexDir   = ".repocite"
)

// ProviderConfig configures a remote or local model provider.
type ProviderConfig struct {
	Provider    string `yaml:"provider"`
	BaseURL     string `yaml:"base_url,omitempty"`
	Model       string `yaml:"model"`
	APIKeyEnv   string `yaml:"api_key_env,omitempty"`
	APIVersion  string `yaml:"api_version,omitempty"`
	TimeoutSecs int    `yaml:"timeout_secs,omitempty"`
	MaxRetries  int    `yaml:"max_retries,omitempty"`
}

// APIKey reads the key named by APIKeyEnv from the environment.
func (p ProviderConfig) APIKey() (string, error) {
	if p.APIKeyEnv == "" {
		return "", fmt.Errorf("%s: api_key_env: %w", p.Provider, ErrMissingSetting)
	}
	key := os.Getenv(p.APIKeyEnv)
	if key == "" {
		return "", fmt.Errorf("%s: environment variable %s: %w", p.Provider, p.APIKeyEnv, ErrMissingSetting)
	}
	return key, nil
}

// EmbedderConfig selects and configures the embedding collaborator.
type EmbedderConfig struct {
	ProviderConfig `yaml:",inline"`
	BatchSize      int    `yaml:"batch_size"`
	CacheSize      int    `yaml:"cache_size"`
	ModelDir       string `yaml:"model_dir,omitempty"`
}

// IndexConfig configures index builds.
type IndexConfig struct {
	Workers int      `yaml:"workers"`
	Exclude []string `yaml:"exclude,omitempty"`
}

// QueryConfig configures retrieval.
type QueryConfig struct {
	K        int    `yaml:"k"`
	Root     string `yaml:"root"`
	IndexDir string `yaml:"index_dir,omitempty"`
}

// Config is the root configuration structure.
type Config struct {
	Embedder EmbedderConfig `yaml:"embedder"`
	Chat     ProviderConfig `yaml:"chat"`
	Index    IndexConfig    `yaml:"index"`
	Query    QueryConfig    `yaml:"query"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// Load reads a config from path, applies environment overrides and fills in
// defaults. An empty path or a missing file yields the defaults.
func Load(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, err
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parse %s: %w", path, err)
			}
		}
	}
	applyEnv(&cfg)
	applyDefaults(&cfg)
	return &cfg, nil
}

// LoadDefault tries ./repocite.yaml first, then the user config path. If
// neither exists it returns the defaults and an empty path.
func LoadDefault() (*Config, string, error) {
	cwdPath := "repocite.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	if userPath, err := DefaultUserConfigPath(); err == nil {
		if _, err := os.Stat(userPath); err == nil {
			cfg, err := Load(userPath)
			return cfg, userPath, err
		}
	}
	cfg, err := Load("")
	return cfg, "", err
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Write encodes cfg as YAML to w.
func Write(w io.Writer, cfg *Config) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return err
	}
	return enc.Close()
}

// DefaultUserConfigPath returns ~/.config/repocite/config.yaml.
func DefaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "repocite", "config.yaml"), nil
}

// LoadEnvFiles loads .env style files into the process environment without
// overriding variables that are already set. Missing files are ignored.
func LoadEnvFiles(paths ...string) {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			_ = godotenv.Load(p)
		}
	}
}

func applyEnv(cfg *Config) {
	setString(&cfg.Embedder.Provider, "REPOCITE_EMBED_PROVIDER")
	setString(&cfg.Embedder.BaseURL, "REPOCITE_EMBED_URL")
	setString(&cfg.Embedder.Model, "REPOCITE_EMBED_MODEL")
	setString(&cfg.Embedder.APIKeyEnv, "REPOCITE_EMBED_API_KEY_ENV")
	setInt(&cfg.Embedder.BatchSize, "REPOCITE_EMBED_BATCH_SIZE")
	setString(&cfg.Chat.Provider, "REPOCITE_CHAT_PROVIDER")
	setString(&cfg.Chat.BaseURL, "REPOCITE_CHAT_URL")
	setString(&cfg.Chat.Model, "REPOCITE_CHAT_MODEL")
	setString(&cfg.Chat.APIKeyEnv, "REPOCITE_CHAT_API_KEY_ENV")
	setInt(&cfg.Index.Workers, "REPOCITE_WORKERS")
	setInt(&cfg.Query.K, "REPOCITE_K")
	setString(&cfg.Query.Root, "REPOCITE_ROOT")
	setString(&cfg.Query.IndexDir, "REPOCITE_INDEX_DIR")
	if v := os.Getenv("REPOCITE_EXCLUDE"); v != "" {
		cfg.Index.Exclude = append(cfg.Index.Exclude, strings.Split(v, ",")...)
	}
}

func setString(dst *string, env string) {
	if v := os.Getenv(env); v != "" {
		*dst = v
	}
}

func setInt(dst *int, env string) {
	if v, err := strconv.Atoi(os.Getenv(env)); err == nil {
		*dst = v
	}
}

func applyDefaults(cfg *Config) {
	e := &cfg.Embedder
	if e.Provider == "" {
		e.Provider = ProviderOllama
	}
	switch e.Provider {
	case ProviderOllama:
		defaultString(&e.BaseURL, DefaultOllamaURL)
		defaultString(&e.Model, DefaultEmbedModel)
	case ProviderOpenAI:
		defaultString(&e.BaseURL, DefaultOpenAIURL)
		defaultString(&e.APIKeyEnv, "OPENAI_API_KEY")
		defaultString(&e.Model, "text-embedding-3-small")
	case ProviderAzure:
		applyAzureDefaults(&e.ProviderConfig, "AZURE_OPENAI_MODEL_ADA2")
	case ProviderHugot:
		defaultString(&e.Model, DefaultHugotModel)
		if e.ModelDir == "" {
			e.ModelDir = defaultModelDir()
		}
	}
	if e.TimeoutSecs == 0 {
		e.TimeoutSecs = 120
	}
	if e.BatchSize <= 0 {
		e.BatchSize = DefaultBatchSize
	}
	if e.CacheSize == 0 {
		e.CacheSize = DefaultCacheSize
	}

	c := &cfg.Chat
	if c.Provider == "" {
		c.Provider = ProviderOllama
	}
	switch c.Provider {
	case ProviderOllama:
		defaultString(&c.BaseURL, DefaultOllamaURL)
		defaultString(&c.Model, DefaultChatModel)
	case ProviderOpenAI:
		defaultString(&c.BaseURL, DefaultOpenAIURL)
		defaultString(&c.APIKeyEnv, "OPENAI_API_KEY")
		defaultString(&c.Model, "gpt-4o-mini")
	case ProviderAzure:
		applyAzureDefaults(c, "AZURE_OPENAI_MODEL_GPT4o")
	}
	if c.TimeoutSecs == 0 {
		c.TimeoutSecs = 300
	}

	if cfg.Query.K <= 0 {
		cfg.Query.K = DefaultK
	}
	defaultString(&cfg.Query.Root, DefaultRoot)
}

// applyAzureDefaults fills an Azure OpenAI provider from the AZURE_OPENAI_*
// variables. The model is the deployment name.
func applyAzureDefaults(p *ProviderConfig, modelEnv string) {
	defaultString(&p.BaseURL, os.Getenv("AZURE_OPENAI_ENDPOINT"))
	defaultString(&p.APIVersion, os.Getenv("AZURE_OPENAI_API_VERSION"))
	defaultString(&p.Model, os.Getenv(modelEnv))
	defaultString(&p.APIKeyEnv, "AZURE_OPENAI_API_KEY")
}

func defaultString(dst *string, v string) {
	if *dst == "" {
		*dst = v
	}
}

func defaultModelDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "repocite", "models")
	}
	return "models"
}
