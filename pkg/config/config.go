package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/zen-systems/questforge/pkg/adapter"
	"github.com/zen-systems/questforge/pkg/retry"
)

// Config holds the application configuration. API keys are read from the
// environment only; everything else comes from config.yaml.
type Config struct {
	LlamaAPIKey     string
	GoogleAPIKey    string
	MistralAPIKey   string
	OpenAIAPIKey    string
	AnthropicAPIKey string
	DeepSeekAPIKey  string

	Settings  Settings
	Catalog   *Catalog
	ConfigDir string
}

// Settings represents the structure of ~/.questforge/config.yaml.
type Settings struct {
	DefaultModel string             `yaml:"default_model,omitempty"`
	Generation   GenerationSettings `yaml:"generation,omitempty"`
	Retry        RetrySettings      `yaml:"retry,omitempty"`
	Fallback     FallbackSettings   `yaml:"fallback,omitempty"`
	Server       ServerSettings     `yaml:"server,omitempty"`
	// Endpoints overrides vendor base URLs, keyed by provider name.
	Endpoints map[string]string `yaml:"endpoints,omitempty"`
}

// GenerationSettings are request defaults shared by every adapter.
type GenerationSettings struct {
	// Temperature is a pointer so that an explicit 0 survives defaulting.
	Temperature    *float64 `yaml:"temperature,omitempty"`
	MaxTokens      int      `yaml:"max_tokens,omitempty"`
	TimeoutSeconds int      `yaml:"timeout_seconds,omitempty"`
}

// RetrySettings defines retry and backoff behavior. A negative
// MaxRetries disables retries.
type RetrySettings struct {
	MaxRetries  int `yaml:"max_retries,omitempty"`
	BaseDelayMs int `yaml:"base_delay_ms,omitempty"`
	MaxDelayMs  int `yaml:"max_delay_ms,omitempty"`
	JitterMs    int `yaml:"jitter_ms,omitempty"`
}

// FallbackSettings lists models tried after the requested one.
type FallbackSettings struct {
	Models []string `yaml:"models,omitempty"`
	// UseCatalog appends the catalog's TPM-ordered list when Models is empty.
	UseCatalog bool `yaml:"use_catalog,omitempty"`
}

// ServerSettings configures the HTTP endpoint.
type ServerSettings struct {
	Addr string `yaml:"addr,omitempty"`
}

// Load reads configuration from ~/.questforge and the environment.
func Load() (*Config, error) {
	configDir, err := getConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config directory: %w", err)
	}
	return load(configDir, filepath.Join(configDir, "config.yaml"), false)
}

// LoadFile reads settings from an explicit path. Unlike Load, a missing
// or malformed file is an error.
func LoadFile(path string) (*Config, error) {
	return load(filepath.Dir(path), path, true)
}

func load(configDir, settingsPath string, strict bool) (*Config, error) {
	settings, err := loadSettings(settingsPath)
	if err != nil {
		if strict || !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load settings: %w", err)
		}
		settings = Settings{}
	}
	applyDefaults(&settings)

	catalog, err := LoadCatalogWithFallback(configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load model catalog: %w", err)
	}

	return &Config{
		LlamaAPIKey:     os.Getenv("LLAMA_API_KEY"),
		GoogleAPIKey:    firstEnv("GEMINI_API_KEY", "GOOGLE_API_KEY"),
		MistralAPIKey:   os.Getenv("MISTRAL_API_KEY"),
		OpenAIAPIKey:    os.Getenv("OPENAI_API_KEY"),
		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
		DeepSeekAPIKey:  os.Getenv("DEEPSEEK_API_KEY"),
		Settings:        settings,
		Catalog:         catalog,
		ConfigDir:       configDir,
	}, nil
}

func loadSettings(path string) (Settings, error) {
	var s Settings
	data, err := os.ReadFile(path)
	if err != nil {
		return s, err
	}
	if err := yaml.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("parse %s: %w", path, err)
	}
	return s, nil
}

func applyDefaults(s *Settings) {
	if s.DefaultModel == "" {
		s.DefaultModel = DefaultModel
	}
	if s.Generation.Temperature == nil {
		t := adapter.DefaultTemperature
		s.Generation.Temperature = &t
	}
	if s.Generation.MaxTokens == 0 {
		s.Generation.MaxTokens = adapter.DefaultMaxTokens
	}
	if s.Generation.TimeoutSeconds == 0 {
		s.Generation.TimeoutSeconds = int(adapter.DefaultTimeout / time.Second)
	}
	if s.Retry.MaxRetries == 0 {
		s.Retry.MaxRetries = retry.DefaultMaxRetries
	}
	if s.Retry.BaseDelayMs == 0 {
		s.Retry.BaseDelayMs = int(retry.DefaultBaseDelay / time.Millisecond)
	}
	if s.Retry.MaxDelayMs == 0 {
		s.Retry.MaxDelayMs = int(retry.DefaultMaxDelay / time.Millisecond)
	}
	if s.Retry.MaxDelayMs < s.Retry.BaseDelayMs {
		s.Retry.MaxDelayMs = s.Retry.BaseDelayMs
	}
	if s.Retry.JitterMs == 0 {
		s.Retry.JitterMs = int(retry.DefaultMaxJitter / time.Millisecond)
	}
	if s.Server.Addr == "" {
		s.Server.Addr = ":8080"
	}
}

// APIKey returns the credential for a provider, or "" when none is set.
func (c *Config) APIKey(p adapter.Provider) string {
	switch p {
	case adapter.ProviderLlama:
		return c.LlamaAPIKey
	case adapter.ProviderGoogle:
		return c.GoogleAPIKey
	case adapter.ProviderMistral:
		return c.MistralAPIKey
	case adapter.ProviderOpenAI:
		return c.OpenAIAPIKey
	case adapter.ProviderAnthropic:
		return c.AnthropicAPIKey
	case adapter.ProviderDeepSeek:
		return c.DeepSeekAPIKey
	case adapter.ProviderMock:
		return "mock"
	default:
		return ""
	}
}

// HasProvider returns true if the API key for the given provider is configured.
func (c *Config) HasProvider(p adapter.Provider) bool {
	return c.APIKey(p) != ""
}

// AdapterOptions returns the construction options for a provider's adapter.
func (c *Config) AdapterOptions(p adapter.Provider) adapter.Options {
	opts := adapter.Options{
		BaseURL:   c.Settings.Endpoints[string(p)],
		Timeout:   time.Duration(c.Settings.Generation.TimeoutSeconds) * time.Second,
		MaxTokens: c.Settings.Generation.MaxTokens,
	}
	if t := c.Settings.Generation.Temperature; t != nil {
		temp := *t
		opts.Temperature = &temp
	}
	return opts
}

// Registry builds one adapter per provider using AdapterOptions.
func (c *Config) Registry() (adapter.Registry, error) {
	return adapter.NewRegistry(c.AdapterOptions)
}

// RetryPolicy converts the retry settings into a retry.Policy.
func (c *Config) RetryPolicy() retry.Policy {
	r := c.Settings.Retry
	maxRetries := r.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	return retry.Policy{
		MaxRetries: maxRetries,
		BaseDelay:  time.Duration(r.BaseDelayMs) * time.Millisecond,
		MaxDelay:   time.Duration(r.MaxDelayMs) * time.Millisecond,
		MaxJitter:  time.Duration(r.JitterMs) * time.Millisecond,
	}
}

// FallbackModels returns the configured fallback list for a primary model.
func (c *Config) FallbackModels(primary string) []string {
	models := c.Settings.Fallback.Models
	if len(models) == 0 && c.Settings.Fallback.UseCatalog {
		models = c.Catalog.FallbackOrder()
	}
	out := make([]string, 0, len(models))
	for _, m := range models {
		if m != primary {
			out = append(out, m)
		}
	}
	return out
}

func firstEnv(names ...string) string {
	for _, name := range names {
		if val := os.Getenv(name); val != "" {
			return val
		}
	}
	return ""
}

func getConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	configDir := filepath.Join(home, ".questforge")
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return "", err
	}
	return configDir, nil
}
