package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/zen-systems/questforge/pkg/adapter"
)

// TPM tiers used to order the catalog fallback list.
const (
	TPMHigh   = 1_000_000
	TPMMedium = 500_000
)

// Model describes one entry of the model catalog.
type Model struct {
	ID            string           `yaml:"id" json:"id"`
	Name          string           `yaml:"name" json:"name"`
	Provider      adapter.Provider `yaml:"provider" json:"provider"`
	Available     bool             `yaml:"available" json:"available"`
	Description   string           `yaml:"description,omitempty" json:"description,omitempty"`
	ContextLength string           `yaml:"context_length,omitempty" json:"contextLength,omitempty"`
	TPMLimit      int              `yaml:"tpm_limit,omitempty" json:"tpmLimit,omitempty"`
	Pricing       *ModelPricing    `yaml:"pricing,omitempty" json:"pricing,omitempty"`
}

// ModelPricing defines per-1k token pricing in USD.
type ModelPricing struct {
	PromptPer1K     float64 `yaml:"prompt_per_1k,omitempty" json:"promptPer1k,omitempty"`
	CompletionPer1K float64 `yaml:"completion_per_1k,omitempty" json:"completionPer1k,omitempty"`
}

// Catalog is the set of models the service knows about, plus short
// aliases for them.
type Catalog struct {
	Models  []Model           `yaml:"models"`
	Aliases map[string]string `yaml:"aliases,omitempty"`
}

// LoadCatalog reads a model catalog from a YAML file.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}
	if c.Aliases == nil {
		c.Aliases = make(map[string]string)
	}
	for i, m := range c.Models {
		if m.ID == "" {
			return nil, fmt.Errorf("catalog %s: model %d has no id", path, i)
		}
		if m.Provider == "" {
			c.Models[i].Provider = ProviderForPrefix(m.ID)
			continue
		}
		if _, err := adapter.ParseProvider(string(m.Provider)); err != nil {
			return nil, fmt.Errorf("catalog %s: model %s: %w", path, m.ID, err)
		}
	}
	return &c, nil
}

// LoadCatalogWithFallback loads models.yaml from configDir, falling back
// to the built-in catalog when the file does not exist.
func LoadCatalogWithFallback(configDir string) (*Catalog, error) {
	if configDir != "" {
		path := filepath.Join(configDir, "models.yaml")
		if _, err := os.Stat(path); err == nil {
			return LoadCatalog(path)
		}
	}
	return DefaultCatalog(), nil
}

// Resolve returns the canonical model name for an alias.
// If the input is not an alias, it returns the input unchanged.
func (c *Catalog) Resolve(modelOrAlias string) string {
	if c == nil || c.Aliases == nil {
		return modelOrAlias
	}
	if canonical, ok := c.Aliases[modelOrAlias]; ok {
		return canonical
	}
	return modelOrAlias
}

// Lookup returns the catalog entry for a model id.
func (c *Catalog) Lookup(id string) (Model, bool) {
	if c == nil {
		return Model{}, false
	}
	for _, m := range c.Models {
		if m.ID == id {
			return m, true
		}
	}
	return Model{}, false
}

// ProviderFor resolves the provider serving a model. A catalog entry wins
// over the name-prefix rules.
func (c *Catalog) ProviderFor(model string) adapter.Provider {
	if m, ok := c.Lookup(c.Resolve(model)); ok && m.Provider != "" {
		return m.Provider
	}
	return ProviderForPrefix(model)
}

// Pricing returns the pricing of a model, if known.
func (c *Catalog) Pricing(model string) (ModelPricing, bool) {
	m, ok := c.Lookup(c.Resolve(model))
	if !ok || m.Pricing == nil {
		return ModelPricing{}, false
	}
	return *m.Pricing, true
}

// Available returns the models that can be selected.
func (c *Catalog) Available() []Model {
	if c == nil {
		return nil
	}
	var out []Model
	for _, m := range c.Models {
		if m.Available {
			out = append(out, m)
		}
	}
	return out
}

// FallbackOrder lists available models from the highest TPM tier to the
// lowest, keeping catalog order inside a tier.
func (c *Catalog) FallbackOrder() []string {
	var models []Model
	for _, m := range c.Available() {
		if m.Provider == adapter.ProviderMock {
			continue
		}
		models = append(models, m)
	}
	sort.SliceStable(models, func(i, j int) bool {
		return tpmTier(models[i].TPMLimit) < tpmTier(models[j].TPMLimit)
	})

	ids := make([]string, len(models))
	for i, m := range models {
		ids[i] = m.ID
	}
	return ids
}

func tpmTier(limit int) int {
	switch {
	case limit >= TPMHigh:
		return 0
	case limit >= TPMMedium:
		return 1
	default:
		return 2
	}
}

var providerPrefixes = []struct {
	provider adapter.Provider
	prefixes []string
}{
	{adapter.ProviderLlama, []string{"llama-", "Llama-"}},
	{adapter.ProviderGoogle, []string{"gemini-"}},
	{adapter.ProviderMistral, []string{"mistral-", "open-mistral", "open-mixtral", "magistral-", "ministral-"}},
	{adapter.ProviderDeepSeek, []string{"deepseek-"}},
	{adapter.ProviderAnthropic, []string{"claude-"}},
	{adapter.ProviderOpenAI, []string{"gpt-", "o1-", "o3-", "o4-"}},
	{adapter.ProviderMock, []string{"mock-"}},
}

// ProviderForPrefix maps a model name to a provider by its prefix.
// Unrecognized names are served by Google.
func ProviderForPrefix(model string) adapter.Provider {
	for _, entry := range providerPrefixes {
		for _, prefix := range entry.prefixes {
			if strings.HasPrefix(model, prefix) {
				return entry.provider
			}
		}
	}
	return adapter.ProviderGoogle
}

// DefaultModel is used when a request names no model.
const DefaultModel = "gemini-2.5-flash"

// DefaultCatalog returns the built-in model catalog.
func DefaultCatalog() *Catalog {
	llama := func(id, name, desc, ctx string) Model {
		return Model{ID: id, Name: name, Provider: adapter.ProviderLlama, Available: true, Description: desc, ContextLength: ctx, TPMLimit: TPMHigh}
	}
	mistral := func(id, name, desc, ctx string) Model {
		return Model{ID: id, Name: name, Provider: adapter.ProviderMistral, Available: true, Description: desc, ContextLength: ctx, TPMLimit: TPMMedium}
	}
	gemini := func(id, name, desc, ctx string, tpm int) Model {
		return Model{ID: id, Name: name, Provider: adapter.ProviderGoogle, Available: true, Description: desc, ContextLength: ctx, TPMLimit: tpm}
	}
	disabled := func(id, name string, p adapter.Provider, desc string) Model {
		return Model{ID: id, Name: name, Provider: p, Description: desc}
	}

	return &Catalog{
		Models: []Model{
			llama("Llama-3.3-70B-Instruct", "Llama 3.3 70B", "Large Llama model", "128K tokens"),
			llama("Llama-4-Maverick-17B-128E-Instruct-FP8", "Llama 4 Maverick 17B", "Complex reasoning", "128K tokens"),
			llama("Llama-4-Scout-17B-16E-Instruct-FP8", "Llama 4 Scout 17B", "Multimodal and medical reasoning", "16K tokens"),
			llama("Llama-3.3-8B-Instruct", "Llama 3.3 8B", "Fast, good quality", "128K tokens"),
			gemini("gemini-2.0-flash", "Gemini 2.0 Flash", "Gemini 2.0 Flash", "1M tokens", TPMHigh),
			gemini("gemini-2.0-flash-lite", "Gemini 2.0 Flash Lite", "Lightweight Gemini 2.0 Flash", "1M tokens", TPMHigh),

			mistral("mistral-large-2411", "Mistral Large 2.1", "Most capable Mistral model", "128K tokens"),
			mistral("mistral-large-latest", "Mistral Large", "Latest Mistral Large", "128K tokens"),
			mistral("mistral-medium-2505", "Mistral Medium 3", "Mistral Medium 3", "128K tokens"),
			mistral("magistral-medium-2507", "Magistral Medium 1.1", "Reasoning model", "128K tokens"),
			mistral("magistral-medium-2506", "Magistral Medium 1", "Reasoning model", "128K tokens"),
			mistral("mistral-small-2506", "Mistral Small 3.2", "Balanced", "32K tokens"),
			mistral("magistral-small-2507", "Magistral Small 1.1", "Small reasoning model", "32K tokens"),
			mistral("magistral-small-2506", "Magistral Small 1", "Small reasoning model", "32K tokens"),
			mistral("mistral-small-2503", "Mistral Small 3.1", "Efficient", "32K tokens"),
			mistral("mistral-small-2501", "Mistral Small 3", "Fast inference", "32K tokens"),
			mistral("ministral-3b-2410", "Ministral 3B", "Lightweight", "32K tokens"),
			mistral("ministral-8b-2410", "Ministral 8B", "Efficient mid-size", "32K tokens"),

			gemini("gemini-2.5-flash", "Gemini 2.5 Flash", "Best price-performance", "1M tokens", 250_000),
			gemini("gemini-2.5-flash-lite", "Gemini 2.5 Flash Lite", "Most cost-effective", "1M tokens", 250_000),
			gemini("gemini-2.5-pro", "Gemini 2.5 Pro", "Most powerful thinking model", "2M tokens", 125_000),

			{ID: "mock-question", Name: "Mock", Provider: adapter.ProviderMock, Available: true, Description: "Offline canned question"},

			disabled("gpt-4o", "GPT-4o", adapter.ProviderOpenAI, "OpenAI GPT-4o"),
			disabled("gpt-4o-mini", "GPT-4o Mini", adapter.ProviderOpenAI, "OpenAI GPT-4o Mini"),
			disabled("claude-3-5-sonnet-20241022", "Claude 3.5 Sonnet", adapter.ProviderAnthropic, "Anthropic Claude 3.5 Sonnet"),
			disabled("claude-3-5-haiku-20241022", "Claude 3.5 Haiku", adapter.ProviderAnthropic, "Anthropic Claude 3.5 Haiku"),
			disabled("deepseek-chat", "DeepSeek Chat", adapter.ProviderDeepSeek, "DeepSeek V3 chat"),
			disabled("mistral-small-2407", "Mistral Small 2", adapter.ProviderMistral, "Mistral Small 2"),
		},
		Aliases: map[string]string{
			"fast":     "gemini-2.0-flash",
			"quality":  "Llama-3.3-70B-Instruct",
			"reason":   "magistral-medium-2507",
			"cheap":    "gemini-2.5-flash-lite",
			"thinking": "gemini-2.5-pro",
			"mock":     "mock-question",
		},
	}
}
