package adapter

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// Provider identifies an LLM vendor. The set is closed: every value has
// exactly one adapter implementation, selected by New.
type Provider string

const (
	ProviderLlama     Provider = "llama"
	ProviderGoogle    Provider = "google"
	ProviderMistral   Provider = "mistral"
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
	ProviderDeepSeek  Provider = "deepseek"
	ProviderMock      Provider = "mock"
)

// Providers returns every known provider in display order.
func Providers() []Provider {
	return []Provider{
		ProviderLlama,
		ProviderGoogle,
		ProviderMistral,
		ProviderOpenAI,
		ProviderAnthropic,
		ProviderDeepSeek,
		ProviderMock,
	}
}

// ParseProvider converts a name into a Provider.
func ParseProvider(name string) (Provider, error) {
	for _, p := range Providers() {
		if string(p) == name {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown provider %q", name)
}

// Adapter defines the interface for LLM provider adapters.
type Adapter interface {
	// Provider returns the vendor this adapter talks to.
	Provider() Provider

	// Generate sends the request to the vendor using apiKey and returns
	// the generated text. Failures are returned as *ClassifiedError.
	Generate(ctx context.Context, req Request, apiKey string) (*Response, error)
}

// Options configures adapter construction.
type Options struct {
	// BaseURL overrides the vendor endpoint. Empty means the vendor default.
	BaseURL string

	// Timeout bounds a single HTTP call.
	Timeout time.Duration

	// HTTPClient is used for the underlying transport.
	HTTPClient *http.Client

	// Temperature and MaxTokens are used when a request leaves them unset.
	// A nil Temperature means DefaultTemperature; zero is a valid setting.
	Temperature *float64
	MaxTokens   int
}

const (
	DefaultTimeout     = 20 * time.Second
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 4000
)

func (o Options) withDefaults() Options {
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.HTTPClient == nil {
		o.HTTPClient = &http.Client{}
	}
	if o.Temperature == nil {
		t := DefaultTemperature
		o.Temperature = &t
	}
	if o.MaxTokens <= 0 {
		o.MaxTokens = DefaultMaxTokens
	}
	return o
}

func (o Options) temperature(req Request) float64 {
	if req.Temperature != nil {
		return *req.Temperature
	}
	if o.Temperature != nil {
		return *o.Temperature
	}
	return DefaultTemperature
}

func (o Options) maxTokens(req Request) int {
	if req.MaxTokens > 0 {
		return req.MaxTokens
	}
	return o.MaxTokens
}

// New constructs the adapter for a provider.
func New(p Provider, opts Options) (Adapter, error) {
	switch p {
	case ProviderLlama:
		return NewLlamaAdapter(opts), nil
	case ProviderGoogle:
		return NewGoogleAdapter(opts), nil
	case ProviderMistral:
		return NewMistralAdapter(opts), nil
	case ProviderOpenAI:
		return NewOpenAIAdapter(opts), nil
	case ProviderAnthropic:
		return NewAnthropicAdapter(opts), nil
	case ProviderDeepSeek:
		return NewDeepSeekAdapter(opts), nil
	case ProviderMock:
		return NewMockAdapter(), nil
	default:
		return nil, fmt.Errorf("unsupported provider %q", p)
	}
}

// Registry maps providers to their adapters.
type Registry map[Provider]Adapter

// NewRegistry builds an adapter for every known provider, asking options
// for each provider's construction options.
func NewRegistry(options func(Provider) Options) (Registry, error) {
	reg := make(Registry, len(Providers()))
	for _, p := range Providers() {
		var opts Options
		if options != nil {
			opts = options(p)
		}
		a, err := New(p, opts)
		if err != nil {
			return nil, err
		}
		reg[p] = a
	}
	return reg, nil
}

// Get returns the adapter for p.
func (r Registry) Get(p Provider) (Adapter, bool) {
	a, ok := r[p]
	return a, ok
}

// withTimeout bounds a vendor call. The returned cancel must always run.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

var (
	_ Adapter = (*LlamaAdapter)(nil)
	_ Adapter = (*GoogleAdapter)(nil)
	_ Adapter = (*MistralAdapter)(nil)
	_ Adapter = (*OpenAIAdapter)(nil)
	_ Adapter = (*AnthropicAdapter)(nil)
	_ Adapter = (*DeepSeekAdapter)(nil)
	_ Adapter = (*MockAdapter)(nil)
)
