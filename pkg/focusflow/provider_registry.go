package focusflow

import (
	"fmt"
	"strings"

	"github.com/focusflowhq/focusflow/pkg/configutil"
	"github.com/focusflowhq/focusflow/pkg/llm"
	"github.com/focusflowhq/focusflow/pkg/providers/gemini"
	"github.com/focusflowhq/focusflow/pkg/providers/mock"
)

type LLMFactory func(cfg Config) (llm.Adapter, error)

// ProviderRegistry maps provider names from config to adapter factories.
type ProviderRegistry struct {
	llm map[string]LLMFactory
}

func NewProviderRegistry() *ProviderRegistry {
	return &ProviderRegistry{llm: make(map[string]LLMFactory)}
}

func (r *ProviderRegistry) RegisterLLM(name string, factory LLMFactory) {
	r.llm[strings.ToLower(strings.TrimSpace(name))] = factory
}

func (r *ProviderRegistry) BuildLLM(provider string, cfg Config) (llm.Adapter, error) {
	fn := r.llm[strings.ToLower(strings.TrimSpace(provider))]
	if fn == nil {
		return nil, fmt.Errorf("llm provider not registered: %s", provider)
	}
	return fn(cfg)
}

// DefaultProviderRegistry returns a registry with the built-in providers.
func DefaultProviderRegistry() *ProviderRegistry {
	r := NewProviderRegistry()
	r.RegisterLLM("gemini", buildGemini)
	r.RegisterLLM("mock", func(Config) (llm.Adapter, error) {
		return mock.New(), nil
	})
	return r
}

type geminiSettings struct {
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"`
}

func buildGemini(cfg Config) (llm.Adapter, error) {
	settings := cfg.Vendors.LLM.Settings
	if err := configutil.ValidateSettings(settings, configutil.Schema{
		Required: []string{"api_key"},
		Optional: []string{"model", "base_url"},
	}); err != nil {
		return nil, fmt.Errorf("vendors.llm.settings: %w", err)
	}
	var s geminiSettings
	if err := configutil.DecodeSettings(settings, &s); err != nil {
		return nil, fmt.Errorf("vendors.llm.settings: %w", err)
	}
	adapter := gemini.NewAdapter(s.APIKey, s.Model)
	if s.BaseURL != "" {
		adapter.BaseURL = strings.TrimRight(s.BaseURL, "/")
	}
	return adapter, nil
}
