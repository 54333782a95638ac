// Package llm provides LLM provider routing, an OpenAI-chat-compatible HTTP
// client, and per-model cost estimation.
package llm

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
)

// ErrNoProviderConfigured indicates no provider with a configured credential
// could be resolved for a model.
var ErrNoProviderConfigured = errors.New("no configured provider found")

// Provider describes one LLM endpoint.
type Provider struct {
	Name      string
	BaseURL   string
	APIKeyEnv string
}

// APIKey returns the provider credential from the environment.
func (p Provider) APIKey() string {
	return os.Getenv(p.APIKeyEnv)
}

// IsConfigured reports whether the provider credential is set.
func (p Provider) IsConfigured() bool {
	return p.APIKey() != ""
}

// ExtraHeaders returns provider-specific request headers beyond the bearer
// token. OpenRouter requires attribution headers.
func (p Provider) ExtraHeaders() map[string]string {
	if p.Name == "openrouter" {
		return map[string]string{
			"HTTP-Referer": "https://github.com/voxpipe/voxpipe",
			"X-Title":      "voxpipe",
		}
	}
	return nil
}

// Providers is the fixed provider table, keyed by name.
var Providers = map[string]Provider{
	"deepseek": {
		Name:      "deepseek",
		BaseURL:   "https://api.deepseek.com/v1",
		APIKeyEnv: "DEEPSEEK_API_KEY",
	},
	"openrouter": {
		Name:      "openrouter",
		BaseURL:   "https://openrouter.ai/api/v1",
		APIKeyEnv: "OPENROUTER_API_KEY",
	},
	"openai": {
		Name:      "openai",
		BaseURL:   "https://api.openai.com/v1",
		APIKeyEnv: "OPENAI_API_KEY",
	},
	"zai": {
		Name:      "zai",
		BaseURL:   "https://api.z.ai/v1",
		APIKeyEnv: "ZAI_API_KEY",
	},
}

// modelHint routes a model-name substring to a provider. Ordered: first
// matching hint whose provider is configured wins.
type modelHint struct {
	substr   string
	provider string
}

var modelHints = []modelHint{
	{"deepseek", "deepseek"},
	{"gpt-", "openai"},
	{"o1", "openai"},
	{"o3", "openai"},
	{"claude", "openrouter"},
	{"anthropic/", "openrouter"},
	{"google/", "openrouter"},
	{"meta-llama/", "openrouter"},
	{"mistralai/", "openrouter"},
	{"qwen", "openrouter"},
	{"gemini", "openrouter"},
	{"llama", "openrouter"},
}

// ResolveProvider picks the provider for a model.
//
// Priority: explicit provider from the stage config, then auto-detection from
// the model name, then OpenRouter as the universal fallback, then deepseek.
// Each candidate is skipped unless its credential is configured.
func ResolveProvider(model, explicitProvider string) (Provider, error) {
	if explicitProvider != "" {
		if p, ok := Providers[explicitProvider]; ok {
			if !p.IsConfigured() {
				return Provider{}, fmt.Errorf("provider %q selected but %s is not set", explicitProvider, p.APIKeyEnv)
			}
			return p, nil
		}
	}

	modelLower := strings.ToLower(model)
	for _, hint := range modelHints {
		if !strings.Contains(modelLower, hint.substr) {
			continue
		}
		p := Providers[hint.provider]
		if p.IsConfigured() {
			slog.Info("Auto-detected provider", "provider", p.Name, "model", model)
			return p, nil
		}
		slog.Warn("Auto-detected provider not configured, trying fallbacks",
			"provider", p.Name, "model", model, "api_key_env", p.APIKeyEnv)
	}

	if p := Providers["openrouter"]; p.IsConfigured() {
		slog.Info("Using OpenRouter as fallback", "model", model)
		return p, nil
	}

	if p := Providers["deepseek"]; p.IsConfigured() {
		return p, nil
	}

	return Provider{}, fmt.Errorf("%w for model %q", ErrNoProviderConfigured, model)
}

// ConfiguredProviders returns provider name → configured flag, for readiness
// checks.
func ConfiguredProviders() map[string]bool {
	out := make(map[string]bool, len(Providers))
	for name, p := range Providers {
		out[name] = p.IsConfigured()
	}
	return out
}

// AnyProviderConfigured reports whether at least one LLM credential is set.
func AnyProviderConfigured() bool {
	for _, p := range Providers {
		if p.IsConfigured() {
			return true
		}
	}
	return false
}
