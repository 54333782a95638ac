package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearProviderEnv(t *testing.T) {
	t.Helper()
	for _, p := range Providers {
		t.Setenv(p.APIKeyEnv, "")
	}
}

func TestResolveProvider_Explicit(t *testing.T) {
	clearProviderEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-test")

	p, err := ResolveProvider("deepseek-chat", "openai")
	require.NoError(t, err)
	assert.Equal(t, "openai", p.Name)
}

func TestResolveProvider_ExplicitNotConfigured(t *testing.T) {
	clearProviderEnv(t)

	_, err := ResolveProvider("gpt-4o", "openai")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "OPENAI_API_KEY")
}

func TestResolveProvider_AutoDetect(t *testing.T) {
	clearProviderEnv(t)
	t.Setenv("DEEPSEEK_API_KEY", "key")
	t.Setenv("OPENAI_API_KEY", "key")
	t.Setenv("OPENROUTER_API_KEY", "key")

	tests := []struct {
		model    string
		expected string
	}{
		{"deepseek-chat", "deepseek"},
		{"deepseek-reasoner", "deepseek"},
		{"gpt-4o", "openai"},
		{"o3-mini", "openai"},
		{"anthropic/claude-sonnet-4", "openrouter"},
		{"google/gemini-2.0-flash-001", "openrouter"},
		{"meta-llama/llama-4-maverick", "openrouter"},
		{"qwen/qwen3-235b-a22b", "openrouter"},
	}
	for _, tt := range tests {
		p, err := ResolveProvider(tt.model, "")
		require.NoError(t, err, tt.model)
		assert.Equal(t, tt.expected, p.Name, tt.model)
	}
}

func TestResolveProvider_OpenRouterFallback(t *testing.T) {
	clearProviderEnv(t)
	t.Setenv("OPENROUTER_API_KEY", "key")

	// gpt-* maps to openai, but openai is not configured
	p, err := ResolveProvider("gpt-4o", "")
	require.NoError(t, err)
	assert.Equal(t, "openrouter", p.Name)

	// unknown model with no matching hint also lands on openrouter
	p, err = ResolveProvider("some-unknown-model", "")
	require.NoError(t, err)
	assert.Equal(t, "openrouter", p.Name)
}

func TestResolveProvider_DeepseekDefault(t *testing.T) {
	clearProviderEnv(t)
	t.Setenv("DEEPSEEK_API_KEY", "key")

	p, err := ResolveProvider("some-unknown-model", "")
	require.NoError(t, err)
	assert.Equal(t, "deepseek", p.Name)
}

func TestResolveProvider_NothingConfigured(t *testing.T) {
	clearProviderEnv(t)

	_, err := ResolveProvider("gpt-4o", "")
	assert.ErrorIs(t, err, ErrNoProviderConfigured)
}

func TestProvider_ExtraHeaders(t *testing.T) {
	assert.Nil(t, Providers["deepseek"].ExtraHeaders())

	headers := Providers["openrouter"].ExtraHeaders()
	require.NotNil(t, headers)
	assert.Contains(t, headers, "HTTP-Referer")
	assert.Contains(t, headers, "X-Title")
}

func TestAnyProviderConfigured(t *testing.T) {
	clearProviderEnv(t)
	assert.False(t, AnyProviderConfigured())

	t.Setenv("ZAI_API_KEY", "key")
	assert.True(t, AnyProviderConfigured())
}
