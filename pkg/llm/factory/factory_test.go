package factory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLLMProvider(t *testing.T) {
	creds := Credentials{
		OpenAIKey:    "sk-test",
		AnthropicKey: "ak-test",
		DeepseekKey:  "dk-test",
	}

	tests := []struct {
		name         string
		providerType string
		model        string
		wantErr      bool
		wantType     string
	}{
		{name: "openai", providerType: "openai", model: "gpt-4o", wantType: "openai"},
		{name: "anthropic", providerType: "anthropic", model: "claude-3-haiku-20240307", wantType: "anthropic"},
		{name: "deepseek", providerType: "deepseek", model: "deepseek-coder", wantType: "deepseek"},
		{name: "ollama", providerType: "ollama", model: "qwen2.5-coder", wantType: "ollama"},
		{name: "unknown provider", providerType: "bard", model: "x", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider, err := NewLLMProvider(tt.providerType, tt.model, creds)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			info := provider.Info()
			assert.Equal(t, tt.wantType, info.Type)
			assert.Equal(t, tt.model, info.Name)
		})
	}
}

func TestNewLLMProviderMissingKey(t *testing.T) {
	_, err := NewLLMProvider("openai", "gpt-4", Credentials{})
	assert.Error(t, err)

	_, err = NewLLMProvider("anthropic", "claude-3-opus-20240229", Credentials{})
	assert.Error(t, err)

	_, err = NewLLMProvider("deepseek", "deepseek-chat", Credentials{})
	assert.Error(t, err)
}

func TestNewLLMProviderDefaultModel(t *testing.T) {
	provider, err := NewLLMProvider("ollama", "", Credentials{})
	require.NoError(t, err)
	assert.Equal(t, DefaultModelName, provider.Info().Name)
}
