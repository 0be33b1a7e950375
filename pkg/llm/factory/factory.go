package factory

import (
	"context"
	"fmt"

	"draco-chat-be/pkg/llm"
	"draco-chat-be/pkg/llm/anthropic"
	"draco-chat-be/pkg/llm/ollama"
	"draco-chat-be/pkg/llm/openai"
)

const (
	DefaultModelType = "ollama"
	DefaultModelName = "qwen2.5-coder"
)

// Credentials carries the per-provider keys and base URLs the factory needs.
// Empty fields fall back to each provider's public endpoint.
type Credentials struct {
	OpenAIKey     string
	OpenAIBase    string
	AnthropicKey  string
	AnthropicBase string
	DeepseekKey   string
	DeepseekBase  string
	OllamaBase    string
}

func NewLLMProvider(providerType, modelName string, creds Credentials) (llm.LLMProvider, error) {
	if modelName == "" {
		modelName = DefaultModelName
	}
	switch providerType {
	case "openai":
		if creds.OpenAIKey == "" {
			return nil, fmt.Errorf("openai api key is not configured")
		}
		return openai.NewOpenAIProvider(creds.OpenAIKey, creds.OpenAIBase, modelName), nil
	case "anthropic":
		if creds.AnthropicKey == "" {
			return nil, fmt.Errorf("anthropic api key is not configured")
		}
		return anthropic.NewAnthropicProvider(creds.AnthropicKey, creds.AnthropicBase, modelName), nil
	case "deepseek":
		if creds.DeepseekKey == "" {
			return nil, fmt.Errorf("deepseek api key is not configured")
		}
		return openai.NewDeepseekProvider(creds.DeepseekKey, creds.DeepseekBase, modelName), nil
	case "ollama":
		baseURL := creds.OllamaBase
		if baseURL == "" {
			baseURL = "http://localhost:11434" // Default
		}
		return ollama.NewOllamaProvider(baseURL, modelName), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", providerType)
	}
}

// AvailableModels returns the model catalog. Hosted providers contribute a
// static list; Ollama is queried live and falls back to a static list when
// the daemon is unreachable.
func AvailableModels(ctx context.Context, creds Credentials) []llm.ModelInfo {
	models := []llm.ModelInfo{
		{Name: "gpt-3.5-turbo", Type: "openai", Provider: "OpenAI"},
		{Name: "gpt-4", Type: "openai", Provider: "OpenAI"},
		{Name: "gpt-4-turbo", Type: "openai", Provider: "OpenAI"},
		{Name: "gpt-4o", Type: "openai", Provider: "OpenAI"},
		{Name: "claude-3-opus-20240229", Type: "anthropic", Provider: "Anthropic"},
		{Name: "claude-3-sonnet-20240229", Type: "anthropic", Provider: "Anthropic"},
		{Name: "claude-3-haiku-20240307", Type: "anthropic", Provider: "Anthropic"},
		{Name: "deepseek-chat", Type: "deepseek", Provider: "DeepSeek"},
		{Name: "deepseek-coder", Type: "deepseek", Provider: "DeepSeek"},
	}

	models = append(models, ollamaModels(ctx, creds.OllamaBase)...)
	return models
}

func ollamaModels(ctx context.Context, baseURL string) []llm.ModelInfo {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	provider := ollama.NewOllamaProvider(baseURL, DefaultModelName)
	installed, err := provider.ListModels(ctx)
	if err == nil && len(installed) > 0 {
		return installed
	}
	return []llm.ModelInfo{
		{Name: "qwen2.5-coder", Type: "ollama", Provider: "Ollama"},
		{Name: "llama3", Type: "ollama", Provider: "Ollama"},
		{Name: "mistral", Type: "ollama", Provider: "Ollama"},
	}
}
