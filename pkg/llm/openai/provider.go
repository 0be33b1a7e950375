package openai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"draco-chat-be/pkg/llm"
)

// OpenAIProvider speaks the OpenAI chat-completions wire format. DeepSeek
// exposes the same API, so the factory reuses this provider with a different
// base URL and provider label.
type OpenAIProvider struct {
	apiKey       string
	baseURL      string
	model        string
	typeName     string // "openai" or "deepseek"
	providerName string
	client       *http.Client
}

var _ llm.LLMProvider = &OpenAIProvider{}

// Request Payload Structure
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []llm.Message `json:"messages"`
	Stream      bool          `json:"stream"`
	Temperature float64       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

func NewOpenAIProvider(apiKey, baseURL, model string) *OpenAIProvider {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	return newProvider(apiKey, baseURL, model, "openai", "OpenAI")
}

func NewDeepseekProvider(apiKey, baseURL, model string) *OpenAIProvider {
	if baseURL == "" {
		baseURL = "https://api.deepseek.com/v1"
	}
	return newProvider(apiKey, baseURL, model, "deepseek", "DeepSeek")
}

func newProvider(apiKey, baseURL, model, typeName, providerName string) *OpenAIProvider {
	return &OpenAIProvider{
		apiKey:       apiKey,
		baseURL:      baseURL,
		model:        model,
		typeName:     typeName,
		providerName: providerName,
		client: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

func (p *OpenAIProvider) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	resp, err := p.send(ctx, history, false, options...)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	bodyBytes, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%s api error (status %d): %s", p.typeName, resp.StatusCode, string(bodyBytes))
	}

	var chatResp chatResponse
	if err := json.Unmarshal(bodyBytes, &chatResp); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	if chatResp.Error != nil {
		return "", fmt.Errorf("%s api returned error: %s", p.typeName, chatResp.Error.Message)
	}

	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("empty choices from %s api", p.typeName)
	}

	return chatResp.Choices[0].Message.Content, nil
}

// ChatStream reads the SSE chunk stream ("data: {json}" lines, "[DONE]"
// sentinel) and forwards each content delta to the handler.
func (p *OpenAIProvider) ChatStream(ctx context.Context, history []llm.Message, handler llm.StreamHandler, options ...llm.Option) (string, error) {
	resp, err := p.send(ctx, history, true, options...)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("%s api error (status %d): %s", p.typeName, resp.StatusCode, string(bodyBytes))
	}

	var full strings.Builder
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "[DONE]" {
			break
		}

		var chunk streamChunk
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			continue
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		full.WriteString(delta)
		if handler != nil {
			if err := handler(delta); err != nil {
				return full.String(), err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return full.String(), fmt.Errorf("read %s stream: %w", p.typeName, err)
	}

	return full.String(), nil
}

func (p *OpenAIProvider) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	return p.Chat(ctx, []llm.Message{{Role: "user", Content: prompt}}, options...)
}

func (p *OpenAIProvider) Info() llm.ModelInfo {
	return llm.ModelInfo{
		Name:     p.model,
		Type:     p.typeName,
		Provider: p.providerName,
	}
}

func (p *OpenAIProvider) send(ctx context.Context, history []llm.Message, stream bool, options ...llm.Option) (*http.Response, error) {
	opts := &llm.Options{
		Temperature: 0.7,
		Model:       p.model,
	}
	for _, o := range options {
		o(opts)
	}

	reqBody := chatRequest{
		Model:       opts.Model,
		Messages:    history,
		Stream:      stream,
		Temperature: opts.Temperature,
	}
	if opts.MaxTokens > 0 {
		reqBody.MaxTokens = opts.MaxTokens
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/chat/completions", p.baseURL)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", p.apiKey))
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	return resp, nil
}
