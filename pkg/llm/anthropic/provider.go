package anthropic

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

const apiVersion = "2023-06-01"

// AnthropicProvider speaks the Anthropic Messages API. System messages in the
// history are lifted into the top-level system field as the API requires.
type AnthropicProvider struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

var _ llm.LLMProvider = &AnthropicProvider{}

type messagesRequest struct {
	Model     string        `json:"model"`
	System    string        `json:"system,omitempty"`
	Messages  []llm.Message `json:"messages"`
	MaxTokens int           `json:"max_tokens"`
	Stream    bool          `json:"stream,omitempty"`

	Temperature float64 `json:"temperature,omitempty"`
}

type messagesResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

type streamEvent struct {
	Type  string `json:"type"`
	Delta struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"delta"`
}

func NewAnthropicProvider(apiKey, baseURL, model string) *AnthropicProvider {
	if baseURL == "" {
		baseURL = "https://api.anthropic.com"
	}
	return &AnthropicProvider{
		apiKey:  apiKey,
		baseURL: baseURL,
		model:   model,
		client: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

func (p *AnthropicProvider) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	resp, err := p.send(ctx, history, false, options...)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	bodyBytes, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("anthropic api error (status %d): %s", resp.StatusCode, string(bodyBytes))
	}

	var msgResp messagesResponse
	if err := json.Unmarshal(bodyBytes, &msgResp); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	if msgResp.Error != nil {
		return "", fmt.Errorf("anthropic api returned error: %s", msgResp.Error.Message)
	}

	var sb strings.Builder
	for _, block := range msgResp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	return sb.String(), nil
}

// ChatStream reads the SSE event stream and forwards text deltas from
// content_block_delta events to the handler.
func (p *AnthropicProvider) ChatStream(ctx context.Context, history []llm.Message, handler llm.StreamHandler, options ...llm.Option) (string, error) {
	resp, err := p.send(ctx, history, true, options...)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("anthropic api error (status %d): %s", resp.StatusCode, string(bodyBytes))
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

		var ev streamEvent
		if err := json.Unmarshal([]byte(payload), &ev); err != nil {
			continue
		}
		if ev.Type == "message_stop" {
			break
		}
		if ev.Type != "content_block_delta" || ev.Delta.Text == "" {
			continue
		}
		full.WriteString(ev.Delta.Text)
		if handler != nil {
			if err := handler(ev.Delta.Text); err != nil {
				return full.String(), err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return full.String(), fmt.Errorf("read anthropic stream: %w", err)
	}

	return full.String(), nil
}

func (p *AnthropicProvider) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	return p.Chat(ctx, []llm.Message{{Role: "user", Content: prompt}}, options...)
}

func (p *AnthropicProvider) Info() llm.ModelInfo {
	return llm.ModelInfo{
		Name:     p.model,
		Type:     "anthropic",
		Provider: "Anthropic",
	}
}

func (p *AnthropicProvider) send(ctx context.Context, history []llm.Message, stream bool, options ...llm.Option) (*http.Response, error) {
	opts := &llm.Options{
		Temperature: 0.7,
		MaxTokens:   4096,
		Model:       p.model,
	}
	for _, o := range options {
		o(opts)
	}

	var system string
	messages := make([]llm.Message, 0, len(history))
	for _, msg := range history {
		if msg.Role == "system" {
			system = msg.Content
			continue
		}
		role := msg.Role
		if role == "model" {
			role = "assistant"
		}
		messages = append(messages, llm.Message{Role: role, Content: msg.Content})
	}

	reqBody := messagesRequest{
		Model:       opts.Model,
		System:      system,
		Messages:    messages,
		MaxTokens:   opts.MaxTokens,
		Stream:      stream,
		Temperature: opts.Temperature,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/messages", p.baseURL)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", p.apiKey)
	req.Header.Set("anthropic-version", apiVersion)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	return resp, nil
}
