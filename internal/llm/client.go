package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/mcpgen/mcpgen/internal/config"
)

// DefaultTemperature balances determinism against variety for code output.
const DefaultTemperature = 0.3

// Client talks to an OpenAI-compatible chat completions endpoint. The base
// URL selects the backend; the wire format is always the same.
type Client struct {
	apiKey  string
	model   string
	baseURL string
}

// New builds a client from resolved configuration. A missing API key is a
// precondition failure reported here, before any network call.
func New(cfg *config.Resolved) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key required: set api-key with 'mcpgen config set', export OPENAI_API_KEY, or pass --api-key")
	}
	model := cfg.Model
	if model == "" {
		model = config.DefaultModel
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = config.DefaultBaseURL
	}
	return &Client{apiKey: cfg.APIKey, model: model, baseURL: baseURL}, nil
}

// Model returns the model name requests default to.
func (c *Client) Model() string { return c.model }

// CompletionRequest describes one chat completion call.
type CompletionRequest struct {
	Model        string // defaults to the client's model
	SystemPrompt string
	UserMessage  string
	Temperature  *float64 // nil means DefaultTemperature; an explicit zero is sent as zero
}

// CompletionResponse carries the first choice and usage counts.
type CompletionResponse struct {
	Content   string
	Model     string
	TokensIn  int
	TokensOut int
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Model string `json:"model"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Complete sends one chat completion request and returns the first choice.
// Failures are surfaced to the caller; nothing is retried. Cancellation and
// deadlines come from ctx.
func (c *Client) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}
	temperature := DefaultTemperature
	if req.Temperature != nil {
		temperature = *req.Temperature
	}

	messages := []chatMessage{}
	if req.SystemPrompt != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.SystemPrompt})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.UserMessage})

	body := chatRequest{
		Model:       model,
		Messages:    messages,
		Temperature: temperature,
	}

	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	url := strings.TrimRight(c.baseURL, "/") + "/v1/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := http.DefaultClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("openai API error (HTTP %d): %s", resp.StatusCode, string(respData))
	}

	var apiResp chatResponse
	if err := json.Unmarshal(respData, &apiResp); err != nil {
		return nil, fmt.Errorf("parsing response: %w", err)
	}

	if apiResp.Error != nil {
		return nil, fmt.Errorf("openai API error: %s: %s", apiResp.Error.Type, apiResp.Error.Message)
	}

	content := ""
	if len(apiResp.Choices) > 0 {
		content = apiResp.Choices[0].Message.Content
	}

	return &CompletionResponse{
		Content:   content,
		Model:     apiResp.Model,
		TokensIn:  apiResp.Usage.PromptTokens,
		TokensOut: apiResp.Usage.CompletionTokens,
	}, nil
}
