package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mcpgen/mcpgen/internal/config"
)

func testClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	c, err := New(&config.Resolved{
		APIKey:  "test-key",
		Model:   "test-model",
		BaseURL: baseURL,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestNew_MissingAPIKey(t *testing.T) {
	_, err := New(&config.Resolved{Model: "gpt-4"})
	if err == nil {
		t.Fatal("expected error for missing API key")
	}
	if !strings.Contains(err.Error(), "API key required") {
		t.Errorf("error = %q, want mention of missing API key", err)
	}
}

func TestNew_Defaults(t *testing.T) {
	c, err := New(&config.Resolved{APIKey: "k"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if c.Model() != config.DefaultModel {
		t.Errorf("Model() = %q, want %q", c.Model(), config.DefaultModel)
	}
	if c.baseURL != config.DefaultBaseURL {
		t.Errorf("baseURL = %q, want %q", c.baseURL, config.DefaultBaseURL)
	}
}

func TestComplete(t *testing.T) {
	var gotReq chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("path = %s, want /v1/chat/completions", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("Authorization = %q, want Bearer test-key", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		fmt.Fprint(w, `{
			"choices": [{"message": {"content": "print('hello')"}}],
			"model": "test-model",
			"usage": {"prompt_tokens": 12, "completion_tokens": 7}
		}`)
	}))
	defer server.Close()

	c := testClient(t, server.URL)
	resp, err := c.Complete(context.Background(), CompletionRequest{
		SystemPrompt: "You write Python.",
		UserMessage:  "Say hello.",
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}

	if resp.Content != "print('hello')" {
		t.Errorf("Content = %q, want %q", resp.Content, "print('hello')")
	}
	if resp.TokensIn != 12 || resp.TokensOut != 7 {
		t.Errorf("tokens = %d/%d, want 12/7", resp.TokensIn, resp.TokensOut)
	}

	if gotReq.Model != "test-model" {
		t.Errorf("request model = %q, want %q", gotReq.Model, "test-model")
	}
	if gotReq.Temperature != DefaultTemperature {
		t.Errorf("request temperature = %v, want %v", gotReq.Temperature, DefaultTemperature)
	}
	if len(gotReq.Messages) != 2 {
		t.Fatalf("messages = %d, want 2", len(gotReq.Messages))
	}
	if gotReq.Messages[0].Role != "system" || gotReq.Messages[1].Role != "user" {
		t.Errorf("message roles = %s/%s, want system/user", gotReq.Messages[0].Role, gotReq.Messages[1].Role)
	}
}

func TestComplete_TemperatureOverride(t *testing.T) {
	var gotReq chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		fmt.Fprint(w, `{"choices": [{"message": {"content": "ok"}}]}`)
	}))
	defer server.Close()

	c := testClient(t, server.URL)
	temp := 0.9
	_, err := c.Complete(context.Background(), CompletionRequest{
		UserMessage: "hi",
		Temperature: &temp,
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if gotReq.Temperature != 0.9 {
		t.Errorf("request temperature = %v, want 0.9", gotReq.Temperature)
	}
}

func TestComplete_ZeroTemperature(t *testing.T) {
	// An explicit 0.0 must reach the wire instead of falling back to the
	// default or being dropped from the body.
	var gotBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		fmt.Fprint(w, `{"choices": [{"message": {"content": "ok"}}]}`)
	}))
	defer server.Close()

	c := testClient(t, server.URL)
	zero := 0.0
	if _, err := c.Complete(context.Background(), CompletionRequest{UserMessage: "hi", Temperature: &zero}); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	v, ok := gotBody["temperature"]
	if !ok {
		t.Fatal("temperature missing from request body")
	}
	if v != 0.0 {
		t.Errorf("request temperature = %v, want 0", v)
	}
}

func TestComplete_NoSystemPrompt(t *testing.T) {
	var gotReq chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		fmt.Fprint(w, `{"choices": [{"message": {"content": "ok"}}]}`)
	}))
	defer server.Close()

	c := testClient(t, server.URL)
	if _, err := c.Complete(context.Background(), CompletionRequest{UserMessage: "hi"}); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if len(gotReq.Messages) != 1 {
		t.Fatalf("messages = %d, want 1", len(gotReq.Messages))
	}
	if gotReq.Messages[0].Role != "user" {
		t.Errorf("message role = %s, want user", gotReq.Messages[0].Role)
	}
}

func TestComplete_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error": {"message": "rate limited", "type": "rate_limit_error"}}`)
	}))
	defer server.Close()

	c := testClient(t, server.URL)
	_, err := c.Complete(context.Background(), CompletionRequest{UserMessage: "hi"})
	if err == nil {
		t.Fatal("expected error for HTTP 429")
	}
	if !strings.Contains(err.Error(), "HTTP 429") {
		t.Errorf("error = %q, want mention of HTTP 429", err)
	}
}

func TestComplete_APIErrorBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"error": {"message": "model not found", "type": "invalid_request_error"}}`)
	}))
	defer server.Close()

	c := testClient(t, server.URL)
	_, err := c.Complete(context.Background(), CompletionRequest{UserMessage: "hi"})
	if err == nil {
		t.Fatal("expected error for API error body")
	}
	if !strings.Contains(err.Error(), "invalid_request_error") {
		t.Errorf("error = %q, want mention of invalid_request_error", err)
	}
}

func TestComplete_TrailingSlashBaseURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("path = %s, want /v1/chat/completions", r.URL.Path)
		}
		fmt.Fprint(w, `{"choices": [{"message": {"content": "ok"}}]}`)
	}))
	defer server.Close()

	c := testClient(t, server.URL+"/")
	if _, err := c.Complete(context.Background(), CompletionRequest{UserMessage: "hi"}); err != nil {
		t.Fatalf("Complete: %v", err)
	}
}
