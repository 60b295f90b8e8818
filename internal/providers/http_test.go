package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastBackoff(t *testing.T) {
	t.Helper()
	orig := backoffUnit
	backoffUnit = time.Millisecond
	t.Cleanup(func() { backoffUnit = orig })
}

func TestAnthropic_Review(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.Equal(t, anthropicAPIVersion, r.Header.Get("anthropic-version"))

		var body anthropicRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "sys", body.System)
		assert.Equal(t, 10, body.MaxTokens)

		_ = json.NewEncoder(w).Encode(anthropicResponse{
			Content: []anthropicBlock{
				{Type: "text", Text: "FILE: a.go\n"},
				{Type: "tool_use", Text: "ignored"},
				{Type: "text", Text: "ISSUE: x"},
			},
			Usage: anthropicUsage{InputTokens: 100, OutputTokens: 10},
		})
	}))
	defer server.Close()

	a, err := NewAnthropic(Options{APIKey: "test-key", Model: "claude", BaseURL: server.URL})
	require.NoError(t, err)

	resp, err := a.Review(context.Background(), ReviewRequest{SystemPrompt: "sys", UserPrompt: "diff", MaxTokens: 10})
	require.NoError(t, err)
	assert.Equal(t, "FILE: a.go\nISSUE: x", resp.Content)
	assert.Equal(t, 110, resp.TokensUsed)
}

func TestAnthropic_ServerErrorRetried(t *testing.T) {
	fastBackoff(t)
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) <= 2 {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":"internal"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(anthropicResponse{
			Content: []anthropicBlock{{Type: "text", Text: "NO ISSUES"}},
		})
	}))
	defer server.Close()

	a, err := NewAnthropic(Options{APIKey: "k", Model: "m", BaseURL: server.URL})
	require.NoError(t, err)

	resp, err := a.Review(context.Background(), ReviewRequest{UserPrompt: "diff"})
	require.NoError(t, err)
	assert.Equal(t, "NO ISSUES", resp.Content)
	assert.Equal(t, int32(3), attempts.Load())
}

func TestAnthropic_AuthError(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`invalid x-api-key`))
	}))
	defer server.Close()

	a, err := NewAnthropic(Options{APIKey: "bad", Model: "m", BaseURL: server.URL})
	require.NoError(t, err)

	_, err = a.Review(context.Background(), ReviewRequest{UserPrompt: "diff"})
	require.Error(t, err)
	assert.True(t, IsAuthError(err))
	assert.Equal(t, int32(1), attempts.Load(), "auth errors must not be retried")
}

func TestOpenAI_Review(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var body openaiRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if assert.Len(t, body.Messages, 2) {
			assert.Equal(t, "system", body.Messages[0].Role)
			assert.Equal(t, "user", body.Messages[1].Role)
		}
		assert.Nil(t, body.Temperature)

		_ = json.NewEncoder(w).Encode(openaiResponse{
			Choices: []openaiChoice{{Message: openaiMessage{Role: "assistant", Content: "NO ISSUES"}}},
			Usage:   openaiUsage{TotalTokens: 42},
		})
	}))
	defer server.Close()

	o, err := NewOpenAI(Options{APIKey: "sk-test", Model: "gpt", BaseURL: server.URL + "/v1"})
	require.NoError(t, err)

	resp, err := o.Review(context.Background(), ReviewRequest{SystemPrompt: "s", UserPrompt: "u"})
	require.NoError(t, err)
	assert.Equal(t, "NO ISSUES", resp.Content)
	assert.Equal(t, 42, resp.TokensUsed)
}

func TestOpenAI_NoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	o, err := NewOpenAI(Options{APIKey: "k", Model: "m", BaseURL: server.URL})
	require.NoError(t, err)

	_, err = o.Review(context.Background(), ReviewRequest{UserPrompt: "u"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no choices")
}

func TestOpenAI_RateLimitExhausted(t *testing.T) {
	fastBackoff(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	o, err := NewOpenAI(Options{APIKey: "k", Model: "m", BaseURL: server.URL, MaxRetries: 1})
	require.NoError(t, err)

	_, err = o.Review(context.Background(), ReviewRequest{UserPrompt: "u"})
	require.Error(t, err)
	assert.True(t, IsRateLimited(err))
}

func TestOllama_NoAuthHeaderWithoutKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(openaiResponse{
			Choices: []openaiChoice{{Message: openaiMessage{Content: "NO ISSUES"}}},
		})
	}))
	defer server.Close()

	o, err := NewOllama(Options{Model: "llama3", BaseURL: server.URL + "/v1/chat/completions"})
	require.NoError(t, err)
	assert.Equal(t, "ollama", o.Name())
	assert.Equal(t, server.URL+"/v1/chat/completions", o.url)

	resp, err := o.Review(context.Background(), ReviewRequest{UserPrompt: "u"})
	require.NoError(t, err)
	assert.Equal(t, "NO ISSUES", resp.Content)
}

func TestChatCompletionsURL(t *testing.T) {
	tests := []struct{ in, want string }{
		{"http://localhost:11434", "http://localhost:11434/v1/chat/completions"},
		{"http://localhost:11434/", "http://localhost:11434/v1/chat/completions"},
		{"http://localhost:1234/v1", "http://localhost:1234/v1/chat/completions"},
		{"http://localhost:1234/v1/chat/completions/", "http://localhost:1234/v1/chat/completions"},
		{"https://example.com/proxy/v1/chat/completions", "https://example.com/proxy/v1/chat/completions"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, chatCompletionsURL(tt.in), "chatCompletionsURL(%q)", tt.in)
	}
}
