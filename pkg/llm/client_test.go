package llm

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

func testProvider(baseURL string) Provider {
	return Provider{Name: "test", BaseURL: baseURL, APIKeyEnv: "TEST_LLM_KEY"}
}

func completionBody(content string, promptTokens, completionTokens int) []byte {
	resp := map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"content": content}},
		},
		"usage": map[string]any{
			"prompt_tokens":     promptTokens,
			"completion_tokens": completionTokens,
		},
	}
	data, _ := json.Marshal(resp)
	return data
}

func TestComplete_Success(t *testing.T) {
	t.Setenv("TEST_LLM_KEY", "secret")

	var gotReq ChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		_, _ = w.Write(completionBody("formatted text", 120, 45))
	}))
	defer srv.Close()

	client := NewClient()
	content, usage, err := client.Complete(context.Background(), testProvider(srv.URL), CompletionParams{
		Model:         "deepseek-chat",
		SystemMessage: "be brief",
		Prompt:        "hello",
		Temperature:   0.3,
		MaxTokens:     4096,
		Timeout:       5 * time.Second,
	})
	require.NoError(t, err)

	assert.Equal(t, "formatted text", content)
	assert.Equal(t, 120, usage.InputTokens)
	assert.Equal(t, 45, usage.OutputTokens)

	assert.False(t, gotReq.Stream)
	assert.Equal(t, "deepseek-chat", gotReq.Model)
	require.Len(t, gotReq.Messages, 2)
	assert.Equal(t, "system", gotReq.Messages[0].Role)
	assert.Equal(t, "user", gotReq.Messages[1].Role)
}

func TestComplete_RetriesOn429(t *testing.T) {
	t.Setenv("TEST_LLM_KEY", "secret")

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write(completionBody("ok", 1, 1))
	}))
	defer srv.Close()

	client := NewClient()
	content, _, err := client.Complete(context.Background(), testProvider(srv.URL), CompletionParams{
		Model: "deepseek-chat", Timeout: 5 * time.Second,
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", content)
	assert.Equal(t, int32(2), calls.Load())
}

func TestComplete_RateLimitExhaustsFullSchedule(t *testing.T) {
	t.Setenv("TEST_LLM_KEY", "secret")

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := NewClient()
	_, _, err := client.Complete(context.Background(), testProvider(srv.URL), CompletionParams{
		Model: "deepseek-chat", Timeout: 5 * time.Second,
	})
	require.Error(t, err)

	// one request after each of the three scheduled delays
	assert.Equal(t, int32(4), calls.Load())
	assert.Contains(t, err.Error(), "after 4 attempts")
}

func TestComplete_RetriesOn5xx(t *testing.T) {
	t.Setenv("TEST_LLM_KEY", "secret")

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write(completionBody("recovered", 1, 1))
	}))
	defer srv.Close()

	client := NewClient()
	content, _, err := client.Complete(context.Background(), testProvider(srv.URL), CompletionParams{
		Model: "deepseek-chat", Timeout: 5 * time.Second,
	})
	require.NoError(t, err)
	assert.Equal(t, "recovered", content)
	assert.Equal(t, int32(3), calls.Load())
}

func TestComplete_NoRetryOnPermanent4xx(t *testing.T) {
	t.Setenv("TEST_LLM_KEY", "secret")

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error": "invalid api key"}`))
	}))
	defer srv.Close()

	client := NewClient()
	_, _, err := client.Complete(context.Background(), testProvider(srv.URL), CompletionParams{
		Model: "deepseek-chat", Timeout: 5 * time.Second,
	})
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.True(t, apiErr.IsPermanent())
	assert.Equal(t, int32(1), calls.Load())
}

func TestComplete_EmptyChoices(t *testing.T) {
	t.Setenv("TEST_LLM_KEY", "secret")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices": [], "usage": {"prompt_tokens": 10, "completion_tokens": 0}}`))
	}))
	defer srv.Close()

	client := NewClient()
	content, usage, err := client.Complete(context.Background(), testProvider(srv.URL), CompletionParams{
		Model: "deepseek-chat", MaxTokens: 0, Timeout: 5 * time.Second,
	})
	require.NoError(t, err)
	assert.Empty(t, content)
	assert.Equal(t, 10, usage.InputTokens)
	assert.Zero(t, usage.OutputTokens)
}
