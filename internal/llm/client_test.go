package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/pagesmith/internal/config"
	"git.home.luguber.info/inful/pagesmith/internal/foundation/errors"
)

func newTestClient(t *testing.T, timeout time.Duration, handler http.HandlerFunc) *OpenAIClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewOpenAIClient(config.LLMConfig{
		APIKey:  "sk-test",
		BaseURL: srv.URL + "/v1/",
		Model:   "test-model",
		Timeout: timeout,
	}, nil)
}

func TestComplete_Success(t *testing.T) {
	c := newTestClient(t, time.Second, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var body chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "test-model", body.Model)
		assert.Len(t, body.Messages, 2)
		assert.Equal(t, 1000, body.MaxTokens)
		assert.False(t, body.Stream)

		_, _ = w.Write([]byte(`{"model":"test-model","choices":[{"message":{"role":"assistant","content":"<html></html>"},"finish_reason":"stop"}],"usage":{"completion_tokens":3}}`))
	})

	resp, err := c.Complete(context.Background(), Request{
		Messages:    []Message{{Role: RoleSystem, Content: "sys"}, {Role: RoleUser, Content: "hi"}},
		Temperature: 0.5,
		MaxTokens:   1000,
	})
	require.NoError(t, err)
	assert.Equal(t, "<html></html>", resp.Content)
	assert.Equal(t, "stop", resp.FinishReason)
	assert.Equal(t, 3, resp.Usage.CompletionTokens)
}

func TestComplete_Errors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		category errors.ErrorCategory
	}{
		{"unauthorized", http.StatusUnauthorized, `{"error":{"message":"bad key"}}`, errors.CategoryAuth},
		{"server error", http.StatusInternalServerError, `boom`, errors.CategoryLLM},
		{"no choices", http.StatusOK, `{"choices":[]}`, errors.CategoryLLM},
		{"error object", http.StatusOK, `{"error":{"type":"invalid","message":"nope"}}`, errors.CategoryLLM},
		{"malformed", http.StatusOK, `{`, errors.CategoryLLM},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, time.Second, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			_, err := c.Complete(context.Background(), Request{})
			require.Error(t, err)
			assert.Equal(t, tt.category, errors.GetCategory(err))
		})
	}
}

func TestComplete_Timeout(t *testing.T) {
	c := newTestClient(t, 50*time.Millisecond, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(time.Second):
		case <-r.Context().Done():
		}
	})
	_, err := c.Complete(context.Background(), Request{})
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryNetwork))
}
