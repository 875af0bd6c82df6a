package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"essay-coach-be/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, captured *map[string]interface{}, status int, body string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		if captured != nil {
			require.NoError(t, json.NewDecoder(r.Body).Decode(captured))
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
}

func TestChatBuildsDeterministicRequest(t *testing.T) {
	var captured map[string]interface{}
	srv := newTestServer(t, &captured, http.StatusOK, `{
		"id": "chatcmpl-1",
		"object": "chat.completion",
		"created": 1700000000,
		"model": "gpt-4o-mini",
		"choices": [{"index": 0, "message": {"role": "assistant", "content": "Start with your thesis."}, "finish_reason": "stop"}]
	}`)
	defer srv.Close()

	p := NewOpenAIProvider("test-key", srv.URL+"/v1", "gpt-4o-mini")
	reply, err := p.Chat(context.Background(), []llm.Message{
		{Role: "system", Content: "persona"},
		{Role: "assistant", Content: "greeting"},
		{Role: "user", Content: "What's a good thesis statement?"},
	}, llm.WithTemperature(0), llm.WithMaxTokens(400))

	require.NoError(t, err)
	assert.Equal(t, "Start with your thesis.", reply)
	assert.Equal(t, "gpt-4o-mini", captured["model"])
	assert.Equal(t, float64(400), captured["max_tokens"])
	assert.Len(t, captured["messages"], 3)

	temp, ok := captured["temperature"].(float64)
	require.True(t, ok, "temperature must be sent explicitly")
	assert.Less(t, temp, 1e-30)
}

func TestChatReturnsAPIError(t *testing.T) {
	srv := newTestServer(t, nil, http.StatusTooManyRequests, `{"error": {"message": "quota exceeded", "type": "rate_limit"}}`)
	defer srv.Close()

	p := NewOpenAIProvider("test-key", srv.URL+"/v1", "")
	_, err := p.Chat(context.Background(), []llm.Message{{Role: "user", Content: "hi"}})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestChatRejectsEmptyChoices(t *testing.T) {
	srv := newTestServer(t, nil, http.StatusOK, `{"id": "x", "object": "chat.completion", "choices": []}`)
	defer srv.Close()

	p := NewOpenAIProvider("test-key", srv.URL+"/v1", "")
	_, err := p.Chat(context.Background(), []llm.Message{{Role: "user", Content: "hi"}})

	assert.Error(t, err)
}

func TestTemperature(t *testing.T) {
	assert.Greater(t, temperature(0), float32(0))
	assert.Equal(t, float32(0.5), temperature(0.5))
}
