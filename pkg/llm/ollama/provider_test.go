package ollama

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

func TestChatSendsExplicitZeroTemperature(t *testing.T) {
	var captured map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"model":   "llama3",
			"message": map[string]string{"role": "assistant", "content": "Let's outline."},
			"done":    true,
		})
	}))
	defer srv.Close()

	p := NewOllamaProvider(srv.URL, "llama3")
	reply, err := p.Chat(context.Background(),
		[]llm.Message{{Role: "system", Content: "persona"}, {Role: "user", Content: "hi"}},
		llm.WithTemperature(0), llm.WithMaxTokens(400),
	)
	require.NoError(t, err)
	assert.Equal(t, "Let's outline.", reply)

	options := captured["options"].(map[string]interface{})
	assert.Equal(t, float64(0), options["temperature"])
	assert.Equal(t, float64(400), options["num_predict"])
	assert.Len(t, captured["messages"], 2)
	assert.Equal(t, false, captured["stream"])
}

func TestChatSurfacesHTTPErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := NewOllamaProvider(srv.URL, "llama3")
	_, err := p.Chat(context.Background(), []llm.Message{{Role: "user", Content: "hi"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
}
