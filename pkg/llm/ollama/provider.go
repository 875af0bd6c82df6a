package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"essay-coach-be/pkg/llm"
)

const chatPath = "/api/chat"

// errorBodyLimit caps how much of a failed response ends up in the error.
const errorBodyLimit = 512

// OllamaProvider talks to a self-hosted Ollama server. Deadlines come from
// the caller's context.
type OllamaProvider struct {
	baseURL string
	model   string
	client  *http.Client
}

var _ llm.LLMProvider = (*OllamaProvider)(nil)

func NewOllamaProvider(baseURL, modelName string) *OllamaProvider {
	return &OllamaProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   modelName,
		client:  &http.Client{},
	}
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Options  *chatOptions  `json:"options,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatOptions struct {
	Temperature *float64 `json:"temperature,omitempty"`
	NumPredict  int      `json:"num_predict,omitempty"`
}

type chatResponse struct {
	Message chatMessage `json:"message"`
	Done    bool        `json:"done"`
	Error   string      `json:"error"`
}

func (o *OllamaProvider) Name() string {
	return "ollama/" + o.model
}

func (o *OllamaProvider) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (string, error) {
	options := llm.Apply(opts...)

	body := chatRequest{
		Model:    o.model,
		Messages: make([]chatMessage, 0, len(history)),
		Options:  &chatOptions{Temperature: options.Temperature, NumPredict: options.MaxTokens},
	}
	if options.Model != "" {
		body.Model = options.Model
	}
	for _, msg := range history {
		body.Messages = append(body.Messages, chatMessage{Role: msg.Role, Content: msg.Content})
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return "", fmt.Errorf("encode ollama request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+chatPath, &buf)
	if err != nil {
		return "", fmt.Errorf("build ollama request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("ollama request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
		return "", fmt.Errorf("ollama error: status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode ollama response: %w", err)
	}
	if out.Error != "" {
		return "", fmt.Errorf("ollama error: %s", out.Error)
	}
	if out.Message.Content == "" {
		return "", fmt.Errorf("ollama returned an empty message")
	}
	return out.Message.Content, nil
}
