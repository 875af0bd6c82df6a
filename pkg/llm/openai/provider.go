package openai

import (
	"context"
	"errors"
	"fmt"
	"math"

	"essay-coach-be/pkg/llm"

	goopenai "github.com/sashabaranov/go-openai"
)

// OpenAIProvider talks to any OpenAI compatible chat completions endpoint.
type OpenAIProvider struct {
	client    *goopenai.Client
	modelName string
}

var _ llm.LLMProvider = &OpenAIProvider{}

func NewOpenAIProvider(apiKey, baseURL, modelName string) *OpenAIProvider {
	clientConfig := goopenai.DefaultConfig(apiKey)
	if baseURL != "" {
		clientConfig.BaseURL = baseURL
	}
	if modelName == "" {
		modelName = "gpt-4o-mini"
	}

	return &OpenAIProvider{
		client:    goopenai.NewClientWithConfig(clientConfig),
		modelName: modelName,
	}
}

func (p *OpenAIProvider) Name() string {
	return "openai/" + p.modelName
}

func (p *OpenAIProvider) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (string, error) {
	options := llm.Apply(opts...)

	messages := make([]goopenai.ChatCompletionMessage, 0, len(history))
	for _, msg := range history {
		messages = append(messages, goopenai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		})
	}

	model := p.modelName
	if options.Model != "" {
		model = options.Model
	}

	req := goopenai.ChatCompletionRequest{
		Model:     model,
		Messages:  messages,
		MaxTokens: options.MaxTokens,
	}
	if options.Temperature != nil {
		req.Temperature = temperature(*options.Temperature)
	}

	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		var apiErr *goopenai.APIError
		if errors.As(err, &apiErr) {
			return "", fmt.Errorf("openai error: status %d: %s", apiErr.HTTPStatusCode, apiErr.Message)
		}
		return "", fmt.Errorf("openai request failed: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("openai returned no content")
	}

	return resp.Choices[0].Message.Content, nil
}

// temperature maps 0 to the smallest positive float32. The request field is
// omitempty, so a literal 0 would fall back to the server default of 1.
func temperature(t float64) float32 {
	if t <= 0 {
		return math.SmallestNonzeroFloat32
	}
	return float32(t)
}
