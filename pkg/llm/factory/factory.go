package factory

import (
	"fmt"

	"essay-coach-be/pkg/llm"
	"essay-coach-be/pkg/llm/ollama"
	"essay-coach-be/pkg/llm/openai"
)

type Config struct {
	Provider      string
	Model         string
	OpenAIKey     string
	OpenAIBaseURL string
	OllamaBaseURL string
}

func NewLLMProvider(cfg Config) (llm.LLMProvider, error) {
	switch cfg.Provider {
	case "openai", "":
		if cfg.OpenAIKey == "" && cfg.OpenAIBaseURL == "" {
			return nil, fmt.Errorf("openai provider requires OPENAI_API_KEY")
		}
		return openai.NewOpenAIProvider(cfg.OpenAIKey, cfg.OpenAIBaseURL, cfg.Model), nil
	case "ollama":
		baseURL := cfg.OllamaBaseURL
		if baseURL == "" {
			baseURL = "http://localhost:11434" // Default
		}
		return ollama.NewOllamaProvider(baseURL, cfg.Model), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}
