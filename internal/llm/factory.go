package llm

import (
	"context"
	"fmt"

	"docagent/internal/config"
)

// New builds a Provider for the requested provider name. "auto" scans the
// local Ollama server first and falls back to Gemini. An empty model selects
// the provider's default.
func New(ctx context.Context, cfg *config.Config, provider, model string, temperature float64) (Provider, error) {
	if provider == "" || provider == "auto" {
		autoProvider, autoModel := DetectDefault(cfg.Ollama.BaseURL)
		provider = autoProvider
		if model == "" {
			model = autoModel
		}
	}

	switch provider {
	case "ollama":
		if model == "" {
			model = config.DefaultOllamaModel
		}
		return NewOllama(model, temperature, cfg.Ollama.BaseURL), nil
	case "gemini":
		if model == "" {
			model = config.DefaultGeminiModel
		}
		return NewGemini(ctx, cfg.Gemini.APIKey, model, temperature)
	case "openai":
		return NewOpenAI(cfg.OpenAI.APIKey, model, temperature, cfg.OpenAI.BaseURL), nil
	}
	return nil, fmt.Errorf("unknown provider: %q (use 'ollama', 'gemini' or 'openai')", provider)
}
