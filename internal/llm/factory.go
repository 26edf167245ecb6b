package llm

import (
	"fmt"
	"strings"

	"github.com/clindraft/clindraft/internal/model"
)

// NewProvider creates an LLM provider from configuration.
func NewProvider(cfg model.LLMConfig) (Provider, error) {
	switch strings.ToLower(cfg.Provider) {
	case "ollama":
		return NewOllamaProvider(cfg)

	case "openai":
		return NewOpenAIProvider(cfg)

	default:
		return nil, fmt.Errorf("unknown LLM provider: %q (supported: ollama, openai)", cfg.Provider)
	}
}
