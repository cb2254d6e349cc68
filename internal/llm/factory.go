package llm

import (
	"fmt"
	"strings"

	"github.com/ppiankov/decision-ledger/internal/model"
)

// NewProvider creates a new LLM provider based on configuration. An empty
// provider name disables explanations and returns nil.
func NewProvider(config Config) (Provider, error) {
	switch strings.ToLower(config.Provider) {
	case "openai":
		return NewOpenAIProvider(config)

	case "":
		return nil, nil

	default:
		return nil, fmt.Errorf("unknown LLM provider: %s (supported: openai)", config.Provider)
	}
}

// ConfigFromModel converts model.LLMConfig to llm.Config
func ConfigFromModel(modelConfig model.LLMConfig) Config {
	return Config{
		Provider:      modelConfig.Provider,
		Model:         modelConfig.Model,
		APIKey:        modelConfig.APIKey,
		BaseURL:       modelConfig.BaseURL,
		HTTPProxy:     modelConfig.HTTPProxy,
		HTTPSProxy:    modelConfig.HTTPSProxy,
		Timeout:       modelConfig.Timeout,
		StrictFigures: modelConfig.StrictFigures,
		MaxTokens:     modelConfig.MaxTokens,
	}
}
