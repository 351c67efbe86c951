package llm

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/AIB0I/MyGPT/internal/config"
)

const (
	// EnvGogoMode is the environment variable name for mode selection.
	EnvGogoMode = "GOGO_MODE"
	// ModeMock indicates mock mode should be used.
	ModeMock = "MOCK"
)

// NewModelClient creates the backend selected by cfg.Provider.
// GOGO_MODE=MOCK forces the mock client regardless of configuration.
func NewModelClient(cfg config.LLMConfig, logger zerolog.Logger) (ModelClient, error) {
	if os.Getenv(EnvGogoMode) == ModeMock {
		logger.Warn().Msg("GOGO_MODE=MOCK detected, using mock LLM client")
		return NewMockClient(), nil
	}

	switch cfg.Provider {
	case "openai", "":
		logger.Info().Str("provider", "openai").Str("base_url", cfg.BaseURL).Str("model", cfg.Model).Msg("model client configured")
		return NewClient(cfg.BaseURL, cfg.APIKey, cfg.Timeout(), cfg.MaxTokens), nil
	case "anthropic":
		logger.Info().Str("provider", "anthropic").Str("model", cfg.Model).Msg("model client configured")
		return NewAnthropicClient(cfg.BaseURL, cfg.APIKey, cfg.Timeout(), cfg.MaxTokens), nil
	case "mock":
		logger.Info().Str("provider", "mock").Msg("model client configured")
		return NewMockClient(), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}
