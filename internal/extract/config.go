package extract

import (
	"os"
	"strings"
)

const (
	ProviderGemini = "gemini"
	ProviderRules  = "rules"
)

// DefaultGeminiModel is the model used when GEMINI_MODEL is not set.
const DefaultGeminiModel = "gemini-2.0-flash"

// Config holds configuration for the extraction provider.
type Config struct {
	// Provider name: "gemini" or "rules"
	Provider string

	// Gemini-specific config
	GeminiAPIKey string
	GeminiModel  string
}

// LoadFromEnv loads extraction configuration from environment variables.
//
// Environment variables:
//   - EXTRACT_PROVIDER: "gemini" or "rules" (default: "gemini" when
//     GEMINI_API_KEY is set, otherwise "rules")
//   - GEMINI_API_KEY: API key for the Gemini API
//   - GEMINI_MODEL: model name (default: gemini-2.0-flash)
func LoadFromEnv() Config {
	provider := strings.ToLower(strings.TrimSpace(os.Getenv("EXTRACT_PROVIDER")))
	key := os.Getenv("GEMINI_API_KEY")

	if provider == "" {
		if key != "" {
			provider = ProviderGemini
		} else {
			provider = ProviderRules
		}
	}

	model := strings.TrimSpace(os.Getenv("GEMINI_MODEL"))
	if model == "" {
		model = DefaultGeminiModel
	}

	return Config{
		Provider:     provider,
		GeminiAPIKey: key,
		GeminiModel:  model,
	}
}

// Validate checks that the configuration is valid for the selected provider.
func (c Config) Validate() error {
	if c.Provider == ProviderGemini && c.GeminiAPIKey == "" {
		return ErrMissingGeminiKey
	}
	return nil
}
