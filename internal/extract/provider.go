package extract

import (
	"context"
	"errors"
	"fmt"
)

// Common errors
var (
	ErrMissingGeminiKey = errors.New("GEMINI_API_KEY environment variable is required for gemini provider")
	ErrUnknownProvider  = errors.New("unknown extraction provider")
	ErrUnparsable       = errors.New("extraction response is not valid JSON")
)

// Provider is the capability interface for structured extraction. It abstracts
// the AI service so the pipeline can run against a deterministic implementation
// in tests and against the rules fallback when no API key is configured.
type Provider interface {
	// Name returns the provider name for logging purposes.
	Name() string

	// Extract parses one raw ad into a candidate listing. category is the
	// source site's section label, used as a property-type hint.
	Extract(ctx context.Context, rawText, category string) (*CandidateListing, error)
}

// providerRegistry holds registered provider constructors, so new providers
// can be added without touching this file.
var providerRegistry = make(map[string]func(Config) (Provider, error))

// RegisterProvider registers a provider constructor. Called from init() in
// each provider file.
func RegisterProvider(name string, constructor func(Config) (Provider, error)) {
	providerRegistry[name] = constructor
}

// NewProvider creates a Provider based on the configuration.
func NewProvider(cfg Config) (Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	constructor, ok := providerRegistry[cfg.Provider]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, cfg.Provider)
	}

	return constructor(cfg)
}
