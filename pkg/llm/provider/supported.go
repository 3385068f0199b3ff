package provider

import (
	"fmt"

	"github.com/papercomputeco/agentbase/pkg/llm/provider/anthropic"
	"github.com/papercomputeco/agentbase/pkg/llm/provider/openrouter"
)

// Supported provider type constants
const (
	OpenRouter = "openrouter"
	Anthropic  = "anthropic"
)

// SupportedProviders returns the list of all supported provider type names.
func SupportedProviders() []string {
	return []string{OpenRouter, Anthropic}
}

// New creates a new Provider instance for the given provider type.
// Returns an error if the provider type is not recognized.
func New(providerType string) (Provider, error) {
	switch providerType {
	case OpenRouter:
		return openrouter.New(), nil
	case Anthropic:
		return anthropic.New(), nil
	default:
		return nil, fmt.Errorf("unknown provider type: %q (supported: %v)", providerType, SupportedProviders())
	}
}
