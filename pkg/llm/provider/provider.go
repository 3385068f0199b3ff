// Package provider encodes agentbase chat requests into upstream wire formats
// and parses upstream responses and stream events back.
package provider

import (
	"net/http"

	"github.com/papercomputeco/agentbase/pkg/llm"
)

// Provider knows one upstream completion API format.
type Provider interface {
	// Name returns the canonical provider name (e.g., "openrouter", "anthropic")
	Name() string

	// Endpoint returns the chat completion URL for the given base URL.
	Endpoint(baseURL string) string

	// SetHeaders sets authentication, versioning and attribution headers.
	SetHeaders(h http.Header, creds llm.Credentials)

	// EncodeRequest converts the internal request into the provider's
	// request body.
	EncodeRequest(req *llm.ChatRequest) ([]byte, error)

	// ParseResponse converts a provider-specific response into the internal format.
	ParseResponse(payload []byte) (*llm.ChatResponse, error)

	// ParseStreamChunk converts the data of a single SSE event into the
	// internal format. Returns (nil, nil) if the event should be skipped
	// (e.g., keep-alive pings).
	ParseStreamChunk(payload []byte) (*llm.StreamChunk, error)
}
