// Package llm provides internal, provider-agnostic representations of chat
// completion requests, responses and stream chunks.
package llm

// ErrorResponse is the JSON error body returned by agentbase endpoints.
type ErrorResponse struct {
	Error string `json:"error"`
}
