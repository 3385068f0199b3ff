package llm

// StreamChunk represents a single parsed event from a streaming response.
// A chunk carries any combination of answer text, reasoning text, usage and
// a stop reason. Done marks the upstream's terminal event.
type StreamChunk struct {
	Model string `json:"model,omitempty"`

	// Partial answer text
	Text string `json:"text,omitempty"`

	// Partial reasoning text (extended thinking)
	Reasoning string `json:"reasoning,omitempty"`

	// Stop reason (only present on the final content chunk)
	StopReason string `json:"stop_reason,omitempty"`

	// Usage metrics (typically only present near the end of the stream)
	Usage *Usage `json:"usage,omitempty"`

	// Whether this is the final chunk
	Done bool `json:"done,omitempty"`

	// Error reported in-stream by the upstream
	Error string `json:"error,omitempty"`
}
