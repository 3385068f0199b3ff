package llm

// ChatRequest represents a provider-agnostic chat completion request.
// Providers encode it into their own wire format.
type ChatRequest struct {
	// Upstream model id (e.g., "anthropic/claude-sonnet-4", "claude-sonnet-4-0")
	Model string `json:"model"`

	// Conversation messages
	Messages []Message `json:"messages"`

	// System prompt (some providers handle this separately from messages)
	System string `json:"system,omitempty"`

	// Whether to stream the response
	Stream bool `json:"stream,omitempty"`

	// Generation parameters (unified across providers)
	MaxTokens   *int     `json:"max_tokens,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`

	// Extended thinking, nil when disabled
	Thinking *ThinkingConfig `json:"thinking,omitempty"`
}

// ThinkingConfig enables extended thinking with a reasoning token budget.
type ThinkingConfig struct {
	BudgetTokens int `json:"budget_tokens"`
}
