package llm

import "strings"

// Roles used in chat messages.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Content block types.
const (
	BlockText     = "text"
	BlockThinking = "thinking"
)

// Message represents a single message in a conversation.
// Content is stored as an array of ContentBlocks so reasoning produced during
// extended thinking can travel next to the visible answer.
type Message struct {
	Role    string         `json:"role"`
	Content []ContentBlock `json:"content"`
}

// ContentBlock represents a single piece of content within a message.
// The Type field determines which other fields are populated.
type ContentBlock struct {
	Type string `json:"type"` // "text", "thinking"

	// Text content (type="text")
	Text string `json:"text,omitempty"`

	// Reasoning content (type="thinking")
	Thinking  string `json:"thinking,omitempty"`
	Signature string `json:"signature,omitempty"`
}

// NewTextMessage creates a simple text message with the given role and content.
func NewTextMessage(role, text string) Message {
	return Message{
		Role: role,
		Content: []ContentBlock{
			{Type: BlockText, Text: text},
		},
	}
}

// GetText returns the concatenated text content from all text blocks in the message.
func (m *Message) GetText() string {
	var b strings.Builder
	for _, block := range m.Content {
		if block.Type == BlockText {
			b.WriteString(block.Text)
		}
	}
	return b.String()
}

// GetThinking returns the concatenated reasoning from all thinking blocks.
func (m *Message) GetThinking() string {
	var b strings.Builder
	for _, block := range m.Content {
		if block.Type == BlockThinking {
			b.WriteString(block.Thinking)
		}
	}
	return b.String()
}
