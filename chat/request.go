package chat

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/papercomputeco/agentbase/pkg/llm"
)

// Request is the body of POST /api/chat.
type Request struct {
	Messages       []UIMessage `json:"messages"`
	ConversationID string      `json:"conversationId,omitempty"`
	ModelID        string      `json:"modelId,omitempty"`
}

// UIMessage is a chat message as sent by the web client. Text arrives either
// as typed parts or as plain content.
type UIMessage struct {
	ID      string    `json:"id,omitempty"`
	Role    string    `json:"role"`
	Content UIContent `json:"content,omitzero"`
	Parts   []UIPart  `json:"parts,omitempty"`
}

// UIPart is one part of a UIMessage. Only "text" parts carry conversation text.
type UIPart struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// UIContent accepts a content string or an array of typed parts.
type UIContent struct {
	Text string
}

// UnmarshalJSON implements json.Unmarshaler.
func (c *UIContent) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		c.Text = ""
		return nil
	}

	if data[0] == '"' {
		return json.Unmarshal(data, &c.Text)
	}

	var parts []UIPart
	if err := json.Unmarshal(data, &parts); err != nil {
		return err
	}
	c.Text = joinText(parts)
	return nil
}

// MarshalJSON implements json.Marshaler.
func (c UIContent) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Text)
}

// IsZero reports whether c holds no text.
func (c UIContent) IsZero() bool {
	return c.Text == ""
}

// Text returns the message text, preferring parts over content.
func (m UIMessage) Text() string {
	if len(m.Parts) > 0 {
		return joinText(m.Parts)
	}
	return m.Content.Text
}

func joinText(parts []UIPart) string {
	var b strings.Builder
	for _, p := range parts {
		if p.Type == "text" {
			b.WriteString(p.Text)
		}
	}
	return b.String()
}

// LLMMessages converts the request messages to upstream messages, skipping
// messages with an unknown role or no text.
func (r *Request) LLMMessages() []llm.Message {
	out := make([]llm.Message, 0, len(r.Messages))
	for _, m := range r.Messages {
		switch m.Role {
		case llm.RoleUser, llm.RoleAssistant, llm.RoleSystem:
		default:
			continue
		}

		text := m.Text()
		if strings.TrimSpace(text) == "" {
			continue
		}
		out = append(out, llm.NewTextMessage(m.Role, text))
	}
	return out
}

// FirstUserText returns the text of the first user message.
func (r *Request) FirstUserText() string {
	for _, m := range r.Messages {
		if m.Role == llm.RoleUser {
			if text := m.Text(); strings.TrimSpace(text) != "" {
				return text
			}
		}
	}
	return ""
}

// LastUserText returns the text of the last message when it is a user
// message, or "".
func (r *Request) LastUserText() string {
	msgs := r.LLMMessages()
	if len(msgs) == 0 {
		return ""
	}
	last := msgs[len(msgs)-1]
	if last.Role != llm.RoleUser {
		return ""
	}
	return last.GetText()
}
