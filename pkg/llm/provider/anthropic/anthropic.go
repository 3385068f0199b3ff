// Package anthropic speaks Anthropic's Messages API, including extended
// thinking.
package anthropic

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/papercomputeco/agentbase/pkg/llm"
)

const (
	apiVersion = "2023-06-01"

	// defaultMaxTokens bounds the visible answer. With thinking enabled the
	// request max_tokens is the thinking budget plus this value, since
	// Anthropic requires max_tokens to exceed budget_tokens.
	defaultMaxTokens = 4096
)

// provider implements the Provider interface for Anthropic's Claude API.
type provider struct{}

// New returns the Anthropic Messages API provider.
func New() *provider { return &provider{} }

// Name returns the route name, "anthropic".
func (p *provider) Name() string {
	return "anthropic"
}

func (p *provider) Endpoint(baseURL string) string {
	return strings.TrimRight(baseURL, "/") + "/v1/messages"
}

func (p *provider) SetHeaders(h http.Header, creds llm.Credentials) {
	h.Set("Content-Type", "application/json")
	h.Set("anthropic-version", apiVersion)
	if creds.APIKey != "" {
		h.Set("x-api-key", creds.APIKey)
	}
}

func (p *provider) EncodeRequest(req *llm.ChatRequest) ([]byte, error) {
	system := []string{}
	if req.System != "" {
		system = append(system, req.System)
	}

	messages := make([]anthropicMessage, 0, len(req.Messages))
	for _, msg := range req.Messages {
		text := msg.GetText()
		if msg.Role == llm.RoleSystem {
			if text != "" {
				system = append(system, text)
			}
			continue
		}

		// Prior thinking blocks are dropped: replaying them requires the
		// original signature, which stored history does not keep.
		messages = append(messages, anthropicMessage{
			Role:    msg.Role,
			Content: []anthropicContentBlock{{Type: llm.BlockText, Text: text}},
		})
	}

	body := messagesRequest{
		Model:       req.Model,
		Messages:    messages,
		System:      strings.Join(system, "\n\n"),
		MaxTokens:   defaultMaxTokens,
		Temperature: req.Temperature,
		Stream:      req.Stream,
	}
	if req.MaxTokens != nil {
		body.MaxTokens = *req.MaxTokens
	}
	if req.Thinking != nil && req.Thinking.BudgetTokens > 0 {
		body.Thinking = &thinkingConfig{Type: "enabled", BudgetTokens: req.Thinking.BudgetTokens}
		body.MaxTokens += req.Thinking.BudgetTokens
		// Thinking is incompatible with a custom temperature.
		body.Temperature = nil
	}

	return json.Marshal(body)
}

func (p *provider) ParseResponse(payload []byte) (*llm.ChatResponse, error) {
	var resp anthropicResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return nil, err
	}
	if resp.Type == "error" && resp.Error != nil {
		return nil, errors.New(resp.Error.Message)
	}

	content := make([]llm.ContentBlock, 0, len(resp.Content))
	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			content = append(content, llm.ContentBlock{Type: llm.BlockText, Text: block.Text})
		case "thinking":
			content = append(content, llm.ContentBlock{
				Type:      llm.BlockThinking,
				Thinking:  block.Thinking,
				Signature: block.Signature,
			})
		}
	}

	return &llm.ChatResponse{
		Model: resp.Model,
		Message: llm.Message{
			Role:    llm.RoleAssistant,
			Content: content,
		},
		StopReason: resp.StopReason,
		Usage:      convertUsage(resp.Usage),
		CreatedAt:  time.Now(),
	}, nil
}

func (p *provider) ParseStreamChunk(payload []byte) (*llm.StreamChunk, error) {
	var ev streamEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return nil, err
	}

	switch ev.Type {
	case "message_start":
		if ev.Message == nil {
			return nil, nil
		}
		return &llm.StreamChunk{
			Model: ev.Message.Model,
			Usage: convertUsage(ev.Message.Usage),
		}, nil

	case "content_block_delta":
		if ev.Delta == nil {
			return nil, nil
		}
		switch ev.Delta.Type {
		case "text_delta":
			return &llm.StreamChunk{Text: ev.Delta.Text}, nil
		case "thinking_delta":
			return &llm.StreamChunk{Reasoning: ev.Delta.Thinking}, nil
		}
		return nil, nil

	case "message_delta":
		chunk := &llm.StreamChunk{Usage: convertUsage(ev.Usage)}
		if ev.Delta != nil {
			chunk.StopReason = ev.Delta.StopReason
		}
		return chunk, nil

	case "message_stop":
		return &llm.StreamChunk{Done: true}, nil

	case "error":
		msg := "upstream error"
		if ev.Error != nil && ev.Error.Message != "" {
			msg = ev.Error.Message
		}
		return &llm.StreamChunk{Error: msg}, nil
	}

	// ping, content_block_start, content_block_stop
	return nil, nil
}

func convertUsage(u *anthropicUsage) *llm.Usage {
	if u == nil {
		return nil
	}
	input := u.InputTokens + u.CacheCreationInputTokens + u.CacheReadInputTokens
	return &llm.Usage{
		PromptTokens:     input,
		CompletionTokens: u.OutputTokens,
	}
}
