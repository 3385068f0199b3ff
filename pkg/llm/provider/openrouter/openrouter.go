// Package openrouter speaks the OpenAI Chat Completions format as served by
// OpenRouter, including its reasoning and usage accounting extensions.
package openrouter

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/papercomputeco/agentbase/pkg/llm"
)

const doneMarker = "[DONE]"

// openrouter implements the Provider interface for OpenRouter.
type openrouter struct{}

func New() *openrouter { return &openrouter{} }

func (o *openrouter) Name() string {
	return "openrouter"
}

func (o *openrouter) Endpoint(baseURL string) string {
	return strings.TrimRight(baseURL, "/") + "/chat/completions"
}

func (o *openrouter) SetHeaders(h http.Header, creds llm.Credentials) {
	h.Set("Content-Type", "application/json")
	if creds.APIKey != "" {
		h.Set("Authorization", "Bearer "+creds.APIKey)
	}
	if creds.Referer != "" {
		h.Set("HTTP-Referer", creds.Referer)
	}
	if creds.Title != "" {
		h.Set("X-Title", creds.Title)
	}
}

func (o *openrouter) EncodeRequest(req *llm.ChatRequest) ([]byte, error) {
	messages := make([]chatMessage, 0, len(req.Messages)+1)
	if req.System != "" {
		messages = append(messages, chatMessage{Role: llm.RoleSystem, Content: req.System})
	}
	for _, msg := range req.Messages {
		messages = append(messages, chatMessage{Role: msg.Role, Content: msg.GetText()})
	}

	body := chatRequest{
		Model:       req.Model,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		Stream:      req.Stream,
		Usage:       &usageConfig{Include: true},
	}
	if req.Stream {
		body.StreamOptions = &streamOptions{IncludeUsage: true}
	}
	if req.Thinking != nil {
		body.Reasoning = &reasoningConfig{MaxTokens: req.Thinking.BudgetTokens}
	}

	return json.Marshal(body)
}

func (o *openrouter) ParseResponse(payload []byte) (*llm.ChatResponse, error) {
	var resp chatResponse
	if err := json.Unmarshal(payload, &resp); err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, errors.New(resp.Error.Message)
	}

	result := &llm.ChatResponse{
		Model:     resp.Model,
		CreatedAt: time.Unix(resp.Created, 0),
		Message:   llm.Message{Role: llm.RoleAssistant},
		Usage:     convertUsage(resp.Usage),
	}

	if len(resp.Choices) == 0 {
		return result, nil
	}

	choice := resp.Choices[0]
	if choice.Message.Reasoning != "" {
		result.Message.Content = append(result.Message.Content, llm.ContentBlock{
			Type:     llm.BlockThinking,
			Thinking: choice.Message.Reasoning,
		})
	}
	result.Message.Content = append(result.Message.Content, llm.ContentBlock{
		Type: llm.BlockText,
		Text: choice.Message.Content,
	})
	result.StopReason = choice.FinishReason

	return result, nil
}

func (o *openrouter) ParseStreamChunk(payload []byte) (*llm.StreamChunk, error) {
	data := strings.TrimSpace(string(payload))
	if data == "" {
		return nil, nil
	}
	if data == doneMarker {
		return &llm.StreamChunk{Done: true}, nil
	}

	var chunk chatChunk
	if err := json.Unmarshal(payload, &chunk); err != nil {
		return nil, err
	}

	result := &llm.StreamChunk{
		Model: chunk.Model,
		Usage: convertUsage(chunk.Usage),
	}
	if chunk.Error != nil {
		result.Error = chunk.Error.Message
	}

	for _, choice := range chunk.Choices {
		if choice.Index != 0 {
			continue
		}
		result.Text = choice.Delta.Content
		result.Reasoning = choice.Delta.Reasoning
		if choice.FinishReason != nil {
			result.StopReason = *choice.FinishReason
		}
	}

	return result, nil
}

func convertUsage(u *chatUsage) *llm.Usage {
	if u == nil {
		return nil
	}
	usage := &llm.Usage{
		PromptTokens:     u.PromptTokens,
		CompletionTokens: u.CompletionTokens,
		TotalTokens:      u.TotalTokens,
	}
	if u.CompletionTokensDetails != nil {
		usage.ReasoningTokens = u.CompletionTokensDetails.ReasoningTokens
	}
	return usage
}
