// Package testutils provides fakes shared by agentbase's test suites.
package testutils

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
)

// RecordedRequest is a request received by the fake upstream.
type RecordedRequest struct {
	Path   string
	Header http.Header
	Body   map[string]any
}

// Stream reports whether the request asked for a streamed response.
func (r RecordedRequest) Stream() bool {
	stream, _ := r.Body["stream"].(bool)
	return stream
}

// Upstream is a fake completion API that answers both the OpenRouter (OpenAI
// chat completions) and the Anthropic messages formats, dispatching on path.
type Upstream struct {
	Server *httptest.Server

	mu       sync.Mutex
	requests []RecordedRequest

	// Status, when set to a non-200 code, is returned for every request.
	Status int

	// Reasoning and Text are streamed as deltas, reasoning first.
	Reasoning []string
	Text      []string

	// StreamError, when set, is sent as an in-stream error after the text.
	StreamError string

	// Title is the content of non-streamed completions.
	Title string

	// Usage reported at the end of every response.
	InputTokens  int
	OutputTokens int
}

// NewUpstream starts a fake upstream.
func NewUpstream() *Upstream {
	u := &Upstream{
		Text:         []string{"Hello", ", world"},
		Title:        "Greeting The World",
		InputTokens:  11,
		OutputTokens: 7,
	}
	u.Server = httptest.NewServer(http.HandlerFunc(u.handle))
	return u
}

// URL returns the base URL of the fake upstream.
func (u *Upstream) URL() string {
	return u.Server.URL
}

// Close shuts the fake upstream down.
func (u *Upstream) Close() {
	u.Server.Close()
}

// Requests returns the requests received so far.
func (u *Upstream) Requests() []RecordedRequest {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]RecordedRequest(nil), u.requests...)
}

func (u *Upstream) handle(w http.ResponseWriter, r *http.Request) {
	raw, _ := io.ReadAll(r.Body)
	var body map[string]any
	_ = json.Unmarshal(raw, &body)

	u.mu.Lock()
	u.requests = append(u.requests, RecordedRequest{Path: r.URL.Path, Header: r.Header.Clone(), Body: body})
	status := u.Status
	u.mu.Unlock()

	if status != 0 && status != http.StatusOK {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"error":{"message":"upstream failure"}}`))
		return
	}

	stream, _ := body["stream"].(bool)
	model, _ := body["model"].(string)
	anthropic := strings.HasSuffix(r.URL.Path, "/v1/messages")

	switch {
	case anthropic && stream:
		u.streamAnthropic(w, model)
	case anthropic:
		writeJSON(w, map[string]any{
			"model":       model,
			"role":        "assistant",
			"content":     []map[string]any{{"type": "text", "text": u.Title}},
			"stop_reason": "end_turn",
			"usage":       map[string]int{"input_tokens": u.InputTokens, "output_tokens": u.OutputTokens},
		})
	case stream:
		u.streamOpenRouter(w, model)
	default:
		writeJSON(w, map[string]any{
			"id":    "gen-1",
			"model": model,
			"choices": []map[string]any{{
				"message":       map[string]string{"role": "assistant", "content": u.Title},
				"finish_reason": "stop",
			}},
			"usage": map[string]int{
				"prompt_tokens":     u.InputTokens,
				"completion_tokens": u.OutputTokens,
				"total_tokens":      u.InputTokens + u.OutputTokens,
			},
		})
	}
}

func (u *Upstream) streamOpenRouter(w http.ResponseWriter, model string) {
	w.Header().Set("Content-Type", "text/event-stream")
	for _, r := range u.Reasoning {
		writeEvent(w, "", map[string]any{"model": model, "choices": []map[string]any{{"index": 0, "delta": map[string]string{"reasoning": r}}}})
	}
	for _, t := range u.Text {
		writeEvent(w, "", map[string]any{"model": model, "choices": []map[string]any{{"index": 0, "delta": map[string]string{"content": t}}}})
	}
	if u.StreamError != "" {
		writeEvent(w, "", map[string]any{"error": map[string]any{"code": 502, "message": u.StreamError}})
		return
	}
	writeEvent(w, "", map[string]any{
		"model":   model,
		"choices": []map[string]any{{"index": 0, "delta": map[string]string{}, "finish_reason": "stop"}},
		"usage": map[string]int{
			"prompt_tokens":     u.InputTokens,
			"completion_tokens": u.OutputTokens,
			"total_tokens":      u.InputTokens + u.OutputTokens,
		},
	})
	fmt.Fprint(w, "data: [DONE]\n\n")
}

func (u *Upstream) streamAnthropic(w http.ResponseWriter, model string) {
	w.Header().Set("Content-Type", "text/event-stream")
	writeEvent(w, "message_start", map[string]any{
		"type":    "message_start",
		"message": map[string]any{"model": model, "usage": map[string]int{"input_tokens": u.InputTokens, "output_tokens": 1}},
	})
	writeEvent(w, "ping", map[string]any{"type": "ping"})
	for _, r := range u.Reasoning {
		writeEvent(w, "content_block_delta", map[string]any{"type": "content_block_delta", "index": 0, "delta": map[string]string{"type": "thinking_delta", "thinking": r}})
	}
	for _, t := range u.Text {
		writeEvent(w, "content_block_delta", map[string]any{"type": "content_block_delta", "index": 1, "delta": map[string]string{"type": "text_delta", "text": t}})
	}
	if u.StreamError != "" {
		writeEvent(w, "error", map[string]any{"type": "error", "error": map[string]string{"type": "overloaded_error", "message": u.StreamError}})
		return
	}
	writeEvent(w, "message_delta", map[string]any{
		"type":  "message_delta",
		"delta": map[string]string{"stop_reason": "end_turn"},
		"usage": map[string]int{"output_tokens": u.OutputTokens},
	})
	writeEvent(w, "message_stop", map[string]any{"type": "message_stop"})
}

func writeEvent(w http.ResponseWriter, event string, payload any) {
	data, _ := json.Marshal(payload)
	if event != "" {
		fmt.Fprintf(w, "event: %s\n", event)
	}
	fmt.Fprintf(w, "data: %s\n\n", data)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}
