package chat

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/agentbase/chat/worker"
	"github.com/papercomputeco/agentbase/pkg/auth"
	"github.com/papercomputeco/agentbase/pkg/catalog"
	"github.com/papercomputeco/agentbase/pkg/llm"
	"github.com/papercomputeco/agentbase/pkg/sse"
	"github.com/papercomputeco/agentbase/pkg/storage"
)

// ModelHeader carries the resolved catalog model id on chat responses.
const ModelHeader = "X-Agentbase-Model"

// Output formats for the chat stream.
const (
	FormatText = "text"
	FormatSSE  = "sse"
)

// SSE event types written in FormatSSE.
const (
	EventReasoning = "reasoning"
	EventText      = "text"
	EventFinish    = "finish"
	EventError     = "error"
)

// turn carries what the stream pump needs to finish a chat turn.
type turn struct {
	route        route
	model        catalog.Model
	user         *auth.User
	conversation string
	firstUser    string
	format       string
	startedAt    time.Time
}

// Handle serves POST /api/chat for user, streaming the model's reply.
func (s *Service) Handle(c *fiber.Ctx, user *auth.User) error {
	startTime := time.Now()

	var req Request
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: "invalid request body"})
	}

	msgs := req.LLMMessages()
	if len(msgs) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: "invalid request body"})
	}

	model := catalog.Resolve(req.ModelID)

	if user == nil || user.ID == "" {
		return c.Status(fiber.StatusUnauthorized).JSON(llm.ErrorResponse{Error: "Unauthorized"})
	}

	log := s.logger.With("user_id", user.ID, "model", model.ID)
	ctx := c.UserContext()

	if req.ConversationID != "" {
		conv, err := s.driver.GetConversation(ctx, req.ConversationID)
		switch {
		case storage.IsNotFound(err):
			return c.Status(fiber.StatusForbidden).JSON(llm.ErrorResponse{Error: "Forbidden"})
		case err != nil:
			log.Error("failed to load conversation", "conversation_id", req.ConversationID, "error", err)
			return c.Status(fiber.StatusInternalServerError).JSON(llm.ErrorResponse{Error: "Internal server error"})
		case conv.UserID != user.ID:
			log.Warn("conversation owned by another user", "conversation_id", req.ConversationID)
			return c.Status(fiber.StatusForbidden).JSON(llm.ErrorResponse{Error: "Forbidden"})
		}

		if err := s.persistUserTurn(ctx, conv, user, req.LastUserText()); err != nil {
			log.Error("failed to persist user message", "conversation_id", conv.ID, "error", err)
			return c.Status(fiber.StatusInternalServerError).JSON(llm.ErrorResponse{Error: "Internal server error"})
		}
	}

	r, err := s.resolveRoute(model)
	if err != nil {
		log.Error("failed to route model", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(llm.ErrorResponse{Error: "Internal server error"})
	}

	// Use context.Background() instead of c.Context() because fasthttp recycles
	// its RequestCtx after the handler returns, but the stream is pumped
	// asynchronously in a separate goroutine and needs the upstream connection
	// to remain open.
	httpResp, err := s.dispatch(context.Background(), r, s.newRequest(model, r, msgs))
	if err != nil {
		var upErr *UpstreamError
		if errors.As(err, &upErr) {
			log.Error("upstream returned error", "route", r.name, "status", upErr.StatusCode, "body", upErr.Body)
		} else {
			log.Error("upstream request failed", "route", r.name, "error", err)
		}
		return c.Status(fiber.StatusBadGateway).JSON(llm.ErrorResponse{Error: "upstream request failed"})
	}

	t := &turn{
		route:        r,
		model:        model,
		user:         user,
		conversation: req.ConversationID,
		firstUser:    req.FirstUserText(),
		format:       negotiateFormat(c),
		startedAt:    startTime,
	}

	c.Set(ModelHeader, model.ID)
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set("X-Accel-Buffering", "no")
	if t.format == FormatSSE {
		c.Set(fiber.HeaderContentType, "text/event-stream")
		c.Set(fiber.HeaderConnection, "keep-alive")
	} else {
		c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
	}

	// With io.Pipe, pw.Write blocks until fasthttp's chunked body writer
	// consumes the data and flushes it to the socket, so every delta reaches
	// the client as soon as it arrives from upstream.
	pr, pw := io.Pipe()
	go s.pump(httpResp, pw, t, log)

	// Set the pipe reader as the body stream with unknown size (-1),
	// which triggers chunked transfer encoding in fasthttp.
	c.Context().Response.SetBodyStream(pr, -1)

	return nil
}

// persistUserTurn stores the latest user message before dispatch, unless the
// client already stored it and it is the conversation's last message.
func (s *Service) persistUserTurn(ctx context.Context, conv *storage.Conversation, user *auth.User, text string) error {
	if text == "" {
		return nil
	}

	stored, err := s.driver.ListMessages(ctx, conv.ID)
	if err != nil {
		return err
	}
	if n := len(stored); n > 0 {
		last := stored[n-1]
		if last.Role == storage.RoleUser && last.Content == text {
			return nil
		}
	}

	_, err = s.driver.CreateMessage(ctx, &storage.Message{
		ConversationID: conv.ID,
		UserID:         user.ID,
		Role:           storage.RoleUser,
		Content:        text,
	})
	return err
}

// pump reads the upstream SSE stream, writes each delta to the client and,
// once upstream finishes cleanly, hands the turn to the worker pool. Upstream
// is read to the end even if the client goes away, so the turn is still saved.
func (s *Service) pump(httpResp *http.Response, pw *io.PipeWriter, t *turn, log *slog.Logger) {
	// Close the upstream response body once streaming is complete.
	defer httpResp.Body.Close()
	defer pw.Close()

	out := newStreamWriter(pw, t.format)
	reader := sse.NewReader(httpResp.Body)

	var completion llm.Completion
	failed := false

	for {
		ev, err := reader.Next()
		if err != nil {
			log.Error("error reading upstream stream", "error", err)
			out.fail("stream interrupted")
			failed = true
			break
		}
		if ev == nil {
			break
		}

		chunk, err := t.route.prov.ParseStreamChunk([]byte(ev.Data))
		if err != nil {
			log.Warn("failed to parse stream chunk", "route", t.route.name, "error", err)
			continue
		}
		if chunk == nil {
			continue
		}

		completion.Add(chunk)

		if completion.Err != "" {
			log.Error("upstream stream error", "route", t.route.name, "error", completion.Err)
			out.fail(completion.Err)
			failed = true
			break
		}
		if chunk.Reasoning != "" {
			out.reasoning(chunk.Reasoning)
		}
		if chunk.Text != "" {
			out.text(chunk.Text)
		}
		if chunk.Done {
			break
		}
	}

	if !failed {
		out.finish(&completion)
	}

	if out.err != nil {
		log.Debug("client stopped reading the stream", "error", out.err)
	}

	log.Debug("streaming complete",
		"route", t.route.name,
		"content_length", len(completion.Text()),
		"stop_reason", completion.StopReason,
		"duration", time.Since(t.startedAt),
	)

	if failed || t.conversation == "" || completion.Text() == "" {
		return
	}

	s.workerPool.Enqueue(worker.Job{
		ConversationID:   t.conversation,
		UserID:           t.user.ID,
		Model:            t.model.ID,
		Provider:         t.route.name,
		Text:             completion.Text(),
		Reasoning:        completion.Reasoning(),
		StopReason:       completion.StopReason,
		Usage:            completion.Usage,
		FirstUserMessage: t.firstUser,
		StartedAt:        t.startedAt,
	})
}

// negotiateFormat picks SSE output when asked for by query or Accept header.
func negotiateFormat(c *fiber.Ctx) string {
	if strings.EqualFold(c.Query("format"), FormatSSE) {
		return FormatSSE
	}
	if strings.Contains(c.Get(fiber.HeaderAccept), "text/event-stream") {
		return FormatSSE
	}
	return FormatText
}

// streamWriter writes deltas in the negotiated format. After the first write
// error it stops writing and remembers the error.
type streamWriter struct {
	w      io.Writer
	events *sse.Writer
	format string
	err    error
}

type deltaPayload struct {
	Delta string `json:"delta"`
}

type finishPayload struct {
	Model      string     `json:"model,omitempty"`
	StopReason string     `json:"stopReason,omitempty"`
	Usage      *llm.Usage `json:"usage,omitempty"`
}

type errorPayload struct {
	Error string `json:"error"`
}

func newStreamWriter(w io.Writer, format string) *streamWriter {
	return &streamWriter{w: w, events: sse.NewWriter(w), format: format}
}

func (sw *streamWriter) reasoning(delta string) {
	// the plain text stream carries only the answer
	if sw.format == FormatSSE {
		sw.event(EventReasoning, deltaPayload{Delta: delta})
	}
}

func (sw *streamWriter) text(delta string) {
	if sw.format == FormatSSE {
		sw.event(EventText, deltaPayload{Delta: delta})
		return
	}
	if sw.err == nil {
		_, sw.err = io.WriteString(sw.w, delta)
	}
}

func (sw *streamWriter) finish(c *llm.Completion) {
	if sw.format != FormatSSE {
		return
	}
	payload := finishPayload{Model: c.Model, StopReason: c.StopReason}
	if c.Usage != (llm.Usage{}) {
		usage := c.Usage
		payload.Usage = &usage
	}
	sw.event(EventFinish, payload)
}

func (sw *streamWriter) fail(msg string) {
	if sw.format == FormatSSE {
		sw.event(EventError, errorPayload{Error: msg})
	}
}

func (sw *streamWriter) event(kind string, payload any) {
	if sw.err != nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		sw.err = err
		return
	}
	sw.err = sw.events.WriteEvent(sse.Event{Type: kind, Data: string(data)})
}
