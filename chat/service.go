// Package chat orchestrates chat sessions: it checks conversation ownership,
// dispatches the conversation to the model's upstream with the right thinking
// configuration, streams the reply to the client and hands the finished turn
// to a worker pool for persistence and titling.
package chat

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/papercomputeco/agentbase/chat/worker"
	"github.com/papercomputeco/agentbase/pkg/catalog"
	"github.com/papercomputeco/agentbase/pkg/llm"
	"github.com/papercomputeco/agentbase/pkg/llm/provider"
	"github.com/papercomputeco/agentbase/pkg/logger"
	"github.com/papercomputeco/agentbase/pkg/storage"
	"github.com/papercomputeco/agentbase/pkg/utils"
)

// TitlePrompt is the system prompt used to title a conversation from its
// first user message.
const TitlePrompt = "Generate a short title (max 5 words) for this conversation based on the first user message. Respond ONLY with the title, no quotes or punctuation."

const (
	titleMaxTokens = 30
	titleMaxLen    = 100
)

// ErrNoUpstream is returned when no configured upstream can serve a model.
var ErrNoUpstream = errors.New("no upstream configured for model")

// UpstreamError is returned when the upstream answers with a non-200 status.
type UpstreamError struct {
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream returned status %d: %s", e.StatusCode, e.Body)
}

// Service runs chat sessions against the upstream completion APIs.
type Service struct {
	config     Config
	driver     storage.Driver
	workerPool *worker.Pool
	logger     *slog.Logger
	httpClient *http.Client
	providers  map[string]provider.Provider
}

// route is a resolved upstream for one model.
type route struct {
	name     string
	prov     provider.Provider
	upstream Upstream
	modelID  string
}

// New creates a Service and starts its worker pool.
func New(config Config, driver storage.Driver) (*Service, error) {
	if driver == nil {
		return nil, errors.New("chat service requires a storage driver")
	}
	if config.ThinkingBudget <= 0 {
		config.ThinkingBudget = DefaultThinkingBudget
	}
	if config.SystemPrompt == "" {
		config.SystemPrompt = DefaultSystemPrompt
	}
	if config.Logger == nil {
		config.Logger = logger.Nop()
	}

	providers := make(map[string]provider.Provider)
	for name, up := range config.Upstreams {
		if up.BaseURL == "" {
			continue
		}
		prov, err := provider.New(name)
		if err != nil {
			return nil, fmt.Errorf("could not create provider %s: %w", name, err)
		}
		providers[name] = prov
	}
	if len(providers) == 0 {
		return nil, ErrNoUpstream
	}

	s := &Service{
		config:    config,
		driver:    driver,
		logger:    config.Logger.With("component", "chat"),
		providers: providers,
		httpClient: &http.Client{
			// LLM requests can be slow, especially with thinking blocks
			Timeout: 5 * time.Minute,
		},
	}

	wp, err := worker.NewPool(&worker.Config{
		Driver:     driver,
		Titler:     s,
		Publisher:  config.Publisher,
		NumWorkers: config.Workers,
		QueueSize:  config.QueueSize,
		Logger:     config.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create worker pool: %w", err)
	}
	s.workerPool = wp

	return s, nil
}

// Close waits for queued turns to be persisted.
func (s *Service) Close() {
	s.workerPool.Close()
}

// Routes returns the names of the enabled upstream routes.
func (s *Service) Routes() []string {
	names := make([]string, 0, len(s.providers))
	for _, name := range provider.SupportedProviders() {
		if _, ok := s.providers[name]; ok {
			names = append(names, name)
		}
	}
	return names
}

// resolveRoute picks the upstream for model. Anthropic models go direct to
// Anthropic when it has an API key; everything else goes through OpenRouter.
func (s *Service) resolveRoute(model catalog.Model) (route, error) {
	if model.Provider == catalog.ProviderAnthropic {
		if r, ok := s.route(catalog.RouteAnthropic, model); ok && r.upstream.APIKey != "" {
			return r, nil
		}
	}

	if r, ok := s.route(catalog.RouteOpenRouter, model); ok {
		return r, nil
	}

	return route{}, fmt.Errorf("%w: %s", ErrNoUpstream, model.ID)
}

func (s *Service) route(name string, model catalog.Model) (route, bool) {
	prov, ok := s.providers[name]
	if !ok {
		return route{}, false
	}
	modelID, ok := model.UpstreamID(name)
	if !ok {
		return route{}, false
	}
	return route{
		name:     name,
		prov:     prov,
		upstream: s.config.Upstreams[name],
		modelID:  modelID,
	}, true
}

// newRequest builds the upstream request for model. Extended thinking is
// enabled only for models that support it.
func (s *Service) newRequest(model catalog.Model, r route, msgs []llm.Message) *llm.ChatRequest {
	req := &llm.ChatRequest{
		Model:    r.modelID,
		System:   s.config.SystemPrompt,
		Messages: msgs,
		Stream:   true,
	}
	if model.SupportsThinking {
		req.Thinking = &llm.ThinkingConfig{BudgetTokens: s.config.ThinkingBudget}
	}
	return req
}

// dispatch sends req to the upstream and returns the open response. Non-200
// answers are returned as *UpstreamError.
func (s *Service) dispatch(ctx context.Context, r route, req *llm.ChatRequest) (*http.Response, error) {
	body, err := r.prov.EncodeRequest(req)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.prov.Endpoint(r.upstream.BaseURL), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating upstream request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if req.Stream {
		httpReq.Header.Set("Accept", "text/event-stream")
	}
	r.prov.SetHeaders(httpReq.Header, llm.Credentials{
		APIKey:  r.upstream.APIKey,
		Referer: s.config.SiteURL,
		Title:   s.config.SiteName,
	})

	s.logger.Debug("forwarding request to upstream",
		"route", r.name,
		"model", req.Model,
		"message_count", len(req.Messages),
		"thinking", req.Thinking != nil,
	)

	httpResp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("upstream request failed: %w", err)
	}
	if httpResp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(httpResp.Body, 4096))
		httpResp.Body.Close()
		return nil, &UpstreamError{StatusCode: httpResp.StatusCode, Body: string(respBody)}
	}

	return httpResp, nil
}

// Complete runs a non-streaming completion against the model's upstream.
func (s *Service) Complete(ctx context.Context, modelID, system string, msgs []llm.Message, maxTokens int) (*llm.ChatResponse, error) {
	model := catalog.Resolve(modelID)
	r, err := s.resolveRoute(model)
	if err != nil {
		return nil, err
	}

	req := &llm.ChatRequest{
		Model:    r.modelID,
		System:   system,
		Messages: msgs,
	}
	if maxTokens > 0 {
		req.MaxTokens = &maxTokens
	}

	httpResp, err := s.dispatch(ctx, r, req)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	payload, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading upstream response: %w", err)
	}

	resp, err := r.prov.ParseResponse(payload)
	if err != nil {
		return nil, fmt.Errorf("parsing upstream response: %w", err)
	}
	return resp, nil
}

// GenerateTitle asks the model for a short title for a conversation that
// starts with firstUserMessage.
func (s *Service) GenerateTitle(ctx context.Context, modelID, firstUserMessage string) (string, error) {
	resp, err := s.Complete(ctx, modelID, TitlePrompt,
		[]llm.Message{llm.NewTextMessage(llm.RoleUser, firstUserMessage)},
		titleMaxTokens,
	)
	if err != nil {
		return "", fmt.Errorf("generating title: %w", err)
	}

	return CleanTitle(resp.Message.GetText()), nil
}

// CleanTitle trims whitespace and wrapping quotes from a generated title and
// caps its length.
func CleanTitle(title string) string {
	title = strings.TrimSpace(title)
	if i := strings.IndexByte(title, '\n'); i >= 0 {
		title = strings.TrimSpace(title[:i])
	}
	title = strings.Trim(title, "\"'`“”‘’«»")
	title = strings.TrimSpace(title)
	return utils.Truncate(title, titleMaxLen)
}
