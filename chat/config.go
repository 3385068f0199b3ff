package chat

import (
	"log/slog"

	"github.com/papercomputeco/agentbase/pkg/eventstream"
)

const (
	// DefaultThinkingBudget is the extended thinking budget, in tokens, for
	// models that support it.
	DefaultThinkingBudget = 10000

	// DefaultSystemPrompt is used when no system prompt is configured.
	DefaultSystemPrompt = "You are a helpful assistant."
)

// Config is the chat service configuration.
type Config struct {
	// SystemPrompt is sent with every chat request.
	SystemPrompt string

	// ThinkingBudget is the extended thinking token budget.
	ThinkingBudget int

	// Upstreams maps a route name (catalog.RouteOpenRouter,
	// catalog.RouteAnthropic) to its upstream. A route without a base URL is
	// disabled.
	Upstreams map[string]Upstream

	// SiteURL and SiteName are sent as attribution headers where the upstream
	// supports them.
	SiteURL  string
	SiteName string

	// Workers and QueueSize size the completion worker pool.
	Workers   uint
	QueueSize uint

	// Publisher receives turn events. Optional.
	Publisher eventstream.Publisher

	Logger *slog.Logger
}

// Upstream is an upstream completion API endpoint.
type Upstream struct {
	BaseURL string
	APIKey  string
}
