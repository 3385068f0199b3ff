package config

const (
	defaultListen = ":3000"

	defaultStorageDriver = "sqlite"

	defaultOpenRouterURL = "https://openrouter.ai/api/v1"
	defaultAnthropicURL  = "https://api.anthropic.com"
	defaultSiteName      = "agentbase"

	defaultSystemPrompt   = "You are a helpful assistant."
	defaultThinkingBudget = 10000
	defaultRateLimit      = 20
	defaultWorkers        = 3

	defaultEventsProvider = "nop"
	defaultEventsTopic    = "agentbase.turns"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Server: ServerConfig{
			Listen: defaultListen,
		},
		Storage: StorageConfig{
			Driver: defaultStorageDriver,
		},
		Upstream: UpstreamConfig{
			OpenRouterURL: defaultOpenRouterURL,
			AnthropicURL:  defaultAnthropicURL,
			SiteName:      defaultSiteName,
		},
		Chat: ChatConfig{
			SystemPrompt:   defaultSystemPrompt,
			ThinkingBudget: defaultThinkingBudget,
			RateLimit:      defaultRateLimit,
			Workers:        defaultWorkers,
		},
		Events: EventsConfig{
			Provider: defaultEventsProvider,
			Topic:    defaultEventsTopic,
		},
	}
}
