package config

import (
	"fmt"
	"strconv"
	"strings"
)

// Config represents the persistent agentbase configuration stored as
// config.toml in the .agentbase/ directory. The TOML layout uses sections for
// logical grouping.
type Config struct {
	Version  int            `toml:"version"`
	Server   ServerConfig   `toml:"server"`
	Storage  StorageConfig  `toml:"storage"`
	Auth     AuthConfig     `toml:"auth"`
	Upstream UpstreamConfig `toml:"upstream"`
	Chat     ChatConfig     `toml:"chat"`
	Events   EventsConfig   `toml:"events"`
	Log      LogConfig      `toml:"log"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Listen        string `toml:"listen,omitempty"`
	SecureCookies bool   `toml:"secure_cookies,omitempty"`
}

// StorageConfig selects and configures the relational storage driver.
// Driver is one of "memory", "sqlite", "postgres" or "libsql".
type StorageConfig struct {
	Driver      string `toml:"driver,omitempty"`
	SQLitePath  string `toml:"sqlite_path,omitempty"`
	PostgresDSN string `toml:"postgres_dsn,omitempty"`
	LibSQLURL   string `toml:"libsql_url,omitempty"`

	// LibSQLReplica is a local file kept in sync with LibSQLURL. Reads are
	// served from it when set.
	LibSQLReplica string `toml:"libsql_replica,omitempty"`
}

// AuthConfig holds settings for the hosted auth service.
type AuthConfig struct {
	URL       string `toml:"url,omitempty"`
	AnonKey   string `toml:"anon_key,omitempty"`
	JWTSecret string `toml:"jwt_secret,omitempty"`
	SiteURL   string `toml:"site_url,omitempty"`
}

// UpstreamConfig holds the completion API endpoints and credentials.
// Anthropic models are sent directly to Anthropic when AnthropicAPIKey is
// set; everything else goes through OpenRouter.
type UpstreamConfig struct {
	OpenRouterURL    string `toml:"openrouter_url,omitempty"`
	OpenRouterAPIKey string `toml:"openrouter_api_key,omitempty"`
	AnthropicURL     string `toml:"anthropic_url,omitempty"`
	AnthropicAPIKey  string `toml:"anthropic_api_key,omitempty"`
	SiteName         string `toml:"site_name,omitempty"`
}

// ChatConfig holds chat orchestration settings.
type ChatConfig struct {
	SystemPrompt   string `toml:"system_prompt,omitempty"`
	ThinkingBudget uint   `toml:"thinking_budget,omitempty"`
	RateLimit      uint   `toml:"rate_limit,omitempty"`
	Workers        uint   `toml:"workers,omitempty"`
}

// EventsConfig configures where turn-persisted events are published.
// Provider is "nop" or "kafka"; Brokers is a comma separated list.
type EventsConfig struct {
	Provider string `toml:"provider,omitempty"`
	Brokers  string `toml:"brokers,omitempty"`
	Topic    string `toml:"topic,omitempty"`
}

// LogConfig controls service log output.
type LogConfig struct {
	JSON  bool `toml:"json,omitempty"`
	Debug bool `toml:"debug,omitempty"`
}

// BrokerList splits the comma separated Brokers value.
func (e EventsConfig) BrokerList() []string {
	var out []string
	for _, b := range strings.Split(e.Brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

func stringKey(field func(c *Config) *string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return *field(c) },
		set: func(c *Config, v string) error { *field(c) = v; return nil },
	}
}

func uintKey(name string, field func(c *Config) *uint) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string {
			if *field(c) == 0 {
				return ""
			}
			return strconv.FormatUint(uint64(*field(c)), 10)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*field(c) = uint(n)
			return nil
		},
	}
}

func boolKey(name string, field func(c *Config) *bool) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return strconv.FormatBool(*field(c)) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*field(c) = b
			return nil
		},
	}
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"server.listen":         stringKey(func(c *Config) *string { return &c.Server.Listen }),
	"server.secure_cookies": boolKey("server.secure_cookies", func(c *Config) *bool { return &c.Server.SecureCookies }),

	"storage.driver":         stringKey(func(c *Config) *string { return &c.Storage.Driver }),
	"storage.sqlite_path":    stringKey(func(c *Config) *string { return &c.Storage.SQLitePath }),
	"storage.postgres_dsn":   stringKey(func(c *Config) *string { return &c.Storage.PostgresDSN }),
	"storage.libsql_url":     stringKey(func(c *Config) *string { return &c.Storage.LibSQLURL }),
	"storage.libsql_replica": stringKey(func(c *Config) *string { return &c.Storage.LibSQLReplica }),

	"auth.url":        stringKey(func(c *Config) *string { return &c.Auth.URL }),
	"auth.anon_key":   stringKey(func(c *Config) *string { return &c.Auth.AnonKey }),
	"auth.jwt_secret": stringKey(func(c *Config) *string { return &c.Auth.JWTSecret }),
	"auth.site_url":   stringKey(func(c *Config) *string { return &c.Auth.SiteURL }),

	"upstream.openrouter_url":     stringKey(func(c *Config) *string { return &c.Upstream.OpenRouterURL }),
	"upstream.openrouter_api_key": stringKey(func(c *Config) *string { return &c.Upstream.OpenRouterAPIKey }),
	"upstream.anthropic_url":      stringKey(func(c *Config) *string { return &c.Upstream.AnthropicURL }),
	"upstream.anthropic_api_key":  stringKey(func(c *Config) *string { return &c.Upstream.AnthropicAPIKey }),
	"upstream.site_name":          stringKey(func(c *Config) *string { return &c.Upstream.SiteName }),

	"chat.system_prompt":   stringKey(func(c *Config) *string { return &c.Chat.SystemPrompt }),
	"chat.thinking_budget": uintKey("chat.thinking_budget", func(c *Config) *uint { return &c.Chat.ThinkingBudget }),
	"chat.rate_limit":      uintKey("chat.rate_limit", func(c *Config) *uint { return &c.Chat.RateLimit }),
	"chat.workers":         uintKey("chat.workers", func(c *Config) *uint { return &c.Chat.Workers }),

	"events.provider": stringKey(func(c *Config) *string { return &c.Events.Provider }),
	"events.brokers":  stringKey(func(c *Config) *string { return &c.Events.Brokers }),
	"events.topic":    stringKey(func(c *Config) *string { return &c.Events.Topic }),

	"log.json":  boolKey("log.json", func(c *Config) *bool { return &c.Log.JSON }),
	"log.debug": boolKey("log.debug", func(c *Config) *bool { return &c.Log.Debug }),
}

// orderedKeys matches the TOML section layout.
var orderedKeys = []string{
	"server.listen",
	"server.secure_cookies",
	"storage.driver",
	"storage.sqlite_path",
	"storage.postgres_dsn",
	"storage.libsql_url",
	"storage.libsql_replica",
	"auth.url",
	"auth.anon_key",
	"auth.jwt_secret",
	"auth.site_url",
	"upstream.openrouter_url",
	"upstream.openrouter_api_key",
	"upstream.anthropic_url",
	"upstream.anthropic_api_key",
	"upstream.site_name",
	"chat.system_prompt",
	"chat.thinking_budget",
	"chat.rate_limit",
	"chat.workers",
	"events.provider",
	"events.brokers",
	"events.topic",
	"log.json",
	"log.debug",
}

// secretKeys are masked by "agentbase config list".
var secretKeys = map[string]bool{
	"auth.anon_key":               true,
	"auth.jwt_secret":             true,
	"upstream.openrouter_api_key": true,
	"upstream.anthropic_api_key":  true,
	"storage.postgres_dsn":        true,
	"storage.libsql_url":          true,
}

// IsSecretKey reports whether the key holds a credential.
func IsSecretKey(key string) bool {
	return secretKeys[key]
}
