package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/papercomputeco/agentbase/pkg/dotdir"
)

// InitViper creates and returns a configured *viper.Viper.
// It sets defaults from NewDefaultConfig(), reads the config.toml file
// (if found via dotdir resolution), and binds environment variables
// with the AGENTBASE_ prefix.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound via BindRegisteredFlags)
//  2. Environment variables (AGENTBASE_SERVER_LISTEN, AGENTBASE_AUTH_URL, etc.)
//  3. config.toml file values
//  4. Defaults from NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	// 1. Register all defaults from NewDefaultConfig().
	setViperDefaults(v)

	// 2. Config file discovery via dotdir resolution.
	v.SetConfigName("config")
	v.SetConfigType("toml")

	ddm := dotdir.NewManager()
	target, err := ddm.Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}

	if target != "" {
		v.AddConfigPath(target)
	}

	if err := v.ReadInConfig(); err != nil {
		// Config file not found errors are fine, defaults will apply.
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	// 3. Environment variables: AGENTBASE_SERVER_LISTEN, AGENTBASE_STORAGE_DRIVER, etc.
	v.SetEnvPrefix("AGENTBASE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation. This keeps defaults.go as the single source of truth.
// Every key gets a default, even an empty one, so AutomaticEnv and Unmarshal
// see it.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)

	for _, key := range ValidConfigKeys() {
		info := configKeys[key]
		switch key {
		case "chat.thinking_budget":
			v.SetDefault(key, d.Chat.ThinkingBudget)
		case "chat.rate_limit":
			v.SetDefault(key, d.Chat.RateLimit)
		case "chat.workers":
			v.SetDefault(key, d.Chat.Workers)
		case "server.secure_cookies":
			v.SetDefault(key, d.Server.SecureCookies)
		case "log.json":
			v.SetDefault(key, d.Log.JSON)
		case "log.debug":
			v.SetDefault(key, d.Log.Debug)
		default:
			v.SetDefault(key, info.get(d))
		}
	}
}

// FromViper materializes a Config from the resolved viper values.
func FromViper(v *viper.Viper) *Config {
	return &Config{
		Version: v.GetInt("version"),
		Server: ServerConfig{
			Listen:        v.GetString("server.listen"),
			SecureCookies: v.GetBool("server.secure_cookies"),
		},
		Storage: StorageConfig{
			Driver:        v.GetString("storage.driver"),
			SQLitePath:    v.GetString("storage.sqlite_path"),
			PostgresDSN:   v.GetString("storage.postgres_dsn"),
			LibSQLURL:     v.GetString("storage.libsql_url"),
			LibSQLReplica: v.GetString("storage.libsql_replica"),
		},
		Auth: AuthConfig{
			URL:       v.GetString("auth.url"),
			AnonKey:   v.GetString("auth.anon_key"),
			JWTSecret: v.GetString("auth.jwt_secret"),
			SiteURL:   v.GetString("auth.site_url"),
		},
		Upstream: UpstreamConfig{
			OpenRouterURL:    v.GetString("upstream.openrouter_url"),
			OpenRouterAPIKey: v.GetString("upstream.openrouter_api_key"),
			AnthropicURL:     v.GetString("upstream.anthropic_url"),
			AnthropicAPIKey:  v.GetString("upstream.anthropic_api_key"),
			SiteName:         v.GetString("upstream.site_name"),
		},
		Chat: ChatConfig{
			SystemPrompt:   v.GetString("chat.system_prompt"),
			ThinkingBudget: v.GetUint("chat.thinking_budget"),
			RateLimit:      v.GetUint("chat.rate_limit"),
			Workers:        v.GetUint("chat.workers"),
		},
		Events: EventsConfig{
			Provider: v.GetString("events.provider"),
			Brokers:  v.GetString("events.brokers"),
			Topic:    v.GetString("events.topic"),
		},
		Log: LogConfig{
			JSON:  v.GetBool("log.json"),
			Debug: v.GetBool("log.debug"),
		},
	}
}
