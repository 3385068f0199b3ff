package config

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flag is the single source of truth for a CLI flag.
// Commands reference flags by registry key rather than hard-coding names,
// shorthands, defaults, and descriptions inline. This prevents flag drift
// when the same logical flag appears on multiple commands (e.g., --sqlite
// on "agentbase serve", "agentbase migrate" and "agentbase history").
type Flag struct {
	// Name is the long flag name (e.g. "listen").
	Name string

	// Shorthand is the one-letter short flag (e.g. "l"). Empty for no shorthand.
	Shorthand string

	// ViperKey is the dotted config key this flag maps to (e.g. "server.listen").
	ViperKey string

	// Description is the help text shown in --help output.
	Description string
}

// FlagSet is a mapping of flag names to Flag structs that hold their name,
// shorthand, viper key, etc.
type FlagSet map[string]Flag

// Flag registry keys.
// Use these constants when calling AddStringFlag, AddUintFlag,
// and BindRegisteredFlags to avoid typos or drift from one command to another.
const (
	FlagListen         = "listen"
	FlagStorageDriver  = "storage"
	FlagSQLite         = "sqlite"
	FlagPostgresDSN    = "postgres"
	FlagLibSQLURL      = "libsql"
	FlagLibSQLReplica  = "libsql-replica"
	FlagAuthURL        = "auth-url"
	FlagAuthAnonKey    = "auth-anon-key"
	FlagJWTSecret      = "jwt-secret"
	FlagSiteURL        = "site-url"
	FlagOpenRouterURL  = "openrouter-url"
	FlagAnthropicURL   = "anthropic-url"
	FlagThinkingBudget = "thinking-budget"
	FlagRateLimit      = "rate-limit"
	FlagWorkers        = "workers"
	FlagEvents         = "events"
	FlagKafkaBrokers   = "kafka-brokers"
	FlagKafkaTopic     = "kafka-topic"
)

// ServeFlags is the flag registry shared by the serve, migrate and history
// commands.
var ServeFlags = FlagSet{
	FlagListen:         {Name: "listen", Shorthand: "l", ViperKey: "server.listen", Description: "Address for the HTTP server to listen on"},
	FlagStorageDriver:  {Name: "storage", ViperKey: "storage.driver", Description: "Storage driver: memory, sqlite, postgres or libsql"},
	FlagSQLite:         {Name: "sqlite", Shorthand: "s", ViperKey: "storage.sqlite_path", Description: "Path to the SQLite database file"},
	FlagPostgresDSN:    {Name: "postgres", ViperKey: "storage.postgres_dsn", Description: "PostgreSQL connection string"},
	FlagLibSQLURL:      {Name: "libsql", ViperKey: "storage.libsql_url", Description: "libSQL / Turso database URL"},
	FlagLibSQLReplica:  {Name: "libsql-replica", ViperKey: "storage.libsql_replica", Description: "Local embedded replica file for the libSQL database"},
	FlagAuthURL:        {Name: "auth-url", ViperKey: "auth.url", Description: "Base URL of the hosted auth service"},
	FlagAuthAnonKey:    {Name: "auth-anon-key", ViperKey: "auth.anon_key", Description: "Public API key for the hosted auth service"},
	FlagJWTSecret:      {Name: "jwt-secret", ViperKey: "auth.jwt_secret", Description: "HS256 secret for verifying access tokens locally"},
	FlagSiteURL:        {Name: "site-url", ViperKey: "auth.site_url", Description: "Public URL of this server, used for OAuth redirects"},
	FlagOpenRouterURL:  {Name: "openrouter-url", ViperKey: "upstream.openrouter_url", Description: "OpenRouter API base URL"},
	FlagAnthropicURL:   {Name: "anthropic-url", ViperKey: "upstream.anthropic_url", Description: "Anthropic API base URL"},
	FlagThinkingBudget: {Name: "thinking-budget", ViperKey: "chat.thinking_budget", Description: "Token budget for extended thinking"},
	FlagRateLimit:      {Name: "rate-limit", ViperKey: "chat.rate_limit", Description: "Chat requests allowed per user per minute"},
	FlagWorkers:        {Name: "workers", ViperKey: "chat.workers", Description: "Number of completion workers"},
	FlagEvents:         {Name: "events", ViperKey: "events.provider", Description: "Event publisher: nop or kafka"},
	FlagKafkaBrokers:   {Name: "kafka-brokers", ViperKey: "events.brokers", Description: "Comma separated Kafka broker addresses"},
	FlagKafkaTopic:     {Name: "kafka-topic", ViperKey: "events.topic", Description: "Kafka topic for turn events"},
}

// AddStringFlag registers a string flag on cmd from the given FlagSet.
// The flag's name, shorthand, default, and description all come from the
// FlagSet entry so they cannot drift across commands.
func AddStringFlag(cmd *cobra.Command, fs FlagSet, key string, target *string) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaultString(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().StringVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().StringVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddUintFlag registers a uint flag on cmd from the given FlagSet.
func AddUintFlag(cmd *cobra.Command, fs FlagSet, registryKey string, target *uint) {
	def, ok := fs[registryKey]
	if !ok {
		return
	}

	defaultVal := defaultUint(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().UintVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().UintVar(target, def.Name, defaultVal, def.Description)
	}
}

// BindRegisteredFlags binds already-registered flags to viper using definitions
// from the given FlagSet. Call this in PreRunE after InitViper to connect flags
// to the viper precedence chain (flag > env > config file > default).
func BindRegisteredFlags(v *viper.Viper, cmd *cobra.Command, fs FlagSet, registryKeys []string) {
	for _, registryKey := range registryKeys {
		def, ok := fs[registryKey]
		if !ok {
			continue
		}

		f := cmd.Flags().Lookup(def.Name)
		if f == nil {
			continue
		}

		_ = v.BindPFlag(def.ViperKey, f)
	}
}

// defaultString returns the default string value for a viper key from NewDefaultConfig.
func defaultString(viperKey string) string {
	v := viper.New()
	setViperDefaults(v)
	return v.GetString(viperKey)
}

// defaultUint returns the default uint value for a viper key from NewDefaultConfig.
func defaultUint(viperKey string) uint {
	v := viper.New()
	setViperDefaults(v)
	return v.GetUint(viperKey)
}
