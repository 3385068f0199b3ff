// Package configcmder provides the config command for managing persistent
// agentbase configuration stored in the .agentbase/ directory.
package configcmder

import (
	"github.com/spf13/cobra"
)

const configLongDesc string = `Manage persistent agentbase configuration.

Configuration is stored as config.toml in the .agentbase/ directory and
provides default values for command flags. CLI flags and AGENTBASE_*
environment variables take precedence over config file values.

Keys use dotted notation matching the TOML section structure:
  server.listen, server.secure_cookies,
  storage.driver, storage.sqlite_path, storage.postgres_dsn,
  storage.libsql_url, storage.libsql_replica,
  auth.url, auth.anon_key, auth.jwt_secret, auth.site_url,
  upstream.openrouter_url, upstream.openrouter_api_key,
  upstream.anthropic_url, upstream.anthropic_api_key, upstream.site_name,
  chat.system_prompt, chat.thinking_budget, chat.rate_limit, chat.workers,
  events.provider, events.brokers, events.topic,
  log.json, log.debug

Use subcommands to get, set, or list configuration values:
  agentbase config set <key> <value>    Set a configuration value
  agentbase config get <key>            Get a configuration value
  agentbase config list                 List all configuration values

Examples:
  agentbase config set storage.driver postgres
  agentbase config set chat.thinking_budget 8000
  agentbase config get storage.driver
  agentbase config list`

const configShortDesc string = "Manage persistent agentbase configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}
