// Package agentbasecmder is the root agentbase command.
package agentbasecmder

import (
	"github.com/spf13/cobra"

	configcmder "github.com/papercomputeco/agentbase/cmd/agentbase/config"
	historycmder "github.com/papercomputeco/agentbase/cmd/agentbase/history"
	migratecmder "github.com/papercomputeco/agentbase/cmd/agentbase/migrate"
	modelscmder "github.com/papercomputeco/agentbase/cmd/agentbase/models"
	servecmder "github.com/papercomputeco/agentbase/cmd/agentbase/serve"
	versioncmder "github.com/papercomputeco/agentbase/cmd/version"
)

const agentbaseLongDesc string = `agentbase is a multi-model AI chat backend.

It authenticates users against a hosted auth service, streams replies from
Anthropic, OpenAI and Google models, and keeps every conversation.

  agentbase serve       Run the API server
  agentbase migrate     Create or upgrade the database schema
  agentbase models      List available chat models
  agentbase history     Show stored conversations
  agentbase config      Manage persistent configuration`

const agentbaseShortDesc string = "agentbase - multi-model AI chat backend"

func NewAgentbaseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "agentbase",
		Short:        agentbaseShortDesc,
		Long:         agentbaseLongDesc,
		SilenceUsage: true,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Directory holding config.toml (default: ./.agentbase or ~/.agentbase)")

	// Add subcommands
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(migratecmder.NewMigrateCmd())
	cmd.AddCommand(modelscmder.NewModelsCmd())
	cmd.AddCommand(historycmder.NewHistoryCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
