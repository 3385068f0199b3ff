// Package migratecmder provides the migrate command, which creates or
// upgrades the agentbase tables in the configured database.
package migratecmder

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/agentbase/cmd/agentbase/backend"
	"github.com/papercomputeco/agentbase/pkg/cliui"
	"github.com/papercomputeco/agentbase/pkg/config"
	"github.com/papercomputeco/agentbase/pkg/logger"
	"github.com/papercomputeco/agentbase/pkg/storage/ent/migrate"
)

// StorageFlagKeys are the flags shared by commands that only need storage.
var StorageFlagKeys = []string{
	config.FlagStorageDriver,
	config.FlagSQLite,
	config.FlagPostgresDSN,
	config.FlagLibSQLURL,
	config.FlagLibSQLReplica,
}

type storageFlags struct {
	driver   string
	sqlite   string
	postgres string
	libsql   string
	replica  string
}

// AddStorageFlags registers StorageFlagKeys on cmd.
func AddStorageFlags(cmd *cobra.Command) {
	f := &storageFlags{}
	fs := config.ServeFlags
	config.AddStringFlag(cmd, fs, config.FlagStorageDriver, &f.driver)
	config.AddStringFlag(cmd, fs, config.FlagSQLite, &f.sqlite)
	config.AddStringFlag(cmd, fs, config.FlagPostgresDSN, &f.postgres)
	config.AddStringFlag(cmd, fs, config.FlagLibSQLURL, &f.libsql)
	config.AddStringFlag(cmd, fs, config.FlagLibSQLReplica, &f.replica)
}

// ResolveConfig layers cmd's storage flags over env and config.toml.
func ResolveConfig(cmd *cobra.Command) (*config.Config, string, error) {
	configDir, _ := cmd.Flags().GetString("config-dir")
	v, err := config.InitViper(configDir)
	if err != nil {
		return nil, "", err
	}
	config.BindRegisteredFlags(v, cmd, config.ServeFlags, StorageFlagKeys)
	return config.FromViper(v), configDir, nil
}

const migrateLongDesc string = `Create or upgrade the agentbase database schema.

Creates the conversations and messages tables and their indexes in the
configured storage backend. Running it against an up-to-date database is a
no-op. "agentbase serve" runs the same migration on startup.`

const migrateShortDesc string = "Create or upgrade the database schema"

func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: migrateShortDesc,
		Long:  migrateLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, configDir, err := ResolveConfig(cmd)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cmd.OutOrStdout(), cfg, configDir)
		},
	}

	AddStorageFlags(cmd)

	return cmd
}

func run(ctx context.Context, w io.Writer, cfg *config.Config, configDir string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if cfg.Storage.Driver == backend.DriverMemory {
		return fmt.Errorf("nothing to migrate for the %s driver", backend.DriverMemory)
	}

	msg := fmt.Sprintf("Migrating %s schema (%s)", cfg.Storage.Driver, strings.Join(migrate.TableNames(), ", "))
	return cliui.Step(w, msg, func() error {
		driver, err := backend.OpenStorage(ctx, cfg.Storage, configDir, logger.Nop())
		if err != nil {
			return err
		}
		return driver.Close()
	})
}
