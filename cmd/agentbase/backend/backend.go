// Package backend turns a resolved config.Config into the storage driver,
// event publisher and token verifier the agentbase commands run against.
package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/papercomputeco/agentbase/cmd/agentbase/sqlitepath"
	"github.com/papercomputeco/agentbase/pkg/auth"
	"github.com/papercomputeco/agentbase/pkg/config"
	"github.com/papercomputeco/agentbase/pkg/eventstream"
	"github.com/papercomputeco/agentbase/pkg/eventstream/kafka"
	"github.com/papercomputeco/agentbase/pkg/eventstream/nop"
	"github.com/papercomputeco/agentbase/pkg/storage"
	"github.com/papercomputeco/agentbase/pkg/storage/inmemory"
	"github.com/papercomputeco/agentbase/pkg/storage/postgres"
	"github.com/papercomputeco/agentbase/pkg/storage/sqlite"
)

// Storage driver names accepted by storage.driver.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverLibSQL   = "libsql"
)

// ErrLibSQLUnavailable is returned when the binary was built without libSQL.
var ErrLibSQLUnavailable = errors.New("libsql support not compiled in (build with -tags libsql)")

// openLibSQL is set by libsql.go when built with the libsql tag.
var openLibSQL func(ctx context.Context, url, replica string) (storage.Driver, error)

// OpenStorage opens the configured storage driver. SQL drivers create their
// tables on open.
func OpenStorage(ctx context.Context, cfg config.StorageConfig, configDir string, logger *slog.Logger) (storage.Driver, error) {
	switch cfg.Driver {
	case DriverMemory:
		logger.Info("using in-memory storage")
		return inmemory.NewDriver(), nil

	case DriverSQLite, "":
		path, err := sqlitepath.DefaultSQLitePath(cfg.SQLitePath, configDir)
		if err != nil {
			return nil, err
		}
		driver, err := sqlite.NewDriver(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite driver: %w", err)
		}
		logger.Info("using SQLite storage", "path", path)
		return driver, nil

	case DriverPostgres:
		if cfg.PostgresDSN == "" {
			return nil, errors.New("storage.postgres_dsn is required for the postgres driver")
		}
		driver, err := postgres.NewDriver(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("failed to create PostgreSQL driver: %w", err)
		}
		logger.Info("using PostgreSQL storage")
		return driver, nil

	case DriverLibSQL:
		if openLibSQL == nil {
			return nil, ErrLibSQLUnavailable
		}
		if cfg.LibSQLURL == "" {
			return nil, errors.New("storage.libsql_url is required for the libsql driver")
		}
		driver, err := openLibSQL(ctx, cfg.LibSQLURL, cfg.LibSQLReplica)
		if err != nil {
			return nil, fmt.Errorf("failed to create libSQL driver: %w", err)
		}
		logger.Info("using libSQL storage", "replica", cfg.LibSQLReplica)
		return driver, nil

	default:
		return nil, fmt.Errorf("unknown storage driver %q (available: memory, sqlite, postgres, libsql)", cfg.Driver)
	}
}

// NewPublisher builds the configured turn event publisher.
func NewPublisher(cfg config.EventsConfig, logger *slog.Logger) (eventstream.Publisher, error) {
	switch cfg.Provider {
	case "", "nop":
		return nop.NewPublisher(), nil

	case "kafka":
		pub, err := kafka.NewPublisher(kafka.Config{
			Brokers: cfg.BrokerList(),
			Topic:   cfg.Topic,
		})
		if err != nil {
			return nil, fmt.Errorf("creating kafka publisher: %w", err)
		}
		logger.Info("publishing turn events to kafka", "brokers", cfg.Brokers, "topic", cfg.Topic)
		return pub, nil

	default:
		return nil, fmt.Errorf("unknown events provider %q (available: nop, kafka)", cfg.Provider)
	}
}

// NewVerifier verifies tokens locally when a JWT secret is configured and
// asks the auth service otherwise.
func NewVerifier(cfg config.AuthConfig) (auth.Verifier, error) {
	if cfg.JWTSecret != "" {
		return auth.NewJWTVerifier(cfg.JWTSecret), nil
	}
	if cfg.URL == "" {
		return nil, errors.New("auth.url or auth.jwt_secret is required")
	}
	return auth.NewGoTrueClient(cfg.URL, cfg.AnonKey), nil
}
