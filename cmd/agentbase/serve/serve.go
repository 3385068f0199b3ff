// Package servecmder provides the serve command that runs the agentbase API.
package servecmder

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/papercomputeco/agentbase/api"
	"github.com/papercomputeco/agentbase/chat"
	"github.com/papercomputeco/agentbase/cmd/agentbase/backend"
	"github.com/papercomputeco/agentbase/pkg/auth"
	"github.com/papercomputeco/agentbase/pkg/catalog"
	"github.com/papercomputeco/agentbase/pkg/config"
	"github.com/papercomputeco/agentbase/pkg/eventstream"
	"github.com/papercomputeco/agentbase/pkg/logger"
)

type ServeCommander struct {
	flags flagValues

	debug     bool
	configDir string
	viper     *viper.Viper
	logger    *slog.Logger
}

type flagValues struct {
	listen         string
	storage        string
	sqlite         string
	postgres       string
	libsql         string
	libsqlReplica  string
	authURL        string
	authAnonKey    string
	jwtSecret      string
	siteURL        string
	openRouterURL  string
	anthropicURL   string
	thinkingBudget uint
	rateLimit      uint
	workers        uint
	events         string
	kafkaBrokers   string
	kafkaTopic     string
}

var serveFlagKeys = []string{
	config.FlagListen,
	config.FlagStorageDriver,
	config.FlagSQLite,
	config.FlagPostgresDSN,
	config.FlagLibSQLURL,
	config.FlagLibSQLReplica,
	config.FlagAuthURL,
	config.FlagAuthAnonKey,
	config.FlagJWTSecret,
	config.FlagSiteURL,
	config.FlagOpenRouterURL,
	config.FlagAnthropicURL,
	config.FlagThinkingBudget,
	config.FlagRateLimit,
	config.FlagWorkers,
	config.FlagEvents,
	config.FlagKafkaBrokers,
	config.FlagKafkaTopic,
}

const serveLongDesc string = `Run the agentbase API server.

The server authenticates every /api request against the hosted auth service,
streams chat completions from OpenRouter or Anthropic and persists
conversations in the configured storage backend.

Settings come from flags, AGENTBASE_* environment variables and config.toml,
in that order of precedence. For example:
  agentbase serve --storage postgres --postgres "postgres://localhost/agentbase"
  AGENTBASE_UPSTREAM_OPENROUTER_API_KEY=sk-or-... agentbase serve`

const serveShortDesc string = "Run the agentbase API server"

func NewServeCmd() *cobra.Command {
	cmder := &ServeCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")
			cmder.viper, err = config.InitViper(cmder.configDir)
			if err != nil {
				return err
			}
			config.BindRegisteredFlags(cmder.viper, cmd, config.ServeFlags, serveFlagKeys)
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}
			return cmder.run(cmd.Context())
		},
	}

	f := &cmder.flags
	fs := config.ServeFlags
	config.AddStringFlag(cmd, fs, config.FlagListen, &f.listen)
	config.AddStringFlag(cmd, fs, config.FlagStorageDriver, &f.storage)
	config.AddStringFlag(cmd, fs, config.FlagSQLite, &f.sqlite)
	config.AddStringFlag(cmd, fs, config.FlagPostgresDSN, &f.postgres)
	config.AddStringFlag(cmd, fs, config.FlagLibSQLURL, &f.libsql)
	config.AddStringFlag(cmd, fs, config.FlagLibSQLReplica, &f.libsqlReplica)
	config.AddStringFlag(cmd, fs, config.FlagAuthURL, &f.authURL)
	config.AddStringFlag(cmd, fs, config.FlagAuthAnonKey, &f.authAnonKey)
	config.AddStringFlag(cmd, fs, config.FlagJWTSecret, &f.jwtSecret)
	config.AddStringFlag(cmd, fs, config.FlagSiteURL, &f.siteURL)
	config.AddStringFlag(cmd, fs, config.FlagOpenRouterURL, &f.openRouterURL)
	config.AddStringFlag(cmd, fs, config.FlagAnthropicURL, &f.anthropicURL)
	config.AddUintFlag(cmd, fs, config.FlagThinkingBudget, &f.thinkingBudget)
	config.AddUintFlag(cmd, fs, config.FlagRateLimit, &f.rateLimit)
	config.AddUintFlag(cmd, fs, config.FlagWorkers, &f.workers)
	config.AddStringFlag(cmd, fs, config.FlagEvents, &f.events)
	config.AddStringFlag(cmd, fs, config.FlagKafkaBrokers, &f.kafkaBrokers)
	config.AddStringFlag(cmd, fs, config.FlagKafkaTopic, &f.kafkaTopic)

	return cmd
}

func (c *ServeCommander) run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg := config.FromViper(c.viper)

	c.logger = logger.New(
		logger.WithDebug(c.debug || cfg.Log.Debug),
		logger.WithJSON(cfg.Log.JSON),
		logger.WithPretty(!cfg.Log.JSON),
	)

	verifier, err := backend.NewVerifier(cfg.Auth)
	if err != nil {
		return err
	}

	driver, err := backend.OpenStorage(ctx, cfg.Storage, c.configDir, c.logger)
	if err != nil {
		return err
	}
	defer driver.Close()

	publisher, err := backend.NewPublisher(cfg.Events, c.logger)
	if err != nil {
		return err
	}
	defer publisher.Close()

	chatSvc, err := chat.New(chatConfig(cfg, publisher, c.logger), driver)
	if err != nil {
		return fmt.Errorf("creating chat service: %w", err)
	}
	// drains the worker pool after the server stops accepting requests
	defer chatSvc.Close()

	apiConfig := api.Config{
		ListenAddr:    cfg.Server.Listen,
		SiteURL:       cfg.Auth.SiteURL,
		RateLimit:     int(cfg.Chat.RateLimit),
		SecureCookies: cfg.Server.SecureCookies,
		Verifier:      verifier,
		Chat:          chatSvc,
	}
	if cfg.Auth.URL != "" {
		apiConfig.OAuth = auth.NewGoTrueClient(cfg.Auth.URL, cfg.Auth.AnonKey)
	}

	server, err := api.NewServer(apiConfig, driver, c.logger)
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	c.logger.Info("agentbase ready",
		"listen", cfg.Server.Listen,
		"storage", cfg.Storage.Driver,
		"routes", chatSvc.Routes(),
		"models", len(catalog.All()),
	)

	errChan := make(chan error, 1)
	go func() {
		if err := server.Run(); err != nil {
			errChan <- fmt.Errorf("API server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		c.logger.Info("received signal, shutting down", "signal", sig.String())
		return server.Shutdown()
	}
}

func chatConfig(cfg *config.Config, publisher eventstream.Publisher, log *slog.Logger) chat.Config {
	return chat.Config{
		SystemPrompt:   cfg.Chat.SystemPrompt,
		ThinkingBudget: int(cfg.Chat.ThinkingBudget),
		Upstreams: map[string]chat.Upstream{
			catalog.RouteOpenRouter: {
				BaseURL: cfg.Upstream.OpenRouterURL,
				APIKey:  cfg.Upstream.OpenRouterAPIKey,
			},
			catalog.RouteAnthropic: {
				BaseURL: cfg.Upstream.AnthropicURL,
				APIKey:  cfg.Upstream.AnthropicAPIKey,
			},
		},
		SiteURL:   cfg.Auth.SiteURL,
		SiteName:  cfg.Upstream.SiteName,
		Workers:   cfg.Chat.Workers,
		Publisher: publisher,
		Logger:    log,
	}
}
