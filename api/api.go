package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"github.com/papercomputeco/agentbase/pkg/llm"
	"github.com/papercomputeco/agentbase/pkg/storage"
)

// Server is the agentbase API server.
type Server struct {
	config Config
	driver storage.Driver
	logger *slog.Logger
	app    *fiber.App
}

// NewServer creates a new API server.
// The driver is injected to allow sharing with other components
// (e.g., the chat service's worker pool).
func NewServer(config Config, driver storage.Driver, logger *slog.Logger) (*Server, error) {
	if driver == nil {
		return nil, errors.New("api server requires a storage driver")
	}
	if config.Verifier == nil {
		return nil, errors.New("api server requires a token verifier")
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})

	s := &Server{
		config: config,
		driver: driver,
		logger: logger.With("component", "api"),
		app:    app,
	}

	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(s.requestLogger)
	app.Use(compress.New(compress.Config{
		// compressing the chat stream would hold deltas back
		Next: func(c *fiber.Ctx) bool {
			return c.Path() == "/api/chat"
		},
	}))

	app.Get("/ping", s.handlePing)
	app.Get("/healthz", adaptor.HTTPHandlerFunc(s.handleHealthz))

	if config.OAuth != nil {
		app.Get("/auth/login", s.handleLogin)
		app.Get("/auth/callback", s.handleCallback)
		app.Post("/auth/signout", s.handleSignOut)
	}

	api := app.Group("/api", s.requireUser)
	api.Get("/models", s.handleListModels)
	api.Get("/models/:id", s.handleGetModel)
	api.Get("/me", s.handleMe)

	api.Get("/conversations", s.handleListConversations)
	api.Post("/conversations", s.handleCreateConversation)
	api.Post("/conversations/batch-delete", s.handleBatchDelete)
	api.Get("/conversations/:id", s.handleGetConversation)
	api.Patch("/conversations/:id", s.handleUpdateConversation)
	api.Delete("/conversations/:id", s.handleDeleteConversation)
	api.Get("/conversations/:id/messages", s.handleListMessages)
	api.Post("/conversations/:id/messages", s.handleCreateMessage)

	if config.Chat != nil {
		if config.RateLimit > 0 {
			api.Post("/chat", s.chatLimiter(), s.handleChat)
		} else {
			api.Post("/chat", s.handleChat)
		}
	}

	return s, nil
}

// App exposes the underlying fiber app, mainly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting API server",
		"listen", s.config.ListenAddr,
	)
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// requestLogger logs each request once it has been served.
func (s *Server) requestLogger(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()

	status := c.Response().StatusCode()
	var fe *fiber.Error
	if errors.As(err, &fe) {
		status = fe.Code
	}

	s.logger.Debug("request served",
		"request_id", c.GetRespHeader(fiber.HeaderXRequestID),
		"method", c.Method(),
		"path", c.Path(),
		"status", status,
		"duration", time.Since(start),
	)

	return err
}

func (s *Server) chatLimiter() fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        s.config.RateLimit,
		Expiration: time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			if user := userFrom(c); user != nil {
				return user.ID
			}
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(llm.ErrorResponse{Error: "rate limit exceeded"})
		},
	})
}

// errorHandler renders fiber errors (unknown routes, bad methods, recovered
// panics) in the API's error shape.
func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	msg := "Internal server error"

	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		if code < http.StatusInternalServerError {
			msg = fe.Message
		}
	}

	return c.Status(code).JSON(llm.ErrorResponse{Error: msg})
}
