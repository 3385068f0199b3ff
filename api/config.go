// Package api provides the agentbase HTTP API: model catalog, conversations,
// chat streaming and the browser sign-in flow.
package api

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/agentbase/pkg/auth"
)

// Config is the API server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":3000")
	ListenAddr string

	// SiteURL is the public origin of the app, used for OAuth redirects.
	SiteURL string

	// RateLimit is the number of chat requests a user may make per minute.
	// Zero disables the limit.
	RateLimit int

	// SecureCookies marks session cookies Secure.
	SecureCookies bool

	// Verifier resolves access tokens to users.
	Verifier auth.Verifier

	// OAuth drives the browser sign-in flow. Sign-in routes are not
	// registered when nil.
	OAuth OAuthClient

	// Chat serves POST /api/chat. The route is not registered when nil.
	Chat ChatHandler
}

// ChatHandler streams a chat reply for an authenticated user.
type ChatHandler interface {
	Handle(c *fiber.Ctx, user *auth.User) error
}

// OAuthClient is the part of the auth service the sign-in routes use.
type OAuthClient interface {
	AuthorizeURL(provider, redirectTo, challenge string) string
	ExchangeCode(ctx context.Context, code, verifier string) (*auth.Session, error)
	SignOut(ctx context.Context, token string) error
}
