package api

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/agentbase/pkg/auth"
)

const (
	// OAuthProvider is the identity provider used by /auth/login.
	OAuthProvider = "google"

	verifierCookieTTL = 10 * time.Minute
	sessionCookieTTL  = 30 * 24 * time.Hour
)

// handleLogin starts the PKCE flow and redirects to the identity provider.
func (s *Server) handleLogin(c *fiber.Ctx) error {
	pkce, err := auth.NewPKCE()
	if err != nil {
		s.logger.Error("failed to create pkce pair", "error", err)
		return internalError(c)
	}

	s.setCookie(c, verifierCookie, pkce.Verifier, verifierCookieTTL)

	target := s.config.OAuth.AuthorizeURL(OAuthProvider, s.siteURL()+"/auth/callback", pkce.Challenge)
	return c.Redirect(target, fiber.StatusFound)
}

// handleCallback exchanges the authorization code for a session.
func (s *Server) handleCallback(c *fiber.Ctx) error {
	code := c.Query("code")
	verifier := c.Cookies(verifierCookie)
	s.clearCookie(c, verifierCookie)

	if code == "" || verifier == "" {
		return c.Redirect("/login?error=auth", fiber.StatusFound)
	}

	session, err := s.config.OAuth.ExchangeCode(c.UserContext(), code, verifier)
	if err != nil {
		s.logger.Warn("code exchange failed", "error", err)
		return c.Redirect("/login?error=auth", fiber.StatusFound)
	}

	s.setCookie(c, accessTokenCookie, session.AccessToken, time.Duration(session.ExpiresIn)*time.Second)
	s.setCookie(c, refreshTokenCookie, session.RefreshToken, sessionCookieTTL)

	return c.Redirect("/chat", fiber.StatusFound)
}

// handleSignOut clears the session cookies and revokes the session upstream
// when possible.
func (s *Server) handleSignOut(c *fiber.Ctx) error {
	if token := c.Cookies(accessTokenCookie); token != "" {
		if err := s.config.OAuth.SignOut(c.UserContext(), token); err != nil {
			s.logger.Warn("remote sign out failed", "error", err)
		}
	}

	s.clearCookie(c, accessTokenCookie)
	s.clearCookie(c, refreshTokenCookie)

	return c.Redirect("/login", fiber.StatusFound)
}

func (s *Server) siteURL() string {
	if s.config.SiteURL != "" {
		return strings.TrimRight(s.config.SiteURL, "/")
	}
	return "http://localhost" + s.config.ListenAddr
}

func (s *Server) setCookie(c *fiber.Ctx, name, value string, ttl time.Duration) {
	if ttl <= 0 {
		ttl = time.Hour
	}
	c.Cookie(&fiber.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Expires:  time.Now().Add(ttl),
		HTTPOnly: true,
		Secure:   s.config.SecureCookies,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

func (s *Server) clearCookie(c *fiber.Ctx, name string) {
	c.Cookie(&fiber.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HTTPOnly: true,
		Secure:   s.config.SecureCookies,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}
