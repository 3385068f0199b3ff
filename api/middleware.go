package api

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/agentbase/pkg/auth"
	"github.com/papercomputeco/agentbase/pkg/llm"
)

const (
	accessTokenCookie  = "sb-access-token"
	refreshTokenCookie = "sb-refresh-token"
	verifierCookie     = "sb-code-verifier"

	userLocalsKey = "agentbase.user"
)

// requireUser resolves the caller from a bearer token or the session cookie
// and rejects the request when neither yields a user.
func (s *Server) requireUser(c *fiber.Ctx) error {
	token := bearerToken(c.Get(fiber.HeaderAuthorization))
	if token == "" {
		token = c.Cookies(accessTokenCookie)
	}
	if token == "" {
		return unauthorized(c)
	}

	user, err := s.config.Verifier.Verify(c.UserContext(), token)
	if err != nil {
		if !errors.Is(err, auth.ErrUnauthorized) {
			s.logger.Warn("token verification failed", "error", err)
		}
		return unauthorized(c)
	}

	c.Locals(userLocalsKey, user)
	return c.Next()
}

func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

func userFrom(c *fiber.Ctx) *auth.User {
	user, _ := c.Locals(userLocalsKey).(*auth.User)
	return user
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(llm.ErrorResponse{Error: "Unauthorized"})
}
