package api

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/agentbase/pkg/catalog"
	"github.com/papercomputeco/agentbase/pkg/llm"
)

// ModelsResponse is the body of GET /api/models.
type ModelsResponse struct {
	Models  []catalog.Model `json:"models"`
	Default string          `json:"default"`
}

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

// handleHealthz reports whether the storage backend answers.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if _, err := s.driver.ListConversations(r.Context(), ""); err != nil {
		s.logger.Error("health check failed", "error", err)
		http.Error(w, "unhealthy", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleListModels returns the model catalog, optionally filtered by tier.
func (s *Server) handleListModels(c *fiber.Ctx) error {
	var models []catalog.Model
	switch c.Query("tier") {
	case "":
		models = catalog.All()
	case "free":
		models = catalog.Free()
	case "premium":
		models = catalog.Premium()
	default:
		return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: "tier must be free or premium"})
	}

	return c.JSON(ModelsResponse{
		Models:  models,
		Default: catalog.DefaultModelID,
	})
}

// handleGetModel returns a single catalog entry.
func (s *Server) handleGetModel(c *fiber.Ctx) error {
	model, ok := catalog.ByID(c.Params("id"))
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(llm.ErrorResponse{Error: "model not found"})
	}
	return c.JSON(model)
}

// handleMe returns the authenticated user.
func (s *Server) handleMe(c *fiber.Ctx) error {
	return c.JSON(userFrom(c))
}

func (s *Server) handleChat(c *fiber.Ctx) error {
	return s.config.Chat.Handle(c, userFrom(c))
}
