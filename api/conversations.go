package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/agentbase/pkg/llm"
	"github.com/papercomputeco/agentbase/pkg/storage"
)

// ConversationResponse is a conversation together with its messages.
type ConversationResponse struct {
	Conversation *storage.Conversation `json:"conversation"`
	Messages     []*storage.Message    `json:"messages"`
}

type createConversationRequest struct {
	Title string `json:"title"`
}

type batchDeleteRequest struct {
	IDs []string `json:"ids"`
}

type batchDeleteResponse struct {
	Deleted int `json:"deleted"`
}

type createMessageRequest struct {
	Role         string `json:"role"`
	Content      string `json:"content"`
	ModelUsed    string `json:"model_used"`
	TokensInput  int    `json:"tokens_input"`
	TokensOutput int    `json:"tokens_output"`
}

func (s *Server) handleListConversations(c *fiber.Ctx) error {
	user := userFrom(c)

	convs, err := s.driver.ListConversations(c.UserContext(), user.ID)
	if err != nil {
		s.logger.Error("failed to list conversations", "user_id", user.ID, "error", err)
		return internalError(c)
	}
	if convs == nil {
		convs = []*storage.Conversation{}
	}

	return c.JSON(convs)
}

func (s *Server) handleCreateConversation(c *fiber.Ctx) error {
	user := userFrom(c)

	var req createConversationRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return badRequest(c, "invalid request body")
		}
	}

	conv, err := s.driver.CreateConversation(c.UserContext(), user.ID, req.Title)
	if err != nil {
		s.logger.Error("failed to create conversation", "user_id", user.ID, "error", err)
		return internalError(c)
	}

	return c.Status(fiber.StatusCreated).JSON(conv)
}

func (s *Server) handleGetConversation(c *fiber.Ctx) error {
	conv, ok := s.ownedConversation(c)
	if !ok {
		return nil
	}

	msgs, err := s.driver.ListMessages(c.UserContext(), conv.ID)
	if err != nil {
		s.logger.Error("failed to list messages", "conversation_id", conv.ID, "error", err)
		return internalError(c)
	}
	if msgs == nil {
		msgs = []*storage.Message{}
	}

	return c.JSON(ConversationResponse{Conversation: conv, Messages: msgs})
}

func (s *Server) handleUpdateConversation(c *fiber.Ctx) error {
	conv, ok := s.ownedConversation(c)
	if !ok {
		return nil
	}

	var patch storage.ConversationPatch
	if err := c.BodyParser(&patch); err != nil {
		return badRequest(c, "invalid request body")
	}

	updated, err := s.driver.UpdateConversation(c.UserContext(), conv.ID, patch)
	switch {
	case errors.Is(err, storage.ErrEmptyTitle):
		return badRequest(c, "title must not be empty")
	case err != nil:
		s.logger.Error("failed to update conversation", "conversation_id", conv.ID, "error", err)
		return internalError(c)
	}

	return c.JSON(updated)
}

func (s *Server) handleDeleteConversation(c *fiber.Ctx) error {
	conv, ok := s.ownedConversation(c)
	if !ok {
		return nil
	}

	if err := s.driver.DeleteConversation(c.UserContext(), conv.ID); err != nil {
		s.logger.Error("failed to delete conversation", "conversation_id", conv.ID, "error", err)
		return internalError(c)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) handleBatchDelete(c *fiber.Ctx) error {
	user := userFrom(c)

	var req batchDeleteRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	n, err := s.driver.DeleteConversations(c.UserContext(), user.ID, req.IDs)
	if err != nil {
		s.logger.Error("failed to delete conversations", "user_id", user.ID, "error", err)
		return internalError(c)
	}

	return c.JSON(batchDeleteResponse{Deleted: n})
}

func (s *Server) handleListMessages(c *fiber.Ctx) error {
	conv, ok := s.ownedConversation(c)
	if !ok {
		return nil
	}

	msgs, err := s.driver.ListMessages(c.UserContext(), conv.ID)
	if err != nil {
		s.logger.Error("failed to list messages", "conversation_id", conv.ID, "error", err)
		return internalError(c)
	}
	if msgs == nil {
		msgs = []*storage.Message{}
	}

	return c.JSON(msgs)
}

func (s *Server) handleCreateMessage(c *fiber.Ctx) error {
	conv, ok := s.ownedConversation(c)
	if !ok {
		return nil
	}
	user := userFrom(c)

	var req createMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}

	msg, err := s.driver.CreateMessage(c.UserContext(), &storage.Message{
		ConversationID: conv.ID,
		UserID:         user.ID,
		Role:           req.Role,
		Content:        req.Content,
		ModelUsed:      req.ModelUsed,
		TokensInput:    req.TokensInput,
		TokensOutput:   req.TokensOutput,
	})
	var roleErr storage.InvalidRoleError
	switch {
	case errors.As(err, &roleErr):
		return badRequest(c, roleErr.Error())
	case err != nil:
		s.logger.Error("failed to create message", "conversation_id", conv.ID, "error", err)
		return internalError(c)
	}

	return c.Status(fiber.StatusCreated).JSON(msg)
}

// ownedConversation loads the conversation named by the :id param and checks
// that the caller owns it. When it returns false the response has already
// been written.
func (s *Server) ownedConversation(c *fiber.Ctx) (*storage.Conversation, bool) {
	id := c.Params("id")
	user := userFrom(c)

	conv, err := s.driver.GetConversation(c.UserContext(), id)
	switch {
	case storage.IsNotFound(err):
		_ = c.Status(fiber.StatusNotFound).JSON(llm.ErrorResponse{Error: "conversation not found"})
		return nil, false
	case err != nil:
		s.logger.Error("failed to get conversation", "conversation_id", id, "error", err)
		_ = internalError(c)
		return nil, false
	case conv.UserID != user.ID:
		_ = c.Status(fiber.StatusForbidden).JSON(llm.ErrorResponse{Error: "Forbidden"})
		return nil, false
	}

	return conv, true
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(llm.ErrorResponse{Error: msg})
}

func internalError(c *fiber.Ctx) error {
	return c.Status(fiber.StatusInternalServerError).JSON(llm.ErrorResponse{Error: "Internal server error"})
}
