package controller

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"recruitreach/services"
	"recruitreach/utils"
)

type ChatController struct {
	Orchestrator *services.Orchestrator
	Logger       *logrus.Entry
}

func NewChatController(orchestrator *services.Orchestrator, logger *logrus.Entry) *ChatController {
	return &ChatController{
		Orchestrator: orchestrator,
		Logger:       logger.WithField("controller", "chat"),
	}
}

func (cc *ChatController) CreateSession(c *fiber.Ctx) error {
	var input struct {
		Title string `json:"title"`
	}
	// an empty body is allowed
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&input); err != nil {
			return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
		}
	}

	session, err := cc.Orchestrator.CreateSession(c.UserContext(), input.Title)
	if err != nil {
		return serviceError(c, "Failed to create chat session", err)
	}
	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(session))
}

// SendMessage runs one chat turn. The reply may carry a created or updated sequence.
func (cc *ChatController) SendMessage(c *fiber.Ctx) error {
	var input struct {
		Message    string `json:"message" validate:"required"`
		SequenceID string `json:"sequence_id"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	sessionID := c.Params("session_id")
	reply, err := cc.Orchestrator.Chat(c.UserContext(), sessionID, input.Message, input.SequenceID)
	if err != nil {
		return serviceError(c, "Failed to process chat message", err)
	}

	cc.Logger.WithFields(logrus.Fields{
		"session_id": sessionID,
		"type":       reply.Type,
	}).Info("Chat message processed")
	return c.JSON(utils.SuccessResponse(reply))
}

func (cc *ChatController) GetMessages(c *fiber.Ctx) error {
	limit := utils.ParseIntDefault(c.Query("limit"), 10)
	offset := utils.ParseIntDefault(c.Query("offset"), 0)

	messages, err := cc.Orchestrator.Messages(c.UserContext(), c.Params("session_id"), limit, offset)
	if err != nil {
		return serviceError(c, "Failed to fetch messages", err)
	}
	return c.JSON(utils.SuccessResponse(utils.PaginatedResponse{
		Data:   messages,
		Limit:  limit,
		Offset: offset,
	}))
}

func (cc *ChatController) GetContext(c *fiber.Ctx) error {
	values, err := cc.Orchestrator.Context(c.UserContext(), c.Params("session_id"))
	if err != nil {
		return serviceError(c, "Failed to fetch session context", err)
	}
	return c.JSON(utils.SuccessResponse(values))
}

// UpdateContext merges the posted keys into the session context
func (cc *ChatController) UpdateContext(c *fiber.Ctx) error {
	var input map[string]interface{}
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}

	values, err := cc.Orchestrator.UpdateContext(c.UserContext(), c.Params("session_id"), input)
	if err != nil {
		return serviceError(c, "Failed to update session context", err)
	}
	return c.JSON(utils.SuccessResponse(values))
}

func (cc *ChatController) FormatMessages(c *fiber.Ctx) error {
	var input struct {
		Messages []map[string]interface{} `json:"messages"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	return c.JSON(utils.SuccessResponse(services.FormatMessages(input.Messages)))
}
