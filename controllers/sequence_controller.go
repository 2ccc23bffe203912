package controller

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"recruitreach/models"
	"recruitreach/services"
	"recruitreach/utils"
)

type SequenceController struct {
	Sequences    *services.SequenceManager
	Queue        *services.QueueService
	Orchestrator *services.Orchestrator
	Logger       *logrus.Entry
}

func NewSequenceController(sequences *services.SequenceManager, queue *services.QueueService, orchestrator *services.Orchestrator, logger *logrus.Entry) *SequenceController {
	return &SequenceController{
		Sequences:    sequences,
		Queue:        queue,
		Orchestrator: orchestrator,
		Logger:       logger.WithField("controller", "sequence"),
	}
}

type promptRequest struct {
	Prompt string `json:"prompt" validate:"required"`
}

// CreateSequence stores a new DRAFT sequence
func (sc *SequenceController) CreateSequence(c *fiber.Ctx) error {
	var input services.CreateSequenceInput
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}

	seq, err := sc.Sequences.Create(c.UserContext(), input)
	if err != nil {
		return serviceError(c, "Failed to create sequence", err)
	}

	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(seq))
}

// GetSequences returns a page of sequences, newest first
func (sc *SequenceController) GetSequences(c *fiber.Ctx) error {
	opts := services.ListOptions{
		Limit:      utils.ParseIntDefault(c.Query("limit"), 10),
		Offset:     utils.ParseIntDefault(c.Query("offset"), 0),
		ActiveOnly: c.QueryBool("active_only", false),
		Status:     models.SequenceStatus(c.Query("status")),
	}

	sequences, err := sc.Sequences.List(c.UserContext(), opts)
	if err != nil {
		return serviceError(c, "Failed to fetch sequences", err)
	}

	return c.JSON(utils.SuccessResponse(utils.PaginatedResponse{
		Data:   sequences,
		Limit:  opts.Limit,
		Offset: opts.Offset,
	}))
}

func (sc *SequenceController) GetSequence(c *fiber.Ctx) error {
	seq, err := sc.Sequences.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return serviceError(c, "Sequence not found", err)
	}
	return c.JSON(utils.SuccessResponse(seq))
}

// UpdateSequence applies a partial update. Activating a sequence queues its
// emails in the background.
func (sc *SequenceController) UpdateSequence(c *fiber.Ctx) error {
	var input services.SequenceUpdate
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}

	seq, err := sc.Sequences.Update(c.UserContext(), c.Params("id"), input)
	if err != nil {
		return serviceError(c, "Failed to update sequence", err)
	}
	return c.JSON(utils.SuccessResponse(seq))
}

func (sc *SequenceController) DeleteSequence(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := sc.Sequences.Delete(c.UserContext(), id); err != nil {
		return serviceError(c, "Failed to delete sequence", err)
	}
	return c.JSON(utils.SuccessResponse(fiber.Map{
		"id":      id,
		"message": "Sequence deleted successfully",
	}))
}

func (sc *SequenceController) PublishSequence(c *fiber.Ctx) error {
	seq, err := sc.Sequences.Publish(c.UserContext(), c.Params("id"))
	if err != nil {
		return serviceError(c, "Failed to publish sequence", err)
	}

	sc.Logger.WithField("sequence_id", seq.ID).Info("Sequence published")
	return c.JSON(utils.SuccessResponse(seq))
}

// GetSequenceEmails reports the queued emails of a sequence and their states
func (sc *SequenceController) GetSequenceEmails(c *fiber.Ctx) error {
	id := c.Params("id")
	if _, err := sc.Sequences.Get(c.UserContext(), id); err != nil {
		return serviceError(c, "Sequence not found", err)
	}

	entries, err := sc.Queue.Entries(c.UserContext(), id)
	if err != nil {
		return serviceError(c, "Failed to fetch queued emails", err)
	}
	counts, err := sc.Queue.Counts(c.UserContext(), id)
	if err != nil {
		return serviceError(c, "Failed to count queued emails", err)
	}

	return c.JSON(utils.SuccessResponse(fiber.Map{
		"emails": entries,
		"counts": counts,
	}))
}

// GenerateSequence asks the assistant to draft a new sequence from a prompt
func (sc *SequenceController) GenerateSequence(c *fiber.Ctx) error {
	var input promptRequest
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	seq, err := sc.Orchestrator.Generate(c.UserContext(), input.Prompt)
	if err != nil {
		return serviceError(c, "Failed to generate sequence", err)
	}
	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(seq))
}

// EditSequence asks the assistant to revise the sequence in the path
func (sc *SequenceController) EditSequence(c *fiber.Ctx) error {
	var input promptRequest
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	seq, err := sc.Orchestrator.Edit(c.UserContext(), c.Params("id"), input.Prompt)
	if err != nil {
		return serviceError(c, "Failed to edit sequence", err)
	}
	return c.JSON(utils.SuccessResponse(seq))
}
