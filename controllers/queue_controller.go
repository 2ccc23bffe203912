package controller

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"recruitreach/utils"
	"recruitreach/worker"
)

// QueueRunner is the processor surface the admin endpoints drive.
type QueueRunner interface {
	Start()
	Stop()
	Running() bool
	Status() worker.ProcessorStatus
	RunOnce(ctx context.Context) (worker.PassResult, error)
}

type QueueController struct {
	Processor QueueRunner
	Logger    *logrus.Entry
}

func NewQueueController(processor QueueRunner, logger *logrus.Entry) *QueueController {
	return &QueueController{
		Processor: processor,
		Logger:    logger.WithField("controller", "queue"),
	}
}

func (qc *QueueController) GetProcessorStatus(c *fiber.Ctx) error {
	return c.JSON(utils.SuccessResponse(qc.Processor.Status()))
}

// ToggleProcessor starts a stopped processor or stops a running one
func (qc *QueueController) ToggleProcessor(c *fiber.Ctx) error {
	if qc.Processor.Running() {
		qc.Processor.Stop()
	} else {
		qc.Processor.Start()
	}

	status := qc.Processor.Status()
	utils.LogEvent("queue_processor_toggled", map[string]interface{}{
		"running": status.Running,
	})
	return c.JSON(utils.SuccessResponse(status))
}

// ProcessQueue runs a single pass immediately
func (qc *QueueController) ProcessQueue(c *fiber.Ctx) error {
	result, err := qc.Processor.RunOnce(c.UserContext())
	if err != nil {
		return serviceError(c, "Failed to process email queue", err)
	}
	return c.JSON(utils.SuccessResponse(result))
}
