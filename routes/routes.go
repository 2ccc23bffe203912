package routes

import (
	controller "recruitreach/controllers"
	"recruitreach/middleware"
	"recruitreach/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"
)

// Controllers bundles every handler group the API exposes.
type Controllers struct {
	Sequences *controller.SequenceController
	Chat      *controller.ChatController
	Files     *controller.FileController
	Queue     *controller.QueueController
	Health    *controller.HealthController

	// AssistantLimiter guards the endpoints that call the language model
	AssistantLimiter fiber.Handler
}

func SetupRoutes(app *fiber.App, ctrl Controllers, log *logrus.Entry) {
	app.Get("/health", ctrl.Health.Health)

	api := app.Group("/api", middleware.RequestLogger(log.WithField("component", "http")))

	limiter := ctrl.AssistantLimiter
	if limiter == nil {
		limiter = func(c *fiber.Ctx) error { return c.Next() }
	}

	SetupSequenceRoutes(api, ctrl.Sequences, limiter)
	SetupChatRoutes(api, ctrl.Chat, limiter)
	SetupFileRoutes(api, ctrl.Files)
	SetupQueueRoutes(api, ctrl.Queue)

	// 404 handler
	app.Use(func(c *fiber.Ctx) error {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Route not found", nil)
	})

	log.Info("Routes initialized successfully")
}

func SetupSequenceRoutes(api fiber.Router, sc *controller.SequenceController, limiter fiber.Handler) {
	sequences := api.Group("/sequences")
	sequences.Post("/", sc.CreateSequence)
	sequences.Get("/", sc.GetSequences)
	sequences.Post("/generate", limiter, sc.GenerateSequence)
	sequences.Get("/:id", sc.GetSequence)
	sequences.Put("/:id", sc.UpdateSequence)
	sequences.Delete("/:id", sc.DeleteSequence)
	sequences.Post("/:id/publish", sc.PublishSequence)
	sequences.Get("/:id/emails", sc.GetSequenceEmails)
	sequences.Post("/:id/edit", limiter, sc.EditSequence)
}

func SetupChatRoutes(api fiber.Router, cc *controller.ChatController, limiter fiber.Handler) {
	chat := api.Group("/chat")
	chat.Post("/session", cc.CreateSession)
	chat.Post("/format", cc.FormatMessages)
	chat.Post("/:session_id", limiter, cc.SendMessage)
	chat.Get("/:session_id/messages", cc.GetMessages)
	chat.Get("/:session_id/context", cc.GetContext)
	chat.Put("/:session_id/context", cc.UpdateContext)
}

func SetupFileRoutes(api fiber.Router, fc *controller.FileController) {
	folders := api.Group("/folders")
	folders.Get("/", fc.GetFolders)
	folders.Post("/", fc.CreateFolder)
	folders.Delete("/:id", fc.DeleteFolder)
	folders.Get("/:id/files", fc.GetFolderFiles)

	files := api.Group("/files")
	files.Post("/", fc.UploadFile)
	files.Delete("/:id", fc.DeleteFile)
	files.Get("/:id/status", controller.RequireWebSocket, websocket.New(fc.FileStatusWS))
	files.Get("/:id/embeddings", fc.GetEmbeddings)
	files.Delete("/:id/embeddings", fc.DeleteEmbeddings)
}

func SetupQueueRoutes(api fiber.Router, qc *controller.QueueController) {
	queue := api.Group("/queue")
	queue.Get("/processor", qc.GetProcessorStatus)
	queue.Put("/processor/toggle", qc.ToggleProcessor)
	queue.Post("/process", qc.ProcessQueue)
}
