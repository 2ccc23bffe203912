package controller

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"

	"recruitreach/models"
	"recruitreach/services"
	"recruitreach/utils"
)

const defaultStatusPollInterval = time.Second

type FileController struct {
	Ingest       *services.IngestService
	Logger       *logrus.Entry
	PollInterval time.Duration
}

func NewFileController(ingest *services.IngestService, logger *logrus.Entry) *FileController {
	return &FileController{
		Ingest:       ingest,
		Logger:       logger.WithField("controller", "file"),
		PollInterval: defaultStatusPollInterval,
	}
}

// FileStatusMessage is pushed over the status websocket.
type FileStatusMessage struct {
	FileID  string `json:"file_id"`
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Done    bool   `json:"done"`
}

func (fc *FileController) GetFolders(c *fiber.Ctx) error {
	folders, err := fc.Ingest.ListFolders(c.UserContext())
	if err != nil {
		return serviceError(c, "Failed to fetch folders", err)
	}
	return c.JSON(utils.SuccessResponse(folders))
}

func (fc *FileController) CreateFolder(c *fiber.Ctx) error {
	var input struct {
		Name string `json:"name" validate:"required,max=255"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	folder, err := fc.Ingest.CreateFolder(c.UserContext(), input.Name)
	if err != nil {
		return serviceError(c, "Failed to create folder", err)
	}
	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(folder))
}

func (fc *FileController) DeleteFolder(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := fc.Ingest.DeleteFolder(c.UserContext(), id); err != nil {
		return serviceError(c, "Failed to delete folder", err)
	}
	return c.JSON(utils.SuccessResponse(fiber.Map{
		"id":      id,
		"message": "Folder deleted successfully",
	}))
}

func (fc *FileController) GetFolderFiles(c *fiber.Ctx) error {
	files, err := fc.Ingest.ListFiles(c.UserContext(), c.Params("id"))
	if err != nil {
		return serviceError(c, "Failed to fetch files", err)
	}
	return c.JSON(utils.SuccessResponse(files))
}

// UploadFile accepts a multipart upload and queues it for ingestion
func (fc *FileController) UploadFile(c *fiber.Ctx) error {
	folderID := c.FormValue("folder_id")
	if folderID == "" {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "folder_id is required", nil)
	}

	header, err := c.FormFile("file")
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "File is required", err)
	}
	src, err := header.Open()
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Failed to read upload", err)
	}
	defer src.Close()

	file, err := fc.Ingest.Upload(c.UserContext(), folderID, header.Filename, src)
	if err != nil {
		return serviceError(c, "Failed to upload file", err)
	}

	fc.Logger.WithFields(logrus.Fields{
		"file_id":   file.ID,
		"folder_id": folderID,
		"size":      file.Size,
	}).Info("File uploaded")
	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(file))
}

func (fc *FileController) DeleteFile(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := fc.Ingest.DeleteFile(c.UserContext(), id); err != nil {
		return serviceError(c, "Failed to delete file", err)
	}
	return c.JSON(utils.SuccessResponse(fiber.Map{
		"id":      id,
		"message": "File deleted successfully",
	}))
}

func (fc *FileController) GetEmbeddings(c *fiber.Ctx) error {
	embeddings, err := fc.Ingest.Embeddings(c.UserContext(), c.Params("id"))
	if err != nil {
		return serviceError(c, "Failed to fetch embeddings", err)
	}
	return c.JSON(utils.SuccessResponse(embeddings))
}

func (fc *FileController) DeleteEmbeddings(c *fiber.Ctx) error {
	deleted, err := fc.Ingest.DeleteEmbeddings(c.UserContext(), c.Params("id"))
	if err != nil {
		return serviceError(c, "Failed to delete embeddings", err)
	}
	return c.JSON(utils.SuccessResponse(fiber.Map{"deleted": deleted}))
}

// RequireWebSocket rejects plain HTTP requests to websocket routes
func RequireWebSocket(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return utils.ErrorResponse(c, fiber.StatusUpgradeRequired, "Websocket upgrade required", nil)
}

// FileStatusWS streams the ingestion status of a file until it finishes
func (fc *FileController) FileStatusWS(conn *websocket.Conn) {
	defer conn.Close()

	fileID := conn.Params("id")
	log := fc.Logger.WithField("file_id", fileID)
	ticker := time.NewTicker(fc.PollInterval)
	defer ticker.Stop()

	var last string
	for {
		msg := fc.statusMessage(fileID)
		if msg.Status != last || msg.Done {
			if err := conn.WriteJSON(msg); err != nil {
				log.WithError(err).Debug("Status stream closed")
				return
			}
			last = msg.Status
		}
		if msg.Done {
			return
		}
		<-ticker.C
	}
}

func (fc *FileController) statusMessage(fileID string) FileStatusMessage {
	file, err := fc.Ingest.GetFile(context.Background(), fileID)
	if err != nil {
		msg := FileStatusMessage{FileID: fileID, Status: models.FileStatusError, Done: true, Message: "failed to load file"}
		if errors.Is(err, services.ErrNotFound) {
			msg.Message = "file not found"
		}
		return msg
	}
	return FileStatusMessage{
		FileID:  file.ID,
		Status:  file.Status,
		Message: file.ErrorMessage,
		Done:    file.Done(),
	}
}
