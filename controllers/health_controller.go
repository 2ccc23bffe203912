package controller

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

const version = "1.0.0"

type HealthController struct {
	DB *gorm.DB
}

func NewHealthController(db *gorm.DB) *HealthController {
	return &HealthController{DB: db}
}

// Health reports liveness and whether the database answers a ping
func (hc *HealthController) Health(c *fiber.Ctx) error {
	status := fiber.StatusOK
	database := "up"

	sqlDB, err := hc.DB.DB()
	if err == nil {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		err = sqlDB.PingContext(ctx)
	}
	if err != nil {
		status = fiber.StatusServiceUnavailable
		database = "down"
	}

	return c.Status(status).JSON(fiber.Map{
		"status":   "running",
		"version":  version,
		"database": database,
	})
}
