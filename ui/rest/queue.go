package rest

import (
	"github.com/GMOnyx/Commandlessapp-sub000/pkg/utils"
	"github.com/gofiber/fiber/v2"
)

func InitRestQueue(app fiber.Router, source QueueSource) {
	app.Get("/queue", func(c *fiber.Ctx) error {
		return GetQueueStats(c, source)
	})
}

// GetQueueStats returns real-time send queue statistics
func GetQueueStats(c *fiber.Ctx, source QueueSource) error {
	if source == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(utils.ResponseData{
			Status:  fiber.StatusServiceUnavailable,
			Code:    "UNAVAILABLE",
			Message: "Send queue not initialized",
		})
	}
	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Send queue stats retrieved",
		Results: source.QueueStats(),
	})
}
