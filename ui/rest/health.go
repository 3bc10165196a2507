package rest

import (
	"time"

	"github.com/GMOnyx/Commandlessapp-sub000/pkg/utils"
	"github.com/gofiber/fiber/v2"
)

type Health struct {
	opts    Options
	started time.Time
}

func InitRestHealth(app fiber.Router, opts Options) Health {
	handler := Health{opts: opts, started: time.Now()}
	app.Get("/health", handler.GetStatus)
	return handler
}

// GetStatus reports liveness. The relay is degraded when a tracked bot has no
// fresh policy snapshot.
func (h *Health) GetStatus(c *fiber.Ctx) error {
	status := "ok"
	var stale []string
	if h.opts.Configs != nil {
		for _, info := range h.opts.Configs.Snapshots() {
			if info.Stale {
				stale = append(stale, info.BotID)
			}
		}
	}
	if len(stale) > 0 {
		status = "degraded"
	}

	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Relay is running",
		Results: map[string]any{
			"status":         status,
			"version":        h.opts.Version,
			"instance_id":    h.opts.InstanceID,
			"bot_id":         h.opts.BotID,
			"uptime_seconds": int64(time.Since(h.started).Seconds()),
			"config_cache":   h.opts.Configs != nil,
			"stale_bots":     stale,
		},
	})
}
