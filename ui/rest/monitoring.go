package rest

import (
	"github.com/GMOnyx/Commandlessapp-sub000/pkg/relaymonitor"
	"github.com/GMOnyx/Commandlessapp-sub000/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
)

type MonitoringHandler struct {
	monitor *relaymonitor.Monitor
}

// InitRestMonitoring registra el resumen del pipeline y los eventos recientes
func InitRestMonitoring(app fiber.Router, monitor *relaymonitor.Monitor) {
	h := &MonitoringHandler{monitor: monitor}
	app.Get("/stats", h.GetStats)
}

func (h *MonitoringHandler) GetStats(c *fiber.Ctx) error {
	if h.monitor == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(utils.ResponseData{
			Status:  fiber.StatusServiceUnavailable,
			Code:    "UNAVAILABLE",
			Message: "Monitor not initialized",
		})
	}
	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Pipeline stats retrieved",
		Results: h.monitor.Stats(),
	})
}

// InitRestMetrics exposes the monitor registry in the Prometheus text format.
func InitRestMetrics(app fiber.Router, monitor *relaymonitor.Monitor) {
	if monitor == nil {
		return
	}
	app.Get("/metrics", adaptor.HTTPHandler(monitor.Handler()))
}
