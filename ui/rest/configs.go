package rest

import (
	"strings"

	pkgError "github.com/GMOnyx/Commandlessapp-sub000/pkg/error"
	"github.com/GMOnyx/Commandlessapp-sub000/pkg/utils"
	"github.com/GMOnyx/Commandlessapp-sub000/relay/application"
	"github.com/gofiber/fiber/v2"
)

type Configs struct {
	Source ConfigSource
}

func InitRestConfigs(app fiber.Router, source ConfigSource) Configs {
	rest := Configs{Source: source}
	app.Get("/configs", rest.List)
	app.Get("/configs/:botId", rest.Get)
	return rest
}

func (handler *Configs) List(c *fiber.Ctx) error {
	results := []application.SnapshotInfo{}
	if handler.Source != nil {
		results = append(results, handler.Source.Snapshots()...)
	}
	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Config snapshots retrieved",
		Results: results,
	})
}

func (handler *Configs) Get(c *fiber.Ctx) error {
	botID := strings.TrimSpace(c.Params("botId"))
	if handler.Source == nil {
		utils.PanicIfNeeded(pkgError.NotFoundError("config cache is disabled"))
	}
	info, ok := handler.Source.SnapshotInfo(botID)
	if !ok {
		utils.PanicIfNeeded(pkgError.NotFoundError("no config tracked for bot " + botID))
	}
	return c.JSON(utils.ResponseData{
		Status:  200,
		Code:    "SUCCESS",
		Message: "Config snapshot retrieved",
		Results: info,
	})
}
