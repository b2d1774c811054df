package apiv1

import (
	"timeledger-backend/controllers"
	"timeledger-backend/db"
	apimodels "timeledger-backend/models/api"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type systemApiController struct {
	controllers.BaseAPIController
}

// InitSystemRouters - проверка живости и метрики, без заголовка организации
func InitSystemRouters(app *fiber.App, metricsEnabled bool, metricsPath string) {
	controller := systemApiController{}
	app.Get("healthz", controller.health)
	if metricsEnabled {
		app.Get(metricsPath, adaptor.HTTPHandler(promhttp.Handler()))
	}
}

// @Summary Проверка живости
// @Tags Система
// @Success 200 {object} apimodels.Response
// @Failure 503 {object} apimodels.Response
// @router /healthz [get]
func (c *systemApiController) health(ctx *fiber.Ctx) error {
	if err := db.PingDB(); err != nil {
		c.GetLogger(ctx).WithError(err).Warn("БД недоступна")
		return ctx.Status(fiber.StatusServiceUnavailable).JSON(apimodels.NewError("БД недоступна"))
	}
	return ctx.Status(fiber.StatusOK).JSON(apimodels.NewResponse(nil))
}
