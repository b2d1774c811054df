package apiv1

import (
	"fmt"

	"timeledger-backend/controllers"
	auditpackhandler "timeledger-backend/lib/audit-pack"
	filestorage "timeledger-backend/lib/file-storage"
	"timeledger-backend/middleware"
	"timeledger-backend/models"
	apimodels "timeledger-backend/models/api"
	auditpackapimodels "timeledger-backend/models/api/auditpack"
	dbmodels "timeledger-backend/models/db"

	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"
)

// HeaderContentSHA256 - дайджест выгружаемого архива, клиент сверяет его с полученными байтами
const HeaderContentSHA256 = "X-Content-SHA256"

type auditPackApiController struct {
	controllers.BaseAPIController
}

func InitAuditPackApiRouters(app *fiber.App) {
	controller := auditPackApiController{}
	app.Route("audit_pack", func(router fiber.Router) {
		router.Post("", controller.submit)
		router.Route(":id", func(idRoute fiber.Router) {
			idRoute.Get("", controller.get)
			idRoute.Post("retry", controller.retry)
			idRoute.Get("download", controller.download)
		})
	})
}

// @Summary Запрос аудиторского пакета
// @Tags Аудиторские пакеты
// @Description Постановка в очередь формирования пакета. Повторный запрос той же области, пока она в работе, возвращает существующий запрос.
// @Param   X-Organization-ID	header	string							true	"Organization ID"
// @Param	body				body	auditpackapimodels.SubmitData	true	"request body"
// @Success 200 {object} apimodels.Response{data=auditpackapimodels.RequestView}
// @Success 202 {object} apimodels.Response{data=auditpackapimodels.RequestView}
// @Failure 400 {object} apimodels.Response
// @Failure 500 {object} apimodels.Response
// @router /api/v1/audit_pack [post]
func (c *auditPackApiController) submit(ctx *fiber.Ctx) error {
	var payload auditpackapimodels.SubmitData
	if err := c.BodyParser(ctx, &payload); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(apimodels.NewError(err.Error()))
	}
	payload.OrganizationID = middleware.GetOrganizationID(ctx)
	if payload.RequestedBy == "" {
		payload.RequestedBy = middleware.GetUserID(ctx)
	}
	rec, attached, err := auditpackhandler.Instance.Submit(ctx.UserContext(), payload)
	if err != nil {
		return c.SendError(ctx, c.GetLogger(ctx), err, "Ошибка постановки запроса аудиторского пакета")
	}
	status := fiber.StatusAccepted
	if attached {
		status = fiber.StatusOK
	}
	return ctx.Status(status).JSON(apimodels.NewResponse(auditpackapimodels.RequestConvert(*rec, attached)))
}

// @Summary Состояние запроса
// @Tags Аудиторские пакеты
// @Param   X-Organization-ID	header	string	true	"Organization ID"
// @Param   id					path	string	true	"rec ID"
// @Success 200 {object} apimodels.Response{data=auditpackapimodels.RequestView}
// @Failure 400 {object} apimodels.Response
// @Failure 404 {object} apimodels.Response
// @Failure 500 {object} apimodels.Response
// @router /api/v1/audit_pack/{id} [get]
func (c *auditPackApiController) get(ctx *fiber.Ctx) error {
	rec, err := c.getRequest(ctx)
	if err != nil {
		return err
	}
	if rec == nil {
		return nil
	}
	return ctx.Status(fiber.StatusOK).JSON(apimodels.NewResponse(auditpackapimodels.RequestConvert(*rec, false)))
}

// @Summary Повтор формирования
// @Tags Аудиторские пакеты
// @Description Возврат неудавшегося запроса в очередь, если ошибка повторяемая и попытки не исчерпаны
// @Param   X-Organization-ID	header	string	true	"Organization ID"
// @Param   id					path	string	true	"rec ID"
// @Success 200 {object} apimodels.Response{data=auditpackapimodels.RequestView}
// @Failure 400 {object} apimodels.Response
// @Failure 404 {object} apimodels.Response
// @Failure 500 {object} apimodels.Response
// @router /api/v1/audit_pack/{id}/retry [post]
func (c *auditPackApiController) retry(ctx *fiber.Ctx) error {
	rec, err := c.getRequest(ctx)
	if err != nil || rec == nil {
		return err
	}
	updated, err := auditpackhandler.Instance.Retry(ctx.UserContext(), rec.ID)
	if errors.Is(err, auditpackhandler.ErrNotInState) || (err == nil && updated == nil) {
		return ctx.Status(fiber.StatusConflict).JSON(apimodels.NewError("состояние запроса изменилось, повторите попытку"))
	}
	if err != nil {
		return c.SendError(ctx, c.GetLogger(ctx), err, "Ошибка повтора формирования пакета")
	}
	return ctx.Status(fiber.StatusOK).JSON(apimodels.NewResponse(auditpackapimodels.RequestConvert(*updated, false)))
}

// @Summary Скачать пакет
// @Tags Аудиторские пакеты
// @Param   X-Organization-ID	header	string	true	"Organization ID"
// @Param   id					path	string	true	"rec ID"
// @Success 200 {file} file
// @Failure 404 {object} apimodels.Response
// @Failure 409 {object} apimodels.Response
// @Failure 500 {object} apimodels.Response
// @router /api/v1/audit_pack/{id}/download [get]
func (c *auditPackApiController) download(ctx *fiber.Ctx) error {
	rec, err := c.getRequest(ctx)
	if err != nil || rec == nil {
		return err
	}
	if rec.Status != models.AuditPackStatusUploaded {
		return ctx.Status(fiber.StatusConflict).JSON(apimodels.NewError("пакет ещё не выгружен: " + rec.Status.ToHuman()))
	}
	data, err := filestorage.Instance.GetAuditPack(ctx.UserContext(), rec.ArtifactRef)
	if err != nil {
		return c.SendError(ctx, c.GetLogger(ctx), err, "Ошибка получения пакета из хранилища")
	}
	ctx.Set(fiber.HeaderContentType, "application/zip")
	ctx.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=\"audit_pack_%s.zip\"", rec.ID))
	ctx.Set(HeaderContentSHA256, rec.ArtifactDigest)
	return ctx.Status(fiber.StatusOK).Send(data)
}

// getRequest отвечает сам, если запрос не найден; тогда возвращает nil, nil
func (c *auditPackApiController) getRequest(ctx *fiber.Ctx) (*dbmodels.AuditPackRequest, error) {
	id, err := c.GetID(ctx)
	if err != nil {
		return nil, ctx.Status(fiber.StatusBadRequest).JSON(apimodels.NewError(err.Error()))
	}
	rec, err := auditpackhandler.Instance.Get(ctx.UserContext(), id)
	if err != nil {
		return nil, c.SendError(ctx, c.GetLogger(ctx), err, "Ошибка получения запроса аудиторского пакета")
	}
	if rec == nil || rec.OrganizationID != middleware.GetOrganizationID(ctx) {
		return nil, ctx.Status(fiber.StatusNotFound).JSON(apimodels.NewError("запрос не найден"))
	}
	return rec, nil
}
