package apiv1

import (
	"fmt"
	"time"

	"timeledger-backend/controllers"
	"timeledger-backend/lib/evidence/chain"
	pdfexport "timeledger-backend/lib/export/pdf"
	xlsexport "timeledger-backend/lib/export/xls"
	"timeledger-backend/lib/ledger"
	"timeledger-backend/lib/lineage"
	offlinequeue "timeledger-backend/lib/offline-queue"
	"timeledger-backend/middleware"
	"timeledger-backend/models"
	apimodels "timeledger-backend/models/api"
	ledgerapimodels "timeledger-backend/models/api/ledger"
	dbmodels "timeledger-backend/models/db"

	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"
)

type ledgerApiController struct {
	controllers.BaseAPIController
}

func InitLedgerApiRouters(app *fiber.App) {
	controller := ledgerApiController{}
	app.Route("ledger/:employeeId", func(router fiber.Router) {
		router.Post("entries", controller.appendEntry)
		router.Post("breaks", controller.appendBreak)
		router.Get("verify", controller.verify)
		router.Get("status", controller.status)
		router.Get("timesheet", controller.timesheet)
		router.Get("report", controller.report)
	})
}

// @Summary Добавление отметки
// @Tags Журнал отметок
// @Description Добавление отметки в журнал сотрудника. При недоступности хранилища отметка ставится в офлайн-очередь (202).
// @Param   X-Organization-ID	header	string								true	"Organization ID"
// @Param   employeeId			path	string								true	"employee ID"
// @Param	body				body	ledgerapimodels.AppendEntryData		true	"request body"
// @Success 201 {object} apimodels.Response{data=ledgerapimodels.EntryView}
// @Success 202 {object} apimodels.Response{data=ledgerapimodels.QueuedView}
// @Failure 400 {object} apimodels.Response
// @Failure 409 {object} apimodels.Response
// @Failure 500 {object} apimodels.Response
// @router /api/v1/ledger/{employeeId}/entries [post]
func (c *ledgerApiController) appendEntry(ctx *fiber.Ctx) error {
	employeeID, err := c.GetIDByKey(ctx, "employeeId")
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(apimodels.NewError(err.Error()))
	}
	var payload ledgerapimodels.AppendEntryData
	if err = c.BodyParser(ctx, &payload); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(apimodels.NewError(err.Error()))
	}
	payload.OrganizationID = middleware.GetOrganizationID(ctx)
	payload.EmployeeID = employeeID
	if payload.CreatedBy == "" {
		payload.CreatedBy = middleware.GetUserID(ctx)
	}
	if err = payload.Validate(); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(apimodels.NewError(err.Error()))
	}
	rec, err := ledger.Instance.AppendEntry(ctx.UserContext(), payload)
	if err != nil {
		if errors.Is(err, ledger.ErrStoreUnavailable) && offlinequeue.Instance != nil {
			entry := payload
			return c.enqueue(ctx, offlinequeue.Payload{
				OrganizationID: payload.OrganizationID,
				EmployeeID:     employeeID,
				Entry:          &entry,
			}, err)
		}
		return c.SendError(ctx, c.GetLogger(ctx), err, "Ошибка добавления отметки")
	}
	return ctx.Status(fiber.StatusCreated).JSON(apimodels.NewResponse(ledgerapimodels.EntryConvert(*rec)))
}

// @Summary Перерыв
// @Tags Журнал отметок
// @Description Окончание работы в начале перерыва и начало работы при возобновлении
// @Param   X-Organization-ID	header	string								true	"Organization ID"
// @Param   employeeId			path	string								true	"employee ID"
// @Param	body				body	ledgerapimodels.AppendBreakData		true	"request body"
// @Success 201 {object} apimodels.Response{data=[]ledgerapimodels.EntryView}
// @Success 202 {object} apimodels.Response{data=ledgerapimodels.QueuedView}
// @Failure 400 {object} apimodels.Response
// @Failure 500 {object} apimodels.Response
// @router /api/v1/ledger/{employeeId}/breaks [post]
func (c *ledgerApiController) appendBreak(ctx *fiber.Ctx) error {
	employeeID, err := c.GetIDByKey(ctx, "employeeId")
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(apimodels.NewError(err.Error()))
	}
	var payload ledgerapimodels.AppendBreakData
	if err = c.BodyParser(ctx, &payload); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(apimodels.NewError(err.Error()))
	}
	payload.OrganizationID = middleware.GetOrganizationID(ctx)
	payload.EmployeeID = employeeID
	if payload.CreatedBy == "" {
		payload.CreatedBy = middleware.GetUserID(ctx)
	}
	if err = payload.Validate(); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(apimodels.NewError(err.Error()))
	}
	list, err := ledger.Instance.AppendBreak(ctx.UserContext(), payload)
	if err != nil {
		if errors.Is(err, ledger.ErrStoreUnavailable) && offlinequeue.Instance != nil {
			return c.enqueueBreakRest(ctx, payload, list, err)
		}
		return c.SendError(ctx, c.GetLogger(ctx), err, "Ошибка фиксации перерыва")
	}
	result := make([]ledgerapimodels.EntryView, 0, len(list))
	for _, rec := range list {
		result = append(result, ledgerapimodels.EntryConvert(rec))
	}
	return ctx.Status(fiber.StatusCreated).JSON(apimodels.NewResponse(result))
}

// enqueueBreakRest откладывает ту часть перерыва, которая не попала в журнал
func (c *ledgerApiController) enqueueBreakRest(ctx *fiber.Ctx, payload ledgerapimodels.AppendBreakData, written []dbmodels.LedgerEntry, cause error) error {
	queued := offlinequeue.Payload{
		OrganizationID: payload.OrganizationID,
		EmployeeID:     payload.EmployeeID,
	}
	if len(written) == 0 {
		queued.Break = &payload
	} else {
		queued.Entry = &ledgerapimodels.AppendEntryData{
			Kind:      models.EntryKindClockIn,
			Timestamp: payload.ResumeAt,
			CreatedBy: payload.CreatedBy,
			DeviceID:  payload.DeviceID,
		}
	}
	return c.enqueue(ctx, queued, cause)
}

func (c *ledgerApiController) enqueue(ctx *fiber.Ctx, payload offlinequeue.Payload, cause error) error {
	logger := c.GetLogger(ctx).WithField("employee_id", payload.EmployeeID)
	id, err := offlinequeue.Instance.Enqueue(ctx.UserContext(), payload)
	if err != nil {
		logger.WithError(err).Error("ошибка постановки отметки в офлайн-очередь")
		return c.SendError(ctx, logger, cause, "Журнал недоступен")
	}
	logger.WithError(cause).Warn("журнал недоступен, отметка отложена")
	return ctx.Status(fiber.StatusAccepted).JSON(apimodels.NewResponse(ledgerapimodels.QueuedView{QueueID: id}))
}

// @Summary Проверка цепочки
// @Tags Журнал отметок
// @Description Проверка целостности цепочки хэшей сотрудника за период
// @Param   X-Organization-ID	header	string	true	"Organization ID"
// @Param   employeeId			path	string	true	"employee ID"
// @Param   from				query	string	false	"начало периода, RFC3339"
// @Param   to					query	string	false	"окончание периода, RFC3339"
// @Success 200 {object} apimodels.Response{data=evidencemodels.Verdict}
// @Failure 400 {object} apimodels.Response
// @Failure 500 {object} apimodels.Response
// @router /api/v1/ledger/{employeeId}/verify [get]
func (c *ledgerApiController) verify(ctx *fiber.Ctx) error {
	employeeID, rng, err := c.employeeRange(ctx)
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(apimodels.NewError(err.Error()))
	}
	verdict, err := ledger.Instance.VerifyChain(ctx.UserContext(), employeeID, rng)
	if err != nil {
		return c.SendError(ctx, c.GetLogger(ctx), err, "Ошибка проверки цепочки")
	}
	return ctx.Status(fiber.StatusOK).JSON(apimodels.NewResponse(verdict))
}

// @Summary Статус сотрудника
// @Tags Журнал отметок
// @Description На работе ли сотрудник с учётом действующих корректировок
// @Param   X-Organization-ID	header	string	true	"Organization ID"
// @Param   employeeId			path	string	true	"employee ID"
// @Success 200 {object} apimodels.Response{data=ledgerapimodels.ClockStatusView}
// @Failure 400 {object} apimodels.Response
// @Failure 500 {object} apimodels.Response
// @router /api/v1/ledger/{employeeId}/status [get]
func (c *ledgerApiController) status(ctx *fiber.Ctx) error {
	employeeID, rng, err := c.employeeRange(ctx)
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(apimodels.NewError(err.Error()))
	}
	closure, err := ledger.Instance.Closure(ctx.UserContext(), employeeID, rng)
	if err != nil {
		return c.SendError(ctx, c.GetLogger(ctx), err, "Ошибка получения статуса")
	}
	return ctx.Status(fiber.StatusOK).JSON(apimodels.NewResponse(lineage.ClockStatus(closure)))
}

// @Summary Табель
// @Tags Журнал отметок
// @Description Выгрузка табеля сотрудника по действующим отметкам в xlsx
// @Param   X-Organization-ID	header	string	true	"Organization ID"
// @Param   employeeId			path	string	true	"employee ID"
// @Param   from				query	string	false	"начало периода, RFC3339"
// @Param   to					query	string	false	"окончание периода, RFC3339"
// @Success 200 {file} file
// @Failure 400 {object} apimodels.Response
// @Failure 500 {object} apimodels.Response
// @router /api/v1/ledger/{employeeId}/timesheet [get]
func (c *ledgerApiController) timesheet(ctx *fiber.Ctx) error {
	employeeID, rng, err := c.employeeRange(ctx)
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(apimodels.NewError(err.Error()))
	}
	closure, err := ledger.Instance.Closure(ctx.UserContext(), employeeID, rng)
	if err != nil {
		return c.SendError(ctx, c.GetLogger(ctx), err, "Ошибка получения отметок")
	}
	buf, err := xlsexport.Instance.ExportTimesheet(closure)
	if err != nil {
		return c.SendError(ctx, c.GetLogger(ctx), err, "Ошибка формирования табеля")
	}
	ctx.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	ctx.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=\"timesheet_%s.xlsx\"", employeeID))
	return ctx.Status(fiber.StatusOK).Send(buf.Bytes())
}

// @Summary Отчёт о проверке
// @Tags Журнал отметок
// @Description Отчёт о проверке цепочки сотрудника в pdf
// @Param   X-Organization-ID	header	string	true	"Organization ID"
// @Param   employeeId			path	string	true	"employee ID"
// @Param   from				query	string	false	"начало периода, RFC3339"
// @Param   to					query	string	false	"окончание периода, RFC3339"
// @Success 200 {file} file
// @Failure 400 {object} apimodels.Response
// @Failure 500 {object} apimodels.Response
// @router /api/v1/ledger/{employeeId}/report [get]
func (c *ledgerApiController) report(ctx *fiber.Ctx) error {
	employeeID, rng, err := c.employeeRange(ctx)
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(apimodels.NewError(err.Error()))
	}
	snapshot, err := ledger.Instance.Snapshot(ctx.UserContext(), employeeID, rng)
	if err != nil {
		return c.SendError(ctx, c.GetLogger(ctx), err, "Ошибка получения цепочки")
	}
	data, err := pdfexport.VerificationReport(chain.Build(snapshot, rng), time.Now())
	if err != nil {
		return c.SendError(ctx, c.GetLogger(ctx), err, "Ошибка формирования отчёта")
	}
	ctx.Set(fiber.HeaderContentType, "application/pdf")
	ctx.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=\"chain_%s.pdf\"", employeeID))
	return ctx.Status(fiber.StatusOK).Send(data)
}

func (c *ledgerApiController) employeeRange(ctx *fiber.Ctx) (string, models.Range, error) {
	employeeID, err := c.GetIDByKey(ctx, "employeeId")
	if err != nil {
		return "", models.Range{}, err
	}
	query := ledgerapimodels.RangeQuery{
		From: ctx.Query("from"),
		To:   ctx.Query("to"),
	}
	rng, err := query.Range()
	if err != nil {
		return "", models.Range{}, err
	}
	return employeeID, rng, nil
}
