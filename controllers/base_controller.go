package controllers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"timeledger-backend/lib/apperrors"
	"timeledger-backend/middleware"
	apimodels "timeledger-backend/models/api"
)

type BaseAPIController struct{}

func (c *BaseAPIController) BodyParser(ctx *fiber.Ctx, out interface{}) error {
	if err := ctx.BodyParser(out); err != nil {
		log.WithError(err).Error("ошибка распознавания запроса")
		return errors.New("не удалось получить данные из запроса")
	}
	return nil
}

func (c *BaseAPIController) GetID(ctx *fiber.Ctx) (string, error) {
	return c.GetIDByKey(ctx, "id")
}

func (c *BaseAPIController) GetIDByKey(ctx *fiber.Ctx, key string) (string, error) {
	id := strings.TrimSpace(ctx.Params(key))
	if id == "" {
		return "", errors.Errorf("не указан параметр %s", key)
	}
	if len(id) > 36 {
		return "", errors.Errorf("некорректный параметр %s", key)
	}
	return id, nil
}

func (c *BaseAPIController) GetLogger(ctx *fiber.Ctx) *log.Entry {
	return log.
		WithField("method", ctx.Method()).
		WithField("path", ctx.Path()).
		WithField("organization_id", middleware.GetOrganizationID(ctx))
}

// SendError отвечает кодом, соответствующим типу ошибки. Непредвиденные ошибки пишутся в журнал.
func (c *BaseAPIController) SendError(ctx *fiber.Ctx, logger *log.Entry, err error, message string) error {
	code := apperrors.CodeOf(err)
	status := fiber.StatusInternalServerError
	switch code {
	case apperrors.CodeValidation:
		return ctx.Status(fiber.StatusBadRequest).JSON(apimodels.NewCodedError(code, err.Error()))
	case apperrors.CodeIntegrity, apperrors.CodeLineageConflict, apperrors.CodeConcurrencyExhausted:
		return ctx.Status(fiber.StatusConflict).JSON(apimodels.NewCodedError(code, err.Error()))
	case apperrors.CodeDataUnavailable:
		return ctx.Status(fiber.StatusNotFound).JSON(apimodels.NewCodedError(code, err.Error()))
	case apperrors.CodeStorage:
		status = fiber.StatusBadGateway
	case apperrors.CodeTimeout:
		status = fiber.StatusGatewayTimeout
	}
	logger.WithError(err).Error(message)
	return ctx.Status(status).JSON(apimodels.NewCodedError(code, message))
}
