package middleware

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"timeledger-backend/lib/apperrors"
	apimodels "timeledger-backend/models/api"
)

// WithBodyLimit отклоняет запросы с телом больше limit байт.
// Для chunked-запросов длина заголовком не передаётся, проверяется прочитанное тело.
func WithBodyLimit(limit int) fiber.Handler {
	return func(c *fiber.Ctx) error {
		size := c.Request().Header.ContentLength()
		if size < 0 {
			size = len(c.Body())
		}
		if size > limit {
			return c.Status(fiber.StatusRequestEntityTooLarge).
				JSON(apimodels.NewCodedError(apperrors.CodeValidation, fmt.Sprintf("размер запроса превышает %d байт", limit)))
		}
		return c.Next()
	}
}
