package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	apimodels "timeledger-backend/models/api"
)

const (
	HeaderOrganizationID = "X-Organization-ID"
	HeaderUserID         = "X-User-ID"

	organizationKey = "organization_id"
	userKey         = "user_id"
)

// OrganizationRequired - запросы к журналу выполняются в рамках организации.
// Аутентификация выполняется шлюзом, который проставляет заголовки.
func OrganizationRequired() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		orgID := strings.TrimSpace(ctx.Get(HeaderOrganizationID))
		if orgID == "" || len(orgID) > 36 {
			return ctx.Status(fiber.StatusBadRequest).JSON(apimodels.NewError("не указана организация"))
		}
		ctx.Locals(organizationKey, orgID)
		ctx.Locals(userKey, strings.TrimSpace(ctx.Get(HeaderUserID)))
		return ctx.Next()
	}
}

func GetOrganizationID(ctx *fiber.Ctx) string {
	if value, ok := ctx.Locals(organizationKey).(string); ok {
		return value
	}
	return ""
}

func GetUserID(ctx *fiber.Ctx) string {
	if value, ok := ctx.Locals(userKey).(string); ok {
		return value
	}
	return ""
}
