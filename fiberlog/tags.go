package fiberlog

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"timeledger-backend/lib/utils/helpers"
)

const (
	TagPid               = "pid"
	TagLatency           = "latency"
	TagStatus            = "status"
	TagMethod            = "method"
	TagPath              = "path"
	TagURL               = "url"
	TagIP                = "ip"
	TagBody              = "body"
	TagResBody           = "resBody"
	TagQueryStringParams = "queryParams"
	TagOrganizationID    = "organization_id"
	RequestID            = "requestId"
)

// тела длиннее обрезаются в журнале
const maxBodyLen = 2048

// FuncTag возвращает значение поля журнала для запроса
type FuncTag func(c *fiber.Ctx, d *data) interface{}

type data struct {
	pid   int
	start time.Time
	end   time.Time
}

func getFuncTagMap(cfg Config) map[string]FuncTag {
	all := map[string]FuncTag{
		TagPid: func(_ *fiber.Ctx, d *data) interface{} { return d.pid },
		TagLatency: func(_ *fiber.Ctx, d *data) interface{} {
			return d.end.Sub(d.start).String()
		},
		TagStatus: func(c *fiber.Ctx, _ *data) interface{} { return c.Response().StatusCode() },
		TagMethod: func(c *fiber.Ctx, _ *data) interface{} { return c.Method() },
		TagPath:   func(c *fiber.Ctx, _ *data) interface{} { return c.Path() },
		TagURL:    func(c *fiber.Ctx, _ *data) interface{} { return c.OriginalURL() },
		TagIP:     func(c *fiber.Ctx, _ *data) interface{} { return c.IP() },
		TagBody: func(c *fiber.Ctx, _ *data) interface{} {
			return truncate(c.Body())
		},
		TagResBody: func(c *fiber.Ctx, _ *data) interface{} {
			if !isTextResponse(c) {
				return ""
			}
			return truncate(c.Response().Body())
		},
		TagQueryStringParams: func(c *fiber.Ctx, _ *data) interface{} {
			return string(c.Request().URI().QueryString())
		},
		TagOrganizationID: func(c *fiber.Ctx, _ *data) interface{} {
			if value, ok := c.Locals(TagOrganizationID).(string); ok {
				return value
			}
			return ""
		},
		RequestID: func(c *fiber.Ctx, _ *data) interface{} {
			return c.GetRespHeader(fiber.HeaderXRequestID, c.Get(fiber.HeaderXRequestID))
		},
	}
	result := make(map[string]FuncTag, len(cfg.Tags))
	for _, tag := range cfg.Tags {
		if ft, ok := all[tag]; ok {
			result[tag] = ft
		}
	}
	return result
}

func truncate(body []byte) string {
	return helpers.Truncate(string(body), maxBodyLen)
}

// выгрузки xlsx/pdf/zip в журнал не пишутся
func isTextResponse(c *fiber.Ctx) bool {
	contentType := string(c.Response().Header.ContentType())
	return contentType == "" || contentType == fiber.MIMEApplicationJSON || contentType == fiber.MIMEApplicationJSONCharsetUTF8 ||
		contentType == fiber.MIMETextPlain || contentType == fiber.MIMETextPlainCharsetUTF8
}
