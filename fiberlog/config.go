package fiberlog

import (
	"time"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"
)

type Config struct {
	// nil - стандартный логгер logrus
	Logger *log.Logger
	Tags   []string
	// Next пропускает запрос без записи в журнал
	Next func(c *fiber.Ctx) bool
	// запросы дольше порога пишутся с уровнем warn
	SlowThreshold time.Duration
}

var ConfigDefault = Config{
	Tags: []string{
		TagStatus,
		TagLatency,
		TagMethod,
		TagPath,
		TagOrganizationID,
	},
	SlowThreshold: 3 * time.Second,
}
