package main

import (
	"context"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberRecover "github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	log "github.com/sirupsen/logrus"
	"timeledger-backend/config"
	apiv1 "timeledger-backend/controllers/v1"
	"timeledger-backend/fiberlog"
	"timeledger-backend/initializers"
	"timeledger-backend/middleware"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	initializers.InitAllServices(ctx)
	app := newApp()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- app.Listen(fmt.Sprintf("%s:%d", config.Conf.App.ListenAddr, config.Conf.App.Port))
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			log.WithError(err).Fatal("ошибка запуска HTTP сервера")
		}
	case <-ctx.Done():
		log.Info("остановка сервиса...")
		// воркеры остановлены отменой ctx, незавершённые запросы получают время на ответ
		if err := app.ShutdownWithTimeout(config.Conf.App.ShutdownTimeout); err != nil {
			log.WithError(err).Error("ошибка при остановке HTTP сервера")
		}
	}
	log.Info("HTTP сервер остановлен")
}

func newApp() *fiber.App {
	app := fiber.New(fiber.Config{
		BodyLimit: 4 * 1024 * 1024,
	})
	app.Use(fiberRecover.New())
	app.Use(requestid.New())
	app.Use(swagger.New(swagger.Config{
		Path:     "/swagger",
		FilePath: "./docs/swagger.json",
	}))
	apiv1.InitSystemRouters(app, *config.Conf.Metrics.Enabled, config.Conf.Metrics.Path)

	apiV1 := fiber.New()
	apiV1.Use(fiberlog.New(*initializers.LoggerConfig))
	apiV1.Use(cors.New(cors.Config{
		AllowHeaders: strings.Join([]string{
			fiber.HeaderOrigin,
			fiber.HeaderContentType,
			fiber.HeaderAccept,
			middleware.HeaderOrganizationID,
			middleware.HeaderUserID,
		}, ", "),
		AllowMethods:  strings.Join([]string{fiber.MethodGet, fiber.MethodPost}, ", "),
		ExposeHeaders: strings.Join([]string{fiber.HeaderXRequestID, apiv1.HeaderContentSHA256}, ", "),
	}))
	apiV1.Use(middleware.WithBodyLimit(1024 * 1024))
	apiV1.Use(middleware.OrganizationRequired())
	apiv1.InitLedgerApiRouters(apiV1)
	apiv1.InitAuditPackApiRouters(apiV1)
	app.Mount("/api/v1", apiV1)
	return app
}
