package server

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/sirupsen/logrus"

	"github.com/modelplane/modelplane/pkg/config"
	"github.com/modelplane/modelplane/pkg/contract"
	"github.com/modelplane/modelplane/pkg/drift"
	"github.com/modelplane/modelplane/pkg/monitor"
	"github.com/modelplane/modelplane/pkg/orchestrator"
	"github.com/modelplane/modelplane/pkg/registry"
)

// Services bundles the control-plane components the HTTP surface exposes.
type Services struct {
	Registry     *registry.Registry
	Monitor      *monitor.Monitor
	Detector     *drift.Detector
	Orchestrator *orchestrator.Orchestrator
}

func Launch(ctx context.Context, cfg *config.Config, services *Services) error {
	app := fiber.New(fiber.Config{
		BodyLimit:             16 * 1024 * 1024,
		ReadBufferSize:        16384,
		ReadTimeout:           5 * time.Second,
		WriteTimeout:          600 * time.Second,
		IdleTimeout:           120 * time.Second,
		ServerHeader:          "modelplane/" + cfg.Version,
		DisableStartupMessage: true,
	})

	app.Use(compress.New())
	app.Use(recover.New(recover.Config{EnableStackTrace: true}))
	app.Use(logger.New(logger.Config{
		Format: "${status} - ${latency} ${method} ${path}\n",
		Output: logrus.StandardLogger().Writer(),
	}))

	app.Mount("/api/2.0", newAPIApp(services))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.SendString("OK")
	})
	app.Get("/version", func(c *fiber.Ctx) error {
		return c.SendString(cfg.Version)
	})

	go func() {
		<-ctx.Done()
		if err := app.ShutdownWithTimeout(cfg.ShutdownTimeout.Duration); err != nil {
			logrus.Errorf("Failed to gracefully shutdown server: %v", err)
		}
	}()

	if err := app.Listen(cfg.Address); err != nil {
		return fmt.Errorf("failed to start server on %s: %w", cfg.Address, err)
	}
	return nil
}

func newAPIApp(services *Services) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var e *contract.Error
			if !errors.As(err, &e) {
				code := contract.ErrorCodeInternal

				var f *fiber.Error
				if errors.As(err, &f) {
					switch f.Code {
					case fiber.StatusBadRequest:
						code = contract.ErrorCodeBadRequest
					case fiber.StatusNotFound:
						code = contract.ErrorCodeNotFound
					}
				}

				e = contract.NewError(code, "%s", err.Error())
			}

			var fn func(format string, args ...any)

			switch e.StatusCode() {
			case fiber.StatusBadRequest:
				fn = logrus.Infof
			case fiber.StatusNotFound:
				fn = logrus.Debugf
			case fiber.StatusOK:
				fn = logrus.Debugf
			default:
				fn = logrus.Errorf
			}

			fn("Error encountered in %s %s: %s", c.Method(), c.Path(), err)

			return c.Status(e.StatusCode()).JSON(e)
		},
	})

	parser := NewHTTPRequestParser()
	registerRoutes(app, parser, services)

	return app
}
