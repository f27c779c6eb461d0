// Package server assembles the fiber application and its route table.
package server

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/monitor"

	"boletim-pdf/internal/config"
	"boletim-pdf/internal/http/handlers"
	"boletim-pdf/internal/http/middleware"
	"boletim-pdf/internal/infra/logging"
	"boletim-pdf/internal/render"
)

// Deps are the collaborators the HTTP layer needs.
type Deps struct {
	Config  config.Config
	Service *render.Service
	// Storage backs the per-client rate limiter. Nil uses the limiter's
	// in-process default.
	Storage fiber.Storage
}

// New creates the fiber app with middleware and routes mounted.
func New(d Deps) *fiber.App {
	cfg := d.Config
	app := fiber.New(fiber.Config{
		Prefork:               cfg.Server.Prefork,
		DisableStartupMessage: true,
		BodyLimit:             cfg.Server.BodyLimitMB * 1024 * 1024,
		ErrorHandler:          errorHandler,
	})

	middleware.Register(app, cfg)
	RegisterRoutes(app, d)

	app.Use(func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusNotFound, "Not Found")
	})
	return app
}

// RegisterRoutes mounts the render endpoints. The render routes accept every
// method so that non-POST requests get a 405 from the handler.
func RegisterRoutes(app *fiber.App, d Deps) {
	svc := handlers.NewPDFService(d.Config, d.Service)
	limit := middleware.UserRateLimit(d.Config, d.Storage)

	v1 := app.Group("/v1")
	v1.All("/pdf", limit, svc.HandleRender)
	v1.All("/pdf/merge", limit, svc.HandleMerge)
	v1.Get("/engine/stats", svc.HandleEngineStats)
	v1.Get("/monitor", monitor.New())

	app.All("/generatePdf", limit, svc.HandleRender)
	app.All("/mergePdfs", limit, svc.HandleMerge)
}

// errorHandler writes errors as plain text with the matching status code.
func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	msg := "Internal Server Error"

	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		msg = fe.Message
	}

	if code >= fiber.StatusInternalServerError {
		logging.Error("Request failed", "request_id", middleware.RequestID(c), "path", c.Path(), "status", code, "message", msg)
	} else {
		logging.Warn("Request failed", "request_id", middleware.RequestID(c), "path", c.Path(), "status", code, "message", msg)
	}

	c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
	return c.Status(code).SendString(msg)
}
