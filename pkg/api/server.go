package api

import (
	"errors"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/open-teleop/teleop-bridge/pkg/config"
	customlog "github.com/open-teleop/teleop-bridge/pkg/log"
)

// NewApp builds the Fiber app with every route registered
func NewApp(deps Dependencies, cfg *config.BootstrapConfig, logger customlog.Logger) (*fiber.App, error) {
	if deps.Bridge == nil || deps.Commands == nil || deps.Queue == nil {
		return nil, errors.New("api requires bridge, command and queue dependencies")
	}
	logger = logger.WithField("component", "api")

	app := fiber.New(fiber.Config{
		AppName:               "Teleop Bridge",
		ErrorHandler:          customErrorHandler,
		DisableStartupMessage: true,
	})
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "healthy"})
	})

	RegisterTeleopRoutes(app, deps, logger)
	RegisterConfigRoutes(app, cfg, deps.Params, logger)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	minAxes := deps.Params.Axes.MinAxes()
	app.Get("/ws/joy", websocket.New(func(conn *websocket.Conn) {
		JoyWebSocketHandler(conn, logger, deps.Queue, minAxes)
	}))

	return app, nil
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
	}

	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
	})
}
