package api

import (
	"github.com/gofiber/fiber/v2"

	customlog "github.com/open-teleop/teleop-bridge/pkg/log"
)

// TeleopHandler serves the latched command and the bridge status
type TeleopHandler struct {
	deps   Dependencies
	logger customlog.Logger
}

// RegisterTeleopRoutes registers the endpoints under /api/v1/teleop
func RegisterTeleopRoutes(app *fiber.App, deps Dependencies, logger customlog.Logger) {
	h := &TeleopHandler{deps: deps, logger: logger}

	group := app.Group("/api/v1/teleop")
	group.Get("/command", h.handleGetCommand)
	group.Get("/status", h.handleGetStatus)

	logger.Infof("Registered teleop API endpoints under /api/v1/teleop")
}

func (h *TeleopHandler) handleGetCommand(c *fiber.Ctx) error {
	latched, ok := h.deps.Commands.Latched()
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "no command has been published yet",
		})
	}
	return c.JSON(latched)
}

func (h *TeleopHandler) handleGetStatus(c *fiber.Ctx) error {
	resp := StatusResponse{
		Bridge: h.deps.Bridge.Status(),
		Queue:  h.deps.Queue.Metrics(),
	}
	if h.deps.Joy != nil {
		received, rejected := h.deps.Joy.JoyCounts()
		resp.Joy = &JoyCounts{Received: received, Rejected: rejected}
	}
	return c.JSON(resp)
}
