package api

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"gopkg.in/yaml.v3"

	"github.com/open-teleop/teleop-bridge/domain/teleop"
	"github.com/open-teleop/teleop-bridge/pkg/config"
	customlog "github.com/open-teleop/teleop-bridge/pkg/log"
)

// effectiveConfig is the document served at /api/v1/config/teleop
type effectiveConfig struct {
	Teleop config.TeleopConfig `yaml:"teleop"`
	Axes   teleop.AxisMap      `yaml:"axes"`
	ZeroMQ config.ZeroMQConfig `yaml:"zeromq"`
}

// ConfigHandler serves the effective configuration
type ConfigHandler struct {
	yamlData []byte
	logger   customlog.Logger
}

// NewConfigHandler renders the configuration once; it never changes at runtime.
func NewConfigHandler(cfg *config.BootstrapConfig, params teleop.Params, logger customlog.Logger) (*ConfigHandler, error) {
	doc := effectiveConfig{Teleop: cfg.Teleop, Axes: params.Axes, ZeroMQ: cfg.ZeroMQ}
	// Params may differ from the file when defaults filled gaps.
	doc.Teleop.VelMax = params.VelMax
	doc.Teleop.MaxSteeringAngle = params.MaxSteeringAngle

	data, err := yaml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to render teleop config: %w", err)
	}
	return &ConfigHandler{yamlData: data, logger: logger}, nil
}

// RegisterConfigRoutes registers the configuration API endpoints with the Fiber app.
func RegisterConfigRoutes(app *fiber.App, cfg *config.BootstrapConfig, params teleop.Params, logger customlog.Logger) {
	h, err := NewConfigHandler(cfg, params, logger)
	if err != nil {
		logger.Errorf("Config endpoint disabled: %v", err)
		return
	}

	app.Group("/api/v1/config").Get("/teleop", h.handleGetTeleopConfig)
	logger.Infof("Registered teleop configuration API endpoints under /api/v1/config")
}

func (h *ConfigHandler) handleGetTeleopConfig(c *fiber.Ctx) error {
	h.logger.Debugf("Handling GET request for /api/v1/config/teleop")
	c.Set(fiber.HeaderContentType, "application/x-yaml")
	return c.Send(h.yamlData)
}
