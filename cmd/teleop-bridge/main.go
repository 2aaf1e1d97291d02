package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/urfave/cli"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/open-teleop/teleop-bridge/domain/teleop"
	"github.com/open-teleop/teleop-bridge/pkg/api"
	"github.com/open-teleop/teleop-bridge/pkg/codec"
	"github.com/open-teleop/teleop-bridge/pkg/config"
	customlog "github.com/open-teleop/teleop-bridge/pkg/log"
	"github.com/open-teleop/teleop-bridge/pkg/processing"
	"github.com/open-teleop/teleop-bridge/pkg/zeromq"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	bannerStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240")).Padding(0, 1)
	keyStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

func main() {
	app := cli.NewApp()
	app.Name = "teleop-bridge"
	app.Usage = "map gamepad samples to car control commands"
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:   "config-dir",
			Usage:  "directory containing " + config.BootstrapFilename,
			Value:  "./config",
			EnvVar: "TELEOP_CONFIG_DIR",
		},
		cli.StringFlag{
			Name:  "log-level",
			Usage: "override logging.level (debug, info, warn, error)",
		},
	}
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "teleop-bridge: %v\n", err)
		os.Exit(1)
	}
}

func banner(params teleop.Params) string {
	lines := []string{
		titleStyle.Render("Reading from PS3 controller"),
		keyStyle.Render("Left Trigger") + "   = Brake",
		keyStyle.Render("Right Trigger") + "  = Throttle",
		keyStyle.Render("Left Joystick") + "  = Steering",
		"",
		fmt.Sprintf("vel_max=%.1f  max_steering_angle=%.1f", params.VelMax, params.MaxSteeringAngle),
	}
	return bannerStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func run(c *cli.Context) error {
	cfg, err := config.LoadBootstrapConfig(c.String("config-dir"))
	if err != nil {
		return err
	}
	if lvl := c.String("log-level"); lvl != "" {
		cfg.Logging.Level = lvl
	}

	logger, err := customlog.NewLogrusLogger(cfg.Logging.Level, cfg.Logging.LogPath)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	if !cfg.Metrics.Enabled {
		otel.SetMeterProvider(noop.NewMeterProvider())
	}

	wire, err := codec.New(cfg.Teleop.Codec)
	if err != nil {
		return err
	}

	params := teleop.Params{
		VelMax:           cfg.Teleop.VelMax,
		MaxSteeringAngle: cfg.Teleop.MaxSteeringAngle,
		Axes:             teleop.PS3Axes,
	}
	fmt.Println(banner(params))

	// The queue is created before the bridge it feeds; it is only started
	// once bridge is assigned.
	var bridge *teleop.Bridge
	queue, err := processing.NewSampleQueue("joy", cfg.ZeroMQ.QueueDepth, func(j teleop.Joy) {
		bridge.OnInputSample(j)
	}, logger)
	if err != nil {
		return err
	}

	zmqService, err := zeromq.NewZeroMQService(cfg, wire, queue, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize ZeroMQ service: %w", err)
	}

	publisher := zeromq.NewCommandPublisher(zmqService, wire, cfg.Teleop.CommandTopic, logger)
	bridge, err = teleop.NewBridge(params, publisher, logger)
	if err != nil {
		zmqService.Stop()
		return err
	}
	zeromq.RegisterRequestHandlers(zmqService.Dispatcher(), publisher, params, cfg.Teleop, logger)

	httpApp, err := api.NewApp(api.Dependencies{
		Bridge:   bridge,
		Commands: publisher,
		Queue:    queue,
		Joy:      zmqService,
		Params:   params,
	}, cfg, logger)
	if err != nil {
		zmqService.Stop()
		return err
	}

	queue.Start()
	if err := zmqService.Start(); err != nil {
		queue.Stop()
		zmqService.Stop()
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	bridgeDone := make(chan error, 1)
	go func() { bridgeDone <- bridge.Run(ctx, cfg.Teleop.PublishPeriod()) }()

	if cfg.Server.HTTPPort > 0 {
		go func() {
			addr := fmt.Sprintf(":%d", cfg.Server.HTTPPort)
			logger.Infof("HTTP server starting on %s", addr)
			if err := httpApp.Listen(addr); err != nil {
				logger.Errorf("HTTP server stopped: %v", err)
				cancel()
			}
		}()
	}

	logger.Infof("Teleop bridge running (joy=%s, commands=%s, codec=%s)",
		cfg.ZeroMQ.JoyConnectAddress, cfg.ZeroMQ.CommandBindAddress, wire.Name())

	<-ctx.Done()
	logger.Infof("Shutting down teleop bridge...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := httpApp.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Warnf("HTTP server forced to shutdown: %v", err)
	}

	if err := <-bridgeDone; err != nil && !errors.Is(err, context.Canceled) {
		logger.Warnf("Publish loop ended: %v", err)
	}
	zmqService.Stop()
	queue.Stop()

	st := bridge.Status()
	logger.Infof("Teleop bridge exited (ticks=%d, published=%d, suppressed=%d)",
		st.Stats.Ticks, st.Stats.Published, st.Stats.Suppressed)
	return nil
}
