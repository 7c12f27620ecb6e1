package app

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"sort"
	"sync"

	"snesio/pkg/app/config"
	"snesio/pkg/encoder"
	"snesio/pkg/mqtt"
	"snesio/pkg/netready"
	"snesio/pkg/pipeline"
	"snesio/pkg/port"
	"snesio/pkg/raspberry"
	"snesio/pkg/sampler"
	"snesio/pkg/serial"

	"github.com/gofiber/fiber/v2"
	"github.com/womat/debug"
)

// App is the main application struct.
// App is where the application is wired up.
type App struct {
	// web is the fiber web framework instance
	web *fiber.App

	// config is the application configuration
	config *config.Config

	// urlParsed contains the parsed Config.Url parameter
	// and makes it easier to get params out of e.g.
	// url: https://0.0.0.0:7844/?minTls=1.2&bodyLimit=50MB
	urlParsed *url.URL

	// mqtt is the handler to the mqtt broker
	mqtt *mqtt.Handler

	// gpio provides the lines of all controller ports
	gpio raspberry.Chip

	// sim is set if the gpio driver is the emulated chip
	sim *raspberry.SimChip

	// ports runs the pipelines of the controller ports
	ports *pipeline.Manager

	// ready is the network provisioning signal
	ready netready.Signal

	// serial holds the opened serial ports: the console and the pass-through transmitters
	serial struct {
		sync.Mutex
		console     io.Writer
		passThrough map[int]serial.Port
		closers     []io.Closer
	}

	ctx    context.Context
	cancel context.CancelFunc
}

// New checks the Web server URL and initialize the main app structure
func New(config *config.Config) (*App, error) {
	u, err := url.Parse(config.Webserver.URL)
	if err != nil {
		debug.ErrorLog.Printf("Error parsing url %q: %s", config.Webserver.URL, err.Error())
		return &App{}, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	app := &App{
		config:    config,
		urlParsed: u,

		web:  fiber.New(fiber.Config{DisableStartupMessage: true}),
		mqtt: mqtt.New(),

		ctx:    ctx,
		cancel: cancel,
	}
	app.serial.passThrough = map[int]serial.Port{}
	return app, nil
}

// Run starts the application.
func (app *App) Run() error {
	if err := app.init(); err != nil {
		return err
	}

	go app.mqtt.Service()
	go app.runWebServer()
	go app.publish(app.ctx)
	go netready.Watch(app.ctx, &app.ready, netready.HasIP, app.config.NetReady.Interval)

	if app.serial.console != nil {
		go app.dumpConsole(app.ctx, app.serial.console)
	}

	return nil
}

// init initializes the application.
func (app *App) init() (err error) {
	if app.gpio, err = raspberry.Open(app.config.Gpio.Driver); err != nil {
		debug.ErrorLog.Printf("can't open gpio: %v", err)
		return err
	}
	app.ports = pipeline.NewManager(app.gpio)

	if sim, ok := app.gpio.(*raspberry.SimChip); ok {
		app.sim = sim
		if err = app.attachEmulators(); err != nil {
			debug.ErrorLog.Printf("can't attach emulated controllers: %v", err)
			return err
		}
	}

	for _, id := range app.portIDs() {
		if err = app.startPort(id); err != nil {
			return err
		}
	}

	if app.config.Console.Enabled {
		if err = app.openConsole(); err != nil {
			debug.ErrorLog.Printf("can't open console: %v", err)
			return err
		}
	}

	if err = app.mqtt.Connect(app.config.MQTT.Connection); err != nil {
		debug.ErrorLog.Printf("can't open mqtt broker %v", err)
		return err
	}

	// initRoutes and initDefaultRoutes should be always called last because it may access things like app.ports
	// which must be initialized before
	app.initDefaultRoutes()

	return nil
}

// portIDs returns the configured port ids in ascending order.
func (app *App) portIDs() []int {
	ids := make([]int, 0, len(app.config.Ports))
	for id := range app.config.Ports {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// startPort starts the pipeline of configured port id.
func (app *App) startPort(id int) error {
	c, ok := app.config.Ports[id]
	if !ok {
		return fmt.Errorf("port %d: %w", id, pipeline.ErrUnknownPort)
	}

	cfg, err := app.pipelineConfig(id, c)
	if err != nil {
		debug.ErrorLog.Printf("port %d: %v", id, err)
		return err
	}

	return app.ports.StartPort(id, cfg)
}

// pipelineConfig converts the port configuration and opens the pass-through device if needed.
func (app *App) pipelineConfig(id int, c config.PortConfig) (cfg pipeline.Config, err error) {
	cfg = pipeline.Config{
		LatchPin: c.Latch,
		ClockPin: c.Clock,
		DataPin:  c.Data,
		Interval: c.Interval,
	}

	if cfg.Pull, err = port.ParsePull(c.Pull); err != nil {
		return cfg, err
	}
	if cfg.Cadence, err = pipeline.ParseCadence(c.Cadence); err != nil {
		return cfg, err
	}
	if cfg.Strategy, err = sampler.ParseStrategy(c.Strategy); err != nil {
		return cfg, err
	}

	if !c.PassThrough.Enabled {
		return cfg, nil
	}

	p, err := app.passThroughPort(id, c.PassThrough)
	if err != nil {
		return cfg, err
	}
	cfg.PassThrough = true
	cfg.Transmitter = encoder.NewSerialTransmitter(p)
	return cfg, nil
}

// passThroughPort returns the serial port of the downstream controller of port id.
// It is opened once and kept open across restarts of the port.
func (app *App) passThroughPort(id int, c config.PassThroughConfig) (serial.Port, error) {
	app.serial.Lock()
	defer app.serial.Unlock()

	if p, ok := app.serial.passThrough[id]; ok {
		return p, nil
	}

	p, err := serial.Open(serial.Config{Device: c.Device, Baud: c.Baud})
	if err != nil {
		return nil, fmt.Errorf("pass-through: %w", err)
	}
	app.serial.passThrough[id] = p
	app.serial.closers = append(app.serial.closers, p)
	return p, nil
}

// openConsole opens the console device, stdout if no device is configured.
func (app *App) openConsole() error {
	app.serial.Lock()
	defer app.serial.Unlock()

	if app.config.Console.Device == "" {
		app.serial.console = os.Stdout
		return nil
	}

	p, err := serial.Open(serial.Config{Device: app.config.Console.Device, Baud: app.config.Console.Baud})
	if err != nil {
		return err
	}
	app.serial.console = p
	app.serial.closers = append(app.serial.closers, p)
	return nil
}

// Close stops all ports and releases all resources.
func (app *App) Close() error {
	if app.cancel != nil {
		app.cancel()
	}

	if app.ports != nil {
		if err := app.ports.Close(); err != nil {
			debug.ErrorLog.Printf("stopping ports: %v", err)
		}
	}

	if app.web != nil {
		_ = app.web.Shutdown()
	}

	if app.mqtt != nil {
		_ = app.mqtt.Disconnect()
	}

	app.serial.Lock()
	for _, c := range app.serial.closers {
		_ = c.Close()
	}
	app.serial.closers = nil
	app.serial.Unlock()

	if app.gpio != nil {
		return app.gpio.Close()
	}
	return nil
}
