package config

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/womat/debug"
	"gopkg.in/yaml.v2"
)

// Config holds the application configuration. Attention!
// To make it possible to overwrite fields with the -overwrite command
// line option each of the struct fields must be in the format
// first letter uppercase -> followed by CamelCase as in the config file.
// Config defines the struct of global config and the struct of the configuration file
type Config struct {
	Gpio      GpioConfig         `yaml:"gpio"`
	Ports     map[int]PortConfig `yaml:"ports"`
	Console   ConsoleConfig      `yaml:"console"`
	NetReady  NetReadyConfig     `yaml:"netready"`
	Flag      FlagConfig         `yaml:"-"`
	Debug     DebugConfig        `yaml:"debug"`
	Webserver WebserverConfig    `yaml:"webserver"`
	MQTT      MQTTConfig         `yaml:"mqtt"`
}

// FlagConfig defines the configured flags (parameters)
type FlagConfig struct {
	Version    bool
	Debug      string
	ConfigFile string
}

// GpioConfig selects the gpio driver (gpiomem|gpiod|periph|sim)
type GpioConfig struct {
	Driver string `yaml:"driver"`
}

// PortConfig defines the lines and the behaviour of one controller port
type PortConfig struct {
	Latch       int               `yaml:"latch"`
	Clock       int               `yaml:"clock"`
	Data        int               `yaml:"data"`
	Pull        string            `yaml:"pull"`
	Cadence     string            `yaml:"cadence"`
	IntervalInt int               `yaml:"interval"`
	Interval    time.Duration     `yaml:"-"`
	Strategy    string            `yaml:"strategy"`
	PassThrough PassThroughConfig `yaml:"passthrough"`
}

// PassThroughConfig defines the serial device of the downstream emulated controller
type PassThroughConfig struct {
	Enabled bool   `yaml:"enabled"`
	Device  string `yaml:"device"`
	Baud    int    `yaml:"baud"`
}

// ConsoleConfig defines the diagnostic console, stdout if no device is set
type ConsoleConfig struct {
	Enabled     bool          `yaml:"enabled"`
	Device      string        `yaml:"device"`
	Baud        int           `yaml:"baud"`
	IntervalInt int           `yaml:"interval"`
	Interval    time.Duration `yaml:"-"`
}

// NetReadyConfig defines the polling interval of the network provisioning state
type NetReadyConfig struct {
	IntervalInt int           `yaml:"interval"`
	Interval    time.Duration `yaml:"-"`
}

// WebserverConfig defines the struct of the webserver and webservice configuration and configuration file
type WebserverConfig struct {
	URL         string          `yaml:"url"`
	Webservices map[string]bool `yaml:"webservices"`
}

// MQTTConfig defines the struct of the mqtt client configuration and configuration file
type MQTTConfig struct {
	Connection  string        `yaml:"connection"`
	Interval    time.Duration `yaml:"-"`
	IntervalInt int           `yaml:"interval"`
	Topic       string        `yaml:"topic"`
}

// DebugConfig defines the struct of the debug configuration and configuration file
type DebugConfig struct {
	File       io.WriteCloser `yaml:"-"`
	Flag       int            `yaml:"-"`
	FlagString string         `yaml:"flag"`
	FileString string         `yaml:"file"`
}

func NewConfig() *Config {
	return &Config{
		Gpio: GpioConfig{Driver: "gpiomem"},
		Ports: map[int]PortConfig{
			1: {Latch: 26, Clock: 25, Data: 27, Pull: "pullup", Cadence: "auto", IntervalInt: 16, Strategy: "bitbang"},
		},
		Console: ConsoleConfig{
			Baud:        57600,
			IntervalInt: 1000,
		},
		NetReady: NetReadyConfig{IntervalInt: 5},
		Flag:     FlagConfig{},
		Debug: DebugConfig{
			FileString: "stderr",
			FlagString: "standard",
		},
		Webserver: WebserverConfig{
			URL: "http://0.0.0.0:4000",
			Webservices: map[string]bool{
				"version": true,
				"health":  true,
				"data":    true,
				"port":    true,
				"ready":   true,
				"sim":     true,
			},
		},
		MQTT: MQTTConfig{
			Connection:  "",
			IntervalInt: 5,
			Topic:       "snesio/port",
		},
	}
}

func (c *Config) LoadConfig() error {
	if err := c.readConfigFile(); err != nil {
		return fmt.Errorf("error reading config file %q: %w", c.Flag.ConfigFile, err)
	}

	if c.Flag.Debug != "" {
		c.Debug.FlagString = c.Flag.Debug
	}
	if err := c.setDebugConfig(); err != nil {
		return fmt.Errorf("unable to open debug file %q: %w", c.Debug.FileString, err)
	}

	c.convert()
	return nil
}

// convert calculates the durations of the integer config values.
func (c *Config) convert() {
	for id, p := range c.Ports {
		p.Interval = time.Duration(p.IntervalInt) * time.Millisecond
		c.Ports[id] = p
	}

	c.Console.Interval = time.Duration(c.Console.IntervalInt) * time.Millisecond
	if c.Console.Interval <= 0 {
		c.Console.Interval = time.Second
	}
	c.NetReady.Interval = time.Duration(c.NetReady.IntervalInt) * time.Second
	if c.NetReady.Interval <= 0 {
		c.NetReady.Interval = 5 * time.Second
	}
	c.MQTT.Interval = time.Duration(c.MQTT.IntervalInt) * time.Second
}

func (c *Config) readConfigFile() error {
	file, err := os.Open(c.Flag.ConfigFile)
	if err != nil {
		return err
	}
	defer func() { _ = file.Close() }()

	// configured ports replace the default port, yaml would merge them
	defaultPorts := c.Ports
	c.Ports = nil

	decoder := yaml.NewDecoder(file)
	if err = decoder.Decode(c); err != nil {
		return err
	}

	if len(c.Ports) == 0 {
		c.Ports = defaultPorts
	}
	return nil
}

func (c *Config) setDebugConfig() (err error) {
	// defines Debug section of global.Config
	switch c.Debug.FlagString {
	case "trace", "full":
		c.Debug.Flag = debug.Full
	case "debug":
		c.Debug.Flag = debug.Warning | debug.Info | debug.Error | debug.Fatal | debug.Debug
	case "standard":
		c.Debug.Flag = debug.Standard
	}

	switch c.Debug.FileString {
	case "stderr":
		c.Debug.File = os.Stderr
	case "stdout":
		c.Debug.File = os.Stdout
	default:
		if c.Debug.File, err = os.OpenFile(c.Debug.FileString, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o666); err != nil {
			return
		}
	}

	return
}
