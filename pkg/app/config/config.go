package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"irkit/pkg/infrared"

	"github.com/womat/debug"
	"gopkg.in/yaml.v2"
)

var ErrInvalidConfig = errors.New("invalid config")

// Config holds the application configuration. Attention!
// To make it possible to overwrite fields with the -overwrite command
// line option each of the struct fields must be in the format
// first letter uppercase -> followed by CamelCase as in the config file.
// Config defines the struct of global config and the struct of the configuration file
type Config struct {
	Receiver    ReceiverConfig    `yaml:"receiver"`
	Transmitter TransmitterConfig `yaml:"transmitter"`
	Remotes     string            `yaml:"remotes"`
	Repeats     int               `yaml:"repeats"`
	Learn       LearnConfig       `yaml:"learn"`
	Flag        FlagConfig        `yaml:"-"`
	Debug       DebugConfig       `yaml:"debug"`
	Webserver   WebserverConfig   `yaml:"webserver"`
	MQTT        MQTTConfig        `yaml:"mqtt"`
}

// FlagConfig defines the configured flags (parameters)
type FlagConfig struct {
	Debug      string
	ConfigFile string
}

// ReceiverConfig defines the capture source of the infrared receiver.
// If Serial is set, the edges are read from a serial receiver, otherwise from a gpio line.
type ReceiverConfig struct {
	Gpio           int           `yaml:"gpio"`
	Chip           string        `yaml:"chip"`
	Bias           string        `yaml:"bias"`
	ActiveLow      bool          `yaml:"activelow"`
	IdleTimeoutInt int           `yaml:"idletimeout"`
	IdleTimeout    time.Duration `yaml:"-"`
	Serial         string        `yaml:"serial"`
	BaudRate       int           `yaml:"baudrate"`
	Enabled        bool          `yaml:"enabled"`
}

// TransmitterConfig defines the gpio pin of the IR LED driver.
// Carrier is the frequency the driver modulates with, 0 if unknown.
type TransmitterConfig struct {
	Gpio    int    `yaml:"gpio"`
	Carrier uint32 `yaml:"carrier"`
	Enabled bool   `yaml:"enabled"`
}

// LearnConfig defines how long the learn webservice waits for a signal.
type LearnConfig struct {
	TimeoutInt int           `yaml:"timeout"`
	Timeout    time.Duration `yaml:"-"`
}

// WebserverConfig defines the struct of the webserver and webservice configuration and configuration file
type WebserverConfig struct {
	URL         string          `yaml:"url"`
	Webservices map[string]bool `yaml:"webservices"`
}

// MQTTConfig defines the struct of the mqtt client configuration and configuration file
type MQTTConfig struct {
	Connection string `yaml:"connection"`
	Topic      string `yaml:"topic"`
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
		Receiver: ReceiverConfig{
			Gpio:           17,
			Chip:           "gpiochip0",
			Bias:           "pullup",
			ActiveLow:      true,
			IdleTimeoutInt: 150,
			IdleTimeout:    150 * time.Millisecond,
			BaudRate:       115200,
			Enabled:        true,
		},
		Transmitter: TransmitterConfig{
			Gpio:    18,
			Carrier: 38000,
		},
		Remotes: "/opt/womat/remotes",
		Repeats: 1,
		Learn: LearnConfig{
			TimeoutInt: 10,
			Timeout:    10 * time.Second,
		},
		Flag:    FlagConfig{},
		Debug: DebugConfig{
			FileString: "stderr",
			FlagString: "standard",
		},
		Webserver: WebserverConfig{
			URL: "http://0.0.0.0:4000",
			Webservices: map[string]bool{
				"version": true,
				"health":  true,
				"last":    true,
				"encode":  true,
				"decode":  true,
				"remotes": true,
				"send":    true,
				"learn":   true,
			},
		},
		MQTT: MQTTConfig{
			Connection: "",
			Topic:      "irkit/received"},
	}
}

func (c *Config) LoadConfig() error {
	if err := c.readConfigFile(); err != nil {
		return fmt.Errorf("error reading config file %q: %w", c.Flag.ConfigFile, err)
	}
	if err := infrared.CheckRepeats(c.Repeats); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if c.Learn.TimeoutInt <= 0 {
		return fmt.Errorf("%w: learn timeout %ds", ErrInvalidConfig, c.Learn.TimeoutInt)
	}

	if c.Flag.Debug != "" {
		c.Debug.FlagString = c.Flag.Debug
	}
	if err := c.setDebugConfig(); err != nil {
		return fmt.Errorf("unable to open debug file %q: %w", c.Debug.FileString, err)
	}

	c.Receiver.IdleTimeout = time.Duration(c.Receiver.IdleTimeoutInt) * time.Millisecond
	c.Learn.Timeout = time.Duration(c.Learn.TimeoutInt) * time.Second
	return nil
}

func (c *Config) readConfigFile() error {
	file, err := os.Open(c.Flag.ConfigFile)
	if err != nil {
		return err
	}
	defer func() { _ = file.Close() }()

	decoder := yaml.NewDecoder(file)
	if err = decoder.Decode(c); err != nil {
		return err
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
