// Package config loads the YAML configuration of the hcsr04 command.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/asjoyner/hcsr04"
	"github.com/asjoyner/hcsr04/units"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Sensor   SensorConfig   `yaml:"sensor"`
	Defaults DefaultsConfig `yaml:"defaults"`
	Interval time.Duration  `yaml:"interval"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Log      LogConfig      `yaml:"log"`
}

// SensorConfig names the GPIO pins the module is wired to.  Set either
// Trigger and Echo, or OneWire.
type SensorConfig struct {
	Trigger string `yaml:"trigger"`
	Echo    string `yaml:"echo"`
	OneWire string `yaml:"one_wire"`
}

type DefaultsConfig struct {
	Samples         uint          `yaml:"samples"`
	MaxDistance     float64       `yaml:"max_distance"`
	MaxDistanceUnit string        `yaml:"max_distance_unit"`
	Temperature     *float64      `yaml:"temperature"`
	TemperatureUnit string        `yaml:"temperature_unit"`
	ResponseTimeout time.Duration `yaml:"response_timeout"`
	SignalTimeout   time.Duration `yaml:"signal_timeout"`
	Unit            string        `yaml:"unit"`
	Cooldown        time.Duration `yaml:"cooldown"`
}

type MetricsConfig struct {
	// Addr is where /metrics is served.  Empty disables it.
	Addr string `yaml:"addr"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text" or "json"
}

func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	d := &c.Defaults
	if d.Samples == 0 {
		d.Samples = hcsr04.DefaultSamples
	}
	if d.MaxDistance == 0 {
		// A unit on its own says nothing about the range.
		d.MaxDistance = hcsr04.DefaultMaxDistance
		d.MaxDistanceUnit = units.Centimeters.String()
	}
	if d.MaxDistanceUnit == "" {
		d.MaxDistanceUnit = units.Centimeters.String()
	}
	if d.Temperature == nil {
		t := hcsr04.DefaultTemperature
		d.Temperature = &t
	}
	if d.TemperatureUnit == "" {
		d.TemperatureUnit = units.Celsius.String()
	}
	if d.ResponseTimeout == 0 {
		d.ResponseTimeout = hcsr04.DefaultResponseTimeout
	}
	if d.SignalTimeout == 0 {
		d.SignalTimeout = hcsr04.DefaultSignalTimeout
	}
	if d.Unit == "" {
		d.Unit = units.Centimeters.String()
	}
	if c.Interval == 0 {
		c.Interval = time.Second
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

func (c *Config) validate() error {
	s := c.Sensor
	switch {
	case s.OneWire != "" && (s.Trigger != "" || s.Echo != ""):
		return fmt.Errorf("sensor.one_wire cannot be combined with sensor.trigger or sensor.echo")
	case s.OneWire == "" && (s.Trigger == "" || s.Echo == ""):
		return fmt.Errorf("sensor.trigger and sensor.echo are required unless sensor.one_wire is set")
	}
	if _, err := units.ParseDistance(c.Defaults.MaxDistanceUnit); err != nil {
		return fmt.Errorf("defaults.max_distance_unit: %w", err)
	}
	if _, err := units.ParseTemperature(c.Defaults.TemperatureUnit); err != nil {
		return fmt.Errorf("defaults.temperature_unit: %w", err)
	}
	if _, err := units.ParseDistance(c.Defaults.Unit); err != nil {
		return fmt.Errorf("defaults.unit: %w", err)
	}
	if c.Defaults.MaxDistance < 0 {
		return fmt.Errorf("defaults.max_distance must not be negative")
	}
	if c.Defaults.Cooldown < 0 {
		return fmt.Errorf("defaults.cooldown must not be negative")
	}
	if c.Interval < 0 {
		return fmt.Errorf("interval must not be negative")
	}
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	return nil
}

// Apply pushes the configured defaults into s.
func (c *Config) Apply(s *hcsr04.Sensor) {
	d := c.Defaults
	// Units were checked by validate.
	maxUnit, _ := units.ParseDistance(d.MaxDistanceUnit)
	tempUnit, _ := units.ParseTemperature(d.TemperatureUnit)
	unit, _ := units.ParseDistance(d.Unit)

	s.SetDefaultSamples(d.Samples)
	s.SetDefaultMaxDistance(d.MaxDistance, maxUnit)
	s.SetDefaultTemperature(*d.Temperature, tempUnit)
	s.SetDefaultResponseTimeout(d.ResponseTimeout)
	s.SetSignalTimeout(d.SignalTimeout)
	s.SetDefaultUnit(unit)
	s.SetDefaultCooldown(d.Cooldown)
}

// Open returns a sensor on the configured pins with the configured
// defaults applied.
func (c *Config) Open() (*hcsr04.Sensor, error) {
	var s *hcsr04.Sensor
	var err error
	if c.Sensor.OneWire != "" {
		s, err = hcsr04.NewOneWire(c.Sensor.OneWire)
	} else {
		s, err = hcsr04.New(c.Sensor.Echo, c.Sensor.Trigger)
	}
	if err != nil {
		return nil, err
	}
	c.Apply(s)
	return s, nil
}

// Logger builds the logger described by the log section.
func (c *Config) Logger() *logrus.Logger {
	l := logrus.New()
	// Checked by validate.
	level, _ := logrus.ParseLevel(c.Log.Level)
	l.SetLevel(level)
	if c.Log.Format == "json" {
		l.SetFormatter(&logrus.JSONFormatter{})
	}
	return l
}
