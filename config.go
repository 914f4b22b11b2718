package hcsr04

import (
	"time"

	"github.com/asjoyner/hcsr04/units"
	"periph.io/x/periph/conn/physic"
)

// optional holds a value that may not have been set.
type optional[T any] struct {
	value T
	set   bool
}

func some[T any](v T) optional[T] {
	return optional[T]{value: v, set: true}
}

func (o optional[T]) orElse(def T) T {
	if o.set {
		return o.value
	}
	return def
}

func (o optional[T]) get() (T, bool) {
	return o.value, o.set
}

type distance struct {
	value float64
	unit  units.Distance
}

type temperature struct {
	value float64
	unit  units.Temperature
}

// MeasurementConfig overrides the sensor's defaults for a single call to
// MeasureWith.  Build one with NewConfig; the zero value overrides nothing.
type MeasurementConfig struct {
	samples         optional[uint]
	maxDistance     optional[distance]
	temperature     optional[temperature]
	responseTimeout optional[time.Duration]
	unit            optional[units.Distance]
	cooldown        optional[time.Duration]
}

// Samples returns the configured number of probes, if set.
func (c MeasurementConfig) Samples() (uint, bool) { return c.samples.get() }

// MaxDistance returns the configured maximum accepted distance, if set.
func (c MeasurementConfig) MaxDistance() (float64, units.Distance, bool) {
	d, ok := c.maxDistance.get()
	return d.value, d.unit, ok
}

// Temperature returns the configured ambient temperature, if set.
func (c MeasurementConfig) Temperature() (float64, units.Temperature, bool) {
	t, ok := c.temperature.get()
	return t.value, t.unit, ok
}

// ResponseTimeout returns the configured echo wait, if set.
func (c MeasurementConfig) ResponseTimeout() (time.Duration, bool) { return c.responseTimeout.get() }

// Unit returns the configured output unit, if set.
func (c MeasurementConfig) Unit() (units.Distance, bool) { return c.unit.get() }

// Cooldown returns the configured cooldown, if set.
func (c MeasurementConfig) Cooldown() (time.Duration, bool) { return c.cooldown.get() }

// ConfigBuilder assembles a MeasurementConfig.
type ConfigBuilder struct {
	c MeasurementConfig
}

// NewConfig starts a configuration that overrides nothing.
func NewConfig() *ConfigBuilder {
	return &ConfigBuilder{}
}

// WithSamples sets how many probes make up the measurement.  The reported
// distance is the average of the valid ones.
func (b *ConfigBuilder) WithSamples(n uint) *ConfigBuilder {
	b.c.samples = some(n)
	return b
}

// WithMaxDistance rejects probes that measured farther than value.
func (b *ConfigBuilder) WithMaxDistance(value float64, unit units.Distance) *ConfigBuilder {
	b.c.maxDistance = some(distance{value, unit})
	return b
}

// WithTemperature sets the ambient temperature used to correct the speed
// of sound.
func (b *ConfigBuilder) WithTemperature(value float64, unit units.Temperature) *ConfigBuilder {
	b.c.temperature = some(temperature{value, unit})
	return b
}

// WithAmbient is WithTemperature for a reading from a periph sensor.
func (b *ConfigBuilder) WithAmbient(t physic.Temperature) *ConfigBuilder {
	return b.WithTemperature(units.FromPhysicTemperature(t), units.Celsius)
}

// WithResponseTimeout bounds how long each probe waits for the echo.  A
// module that keeps timing out is probably not connected.
func (b *ConfigBuilder) WithResponseTimeout(d time.Duration) *ConfigBuilder {
	b.c.responseTimeout = some(d)
	return b
}

// WithUnit sets the unit the measurement is reported in.
func (b *ConfigBuilder) WithUnit(u units.Distance) *ConfigBuilder {
	b.c.unit = some(u)
	return b
}

// WithCooldown makes the sensor refuse to probe for d after a measurement
// in which every single probe timed out.
//
// With five samples and a disconnected module each measurement otherwise
// burns five response timeouts plus five settle delays on every loop.
func (b *ConfigBuilder) WithCooldown(d time.Duration) *ConfigBuilder {
	b.c.cooldown = some(d)
	return b
}

// Build returns the configuration.  Later calls on the builder do not
// affect configurations already built.
func (b *ConfigBuilder) Build() MeasurementConfig {
	return b.c
}
