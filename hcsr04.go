// Package hcsr04 measures distance with an HC-SR04 ultrasonic ranging
// module.
//
// A measurement is made of several probes.  Probes that got no echo, that
// got the module's "nothing in range" echo, or that landed beyond the
// accepted range are counted and left out of the average.  When every probe
// of a measurement got no echo at all the module is probably disconnected,
// and the sensor can be told to stop probing it for a while.
package hcsr04

import (
	"fmt"
	"time"

	"github.com/asjoyner/hcsr04/units"
	"github.com/sirupsen/logrus"
	"periph.io/x/periph/conn/gpio"
	"periph.io/x/periph/conn/gpio/gpioreg"
	"periph.io/x/periph/host"
)

const (
	DefaultResponseTimeout = 100 * time.Millisecond
	DefaultSamples         = 3
	// DefaultTemperature is in degrees Celsius.
	DefaultTemperature = 25.0
	// DefaultMaxDistance is in centimeters; the module is not reliable
	// beyond it.
	DefaultMaxDistance = 400.0
)

// defaults back every field a MeasurementConfig leaves unset.
type defaults struct {
	samples         uint
	maxDistance     distance
	temperature     temperature
	responseTimeout time.Duration
	unit            units.Distance
	cooldown        time.Duration
	signalTimeout   time.Duration
}

// params is a MeasurementConfig resolved against the defaults.
type params struct {
	samples         uint
	maxDistance     distance
	celsius         float64
	responseTimeout time.Duration
	unit            units.Distance
	cooldown        time.Duration
	signalTimeout   time.Duration
}

// Sensor represents an HC-SR04 ultrasonic ranging module.
//
// Measuring blocks for the whole duration of its probes.  A Sensor is not
// safe for concurrent use; give each module its own Sensor.
//
// Datasheet: https://cdn.sparkfun.com/datasheets/Sensors/Proximity/HCSR04.pdf
type Sensor struct {
	prober   Prober
	defaults defaults
	cool     cooldown
	now      func() time.Time
	log      logrus.FieldLogger
}

// New initializes and returns a Sensor object.
//
// Echo is the name of the GPIO pin connected to the module's "Echo" pin.
// Trigger is the name of the GPIO pin connected to the module's "Trig" pin.
//
// Both names should be in the format expected by
// periph.io/x/periph/conn/gpio/gpioreg's ByName function.  For a Raspberry
// Pi, this corresponds to the BCM pin number as a string.
func New(echo, trigger string) (*Sensor, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("initializing host: %w", err)
	}
	echoPin := gpioreg.ByName(echo)
	if echoPin == nil {
		return nil, fmt.Errorf("no GPIO echo pin named: %s", echo)
	}
	triggerPin := gpioreg.ByName(trigger)
	if triggerPin == nil {
		return nil, fmt.Errorf("no GPIO trigger pin named: %s", trigger)
	}
	return NewFromPins(echoPin, triggerPin)
}

// NewOneWire returns a Sensor for a module wired with Trig and Echo joined
// on a single GPIO pin.
func NewOneWire(name string) (*Sensor, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("initializing host: %w", err)
	}
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("no GPIO pin named: %s", name)
	}
	return NewFromPins(p, p)
}

// NewFromPins returns a Sensor using pins that have already been looked
// up.  Passing the same pin twice selects one wire mode.
func NewFromPins(echo gpio.PinIn, trigger gpio.PinOut) (*Sensor, error) {
	if err := trigger.Out(gpio.Low); err != nil {
		return nil, fmt.Errorf("configuring trigger pin: %w", err)
	}
	if err := echo.In(gpio.PullDown, gpio.NoEdge); err != nil {
		return nil, fmt.Errorf("configuring echo pin: %w", err)
	}
	return NewWithProber(newPinProber(trigger, echo)), nil
}

// NewWithProber returns a Sensor that takes its samples from p.
func NewWithProber(p Prober) *Sensor {
	return &Sensor{
		prober: p,
		defaults: defaults{
			samples:         DefaultSamples,
			maxDistance:     distance{DefaultMaxDistance, units.Centimeters},
			temperature:     temperature{DefaultTemperature, units.Celsius},
			responseTimeout: DefaultResponseTimeout,
			unit:            units.Centimeters,
			signalTimeout:   DefaultSignalTimeout,
		},
		now: time.Now,
		log: logrus.StandardLogger(),
	}
}

// SetLogger replaces the standard logrus logger.
func (s *Sensor) SetLogger(l logrus.FieldLogger) { s.log = l }

// SetDefaultSamples sets how many probes Measure takes.
func (s *Sensor) SetDefaultSamples(n uint) { s.defaults.samples = n }

// SetDefaultMaxDistance sets the distance beyond which probes are rejected.
func (s *Sensor) SetDefaultMaxDistance(value float64, unit units.Distance) {
	s.defaults.maxDistance = distance{value, unit}
}

// SetDefaultTemperature sets the assumed ambient temperature.
func (s *Sensor) SetDefaultTemperature(value float64, unit units.Temperature) {
	s.defaults.temperature = temperature{value, unit}
}

// SetDefaultResponseTimeout sets how long each probe waits for its echo.
func (s *Sensor) SetDefaultResponseTimeout(d time.Duration) { s.defaults.responseTimeout = d }

// SetDefaultUnit sets the unit measurements are reported in.
func (s *Sensor) SetDefaultUnit(u units.Distance) { s.defaults.unit = u }

// SetDefaultCooldown sets the cooldown armed after a measurement in which
// every probe got no echo.  Zero, the default, disables it.
func (s *Sensor) SetDefaultCooldown(d time.Duration) { s.defaults.cooldown = d }

// SetSignalTimeout sets the echo width at and above which a probe counts
// as a signal timeout.  HC-SR04 clones may report "nothing in range" with a
// different width than DefaultSignalTimeout.
func (s *Sensor) SetSignalTimeout(d time.Duration) { s.defaults.signalTimeout = d }

// CooldownActive reports whether Measure would currently skip probing.
func (s *Sensor) CooldownActive() bool {
	return s.cool.active(s.now())
}

// Measure takes a measurement using the sensor's defaults.
func (s *Sensor) Measure() (Measurement, error) {
	return s.MeasureWith(MeasurementConfig{})
}

// MeasureWith takes a measurement, using cfg wherever it sets a value and
// the sensor's defaults elsewhere.
//
// Timeouts and out of range probes are reported in the returned
// Measurement, not as an error.  An error means the pins themselves could
// not be driven.
func (s *Sensor) MeasureWith(cfg MeasurementConfig) (Measurement, error) {
	p := s.resolve(cfg)
	if s.cool.active(s.now()) {
		return Measurement{Unit: p.unit, CooldownActive: true}, nil
	}

	results := make([]ProbeResult, 0, p.samples)
	for i := uint(0); i < p.samples; i++ {
		r, err := s.prober.Probe(p.responseTimeout)
		if err != nil {
			return Measurement{}, fmt.Errorf("probe %d of %d: %w", i+1, p.samples, err)
		}
		if r.ResponseTimedOut {
			s.log.WithField("sample", i+1).Debug("no echo from sensor")
		}
		results = append(results, r)
	}

	m := aggregate(results, p)
	if p.cooldown > 0 && m.Samples > 0 && m.ResponseTimeouts == m.Samples {
		s.cool.arm(s.now(), p.cooldown)
		s.log.WithFields(logrus.Fields{
			"samples":  m.Samples,
			"cooldown": p.cooldown,
		}).Warn("every probe timed out, cooling down")
	}
	return m, nil
}

func (s *Sensor) resolve(cfg MeasurementConfig) params {
	t := cfg.temperature.orElse(s.defaults.temperature)
	return params{
		samples:         cfg.samples.orElse(s.defaults.samples),
		maxDistance:     cfg.maxDistance.orElse(s.defaults.maxDistance),
		celsius:         units.ConvertTemperature(t.value, t.unit, units.Celsius),
		responseTimeout: cfg.responseTimeout.orElse(s.defaults.responseTimeout),
		unit:            cfg.unit.orElse(s.defaults.unit),
		cooldown:        cfg.cooldown.orElse(s.defaults.cooldown),
		signalTimeout:   s.defaults.signalTimeout,
	}
}

// aggregate classifies every result and averages the valid ones.  The
// first matching category wins: a response timeout hides anything else
// wrong with the probe, and a signal timeout hides the distance check.
func aggregate(results []ProbeResult, p params) Measurement {
	m := Measurement{Unit: p.unit, Samples: uint(len(results))}
	speed := SoundSpeed(p.celsius)

	var sum float64
	var valid uint
	for _, r := range results {
		d := units.ConvertDistance(EchoToCentimeters(r.Echo, speed), units.Centimeters, p.unit)
		switch {
		case r.ResponseTimedOut:
			m.ResponseTimeouts++
		case r.SignalTimedOut(p.signalTimeout):
			m.SignalTimeouts++
		case units.ConvertDistance(d, p.unit, p.maxDistance.unit) > p.maxDistance.value:
			m.MaxDistanceExceeded++
		default:
			sum += d
			valid++
		}
	}
	m.Distance = sum / float64(max(valid, 1))
	return m
}
