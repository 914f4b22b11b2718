package hcsr04

import (
	"time"

	"github.com/asjoyner/hcsr04/pulse"
	"periph.io/x/periph/conn/gpio"
)

const (
	// TriggerPulse is how long the trigger line is held high to start a
	// ranging cycle.
	TriggerPulse = 10 * time.Microsecond
	// SettleDelay is the minimum pause the module needs between two
	// ranging cycles, otherwise the previous burst's echo is picked up.
	SettleDelay = 60 * time.Millisecond
	// DefaultSignalTimeout is the echo width the module reports when
	// nothing was in range.
	DefaultSignalTimeout = 38000 * time.Microsecond
)

// ProbeResult is the outcome of a single trigger and echo cycle.
type ProbeResult struct {
	// Echo is how long the echo line stayed high.
	Echo time.Duration
	// ResponseTimedOut is set when no complete echo pulse arrived in time.
	ResponseTimedOut bool
}

// SignalTimedOut reports whether the echo was at least threshold long,
// which the module uses to signal that nothing reflected the burst.
func (r ProbeResult) SignalTimedOut(threshold time.Duration) bool {
	return r.Echo >= threshold
}

// Prober runs one ranging cycle against a sensor.
type Prober interface {
	Probe(timeout time.Duration) (ProbeResult, error)
}

// pinProber drives a physical module.  In one wire mode trigger and echo
// are the same pin.
type pinProber struct {
	trigger gpio.PinOut
	echo    gpio.PinIn
	clock   pulse.Clock
	sleep   func(time.Duration)
}

func newPinProber(trigger gpio.PinOut, echo gpio.PinIn) *pinProber {
	return &pinProber{
		trigger: trigger,
		echo:    echo,
		clock:   pulse.Monotonic,
		sleep:   time.Sleep,
	}
}

func (p *pinProber) Probe(timeout time.Duration) (ProbeResult, error) {
	// Briefly raise the trigger to make the module send a burst.
	if err := p.trigger.Out(gpio.High); err != nil {
		return ProbeResult{}, err
	}
	pulse.Hold(TriggerPulse, p.clock)
	if err := p.trigger.Out(gpio.Low); err != nil {
		return ProbeResult{}, err
	}

	// Listen for the echo.  This is also what turns a one wire pin around.
	if err := p.echo.In(gpio.PullDown, gpio.NoEdge); err != nil {
		return ProbeResult{}, err
	}
	width := pulse.MeasureWidth(p.echo, gpio.High, timeout, p.clock)

	p.sleep(SettleDelay)
	return ProbeResult{Echo: width.Duration, ResponseTimedOut: width.TimedOut}, nil
}

// SoundSpeed returns the speed of sound in air, in meters per second, at the
// given temperature in degrees Celsius.  Pressure and humidity matter far
// less than temperature and are ignored.
func SoundSpeed(celsius float64) float64 {
	return 331.0 + 0.6*celsius
}

// EchoToCentimeters converts an echo width into the distance to the
// obstacle, given the speed of sound in meters per second.
//
// The echo covers the trip out and back, hence the division by two.  At
// 25 celsius this works out to roughly the datasheet's "divide the
// microseconds by 58".
func EchoToCentimeters(echo time.Duration, speed float64) float64 {
	centimetersPerMicrosecond := speed * 100 / 1e6
	microseconds := float64(echo) / float64(time.Microsecond)
	return centimetersPerMicrosecond * microseconds / 2
}
