package hcsr04

import (
	"errors"
	"testing"
	"time"

	"github.com/asjoyner/hcsr04/units"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/periph/conn/physic"
)

// fakeProber plays back results in order, repeating the last one.
type fakeProber struct {
	results  []ProbeResult
	err      error
	calls    int
	timeouts []time.Duration
}

func (f *fakeProber) Probe(timeout time.Duration) (ProbeResult, error) {
	f.calls++
	f.timeouts = append(f.timeouts, timeout)
	if f.err != nil {
		return ProbeResult{}, f.err
	}
	i := min(f.calls, len(f.results)) - 1
	return f.results[i], nil
}

// echoFor returns the echo width the module reports for an obstacle cm
// away at 25 celsius.
func echoFor(cm float64) time.Duration {
	us := 2 * cm / (SoundSpeed(25) * 100 / 1e6)
	return time.Duration(us * float64(time.Microsecond))
}

var noEcho = ProbeResult{ResponseTimedOut: true}

func newTestSensor(results ...ProbeResult) (*Sensor, *fakeProber, *time.Time) {
	f := &fakeProber{results: results}
	s := NewWithProber(f)
	now := time.Date(2021, 8, 18, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	logger, _ := test.NewNullLogger()
	s.SetLogger(logger)
	return s, f, &now
}

func TestMeasureDefaults(t *testing.T) {
	s, f, _ := newTestSensor(ProbeResult{Echo: echoFor(100)})
	m, err := s.Measure()
	require.NoError(t, err)
	assert.Equal(t, DefaultSamples, f.calls)
	assert.Equal(t, uint(DefaultSamples), m.Samples)
	assert.Equal(t, uint(DefaultSamples), m.Valid())
	assert.Equal(t, units.Centimeters, m.Unit)
	assert.InDelta(t, 100.0, m.Distance, 1e-3)
	assert.Equal(t, DefaultResponseTimeout, f.timeouts[0])
	assert.False(t, m.CooldownActive)
}

func TestMeasurePartialFailure(t *testing.T) {
	s, f, _ := newTestSensor(
		ProbeResult{Echo: echoFor(50)},
		noEcho,
		ProbeResult{Echo: echoFor(60)},
	)
	cfg := NewConfig().WithSamples(3).WithCooldown(time.Minute).Build()
	m, err := s.MeasureWith(cfg)
	require.NoError(t, err)
	assert.Equal(t, 3, f.calls)
	assert.InDelta(t, 55.0, m.Distance, 1e-3)
	assert.Equal(t, uint(2), m.Valid())
	assert.Equal(t, uint(1), m.Invalid())
	assert.Equal(t, uint(1), m.ResponseTimeouts)
	assert.False(t, s.CooldownActive(), "a partial failure must not arm the cooldown")
}

func TestMeasureClassificationPriority(t *testing.T) {
	s, _, _ := newTestSensor(
		// Timed out and implausibly far: only the timeout counts.
		ProbeResult{Echo: echoFor(1000), ResponseTimedOut: true},
		// At the module's "nothing in range" width and also too far.
		ProbeResult{Echo: DefaultSignalTimeout},
		ProbeResult{Echo: echoFor(450)},
		ProbeResult{Echo: echoFor(120)},
	)
	m, err := s.MeasureWith(NewConfig().WithSamples(4).Build())
	require.NoError(t, err)
	assert.Equal(t, uint(1), m.ResponseTimeouts)
	assert.Equal(t, uint(1), m.SignalTimeouts)
	assert.Equal(t, uint(1), m.MaxDistanceExceeded)
	assert.Equal(t, uint(1), m.Valid())
	assert.InDelta(t, 120.0, m.Distance, 1e-3)
}

func TestMeasureMaxDistanceInOtherUnit(t *testing.T) {
	s, _, _ := newTestSensor(
		ProbeResult{Echo: echoFor(100)},
		ProbeResult{Echo: echoFor(200)},
	)
	cfg := NewConfig().
		WithSamples(2).
		WithMaxDistance(1.5, units.Meters).
		WithUnit(units.Inches).
		Build()
	m, err := s.MeasureWith(cfg)
	require.NoError(t, err)
	assert.Equal(t, units.Inches, m.Unit)
	assert.Equal(t, uint(1), m.MaxDistanceExceeded)
	assert.InDelta(t, 100/2.54, m.Distance, 1e-3)
	assert.InDelta(t, 100.0, m.InCentimeters(), 1e-3)
	assert.InDelta(t, float64(physic.Metre), float64(m.Length()), float64(10*physic.Metre/1000000))
}

func TestMeasureNoValidSamples(t *testing.T) {
	s, _, _ := newTestSensor(noEcho)
	m, err := s.Measure()
	require.NoError(t, err)
	assert.Equal(t, 0.0, m.Distance)
	assert.Equal(t, uint(0), m.Valid())
	assert.Equal(t, uint(DefaultSamples), m.Invalid())
}

func TestMeasureTemperature(t *testing.T) {
	// An echo timed at 25C, reinterpreted at 0C, reads proportionally
	// shorter.
	s, _, _ := newTestSensor(ProbeResult{Echo: echoFor(100)})
	m, err := s.MeasureWith(NewConfig().WithTemperature(32, units.Fahrenheit).Build())
	require.NoError(t, err)
	assert.InDelta(t, 100*331.0/346.0, m.Distance, 1e-3)

	m, err = s.MeasureWith(NewConfig().WithAmbient(physic.ZeroCelsius).Build())
	require.NoError(t, err)
	assert.InDelta(t, 100*331.0/346.0, m.Distance, 1e-3)

	s.SetDefaultTemperature(0, units.Celsius)
	m, err = s.Measure()
	require.NoError(t, err)
	assert.InDelta(t, 100*331.0/346.0, m.Distance, 1e-3)
}

func TestCooldown(t *testing.T) {
	s, f, now := newTestSensor(noEcho)
	cfg := NewConfig().WithCooldown(time.Second).Build()

	m, err := s.MeasureWith(cfg)
	require.NoError(t, err)
	assert.Equal(t, uint(DefaultSamples), m.ResponseTimeouts)
	assert.False(t, m.CooldownActive, "arming the cooldown does not report it")
	assert.True(t, s.CooldownActive())

	*now = now.Add(500 * time.Millisecond)
	m, err = s.MeasureWith(cfg)
	require.NoError(t, err)
	assert.True(t, m.CooldownActive)
	assert.Equal(t, Measurement{Unit: units.Centimeters, CooldownActive: true}, m)
	assert.Equal(t, DefaultSamples, f.calls, "no probe while cooling down")

	// The deadline itself already counts as expired.
	*now = now.Add(500 * time.Millisecond)
	assert.False(t, s.CooldownActive())
	f.results = []ProbeResult{{Echo: echoFor(80)}}
	m, err = s.Measure()
	require.NoError(t, err)
	assert.False(t, m.CooldownActive)
	assert.Equal(t, 2*DefaultSamples, f.calls)
	assert.InDelta(t, 80.0, m.Distance, 1e-3)
}

func TestCooldownDefault(t *testing.T) {
	s, f, _ := newTestSensor(noEcho)
	logger, hook := test.NewNullLogger()
	s.SetLogger(logger)

	_, err := s.Measure()
	require.NoError(t, err)
	assert.False(t, s.CooldownActive(), "no cooldown unless one is configured")

	s.SetDefaultCooldown(time.Minute)
	_, err = s.Measure()
	require.NoError(t, err)
	assert.True(t, s.CooldownActive())
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, logrus.WarnLevel, hook.LastEntry().Level)

	m, err := s.Measure()
	require.NoError(t, err)
	assert.True(t, m.CooldownActive)
	assert.Equal(t, 2*DefaultSamples, f.calls)
}

func TestZeroSamples(t *testing.T) {
	s, f, _ := newTestSensor(noEcho)
	s.SetDefaultCooldown(time.Minute)
	m, err := s.MeasureWith(NewConfig().WithSamples(0).Build())
	require.NoError(t, err)
	assert.Equal(t, 0, f.calls)
	assert.Equal(t, Measurement{Unit: units.Centimeters}, m)
	assert.False(t, s.CooldownActive())
}

func TestSetters(t *testing.T) {
	s, f, _ := newTestSensor(ProbeResult{Echo: echoFor(150)})
	s.SetDefaultSamples(5)
	s.SetDefaultUnit(units.Meters)
	s.SetDefaultResponseTimeout(20 * time.Millisecond)
	s.SetDefaultMaxDistance(100, units.Centimeters)

	m, err := s.Measure()
	require.NoError(t, err)
	assert.Equal(t, 5, f.calls)
	assert.Equal(t, 20*time.Millisecond, f.timeouts[0])
	assert.Equal(t, units.Meters, m.Unit)
	assert.Equal(t, uint(5), m.MaxDistanceExceeded)

	s.SetSignalTimeout(echoFor(120))
	m, err = s.Measure()
	require.NoError(t, err)
	assert.Equal(t, uint(5), m.SignalTimeouts)
}

func TestProbeError(t *testing.T) {
	s, f, _ := newTestSensor()
	f.err = errors.New("gpio: pin busy")
	_, err := s.Measure()
	assert.ErrorIs(t, err, f.err)
	assert.Equal(t, 1, f.calls)
}

func TestConfigBuilder(t *testing.T) {
	b := NewConfig().WithSamples(7)
	first := b.Build()
	b.WithSamples(9).WithUnit(units.Feet)

	n, ok := first.Samples()
	assert.True(t, ok)
	assert.Equal(t, uint(7), n)
	_, ok = first.Unit()
	assert.False(t, ok, "building again must not change an earlier config")

	second := b.Build()
	n, _ = second.Samples()
	assert.Equal(t, uint(9), n)
	u, ok := second.Unit()
	assert.True(t, ok)
	assert.Equal(t, units.Feet, u)

	_, _, ok = MeasurementConfig{}.MaxDistance()
	assert.False(t, ok)
}

func TestMeasurementString(t *testing.T) {
	m := Measurement{Distance: 55, Unit: units.Centimeters, Samples: 3, ResponseTimeouts: 1}
	assert.Equal(t, "55.00cm (2/3 valid, 1 response timeouts, 0 signal timeouts, 0 too far)", m.String())
	assert.Equal(t, "cooling down", Measurement{CooldownActive: true}.String())
}
