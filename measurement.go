package hcsr04

import (
	"fmt"

	"github.com/asjoyner/hcsr04/units"
	"periph.io/x/periph/conn/physic"
)

// Measurement is the aggregate of one or more probes.
type Measurement struct {
	// Distance is the average of the valid samples, in Unit.  It is zero
	// when no sample was valid.
	Distance float64
	Unit     units.Distance

	// Samples is how many probes were taken.
	Samples uint

	// Every invalid sample is counted under exactly one of these.
	SignalTimeouts      uint
	ResponseTimeouts    uint
	MaxDistanceExceeded uint

	// CooldownActive is set when the sensor was cooling down and did not
	// probe at all.
	CooldownActive bool
}

// Invalid returns the number of samples that were discarded.
func (m Measurement) Invalid() uint {
	return m.SignalTimeouts + m.ResponseTimeouts + m.MaxDistanceExceeded
}

// Valid returns the number of samples that contributed to Distance.
func (m Measurement) Valid() uint {
	return m.Samples - m.Invalid()
}

// InCentimeters returns Distance in centimeters.
func (m Measurement) InCentimeters() float64 {
	return units.ConvertDistance(m.Distance, m.Unit, units.Centimeters)
}

// InInches returns Distance in inches.
func (m Measurement) InInches() float64 {
	return units.ConvertDistance(m.Distance, m.Unit, units.Inches)
}

// Length returns Distance as a periph distance.
func (m Measurement) Length() physic.Distance {
	return units.ToPhysicDistance(m.Distance, m.Unit)
}

func (m Measurement) String() string {
	if m.CooldownActive {
		return "cooling down"
	}
	return fmt.Sprintf("%.2f%s (%d/%d valid, %d response timeouts, %d signal timeouts, %d too far)",
		m.Distance, m.Unit, m.Valid(), m.Samples, m.ResponseTimeouts, m.SignalTimeouts, m.MaxDistanceExceeded)
}
