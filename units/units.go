// Package units converts distances and temperatures between the units an
// HC-SR04 measurement can be expressed in.
//
// Every conversion goes through a base unit (centimeters for distance,
// Celsius for temperature), so adding a unit means adding one row to a
// table rather than a row and a column.
package units

import (
	"fmt"
	"math"
	"strings"

	"periph.io/x/periph/conn/physic"
)

// Distance is a unit of length.
type Distance uint8

const (
	Centimeters Distance = iota
	Meters
	Inches
	Feet
	Yards
)

// Temperature is a unit of temperature.
type Temperature uint8

const (
	Celsius Temperature = iota
	Fahrenheit
)

// centimetersPer returns how many centimeters one unit d is.
func centimetersPer(d Distance) float64 {
	switch d {
	case Centimeters:
		return 1
	case Meters:
		return 100
	case Inches:
		return 2.54
	case Feet:
		return 30.48
	case Yards:
		return 91.44
	}
	panic(fmt.Sprintf("units: unknown distance unit %d", uint8(d)))
}

// ConvertDistance converts value from one distance unit to another.
func ConvertDistance(value float64, from, to Distance) float64 {
	if from == to {
		return value
	}
	return value * centimetersPer(from) / centimetersPer(to)
}

func toCelsius(value float64, from Temperature) float64 {
	switch from {
	case Celsius:
		return value
	case Fahrenheit:
		return (value - 32) * 5 / 9
	}
	panic(fmt.Sprintf("units: unknown temperature unit %d", uint8(from)))
}

func fromCelsius(celsius float64, to Temperature) float64 {
	switch to {
	case Celsius:
		return celsius
	case Fahrenheit:
		return celsius*9/5 + 32
	}
	panic(fmt.Sprintf("units: unknown temperature unit %d", uint8(to)))
}

// ConvertTemperature converts value from one temperature unit to another.
func ConvertTemperature(value float64, from, to Temperature) float64 {
	if from == to {
		return value
	}
	return fromCelsius(toCelsius(value, from), to)
}

// ToPhysicDistance expresses value, given in unit, as a periph distance.
func ToPhysicDistance(value float64, unit Distance) physic.Distance {
	meters := ConvertDistance(value, unit, Meters)
	return physic.Distance(math.Round(meters * float64(physic.Metre)))
}

// FromPhysicTemperature returns t in degrees Celsius.
func FromPhysicTemperature(t physic.Temperature) float64 {
	return float64(t-physic.ZeroCelsius) / float64(physic.Kelvin)
}

var distanceNames = map[Distance]string{
	Centimeters: "cm",
	Meters:      "m",
	Inches:      "in",
	Feet:        "ft",
	Yards:       "yd",
}

var temperatureNames = map[Temperature]string{
	Celsius:    "C",
	Fahrenheit: "F",
}

func (d Distance) String() string {
	if s, ok := distanceNames[d]; ok {
		return s
	}
	return fmt.Sprintf("Distance(%d)", uint8(d))
}

func (t Temperature) String() string {
	if s, ok := temperatureNames[t]; ok {
		return s
	}
	return fmt.Sprintf("Temperature(%d)", uint8(t))
}

// ParseDistance accepts the short names printed by Distance.String as well
// as the spelled out plural, case insensitively.
func ParseDistance(s string) (Distance, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "cm", "centimeter", "centimeters":
		return Centimeters, nil
	case "m", "meter", "meters":
		return Meters, nil
	case "in", "inch", "inches":
		return Inches, nil
	case "ft", "foot", "feet":
		return Feet, nil
	case "yd", "yard", "yards":
		return Yards, nil
	}
	return 0, fmt.Errorf("unknown distance unit %q", s)
}

// ParseTemperature accepts "C", "F", "celsius" or "fahrenheit".
func ParseTemperature(s string) (Temperature, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "c", "celsius":
		return Celsius, nil
	case "f", "fahrenheit":
		return Fahrenheit, nil
	}
	return 0, fmt.Errorf("unknown temperature unit %q", s)
}
