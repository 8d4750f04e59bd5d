// Package units converts the temperature and wind-speed values reported by
// upstream providers into the metric and imperial pairs exposed by the API.
// Every function is pure; there is no package state.
package units

import (
	"math"
	"strings"
)

var cardinalDirections = [...]string{
	"N", "NNE", "NE", "ENE", "E", "ESE", "SE", "SSE",
	"S", "SSW", "SW", "WSW", "W", "WNW", "NW", "NNW",
}

const (
	kphPerMph = 1.609344
	kphPerMps = 3.6
)

func CelsiusToFahrenheit(c float64) float64 { return c*9/5 + 32 }

func FahrenheitToCelsius(f float64) float64 { return (f - 32) * 5 / 9 }

func KphToMph(kph float64) float64 { return kph / kphPerMph }

func MphToKph(mph float64) float64 { return mph * kphPerMph }

func MpsToKph(mps float64) float64 { return mps * kphPerMps }

func MpsToMph(mps float64) float64 { return KphToMph(MpsToKph(mps)) }

// NormalizeTemperature returns the value as (celsius, fahrenheit).  Unknown or
// missing units are treated as Celsius.  A nil value yields (nil, nil).
func NormalizeTemperature(value *float64, unit *string) (celsius, fahrenheit *float64) {
	if value == nil {
		return nil, nil
	}
	v := *value
	var c, f float64
	switch normalizeUnit(unit) {
	case "FAHRENHEIT":
		c, f = FahrenheitToCelsius(v), v
	default:
		c, f = v, CelsiusToFahrenheit(v)
	}
	return &c, &f
}

// NormalizeWindSpeed returns the value as (km/h, mph).  Unknown or missing
// units are treated as meters per second.
func NormalizeWindSpeed(value *float64, unit *string) (kph, mph *float64) {
	if value == nil {
		return nil, nil
	}
	v := *value
	var k, m float64
	switch normalizeUnit(unit) {
	case "KPH", "KILOMETERS_PER_HOUR":
		k, m = v, KphToMph(v)
	case "MPH", "MILES_PER_HOUR":
		k, m = MphToKph(v), v
	default:
		k, m = MpsToKph(v), MpsToMph(v)
	}
	return &k, &m
}

// DegreesToCardinal maps a bearing to one of the 16 compass points.
func DegreesToCardinal(degrees float64) string {
	d := math.Mod(degrees, 360)
	if d < 0 {
		d += 360
	}
	idx := int(math.Round(d/22.5)) % len(cardinalDirections)
	return cardinalDirections[idx]
}

func normalizeUnit(unit *string) string {
	if unit == nil {
		return ""
	}
	return strings.ToUpper(strings.TrimSpace(*unit))
}
