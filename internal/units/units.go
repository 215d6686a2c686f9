// Package units converts stored metric values into the user's preferred units
// and formats them for display. Temperatures are stored in Celsius and wind in km/h;
// every conversion for display or companion push goes through here.
package units

import (
	"fmt"
	"math"
)

// System is a unit preference.
type System string

const (
	Metric   System = "metric"
	Imperial System = "imperial"
)

// FromMetric maps a boolean preference to a System.
func FromMetric(metric bool) System {
	if metric {
		return Metric
	}
	return Imperial
}

// CelsiusToFahrenheit converts a temperature.
func CelsiusToFahrenheit(c float64) float64 {
	return c*1.8 + 32
}

// KphToMph converts a speed.
func KphToMph(kph float64) float64 {
	return kph * 0.621371192237334
}

// Temperature converts a Celsius value into the given system.
func Temperature(celsius float64, sys System) float64 {
	if sys == Imperial {
		return CelsiusToFahrenheit(celsius)
	}
	return celsius
}

// WholeTemperature converts and rounds, as the companion device only shows integers.
func WholeTemperature(celsius float64, sys System) int {
	return int(math.Round(Temperature(celsius, sys)))
}

// Speed converts a km/h value into the given system.
func Speed(kph float64, sys System) float64 {
	if sys == Imperial {
		return KphToMph(kph)
	}
	return kph
}

// FormatTemperature renders a Celsius value as "21°" in the given system.
func FormatTemperature(celsius float64, sys System) string {
	return fmt.Sprintf("%.0f°", Temperature(celsius, sys))
}

// FormatHighLow renders "HIGH° / LOW°".
func FormatHighLow(high, low float64, sys System) string {
	return FormatTemperature(math.Round(high), sys) + " / " + FormatTemperature(math.Round(low), sys)
}

// FormatWind renders "2 km/h SW" or "1 mph SW".
func FormatWind(kph, degrees float64, sys System) string {
	if sys == Imperial {
		return fmt.Sprintf("%.0f mph %s", KphToMph(kph), Compass(degrees))
	}
	return fmt.Sprintf("%.0f km/h %s", kph, Compass(degrees))
}

var compassPoints = []string{"N", "NE", "E", "SE", "S", "SW", "W", "NW"}

// Compass converts a bearing in degrees to one of eight compass points.
func Compass(degrees float64) string {
	if math.IsNaN(degrees) || degrees < 0 || degrees >= 360 {
		return "Unknown"
	}
	i := int(math.Floor((degrees+22.5)/45)) % len(compassPoints)
	return compassPoints[i]
}
