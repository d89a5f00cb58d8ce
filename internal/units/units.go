// Package units provides the wait-time display units and timezone helpers
// shared by the config layer and the chart renderers.
package units

import "strings"

// Wait-time units. Records always carry seconds.
const (
	Seconds = "s"
	Minutes = "min"
)

// ValidUnits lists the accepted wait-time units.
var ValidUnits = []string{Seconds, Minutes}

// IsValid reports whether unit is a known wait-time unit.
func IsValid(unit string) bool {
	for _, u := range ValidUnits {
		if unit == u {
			return true
		}
	}
	return false
}

// GetValidUnitsString returns the valid units for error messages.
func GetValidUnitsString() string {
	return strings.Join(ValidUnits, ", ")
}

// ConvertWait converts a wait time in seconds to the target unit. Unknown
// units leave the value in seconds.
func ConvertWait(seconds float64, unit string) float64 {
	switch unit {
	case Minutes:
		return seconds / 60
	default:
		return seconds
	}
}

// Label returns an axis label suffix for unit, e.g. "wait (min)".
func Label(unit string) string {
	if !IsValid(unit) {
		unit = Seconds
	}
	return "wait (" + unit + ")"
}
