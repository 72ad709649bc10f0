// Package units provides shared constants and relabeling for report data units
package units

import "strings"

// Unit constants for the report data units we expect from upstream reports.
const (
	NanoAmpere  = "nA"
	MilliVolt   = "mV"
	MicroAmpere = "uA"
	MicroVolt   = "uV"
)

// ValidUnits contains all recognised unit values
var ValidUnits = []string{NanoAmpere, MilliVolt, MicroAmpere, MicroVolt}

// IsValid checks if the given unit is in the list of recognised units
func IsValid(unit string) bool {
	for _, validUnit := range ValidUnits {
		if unit == validUnit {
			return true
		}
	}
	return false
}

// GetValidUnitsString returns a comma-separated string of recognised units for error messages
func GetValidUnitsString() string {
	return strings.Join(ValidUnits, ", ")
}

// CurrentToPotential relabels a current unit as the corresponding potential
// unit by replacing every 'A' with 'V' (nA -> nV). The accumulated field is
// reported as a potential even though the report samples are currents.
// Units without an 'A' pass through unchanged.
func CurrentToPotential(unit string) string {
	return strings.ReplaceAll(unit, "A", "V")
}
