// Package units provides shared constants and parsing for length and energy units.
//
// The base units are the millimetre and the MeV, so a value stored as a plain
// float64 is always in mm or MeV. Multiply by a constant to convert into the
// base unit and divide by it to convert out.
package units

import (
	"fmt"
	"strings"
)

// Length constants
const (
	MM = 1.0
	CM = 10.0 * MM
	M  = 1000.0 * MM
	UM = 1e-3 * MM
)

// Energy constants
const (
	MeV = 1.0
	KeV = 1e-3 * MeV
	GeV = 1000.0 * MeV
	TeV = 1000.0 * GeV
)

var lengthUnits = map[string]float64{
	"um": UM,
	"mm": MM,
	"cm": CM,
	"m":  M,
}

var energyUnits = map[string]float64{
	"keV": KeV,
	"MeV": MeV,
	"GeV": GeV,
	"TeV": TeV,
}

// ValidLengthUnits contains all valid length unit names
var ValidLengthUnits = []string{"um", "mm", "cm", "m"}

// ValidEnergyUnits contains all valid energy unit names
var ValidEnergyUnits = []string{"keV", "MeV", "GeV", "TeV"}

// IsValidLength checks if the given unit is a known length unit
func IsValidLength(unit string) bool {
	_, ok := lengthUnits[unit]
	return ok
}

// IsValidEnergy checks if the given unit is a known energy unit
func IsValidEnergy(unit string) bool {
	_, ok := energyUnits[unit]
	return ok
}

// ValidLengthUnitsString returns a comma-separated string of valid length units for error messages
func ValidLengthUnitsString() string {
	return strings.Join(ValidLengthUnits, ", ")
}

// ValidEnergyUnitsString returns a comma-separated string of valid energy units for error messages
func ValidEnergyUnitsString() string {
	return strings.Join(ValidEnergyUnits, ", ")
}

// Length returns the base-unit multiplier for a length unit name.
func Length(unit string) (float64, error) {
	v, ok := lengthUnits[unit]
	if !ok {
		return 0, fmt.Errorf("unknown length unit %q (valid: %s)", unit, ValidLengthUnitsString())
	}
	return v, nil
}

// Energy returns the base-unit multiplier for an energy unit name.
// Unit names are case sensitive: "MeV" is valid, "mev" is not.
func Energy(unit string) (float64, error) {
	v, ok := energyUnits[unit]
	if !ok {
		return 0, fmt.Errorf("unknown energy unit %q (valid: %s)", unit, ValidEnergyUnitsString())
	}
	return v, nil
}

// Parse returns the base-unit multiplier for any known length or energy unit.
func Parse(unit string) (float64, error) {
	if v, ok := lengthUnits[unit]; ok {
		return v, nil
	}
	if v, ok := energyUnits[unit]; ok {
		return v, nil
	}
	return 0, fmt.Errorf("unknown unit %q", unit)
}
