// Package convert maps raw electrical readings to physical units: divider
// resistance from the two ADC branches, lookup-table interpolation for NTC
// thermistors, linear voltage-to-pressure mapping, and calibration
// application. All functions are pure; out-of-range inputs are clamped and
// flagged rather than failed.
package convert

import "errors"

// AbsoluteZeroC is returned for a physically impossible (negative)
// resistance.
const AbsoluteZeroC = -273.15

// ErrInvalidResistance reports a divider reading that cannot be turned into
// a resistance (signal voltage at or beyond the supply rail).
var ErrInvalidResistance = errors.New("invalid resistance")

// Flag qualifies a conversion result. Clamped results are still valid
// readings; FlagInvalid accompanies the absolute-zero sentinel only.
type Flag int

const (
	FlagInRange Flag = iota
	FlagUnderRange
	FlagOverRange
	FlagInvalid
)

func (f Flag) String() string {
	switch f {
	case FlagInRange:
		return "in-range"
	case FlagUnderRange:
		return "under-range"
	case FlagOverRange:
		return "over-range"
	case FlagInvalid:
		return "invalid"
	}
	return "unknown"
}

// Divider describes the fixed half of the NTC measurement bridge.
type Divider struct {
	SupplyMV     float64 // divider supply, mV
	RefNominalMV float64 // expected reference-branch voltage, mV
	FixedKOhm    float64 // bridge resistor, kΩ
}

// DefaultDivider matches the production hardware: 3.3 V supply, midpoint
// reference, 100 kΩ bridge resistor.
func DefaultDivider() Divider {
	return Divider{SupplyMV: 3300, RefNominalMV: 1650, FixedKOhm: 100}
}

// ResistanceKOhm computes the thermistor resistance from the measured
// reference and signal branch voltages. The reference branch error
// (nominal − measured) is assumed common to both branches and is added back
// to the signal voltage before applying the divider formula.
func (d Divider) ResistanceKOhm(refMV, sigMV float64) (float64, error) {
	vErr := d.RefNominalMV - refMV
	gain := (sigMV + vErr) / d.SupplyMV
	if gain == 1 {
		return 0, ErrInvalidResistance
	}
	return d.FixedKOhm * gain / (1 - gain), nil
}

// CorrectResistance applies the piecewise-quadratic calibration fit to a
// computed resistance. Exactly one region applies: the bracket containing
// the value, or the outermost region extrapolated.
func CorrectResistance(kohm float64) float64 {
	last := len(correctionRegions) - 1
	for i, reg := range correctionRegions {
		inBand := kohm > reg.rLow && kohm <= reg.rHigh
		aboveTop := i == 0 && kohm > reg.rHigh
		belowBottom := i == last && kohm <= reg.rLow
		if inBand || aboveTop || belowBottom {
			return reg.a*kohm*kohm + reg.b*kohm + reg.c
		}
	}
	return kohm
}

// TemperatureFromResistance converts a thermistor resistance to °C using
// binary search over the lookup table and linear interpolation between the
// bracketing entries. Resistances beyond the table are clamped to the
// table's edge temperatures; a negative resistance yields the
// absolute-zero sentinel with FlagInvalid.
func TemperatureFromResistance(kohm float64) (float64, Flag) {
	if kohm < 0 {
		return AbsoluteZeroC, FlagInvalid
	}

	last := len(ntcTable) - 1
	if kohm >= ntcTable[0].kohm {
		return float64(ntcTable[0].degC), FlagOverRange
	}
	if kohm <= ntcTable[last].kohm {
		return float64(ntcTable[last].degC), FlagUnderRange
	}

	lo, hi := 0, last
	for hi-lo > 1 {
		mid := (lo + hi) / 2
		if kohm > ntcTable[mid].kohm {
			hi = mid
		} else {
			lo = mid
		}
	}

	r1, t1 := ntcTable[lo].kohm, float64(ntcTable[lo].degC)
	r2, t2 := ntcTable[hi].kohm, float64(ntcTable[hi].degC)
	if r1 == r2 {
		return (t1 + t2) / 2, FlagInRange
	}
	return t1 + (kohm-r1)*(t2-t1)/(r2-r1), FlagInRange
}

// PressureRange is the transfer function of a linear pressure transducer.
type PressureRange struct {
	MinMV float64
	MaxMV float64
	MaxPa float64
}

// DefaultPressureRange matches the installed transducer: 600 mV → 0 Pa,
// 3000 mV → 2400 Pa.
func DefaultPressureRange() PressureRange {
	return PressureRange{MinMV: 600, MaxMV: 3000, MaxPa: 2400}
}

// PressureFromMillivolts maps a sensor voltage to pressure in Pascal,
// clamping to the transducer's rated span.
func (p PressureRange) PressureFromMillivolts(mv float64) (float64, Flag) {
	if mv < p.MinMV {
		return 0, FlagUnderRange
	}
	if mv > p.MaxMV {
		return p.MaxPa, FlagOverRange
	}
	return (mv - p.MinMV) / (p.MaxMV - p.MinMV) * p.MaxPa, FlagInRange
}

// ApplyCalibration scales and shifts a converted value with the sensor's
// calibration pair. Applied exactly once, after unit conversion.
func ApplyCalibration(value, gain, offset float64) float64 {
	return value*gain + offset
}
