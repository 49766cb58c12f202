// Package sensor defines the uniform capability contract every sensor kind
// implements and the report array the acquisition pipeline writes into.
package sensor

import "errors"

var (
	ErrNotInitialized = errors.New("sensor not initialized")
	ErrNilDependency  = errors.New("nil sensor dependency")
	ErrBadSlot        = errors.New("report slot out of range")
)

// Type identifies what a report slot measures.
type Type int

const (
	TypeUndefined Type = iota
	TypeTemperature
	TypePressure
	TypeVoltage
	TypeCurrent
	TypePower
	TypePowerFactor
)

func (t Type) String() string {
	switch t {
	case TypeTemperature:
		return "temperature"
	case TypePressure:
		return "pressure"
	case TypeVoltage:
		return "voltage"
	case TypeCurrent:
		return "current"
	case TypePower:
		return "power"
	case TypePowerFactor:
		return "power_factor"
	}
	return "undefined"
}

// Status is the operational state of a sensor.
type Status int

const (
	StatusDisabled Status = iota
	StatusEnabled
)

// Report is one output slot. A failed acquisition cycle leaves the slot
// inactive with a zero value; downstream consumers must treat inactive as
// "no fresh data", never as last known good.
type Report struct {
	Value  float64 `json:"value"`
	Active bool    `json:"active"`
	Type   Type    `json:"type"`
}

// Sensor is the capability contract shared by every sensor kind.
type Sensor interface {
	// Initialize validates wiring and enables the sensor.
	Initialize() error
	// Update runs one acquisition, converts to physical units, applies
	// calibration and writes the sensor's report slot(s).
	Update() error
	// Calibrate replaces the gain/offset pair applied after unit
	// conversion. Fails if the sensor was never initialized.
	Calibrate(gain, offset float64) error

	Value() float64
	Index() uint16
	Type() Type
	Status() Status
}

// ChannelSelector routes the sensor's multiplexer branch onto the shared
// bus. Implemented by mux.Channel.
type ChannelSelector interface {
	Enable() error
}

// calibration carries the slot index and the gain/offset pair common to
// all sensor kinds.
type calibration struct {
	index  uint16
	gain   float64
	offset float64
	status Status
}

func (c *calibration) Calibrate(gain, offset float64) error {
	if c.status != StatusEnabled {
		return ErrNotInitialized
	}
	c.gain = gain
	c.offset = offset
	return nil
}

func (c *calibration) Index() uint16  { return c.index }
func (c *calibration) Status() Status { return c.status }
