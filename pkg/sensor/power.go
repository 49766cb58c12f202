package sensor

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/edaniels/golog"

	"github.com/ericogr/muxdaq/pkg/convert"
)

// The PZEM energy meter exposes its measurements as a block of Modbus
// input registers starting at 0.
const (
	pzemRegisterBase  = 0x0000
	pzemRegisterCount = 10

	regVoltage     = 0
	regCurrentLow  = 1
	regCurrentHigh = 2
	regPowerLow    = 3
	regPowerHigh   = 4
	regPowerFactor = 8

	voltageScale     = 10.0
	currentScale     = 1000.0
	powerScale       = 10.0
	powerFactorScale = 100.0
)

// PowerSlots is the number of consecutive report slots a power meter
// occupies: voltage, current, power, power factor.
const PowerSlots = 4

const (
	slotVoltage = iota
	slotCurrent
	slotPower
	slotPowerFactor
)

// ErrShortResponse reports a Modbus reply too small for the requested
// register block.
var ErrShortResponse = errors.New("short modbus response")

// RegisterReader reads a block of Modbus input registers, returning the
// register payload as big-endian bytes. goburrow/modbus.Client satisfies
// it.
type RegisterReader interface {
	ReadInputRegisters(address, quantity uint16) ([]byte, error)
}

// PowerConfig wires one Modbus RTU power meter to its report block.
type PowerConfig struct {
	Index  uint16
	Gain   float64
	Offset float64
}

// Power reads a PZEM-class energy meter over Modbus RTU and writes
// voltage, current, power and power factor into four consecutive report
// slots.
type Power struct {
	calibration
	client  RegisterReader
	reports []Report
	values  [PowerSlots]float64
	logger  golog.Logger
}

func NewPower(cfg PowerConfig, client RegisterReader, reports []Report, logger golog.Logger) *Power {
	return &Power{
		calibration: calibration{index: cfg.Index, gain: cfg.Gain, offset: cfg.Offset},
		client:      client,
		reports:     reports,
		logger:      logger,
	}
}

func (s *Power) Initialize() error {
	if s.client == nil || s.reports == nil {
		return ErrNilDependency
	}
	if int(s.index)+PowerSlots > len(s.reports) {
		return fmt.Errorf("%w: %d..%d", ErrBadSlot, s.index, int(s.index)+PowerSlots-1)
	}
	s.status = StatusEnabled
	return nil
}

func (s *Power) Update() error {
	if s.status != StatusEnabled {
		return ErrNotInitialized
	}

	types := [PowerSlots]Type{TypeVoltage, TypeCurrent, TypePower, TypePowerFactor}
	base := int(s.index)
	for i := 0; i < PowerSlots; i++ {
		s.reports[base+i] = Report{Type: types[i]}
	}

	payload, err := s.client.ReadInputRegisters(pzemRegisterBase, pzemRegisterCount)
	if err != nil {
		return fmt.Errorf("sensor %d: read registers: %w", s.index, err)
	}
	if len(payload) < 2*pzemRegisterCount {
		return fmt.Errorf("sensor %d: %w: %d bytes", s.index, ErrShortResponse, len(payload))
	}

	var regs [pzemRegisterCount]uint16
	for i := range regs {
		regs[i] = binary.BigEndian.Uint16(payload[2*i:])
	}

	s.values[slotVoltage] = convert.ApplyCalibration(float64(regs[regVoltage])/voltageScale, s.gain, s.offset)
	s.values[slotCurrent] = convert.ApplyCalibration(float64(uint32(regs[regCurrentHigh])<<16|uint32(regs[regCurrentLow]))/currentScale, s.gain, s.offset)
	s.values[slotPower] = convert.ApplyCalibration(float64(uint32(regs[regPowerHigh])<<16|uint32(regs[regPowerLow]))/powerScale, s.gain, s.offset)
	s.values[slotPowerFactor] = convert.ApplyCalibration(float64(regs[regPowerFactor])/powerFactorScale, s.gain, s.offset)

	for i := 0; i < PowerSlots; i++ {
		s.reports[base+i].Value = s.values[i]
		s.reports[base+i].Active = true
	}
	s.logger.Debugf("sensor %d: %.1f V %.3f A %.1f W pf %.2f",
		s.index, s.values[slotVoltage], s.values[slotCurrent], s.values[slotPower], s.values[slotPowerFactor])
	return nil
}

// Value returns the last power reading in watts.
func (s *Power) Value() float64 { return s.values[slotPower] }
func (s *Power) Type() Type     { return TypePower }
