package sensor

import (
	"fmt"
	"time"

	"github.com/edaniels/golog"

	"github.com/ericogr/muxdaq/pkg/adc"
	"github.com/ericogr/muxdaq/pkg/convert"
	"github.com/ericogr/muxdaq/pkg/driver/ads1115"
)

// muxSettle is the wait after switching the multiplexer branch before
// sampling, letting the divider rails settle.
const muxSettle = 10 * time.Millisecond

// BranchReader is the slice of the ADC controller the analog sensors use.
type BranchReader interface {
	ReadBranch(cfg ads1115.BranchConfig) (float64, error)
	ReadBranches(ref ads1115.BranchConfig, sig *ads1115.BranchConfig) (float64, float64, error)
}

var _ BranchReader = (*adc.Controller)(nil)

// NTCConfig wires one thermistor divider to its report slot.
type NTCConfig struct {
	Index   uint16
	Gain    float64
	Offset  float64
	Ref     ads1115.BranchConfig
	Sig     ads1115.BranchConfig
	Divider convert.Divider
}

// NTC measures a negative-temperature-coefficient thermistor through the
// two-branch divider read and the lookup-table conversion.
type NTC struct {
	calibration
	sel     ChannelSelector
	adc     BranchReader
	ref     ads1115.BranchConfig
	sig     ads1115.BranchConfig
	divider convert.Divider
	reports []Report
	value   float64
	logger  golog.Logger
}

func NewNTC(cfg NTCConfig, sel ChannelSelector, reader BranchReader, reports []Report, logger golog.Logger) *NTC {
	return &NTC{
		calibration: calibration{index: cfg.Index, gain: cfg.Gain, offset: cfg.Offset},
		sel:         sel,
		adc:         reader,
		ref:         cfg.Ref,
		sig:         cfg.Sig,
		divider:     cfg.Divider,
		reports:     reports,
		logger:      logger,
	}
}

func (s *NTC) Initialize() error {
	if s.sel == nil || s.adc == nil || s.reports == nil {
		return ErrNilDependency
	}
	if int(s.index) >= len(s.reports) {
		return fmt.Errorf("%w: %d", ErrBadSlot, s.index)
	}
	s.status = StatusEnabled
	return nil
}

func (s *NTC) Update() error {
	if s.status != StatusEnabled {
		return ErrNotInitialized
	}

	rep := &s.reports[s.index]
	rep.Value = 0
	rep.Active = false
	rep.Type = TypeTemperature

	if err := s.sel.Enable(); err != nil {
		return fmt.Errorf("sensor %d: select channel: %w", s.index, err)
	}
	time.Sleep(muxSettle)

	refMV, sigMV, err := s.adc.ReadBranches(s.ref, &s.sig)
	if err != nil {
		return fmt.Errorf("sensor %d: %w", s.index, err)
	}

	kohm, err := s.divider.ResistanceKOhm(refMV, sigMV)
	if err != nil {
		return fmt.Errorf("sensor %d: %w", s.index, err)
	}
	kohm = convert.CorrectResistance(kohm)

	degC, flag := convert.TemperatureFromResistance(kohm)
	switch flag {
	case convert.FlagInvalid:
		return fmt.Errorf("sensor %d: %.3f kΩ: %w", s.index, kohm, convert.ErrInvalidResistance)
	case convert.FlagOverRange, convert.FlagUnderRange:
		s.logger.Warnf("sensor %d: resistance %.3f kΩ %v, clamped to %.1f °C", s.index, kohm, flag, degC)
	}

	s.value = convert.ApplyCalibration(degC, s.gain, s.offset)
	rep.Value = s.value
	rep.Active = true
	return nil
}

func (s *NTC) Value() float64 { return s.value }
func (s *NTC) Type() Type     { return TypeTemperature }
