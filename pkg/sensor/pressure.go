package sensor

import (
	"fmt"

	"github.com/edaniels/golog"

	"github.com/ericogr/muxdaq/pkg/convert"
	"github.com/ericogr/muxdaq/pkg/driver/ads1115"
)

// PressureConfig wires one linear pressure transducer to its report slot.
type PressureConfig struct {
	Index  uint16
	Gain   float64
	Offset float64
	Sig    ads1115.BranchConfig
	Range  convert.PressureRange
}

// Pressure measures a linear-output pressure transducer on a single ADC
// branch at a fixed gain.
type Pressure struct {
	calibration
	sel     ChannelSelector
	adc     BranchReader
	sig     ads1115.BranchConfig
	rng     convert.PressureRange
	reports []Report
	value   float64
	logger  golog.Logger
}

func NewPressure(cfg PressureConfig, sel ChannelSelector, reader BranchReader, reports []Report, logger golog.Logger) *Pressure {
	return &Pressure{
		calibration: calibration{index: cfg.Index, gain: cfg.Gain, offset: cfg.Offset},
		sel:         sel,
		adc:         reader,
		sig:         cfg.Sig,
		rng:         cfg.Range,
		reports:     reports,
		logger:      logger,
	}
}

func (s *Pressure) Initialize() error {
	if s.sel == nil || s.adc == nil || s.reports == nil {
		return ErrNilDependency
	}
	if int(s.index) >= len(s.reports) {
		return fmt.Errorf("%w: %d", ErrBadSlot, s.index)
	}
	s.status = StatusEnabled
	return nil
}

func (s *Pressure) Update() error {
	if s.status != StatusEnabled {
		return ErrNotInitialized
	}

	rep := &s.reports[s.index]
	rep.Value = 0
	rep.Active = false
	rep.Type = TypePressure

	if err := s.sel.Enable(); err != nil {
		return fmt.Errorf("sensor %d: select channel: %w", s.index, err)
	}

	mv, err := s.adc.ReadBranch(s.sig)
	if err != nil {
		return fmt.Errorf("sensor %d: %w", s.index, err)
	}

	pa, flag := s.rng.PressureFromMillivolts(mv)
	if flag != convert.FlagInRange {
		s.logger.Warnf("sensor %d: voltage %.1f mV %v, clamped to %.1f Pa", s.index, mv, flag, pa)
	}

	s.value = convert.ApplyCalibration(pa, s.gain, s.offset)
	rep.Value = s.value
	rep.Active = true
	return nil
}

func (s *Pressure) Value() float64 { return s.value }
func (s *Pressure) Type() Type     { return TypePressure }
