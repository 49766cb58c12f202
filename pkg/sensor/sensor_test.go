package sensor

import (
	"errors"
	"math"
	"testing"

	"github.com/edaniels/golog"

	"github.com/ericogr/muxdaq/pkg/convert"
	"github.com/ericogr/muxdaq/pkg/driver/ads1115"
)

type fakeSelector struct {
	calls int
	err   error
}

func (f *fakeSelector) Enable() error {
	f.calls++
	return f.err
}

// fakeReader plays back fixed branch voltages in millivolts.
type fakeReader struct {
	refMV float64
	sigMV float64
	err   error
}

func (f *fakeReader) ReadBranch(cfg ads1115.BranchConfig) (float64, error) {
	if f.err != nil {
		return 0, f.err
	}
	return f.sigMV, nil
}

func (f *fakeReader) ReadBranches(ref ads1115.BranchConfig, sig *ads1115.BranchConfig) (float64, float64, error) {
	if f.err != nil {
		return 0, 0, f.err
	}
	return f.refMV, f.sigMV, nil
}

func newNTC(t *testing.T, reader *fakeReader, reports []Report) *NTC {
	t.Helper()
	cfg := NTCConfig{
		Index:   0,
		Gain:    1,
		Offset:  0,
		Divider: convert.DefaultDivider(),
	}
	s := NewNTC(cfg, &fakeSelector{}, reader, reports, golog.NewTestLogger(t))
	if err := s.Initialize(); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	return s
}

func TestNTCUpdate(t *testing.T) {
	// signal at the divider midpoint: raw resistance 100 kΩ, corrected
	// ≈99.79 kΩ, just above the 25 °C knot
	reports := make([]Report, 2)
	s := newNTC(t, &fakeReader{refMV: 1650, sigMV: 1650}, reports)

	if err := s.Update(); err != nil {
		t.Fatalf("update: %v", err)
	}
	if !reports[0].Active || reports[0].Type != TypeTemperature {
		t.Fatalf("report = %+v; want active temperature", reports[0])
	}
	if math.Abs(reports[0].Value-25) > 0.5 {
		t.Fatalf("value = %v; want ~25 °C", reports[0].Value)
	}
	if s.Value() != reports[0].Value {
		t.Fatalf("Value() = %v; report = %v", s.Value(), reports[0].Value)
	}
}

func TestNTCUpdateBeforeInitialize(t *testing.T) {
	s := NewNTC(NTCConfig{Divider: convert.DefaultDivider()}, &fakeSelector{}, &fakeReader{}, make([]Report, 1), golog.NewTestLogger(t))
	if err := s.Update(); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("err = %v; want ErrNotInitialized", err)
	}
}

func TestNTCUpdateFailureDeactivatesSlot(t *testing.T) {
	reports := []Report{{Value: 42, Active: true}}
	wantErr := errors.New("bus gone")
	s := newNTC(t, &fakeReader{err: wantErr}, reports)

	if err := s.Update(); !errors.Is(err, wantErr) {
		t.Fatalf("err = %v; want bus error", err)
	}
	if reports[0].Active || reports[0].Value != 0 {
		t.Fatalf("report = %+v; want inactive zero", reports[0])
	}
}

func TestNTCInvalidResistance(t *testing.T) {
	// signal beyond the supply rail: divider gain > 1, negative resistance
	reports := make([]Report, 1)
	s := newNTC(t, &fakeReader{refMV: 1650, sigMV: 3400}, reports)

	if err := s.Update(); !errors.Is(err, convert.ErrInvalidResistance) {
		t.Fatalf("err = %v; want ErrInvalidResistance", err)
	}
	if reports[0].Active {
		t.Fatalf("report active after invalid resistance")
	}
}

func TestCalibrateRequiresInitialize(t *testing.T) {
	s := NewNTC(NTCConfig{Divider: convert.DefaultDivider()}, &fakeSelector{}, &fakeReader{}, make([]Report, 1), golog.NewTestLogger(t))
	if err := s.Calibrate(2, 1); !errors.Is(err, ErrNotInitialized) {
		t.Fatalf("err = %v; want ErrNotInitialized", err)
	}
	if err := s.Initialize(); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if err := s.Calibrate(2, 1); err != nil {
		t.Fatalf("calibrate: %v", err)
	}
}

func TestCalibrationIdempotence(t *testing.T) {
	reports := make([]Report, 1)
	s := newNTC(t, &fakeReader{refMV: 1650, sigMV: 1650}, reports)

	if err := s.Calibrate(1.5, -2); err != nil {
		t.Fatalf("calibrate: %v", err)
	}
	if err := s.Update(); err != nil {
		t.Fatalf("update: %v", err)
	}
	first := reports[0].Value

	if err := s.Calibrate(1.5, -2); err != nil {
		t.Fatalf("second calibrate: %v", err)
	}
	if err := s.Update(); err != nil {
		t.Fatalf("update: %v", err)
	}
	if reports[0].Value != first {
		t.Fatalf("value changed after identical recalibration: %v != %v", reports[0].Value, first)
	}
}

func TestPressureUpdate(t *testing.T) {
	reports := make([]Report, 1)
	cfg := PressureConfig{Index: 0, Gain: 1, Range: convert.DefaultPressureRange()}
	s := NewPressure(cfg, &fakeSelector{}, &fakeReader{sigMV: 1800}, reports, golog.NewTestLogger(t))
	if err := s.Initialize(); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if err := s.Update(); err != nil {
		t.Fatalf("update: %v", err)
	}
	if !reports[0].Active || reports[0].Type != TypePressure {
		t.Fatalf("report = %+v; want active pressure", reports[0])
	}
	if reports[0].Value <= 0 || reports[0].Value >= 2400 {
		t.Fatalf("value = %v; want strictly inside (0, 2400)", reports[0].Value)
	}
}

func TestPressureClampIsSuccess(t *testing.T) {
	reports := make([]Report, 1)
	cfg := PressureConfig{Index: 0, Gain: 1, Range: convert.DefaultPressureRange()}
	s := NewPressure(cfg, &fakeSelector{}, &fakeReader{sigMV: 100}, reports, golog.NewTestLogger(t))
	if err := s.Initialize(); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if err := s.Update(); err != nil {
		t.Fatalf("update: %v", err)
	}
	if !reports[0].Active || reports[0].Value != 0 {
		t.Fatalf("report = %+v; want active clamp to 0 Pa", reports[0])
	}
}

type fakeRegisters struct {
	payload []byte
	err     error
}

func (f *fakeRegisters) ReadInputRegisters(address, quantity uint16) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.payload, nil
}

func TestPowerUpdate(t *testing.T) {
	// 230.0 V, 1.5 A, 1200.0 W, pf 0.95
	payload := make([]byte, 20)
	put := func(reg int, v uint16) {
		payload[2*reg] = byte(v >> 8)
		payload[2*reg+1] = byte(v)
	}
	put(regVoltage, 2300)
	put(regCurrentLow, 1500)
	put(regPowerLow, 12000)
	put(regPowerFactor, 95)

	reports := make([]Report, 6)
	s := NewPower(PowerConfig{Index: 2, Gain: 1}, &fakeRegisters{payload: payload}, reports, golog.NewTestLogger(t))
	if err := s.Initialize(); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if err := s.Update(); err != nil {
		t.Fatalf("update: %v", err)
	}

	want := []struct {
		slot  int
		typ   Type
		value float64
	}{
		{2, TypeVoltage, 230.0},
		{3, TypeCurrent, 1.5},
		{4, TypePower, 1200.0},
		{5, TypePowerFactor, 0.95},
	}
	for _, w := range want {
		r := reports[w.slot]
		if !r.Active || r.Type != w.typ || math.Abs(r.Value-w.value) > 1e-9 {
			t.Fatalf("slot %d = %+v; want active %v %v", w.slot, r, w.typ, w.value)
		}
	}
	if s.Value() != 1200.0 {
		t.Fatalf("Value() = %v; want 1200", s.Value())
	}
}

func TestPowerShortResponse(t *testing.T) {
	reports := make([]Report, 4)
	s := NewPower(PowerConfig{Index: 0, Gain: 1}, &fakeRegisters{payload: make([]byte, 4)}, reports, golog.NewTestLogger(t))
	if err := s.Initialize(); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if err := s.Update(); !errors.Is(err, ErrShortResponse) {
		t.Fatalf("err = %v; want ErrShortResponse", err)
	}
	for i, r := range reports {
		if r.Active {
			t.Fatalf("slot %d active after failed read", i)
		}
	}
}

func TestPowerSlotBounds(t *testing.T) {
	s := NewPower(PowerConfig{Index: 2}, &fakeRegisters{}, make([]Report, 4), golog.NewTestLogger(t))
	if err := s.Initialize(); !errors.Is(err, ErrBadSlot) {
		t.Fatalf("err = %v; want ErrBadSlot", err)
	}
}
