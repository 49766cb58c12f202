package ads1115

import (
	"errors"
	"testing"

	"github.com/edaniels/golog"
)

// fakeBus records writes and plays back canned register reads.
type fakeBus struct {
	writes   [][]byte
	config   [2]byte
	conv     [2]byte
	txErr    error
	notReady int // number of status polls reporting busy before ready
}

func (f *fakeBus) Tx(addr uint16, w, r []byte) error {
	if f.txErr != nil {
		return f.txErr
	}
	if r == nil {
		f.writes = append(f.writes, append([]byte(nil), w...))
		if len(w) == 3 && w[0] == regConfig {
			f.config[0], f.config[1] = w[1], w[2]
		}
		return nil
	}
	switch w[0] {
	case regConfig:
		if f.notReady > 0 {
			f.notReady--
			r[0], r[1] = f.config[0]&0x7F, f.config[1]
		} else {
			r[0], r[1] = f.config[0]|0x80, f.config[1]
		}
	case regConversion:
		r[0], r[1] = f.conv[0], f.conv[1]
	}
	return nil
}

func TestConfigWord(t *testing.T) {
	tests := []struct {
		cfg  BranchConfig
		want uint16
	}{
		// single-shot, A0 single-ended, ±4.096 V, 128 SPS
		{BranchConfig{Input: Single0, Gain: Gain4V096, Rate: DR128SPS, Mode: SingleShot}, 0xC383},
		// single-shot, A1, same gain/rate
		{BranchConfig{Input: Single1, Gain: Gain4V096, Rate: DR128SPS, Mode: SingleShot}, 0xD383},
		// 8 SPS drops the data-rate bits
		{BranchConfig{Input: Single0, Gain: Gain4V096, Rate: DR8SPS, Mode: SingleShot}, 0xC303},
		// differential AIN0−AIN1, ±2.048 V
		{BranchConfig{Input: Diff0_1, Gain: Gain2V048, Rate: DR8SPS, Mode: SingleShot}, 0x8503},
	}
	for _, tt := range tests {
		if got := tt.cfg.Word(); got != tt.want {
			t.Fatalf("Word(%+v) = %04X; want %04X", tt.cfg, got, tt.want)
		}
	}
}

func TestReadRawRequiresConfigure(t *testing.T) {
	bus := &fakeBus{}
	d := New(bus, DefaultAddr, golog.NewTestLogger(t))

	cfg := BranchConfig{Input: Single0, Gain: Gain2V048, Rate: DR860SPS, Mode: SingleShot}
	if _, err := d.ReadRaw(cfg); !errors.Is(err, ErrConfigMismatch) {
		t.Fatalf("read before configure: err = %v; want ErrConfigMismatch", err)
	}

	if err := d.Configure(cfg); err != nil {
		t.Fatalf("configure: %v", err)
	}

	other := cfg
	other.Gain = Gain0V512
	if _, err := d.ReadRaw(other); !errors.Is(err, ErrConfigMismatch) {
		t.Fatalf("read with stale config: err = %v; want ErrConfigMismatch", err)
	}
}

func TestReadRawValue(t *testing.T) {
	bus := &fakeBus{conv: [2]byte{0x12, 0x34}, notReady: 1}
	d := New(bus, DefaultAddr, golog.NewTestLogger(t))

	cfg := BranchConfig{Input: Diff0_1, Gain: Gain2V048, Rate: DR860SPS, Mode: SingleShot}
	if err := d.Configure(cfg); err != nil {
		t.Fatalf("configure: %v", err)
	}
	raw, err := d.ReadRaw(cfg)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if raw != 0x1234 {
		t.Fatalf("raw = %04X; want 1234", raw)
	}

	// negative result
	bus.conv = [2]byte{0xFF, 0xFE}
	raw, err = d.ReadRaw(cfg)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if raw != -2 {
		t.Fatalf("raw = %d; want -2", raw)
	}
}

func TestReadRawTimeout(t *testing.T) {
	bus := &fakeBus{notReady: 100}
	d := New(bus, DefaultAddr, golog.NewTestLogger(t))

	cfg := BranchConfig{Input: Single0, Gain: Gain2V048, Rate: DR860SPS, Mode: SingleShot}
	if err := d.Configure(cfg); err != nil {
		t.Fatalf("configure: %v", err)
	}
	if _, err := d.ReadRaw(cfg); !errors.Is(err, ErrConversionTimeout) {
		t.Fatalf("err = %v; want ErrConversionTimeout", err)
	}
}

func TestLSBMillivolts(t *testing.T) {
	tests := []struct {
		gain Gain
		want float64
	}{
		{Gain6V144, 6144 / 32768.0},
		{Gain4V096, 4096 / 32768.0},
		{Gain2V048, 2048 / 32768.0},
		{Gain1V024, 1024 / 32768.0},
		{Gain0V512, 512 / 32768.0},
		{Gain0V256, 256 / 32768.0},
	}
	for _, tt := range tests {
		if got := LSBMillivolts(tt.gain); got != tt.want {
			t.Fatalf("LSBMillivolts(%v) = %v; want %v", tt.gain, got, tt.want)
		}
	}
}

func TestPickGain(t *testing.T) {
	tests := []struct {
		mv   float64
		want Gain
	}{
		{100, Gain0V256},
		{-100, Gain0V256},
		{400, Gain0V512},
		{900, Gain1V024},
		{1800, Gain2V048},
		{3500, Gain4V096},
		{5000, Gain6V144},
	}
	for _, tt := range tests {
		if got := PickGain(tt.mv); got != tt.want {
			t.Fatalf("PickGain(%v) = %v; want %v", tt.mv, got, tt.want)
		}
	}
}
