// Package ads1115 drives the TI ADS1115 16-bit differential ADC over I2C:
// config register packing, single-shot conversion polling and raw reads,
// plus the gain-dependent LSB table and the auto-ranging gain pick.
package ads1115

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/edaniels/golog"
)

const (
	// DefaultAddr is the ADDR-pin-to-GND I2C address.
	DefaultAddr = 0x48

	regConversion = 0x00
	regConfig     = 0x01

	// OS bit: write 1 to start a single conversion, reads back 1 when the
	// device is idle (conversion complete).
	osBit = 0x8000

	fullScaleCounts = 32768.0

	// comparator disabled (COMP_QUE = 11), all other comparator fields zero
	compDisable = 0x0003

	conversionRetries = 3
)

var (
	ErrConfigMismatch    = errors.New("adc configuration mismatch")
	ErrConversionTimeout = errors.New("adc conversion timed out")
)

// Gain selects the PGA full-scale range.
type Gain uint16

const (
	Gain6V144 Gain = iota // ±6.144 V
	Gain4V096             // ±4.096 V
	Gain2V048             // ±2.048 V
	Gain1V024             // ±1.024 V
	Gain0V512             // ±0.512 V
	Gain0V256             // ±0.256 V
)

// Input selects the input multiplexer pairing.
type Input uint16

const (
	Diff0_1 Input = iota // AIN0 − AIN1
	Diff0_3
	Diff1_3
	Diff2_3
	Single0
	Single1
	Single2
	Single3
)

// DataRate selects the conversion rate in samples per second.
type DataRate uint16

const (
	DR8SPS DataRate = iota
	DR16SPS
	DR32SPS
	DR64SPS
	DR128SPS
	DR250SPS
	DR475SPS
	DR860SPS
)

// ConversionDelay returns a safe wait (rounded up) for one conversion at
// this data rate.
func (dr DataRate) ConversionDelay() time.Duration {
	switch dr {
	case DR8SPS:
		return 125 * time.Millisecond
	case DR16SPS:
		return 63 * time.Millisecond
	case DR32SPS:
		return 32 * time.Millisecond
	case DR64SPS:
		return 16 * time.Millisecond
	case DR128SPS:
		return 8 * time.Millisecond
	case DR250SPS:
		return 4 * time.Millisecond
	case DR475SPS:
		return 3 * time.Millisecond
	case DR860SPS:
		return 2 * time.Millisecond
	}
	return 125 * time.Millisecond
}

// Mode selects continuous or single-shot conversion.
type Mode uint16

const (
	Continuous Mode = iota
	SingleShot
)

// BranchConfig is the per-branch ADC setup written before every read.
type BranchConfig struct {
	Input Input
	Gain  Gain
	Rate  DataRate
	Mode  Mode
}

// Word packs the branch configuration into the 16-bit config register
// value, starting a single conversion.
func (c BranchConfig) Word() uint16 {
	var w uint16 = osBit
	w |= uint16(c.Input) << 12
	w |= uint16(c.Gain) << 9
	w |= uint16(c.Mode) << 8
	w |= uint16(c.Rate) << 5
	w |= compDisable
	return w
}

// Bus is the I2C transaction primitive the driver needs. periph.io's
// i2c.Bus satisfies it.
type Bus interface {
	Tx(addr uint16, w, r []byte) error
}

// Dev is one ADS1115 on the bus. It remembers the last configuration
// written so a read against a stale branch config is rejected instead of
// silently returning the wrong branch's sample.
type Dev struct {
	bus    Bus
	addr   uint16
	logger golog.Logger

	last       BranchConfig
	configured bool
}

func New(bus Bus, addr uint16, logger golog.Logger) *Dev {
	return &Dev{bus: bus, addr: addr, logger: logger}
}

// Configure writes the config register for the given branch, starting a
// conversion in single-shot mode.
func (d *Dev) Configure(cfg BranchConfig) error {
	w := cfg.Word()
	if err := d.bus.Tx(d.addr, []byte{regConfig, byte(w >> 8), byte(w)}, nil); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	d.last = cfg
	d.configured = true
	return nil
}

// ReadRaw polls for conversion completion and returns the signed 16-bit
// result. cfg must match the configuration most recently written with
// Configure.
func (d *Dev) ReadRaw(cfg BranchConfig) (int16, error) {
	if !d.configured || cfg != d.last {
		return 0, fmt.Errorf("%w: expected %+v, got %+v", ErrConfigMismatch, d.last, cfg)
	}

	ready := false
	for retry := 0; retry < conversionRetries; retry++ {
		done, err := d.conversionDone()
		if err != nil {
			return 0, err
		}
		if done {
			ready = true
			break
		}
		time.Sleep(cfg.Rate.ConversionDelay())
	}
	if !ready {
		d.logger.Warnf("conversion not ready after %d polls at %v", conversionRetries, cfg.Rate.ConversionDelay())
		return 0, ErrConversionTimeout
	}

	var buf [2]byte
	if err := d.bus.Tx(d.addr, []byte{regConversion}, buf[:]); err != nil {
		return 0, fmt.Errorf("read conversion: %w", err)
	}
	return int16(buf[0])<<8 | int16(buf[1]), nil
}

func (d *Dev) conversionDone() (bool, error) {
	var buf [2]byte
	if err := d.bus.Tx(d.addr, []byte{regConfig}, buf[:]); err != nil {
		return false, fmt.Errorf("read status: %w", err)
	}
	return buf[0]&0x80 != 0, nil
}

// LSBMillivolts returns the voltage of one raw count at the given gain.
func LSBMillivolts(g Gain) float64 {
	switch g {
	case Gain6V144:
		return 6144 / fullScaleCounts
	case Gain4V096:
		return 4096 / fullScaleCounts
	case Gain2V048:
		return 2048 / fullScaleCounts
	case Gain1V024:
		return 1024 / fullScaleCounts
	case Gain0V512:
		return 512 / fullScaleCounts
	case Gain0V256:
		return 256 / fullScaleCounts
	}
	return 6144 / fullScaleCounts
}

// PickGain returns the smallest full-scale range that still measures the
// given voltage with a 5% headroom against saturation.
func PickGain(mv float64) Gain {
	const clippingPercent = 95

	clipped := math.Abs(mv) * clippingPercent / 100
	switch {
	case clipped <= 256:
		return Gain0V256
	case clipped <= 512:
		return Gain0V512
	case clipped <= 1024:
		return Gain1V024
	case clipped <= 2048:
		return Gain2V048
	case clipped <= 4096:
		return Gain4V096
	}
	return Gain6V144
}
