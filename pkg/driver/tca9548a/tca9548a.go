// Package tca9548a drives the TI TCA9548A 8-channel I2C multiplexer. The
// device has a single control byte: one bit per downstream channel. A reset
// line is toggled through a GPIO pin with a settle delay on each edge.
package tca9548a

import (
	"errors"
	"fmt"
	"time"

	"github.com/edaniels/golog"
	"periph.io/x/conn/v3/gpio"
)

const (
	// AddrMin and AddrMax bound the device's strap-selectable addresses.
	AddrMin = 0x70
	AddrMax = 0x77

	// NumChannels is the number of downstream bus branches.
	NumChannels = 8

	disableAllChannels = 0x00

	resetSettle = 10 * time.Millisecond
)

var (
	ErrNotInitialized = errors.New("multiplexer not initialized")
	ErrInvalidAddress = errors.New("invalid multiplexer address")
	ErrInvalidChannel = errors.New("invalid multiplexer channel")
	ErrNilHandle      = errors.New("nil bus or reset handle")
)

// Bus is the I2C transaction primitive the driver needs. periph.io's
// i2c.Bus satisfies it.
type Bus interface {
	Tx(addr uint16, w, r []byte) error
}

// ResetPin is the output half of a GPIO pin. periph.io's gpio.PinIO
// satisfies it.
type ResetPin interface {
	Out(l gpio.Level) error
}

// Dev is one TCA9548A on the bus.
type Dev struct {
	bus    Bus
	addr   uint16
	reset  ResetPin
	logger golog.Logger

	initialized bool
}

func New(bus Bus, addr uint16, reset ResetPin, logger golog.Logger) *Dev {
	return &Dev{bus: bus, addr: addr, reset: reset, logger: logger}
}

// Init validates the configured address and handles. It is idempotent:
// repeated calls after a successful one are no-ops.
func (d *Dev) Init() error {
	if d.initialized {
		return nil
	}
	if d.addr < AddrMin || d.addr > AddrMax {
		return fmt.Errorf("%w: %#02x", ErrInvalidAddress, d.addr)
	}
	if d.bus == nil || d.reset == nil {
		return ErrNilHandle
	}
	d.initialized = true
	return nil
}

// EnableChannel routes the given downstream channel to the shared bus,
// disconnecting the others.
func (d *Dev) EnableChannel(ch uint8) error {
	if !d.initialized {
		return ErrNotInitialized
	}
	if ch >= NumChannels {
		return fmt.Errorf("%w: %d", ErrInvalidChannel, ch)
	}
	return d.writeControl(1 << ch)
}

// DisableAll disconnects every downstream channel.
func (d *Dev) DisableAll() error {
	if !d.initialized {
		return ErrNotInitialized
	}
	return d.writeControl(disableAllChannels)
}

// Reset pulses the hardware reset line low then high, blocking for the
// settle time on each edge.
func (d *Dev) Reset() error {
	if !d.initialized {
		return ErrNotInitialized
	}

	if err := d.reset.Out(gpio.Low); err != nil {
		return fmt.Errorf("reset low: %w", err)
	}
	time.Sleep(resetSettle)

	if err := d.reset.Out(gpio.High); err != nil {
		return fmt.Errorf("reset high: %w", err)
	}
	time.Sleep(resetSettle)

	d.logger.Debugf("multiplexer %#02x reset", d.addr)
	return nil
}

func (d *Dev) writeControl(value byte) error {
	if err := d.bus.Tx(d.addr, []byte{value}, nil); err != nil {
		return fmt.Errorf("write control: %w", err)
	}
	return nil
}
