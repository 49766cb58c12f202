// Package mux models the acquisition topology: one Multiplexer owning up
// to eight Channels, each Channel owning a fixed-capacity set of sensors.
// The tree is built once at bring-up and lives for the process lifetime.
package mux

import (
	"errors"
	"fmt"

	"github.com/edaniels/golog"

	"github.com/ericogr/muxdaq/pkg/driver/tca9548a"
)

var (
	ErrNotBound       = errors.New("no multiplexer bound")
	ErrInvalidChannel = errors.New("invalid channel index")
)

const noChannel = -1

// Driver is the mux chip contract the topology drives. *tca9548a.Dev
// satisfies it.
type Driver interface {
	Init() error
	EnableChannel(ch uint8) error
	DisableAll() error
	Reset() error
}

// Multiplexer routes one of its channels onto the shared bus. It tracks
// the active channel so reselecting the current one issues no bus traffic.
type Multiplexer struct {
	drv      Driver
	channels [tca9548a.NumChannels]*Channel
	current  int
	logger   golog.Logger
}

func New(drv Driver, logger golog.Logger) *Multiplexer {
	m := &Multiplexer{drv: drv, current: noChannel, logger: logger}
	for i := range m.channels {
		m.channels[i] = &Channel{mux: m, index: uint8(i), logger: logger}
	}
	return m
}

// Init initializes the chip driver and pulses the hardware reset so every
// downstream branch starts disconnected.
func (m *Multiplexer) Init() error {
	if m.drv == nil {
		return ErrNotBound
	}
	if err := m.drv.Init(); err != nil {
		return fmt.Errorf("mux init: %w", err)
	}
	if err := m.drv.Reset(); err != nil {
		return fmt.Errorf("mux reset: %w", err)
	}
	m.current = noChannel
	return nil
}

// Channel returns the channel at the given index.
func (m *Multiplexer) Channel(idx int) (*Channel, error) {
	if idx < 0 || idx >= len(m.channels) {
		return nil, fmt.Errorf("%w: %d", ErrInvalidChannel, idx)
	}
	return m.channels[idx], nil
}

// Channels returns all channels in index order.
func (m *Multiplexer) Channels() []*Channel {
	return m.channels[:]
}

// Select routes the given channel onto the bus, disconnecting the rest.
// Selecting the already-active channel is a no-op.
func (m *Multiplexer) Select(idx uint8) error {
	if m.drv == nil {
		return ErrNotBound
	}
	if int(idx) == m.current {
		return nil
	}
	if err := m.drv.DisableAll(); err != nil {
		return fmt.Errorf("disable channels: %w", err)
	}
	if err := m.drv.EnableChannel(idx); err != nil {
		return fmt.Errorf("enable channel %d: %w", idx, err)
	}
	m.current = int(idx)
	return nil
}

// DisableAll disconnects every channel.
func (m *Multiplexer) DisableAll() error {
	if m.drv == nil {
		return ErrNotBound
	}
	if err := m.drv.DisableAll(); err != nil {
		return err
	}
	m.current = noChannel
	return nil
}
