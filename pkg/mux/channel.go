package mux

import (
	"errors"
	"fmt"

	"github.com/edaniels/golog"

	"github.com/ericogr/muxdaq/pkg/sensor"
)

// MaxSensors is the fixed per-channel sensor capacity.
const MaxSensors = 4

var (
	ErrChannelFull = errors.New("channel full")
	ErrNilSensor   = errors.New("nil sensor")
)

// Policy selects how batch iteration treats a failing sensor.
type Policy int

const (
	// FailFast aborts the remaining sensors in the channel on the first
	// error, returning that sensor's error.
	FailFast Policy = iota
	// ContinueOnError updates every sensor and returns the joined errors.
	ContinueOnError
)

// Channel owns the sensors behind one multiplexer branch. It holds a
// non-owning reference back to its Multiplexer for selection.
type Channel struct {
	mux     *Multiplexer
	index   uint8
	sensors [MaxSensors]sensor.Sensor
	count   int
	policy  Policy
	logger  golog.Logger
}

// Index returns the hardware channel index.
func (c *Channel) Index() uint8 { return c.index }

// SensorCount returns the number of registered sensors.
func (c *Channel) SensorCount() int { return c.count }

// Sensor returns the sensor at slot i, or nil when out of range.
func (c *Channel) Sensor(i int) sensor.Sensor {
	if i < 0 || i >= c.count {
		return nil
	}
	return c.sensors[i]
}

// SetPolicy selects the batch iteration policy for this channel.
func (c *Channel) SetPolicy(p Policy) { c.policy = p }

// AddSensor registers a sensor on this channel. The channel is the
// sensor's exclusive owner from this point on.
func (c *Channel) AddSensor(s sensor.Sensor) error {
	if s == nil {
		return ErrNilSensor
	}
	if c.count >= MaxSensors {
		return fmt.Errorf("channel %d: %w", c.index, ErrChannelFull)
	}
	c.sensors[c.count] = s
	c.count++
	return nil
}

// Enable routes this channel onto the shared bus.
func (c *Channel) Enable() error {
	if c.mux == nil {
		return ErrNotBound
	}
	return c.mux.Select(c.index)
}

// InitializeAll initializes the channel's sensors in slot order, honoring
// the channel's iteration policy.
func (c *Channel) InitializeAll() error {
	return c.each("initialize", sensor.Sensor.Initialize)
}

// UpdateAll enables the channel, then updates its sensors in slot order,
// honoring the channel's iteration policy.
func (c *Channel) UpdateAll() error {
	if err := c.Enable(); err != nil {
		return fmt.Errorf("channel %d: %w", c.index, err)
	}
	return c.each("update", sensor.Sensor.Update)
}

func (c *Channel) each(op string, fn func(sensor.Sensor) error) error {
	var errs []error
	for i := 0; i < c.count; i++ {
		s := c.sensors[i]
		if s == nil {
			continue
		}
		if err := fn(s); err != nil {
			c.logger.Errorf("channel %d slot %d: %s failed: %v", c.index, i, op, err)
			if c.policy == FailFast {
				return err
			}
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
