// Package adc implements the auto-ranging read sequence on top of the
// ADS1115 driver: sample the reference branch, sample the signal branch,
// and re-sample the signal branch once at a better PGA gain when the
// measured voltage says the current range is wrong.
package adc

import (
	"fmt"

	"github.com/edaniels/golog"

	"github.com/ericogr/muxdaq/pkg/driver/ads1115"
)

// Device is the slice of the ADS1115 driver the controller drives. Tests
// substitute a scripted fake.
type Device interface {
	Configure(cfg ads1115.BranchConfig) error
	ReadRaw(cfg ads1115.BranchConfig) (int16, error)
}

// Controller owns one ADC and runs branch read sequences against it. It
// performs no retries: any bus error aborts the sequence with that step's
// error.
type Controller struct {
	dev    Device
	logger golog.Logger
}

func New(dev Device, logger golog.Logger) *Controller {
	return &Controller{dev: dev, logger: logger}
}

// ReadBranch configures and samples a single branch, returning the
// measured voltage in millivolts.
func (c *Controller) ReadBranch(cfg ads1115.BranchConfig) (float64, error) {
	if err := c.dev.Configure(cfg); err != nil {
		return 0, fmt.Errorf("configure branch: %w", err)
	}
	raw, err := c.dev.ReadRaw(cfg)
	if err != nil {
		return 0, fmt.Errorf("read branch: %w", err)
	}
	return float64(raw) * ads1115.LSBMillivolts(cfg.Gain), nil
}

// ReadBranches runs the full two-branch sequence: reference first, then
// signal. If the signal voltage recommends a different PGA gain than the
// one in sig, the gain is updated in place and the signal branch is read
// once more; there is no further iteration. The adjusted gain persists in
// sig for the next cycle.
func (c *Controller) ReadBranches(ref ads1115.BranchConfig, sig *ads1115.BranchConfig) (refMV, sigMV float64, err error) {
	refMV, err = c.ReadBranch(ref)
	if err != nil {
		return 0, 0, fmt.Errorf("reference branch: %w", err)
	}

	sigMV, err = c.ReadBranch(*sig)
	if err != nil {
		return 0, 0, fmt.Errorf("signal branch: %w", err)
	}

	if fine := ads1115.PickGain(sigMV); fine != sig.Gain {
		c.logger.Debugf("retuning signal gain %v -> %v at %.1f mV", sig.Gain, fine, sigMV)
		sig.Gain = fine
		sigMV, err = c.ReadBranch(*sig)
		if err != nil {
			return 0, 0, fmt.Errorf("signal branch retune: %w", err)
		}
	}

	return refMV, sigMV, nil
}
