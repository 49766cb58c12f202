// Package daq runs acquisition cycles over the multiplexer topology and
// owns the shared report array. The bus is a single exclusively-held
// resource: the manager's mutex is held for a whole channel sequence
// (select → configure → read), never per register access.
package daq

import (
	"errors"
	"fmt"
	"sync"

	"github.com/edaniels/golog"

	"github.com/ericogr/muxdaq/pkg/mux"
	"github.com/ericogr/muxdaq/pkg/sensor"
)

// Manager drives one multiplexer's channels and collects their reports.
type Manager struct {
	mu      sync.Mutex
	mux     *mux.Multiplexer
	reports []sensor.Report
	logger  golog.Logger
}

// New creates a manager with the given number of report slots.
func New(m *mux.Multiplexer, slots int, logger golog.Logger) *Manager {
	return &Manager{mux: m, reports: make([]sensor.Report, slots), logger: logger}
}

// Reports exposes the shared report array for sensor construction. Sensors
// write their slots during Update; consumers read through Snapshot.
func (mgr *Manager) Reports() []sensor.Report {
	return mgr.reports
}

// InitializeAll initializes every populated channel's sensors. The first
// failing channel aborts bring-up.
func (mgr *Manager) InitializeAll() error {
	mgr.mu.Lock()
	defer mgr.mu.Unlock()

	for _, ch := range mgr.mux.Channels() {
		if ch.SensorCount() == 0 {
			continue
		}
		if err := ch.InitializeAll(); err != nil {
			return fmt.Errorf("channel %d: %w", ch.Index(), err)
		}
	}
	return nil
}

// RunCycle updates every populated channel in index order. A failing
// channel does not stop the others; the joined errors are returned after
// the cycle completes.
func (mgr *Manager) RunCycle() error {
	mgr.mu.Lock()
	defer mgr.mu.Unlock()

	var errs []error
	for _, ch := range mgr.mux.Channels() {
		if ch.SensorCount() == 0 {
			continue
		}
		if err := ch.UpdateAll(); err != nil {
			mgr.logger.Errorf("cycle: channel %d: %v", ch.Index(), err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Snapshot returns a copy of the report array consistent with a completed
// cycle.
func (mgr *Manager) Snapshot() []sensor.Report {
	mgr.mu.Lock()
	defer mgr.mu.Unlock()

	out := make([]sensor.Report, len(mgr.reports))
	copy(out, mgr.reports)
	return out
}
