package main

import (
	"testing"

	"github.com/edaniels/golog"

	"github.com/ericogr/muxdaq/pkg/adc"
	"github.com/ericogr/muxdaq/pkg/config"
	"github.com/ericogr/muxdaq/pkg/driver/ads1115"
	"github.com/ericogr/muxdaq/pkg/mux"
	"github.com/ericogr/muxdaq/pkg/sensor"
)

type nopDriver struct{}

func (nopDriver) Init() error                  { return nil }
func (nopDriver) EnableChannel(ch uint8) error { return nil }
func (nopDriver) DisableAll() error            { return nil }
func (nopDriver) Reset() error                 { return nil }

func TestDataRateFromSPS(t *testing.T) {
	cases := []struct {
		sps  int
		want ads1115.DataRate
	}{
		{8, ads1115.DR8SPS},
		{128, ads1115.DR128SPS},
		{860, ads1115.DR860SPS},
		{0, ads1115.DR128SPS},
		{100, ads1115.DR128SPS},
	}
	for _, c := range cases {
		if got := dataRateFromSPS(c.sps); got != c.want {
			t.Fatalf("dataRateFromSPS(%d) = %v; want %v", c.sps, got, c.want)
		}
	}
}

func TestPolicyFromName(t *testing.T) {
	if got := policyFromName(config.PolicyContinueOnError); got != mux.ContinueOnError {
		t.Fatalf("continue_on_error mapped to %v", got)
	}
	if got := policyFromName(config.PolicyFailFast); got != mux.FailFast {
		t.Fatalf("fail_fast mapped to %v", got)
	}
	if got := policyFromName("bogus"); got != mux.FailFast {
		t.Fatalf("unknown policy mapped to %v; want fail-fast", got)
	}
}

func TestInitOutputsConsole(t *testing.T) {
	cfg := config.Config{Outputs: []config.OutputConfig{{Type: "console", IntervalMs: 500}}}
	entries, err := initOutputs(cfg)
	if err != nil {
		t.Fatalf("initOutputs: %v", err)
	}
	if len(entries) != 1 || entries[0].IntervalMs != 500 {
		t.Fatalf("entries = %+v; want one console entry at 500ms", entries)
	}

	cfg.Outputs[0].Type = "teletype"
	if _, err := initOutputs(cfg); err == nil {
		t.Fatalf("unknown output type accepted")
	}
}

func TestBuildSensorsPopulatesChannels(t *testing.T) {
	logger := golog.NewTestLogger(t)
	m := mux.New(nopDriver{}, logger)
	if err := m.Init(); err != nil {
		t.Fatalf("mux init: %v", err)
	}
	ctrl := adc.New(nil, logger)
	reports := make([]sensor.Report, 8)

	cfg := config.DefaultConfig()
	cfg.Channels = []config.ChannelConfig{
		{Channel: 0, Sensors: []config.SensorConfig{
			{Index: 0, Type: config.SensorTemperature, Gain: 1, Enabled: true, RefInput: 4, SigInput: 5},
			{Index: 1, Type: config.SensorPressure, Gain: 1, Enabled: true, SigInput: 6},
			{Index: 2, Type: config.SensorTemperature, Gain: 1, Enabled: false},
		}},
	}

	if err := buildSensors(cfg, m, ctrl, nil, reports, logger); err != nil {
		t.Fatalf("buildSensors: %v", err)
	}

	ch, _ := m.Channel(0)
	if ch.SensorCount() != 2 {
		t.Fatalf("sensor count = %d; want 2 (disabled sensor skipped)", ch.SensorCount())
	}
	if ch.Sensor(0).Type() != sensor.TypeTemperature || ch.Sensor(1).Type() != sensor.TypePressure {
		t.Fatalf("sensor types = %v, %v", ch.Sensor(0).Type(), ch.Sensor(1).Type())
	}
}

func TestBuildSensorsRejectsUnknownType(t *testing.T) {
	logger := golog.NewTestLogger(t)
	m := mux.New(nopDriver{}, logger)
	if err := m.Init(); err != nil {
		t.Fatalf("mux init: %v", err)
	}
	cfg := config.DefaultConfig()
	cfg.Channels = []config.ChannelConfig{
		{Channel: 1, Sensors: []config.SensorConfig{{Index: 0, Type: "humidity", Enabled: true}}},
	}
	if err := buildSensors(cfg, m, adc.New(nil, logger), nil, make([]sensor.Report, 4), logger); err == nil {
		t.Fatalf("unknown sensor type accepted")
	}
}
