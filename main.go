package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/edaniels/golog"
	"github.com/goburrow/modbus"
	"github.com/joho/godotenv"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"github.com/ericogr/muxdaq/pkg/adc"
	"github.com/ericogr/muxdaq/pkg/config"
	"github.com/ericogr/muxdaq/pkg/convert"
	"github.com/ericogr/muxdaq/pkg/daq"
	"github.com/ericogr/muxdaq/pkg/driver/ads1115"
	"github.com/ericogr/muxdaq/pkg/driver/tca9548a"
	"github.com/ericogr/muxdaq/pkg/mux"
	"github.com/ericogr/muxdaq/pkg/output"
	"github.com/ericogr/muxdaq/pkg/output/console"
	mqttout "github.com/ericogr/muxdaq/pkg/output/mqtt"
	"github.com/ericogr/muxdaq/pkg/sensor"
)

type outputEntry struct {
	Out        output.Output
	IntervalMs int
}

func main() {
	_ = godotenv.Load()
	logger := golog.NewDevelopmentLogger("muxdaq")

	cfg, err := config.LoadFromFlags()
	if err != nil {
		logger.Fatalf("config: %v", err)
	}

	if _, err := host.Init(); err != nil {
		logger.Fatalf("host init: %v", err)
	}

	bus, err := i2creg.Open(cfg.I2CBus)
	if err != nil {
		logger.Fatalf("open i2c bus %q: %v", cfg.I2CBus, err)
	}
	defer bus.Close()

	resetPin := gpioreg.ByName(cfg.MuxResetPin)
	if resetPin == nil {
		logger.Fatalf("gpio %q not found", cfg.MuxResetPin)
	}

	muxDev := tca9548a.New(bus, uint16(cfg.MuxAddress), resetPin, logger)
	m := mux.New(muxDev, logger)
	if err := m.Init(); err != nil {
		logger.Fatalf("multiplexer: %v", err)
	}

	adsDev := ads1115.New(bus, uint16(cfg.ADCAddress), logger)
	ctrl := adc.New(adsDev, logger)
	mgr := daq.New(m, cfg.ReportSlots, logger)

	var meter sensor.RegisterReader
	if cfg.Modbus != nil {
		handler := modbus.NewRTUClientHandler(cfg.Modbus.Port)
		handler.BaudRate = cfg.Modbus.BaudRate
		handler.DataBits = 8
		handler.Parity = "N"
		handler.StopBits = 1
		handler.SlaveId = cfg.Modbus.SlaveID
		handler.Timeout = time.Duration(cfg.Modbus.TimeoutMs) * time.Millisecond
		if err := handler.Connect(); err != nil {
			logger.Fatalf("modbus connect %s: %v", cfg.Modbus.Port, err)
		}
		defer handler.Close()
		meter = modbus.NewClient(handler)
	}

	if err := buildSensors(cfg, m, ctrl, meter, mgr.Reports(), logger); err != nil {
		logger.Fatalf("topology: %v", err)
	}
	if err := mgr.InitializeAll(); err != nil {
		logger.Fatalf("initialize sensors: %v", err)
	}

	entries, err := initOutputs(cfg)
	if err != nil {
		logger.Fatalf("outputs: %v", err)
	}
	defer func() {
		for _, e := range entries {
			_ = e.Out.Close()
		}
	}()

	logger.Infow("acquisition started",
		"bus", cfg.I2CBus, "mux", fmt.Sprintf("%#02x", cfg.MuxAddress),
		"slots", cfg.ReportSlots, "interval_ms", cfg.IntervalMs)
	run(mgr, entries, time.Duration(cfg.IntervalMs)*time.Millisecond, logger)
}

// run drives acquisition cycles until SIGINT/SIGTERM, publishing to each
// output at its own interval.
func run(mgr *daq.Manager, entries []outputEntry, interval time.Duration, logger golog.Logger) {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	lastPublish := make([]time.Time, len(entries))
	for {
		select {
		case s := <-sig:
			logger.Infof("received %v, stopping", s)
			return
		case now := <-ticker.C:
			if err := mgr.RunCycle(); err != nil {
				logger.Errorf("acquisition cycle: %v", err)
			}
			reports := mgr.Snapshot()
			for i, e := range entries {
				if now.Sub(lastPublish[i]) < time.Duration(e.IntervalMs)*time.Millisecond {
					continue
				}
				if err := e.Out.Publish(reports); err != nil {
					logger.Errorf("publish: %v", err)
					continue
				}
				lastPublish[i] = now
			}
		}
	}
}

// buildSensors attaches the configured sensors to their multiplexer
// channels. Disabled sensors are skipped.
func buildSensors(cfg config.Config, m *mux.Multiplexer, ctrl *adc.Controller, meter sensor.RegisterReader, reports []sensor.Report, logger golog.Logger) error {
	policy := policyFromName(cfg.ErrorPolicy)
	divider := convert.Divider{SupplyMV: cfg.SupplyMV, RefNominalMV: cfg.RefNominalMV, FixedKOhm: cfg.FixedKOhm}

	for _, ch := range m.Channels() {
		ch.SetPolicy(policy)
	}

	for _, chCfg := range cfg.Channels {
		ch, err := m.Channel(chCfg.Channel)
		if err != nil {
			return err
		}
		for _, sc := range chCfg.Sensors {
			if !sc.Enabled {
				continue
			}
			rate := dataRateFromSPS(sc.SampleRate)
			if sc.SampleRate == 0 {
				rate = dataRateFromSPS(cfg.SampleRate)
			}

			var s sensor.Sensor
			switch sc.Type {
			case config.SensorTemperature:
				s = sensor.NewNTC(sensor.NTCConfig{
					Index:   sc.Index,
					Gain:    sc.Gain,
					Offset:  sc.Offset,
					Ref:     branchConfig(sc.RefInput, ads1115.Gain2V048, rate),
					Sig:     branchConfig(sc.SigInput, ads1115.Gain2V048, rate),
					Divider: divider,
				}, ch, ctrl, reports, logger)
			case config.SensorPressure:
				s = sensor.NewPressure(sensor.PressureConfig{
					Index:  sc.Index,
					Gain:   sc.Gain,
					Offset: sc.Offset,
					Sig:    branchConfig(sc.SigInput, ads1115.Gain4V096, rate),
					Range:  convert.DefaultPressureRange(),
				}, ch, ctrl, reports, logger)
			case config.SensorPower:
				s = sensor.NewPower(sensor.PowerConfig{
					Index:  sc.Index,
					Gain:   sc.Gain,
					Offset: sc.Offset,
				}, meter, reports, logger)
			default:
				return fmt.Errorf("sensor %d: unknown type %q", sc.Index, sc.Type)
			}
			if err := ch.AddSensor(s); err != nil {
				return fmt.Errorf("channel %d: %w", chCfg.Channel, err)
			}
		}
	}
	return nil
}

func initOutputs(cfg config.Config) ([]outputEntry, error) {
	entries := make([]outputEntry, 0, len(cfg.Outputs))
	for _, oc := range cfg.Outputs {
		switch oc.Type {
		case "console":
			entries = append(entries, outputEntry{Out: console.NewConsole(), IntervalMs: oc.IntervalMs})
		case "mqtt":
			mc := config.MQTTConfig{}
			if oc.MQTT != nil {
				mc = *oc.MQTT
			}
			out, err := mqttout.NewMQTT(mc)
			if err != nil {
				return nil, err
			}
			entries = append(entries, outputEntry{Out: out, IntervalMs: oc.IntervalMs})
		default:
			return nil, fmt.Errorf("unknown output type %q", oc.Type)
		}
	}
	return entries, nil
}

func branchConfig(input int, gain ads1115.Gain, rate ads1115.DataRate) ads1115.BranchConfig {
	return ads1115.BranchConfig{
		Input: ads1115.Input(input),
		Gain:  gain,
		Rate:  rate,
		Mode:  ads1115.SingleShot,
	}
}

func dataRateFromSPS(sps int) ads1115.DataRate {
	switch sps {
	case 8:
		return ads1115.DR8SPS
	case 16:
		return ads1115.DR16SPS
	case 32:
		return ads1115.DR32SPS
	case 64:
		return ads1115.DR64SPS
	case 128:
		return ads1115.DR128SPS
	case 250:
		return ads1115.DR250SPS
	case 475:
		return ads1115.DR475SPS
	case 860:
		return ads1115.DR860SPS
	}
	return ads1115.DR128SPS
}

func policyFromName(name string) mux.Policy {
	if name == config.PolicyContinueOnError {
		return mux.ContinueOnError
	}
	return mux.FailFast
}
