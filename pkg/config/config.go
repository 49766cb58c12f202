// Package config loads the acquisition topology and output settings from
// an optional JSON file with flag overrides.
package config

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Sensor type names accepted in configuration.
const (
	SensorTemperature = "temperature"
	SensorPressure    = "pressure"
	SensorPower       = "power"
)

// Error policy names accepted in configuration.
const (
	PolicyFailFast        = "fail_fast"
	PolicyContinueOnError = "continue_on_error"
)

type MQTTConfig struct {
	Server   string `json:"server"`
	Username string `json:"username"`
	Password string `json:"password"`
	ClientID string `json:"client_id"`
	Topic    string `json:"topic"`
}

type OutputConfig struct {
	Type       string      `json:"type"`
	IntervalMs int         `json:"interval_ms,omitempty"`
	MQTT       *MQTTConfig `json:"mqtt,omitempty"`
}

// SensorConfig describes one sensor slot: its kind, calibration and, for
// analog kinds, the ADC input pairing of each branch.
type SensorConfig struct {
	Index      uint16  `json:"index"`
	Type       string  `json:"type"`
	Gain       float64 `json:"gain"`
	Offset     float64 `json:"offset"`
	Enabled    bool    `json:"enabled"`
	RefInput   int     `json:"ref_input,omitempty"`
	SigInput   int     `json:"sig_input,omitempty"`
	SampleRate int     `json:"sample_rate,omitempty"`
}

// ChannelConfig groups the sensors behind one multiplexer channel.
type ChannelConfig struct {
	Channel int            `json:"channel"`
	Sensors []SensorConfig `json:"sensors"`
}

// ModbusConfig is the serial setup for the Modbus RTU power meter.
type ModbusConfig struct {
	Port      string `json:"port"`
	BaudRate  int    `json:"baud_rate"`
	SlaveID   byte   `json:"slave_id"`
	TimeoutMs int    `json:"timeout_ms"`
}

type Config struct {
	I2CBus       string          `json:"i2c_bus"`
	ADCAddress   int             `json:"adc_address"`
	MuxAddress   int             `json:"mux_address"`
	MuxResetPin  string          `json:"mux_reset_pin"`
	SupplyMV     float64         `json:"supply_mv"`
	RefNominalMV float64         `json:"ref_nominal_mv"`
	FixedKOhm    float64         `json:"fixed_kohm"`
	SampleRate   int             `json:"sample_rate"`
	ErrorPolicy  string          `json:"error_policy"`
	ReportSlots  int             `json:"report_slots"`
	Channels     []ChannelConfig `json:"channels"`
	Modbus       *ModbusConfig   `json:"modbus,omitempty"`
	Outputs      []OutputConfig  `json:"outputs"`
	IntervalMs   int             `json:"interval_ms"`
}

func DefaultConfig() Config {
	return Config{
		I2CBus:       "2",
		ADCAddress:   0x48,
		MuxAddress:   0x70,
		MuxResetPin:  "GPIO27",
		SupplyMV:     3300,
		RefNominalMV: 1650,
		FixedKOhm:    100,
		SampleRate:   8,
		ErrorPolicy:  PolicyFailFast,
		ReportSlots:  16,
		Outputs:      []OutputConfig{{Type: "console", IntervalMs: 1000}},
		IntervalMs:   1000,
	}
}

// LoadFromFlags loads configuration from a JSON file (optional) and flags.
// Flags override values present in the JSON file.
func LoadFromFlags() (Config, error) {
	cfgPath := flag.String("config", "", "Path to JSON config file")
	flagI2CBus := flag.String("i2c-bus", "", "I2C bus (e.g., '2' -> /dev/i2c-2)")
	flagADCAddr := flag.String("adc-address", "", "ADC I2C address (decimal or 0x hex)")
	flagMuxAddr := flag.String("mux-address", "", "Multiplexer I2C address (decimal or 0x hex)")
	flagMuxReset := flag.String("mux-reset-pin", "", "Multiplexer reset GPIO name")
	flagSampleRate := flag.Int("sample-rate", -1, "ADC sample rate (SPS)")
	flagPolicy := flag.String("error-policy", "", "fail_fast|continue_on_error")
	flagOutputs := flag.String("outputs", "", "Comma-separated outputs (console,mqtt)")
	flagInterval := flag.Int("interval-ms", -1, "Acquisition interval in ms")
	flagMQTTServer := flag.String("mqtt-server", "", "MQTT server (tcp://host:port)")
	flagMQTTUser := flag.String("mqtt-user", "", "MQTT username")
	flagMQTTPass := flag.String("mqtt-pass", "", "MQTT password")
	flagClientID := flag.String("mqtt-client-id", "", "MQTT client id")
	flagTopic := flag.String("mqtt-topic", "", "MQTT topic base")

	flag.Parse()

	cfg := DefaultConfig()

	if *cfgPath != "" {
		b, err := os.ReadFile(*cfgPath)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	}

	if *flagI2CBus != "" {
		cfg.I2CBus = *flagI2CBus
	}
	if *flagADCAddr != "" {
		v, err := parseIntOrHex(*flagADCAddr)
		if err != nil {
			return cfg, fmt.Errorf("adc-address: %w", err)
		}
		cfg.ADCAddress = v
	}
	if *flagMuxAddr != "" {
		v, err := parseIntOrHex(*flagMuxAddr)
		if err != nil {
			return cfg, fmt.Errorf("mux-address: %w", err)
		}
		cfg.MuxAddress = v
	}
	if *flagMuxReset != "" {
		cfg.MuxResetPin = *flagMuxReset
	}
	if *flagSampleRate != -1 {
		cfg.SampleRate = *flagSampleRate
	}
	if *flagPolicy != "" {
		cfg.ErrorPolicy = *flagPolicy
	}
	if *flagOutputs != "" {
		parts := parseCSV(*flagOutputs)
		outs := make([]OutputConfig, 0, len(parts))
		for _, p := range parts {
			outs = append(outs, OutputConfig{Type: p, IntervalMs: cfg.IntervalMs})
		}
		cfg.Outputs = outs
	}
	if *flagInterval != -1 {
		cfg.IntervalMs = *flagInterval
	}
	if *flagMQTTServer != "" || *flagMQTTUser != "" || *flagMQTTPass != "" || *flagClientID != "" || *flagTopic != "" {
		applyMQTTFlags(&cfg, *flagMQTTServer, *flagMQTTUser, *flagMQTTPass, *flagClientID, *flagTopic)
	}

	for i := range cfg.Outputs {
		if cfg.Outputs[i].IntervalMs == 0 {
			cfg.Outputs[i].IntervalMs = cfg.IntervalMs
		}
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks the cross-field constraints a merged configuration must
// satisfy before bring-up.
func (c Config) Validate() error {
	if c.SampleRate <= 0 {
		return errors.New("sample-rate must be > 0")
	}
	if c.MuxAddress < 0x70 || c.MuxAddress > 0x77 {
		return fmt.Errorf("mux-address %#02x outside 0x70..0x77", c.MuxAddress)
	}
	if c.ErrorPolicy != PolicyFailFast && c.ErrorPolicy != PolicyContinueOnError {
		return fmt.Errorf("unknown error-policy %q", c.ErrorPolicy)
	}
	if c.ReportSlots <= 0 {
		return errors.New("report-slots must be > 0")
	}
	for _, ch := range c.Channels {
		if ch.Channel < 0 || ch.Channel > 7 {
			return fmt.Errorf("channel %d outside 0..7", ch.Channel)
		}
		for _, s := range ch.Sensors {
			switch s.Type {
			case SensorTemperature, SensorPressure:
			case SensorPower:
				if c.Modbus == nil {
					return fmt.Errorf("sensor %d: power sensor requires modbus settings", s.Index)
				}
				if int(s.Index)+4 > c.ReportSlots {
					return fmt.Errorf("sensor %d: power block exceeds report slots", s.Index)
				}
			default:
				return fmt.Errorf("sensor %d: unknown type %q", s.Index, s.Type)
			}
			if int(s.Index) >= c.ReportSlots {
				return fmt.Errorf("sensor %d: index outside report slots", s.Index)
			}
		}
	}
	return nil
}

func applyMQTTFlags(cfg *Config, server, user, pass, clientID, topic string) {
	applied := false
	for i := range cfg.Outputs {
		if strings.ToLower(cfg.Outputs[i].Type) != "mqtt" {
			continue
		}
		if cfg.Outputs[i].MQTT == nil {
			cfg.Outputs[i].MQTT = &MQTTConfig{}
		}
		setMQTT(cfg.Outputs[i].MQTT, server, user, pass, clientID, topic)
		applied = true
	}
	if !applied {
		out := OutputConfig{Type: "mqtt", IntervalMs: cfg.IntervalMs, MQTT: &MQTTConfig{}}
		setMQTT(out.MQTT, server, user, pass, clientID, topic)
		cfg.Outputs = append(cfg.Outputs, out)
	}
}

func setMQTT(m *MQTTConfig, server, user, pass, clientID, topic string) {
	if server != "" {
		m.Server = server
	}
	if user != "" {
		m.Username = user
	}
	if pass != "" {
		m.Password = pass
	}
	if clientID != "" {
		m.ClientID = clientID
	}
	if topic != "" {
		m.Topic = topic
	}
}

func parseIntOrHex(s string) (int, error) {
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		v, err := strconv.ParseInt(s[2:], 16, 0)
		return int(v), err
	}
	v, err := strconv.Atoi(s)
	return v, err
}

func parseCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
