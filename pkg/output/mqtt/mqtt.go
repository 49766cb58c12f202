package mqtt

import (
	"encoding/json"
	"fmt"
	"strings"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/ericogr/muxdaq/pkg/config"
	"github.com/ericogr/muxdaq/pkg/output"
	"github.com/ericogr/muxdaq/pkg/sensor"
)

const (
	DefaultServer   = "tcp://localhost:1883"
	DefaultClientID = "muxdaq-client"
	DefaultTopic    = "muxdaq/report"
)

type MQTTOutput struct {
	client mqtt.Client
	topic  string
}

func NewMQTT(cfg config.MQTTConfig) (output.Output, error) {
	server := cfg.Server
	if server == "" {
		server = DefaultServer
	}
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = DefaultClientID
	}
	opts := mqtt.NewClientOptions().AddBroker(server).SetClientID(clientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	client := mqtt.NewClient(opts)
	token := client.Connect()
	if token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect: %w", token.Error())
	}

	topic := cfg.Topic
	if topic == "" {
		topic = DefaultTopic
	}
	return &MQTTOutput{client: client, topic: topic}, nil
}

// Publish sends the report array. A topic containing a %d formatter gets
// one message per active slot; otherwise the whole array goes to the base
// topic as a JSON list.
func (m *MQTTOutput) Publish(reports []sensor.Report) error {
	if strings.Contains(m.topic, "%d") {
		for i, r := range reports {
			if !r.Active {
				continue
			}
			if err := m.publishJSON(fmt.Sprintf(m.topic, i), slotPayload(i, r)); err != nil {
				return err
			}
		}
		return nil
	}

	payload := make([]map[string]interface{}, 0, len(reports))
	for i, r := range reports {
		payload = append(payload, slotPayload(i, r))
	}
	return m.publishJSON(m.topic, payload)
}

func (m *MQTTOutput) Close() error {
	if m.client != nil {
		m.client.Disconnect(250)
	}
	return nil
}

func (m *MQTTOutput) publishJSON(topic string, payload interface{}) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	token := m.client.Publish(topic, 0, false, b)
	token.Wait()
	return token.Error()
}

func slotPayload(i int, r sensor.Report) map[string]interface{} {
	return map[string]interface{}{
		"slot":   i,
		"value":  r.Value,
		"active": r.Active,
		"type":   r.Type.String(),
	}
}
