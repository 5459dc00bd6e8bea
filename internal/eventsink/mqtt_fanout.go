package eventsink

import (
	"encoding/json"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

// mqttTopic is where the optional fan-out publishes events, kept
// distinct from the EventSink's own append/query surface: this is
// telemetry, not the system of record. Grounded on the teacher's
// internal/mqtt/real.go publish shape.
const mqttTopic = "sprinkler/events"

// mqttFanout publishes a copy of every recorded event to an MQTT
// broker for LAN consumers (e.g. a live status dashboard), the same
// role the teacher's RealPublisher plays for boiler events.
type mqttFanout struct {
	client paho.Client
}

func newMQTTFanout(broker string) (*mqttFanout, error) {
	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID("sprinklerd").
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second)

	client := paho.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return nil, fmt.Errorf("eventsink: mqtt connect timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("eventsink: mqtt connect: %w", err)
	}
	return &mqttFanout{client: client}, nil
}

type wirePayload struct {
	Timestamp string `json:"timestamp"`
	Sequence  int    `json:"sequence"`
	Action    string `json:"action"`
	Zone      *int   `json:"zone,omitempty"`
	Program   string `json:"program,omitempty"`
}

func (m *mqttFanout) emit(r Record) error {
	payload, err := json.Marshal(wirePayload{
		Timestamp: r.Timestamp.UTC().Format(time.RFC3339),
		Sequence:  r.Sequence,
		Action:    string(r.Action),
		Zone:      r.Zone,
		Program:   r.Program,
	})
	if err != nil {
		return fmt.Errorf("eventsink: marshal mqtt payload: %w", err)
	}
	token := m.client.Publish(mqttTopic, 0, false, payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("eventsink: mqtt publish timeout")
	}
	return token.Error()
}

func (m *mqttFanout) close() error {
	m.client.Disconnect(1000)
	return nil
}
