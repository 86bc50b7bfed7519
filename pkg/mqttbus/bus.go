package mqttbus

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// publisher is the publishing surface Bus needs from the MQTT client.
type publisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// Envelope is the JSON shape of one bus notification.
type Envelope struct {
	MessageID string         `json:"message_id"`
	Event     string         `json:"event"`
	Timestamp time.Time      `json:"timestamp"`
	Data      map[string]any `json:"data,omitempty"`
}

// Bus publishes gateway notifications (button presses, rotations) to the
// broker. It satisfies the gateway's event bus interface, so it can be
// handed directly to gateway.Options.Bus.
//
// Fire never blocks the gateway's event handling on broker failures: publish
// errors are logged and dropped, since bus notifications are advisory.
type Bus struct {
	pub    publisher
	topics Topics
	qos    byte
	logger Logger

	// now is overridable in tests.
	now func() time.Time
}

// NewBus creates a bus publishing into the given gateway's topic namespace.
func NewBus(pub publisher, gatewayID string, qos byte) *Bus {
	return &Bus{
		pub:    pub,
		topics: Topics{GatewayID: gatewayID},
		qos:    qos,
		now:    time.Now,
	}
}

// SetLogger sets a logger for publish failures.
func (b *Bus) SetLogger(logger Logger) {
	b.logger = logger
}

// Fire publishes one named event with its payload. Each message carries a
// fresh message id so duplicate QoS 1 deliveries can be spotted downstream.
func (b *Bus) Fire(event string, payload map[string]any) {
	env := Envelope{
		MessageID: uuid.NewString(),
		Event:     event,
		Timestamp: b.now().UTC(),
		Data:      payload,
	}

	data, err := json.Marshal(env)
	if err != nil {
		if b.logger != nil {
			b.logger.Error("bus envelope marshal failed", "event", event, "error", err)
		}
		return
	}

	if err := b.pub.Publish(b.topics.Event(event), data, b.qos, false); err != nil {
		if b.logger != nil {
			b.logger.Warn("bus publish failed", "event", event, "error", err)
		}
	}
}
