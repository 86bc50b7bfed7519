package mqttbus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// commandTimeout bounds one inbound attribute write against the hub.
const commandTimeout = 10 * time.Second

// Commander is the attribute-write surface the command router drives.
// *gateway.Gateway satisfies it.
type Commander interface {
	SetAttribute(ctx context.Context, eid, attr string, value any, method int) error
}

// subscriber is the subscription surface CommandRouter needs from the MQTT
// client.
type subscriber interface {
	Subscribe(topic string, qos byte, handler MessageHandler) error
}

// commandPayload is the JSON shape of one inbound attribute write.
type commandPayload struct {
	Attr   string `json:"attr"`
	Value  any    `json:"value"`
	Method int    `json:"method"`
}

// CommandRouter bridges inbound command topics to gateway attribute writes:
// a publish to terncy/{gateway_id}/command/{eid} with {"attr","value","method"}
// becomes a SetAttribute call. Write failures are returned to the MQTT
// handler wrapper, which logs them; there is no reply topic.
type CommandRouter struct {
	commander Commander
	topics    Topics
}

// NewCommandRouter creates a router for one gateway's command namespace.
func NewCommandRouter(commander Commander, gatewayID string) *CommandRouter {
	return &CommandRouter{
		commander: commander,
		topics:    Topics{GatewayID: gatewayID},
	}
}

// Attach subscribes the router to the gateway's command topics.
func (r *CommandRouter) Attach(sub subscriber, qos byte) error {
	return sub.Subscribe(r.topics.CommandPattern(), qos, r.handle)
}

// handle decodes one command message and issues the attribute write.
func (r *CommandRouter) handle(topic string, payload []byte) error {
	eid, ok := r.topics.CommandEID(topic)
	if !ok {
		return fmt.Errorf("%w: unexpected topic %q", ErrInvalidCommand, topic)
	}

	var cmd commandPayload
	if err := json.Unmarshal(payload, &cmd); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidCommand, err)
	}
	if cmd.Attr == "" {
		return fmt.Errorf("%w: attr is required", ErrInvalidCommand)
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	return r.commander.SetAttribute(ctx, eid, cmd.Attr, cmd.Value, cmd.Method)
}
