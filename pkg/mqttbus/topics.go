package mqttbus

import "strings"

// topicRoot is the namespace prefix for all gateway topics.
const topicRoot = "terncy"

// Topics builds MQTT topic strings for one gateway's namespace.
//
// All topics live under terncy/{gateway_id}/; the gateway id is the hub's
// own device id, so several gateways can share a broker without collisions.
type Topics struct {
	GatewayID string
}

// Status returns the retained status topic, also used as the LWT topic.
func (t Topics) Status() string {
	return topicRoot + "/" + t.GatewayID + "/status"
}

// Event returns the topic for one bus notification
// (e.g. "terncy/box-…/events/terncy_pressed").
func (t Topics) Event(event string) string {
	return topicRoot + "/" + t.GatewayID + "/events/" + event
}

// Command returns the inbound command topic for one entity.
func (t Topics) Command(eid string) string {
	return topicRoot + "/" + t.GatewayID + "/command/" + eid
}

// CommandPattern returns the wildcard subscription covering every entity's
// command topic.
func (t Topics) CommandPattern() string {
	return topicRoot + "/" + t.GatewayID + "/command/+"
}

// CommandEID extracts the entity id from a concrete command topic. The
// second return is false when the topic does not match this gateway's
// command namespace.
func (t Topics) CommandEID(topic string) (string, bool) {
	prefix := topicRoot + "/" + t.GatewayID + "/command/"
	if !strings.HasPrefix(topic, prefix) {
		return "", false
	}
	eid := strings.TrimPrefix(topic, prefix)
	if eid == "" || strings.Contains(eid, "/") {
		return "", false
	}
	return eid, true
}
