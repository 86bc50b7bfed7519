package api

import (
	"strings"

	"github.com/openhaus/terncy-gateway/pkg/gateway"
)

// WebSocket channel prefixes. Clients subscribe to "entity:<eid>" for state
// updates and "trigger:<eid>" for button and rotation events.
const (
	entityChannelPrefix  = "entity:"
	triggerChannelPrefix = "trigger:"
)

// ensureBridge lazily registers a gateway listener for a subscribed channel.
// A bridge is created once per channel and lives until the server closes;
// later subscribers share it through the hub's channel fan-out.
func (s *Server) ensureBridge(channel string) {
	s.bridgeMu.Lock()
	defer s.bridgeMu.Unlock()

	if _, ok := s.bridges[channel]; ok {
		return
	}

	var remove func()
	switch {
	case strings.HasPrefix(channel, entityChannelPrefix):
		eid := strings.TrimPrefix(channel, entityChannelPrefix)
		remove = s.gateway.AddListener(eid, func(attrs []gateway.AttrValue) {
			s.hub.Broadcast(channel, map[string]any{
				"eid":   eid,
				"attrs": attrs,
			})
		})
	case strings.HasPrefix(channel, triggerChannelPrefix):
		eid := strings.TrimPrefix(channel, triggerChannelPrefix)
		remove = s.gateway.AddTriggerListener(eid, func(event string, payload map[string]any) {
			s.hub.Broadcast(channel, map[string]any{
				"eid":     eid,
				"event":   event,
				"payload": payload,
			})
		})
	default:
		return
	}

	s.bridges[channel] = remove
	s.logger.Debug("gateway listener bridged", "channel", channel)
}

// removeBridges tears down all gateway listener bridges.
func (s *Server) removeBridges() {
	s.bridgeMu.Lock()
	defer s.bridgeMu.Unlock()

	for channel, remove := range s.bridges {
		remove()
		delete(s.bridges, channel)
	}
}
