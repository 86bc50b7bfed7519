// Package mqttbus provides MQTT connectivity for the gateway.
//
// This package wraps the Eclipse Paho MQTT client with connection
// management, automatic reconnection, and subscription restoration, and
// builds the gateway's outward event bus on top of it: button, rotation and
// availability notifications are published as JSON messages under the
// gateway's topic namespace, and inbound command topics are routed to
// attribute writes.
//
// # Topic Structure
//
//	terncy/{gateway_id}/status          - online/offline status (retained, LWT)
//	terncy/{gateway_id}/events/{event}  - bus notifications (terncy_pressed, ...)
//	terncy/{gateway_id}/command/{eid}   - inbound attribute writes
//
// # Architecture
//
//	┌─────────┐   Fire()    ┌─────┐   publish    ┌────────┐
//	│ Gateway ├────────────►│ Bus ├─────────────►│ Broker │
//	└────▲────┘             └─────┘              └───┬────┘
//	     │    SetAttribute()  ┌───────────────┐      │
//	     └────────────────────┤ CommandRouter │◄─────┘
//	                          └───────────────┘  subscribe
//
// # Thread Safety
//
// All exported types are safe for concurrent use from multiple goroutines.
package mqttbus
