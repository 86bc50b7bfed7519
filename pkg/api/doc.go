// Package api provides the HTTP observation surface for the Terncy gateway.
//
// It exposes read-only JSON endpoints for gateway status, devices, entities
// and scenes, a write endpoint that forwards attribute writes through the
// gateway command path, and a WebSocket stream that relays per-entity state
// updates and action triggers to subscribed clients.
//
// The server follows the same lifecycle pattern as the other components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package api
