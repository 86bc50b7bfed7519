// Package gateway bridges a Terncy smart-home hub to a local device and
// entity model.
//
// The gateway keeps local state synchronised with hub-originated events and
// pushes local commands back to the hub. It owns the connection lifecycle,
// the event dispatch and reconciliation logic that turns the hub's untyped
// event stream into typed local entity mutations, and the discovery-and-merge
// algorithm that reconciles hub-reported topology with a host registry.
//
// # Architecture
//
//	┌─────────────┐  session events  ┌─────────────────┐  mutations   ┌──────────────┐
//	│ Terncy hub  │◄────────────────►│     Gateway     │─────────────►│ Host registry│
//	│ (session)   │  commands        │   (this pkg)    │  bus events  │ + listeners  │
//	└─────────────┘                  └─────────────────┘              └──────────────┘
//
// # Key Responsibilities
//
//   - Supervise the connect → connected → disconnected → reconnect loop
//   - Classify inbound hub messages and dispatch to reconciliation handlers
//   - Merge hub-reported rooms, devices, device groups and scenes into local
//     Device/Entity records (idempotent create-or-update, keyed by hub ids)
//   - Fan attribute changes out to registered per-entity listeners
//   - Write attribute commands through the session with optimistic local
//     notification
//
// The low-level wire client, the host's persistent registry, and presentation
// entity objects are external collaborators consumed through the
// SessionClient, HostRegistry, EntityAdder, EventBus and DiscoverySource
// interfaces declared here.
//
// # Event Model
//
// The session delivers one ordered stream of events (Connected, Disconnected,
// EventMessage) to a single handler; handlers never run concurrently with
// each other. Long-running work — the initial connect, the delayed reconnect,
// the full topology refresh — runs as tracked background tasks whose failures
// surface only as later session events or log entries. Reconciliation is
// idempotent under duplicate or repeated messages: create-or-update, never
// create-or-fail.
//
// # Thread Safety
//
// All exported methods are safe for concurrent use from multiple goroutines.
package gateway
