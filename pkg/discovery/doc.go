// Package discovery locates Terncy hubs on the local network via mDNS.
//
// Hubs advertise a DNS-SD service of type "_websocket._tcp" whose instance
// name is the hub device id ("box-…"). The Monitor browses for those records
// on a fixed interval, keeps the latest advertisement per hub, and notifies
// subscribers when a hub appears, moves, or withdraws its record (goodbye
// packets arrive as entries with TTL zero).
//
//	┌──────────┐  browse   ┌──────────┐  found/stopped  ┌──────────┐
//	│ zeroconf │──────────▶│ Monitor  │────────────────▶│ Gateway  │
//	└──────────┘           └──────────┘                 └──────────┘
//
// The Monitor satisfies the gateway's discovery source contract: Subscribe
// registers per-hub callbacks and returns a cancel function, Lookup returns
// the most recent advertisement seen for a hub.
package discovery
