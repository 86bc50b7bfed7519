package gateway

// Connection kinds used in host registry linkage metadata.
const (
	// ConnectionNetworkMAC links a device entry to a network MAC address.
	ConnectionNetworkMAC = "mac"

	// ConnectionZigbee links a device entry to a zigbee-style entity id.
	ConnectionZigbee = "zigbee"
)

// Connection is a (kind, identifier) linkage pair for a host device entry.
type Connection struct {
	Kind string
	ID   string
}

// DeviceInfo carries the metadata for a host registry device upsert.
// Pointer members are optional; nil leaves the registry value untouched.
type DeviceInfo struct {
	Connections   []Connection
	Identifier    string
	Manufacturer  string
	Model         string
	Name          string
	SWVersion     *string
	HWVersion     *string
	SuggestedArea *string

	// ViaDevice is the identifier of the parent device entry, or empty for
	// a top-level device.
	ViaDevice string
}

// DeviceEntry is the host registry's record of a device.
type DeviceEntry struct {
	ID   string
	Name string
}

// HostRegistry is the host's persistent device/entity registry. The gateway
// never implements storage itself; it issues idempotent upserts and removals
// keyed by hub-assigned identifiers.
type HostRegistry interface {
	// GetOrCreateDevice upserts a device entry keyed by info.Identifier.
	GetOrCreateDevice(info DeviceInfo) (*DeviceEntry, error)

	// DeviceByIdentifier looks up a device entry by hub identifier.
	DeviceByIdentifier(identifier string) (*DeviceEntry, bool)

	// RemoveDevice removes a device entry by its registry id.
	RemoveDevice(entryID string)

	// RemoveEntity removes a presentation entity by its unique id.
	RemoveEntity(uniqueID string)
}

// EventBus is the host's event bus. Fire publishes a named event with a
// payload to any host-level consumers.
type EventBus interface {
	Fire(event string, payload map[string]any)
}

// Platform identifies the host presentation platform an entity description
// maps to.
type Platform string

// Presentation platforms produced by the profile table.
const (
	PlatformSwitch       Platform = "switch"
	PlatformLight        Platform = "light"
	PlatformCover        Platform = "cover"
	PlatformBinarySensor Platform = "binary_sensor"
	PlatformSensor       Platform = "sensor"
	PlatformEvent        Platform = "event"
)

// EntityDescription describes one presentation entity a hub service can be
// exposed as. A service may match several descriptions (e.g. a sensor plus
// its battery level).
type EntityDescription struct {
	// Key distinguishes descriptions sharing an eid ("switch", "battery", …).
	Key string

	// Platform is the host platform the presentation belongs to.
	Platform Platform

	// Name is the display name, empty to inherit the service name.
	Name string

	// DeviceClass refines the platform ("motion", "door", "temperature", …).
	DeviceClass string

	// Icon is an optional display icon hint.
	Icon string

	// UniqueIDPrefix namespaces the unique id. Scene ids are not unique
	// across gateways, so scene descriptions carry the gateway id here.
	UniqueIDPrefix string

	// RequiredAttrs must all appear in the service's reported attribute
	// names for the description to apply. Empty matches any service.
	RequiredAttrs []string
}

// UniqueID returns the host-unique identifier of an entity created from this
// description for the given eid.
func (d EntityDescription) UniqueID(eid string) string {
	if d.UniqueIDPrefix != "" {
		return d.UniqueIDPrefix + "-" + eid + "-" + d.Key
	}
	return eid + "-" + d.Key
}

// Presentation is a host-side presentation entity attached to a local Entity.
// The gateway pushes availability and attribute state into it; the host owns
// rendering and persistence.
type Presentation interface {
	SetAvailable(available bool)
	UpdateState(attrs []AttrValue)
	SetName(name string)
}

// DeviceLink ties a presentation entity to its host device entry.
type DeviceLink struct {
	Identifier string
}

// EntityAdder creates presentation entities and attaches them to the host's
// add-entity path.
type EntityAdder interface {
	AddEntity(eid string, desc EntityDescription, initial []AttrValue, link DeviceLink) (Presentation, error)
}

// HubService is a hub advertisement resolved on the local network.
type HubService struct {
	DeviceID string
	Host     string
	Port     int
}

// DiscoverySource delivers hub found/stopped notifications keyed by hub
// device id. Subscribe returns a cancel function tied to the gateway's
// lifecycle; Lookup returns the latest known advertisement, if any.
type DiscoverySource interface {
	Subscribe(deviceID string, onFound func(HubService), onStopped func(HubService)) (cancel func())
	Lookup(deviceID string) (HubService, bool)
}
