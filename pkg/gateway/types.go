package gateway

// Device is the local record of a hub device or device group, keyed by the
// hub-assigned device id (did). It owns a list of entity ids; the gateway's
// entities table owns the Entity records, avoiding ownership cycles.
type Device struct {
	DID           string
	Model         string
	Available     bool
	SWVersion     *string
	HWVersion     *string
	SuggestedArea *string
	EntityIDs     []string
}

// Entity is the local record of one hub service, keyed by the hub-assigned
// entity id (eid). The DID member is a weak back-reference to the owning
// device; lookups go through the gateway's devices table.
type Entity struct {
	EID       string
	DID       string
	Profile   int
	Name      string
	Available bool

	// Attributes holds the last seen value per attribute name.
	Attributes map[string]any

	// presentations are the host entities created for this service, one per
	// surviving entity description.
	presentations []Presentation
}

// setAvailable applies the availability flag to the record. Callers hold the
// gateway lock; presentation propagation happens at the call site, outside
// the lock, so a presentation may call back into the gateway.
func (e *Entity) setAvailable(available bool) {
	e.Available = available
}

// applyState merges attribute pairs into the record. Same locking contract
// as setAvailable: presentation propagation is the caller's, unlocked.
func (e *Entity) applyState(attrs []AttrValue) {
	if e.Attributes == nil {
		e.Attributes = make(map[string]any, len(attrs))
	}
	for _, av := range attrs {
		if av.Attr == "" {
			continue
		}
		e.Attributes[av.Attr] = av.Value
	}
}

// presentationList copies the attached presentations so their callbacks can
// run without the gateway lock held.
func (e *Entity) presentationList() []Presentation {
	out := make([]Presentation, len(e.presentations))
	copy(out, e.presentations)
	return out
}

// Scene is the local record of an exported hub scene.
type Scene struct {
	ID        string
	Name      string
	Available bool

	// uniqueID is the presentation's host-unique id, kept for removal.
	uniqueID     string
	presentation Presentation
}

// DeviceSnapshot is a deep copy of a Device for external observation.
type DeviceSnapshot struct {
	DID           string   `json:"did"`
	Model         string   `json:"model,omitempty"`
	Available     bool     `json:"available"`
	SWVersion     *string  `json:"sw_version,omitempty"`
	HWVersion     *string  `json:"hw_version,omitempty"`
	SuggestedArea *string  `json:"suggested_area,omitempty"`
	EntityIDs     []string `json:"entity_ids"`
}

// EntitySnapshot is a deep copy of an Entity for external observation.
type EntitySnapshot struct {
	EID        string         `json:"eid"`
	DID        string         `json:"did"`
	Profile    int            `json:"profile"`
	Name       string         `json:"name"`
	Available  bool           `json:"available"`
	Attributes map[string]any `json:"attributes"`
}

// SceneSnapshot is a copy of a Scene for external observation.
type SceneSnapshot struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Available bool   `json:"available"`
}

// Metrics contains gateway counters for the observation surface.
type Metrics struct {
	Connected  bool   `json:"connected"`
	Stopped    bool   `json:"stopped"`
	Devices    int    `json:"devices"`
	Entities   int    `json:"entities"`
	Scenes     int    `json:"scenes"`
	Reconnects uint64 `json:"reconnects"`
}

func (d *Device) snapshot() DeviceSnapshot {
	ids := make([]string, len(d.EntityIDs))
	copy(ids, d.EntityIDs)
	return DeviceSnapshot{
		DID:           d.DID,
		Model:         d.Model,
		Available:     d.Available,
		SWVersion:     copyString(d.SWVersion),
		HWVersion:     copyString(d.HWVersion),
		SuggestedArea: copyString(d.SuggestedArea),
		EntityIDs:     ids,
	}
}

func (e *Entity) snapshot() EntitySnapshot {
	attrs := make(map[string]any, len(e.Attributes))
	for k, v := range e.Attributes {
		attrs[k] = v
	}
	return EntitySnapshot{
		EID:        e.EID,
		DID:        e.DID,
		Profile:    e.Profile,
		Name:       e.Name,
		Available:  e.Available,
		Attributes: attrs,
	}
}

func (s *Scene) snapshot() SceneSnapshot {
	return SceneSnapshot{ID: s.ID, Name: s.Name, Available: s.Available}
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
