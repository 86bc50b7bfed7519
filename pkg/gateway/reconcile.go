package gateway

import (
	"context"
	"strconv"
)

// refreshDevices fetches the hub's full topology and reconciles it into the
// local model: rooms, then devices, then device groups, then scenes. A room
// fetch failure degrades to locale defaults; any other fetch failure aborts
// the refresh and is retried naturally on the next Connected event.
func (g *Gateway) refreshDevices(ctx context.Context) error {
	g.log().Debug("fetching hub topology")

	defaults := defaultRoomsForLocale(g.locale)
	rooms, err := g.fetchEntityList(ctx, "room")
	if err != nil {
		g.log().Warn("room fetch failed, using locale defaults", "error", err)
	} else {
		table := make(map[string]string, len(rooms))
		for _, room := range rooms {
			name := room.Name
			if name == "" {
				name = defaults[room.ID]
			}
			table[room.ID] = name
		}
		g.mu.Lock()
		g.rooms = table
		g.mu.Unlock()
		g.log().Debug("room table updated", "locale", g.locale, "rooms", len(table))
	}

	devices, err := g.fetchEntityList(ctx, "device")
	if err != nil {
		return err
	}
	for _, dev := range devices {
		g.setupDevice(dev, dev.Services)
	}

	groups, err := g.fetchEntityList(ctx, "devicegroup")
	if err != nil {
		return err
	}
	if g.exportDeviceGroups {
		for _, group := range groups {
			g.setupDeviceGroup(group)
		}
	}

	scenes, err := g.fetchEntityList(ctx, "scene")
	if err != nil {
		return err
	}
	if g.exportScenes {
		// One shared host device holds every exported scene switch.
		if _, err := g.registry.GetOrCreateDevice(DeviceInfo{
			Identifier:   g.sceneContainerID(),
			Manufacturer: Manufacturer,
			Model:        sceneContainerModel,
			Name:         sceneContainerModel,
			ViaDevice:    g.UniqueID(),
		}); err != nil {
			return err
		}
		for _, scene := range scenes {
			g.setupScene(scene)
		}
	}

	return nil
}

// fetchEntityList runs a list-entities query. A transport error propagates;
// a response without a result payload is logged and yields an empty list.
func (g *Gateway) fetchEntityList(ctx context.Context, entityType string) ([]EntityData, error) {
	resp, err := g.session.Query(ctx, entityType, true)
	if err != nil {
		return nil, err
	}
	if resp.Rsp == nil {
		g.log().Warn("query returned no result", "entity_type", entityType)
		return nil, nil
	}
	return resp.Rsp.Entities, nil
}

// setupDeviceGroup runs device setup with the group as its own sole service.
func (g *Gateway) setupDeviceGroup(group EntityData) {
	g.setupDevice(group, []SvcData{group.asService()})
}

// setupDevice is the idempotent create-or-update merge for one hub device
// and its service list. New services with a recognised profile gain a host
// registry entry, a local entity record and presentation entities; whether
// newly created or pre-existing, availability and attribute state are
// applied unconditionally at the end.
func (g *Gateway) setupDevice(data EntityData, svcList []SvcData) {
	did := data.ID
	g.log().Debug("setup device", "did", did, "model", data.Model, "services", len(svcList))

	swVersion := intString(data.Version)
	hwVersion := intString(data.HWVersion)
	online := data.OnlineOrDefault()
	suggestedArea := g.roomName(data.Room)

	if did == g.UniqueID() {
		// The gateway itself has no service list; only its host registry
		// entry is refreshed here.
		if _, err := g.registry.GetOrCreateDevice(DeviceInfo{
			Connections:   []Connection{{Kind: ConnectionNetworkMAC, ID: g.mac()}},
			Identifier:    did,
			Manufacturer:  Manufacturer,
			Model:         data.Model,
			Name:          g.name,
			SWVersion:     swVersion,
			HWVersion:     hwVersion,
			SuggestedArea: suggestedArea,
		}); err != nil {
			g.log().Warn("gateway device entry upsert failed", "error", err)
		}
	}

	for _, svc := range svcList {
		eid := svc.ID
		name := svc.Name
		if name == "" {
			if data.Name != "" {
				name = data.Name + "-" + lastTwo(eid)
			} else {
				name = eid
			}
		}

		g.mu.RLock()
		ent := g.entities[eid]
		g.mu.RUnlock()

		if ent == nil {
			ent = g.createEntity(data, svc, name, swVersion, hwVersion, suggestedArea)
			if ent == nil {
				continue
			}
		}

		g.mu.Lock()
		ent.setAvailable(online)
		ent.applyState(svc.Attributes)
		if dev := g.devices[did]; dev != nil {
			dev.Available = online
		}
		presentations := ent.presentationList()
		g.mu.Unlock()

		for _, p := range presentations {
			p.SetAvailable(online)
			p.UpdateState(svc.Attributes)
		}
	}
}

// createEntity classifies a new service against the profile table and, if at
// least one description survives attribute filtering, registers the host
// device entry, the local records and one presentation per description.
// Returns nil when the service stays unexposed.
func (g *Gateway) createEntity(data EntityData, svc SvcData, name string, swVersion, hwVersion, suggestedArea *string) *Entity {
	eid := svc.ID

	attrs := make([]string, 0, len(svc.Attributes))
	for _, av := range svc.Attributes {
		attrs = append(attrs, av.Attr)
	}

	descriptions, known := descriptionsForProfile(svc.Profile, attrs)
	if !known {
		g.log().Debug("unsupported profile", "eid", eid, "profile", svc.Profile, "attrs", attrs)
		return nil
	}
	if len(descriptions) == 0 {
		g.log().Debug("no matching description", "eid", eid, "profile", svc.Profile, "attrs", attrs)
		return nil
	}

	// A service's own room wins over the device's room.
	if area := g.roomName(svc.Room); area != nil {
		suggestedArea = area
	}

	if _, err := g.registry.GetOrCreateDevice(DeviceInfo{
		Connections:   []Connection{{Kind: ConnectionZigbee, ID: eid}},
		Identifier:    eid,
		Manufacturer:  Manufacturer,
		Model:         data.Model,
		Name:          name,
		SWVersion:     swVersion,
		HWVersion:     hwVersion,
		SuggestedArea: suggestedArea,
		ViaDevice:     g.UniqueID(),
	}); err != nil {
		g.log().Warn("device entry upsert failed", "eid", eid, "error", err)
		return nil
	}

	ent := &Entity{
		EID:     eid,
		DID:     data.ID,
		Profile: svc.Profile,
		Name:    name,
	}

	for _, desc := range descriptions {
		presentation, err := g.adder.AddEntity(eid, desc, svc.Attributes, DeviceLink{Identifier: eid})
		if err != nil {
			g.log().Warn("add entity failed", "eid", eid, "key", desc.Key, "error", err)
			continue
		}
		ent.presentations = append(ent.presentations, presentation)
	}

	g.mu.Lock()
	g.entities[eid] = ent
	dev := g.devices[data.ID]
	if dev == nil {
		dev = &Device{DID: data.ID}
		g.devices[data.ID] = dev
	}
	dev.Model = data.Model
	dev.SWVersion = swVersion
	dev.HWVersion = hwVersion
	dev.SuggestedArea = suggestedArea
	if !containsString(dev.EntityIDs, eid) {
		dev.EntityIDs = append(dev.EntityIDs, eid)
	}
	g.mu.Unlock()

	return ent
}

// roomName resolves a room id to its display name, nil when the id is empty
// or unknown or the resolved name is blank.
func (g *Gateway) roomName(roomID string) *string {
	if roomID == "" {
		return nil
	}
	g.mu.RLock()
	name := g.rooms[roomID]
	g.mu.RUnlock()
	if name == "" {
		return nil
	}
	return &name
}

func (g *Gateway) sceneContainerID() string {
	return g.UniqueID() + "_scenes"
}

func intString(v *int) *string {
	if v == nil {
		return nil
	}
	s := strconv.Itoa(*v)
	return &s
}

// lastTwo returns the final two characters of an id, used in fallback
// display names ("device_name-04").
func lastTwo(s string) string {
	if len(s) < 2 {
		return s
	}
	return s[len(s)-2:]
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
