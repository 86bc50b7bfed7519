package gateway

import "strings"

// Local trigger and host bus event names.
const (
	ActionPressed     = "pressed"
	ActionSinglePress = "single_press"
	ActionLongPress   = "long_press"
	ActionRotation    = "rotation"

	// Host bus payload members.
	EventDataDeviceID = "device_id"
	EventDataSource   = "source"
	EventDataTimes    = "times"
)

// buttonEventNames maps a press count in [1,9] to its canonical event label.
var buttonEventNames = map[int]string{
	1: "single_press",
	2: "double_press",
	3: "triple_press",
	4: "quadruple_press",
	5: "quintuple_press",
	6: "sextuple_press",
	7: "septuple_press",
	8: "octuple_press",
	9: "nonuple_press",
}

// buttonEventName resolves a press count to its event label, falling back to
// the generic single-press label for out-of-range counts.
func buttonEventName(times int) string {
	if name, ok := buttonEventNames[times]; ok {
		return name
	}
	return ActionSinglePress
}

// busEventName namespaces a host bus event ("pressed" → "terncy_pressed").
func busEventName(action string) string {
	return Domain + "_" + action
}

// eventKind is the closed set of inbound message types the router dispatches
// on. Unknown type strings fall into kindUnknown, which is logged and
// dropped, never a silent default branch.
type eventKind int

const (
	// kindHeartbeat is a message with an empty/unset type. The hub emits
	// these as keep-alives; they carry no payload worth processing.
	kindHeartbeat eventKind = iota
	kindReport
	kindKeyPressed
	kindKeyLongPressed
	kindRotation
	kindEntityAvailable
	kindEntityDeleted
	kindEntityCreated
	kindEntityUpdated
	kindOffline
	kindUnknown
)

// eventKindOf classifies a declared message type string.
func eventKindOf(t string) eventKind {
	switch t {
	case "":
		return kindHeartbeat
	case "report":
		return kindReport
	case "keyPressed":
		return kindKeyPressed
	case "keyLongPressed":
		return kindKeyLongPressed
	case "rotation":
		return kindRotation
	case "entityAvailable":
		return kindEntityAvailable
	case "entityDeleted":
		return kindEntityDeleted
	case "entityCreated":
		return kindEntityCreated
	case "entityUpdated":
		return kindEntityUpdated
	case "offline":
		return kindOffline
	default:
		return kindUnknown
	}
}

// msgHandlers maps each recognised message kind to its reducer. Handlers are
// pure reducers over local state plus listener notifications and host
// registry side effects; they assume no ordering beyond arrival order.
var msgHandlers = map[eventKind]func(*Gateway, []EntityData){
	kindReport:          (*Gateway).onReport,
	kindKeyPressed:      (*Gateway).onKeyPressed,
	kindKeyLongPressed:  (*Gateway).onKeyLongPressed,
	kindRotation:        (*Gateway).onRotation,
	kindEntityAvailable: (*Gateway).onEntityAvailable,
	kindEntityDeleted:   (*Gateway).onEntityDeleted,
	kindEntityCreated:   (*Gateway).onEntityCreated,
	kindEntityUpdated:   (*Gateway).onEntityUpdated,
	kindOffline:         (*Gateway).onOffline,
}

// handleSessionEvent is the single session event handler. The session
// delivers events one at a time, in arrival order; handlers never re-enter.
func (g *Gateway) handleSessionEvent(ev Event) {
	switch e := ev.(type) {
	case EventMessage:
		g.handleMessage(e.Msg)

	case Connected:
		g.log().Info("connected", "dev_id", g.UniqueID())
		// The connection is usable for commands while the refresh is still
		// in flight.
		g.background("refresh", g.refreshDevices)

	case Disconnected:
		g.log().Warn("disconnected", "dev_id", g.UniqueID())
		g.markAllUnavailable()
		if !g.stopped.Load() && g.reconnectPending.CompareAndSwap(false, true) {
			g.background("reconnect", g.reconnect)
		}

	default:
		g.log().Warn("unknown session event", "event", ev)
	}
}

// handleMessage classifies an inbound message and dispatches its per-entity
// payloads to the matching reducer.
func (g *Gateway) handleMessage(msg Message) {
	if !msg.HasEntities {
		g.log().Warn("message without entities member", "type", msg.Type)
		return
	}

	kind := eventKindOf(msg.Type)
	switch kind {
	case kindHeartbeat:
		g.log().Debug("heartbeat message ignored")
		return
	case kindUnknown:
		g.log().Warn("unsupported event type", "type", msg.Type, "entities", len(msg.Entities))
		return
	}

	msgHandlers[kind](g, msg.Entities)
}

// onReport fans each payload's attribute list out to registered listeners.
// Reports never create or delete anything.
func (g *Gateway) onReport(items []EntityData) {
	g.log().Debug("event: report", "entities", len(items))
	for _, item := range items {
		g.UpdateListeners(item.ID, item.Attributes)
	}
}

// onKeyPressed raises the dual-channel button notification: a local trigger
// labelled by press count, and a host bus event carrying the host device id,
// source eid and times. Both channels fire independently; absence of either
// target is not an error.
func (g *Gateway) onKeyPressed(items []EntityData) {
	g.log().Debug("event: keyPressed", "entities", len(items))
	for _, item := range items {
		if len(item.Attributes) == 0 {
			continue
		}
		times := item.Attributes[0].Times
		g.fireTrigger(item.ID, buttonEventName(times), map[string]any{EventDataTimes: times})
		g.fireBus(item.ID, ActionPressed, map[string]any{EventDataTimes: times})
	}
}

func (g *Gateway) onKeyLongPressed(items []EntityData) {
	g.log().Debug("event: keyLongPressed", "entities", len(items))
	for _, item := range items {
		g.fireTrigger(item.ID, ActionLongPress, nil)
		g.fireBus(item.ID, ActionLongPress, nil)
	}
}

func (g *Gateway) onRotation(items []EntityData) {
	g.log().Debug("event: rotation", "entities", len(items))
	for _, item := range items {
		g.fireTrigger(item.ID, ActionRotation, nil)
		g.fireBus(item.ID, ActionRotation, nil)
	}
}

// fireBus emits a host bus event for eid if a host registry entry exists.
func (g *Gateway) fireBus(eid, action string, extra map[string]any) {
	if g.bus == nil {
		return
	}
	entry, ok := g.registry.DeviceByIdentifier(eid)
	if !ok {
		return
	}

	payload := map[string]any{
		EventDataDeviceID: entry.ID,
		EventDataSource:   eid,
	}
	for k, v := range extra {
		payload[k] = v
	}
	g.bus.Fire(busEventName(action), payload)
}

// onEntityAvailable runs device setup for "device" payloads. "token"
// payloads are a hub bookkeeping artefact and are ignored.
func (g *Gateway) onEntityAvailable(items []EntityData) {
	g.log().Debug("event: entityAvailable", "entities", len(items))
	for _, item := range items {
		switch item.Type {
		case "device":
			g.setupDevice(item, item.Services)
		case "token":
			// nothing to do
		default:
			g.log().Warn("entityAvailable: unsupported type", "type", item.Type, "id", item.ID)
		}
	}
}

// onEntityDeleted retires a scene or a whole device. Scene ids are
// recognised by prefix; anything else is treated as a device id.
func (g *Gateway) onEntityDeleted(items []EntityData) {
	g.log().Debug("event: entityDeleted", "entities", len(items))
	for _, item := range items {
		if strings.HasPrefix(item.ID, ScenePrefix) {
			g.deleteScene(item.ID)
		} else {
			g.deleteDevice(item.ID)
		}
	}
}

// deleteScene disables a scene, drops it from the scenes map, and requests
// host removal of its presentation entity.
func (g *Gateway) deleteScene(sceneID string) {
	g.mu.Lock()
	scene, ok := g.scenes[sceneID]
	if ok {
		delete(g.scenes, sceneID)
	}
	g.mu.Unlock()

	if !ok {
		return
	}
	scene.presentation.SetAvailable(false)
	g.registry.RemoveEntity(scene.uniqueID)
	g.log().Debug("removed scene", "scene_id", sceneID)
}

// deleteDevice marks every entity of the device unavailable, requests host
// removal of each corresponding device entry, and drops the device and its
// entities from the local maps.
func (g *Gateway) deleteDevice(did string) {
	g.mu.Lock()
	var removed []*Entity
	for eid, ent := range g.entities {
		if ent.DID == did {
			ent.setAvailable(false)
			removed = append(removed, ent)
			delete(g.entities, eid)
		}
	}
	delete(g.devices, did)
	g.mu.Unlock()

	for _, ent := range removed {
		for _, p := range ent.presentationList() {
			p.SetAvailable(false)
		}
		if entry, ok := g.registry.DeviceByIdentifier(ent.EID); ok {
			g.registry.RemoveDevice(entry.ID)
			g.log().Debug("removed device entry", "entry_id", entry.ID, "eid", ent.EID)
		}
	}
}

// onEntityCreated handles newly created scenes and device groups.
func (g *Gateway) onEntityCreated(items []EntityData) {
	g.log().Debug("event: entityCreated", "entities", len(items))
	for _, item := range items {
		switch item.Type {
		case "scene":
			g.setupScene(item)
		case "devicegroup":
			g.setupDeviceGroup(item)
		default:
			g.log().Debug("entityCreated: unsupported type", "type", item.Type, "id", item.ID)
		}
	}
}

// onEntityUpdated handles scene updates. "user" payloads are hub account
// bookkeeping and are ignored.
func (g *Gateway) onEntityUpdated(items []EntityData) {
	g.log().Debug("event: entityUpdated", "entities", len(items))
	for _, item := range items {
		switch item.Type {
		case "scene":
			g.setupScene(item)
		case "user":
			g.log().Debug("entityUpdated: type user, ignored")
		default:
			g.log().Info("entityUpdated: unsupported type", "type", item.Type, "id", item.ID)
		}
	}
}

// onOffline marks every entity owned by each payload's device id
// unavailable.
func (g *Gateway) onOffline(items []EntityData) {
	g.log().Debug("event: offline", "entities", len(items))

	var affected []Presentation
	g.mu.Lock()
	for _, item := range items {
		if dev, ok := g.devices[item.ID]; ok {
			dev.Available = false
		}
		for _, ent := range g.entities {
			if ent.DID == item.ID {
				ent.setAvailable(false)
				affected = append(affected, ent.presentationList()...)
			}
		}
	}
	g.mu.Unlock()

	for _, p := range affected {
		p.SetAvailable(false)
	}
}

// markAllUnavailable flags every known device and entity unavailable, used
// on disconnect.
func (g *Gateway) markAllUnavailable() {
	var affected []Presentation
	g.mu.Lock()
	for _, dev := range g.devices {
		dev.Available = false
	}
	for _, ent := range g.entities {
		ent.setAvailable(false)
		affected = append(affected, ent.presentationList()...)
	}
	g.mu.Unlock()

	for _, p := range affected {
		p.SetAvailable(false)
	}
}
