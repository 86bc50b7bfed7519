package gateway

import "github.com/google/uuid"

// AttrListener receives attribute-change notifications for one entity id.
type AttrListener func(attrs []AttrValue)

// TriggerListener receives button/rotation triggers for one entity id.
type TriggerListener func(event string, payload map[string]any)

// AddListener registers interest in attribute changes for eid. Listeners may
// be registered before the entity exists; updates are simply no-ops until it
// does. The returned removal func is idempotent and safe to call after the
// entity is gone.
func (g *Gateway) AddListener(eid string, listener AttrListener) (remove func()) {
	token := uuid.NewString()

	g.listenerMu.Lock()
	if g.listeners[eid] == nil {
		g.listeners[eid] = make(map[string]AttrListener)
	}
	g.listeners[eid][token] = listener
	g.listenerMu.Unlock()

	return func() {
		g.listenerMu.Lock()
		if set, ok := g.listeners[eid]; ok {
			delete(set, token)
			if len(set) == 0 {
				delete(g.listeners, eid)
			}
		}
		g.listenerMu.Unlock()
	}
}

// UpdateListeners fans an attribute list out to every listener registered for
// eid. Iteration order is unspecified; a missing eid is a silent no-op.
func (g *Gateway) UpdateListeners(eid string, attrs []AttrValue) {
	g.mu.Lock()
	var presentations []Presentation
	if ent := g.entities[eid]; ent != nil {
		ent.applyState(attrs)
		presentations = ent.presentationList()
	}
	g.mu.Unlock()

	for _, p := range presentations {
		p.UpdateState(attrs)
	}

	g.listenerMu.RLock()
	set := g.listeners[eid]
	callbacks := make([]AttrListener, 0, len(set))
	for _, l := range set {
		callbacks = append(callbacks, l)
	}
	g.listenerMu.RUnlock()

	for _, l := range callbacks {
		l(attrs)
	}
}

// AddTriggerListener registers interest in button/rotation triggers for eid,
// with the same removal semantics as AddListener.
func (g *Gateway) AddTriggerListener(eid string, listener TriggerListener) (remove func()) {
	token := uuid.NewString()

	g.listenerMu.Lock()
	if g.triggers[eid] == nil {
		g.triggers[eid] = make(map[string]TriggerListener)
	}
	g.triggers[eid][token] = listener
	g.listenerMu.Unlock()

	return func() {
		g.listenerMu.Lock()
		if set, ok := g.triggers[eid]; ok {
			delete(set, token)
			if len(set) == 0 {
				delete(g.triggers, eid)
			}
		}
		g.listenerMu.Unlock()
	}
}

// fireTrigger raises a local trigger for eid if a local entity record exists.
// Absence of the entity is not an error; only the host bus channel fires
// then.
func (g *Gateway) fireTrigger(eid, event string, payload map[string]any) {
	g.mu.RLock()
	_, exists := g.entities[eid]
	g.mu.RUnlock()
	if !exists {
		return
	}

	g.listenerMu.RLock()
	set := g.triggers[eid]
	callbacks := make([]TriggerListener, 0, len(set))
	for _, l := range set {
		callbacks = append(callbacks, l)
	}
	g.listenerMu.RUnlock()

	for _, l := range callbacks {
		l(event, payload)
	}
}
