package gateway

// setupScene is the idempotent create-or-update merge for one hub scene.
// Scenes are exposed as switch presentations on the shared scenes-container
// device. A scene whose action list is empty is soft-disabled, never
// deleted; it comes back if the hub later reports actions again.
func (g *Gateway) setupScene(data EntityData) {
	if !g.exportScenes {
		return
	}

	sceneID := data.ID

	if len(data.Actions) == 0 {
		g.mu.Lock()
		scene := g.scenes[sceneID]
		if scene != nil {
			scene.Available = false
		}
		g.mu.Unlock()
		if scene != nil {
			scene.presentation.SetAvailable(false)
		}
		return
	}

	g.log().Debug("setup scene", "scene_id", sceneID, "actions", len(data.Actions))

	name := data.Name
	if name == "" {
		name = sceneID
	}
	online := data.OnlineOrDefault()
	initial := []AttrValue{{Attr: attrOn, Value: data.On}}

	g.mu.RLock()
	scene := g.scenes[sceneID]
	g.mu.RUnlock()

	if scene == nil {
		// Scene ids are not unique across gateways, so the unique id is
		// namespaced with the gateway's own id.
		desc := EntityDescription{
			Key:            "scene",
			Platform:       PlatformSwitch,
			Name:           name,
			Icon:           "mdi:palette",
			UniqueIDPrefix: g.UniqueID(),
		}
		presentation, err := g.adder.AddEntity(sceneID, desc, initial, DeviceLink{Identifier: g.sceneContainerID()})
		if err != nil {
			g.log().Warn("add scene entity failed", "scene_id", sceneID, "error", err)
			return
		}
		scene = &Scene{
			ID:           sceneID,
			Name:         name,
			Available:    online,
			uniqueID:     desc.UniqueID(sceneID),
			presentation: presentation,
		}
		g.mu.Lock()
		g.scenes[sceneID] = scene
		g.mu.Unlock()
	} else {
		// Snapshot readers hold g.mu; the record fields change under it.
		// The presentation is immutable after creation, so its callbacks
		// run unlocked.
		g.mu.Lock()
		scene.Name = name
		scene.Available = online
		g.mu.Unlock()
		scene.presentation.SetName(name)
	}

	scene.presentation.SetAvailable(online)
	scene.presentation.UpdateState(initial)
}
