package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestEventKindOf(t *testing.T) {
	tests := []struct {
		in   string
		want eventKind
	}{
		{"", kindHeartbeat},
		{"report", kindReport},
		{"keyPressed", kindKeyPressed},
		{"keyLongPressed", kindKeyLongPressed},
		{"rotation", kindRotation},
		{"entityAvailable", kindEntityAvailable},
		{"entityDeleted", kindEntityDeleted},
		{"entityCreated", kindEntityCreated},
		{"entityUpdated", kindEntityUpdated},
		{"offline", kindOffline},
		{"somethingElse", kindUnknown},
	}

	for _, tt := range tests {
		if got := eventKindOf(tt.in); got != tt.want {
			t.Errorf("eventKindOf(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestMessage_UnmarshalEntitiesPresence(t *testing.T) {
	tests := []struct {
		name        string
		raw         string
		wantPresent bool
		wantLen     int
	}{
		{"entities present", `{"type":"report","entities":[{"id":"e1"}]}`, true, 1},
		{"entities empty", `{"type":"report","entities":[]}`, true, 0},
		{"entities missing", `{"type":"report"}`, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var msg Message
			if err := json.Unmarshal([]byte(tt.raw), &msg); err != nil {
				t.Fatalf("Unmarshal() error: %v", err)
			}
			if msg.HasEntities != tt.wantPresent {
				t.Errorf("HasEntities = %v, want %v", msg.HasEntities, tt.wantPresent)
			}
			if len(msg.Entities) != tt.wantLen {
				t.Errorf("len(Entities) = %d, want %d", len(msg.Entities), tt.wantLen)
			}
		})
	}
}

func TestButtonEventName(t *testing.T) {
	tests := []struct {
		times int
		want  string
	}{
		{1, "single_press"},
		{2, "double_press"},
		{3, "triple_press"},
		{9, "nonuple_press"},
		{0, "single_press"},
		{15, "single_press"},
	}

	for _, tt := range tests {
		if got := buttonEventName(tt.times); got != tt.want {
			t.Errorf("buttonEventName(%d) = %q, want %q", tt.times, got, tt.want)
		}
	}
}

func TestRouter_ReportFansOutToListeners(t *testing.T) {
	g, _ := newTestGateway(t, nil)

	var got []AttrValue
	g.AddListener("e1", func(attrs []AttrValue) { got = attrs })

	g.handleSessionEvent(EventMessage{Msg: Message{
		Type:        "report",
		HasEntities: true,
		Entities: []EntityData{
			{ID: "e1", Attributes: []AttrValue{{Attr: "on", Value: float64(1)}}},
		},
	}})

	if len(got) != 1 || got[0].Attr != "on" {
		t.Fatalf("listener saw %v, want [{on 1}]", got)
	}
}

func TestRouter_MessageWithoutEntitiesDropped(t *testing.T) {
	g, _ := newTestGateway(t, nil)

	called := false
	g.AddListener("e1", func([]AttrValue) { called = true })

	g.handleSessionEvent(EventMessage{Msg: Message{Type: "report", HasEntities: false}})

	if called {
		t.Error("listener fired for a message without an entities member")
	}
}

func TestRouter_KeyPressedDualChannel(t *testing.T) {
	g, f := newTestGateway(t, nil)

	// Build a button entity so both the local and host channels have targets.
	g.setupDevice(EntityData{
		ID:    "dev-1",
		Type:  "device",
		Model: "TERNCY-SD01",
		Services: []SvcData{
			{ID: "btn-1", Name: "Dial", Profile: ProfileSmartDial},
		},
	}, []SvcData{{ID: "btn-1", Name: "Dial", Profile: ProfileSmartDial}})

	var events []string
	var payloads []map[string]any
	g.AddTriggerListener("btn-1", func(event string, payload map[string]any) {
		events = append(events, event)
		payloads = append(payloads, payload)
	})

	g.handleSessionEvent(EventMessage{Msg: Message{
		Type:        "keyPressed",
		HasEntities: true,
		Entities:    []EntityData{{ID: "btn-1", Attributes: []AttrValue{{Times: 3}}}},
	}})

	if len(events) != 1 || events[0] != "triple_press" {
		t.Fatalf("local triggers = %v, want [triple_press]", events)
	}
	if payloads[0][EventDataTimes] != 3 {
		t.Errorf("trigger payload times = %v, want 3", payloads[0][EventDataTimes])
	}

	if len(f.bus.events) != 1 {
		t.Fatalf("bus events = %d, want 1", len(f.bus.events))
	}
	ev := f.bus.events[0]
	if ev.Name != "terncy_pressed" {
		t.Errorf("bus event name = %q, want %q", ev.Name, "terncy_pressed")
	}
	if ev.Payload[EventDataTimes] != 3 || ev.Payload[EventDataSource] != "btn-1" {
		t.Errorf("bus payload = %v", ev.Payload)
	}
	if ev.Payload[EventDataDeviceID] != "entry-btn-1" {
		t.Errorf("bus payload device_id = %v, want entry-btn-1", ev.Payload[EventDataDeviceID])
	}
}

func TestRouter_KeyPressedSingleChannel(t *testing.T) {
	// Host registry entry exists but no local entity: only the bus fires.
	g, f := newTestGateway(t, nil)
	if _, err := f.registry.GetOrCreateDevice(DeviceInfo{Identifier: "btn-9"}); err != nil {
		t.Fatalf("GetOrCreateDevice() error: %v", err)
	}

	fired := false
	g.AddTriggerListener("btn-9", func(string, map[string]any) { fired = true })

	g.handleSessionEvent(EventMessage{Msg: Message{
		Type:        "keyPressed",
		HasEntities: true,
		Entities:    []EntityData{{ID: "btn-9", Attributes: []AttrValue{{Times: 1}}}},
	}})

	if fired {
		t.Error("local trigger fired without a local entity record")
	}
	if len(f.bus.events) != 1 {
		t.Errorf("bus events = %d, want 1", len(f.bus.events))
	}
}

func TestRouter_KeyPressedOutOfRangeFallsBack(t *testing.T) {
	g, _ := newTestGateway(t, nil)
	g.setupDevice(EntityData{
		ID:       "dev-1",
		Type:     "device",
		Services: []SvcData{{ID: "btn-1", Profile: ProfileSmartDial}},
	}, []SvcData{{ID: "btn-1", Profile: ProfileSmartDial}})

	var events []string
	g.AddTriggerListener("btn-1", func(event string, _ map[string]any) {
		events = append(events, event)
	})

	for _, times := range []int{0, 15} {
		g.handleSessionEvent(EventMessage{Msg: Message{
			Type:        "keyPressed",
			HasEntities: true,
			Entities:    []EntityData{{ID: "btn-1", Attributes: []AttrValue{{Times: times}}}},
		}})
	}

	if len(events) != 2 || events[0] != "single_press" || events[1] != "single_press" {
		t.Errorf("local triggers = %v, want two single_press fallbacks", events)
	}
}

func TestRouter_DisconnectedMarksUnavailableAndReconnectsOnce(t *testing.T) {
	g, f := newTestGateway(t, nil)

	g.setupDevice(switchDevice("dev-1", "e1"), switchDevice("dev-1", "e1").Services)

	g.handleSessionEvent(Disconnected{})
	g.handleSessionEvent(Disconnected{})

	snap, err := g.Entity("e1")
	if err != nil {
		t.Fatalf("Entity() error: %v", err)
	}
	if snap.Available {
		t.Error("entity still available after Disconnected")
	}

	if !waitFor(t, time.Second, func() bool { return f.session.connectCount() == 1 }) {
		t.Fatalf("connect calls = %d, want exactly 1", f.session.connectCount())
	}
	// A second Disconnected while the first retry is pending must not
	// schedule another.
	time.Sleep(3 * g.reconnectDelay)
	if got := f.session.connectCount(); got != 1 {
		t.Errorf("connect calls = %d, want 1", got)
	}

	g.tasks.Wait()
}

func TestRouter_FailedReconnectSchedulesNextRetry(t *testing.T) {
	g, f := newTestGateway(t, nil)

	f.session.mu.Lock()
	f.session.connectErr = errors.New("session: dial failed")
	f.session.connectHook = func() { go g.handleSessionEvent(Disconnected{}) }
	f.session.mu.Unlock()

	g.handleSessionEvent(Disconnected{})

	// Each failed attempt raises its own Disconnected, which must arm the
	// next retry rather than leave the pending flag stuck.
	if !waitFor(t, time.Second, func() bool { return f.session.connectCount() >= 2 }) {
		t.Fatalf("connect calls = %d, want at least 2", f.session.connectCount())
	}

	if err := g.Close(context.Background()); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
}

func TestRouter_StopBeforeDelayPreventsReconnect(t *testing.T) {
	g, f := newTestGateway(t, nil)
	g.reconnectDelay = 100 * time.Millisecond

	g.handleSessionEvent(Disconnected{})
	if err := g.Stop(context.Background()); err != nil {
		t.Fatalf("Stop() error: %v", err)
	}

	g.tasks.Wait()
	if got := f.session.connectCount(); got != 0 {
		t.Errorf("connect calls = %d, want 0 after deliberate stop", got)
	}
}

func TestRouter_DisconnectedWhileStoppedDoesNotReconnect(t *testing.T) {
	g, f := newTestGateway(t, nil)
	g.stopped.Store(true)

	g.handleSessionEvent(Disconnected{})
	g.tasks.Wait()

	if got := f.session.connectCount(); got != 0 {
		t.Errorf("connect calls = %d, want 0 while stopped", got)
	}
}

func TestRouter_OfflineMarksDeviceEntitiesUnavailable(t *testing.T) {
	g, _ := newTestGateway(t, nil)
	g.setupDevice(switchDevice("dev-1", "e1"), switchDevice("dev-1", "e1").Services)
	g.setupDevice(switchDevice("dev-2", "e2"), switchDevice("dev-2", "e2").Services)

	g.handleSessionEvent(EventMessage{Msg: Message{
		Type:        "offline",
		HasEntities: true,
		Entities:    []EntityData{{ID: "dev-1"}},
	}})

	e1, _ := g.Entity("e1")
	e2, _ := g.Entity("e2")
	if e1.Available {
		t.Error("e1 still available after offline")
	}
	if !e2.Available {
		t.Error("e2 became unavailable, offline was for dev-1 only")
	}
}

func TestRouter_EntityDeletedDevice(t *testing.T) {
	g, f := newTestGateway(t, nil)
	g.setupDevice(switchDevice("dev-1", "e1"), switchDevice("dev-1", "e1").Services)

	g.handleSessionEvent(EventMessage{Msg: Message{
		Type:        "entityDeleted",
		HasEntities: true,
		Entities:    []EntityData{{ID: "dev-1"}},
	}})

	if _, err := g.Entity("e1"); err == nil {
		t.Error("entity e1 still present after entityDeleted")
	}
	if _, err := g.Device("dev-1"); err == nil {
		t.Error("device dev-1 still present after entityDeleted")
	}
	if len(f.registry.removedDevices) != 1 || f.registry.removedDevices[0] != "entry-e1" {
		t.Errorf("removed device entries = %v, want [entry-e1]", f.registry.removedDevices)
	}
}

func TestRouter_EntityDeletedScene(t *testing.T) {
	g, f := newTestGateway(t, func(o *Options) { o.ExportScenes = true })

	g.setupScene(EntityData{
		ID:      "scene-1",
		Type:    "scene",
		Name:    "Movie Night",
		Actions: []SceneAction{{ID: "e1", Attr: "on", Value: 1}},
		On:      float64(0),
	})
	if len(g.Scenes()) != 1 {
		t.Fatalf("scenes = %d, want 1", len(g.Scenes()))
	}

	g.handleSessionEvent(EventMessage{Msg: Message{
		Type:        "entityDeleted",
		HasEntities: true,
		Entities:    []EntityData{{ID: "scene-1"}},
	}})

	if len(g.Scenes()) != 0 {
		t.Error("scene still present after entityDeleted")
	}
	wantUnique := "box-12-34-56-78-90-ab-scene-1-scene"
	if len(f.registry.removedEntities) != 1 || f.registry.removedEntities[0] != wantUnique {
		t.Errorf("removed entities = %v, want [%s]", f.registry.removedEntities, wantUnique)
	}
}

func TestRouter_EntityAvailableSetsUpDevice(t *testing.T) {
	g, _ := newTestGateway(t, nil)

	dev := switchDevice("dev-1", "e1")
	g.handleSessionEvent(EventMessage{Msg: Message{
		Type:        "entityAvailable",
		HasEntities: true,
		Entities:    []EntityData{dev},
	}})

	snap, err := g.Entity("e1")
	if err != nil {
		t.Fatalf("Entity() error: %v", err)
	}
	if !snap.Available {
		t.Error("entity not available after entityAvailable")
	}
}

func TestRouter_EntityCreatedDeviceGroup(t *testing.T) {
	g, _ := newTestGateway(t, nil)

	g.handleSessionEvent(EventMessage{Msg: Message{
		Type:        "entityCreated",
		HasEntities: true,
		Entities: []EntityData{{
			ID:         "group-1",
			Type:       "devicegroup",
			Name:       "Hall Lights",
			Profile:    ProfileOnOffLight,
			Attributes: []AttrValue{{Attr: "on", Value: float64(0)}},
		}},
	}})

	snap, err := g.Entity("group-1")
	if err != nil {
		t.Fatalf("Entity() error: %v", err)
	}
	if snap.DID != "group-1" {
		t.Errorf("group entity DID = %q, want its own id", snap.DID)
	}
}

func TestRouter_HeartbeatAndUnknownDropped(t *testing.T) {
	g, _ := newTestGateway(t, nil)

	called := false
	g.AddListener("e1", func([]AttrValue) { called = true })

	for _, typ := range []string{"", "mystery"} {
		g.handleSessionEvent(EventMessage{Msg: Message{
			Type:        typ,
			HasEntities: true,
			Entities:    []EntityData{{ID: "e1", Attributes: []AttrValue{{Attr: "on", Value: 1}}}},
		}})
	}

	if called {
		t.Error("listener fired for heartbeat or unknown event type")
	}
}
