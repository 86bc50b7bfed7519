package gateway

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// region Mocks

type attrWrite struct {
	EID    string
	Attrs  []AttrValue
	Method int
}

type mockSession struct {
	mu        sync.Mutex
	devID     string
	connected bool
	handler   func(Event)

	host string
	port int

	connectCalls    int
	disconnectCalls int
	connectErr      error
	connectHook     func()

	writes   []attrWrite
	writeErr error

	queryFunc func(entityType string) (QueryResponse, error)
}

func newMockSession() *mockSession {
	return &mockSession{devID: "box-12-34-56-78-90-ab"}
}

func (s *mockSession) Connect(context.Context) error {
	s.mu.Lock()
	s.connectCalls++
	err := s.connectErr
	if err == nil {
		s.connected = true
	}
	hook := s.connectHook
	s.mu.Unlock()
	if hook != nil {
		hook()
	}
	return err
}

func (s *mockSession) Disconnect(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disconnectCalls++
	s.connected = false
	return nil
}

func (s *mockSession) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

func (s *mockSession) DeviceID() string { return s.devID }

func (s *mockSession) SetHost(host string, port int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.host, s.port = host, port
}

func (s *mockSession) SetAttribute(_ context.Context, eid, attr string, value any, method int) error {
	return s.SetAttributes(nil, eid, []AttrValue{{Attr: attr, Value: value}}, method)
}

func (s *mockSession) SetAttributes(_ context.Context, eid string, attrs []AttrValue, method int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writeErr != nil {
		return s.writeErr
	}
	s.writes = append(s.writes, attrWrite{EID: eid, Attrs: attrs, Method: method})
	return nil
}

func (s *mockSession) Query(_ context.Context, entityType string, _ bool) (QueryResponse, error) {
	s.mu.Lock()
	fn := s.queryFunc
	s.mu.Unlock()
	if fn == nil {
		return QueryResponse{Rsp: &QueryResult{}}, nil
	}
	return fn(entityType)
}

func (s *mockSession) RegisterEventHandler(handler func(Event)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handler = handler
}

func (s *mockSession) connectCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connectCalls
}

// deliver pushes an event through the registered handler, the way the real
// session's read loop would.
func (s *mockSession) deliver(ev Event) {
	s.mu.Lock()
	handler := s.handler
	s.mu.Unlock()
	if handler != nil {
		handler(ev)
	}
}

type mockRegistry struct {
	mu      sync.Mutex
	entries map[string]*DeviceEntry
	infos   map[string]DeviceInfo
	upserts int

	removedDevices  []string
	removedEntities []string

	upsertErr error
}

func newMockRegistry() *mockRegistry {
	return &mockRegistry{
		entries: make(map[string]*DeviceEntry),
		infos:   make(map[string]DeviceInfo),
	}
}

func (r *mockRegistry) GetOrCreateDevice(info DeviceInfo) (*DeviceEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.upsertErr != nil {
		return nil, r.upsertErr
	}
	r.upserts++
	r.infos[info.Identifier] = info
	entry, ok := r.entries[info.Identifier]
	if !ok {
		entry = &DeviceEntry{ID: "entry-" + info.Identifier, Name: info.Name}
		r.entries[info.Identifier] = entry
	}
	return entry, nil
}

func (r *mockRegistry) DeviceByIdentifier(identifier string) (*DeviceEntry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.entries[identifier]
	return entry, ok
}

func (r *mockRegistry) RemoveDevice(entryID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removedDevices = append(r.removedDevices, entryID)
	for id, entry := range r.entries {
		if entry.ID == entryID {
			delete(r.entries, id)
		}
	}
}

func (r *mockRegistry) RemoveEntity(uniqueID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removedEntities = append(r.removedEntities, uniqueID)
}

type mockPresentation struct {
	mu        sync.Mutex
	available *bool
	states    [][]AttrValue
	name      string
}

func (p *mockPresentation) SetAvailable(available bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.available = &available
}

func (p *mockPresentation) UpdateState(attrs []AttrValue) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.states = append(p.states, attrs)
}

func (p *mockPresentation) SetName(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.name = name
}

func (p *mockPresentation) lastState() []AttrValue {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.states) == 0 {
		return nil
	}
	return p.states[len(p.states)-1]
}

type addedEntity struct {
	EID  string
	Desc EntityDescription
	Link DeviceLink
	Pres *mockPresentation
}

type mockAdder struct {
	mu     sync.Mutex
	added  []addedEntity
	addErr error
}

func (a *mockAdder) AddEntity(eid string, desc EntityDescription, initial []AttrValue, link DeviceLink) (Presentation, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.addErr != nil {
		return nil, a.addErr
	}
	pres := &mockPresentation{}
	a.added = append(a.added, addedEntity{EID: eid, Desc: desc, Link: link, Pres: pres})
	return pres, nil
}

func (a *mockAdder) presentationsFor(eid string) []*mockPresentation {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []*mockPresentation
	for _, e := range a.added {
		if e.EID == eid {
			out = append(out, e.Pres)
		}
	}
	return out
}

type busEvent struct {
	Name    string
	Payload map[string]any
}

type mockBus struct {
	mu     sync.Mutex
	events []busEvent
}

func (b *mockBus) Fire(event string, payload map[string]any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, busEvent{Name: event, Payload: payload})
}

type mockDiscovery struct {
	mu        sync.Mutex
	service   *HubService
	onFound   func(HubService)
	onStopped func(HubService)
	cancelled bool
}

func (d *mockDiscovery) Subscribe(_ string, onFound func(HubService), onStopped func(HubService)) func() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onFound, d.onStopped = onFound, onStopped
	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		d.cancelled = true
	}
}

func (d *mockDiscovery) Lookup(string) (HubService, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.service == nil {
		return HubService{}, false
	}
	return *d.service, true
}

// endregion

type fixture struct {
	session  *mockSession
	registry *mockRegistry
	adder    *mockAdder
	bus      *mockBus
}

func newTestGateway(t *testing.T, mutate func(*Options)) (*Gateway, *fixture) {
	t.Helper()

	f := &fixture{
		session:  newMockSession(),
		registry: newMockRegistry(),
		adder:    &mockAdder{},
		bus:      &mockBus{},
	}
	opts := Options{
		Session:            f.session,
		Registry:           f.registry,
		Entities:           f.adder,
		Bus:                f.bus,
		Name:               "Test Hub",
		ExportDeviceGroups: true,
	}
	if mutate != nil {
		mutate(&opts)
	}

	g, err := NewGateway(opts)
	if err != nil {
		t.Fatalf("NewGateway() error: %v", err)
	}
	g.reconnectDelay = 20 * time.Millisecond
	return g, f
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(2 * time.Millisecond)
	}
	return cond()
}

// switchDevice builds a device payload with one plug service reporting "on".
func switchDevice(did, eid string) EntityData {
	return EntityData{
		ID:    did,
		Type:  "device",
		Name:  "Plug",
		Model: "TERNCY-Z1",
		Services: []SvcData{
			{
				ID:         eid,
				Name:       "Plug Switch",
				Profile:    ProfilePlug,
				Attributes: []AttrValue{{Attr: "on", Value: float64(0)}},
			},
		},
	}
}

func TestNewGateway_RequiredCollaborators(t *testing.T) {
	session := newMockSession()
	registry := newMockRegistry()
	adder := &mockAdder{}

	tests := []struct {
		name    string
		opts    Options
		wantErr error
	}{
		{
			name:    "missing session",
			opts:    Options{Registry: registry, Entities: adder},
			wantErr: ErrSessionRequired,
		},
		{
			name:    "missing registry",
			opts:    Options{Session: session, Entities: adder},
			wantErr: ErrRegistryRequired,
		},
		{
			name:    "missing entity adder",
			opts:    Options{Session: session, Registry: registry},
			wantErr: ErrEntityAdderRequired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewGateway(tt.opts)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("NewGateway() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestGateway_MAC(t *testing.T) {
	g, _ := newTestGateway(t, nil)
	if got := g.mac(); got != "12:34:56:78:90:ab" {
		t.Errorf("mac() = %q, want %q", got, "12:34:56:78:90:ab")
	}
}

func TestGateway_StartConnectsWhenHubKnown(t *testing.T) {
	disc := &mockDiscovery{service: &HubService{DeviceID: "box-12-34-56-78-90-ab", Host: "192.168.1.10", Port: 443}}
	g, f := newTestGateway(t, func(o *Options) { o.Discovery = disc })

	g.Start()

	if !waitFor(t, time.Second, func() bool { return f.session.connectCount() == 1 }) {
		t.Fatalf("connect calls = %d, want 1", f.session.connectCount())
	}
	f.session.mu.Lock()
	host, port := f.session.host, f.session.port
	f.session.mu.Unlock()
	if host != "192.168.1.10" || port != 443 {
		t.Errorf("SetHost = %s:%d, want 192.168.1.10:443", host, port)
	}

	if err := g.Close(context.Background()); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	if !disc.cancelled {
		t.Error("Close() did not cancel the discovery subscription")
	}
}

func TestGateway_StartWithoutDiscoveryConnectsConfiguredHost(t *testing.T) {
	g, f := newTestGateway(t, nil)

	// No discovery source: the session already carries the configured
	// address, so Start must attempt the connection itself.
	g.Start()

	if !waitFor(t, time.Second, func() bool { return f.session.connectCount() == 1 }) {
		t.Fatalf("connect calls = %d, want 1", f.session.connectCount())
	}

	if err := g.Close(context.Background()); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
}

func TestGateway_DiscoveryEmptyAddressIgnored(t *testing.T) {
	disc := &mockDiscovery{}
	g, f := newTestGateway(t, func(o *Options) { o.Discovery = disc })

	g.Start()
	disc.onFound(HubService{DeviceID: "box-12-34-56-78-90-ab", Host: ""})

	time.Sleep(50 * time.Millisecond)
	if got := f.session.connectCount(); got != 0 {
		t.Errorf("connect calls = %d, want 0 for empty address", got)
	}

	if err := g.Close(context.Background()); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
}

func TestGateway_SetAttributeOptimisticUpdate(t *testing.T) {
	g, f := newTestGateway(t, nil)

	var got []AttrValue
	g.AddListener("eid-1", func(attrs []AttrValue) { got = attrs })

	if err := g.SetAttribute(context.Background(), "eid-1", "on", 1, 0); err != nil {
		t.Fatalf("SetAttribute() error: %v", err)
	}

	if len(f.session.writes) != 1 {
		t.Fatalf("session writes = %d, want 1", len(f.session.writes))
	}
	if len(got) != 1 || got[0].Attr != "on" || got[0].Value != 1 {
		t.Errorf("listener saw %v, want [{on 1}]", got)
	}
}

func TestGateway_SetAttributeWriteFailure(t *testing.T) {
	g, f := newTestGateway(t, nil)
	f.session.writeErr = errors.New("session: write failed")

	notified := false
	g.AddListener("eid-1", func([]AttrValue) { notified = true })

	if err := g.SetAttribute(context.Background(), "eid-1", "on", 1, 0); err == nil {
		t.Fatal("SetAttribute() expected error")
	}
	if notified {
		t.Error("listener notified despite write failure")
	}
}

func TestGateway_SetAttributesOptimisticUpdate(t *testing.T) {
	g, f := newTestGateway(t, nil)

	var got []AttrValue
	g.AddListener("eid-1", func(attrs []AttrValue) { got = attrs })

	attrs := []AttrValue{{Attr: "on", Value: 1}, {Attr: "brightness", Value: 50}}
	if err := g.SetAttributes(context.Background(), "eid-1", attrs, 0); err != nil {
		t.Fatalf("SetAttributes() error: %v", err)
	}

	if len(f.session.writes) != 1 {
		t.Fatalf("session writes = %d, want 1", len(f.session.writes))
	}
	if len(got) != 2 {
		t.Errorf("listener saw %d attrs, want 2", len(got))
	}
}
