package gateway

import (
	"context"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Gateway identity and protocol constants.
const (
	// Domain is the identifier namespace the gateway uses in host registry
	// identifiers and bus event names.
	Domain = "terncy"

	// Manufacturer is reported to the host registry for every device entry.
	Manufacturer = "Xiaoyan Tech."

	// HubIDPrefix prefixes the hub's own device id ("box-12-34-…").
	HubIDPrefix = "box-"

	// ScenePrefix distinguishes scene ids from device ids in hub payloads.
	ScenePrefix = "scene-"

	// sceneContainerModel is the model and name of the shared host device
	// that holds all exported scene switches.
	sceneContainerModel = "TERNCY-SCENE"

	// reconnectDelay is the fixed pause before a reconnect attempt,
	// preventing hot-loop reconnection storms.
	reconnectDelay = 2 * time.Second
)

// Logger is the logging interface used by the gateway. Compatible with
// logging.Logger and slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Options holds the collaborators and settings for creating a Gateway.
type Options struct {
	// Session is the hub wire client. Required.
	Session SessionClient

	// Registry is the host device/entity registry. Required.
	Registry HostRegistry

	// Entities is the host's add-entity path. Required.
	Entities EntityAdder

	// Bus is the host event bus for button/rotation notifications.
	// Optional; if nil, the host channel of those notifications is skipped.
	Bus EventBus

	// Discovery delivers hub service found/stopped notifications.
	// Optional; if nil, connecting relies on the session's configured host.
	Discovery DiscoverySource

	// Name is the gateway's display name in the host registry.
	Name string

	// Locale selects the default room-name table ("en", "zh", …).
	Locale string

	// ExportDeviceGroups exposes hub device groups as devices. Callers
	// normally wire this from configuration, where it defaults to true.
	ExportDeviceGroups bool

	// ExportScenes exposes hub scenes as switch entities. Defaults to off.
	ExportScenes bool

	// Logger is an optional structured logger.
	Logger Logger
}

// Gateway composes the connection supervisor, event router, topology
// reconciler and listener registry for one hub session.
type Gateway struct {
	session   SessionClient
	registry  HostRegistry
	adder     EntityAdder
	bus       EventBus
	discovery DiscoverySource

	name               string
	locale             string
	exportDeviceGroups bool
	exportScenes       bool

	// Local topology, guarded by mu. Devices own entity id lists; the
	// entities table owns the records.
	mu       sync.RWMutex
	devices  map[string]*Device
	entities map[string]*Entity
	rooms    map[string]string
	scenes   map[string]*Scene

	// Listener registries, guarded by listenerMu.
	listenerMu sync.RWMutex
	listeners  map[string]map[string]AttrListener
	triggers   map[string]map[string]TriggerListener

	// reconnectDelay is overridable in tests.
	reconnectDelay time.Duration

	// stopped distinguishes a deliberate stop (no auto-reconnect) from a
	// transient disconnect (auto-reconnect armed).
	stopped          atomic.Bool
	reconnectPending atomic.Bool
	reconnects       atomic.Uint64

	// Background task coordination.
	ctx         context.Context
	cancel      context.CancelFunc
	tasks       sync.WaitGroup
	unsubscribe func()

	logger   Logger
	loggerMu sync.RWMutex
}

// NewGateway creates a gateway for one hub session. Call Start to begin
// operation.
func NewGateway(opts Options) (*Gateway, error) {
	if opts.Session == nil {
		return nil, ErrSessionRequired
	}
	if opts.Registry == nil {
		return nil, ErrRegistryRequired
	}
	if opts.Entities == nil {
		return nil, ErrEntityAdderRequired
	}

	locale := opts.Locale
	if locale == "" {
		locale = "en"
	}
	logger := opts.Logger
	if logger == nil {
		logger = noopLogger{}
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Gateway{
		session:            opts.Session,
		registry:           opts.Registry,
		adder:              opts.Entities,
		bus:                opts.Bus,
		discovery:          opts.Discovery,
		name:               opts.Name,
		locale:             locale,
		exportDeviceGroups: opts.ExportDeviceGroups,
		exportScenes:       opts.ExportScenes,
		reconnectDelay:     reconnectDelay,
		devices:            make(map[string]*Device),
		entities:           make(map[string]*Entity),
		rooms:              make(map[string]string),
		scenes:             make(map[string]*Scene),
		listeners:          make(map[string]map[string]AttrListener),
		triggers:           make(map[string]map[string]TriggerListener),
		ctx:                ctx,
		cancel:             cancel,
		logger:             logger,
	}, nil
}

// UniqueID returns the hub's own device id.
func (g *Gateway) UniqueID() string {
	return g.session.DeviceID()
}

// IsConnected reports whether the session is currently established.
func (g *Gateway) IsConnected() bool {
	return g.session.IsConnected()
}

// mac derives the hub's MAC address from its device id
// ("box-12-34-56-78-90-ab" → "12:34:56:78:90:ab").
func (g *Gateway) mac() string {
	id := strings.TrimPrefix(g.UniqueID(), HubIDPrefix)
	return strings.ToLower(strings.ReplaceAll(id, "-", ":"))
}

// GetMetrics returns current gateway counters.
func (g *Gateway) GetMetrics() Metrics {
	g.mu.RLock()
	devices, entities, scenes := len(g.devices), len(g.entities), len(g.scenes)
	g.mu.RUnlock()

	return Metrics{
		Connected:  g.session.IsConnected(),
		Stopped:    g.stopped.Load(),
		Devices:    devices,
		Entities:   entities,
		Scenes:     scenes,
		Reconnects: g.reconnects.Load(),
	}
}

// Devices returns deep copies of every parsed device, sorted by device id.
func (g *Gateway) Devices() []DeviceSnapshot {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]DeviceSnapshot, 0, len(g.devices))
	for _, d := range g.devices {
		out = append(out, d.snapshot())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DID < out[j].DID })
	return out
}

// Device returns a deep copy of one parsed device.
func (g *Gateway) Device(did string) (DeviceSnapshot, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	d, ok := g.devices[did]
	if !ok {
		return DeviceSnapshot{}, ErrDeviceNotFound
	}
	return d.snapshot(), nil
}

// Entity returns a deep copy of one parsed entity.
func (g *Gateway) Entity(eid string) (EntitySnapshot, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	e, ok := g.entities[eid]
	if !ok {
		return EntitySnapshot{}, ErrEntityNotFound
	}
	return e.snapshot(), nil
}

// Entities returns deep copies of every parsed entity, sorted by entity id.
func (g *Gateway) Entities() []EntitySnapshot {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]EntitySnapshot, 0, len(g.entities))
	for _, e := range g.entities {
		out = append(out, e.snapshot())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EID < out[j].EID })
	return out
}

// Scenes returns copies of every exported scene, sorted by scene id.
func (g *Gateway) Scenes() []SceneSnapshot {
	g.mu.RLock()
	defer g.mu.RUnlock()

	out := make([]SceneSnapshot, 0, len(g.scenes))
	for _, s := range g.scenes {
		out = append(out, s.snapshot())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// SetLogger sets the logger for the gateway.
func (g *Gateway) SetLogger(logger Logger) {
	g.loggerMu.Lock()
	g.logger = logger
	g.loggerMu.Unlock()
}

func (g *Gateway) log() Logger {
	g.loggerMu.RLock()
	defer g.loggerMu.RUnlock()
	return g.logger
}
