package discovery

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/grandcat/zeroconf"

	"github.com/openhaus/terncy-gateway/pkg/gateway"
)

// DefaultInterval is the default rebrowse interval.
const DefaultInterval = 60 * time.Second

// Logger is the logging interface used by the Monitor. Compatible with
// logging.Logger and slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// Config holds configuration for the Monitor.
type Config struct {
	// Interval is the rebrowse interval. If zero, DefaultInterval is used.
	Interval time.Duration

	// Resolver is the underlying mDNS resolver. If nil, the default
	// zeroconf resolver is used.
	Resolver Resolver

	// Logger is an optional structured logger.
	Logger Logger
}

// subscriber holds one Subscribe registration for a hub device id.
type subscriber struct {
	onFound   func(gateway.HubService)
	onStopped func(gateway.HubService)
}

// Monitor browses the local network for Terncy hub advertisements and keeps
// the latest known advertisement per hub. It satisfies the gateway's
// discovery source contract.
type Monitor struct {
	interval time.Duration
	resolver Resolver
	logger   Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	started bool
	closed  bool
	known   map[string]gateway.HubService
	subs    map[string]map[string]subscriber
}

// NewMonitor creates a Monitor with the given configuration. The Monitor
// does not browse until Start is called.
func NewMonitor(cfg Config) *Monitor {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Resolver == nil {
		cfg.Resolver = zeroconfResolver{}
	}
	if cfg.Logger == nil {
		cfg.Logger = noopLogger{}
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Monitor{
		interval: cfg.Interval,
		resolver: cfg.Resolver,
		logger:   cfg.Logger,
		ctx:      ctx,
		cancel:   cancel,
		known:    make(map[string]gateway.HubService),
		subs:     make(map[string]map[string]subscriber),
	}
}

// Start begins the browse loop in the background.
func (m *Monitor) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	if m.started {
		return ErrAlreadyStarted
	}
	m.started = true

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.loop()
	}()
	return nil
}

// Close stops browsing and waits for the browse loop to finish. Registered
// subscribers receive no further notifications.
func (m *Monitor) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.mu.Unlock()

	m.cancel()
	m.wg.Wait()
	return nil
}

// Subscribe registers found/stopped callbacks for the given hub device id
// and returns a cancel function that removes the registration. If a matching
// advertisement is already known, onFound is delivered asynchronously.
func (m *Monitor) Subscribe(deviceID string, onFound func(gateway.HubService), onStopped func(gateway.HubService)) (cancel func()) {
	token := uuid.NewString()

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return func() {}
	}
	set, ok := m.subs[deviceID]
	if !ok {
		set = make(map[string]subscriber)
		m.subs[deviceID] = set
	}
	set[token] = subscriber{onFound: onFound, onStopped: onStopped}
	cached, haveCached := m.known[deviceID]
	m.mu.Unlock()

	if haveCached && onFound != nil {
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			onFound(cached)
		}()
	}

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if set, ok := m.subs[deviceID]; ok {
			delete(set, token)
			if len(set) == 0 {
				delete(m.subs, deviceID)
			}
		}
	}
}

// Lookup returns the latest known advertisement for the given hub device id.
func (m *Monitor) Lookup(deviceID string) (gateway.HubService, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	svc, ok := m.known[deviceID]
	return svc, ok
}

// loop browses continuously, one window per interval.
func (m *Monitor) loop() {
	for {
		m.browseOnce()
		if m.ctx.Err() != nil {
			return
		}
	}
}

// browseOnce runs a single browse window. It returns when the window expires
// or the Monitor is closed.
func (m *Monitor) browseOnce() {
	ctx, cancel := context.WithTimeout(m.ctx, m.interval)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry)

	var consumed sync.WaitGroup
	consumed.Add(1)
	go func() {
		defer consumed.Done()
		for {
			select {
			case entry := <-entries:
				if entry != nil {
					m.handleEntry(entry)
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	if err := m.resolver.Browse(ctx, ServiceType, DefaultDomain, entries); err != nil {
		m.logger.Warn("mdns browse failed", "error", err)
		select {
		case <-ctx.Done():
		case <-time.After(m.interval):
		}
		cancel()
	}
	consumed.Wait()
}

// handleEntry processes one discovered service record. Instance names that
// do not look like hub device ids are ignored. Goodbye packets arrive with
// TTL zero and mark the hub stopped.
func (m *Monitor) handleEntry(entry *zeroconf.ServiceEntry) {
	deviceID := entry.Instance
	if !strings.HasPrefix(deviceID, gateway.HubIDPrefix) {
		return
	}

	if entry.TTL == 0 {
		m.markStopped(deviceID)
		return
	}

	svc, ok := entryToService(entry)
	if !ok {
		m.logger.Debug("advertisement without address", "dev_id", deviceID)
		return
	}
	m.markFound(svc)
}

// markFound records an advertisement and notifies subscribers when it is new
// or has changed.
func (m *Monitor) markFound(svc gateway.HubService) {
	m.mu.Lock()
	if prev, ok := m.known[svc.DeviceID]; ok && prev == svc {
		m.mu.Unlock()
		return
	}
	m.known[svc.DeviceID] = svc
	callbacks := m.foundCallbacks(svc.DeviceID)
	m.mu.Unlock()

	m.logger.Debug("hub advertisement", "dev_id", svc.DeviceID, "host", svc.Host, "port", svc.Port)
	for _, cb := range callbacks {
		cb(svc)
	}
}

// markStopped drops a known advertisement and notifies subscribers.
func (m *Monitor) markStopped(deviceID string) {
	m.mu.Lock()
	svc, ok := m.known[deviceID]
	if !ok {
		m.mu.Unlock()
		return
	}
	delete(m.known, deviceID)
	callbacks := m.stoppedCallbacks(deviceID)
	m.mu.Unlock()

	m.logger.Debug("hub advertisement withdrawn", "dev_id", deviceID)
	for _, cb := range callbacks {
		cb(svc)
	}
}

// foundCallbacks snapshots the onFound callbacks for a device id.
// Caller holds m.mu.
func (m *Monitor) foundCallbacks(deviceID string) []func(gateway.HubService) {
	var callbacks []func(gateway.HubService)
	for _, sub := range m.subs[deviceID] {
		if sub.onFound != nil {
			callbacks = append(callbacks, sub.onFound)
		}
	}
	return callbacks
}

// stoppedCallbacks snapshots the onStopped callbacks for a device id.
// Caller holds m.mu.
func (m *Monitor) stoppedCallbacks(deviceID string) []func(gateway.HubService) {
	var callbacks []func(gateway.HubService)
	for _, sub := range m.subs[deviceID] {
		if sub.onStopped != nil {
			callbacks = append(callbacks, sub.onStopped)
		}
	}
	return callbacks
}

// entryToService converts a zeroconf entry to a hub advertisement. IPv4
// addresses are preferred over IPv6.
func entryToService(entry *zeroconf.ServiceEntry) (gateway.HubService, bool) {
	var host string
	switch {
	case len(entry.AddrIPv4) > 0:
		host = entry.AddrIPv4[0].String()
	case len(entry.AddrIPv6) > 0:
		host = entry.AddrIPv6[0].String()
	default:
		return gateway.HubService{}, false
	}

	return gateway.HubService{
		DeviceID: entry.Instance,
		Host:     host,
		Port:     entry.Port,
	}, true
}
