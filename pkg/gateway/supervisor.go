package gateway

import (
	"context"
	"errors"
	"time"
)

// Start arms the gateway: it registers the session event handler, subscribes
// to hub discovery notifications, and — if the hub's network location is
// already known — begins an asynchronous connect. Without a discovery source
// the session's configured host is used directly. Start never blocks on the
// connection; failures are observed via Disconnected events.
func (g *Gateway) Start() {
	g.stopped.Store(false)
	g.session.RegisterEventHandler(g.handleSessionEvent)

	if g.discovery == nil {
		if !g.session.IsConnected() {
			g.log().Debug("no discovery source, connecting to configured host", "dev_id", g.session.DeviceID())
			g.background("connect", g.connect)
		}
		return
	}

	devID := g.session.DeviceID()
	g.unsubscribe = g.discovery.Subscribe(devID, g.onHubFound, g.onHubStopped)

	if svc, ok := g.discovery.Lookup(devID); ok && !g.session.IsConnected() {
		g.session.SetHost(svc.Host, svc.Port)
		g.log().Debug("starting connection", "dev_id", devID, "host", svc.Host)
		g.background("connect", g.connect)
	}
}

// Stop deliberately ends the session: the stopped flag suppresses any pending
// reconnect, then the session is torn down. Safe to call when already
// disconnected.
func (g *Gateway) Stop(ctx context.Context) error {
	g.stopped.Store(true)
	return g.session.Disconnect(ctx)
}

// Close stops the gateway and releases discovery and background resources.
// It waits for in-flight background tasks to finish.
func (g *Gateway) Close(ctx context.Context) error {
	err := g.Stop(ctx)

	if g.unsubscribe != nil {
		g.unsubscribe()
		g.unsubscribe = nil
	}
	g.cancel()
	g.tasks.Wait()

	g.log().Info("gateway closed", "dev_id", g.UniqueID())
	return err
}

// onHubFound handles a discovery advertisement for this gateway's hub.
// An empty network address is transiently invalid, not fatal.
func (g *Gateway) onHubFound(svc HubService) {
	if svc.Host == "" {
		g.log().Warn("discovered hub has no valid address", "dev_id", svc.DeviceID)
		return
	}
	if g.session.IsConnected() {
		return
	}

	g.session.SetHost(svc.Host, svc.Port)
	g.log().Debug("starting connection", "dev_id", svc.DeviceID, "host", svc.Host)
	g.stopped.Store(false)
	g.background("connect", g.connect)
}

// onHubStopped handles the hub's discovery record disappearing.
func (g *Gateway) onHubStopped(svc HubService) {
	g.log().Debug("hub service stopped", "dev_id", svc.DeviceID)
	g.background("stop", func(ctx context.Context) error {
		return g.Stop(ctx)
	})
}

// background launches a tracked unit of work that must not block the
// event-handling path. Failures are logged, never returned to the caller:
// connection failures surface as Disconnected events.
func (g *Gateway) background(name string, fn func(ctx context.Context) error) {
	g.tasks.Add(1)
	go func() {
		defer g.tasks.Done()
		if err := fn(g.ctx); err != nil && !errors.Is(err, context.Canceled) {
			g.log().Warn("background task failed", "task", name, "error", err)
		}
	}()
}

func (g *Gateway) connect(ctx context.Context) error {
	return g.session.Connect(ctx)
}

// reconnect is scheduled exactly once after an unsolicited disconnect. It
// waits the fixed delay, aborts if a deliberate stop raced in or the session
// already reconnected, and otherwise issues a fresh connect attempt. The
// pending flag is cleared before the attempt, not after it returns: a
// Disconnected raised by this attempt's own failure must be able to arm the
// next cycle.
func (g *Gateway) reconnect(ctx context.Context) error {
	if g.stopped.Load() {
		g.reconnectPending.Store(false)
		g.log().Debug("gateway stopped, not retrying")
		return nil
	}

	select {
	case <-ctx.Done():
		g.reconnectPending.Store(false)
		return nil
	case <-time.After(g.reconnectDelay):
	}

	if g.stopped.Load() {
		g.reconnectPending.Store(false)
		g.log().Debug("gateway stopped during reconnect delay, not retrying")
		return nil
	}
	if g.session.IsConnected() {
		g.reconnectPending.Store(false)
		g.log().Warn("session already reconnected while retry pending")
		return nil
	}

	g.log().Warn("reconnecting", "dev_id", g.UniqueID())
	g.reconnects.Add(1)
	g.reconnectPending.Store(false)
	return g.session.Connect(ctx)
}
