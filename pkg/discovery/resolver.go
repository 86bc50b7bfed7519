package discovery

import (
	"context"
	"fmt"

	"github.com/grandcat/zeroconf"
)

const (
	// ServiceType is the DNS-SD service type Terncy hubs advertise.
	ServiceType = "_websocket._tcp"

	// DefaultDomain is the mDNS domain browsed for hub records.
	DefaultDomain = "local."
)

// Resolver is the interface for mDNS browsing. It allows for dependency
// injection in tests.
type Resolver interface {
	// Browse browses for services of the given type, sending discovered
	// entries on the channel until the context is cancelled. The resolver
	// closes the channel when browsing ends.
	Browse(ctx context.Context, service, domain string, entries chan<- *zeroconf.ServiceEntry) error
}

// zeroconfResolver is the production implementation using grandcat/zeroconf.
type zeroconfResolver struct{}

func (zeroconfResolver) Browse(ctx context.Context, service, domain string, entries chan<- *zeroconf.ServiceEntry) error {
	r, err := zeroconf.NewResolver(nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrResolverFailed, err)
	}
	return r.Browse(ctx, service, domain, entries)
}
