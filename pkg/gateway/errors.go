package gateway

import "errors"

// Domain errors for the gateway package.
var (
	// ErrSessionRequired is returned by NewGateway when no session client
	// is supplied.
	ErrSessionRequired = errors.New("gateway: session client is required")

	// ErrRegistryRequired is returned by NewGateway when no host registry
	// is supplied.
	ErrRegistryRequired = errors.New("gateway: host registry is required")

	// ErrEntityAdderRequired is returned by NewGateway when no entity adder
	// is supplied.
	ErrEntityAdderRequired = errors.New("gateway: entity adder is required")

	// ErrEntityNotFound is returned when a lookup references an entity id
	// the gateway has not parsed.
	ErrEntityNotFound = errors.New("gateway: entity not found")

	// ErrDeviceNotFound is returned when a lookup references a device id
	// the gateway has not parsed.
	ErrDeviceNotFound = errors.New("gateway: device not found")
)
