package discovery

import "errors"

// Package-level sentinel errors for discovery operations.
var (
	// ErrClosed is returned when an operation is attempted on a closed Monitor.
	ErrClosed = errors.New("discovery: closed")

	// ErrAlreadyStarted is returned when starting an already-started Monitor.
	ErrAlreadyStarted = errors.New("discovery: already started")

	// ErrResolverFailed is returned when the underlying mDNS resolver could
	// not be created.
	ErrResolverFailed = errors.New("discovery: resolver initialization failed")
)
