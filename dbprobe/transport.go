package dbprobe

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrInvalidConfig indicates that the endpoint configuration was rejected before connecting.
	ErrInvalidConfig = errors.New("invalid endpoint configuration")
	// ErrTransportUnavailable indicates that no transport is registered for the endpoint kind.
	ErrTransportUnavailable = errors.New("transport unavailable")
	// ErrTimeout indicates that a probe stage exceeded its deadline.
	ErrTimeout = errors.New("probe timeout")
	// ErrConnectionRefused indicates that the server refused the connection.
	ErrConnectionRefused = errors.New("connection refused")
	// ErrUnexpectedResponse indicates a non-affirmative or malformed liveness response.
	ErrUnexpectedResponse = errors.New("unexpected liveness response")
)

func configErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}

// ServerInfo is what a successful liveness command reports.
type ServerInfo struct {
	Version  string // raw server version string, may be empty
	Response string // short description of the liveness response, e.g. "ok: 1"
}

// Session is a transient connection handle owned by one probe.
type Session interface {
	// Ping issues the liveness command and returns the server version when
	// available. A non-affirmative answer must wrap ErrUnexpectedResponse.
	Ping(ctx context.Context) (ServerInfo, error)

	// Diagnose runs one read-only call against database and returns a short
	// human-readable summary of what it saw.
	Diagnose(ctx context.Context, database string) (string, error)

	// Close releases the handle. It is called exactly once per session.
	Close(ctx context.Context) error
}

// Transport opens sessions to one kind of database.
type Transport interface {
	// Open acquires a session. Implementations must honour ctx and pass the
	// timeouts down to the driver where it supports them.
	Open(ctx context.Context, cfg EndpointConfig, t Timeouts) (Session, error)

	// Kind returns the endpoint kind this transport handles.
	Kind() Kind
}

// TransportFactory creates a transport. It is called once per prober.
type TransportFactory func() Transport

var (
	registryMu sync.RWMutex
	registry   = map[Kind]TransportFactory{}
)

// RegisterTransport registers the factory for kind.
// Called from init() of the checks sub-packages.
func RegisterTransport(kind Kind, factory TransportFactory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[kind] = factory
}

// lookupTransport returns a fresh transport for kind from the registry.
func lookupTransport(kind Kind) (Transport, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	f, ok := registry[kind]
	if !ok {
		return nil, false
	}
	return f(), true
}

// RegisteredKinds reports which kinds currently have a transport.
func RegisteredKinds() map[Kind]bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	out := make(map[Kind]bool, len(registry))
	for k := range registry {
		out[k] = true
	}
	return out
}
