package discovery

import (
	"context"
	"errors"
	"net"
)

var (
	// ErrUnavailable means link-local discovery cannot run here: no
	// multicast-capable interface, or the platform refused access. Callers
	// decide whether to prompt the user; nothing is retried automatically.
	ErrUnavailable = errors.New("service discovery unavailable")

	ErrNotResolved = errors.New("service could not be resolved")
)

// Sighting is a change in the set of advertised instances of one service
// type: either an instance appeared, or it went away.
type Sighting struct {
	Instance string
	Gone     bool
}

// Endpoint is where a resolved instance accepts connections.
type Endpoint struct {
	IP   net.IP
	Port int
}

// Registration is one live advertisement.
type Registration interface {
	Shutdown()
}

// Backend is the link-local service discovery implementation. The zeroconf
// backend is used in production; tests substitute an in-memory one.
type Backend interface {
	// Probe reports ErrUnavailable if discovery cannot run at all.
	Probe() error

	Register(instance, service string, port int, text []string) (Registration, error)

	// Browse reports sightings for service on out until ctx is done.
	Browse(ctx context.Context, service string, out chan<- Sighting) error

	Lookup(ctx context.Context, instance, service string) (Endpoint, error)
}
