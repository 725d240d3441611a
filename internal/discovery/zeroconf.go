/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package discovery

import (
	"context"
	"fmt"
	"maps"
	"net"
	"slices"
	"strings"
	"time"

	"github.com/grandcat/zeroconf"
)

const (
	domain = "local."

	defaultSweep = 4 * time.Second
)

// ZeroconfBackend advertises and browses over multicast DNS.
//
// zeroconf reports each instance once per browse and never reports
// goodbyes, so Browse runs back-to-back sweeps and treats an instance that
// is missing from a whole sweep as gone.
type ZeroconfBackend struct {
	Sweep time.Duration
}

func NewZeroconfBackend() *ZeroconfBackend {
	return &ZeroconfBackend{Sweep: defaultSweep}
}

func (z *ZeroconfBackend) Probe() error {
	ifaces, err := net.Interfaces()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp != 0 && iface.Flags&net.FlagMulticast != 0 {
			return nil
		}
	}

	return fmt.Errorf("%w: no multicast interface is up", ErrUnavailable)
}

func (z *ZeroconfBackend) Register(instance, service string, port int, text []string) (Registration, error) {
	srv, err := zeroconf.Register(instance, trimService(service), domain, port, text, nil)
	if err != nil {
		return nil, err
	}

	return srv, nil
}

func (z *ZeroconfBackend) Browse(ctx context.Context, service string, out chan<- Sighting) error {
	sweep := z.sweepDuration()

	previous := make(map[string]bool)

	for ctx.Err() == nil {
		current, err := z.sweep(ctx, trimService(service), sweep)
		if err != nil {
			return err
		}

		// A sweep cut short by cancellation proves nothing about absence.
		if ctx.Err() != nil {
			return nil
		}

		for _, s := range diffSweeps(previous, current) {
			if !emit(ctx, out, s) {
				return nil
			}
		}

		previous = current
	}

	return nil
}

// diffSweeps reports instances new in current, then instances missing from
// it, each in name order.
func diffSweeps(previous, current map[string]bool) []Sighting {
	var out []Sighting

	for _, instance := range slices.Sorted(maps.Keys(current)) {
		if !previous[instance] {
			out = append(out, Sighting{Instance: instance})
		}
	}

	for _, instance := range slices.Sorted(maps.Keys(previous)) {
		if !current[instance] {
			out = append(out, Sighting{Instance: instance, Gone: true})
		}
	}

	return out
}

func (z *ZeroconfBackend) sweep(ctx context.Context, service string, d time.Duration) (map[string]bool, error) {
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	sweepCtx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry)
	if err := resolver.Browse(sweepCtx, service, domain, entries); err != nil {
		return nil, err
	}

	// The resolver closes entries once sweepCtx is done.
	seen := make(map[string]bool)
	for e := range entries {
		seen[e.Instance] = true
	}

	return seen, nil
}

func (z *ZeroconfBackend) Lookup(ctx context.Context, instance, service string) (Endpoint, error) {
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return Endpoint{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	lookupCtx, cancel := context.WithTimeout(ctx, z.sweepDuration())
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry)
	if err := resolver.Lookup(lookupCtx, instance, trimService(service), domain, entries); err != nil {
		return Endpoint{}, err
	}

	return firstEndpoint(entries, cancel)
}

// firstEndpoint takes the first entry with an address, preferring IPv4,
// then cancels the lookup and drains entries until the resolver closes it.
// The resolver blocks on every send, so entries must be read to the end.
func firstEndpoint(entries <-chan *zeroconf.ServiceEntry, cancel context.CancelFunc) (Endpoint, error) {
	var (
		ep    Endpoint
		found bool
	)

	for e := range entries {
		if found {
			continue
		}

		switch {
		case len(e.AddrIPv4) > 0:
			ep, found = Endpoint{IP: e.AddrIPv4[0], Port: e.Port}, true
		case len(e.AddrIPv6) > 0:
			ep, found = Endpoint{IP: e.AddrIPv6[0], Port: e.Port}, true
		default:
			continue
		}

		cancel()
	}

	if !found {
		return Endpoint{}, ErrNotResolved
	}

	return ep, nil
}

func (z *ZeroconfBackend) sweepDuration() time.Duration {
	if z.Sweep <= 0 {
		return defaultSweep
	}

	return z.Sweep
}

func emit(ctx context.Context, out chan<- Sighting, s Sighting) bool {
	select {
	case out <- s:
		return true
	case <-ctx.Done():
		return false
	}
}

// zeroconf wants "_impostor._tcp", without the trailing dot.
func trimService(service string) string {
	return strings.TrimSuffix(service, ".")
}
