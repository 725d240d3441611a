package discovery

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeRegistration struct {
	backend  *fakeBackend
	instance string
	shutdown bool
}

func (r *fakeRegistration) Shutdown() {
	r.backend.mu.Lock()
	defer r.backend.mu.Unlock()

	r.shutdown = true
	delete(r.backend.live, r.instance)
}

type fakeBackend struct {
	mu          sync.Mutex
	unavailable error
	live        map[string]*fakeRegistration
	history     []*fakeRegistration
	browsers    map[string]chan<- Sighting
	browsing    chan string
	endpoints   map[string]Endpoint
	failures    map[string]int
	lookups     map[string]int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		live:      make(map[string]*fakeRegistration),
		browsers:  make(map[string]chan<- Sighting),
		browsing:  make(chan string, 16),
		endpoints: make(map[string]Endpoint),
		failures:  make(map[string]int),
		lookups:   make(map[string]int),
	}
}

func (f *fakeBackend) Probe() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.unavailable
}

func (f *fakeBackend) Register(instance, service string, port int, text []string) (Registration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	reg := &fakeRegistration{backend: f, instance: instance}
	f.live[instance] = reg
	f.history = append(f.history, reg)

	return reg, nil
}

func (f *fakeBackend) Browse(ctx context.Context, service string, out chan<- Sighting) error {
	f.mu.Lock()
	f.browsers[service] = out
	f.mu.Unlock()

	f.browsing <- service
	<-ctx.Done()

	f.mu.Lock()
	delete(f.browsers, service)
	f.mu.Unlock()

	return ctx.Err()
}

func (f *fakeBackend) Lookup(ctx context.Context, instance, service string) (Endpoint, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.lookups[instance]++

	if f.failures[instance] > 0 {
		f.failures[instance]--
		return Endpoint{}, ErrNotResolved
	}

	ep, ok := f.endpoints[instance]
	if !ok {
		return Endpoint{}, ErrNotResolved
	}

	return ep, nil
}

func (f *fakeBackend) setEndpoint(instance, ip string, port int) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.endpoints[instance] = Endpoint{IP: net.ParseIP(ip), Port: port}
}

func (f *fakeBackend) lookupCount(instance string) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.lookups[instance]
}

func (f *fakeBackend) waitBrowsing(t *testing.T, service string) {
	t.Helper()

	select {
	case got := <-f.browsing:
		require.Equal(t, service, got)
	case <-time.After(time.Second):
		t.Fatalf("browse for %s never started", service)
	}
}

func (f *fakeBackend) sight(t *testing.T, service string, s Sighting) {
	t.Helper()

	f.mu.Lock()
	out := f.browsers[service]
	f.mu.Unlock()
	require.NotNil(t, out, "no browser for %s", service)

	select {
	case out <- s:
	case <-time.After(time.Second):
		t.Fatalf("sighting %+v not consumed", s)
	}
}
