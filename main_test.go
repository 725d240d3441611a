package main

import (
	"bytes"
	"context"
	"net"
	"sync"
	"time"

	"github.com/Seednode/lanparty/internal/discovery"
	"github.com/Seednode/lanparty/internal/session"
)

type stubRegistration struct {
	b    *stubBackend
	once sync.Once
}

func (r *stubRegistration) Shutdown() {
	r.once.Do(func() {
		r.b.mu.Lock()
		r.b.live--
		r.b.mu.Unlock()
	})
}

type stubBackend struct {
	mu          sync.Mutex
	live        int
	published   []string
	instances   map[string]discovery.Endpoint
	unavailable error
}

func (b *stubBackend) Probe() error {
	return b.unavailable
}

func (b *stubBackend) Register(instance, service string, port int, text []string) (discovery.Registration, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.live++
	b.published = append(b.published, instance+" "+service)

	return &stubRegistration{b: b}, nil
}

func (b *stubBackend) Browse(ctx context.Context, service string, out chan<- discovery.Sighting) error {
	for name := range b.instances {
		select {
		case out <- discovery.Sighting{Instance: name}:
		case <-ctx.Done():
			return nil
		}
	}

	<-ctx.Done()

	return nil
}

func (b *stubBackend) Lookup(ctx context.Context, instance, service string) (discovery.Endpoint, error) {
	ep, ok := b.instances[instance]
	if !ok {
		return discovery.Endpoint{}, discovery.ErrNotResolved
	}

	return ep, nil
}

func (b *stubBackend) liveCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.live
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.buf.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.buf.String()
}

func testConfig() *Config {
	return &Config{
		actors:          1,
		bind:            "127.0.0.1",
		category:        "Animals",
		cleanupInterval: session.DefaultCleanupInterval,
		dashboardBind:   "127.0.0.1",
		game:            "impostor",
		games:           []string{"impostor"},
		impostors:       1,
		maxClients:      session.DefaultMaxClients,
		name:            "test-session",
		requestRate:     100,
		showRole:        true,
		wordCount:       3,
	}
}

func stubEndpoint(ip string, port int) discovery.Endpoint {
	return discovery.Endpoint{IP: net.ParseIP(ip), Port: port}
}

const waitFor = 2 * time.Second
