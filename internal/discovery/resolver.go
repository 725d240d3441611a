package discovery

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Seednode/lanparty/internal/game"
)

// Resolver runs discovery watches. Each watch reports resolved sessions
// through its found callback and departures through its lost callback.
// Callbacks run on the resolver's goroutines; callers that need a single
// thread must hop themselves.
type Resolver struct {
	dc *Context

	mu      sync.Mutex
	nextID  int
	watches map[int]*watch
}

// Discover watches for sessions of gameType using that type's policy.
func (r *Resolver) Discover(gameType game.Type, found func(Record), lost func(serviceName string)) error {
	return r.DiscoverService(gameType.ServiceType(), r.dc.Policy(gameType), found, lost)
}

// DiscoverService watches an arbitrary service type, for sessions that are
// advertised under a type other than their logical game.
func (r *Resolver) DiscoverService(serviceType string, policy Policy, found func(Record), lost func(serviceName string)) error {
	if err := r.dc.backend.Probe(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())

	w := &watch{
		dc:          r.dc,
		ctx:         ctx,
		cancel:      cancel,
		serviceType: serviceType,
		policy:      policy,
		found:       found,
		lost:        lost,
		known:       make(map[string]Record),
		resolving:   make(map[string]context.CancelFunc),
		pending:     make(map[string]*pendingLost),
	}

	r.mu.Lock()
	r.nextID++
	r.watches[r.nextID] = w
	r.mu.Unlock()

	r.dc.log.Debug().Str("type", serviceType).Msg("discovery started")

	go w.run()

	return nil
}

// Active reports how many watches are running.
func (r *Resolver) Active() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.watches)
}

// StopAll cancels every watch and every pending lost notification.
func (r *Resolver) StopAll() {
	r.mu.Lock()
	watches := r.watches
	r.watches = make(map[int]*watch)
	r.mu.Unlock()

	for _, w := range watches {
		w.stop()
	}
}

type pendingLost struct {
	timer     *time.Timer
	instances []string
}

type watch struct {
	dc          *Context
	ctx         context.Context
	cancel      context.CancelFunc
	serviceType string
	policy      Policy
	found       func(Record)
	lost        func(string)

	mu        sync.Mutex
	known     map[string]Record
	resolving map[string]context.CancelFunc
	// pending lost notifications, keyed by IP: a host that re-advertises
	// under a new instance name keeps its address.
	pending map[string]*pendingLost
}

func (w *watch) run() {
	sightings := make(chan Sighting)

	go func() {
		defer close(sightings)

		err := w.dc.backend.Browse(w.ctx, w.serviceType, sightings)
		if err != nil && !errors.Is(err, context.Canceled) {
			w.dc.log.Warn().Err(err).Str("type", w.serviceType).Msg("browse ended")
		}
	}()

	for s := range sightings {
		if s.Gone {
			w.onGone(s.Instance)
		} else {
			w.onSeen(s.Instance)
		}
	}
}

func (w *watch) stop() {
	w.cancel()

	w.mu.Lock()
	defer w.mu.Unlock()

	for key, p := range w.pending {
		p.timer.Stop()
		delete(w.pending, key)
	}
}

func (w *watch) onSeen(instance string) {
	w.mu.Lock()
	if _, ok := w.known[instance]; ok {
		w.mu.Unlock()
		return
	}
	if _, ok := w.resolving[instance]; ok {
		w.mu.Unlock()
		return
	}

	ctx, cancel := context.WithCancel(w.ctx)
	w.resolving[instance] = cancel
	w.mu.Unlock()

	go w.resolve(ctx, instance)
}

func (w *watch) resolve(ctx context.Context, instance string) {
	defer func() {
		w.mu.Lock()
		if cancel, ok := w.resolving[instance]; ok {
			cancel()
			delete(w.resolving, instance)
		}
		w.mu.Unlock()
	}()

	for attempt := 0; attempt <= w.policy.Retries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(w.policy.Backoff):
			case <-ctx.Done():
				return
			}
		}

		ep, err := w.dc.backend.Lookup(ctx, instance, w.serviceType)
		if err == nil {
			w.onResolved(instance, ep)
			return
		}

		if ctx.Err() != nil {
			return
		}

		w.dc.log.Debug().
			Err(err).
			Str("service", instance).
			Int("attempt", attempt+1).
			Msg("resolve failed")
	}

	w.dc.log.Debug().Str("service", instance).Msg("giving up on resolve")
}

func (w *watch) onResolved(instance string, ep Endpoint) {
	rec := Record{
		ServiceName: instance,
		ServiceType: w.serviceType,
		Port:        ep.Port,
		IP:          ep.IP,
	}

	w.mu.Lock()
	if w.ctx.Err() != nil {
		w.mu.Unlock()
		return
	}

	w.known[instance] = rec

	flapped := false
	key := ep.IP.String()
	if p, ok := w.pending[key]; ok {
		p.timer.Stop()
		delete(w.pending, key)

		for _, name := range p.instances {
			if name == instance {
				flapped = true
			}
		}

		w.dc.log.Debug().Str("ip", key).Str("service", instance).Msg("lost suppressed by rediscovery")
	}
	w.mu.Unlock()

	// The same instance coming back inside the window was never reported
	// lost, so it is not reported found again either.
	if flapped {
		return
	}

	w.found(rec)
}

func (w *watch) onGone(instance string) {
	w.mu.Lock()

	if cancel, ok := w.resolving[instance]; ok {
		cancel()
		delete(w.resolving, instance)
	}

	rec, ok := w.known[instance]
	if !ok {
		w.mu.Unlock()
		return
	}
	delete(w.known, instance)

	if w.policy.LostDelay <= 0 {
		w.mu.Unlock()
		w.lost(instance)
		return
	}

	key := rec.IP.String()
	if p, ok := w.pending[key]; ok {
		p.instances = append(p.instances, instance)
		w.mu.Unlock()
		return
	}

	p := &pendingLost{instances: []string{instance}}
	p.timer = time.AfterFunc(w.policy.LostDelay, func() {
		w.fireLost(key, p)
	})
	w.pending[key] = p
	w.mu.Unlock()
}

func (w *watch) fireLost(key string, p *pendingLost) {
	w.mu.Lock()
	if w.pending[key] != p || w.ctx.Err() != nil {
		w.mu.Unlock()
		return
	}
	delete(w.pending, key)
	instances := p.instances
	w.mu.Unlock()

	for _, instance := range instances {
		w.lost(instance)
	}
}
