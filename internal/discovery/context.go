// Package discovery advertises hosted sessions on the local network and
// finds sessions advertised by other devices.
package discovery

import (
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Seednode/lanparty/internal/game"
)

// Record describes an advertised or discovered session.
type Record struct {
	ServiceName string `json:"service_name"`
	ServiceType string `json:"service_type"`
	Port        int    `json:"port"`
	IP          net.IP `json:"ip,omitempty"`
}

// Addr is the host:port a client should dial.
func (r Record) Addr() string {
	return net.JoinHostPort(r.IP.String(), fmt.Sprint(r.Port))
}

// Policy tunes resolution and lost-record handling for one game type.
type Policy struct {
	// Retries is how many extra resolve attempts a record gets.
	Retries int
	Backoff time.Duration

	// LostDelay holds back "lost" notifications; a rediscovery of the same
	// IP within the window cancels them. Zero delivers immediately.
	LostDelay time.Duration
}

// FlappyPolicy suits game types whose advertisements come and go while the
// host is still there.
var FlappyPolicy = Policy{
	Retries:   3,
	Backoff:   time.Second,
	LostDelay: 5 * time.Second,
}

// Context owns the discovery state of one process side (host or joiner):
// its backend, its single advertiser and its resolver.
type Context struct {
	backend  Backend
	log      zerolog.Logger
	policies map[game.Type]Policy

	mu  sync.Mutex
	adv *Advertiser
	res *Resolver
}

type ContextOption func(*Context)

func WithLogger(log zerolog.Logger) ContextOption {
	return func(c *Context) {
		c.log = log
	}
}

func WithPolicy(t game.Type, p Policy) ContextOption {
	return func(c *Context) {
		c.policies[t] = p
	}
}

func NewContext(backend Backend, opts ...ContextOption) *Context {
	c := &Context{
		backend: backend,
		log:     zerolog.Nop(),
		policies: map[game.Type]Policy{
			game.Impostor: FlappyPolicy,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Available returns nil when discovery can run, or an error wrapping
// ErrUnavailable.
func (c *Context) Available() error {
	return c.backend.Probe()
}

func (c *Context) Policy(t game.Type) Policy {
	return c.policies[t]
}

func (c *Context) Advertiser() *Advertiser {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.adv == nil {
		c.adv = &Advertiser{dc: c}
	}

	return c.adv
}

func (c *Context) Resolver() *Resolver {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.res == nil {
		c.res = &Resolver{dc: c, watches: make(map[int]*watch)}
	}

	return c.res
}

// Close withdraws any advertisement and stops every watch.
func (c *Context) Close() {
	c.mu.Lock()
	adv, res := c.adv, c.res
	c.mu.Unlock()

	if adv != nil {
		adv.Unpublish()
	}
	if res != nil {
		res.StopAll()
	}
}
