package session

import (
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/Seednode/lanparty/internal/wire"
)

const (
	sendQueue    = 64
	writeTimeout = 10 * time.Second
)

// conn is one admitted client. Every outbound event goes through its send
// queue and a single write pump, so a client sees events in the order they
// were queued.
type conn struct {
	id      uint64
	nc      net.Conn
	log     zerolog.Logger
	limiter *rate.Limiter

	mu     sync.Mutex
	send   chan wire.Event
	closed bool
}

func newConn(id uint64, nc net.Conn, log zerolog.Logger, limiter *rate.Limiter) *conn {
	return &conn{
		id:      id,
		nc:      nc,
		log:     log.With().Uint64("conn", id).Str("remote", nc.RemoteAddr().String()).Logger(),
		limiter: limiter,
		send:    make(chan wire.Event, sendQueue),
	}
}

// enqueue queues evs without blocking. A full queue means the peer has
// stopped reading; the connection is closed and false returned.
func (c *conn) enqueue(evs ...wire.Event) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}

	for _, ev := range evs {
		select {
		case c.send <- ev:
		default:
			c.log.Warn().Str("event", ev.Name).Msg("send queue full, dropping connection")
			c.closeLocked()
			return false
		}
	}

	return true
}

func (c *conn) writePump() {
	failed := false

	for ev := range c.send {
		if failed {
			continue
		}

		_ = c.nc.SetWriteDeadline(time.Now().Add(writeTimeout))

		if err := wire.Encode(c.nc, ev); err != nil {
			c.log.Debug().Err(err).Str("event", ev.Name).Msg("write failed")
			failed = true
			c.close()
		}
	}
}

func (c *conn) alive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return !c.closed
}

func (c *conn) close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closeLocked()
}

func (c *conn) closeLocked() {
	if c.closed {
		return
	}

	c.closed = true
	close(c.send)
	_ = c.nc.Close()
}
