package session

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Seednode/lanparty/internal/wire"
)

const ConnectTimeout = 5 * time.Second

var ErrNotConnected = errors.New("not connected")

// Client follows one host. Inbound events arrive on Events in the order the
// host sent them. If the connection cannot be made, or breaks while open, a
// single synthetic wire.Error event is delivered before Events is closed.
// A local Disconnect closes Events without one.
type Client struct {
	log    zerolog.Logger
	events chan wire.Event
	done   chan struct{}

	mu     sync.Mutex
	nc     net.Conn
	closed bool

	wmu sync.Mutex
}

type ClientOption func(*Client)

func WithClientLogger(log zerolog.Logger) ClientOption {
	return func(c *Client) {
		c.log = log
	}
}

// Connect dials host:port in the background and starts the receive loop.
// Cancelling ctx disconnects.
func Connect(ctx context.Context, host string, port int, opts ...ClientOption) *Client {
	c := &Client{
		log:    zerolog.Nop(),
		events: make(chan wire.Event, sendQueue),
		done:   make(chan struct{}),
	}

	for _, opt := range opts {
		opt(c)
	}

	addr := net.JoinHostPort(host, strconv.Itoa(port))
	c.log = c.log.With().Str("host", addr).Logger()

	go c.run(ctx, addr)

	return c
}

func (c *Client) Events() <-chan wire.Event {
	return c.events
}

func (c *Client) run(ctx context.Context, addr string) {
	defer close(c.events)

	dialer := net.Dialer{Timeout: ConnectTimeout}

	nc, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		c.log.Warn().Err(err).Msg("connect failed")
		c.fail(err)
		return
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		_ = nc.Close()
		return
	}
	c.nc = nc
	c.mu.Unlock()

	defer nc.Close()

	c.log.Info().Msg("connected")

	finished := make(chan struct{})
	defer close(finished)

	go func() {
		select {
		case <-ctx.Done():
			c.Disconnect()
		case <-c.done:
		case <-finished:
		}
	}()

	scanner := bufio.NewScanner(nc)
	scanner.Buffer(make([]byte, 0, 4096), wire.MaxLineSize)

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		ev, err := wire.Decode(line)
		if err != nil {
			c.log.Warn().Err(err).Msg("skipping malformed event")
			continue
		}

		if !c.deliver(ev) {
			return
		}
	}

	err = scanner.Err()
	if err == nil {
		err = io.EOF
	}

	c.log.Info().Err(err).Msg("connection ended")
	c.fail(err)
}

// fail delivers the synthetic error event, unless the disconnect was ours.
func (c *Client) fail(err error) {
	c.mu.Lock()
	local := c.closed
	c.mu.Unlock()

	if local {
		return
	}

	c.deliver(wire.Event{Name: wire.Error, Payload: err.Error()})
}

func (c *Client) deliver(ev wire.Event) bool {
	select {
	case c.events <- ev:
		return true
	case <-c.done:
		return false
	}
}

// Send writes one event to the host. Failures are logged and returned but
// never retried.
func (c *Client) Send(event, payload string) error {
	c.mu.Lock()
	nc := c.nc
	closed := c.closed
	c.mu.Unlock()

	if nc == nil || closed {
		return ErrNotConnected
	}

	c.wmu.Lock()
	defer c.wmu.Unlock()

	_ = nc.SetWriteDeadline(time.Now().Add(writeTimeout))

	if err := wire.Encode(nc, wire.Event{Name: event, Payload: payload}); err != nil {
		c.log.Warn().Err(err).Str("event", event).Msg("send failed")
		return err
	}

	return nil
}

// Disconnect closes the connection. It is safe to call at any time, any
// number of times.
func (c *Client) Disconnect() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.done)
	nc := c.nc
	c.mu.Unlock()

	if nc != nil {
		_ = nc.Close()
	}
}
