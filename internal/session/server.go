/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package session runs the TCP side of a hosted game: the host's Server
// that admits clients and hands out roles and words, and the Client a
// joining device uses to follow along.
package session

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"math/rand/v2"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/Seednode/lanparty/internal/game"
	"github.com/Seednode/lanparty/internal/wire"
	"github.com/Seednode/lanparty/internal/words"
)

const (
	DefaultMaxClients      = 20
	DefaultCleanupInterval = 3 * time.Second
	DefaultRequestRate     = 5
)

var (
	ErrStarted = errors.New("server already started")
	ErrStopped = errors.New("server stopped")
)

// Unpublisher withdraws the session's discovery record.
type Unpublisher interface {
	Unpublish()
}

type Options struct {
	// Bind is the address to listen on; the port is always ephemeral.
	Bind       string
	MaxClients int

	// RequestRate limits request_word per connection, per second.
	RequestRate  rate.Limit
	RequestBurst int

	CleanupInterval time.Duration

	Logger     zerolog.Logger
	Rand       *rand.Rand
	Advertiser Unpublisher

	// OnRosterChange receives the new client count whenever it changes.
	// Calls never overlap and arrive in the order the roster changed. It
	// must not call Stop.
	OnRosterChange func(clients int)

	// OnHostAssignment receives the host's own assignment once every
	// client has been sent theirs.
	OnHostAssignment func(game.Assignment)
}

// Server is the authoritative state of one hosted session.
//
// Player indices are fixed by roster order: the host is player 0 and
// roster[i] is player i+1. Clients are appended on admission and removed
// without reordering the rest, so indices follow join order.
type Server struct {
	opts  Options
	log   zerolog.Logger
	words *words.Distributor

	// notify is held from a roster change until its callback returns.
	// Lock order: notify, then mu.
	notify sync.Mutex

	mu       sync.Mutex
	listener net.Listener
	roster   []*conn
	nextID   uint64
	category string
	started  bool
	stopped  bool
	rng      *rand.Rand
	done     chan struct{}
}

func NewServer(dist *words.Distributor, opts Options) *Server {
	if opts.MaxClients <= 0 || opts.MaxClients > DefaultMaxClients {
		opts.MaxClients = DefaultMaxClients
	}
	if opts.RequestRate <= 0 {
		opts.RequestRate = DefaultRequestRate
	}
	if opts.RequestBurst <= 0 {
		opts.RequestBurst = max(1, int(opts.RequestRate))
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = DefaultCleanupInterval
	}

	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	return &Server{
		opts:  opts,
		log:   opts.Logger,
		words: dist,
		rng:   rng,
		done:  make(chan struct{}),
	}
}

// Start binds an ephemeral port and starts admitting clients. It returns
// the port once the listener is ready.
func (s *Server) Start(category string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return 0, ErrStopped
	}
	if s.listener != nil {
		return 0, ErrStarted
	}

	ln, err := net.Listen("tcp", net.JoinHostPort(s.opts.Bind, "0"))
	if err != nil {
		return 0, err
	}

	s.listener = ln
	s.category = category
	s.words.Reset()

	go s.acceptLoop(ln)
	go s.cleanupLoop()

	port := ln.Addr().(*net.TCPAddr).Port

	s.log.Info().Str("addr", ln.Addr().String()).Str("category", category).Msg("session listening")

	return port, nil
}

func (s *Server) Port() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener == nil {
		return 0
	}

	return s.listener.Addr().(*net.TCPAddr).Port
}

// Clients returns the number of connected clients, not counting the host.
func (s *Server) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.roster)
}

func (s *Server) Category() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.category
}

func (s *Server) Started() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.started
}

func (s *Server) acceptLoop(ln net.Listener) {
	for {
		nc, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}

			s.log.Warn().Err(err).Msg("accept failed")

			select {
			case <-s.done:
				return
			case <-time.After(50 * time.Millisecond):
			}

			continue
		}

		s.admit(nc)
	}
}

func (s *Server) admit(nc net.Conn) {
	s.notify.Lock()
	defer s.notify.Unlock()

	s.mu.Lock()

	if s.stopped || len(s.roster) >= s.opts.MaxClients {
		full := len(s.roster)
		s.mu.Unlock()

		_ = nc.Close()

		s.log.Info().
			Str("remote", nc.RemoteAddr().String()).
			Int("clients", full).
			Msg("session full, refused connection")

		return
	}

	s.nextID++
	c := newConn(s.nextID, nc, s.log, rate.NewLimiter(s.opts.RequestRate, s.opts.RequestBurst))

	// Queued while the roster is locked, so no broadcast can get ahead of it.
	c.enqueue(wire.Event{Name: wire.Category, Payload: s.category})

	s.roster = append(s.roster, c)
	clients := len(s.roster)
	s.mu.Unlock()

	c.log.Info().Int("clients", clients).Msg("client joined")

	go c.writePump()
	go s.readLoop(c)

	s.rosterChanged(clients)
}

func (s *Server) readLoop(c *conn) {
	defer s.drop(c)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		select {
		case <-s.done:
			cancel()
		case <-ctx.Done():
		}
	}()

	scanner := bufio.NewScanner(c.nc)
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

		switch ev.Name {
		case wire.RequestWord:
			if !s.handleRequestWord(ctx, c) {
				return
			}
		default:
			c.log.Debug().Str("event", ev.Name).Msg("ignoring event")
		}
	}

	if err := scanner.Err(); err != nil {
		c.log.Debug().Err(err).Msg("read failed")
	}
}

// handleRequestWord answers one request_word with one new_word. Requests
// beyond the connection's rate are held back until the limiter allows them.
// It reports false once the server is stopping.
func (s *Server) handleRequestWord(ctx context.Context, c *conn) bool {
	if err := c.limiter.Wait(ctx); err != nil {
		c.log.Debug().Err(err).Msg("request_word abandoned")
		return false
	}

	category := s.Category()

	word, err := s.words.DrawUnique(category)
	if err != nil {
		c.log.Warn().Err(err).Str("category", category).Msg("could not draw word")
		return true
	}

	c.enqueue(wire.Event{Name: wire.NewWord, Payload: word})

	return true
}

// drop removes c from the roster and closes it.
func (s *Server) drop(c *conn) {
	s.notify.Lock()
	defer s.notify.Unlock()

	s.mu.Lock()
	removed := false
	for i, rc := range s.roster {
		if rc == c {
			s.roster = append(s.roster[:i], s.roster[i+1:]...)
			removed = true
			break
		}
	}
	clients := len(s.roster)
	s.mu.Unlock()

	c.close()

	if removed {
		c.log.Info().Int("clients", clients).Msg("client left")
		s.rosterChanged(clients)
	}
}

// CleanupDeadConnections removes clients whose connection has already been
// closed and returns how many were removed. The roster callback fires only
// if the count changed.
func (s *Server) CleanupDeadConnections() int {
	s.notify.Lock()
	defer s.notify.Unlock()

	s.mu.Lock()
	before := len(s.roster)
	live := s.roster[:0]
	var dead []*conn
	for _, c := range s.roster {
		if c.alive() {
			live = append(live, c)
		} else {
			dead = append(dead, c)
		}
	}
	clear(s.roster[len(live):])
	s.roster = live
	after := len(s.roster)
	s.mu.Unlock()

	for _, c := range dead {
		c.close()
	}

	if after != before {
		s.log.Info().Int("removed", before-after).Int("clients", after).Msg("cleaned up dead connections")
		s.rosterChanged(after)
	}

	return before - after
}

func (s *Server) cleanupLoop() {
	ticker := time.NewTicker(s.opts.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.CleanupDeadConnections()
		}
	}
}

// Stop withdraws the advertisement, closes the listener and every client.
// Calling it again does nothing.
func (s *Server) Stop() {
	s.notify.Lock()
	defer s.notify.Unlock()

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	close(s.done)

	ln := s.listener
	roster := s.roster
	s.roster = nil
	s.mu.Unlock()

	if s.opts.Advertiser != nil {
		s.opts.Advertiser.Unpublish()
	}

	if ln != nil {
		_ = ln.Close()
	}

	for _, c := range roster {
		c.close()
	}

	if len(roster) > 0 {
		s.rosterChanged(0)
	}

	s.log.Info().Msg("session stopped")
}

func (s *Server) rosterChanged(clients int) {
	if s.opts.OnRosterChange != nil {
		s.opts.OnRosterChange(clients)
	}
}

func (s *Server) hostAssigned(a game.Assignment) {
	if s.opts.OnHostAssignment != nil {
		s.opts.OnHostAssignment(a)
	}
}

func (s *Server) unpublish() {
	if s.opts.Advertiser != nil {
		s.opts.Advertiser.Unpublish()
	}
}
