package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/Seednode/lanparty/internal/discovery"
	"github.com/Seednode/lanparty/internal/game"
	"github.com/Seednode/lanparty/internal/session"
	"github.com/Seednode/lanparty/internal/wire"
)

func newDiscoveryContext(cfg *Config, backend discovery.Backend, log zerolog.Logger) *discovery.Context {
	return discovery.NewContext(backend,
		discovery.WithLogger(log),
		discovery.WithPolicy(game.Impostor, cfg.flappyPolicy()),
	)
}

// findSession blocks until a session of any of types resolves.
func findSession(ctx context.Context, dc *discovery.Context, types []game.Type, out io.Writer) (discovery.Record, error) {
	found := make(chan discovery.Record, 1)

	res := dc.Resolver()
	defer res.StopAll()

	for _, t := range types {
		err := res.Discover(t,
			func(rec discovery.Record) {
				select {
				case found <- rec:
				default:
				}
			},
			func(string) {},
		)
		if err != nil {
			return discovery.Record{}, fmt.Errorf("%w; join with --addr instead", err)
		}
	}

	fmt.Fprintf(out, "Looking for %s sessions...\n", joinTypes(types))

	select {
	case rec := <-found:
		return rec, nil
	case <-ctx.Done():
		return discovery.Record{}, ctx.Err()
	}
}

func runJoin(ctx context.Context, cfg *Config, in io.Reader, out io.Writer) error {
	log := newLogger(cfg)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		host string
		port int
	)

	if cfg.addr != "" {
		h, p, err := net.SplitHostPort(cfg.addr)
		if err != nil {
			return fmt.Errorf("invalid --addr %q: %w", cfg.addr, err)
		}
		port, err = strconv.Atoi(p)
		if err != nil || port < 1 || port > 65535 {
			return fmt.Errorf("invalid port in --addr %q", cfg.addr)
		}
		host = h
	} else {
		dc := newDiscoveryContext(cfg, discovery.NewZeroconfBackend(), log)
		defer dc.Close()

		rec, err := findSession(ctx, dc, cfg.gameTypes(), out)
		if err != nil {
			return err
		}

		fmt.Fprintf(out, "Found %q at %s\n", rec.ServiceName, rec.Addr())
		host, port = rec.IP.String(), rec.Port
	}

	cl := session.Connect(ctx, host, port, session.WithClientLogger(log))
	defer cl.Disconnect()

	go func() {
		_ = console(ctx, in, out, func(line string) (string, error) {
			switch strings.ToLower(strings.TrimSpace(line)) {
			case "":
				return "", nil
			case "word":
				return "", cl.Send(wire.RequestWord, "")
			case "quit", "exit":
				cancel()
				return "", errQuit
			default:
				return "commands: word, quit", nil
			}
		})
	}()

	return follow(cl.Events(), out)
}

// follow prints events until the stream ends. A broken connection is
// returned as an error.
func follow(events <-chan wire.Event, out io.Writer) error {
	for ev := range events {
		if ev.Name == wire.Error {
			return fmt.Errorf("lost connection to host: %s", ev.Payload)
		}

		if line := describe(ev); line != "" {
			fmt.Fprintln(out, line)
		}
	}

	return nil
}

// describe turns an event into a line for the player.
func describe(ev wire.Event) string {
	switch ev.Name {
	case wire.Category:
		return "Category: " + ev.Payload
	case wire.GameStarted:
		return "The game has started!"
	case wire.NewWord:
		return "Your word: " + ev.Payload
	case wire.AssignedWord:
		return "Your word this round: " + ev.Payload
	case wire.ImpostorRole:
		return "Role: " + ev.Payload
	case wire.ImpostorCount:
		return "Impostors this round: " + ev.Payload
	case wire.ShowImpostorRole:
		if ev.Payload == "false" {
			return "Impostors do not know who they are."
		}
		return ""
	case wire.CorrectWord, wire.ImpostorWord:
		// Kept for the reveal, not shown during play.
		return ""
	case wire.CharadesRole:
		return "Role: " + ev.Payload
	case wire.CharadesActors:
		return "Actors this round: " + ev.Payload
	case wire.CharadesWordCount:
		return ""
	case wire.CharadesWords:
		return "Words: " + strings.Join(wire.SplitList(ev.Payload), ", ")
	default:
		return ""
	}
}

func runBrowse(ctx context.Context, cfg *Config, out io.Writer) error {
	log := newLogger(cfg)

	dc := newDiscoveryContext(cfg, discovery.NewZeroconfBackend(), log)
	defer dc.Close()

	return browse(ctx, dc, cfg.gameTypes(), out)
}

func browse(ctx context.Context, dc *discovery.Context, types []game.Type, out io.Writer) error {
	var mu sync.Mutex

	res := dc.Resolver()
	for _, t := range types {
		err := res.Discover(t,
			func(rec discovery.Record) {
				mu.Lock()
				defer mu.Unlock()
				fmt.Fprintf(out, "+ %s %s (%s)\n", rec.ServiceName, rec.Addr(), rec.ServiceType)
			},
			func(name string) {
				mu.Lock()
				defer mu.Unlock()
				fmt.Fprintf(out, "- %s\n", name)
			},
		)
		if errors.Is(err, discovery.ErrUnavailable) {
			return fmt.Errorf("%w: check that this device may use the local network", err)
		}
		if err != nil {
			return err
		}
	}

	<-ctx.Done()
	res.StopAll()

	return nil
}

func joinTypes(types []game.Type) string {
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = t.String()
	}
	return strings.Join(names, ", ")
}
