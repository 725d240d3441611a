package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/Seednode/lanparty/internal/discovery"
	"github.com/Seednode/lanparty/internal/game"
	"github.com/Seednode/lanparty/internal/session"
	"github.com/Seednode/lanparty/internal/words"
)

var errQuit = errors.New("quit")

// Status is the host's view of its session, as served by the dashboard.
type Status struct {
	Game         string `json:"game"`
	Category     string `json:"category"`
	Service      string `json:"service"`
	Address      string `json:"address"`
	Port         int    `json:"port"`
	Clients      int    `json:"clients"`
	MaxClients   int    `json:"max_clients"`
	Started      bool   `json:"started"`
	Published    bool   `json:"published"`
	Discoverable bool   `json:"discoverable"`
}

// Host ties a session server to its advertisement, the dashboard feed and
// the console.
type Host struct {
	cfg      *Config
	log      zerolog.Logger
	gameType game.Type
	lists    *words.Lists
	dc       *discovery.Context
	srv      *session.Server
	feed     *Hub

	serviceName string
	address     string

	mu   sync.Mutex
	last *game.Assignment
}

func newHost(cfg *Config, backend discovery.Backend, log zerolog.Logger) (*Host, error) {
	lists := words.Builtin()

	if cfg.wordsDir != "" {
		n, err := lists.LoadDir(cfg.wordsDir)
		if err != nil {
			return nil, err
		}
		log.Info().Int("lists", n).Str("dir", cfg.wordsDir).Msg("loaded word lists")
	}

	if _, err := lists.Words(cfg.category); err != nil {
		return nil, fmt.Errorf("%w (have: %s)", err, strings.Join(lists.Categories(), ", "))
	}

	name := cfg.name
	if name == "" {
		name = "lanparty-" + uuid.NewString()[:8]
	}

	h := &Host{
		cfg:         cfg,
		log:         log,
		gameType:    cfg.gameType(),
		lists:       lists,
		dc:          discovery.NewContext(backend, discovery.WithLogger(log)),
		serviceName: name,
		address:     lanAddress(cfg.bind),
	}

	h.feed = newHub(log, func() any { return h.statusNotice() })

	h.srv = session.NewServer(words.NewDistributor(lists), session.Options{
		Bind:             cfg.bind,
		MaxClients:       cfg.maxClients,
		RequestRate:      rate.Limit(cfg.requestRate),
		CleanupInterval:  cfg.cleanupInterval,
		Logger:           log,
		Advertiser:       h.dc.Advertiser(),
		OnRosterChange:   h.onRosterChange,
		OnHostAssignment: h.onHostAssignment,
	})

	return h, nil
}

func (h *Host) Start(ctx context.Context) error {
	go h.feed.run(ctx)

	if _, err := h.srv.Start(h.cfg.category); err != nil {
		return err
	}

	h.publish()

	return nil
}

func (h *Host) Stop() {
	h.srv.Stop()
	h.dc.Close()
}

// publish advertises the session. Failing to advertise is not fatal:
// players can still join with the address shown on the dashboard.
func (h *Host) publish() {
	err := h.dc.Advertiser().Publish(h.serviceName, h.gameType.ServiceType(), h.srv.Port())
	if err != nil {
		h.log.Warn().Err(err).Msg("session is not discoverable, players must join with --addr")
	}
}

func (h *Host) Status() Status {
	_, published := h.dc.Advertiser().Published()

	return Status{
		Game:         h.gameType.String(),
		Category:     h.srv.Category(),
		Service:      h.serviceName,
		Address:      h.address,
		Port:         h.srv.Port(),
		Clients:      h.srv.Clients(),
		MaxClients:   h.cfg.maxClients,
		Started:      h.srv.Started(),
		Published:    published,
		Discoverable: h.dc.Available() == nil,
	}
}

func (h *Host) statusNotice() Notice {
	st := h.Status()
	return Notice{Type: "status", Status: &st}
}

func (h *Host) JoinAddress() string {
	return fmt.Sprintf("%s:%d", h.address, h.srv.Port())
}

func (h *Host) onRosterChange(clients int) {
	h.feed.Publish(h.statusNotice())
}

func (h *Host) onHostAssignment(a game.Assignment) {
	h.mu.Lock()
	h.last = &a
	h.mu.Unlock()

	h.feed.Publish(Notice{Type: "assignment", Assignment: &a})
}

func (h *Host) lastAssignment() (game.Assignment, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.last == nil {
		return game.Assignment{}, false
	}

	return *h.last, true
}

// Command runs one console line and returns what to show the host.
func (h *Host) Command(line string) (string, error) {
	verb, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
	arg = strings.TrimSpace(arg)

	switch strings.ToLower(verb) {
	case "":
		return "", nil
	case "start":
		return h.startRound()
	case "category":
		if arg == "" {
			return "categories: " + strings.Join(h.lists.Categories(), ", "), nil
		}
		if _, err := h.lists.Words(arg); err != nil {
			return "", err
		}
		h.srv.SetCategory(arg)
		h.publish()
		h.feed.Publish(h.statusNotice())
		return "category is now " + arg, nil
	case "word":
		word, err := h.srv.DrawWord()
		if err != nil {
			return "", err
		}
		return "your word: " + word, nil
	case "players":
		return fmt.Sprintf("%d of %d players connected, plus you", h.srv.Clients(), h.cfg.maxClients), nil
	case "help":
		return "commands: start, category [name], word, players, quit", nil
	case "quit", "exit":
		return "", errQuit
	default:
		return "", fmt.Errorf("unknown command %q, try help", verb)
	}
}

func (h *Host) startRound() (string, error) {
	category := h.srv.Category()

	switch h.gameType {
	case game.Impostor:
		round, err := h.srv.BroadcastImpostorStart(category, h.cfg.impostors, h.cfg.showRole)
		if err != nil {
			return "", err
		}
		a := round.Assignments[0]
		if a.Role == game.RoleImpostor && h.cfg.showRole {
			return fmt.Sprintf("round started with %d impostor(s). You are the impostor. Your word: %s", round.Impostors, a.Word), nil
		}
		return fmt.Sprintf("round started with %d impostor(s). Your word: %s", round.Impostors, a.Word), nil

	case game.Charades:
		round, err := h.srv.BroadcastCharadesStart(category, h.cfg.actors, h.cfg.wordCount)
		if err != nil {
			return "", err
		}
		if round.Assignments[0].Role == game.RoleActor {
			return fmt.Sprintf("round started with %d actor(s). You act out: %s", round.Actors, strings.Join(round.Words, ", ")), nil
		}
		return fmt.Sprintf("round started with %d actor(s). You are guessing.", round.Actors), nil

	default:
		if err := h.srv.BroadcastGuessWordStart(category); err != nil {
			return "", err
		}
		return "round started. Type 'word' to draw a word.", nil
	}
}

func runHost(ctx context.Context, cfg *Config, in io.Reader, out io.Writer) error {
	log := newLogger(cfg)

	h, err := newHost(cfg, discovery.NewZeroconfBackend(), log)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := h.Start(ctx); err != nil {
		return err
	}
	defer h.Stop()

	fmt.Fprintf(out, "Hosting %s (%s) as %q. Players can join with: lanparty join --addr %s\n",
		h.gameType, h.srv.Category(), h.serviceName, h.JoinAddress())

	if cfg.dashboardPort > 0 {
		go func() {
			if err := serveDashboard(ctx, cfg, h); err != nil {
				log.Error().Err(err).Msg("dashboard stopped")
			}
		}()
	}

	return console(ctx, in, out, h.Command)
}

// console feeds lines from in to handle until it returns errQuit, in runs
// dry or ctx is done.
func console(ctx context.Context, in io.Reader, out io.Writer, handle func(string) (string, error)) error {
	lines := make(chan string)

	go func() {
		defer close(lines)

		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				<-ctx.Done()
				return nil
			}

			reply, err := handle(line)
			if errors.Is(err, errQuit) {
				return nil
			}
			if err != nil {
				fmt.Fprintln(out, "error:", err)
				continue
			}
			if reply != "" {
				fmt.Fprintln(out, reply)
			}
		}
	}
}
