package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/Seednode/lanparty/internal/discovery"
	"github.com/Seednode/lanparty/internal/game"
	"github.com/Seednode/lanparty/internal/session"
)

type Config struct {
	actors          int
	addr            string
	bind            string
	category        string
	cleanupInterval time.Duration
	dashboardBind   string
	dashboardPort   int
	game            string
	games           []string
	impostors       int
	lostDelay       time.Duration
	maxClients      int
	name            string
	profile         bool
	requestRate     float64
	resolveBackoff  time.Duration
	resolveRetries  int
	showRole        bool
	verbose         bool
	wordCount       int
	wordsDir        string
}

func (c *Config) validateHost() error {
	if _, err := game.ParseType(c.game); err != nil {
		return err
	}
	if c.category == "" {
		return errors.New("--category must not be empty")
	}
	if c.maxClients < 1 || c.maxClients > session.DefaultMaxClients {
		return fmt.Errorf("invalid max clients (must be between 1-%d inclusive): %d", session.DefaultMaxClients, c.maxClients)
	}
	if c.dashboardPort < 0 || c.dashboardPort > 65535 {
		return fmt.Errorf("invalid dashboard port (must be between 0-65535 inclusive): %d", c.dashboardPort)
	}
	if c.requestRate <= 0 {
		return fmt.Errorf("invalid request rate (must be positive): %v", c.requestRate)
	}
	return nil
}

func (c *Config) validateDiscovery() error {
	if len(c.games) == 0 {
		return errors.New("at least one --games value is required")
	}
	for _, g := range c.games {
		if _, err := game.ParseType(g); err != nil {
			return err
		}
	}
	if c.resolveRetries < 0 {
		return fmt.Errorf("invalid resolve retries (must not be negative): %d", c.resolveRetries)
	}
	return nil
}

func (c *Config) gameType() game.Type {
	t, _ := game.ParseType(c.game)
	return t
}

func (c *Config) gameTypes() []game.Type {
	out := make([]game.Type, 0, len(c.games))
	for _, g := range c.games {
		t, _ := game.ParseType(g)
		out = append(out, t)
	}
	return out
}

// flappyPolicy is applied to the impostor game type, whose hosts are the
// ones known to drop off and reappear.
func (c *Config) flappyPolicy() discovery.Policy {
	return discovery.Policy{
		Retries:   c.resolveRetries,
		Backoff:   c.resolveBackoff,
		LostDelay: c.lostDelay,
	}
}

// bindFlags lets every flag in fs be set from the environment, as
// LANPARTY_<FLAG_NAME>.
func bindFlags(v *viper.Viper, fs *pflag.FlagSet) {
	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			val := v.Get(f.Name)
			if s, ok := val.([]string); ok {
				val = strings.Join(s, ",")
			}
			_ = fs.Set(f.Name, fmt.Sprintf("%v", val))
		}
	})
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("LANPARTY")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:     "lanparty",
		Short:   "Host and join party games over the local network.",
		Args:    cobra.ExactArgs(0),
		Version: releaseVersion,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			bindFlags(v, cmd.Flags())
		},
	}

	pfs := cmd.PersistentFlags()
	pfs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display additional output (env: LANPARTY_VERBOSE)")
	pfs.StringVar(&cfg.wordsDir, "words-dir", "", "directory of *.txt word lists to add as categories (env: LANPARTY_WORDS_DIR)")

	cmd.AddCommand(newHostCmd(cfg), newJoinCmd(cfg), newBrowseCmd(cfg))

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("lanparty v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}

func newHostCmd(cfg *Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "host",
		Short: "Host a session and advertise it on the local network.",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validateHost(); err != nil {
				return err
			}
			return runHost(cmd.Context(), cfg, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	fs := cmd.Flags()
	fs.IntVar(&cfg.actors, "actors", 1, "actors per charades round (env: LANPARTY_ACTORS)")
	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to accept players on (env: LANPARTY_BIND)")
	fs.StringVarP(&cfg.category, "category", "c", "Animals", "starting word category (env: LANPARTY_CATEGORY)")
	fs.DurationVar(&cfg.cleanupInterval, "cleanup-interval", session.DefaultCleanupInterval, "how often dead connections are swept (env: LANPARTY_CLEANUP_INTERVAL)")
	fs.StringVar(&cfg.dashboardBind, "dashboard-bind", "127.0.0.1", "address the host dashboard listens on (env: LANPARTY_DASHBOARD_BIND)")
	fs.IntVar(&cfg.dashboardPort, "dashboard-port", 8080, "port for the host dashboard, 0 to disable (env: LANPARTY_DASHBOARD_PORT)")
	fs.StringVarP(&cfg.game, "game", "g", game.Impostor.String(), "game to host: guessword, charades, impostor or custom (env: LANPARTY_GAME)")
	fs.IntVar(&cfg.impostors, "impostors", 1, "impostors per round (env: LANPARTY_IMPOSTORS)")
	fs.IntVar(&cfg.maxClients, "max-clients", session.DefaultMaxClients, "most players that may join, host excluded (env: LANPARTY_MAX_CLIENTS)")
	fs.StringVarP(&cfg.name, "name", "n", "", "name to advertise the session under (env: LANPARTY_NAME)")
	fs.BoolVar(&cfg.profile, "profile", false, "register net/http/pprof handlers on the dashboard (env: LANPARTY_PROFILE)")
	fs.Float64Var(&cfg.requestRate, "request-rate", session.DefaultRequestRate, "word requests allowed per player per second (env: LANPARTY_REQUEST_RATE)")
	fs.BoolVar(&cfg.showRole, "show-role", true, "let impostors see that they are the impostor (env: LANPARTY_SHOW_ROLE)")
	fs.IntVar(&cfg.wordCount, "word-count", 3, "words per charades round, at most 5 (env: LANPARTY_WORD_COUNT)")

	return cmd
}

func addDiscoveryFlags(cfg *Config, fs *pflag.FlagSet) {
	fs.StringSliceVarP(&cfg.games, "games", "g", []string{game.Impostor.String()}, "game types to look for (env: LANPARTY_GAMES)")
	fs.DurationVar(&cfg.lostDelay, "lost-delay", discovery.FlappyPolicy.LostDelay, "grace period before an impostor session counts as gone (env: LANPARTY_LOST_DELAY)")
	fs.DurationVar(&cfg.resolveBackoff, "resolve-backoff", discovery.FlappyPolicy.Backoff, "wait between resolve attempts for impostor sessions (env: LANPARTY_RESOLVE_BACKOFF)")
	fs.IntVar(&cfg.resolveRetries, "resolve-retries", discovery.FlappyPolicy.Retries, "extra resolve attempts for impostor sessions (env: LANPARTY_RESOLVE_RETRIES)")
}

func newJoinCmd(cfg *Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "join",
		Short: "Join a session, found on the network or given with --addr.",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.addr == "" {
				if err := cfg.validateDiscovery(); err != nil {
					return err
				}
			}
			return runJoin(cmd.Context(), cfg, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}

	fs := cmd.Flags()
	fs.StringVarP(&cfg.addr, "addr", "a", "", "host:port to join directly, skipping discovery (env: LANPARTY_ADDR)")
	addDiscoveryFlags(cfg, fs)

	return cmd
}

func newBrowseCmd(cfg *Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "browse",
		Short: "List sessions as they appear and disappear.",
		Args:  cobra.ExactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validateDiscovery(); err != nil {
				return err
			}
			return runBrowse(cmd.Context(), cfg, cmd.OutOrStdout())
		},
	}

	addDiscoveryFlags(cfg, cmd.Flags())

	return cmd
}
