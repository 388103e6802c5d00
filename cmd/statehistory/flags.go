package main

import (
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/vango-dev/statehistory/internal/config"
	"github.com/vango-dev/statehistory/internal/errors"
	"github.com/vango-dev/statehistory/internal/script"
	"github.com/vango-dev/statehistory/pkg/history"
)

// historyFlags are the flags shared by run and serve. Flags override the
// configuration file.
type historyFlags struct {
	configPath   string
	capacity     int
	debounce     time.Duration
	throttle     time.Duration
	trailingOnly bool
	immutable    bool
	paused       bool
	initial      string
}

func (f *historyFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVarP(&f.configPath, "config", "c", "", "Configuration file (default: statehistory.json or .yaml in the working directory)")
	flags.IntVar(&f.capacity, "capacity", 0, "Maximum number of past entries (0: unbounded)")
	flags.DurationVar(&f.debounce, "debounce", 0, "Debounce commits by this quiet period")
	flags.DurationVar(&f.throttle, "throttle", 0, "Throttle commits to one per interval")
	flags.BoolVar(&f.trailingOnly, "trailing-only", false, "Delay even the first throttled commit to the window boundary")
	flags.BoolVar(&f.immutable, "immutable", false, "Compare by identity and skip cloning")
	flags.BoolVar(&f.paused, "paused", false, "Start paused")
	flags.StringVar(&f.initial, "initial", "null", "Initial value as JSON")
}

// load resolves the configuration file and applies flag overrides.
func (f *historyFlags) load(cmd *cobra.Command) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	switch {
	case f.configPath != "":
		cfg, err = config.LoadFile(f.configPath)
	case config.Exists("."):
		cfg, err = config.Load(".")
	default:
		cfg = config.New()
	}
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("capacity") {
		cfg.History.MaxCapacity = f.capacity
	}
	if flags.Changed("debounce") {
		cfg.History.Debounce = config.Duration(f.debounce)
	}
	if flags.Changed("throttle") {
		cfg.History.Throttle = config.Duration(f.throttle)
	}
	if flags.Changed("trailing-only") {
		cfg.History.ThrottleTrailingOnly = f.trailingOnly
	}
	if flags.Changed("immutable") {
		cfg.History.Immutable = f.immutable
	}
	if flags.Changed("paused") {
		cfg.History.Paused = f.paused
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newHistory creates the history described by cfg, starting at the
// --initial value.
func (f *historyFlags) newHistory(cfg *config.Config, logger *slog.Logger, opts ...history.Option) (*history.History[any], error) {
	initial, err := script.DecodeValue(f.initial)
	if err != nil {
		return nil, errors.New("H050").
			WithDetailf("--initial is not valid JSON: %v", err).
			Wrap(err)
	}

	all := append(cfg.HistoryOptions(), history.WithLogger(logger))
	all = append(all, opts...)
	return history.New(initial, all...)
}

func stderrLogger(cfg *config.Config) *slog.Logger {
	return cfg.Logger(os.Stderr)
}
