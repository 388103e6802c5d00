package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vango-dev/statehistory/internal/script"
	"github.com/vango-dev/statehistory/pkg/history"
	"github.com/vango-dev/statehistory/pkg/middleware"
)

func runCmd() *cobra.Command {
	var (
		hf      historyFlags
		asJSON  bool
		verbose bool
	)

	cmd := &cobra.Command{
		Use:   "run [script]",
		Short: "Replay a script against a history",
		Long: `Replay a script of history commands and print the final state.

The script is read from the given file, or from stdin when the file is
omitted or "-". Commands, one per line:

  set <json>       commit through the configured scheduler
  direct <json>    commit immediately
  undo, redo       move through the timeline
  clear            reset to the initial value
  pause, resume    stop or restart recording
  flush            apply a pending deferred commit now
  wait <duration>  sleep, letting deferred commits fire
  print            print the current state

Examples:
  statehistory run edits.hist
  statehistory run --capacity=2 --initial='{"count":0}' edits.hist
  echo 'set 1' | statehistory run --debounce=500ms --json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "-"
			if len(args) == 1 {
				path = args[0]
			}
			return runScript(cmd, &hf, path, asJSON, verbose)
		},
	}

	hf.register(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print states as JSON")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Log every transition")

	return cmd
}

func runScript(cmd *cobra.Command, hf *historyFlags, path string, asJSON, verbose bool) error {
	cfg, err := hf.load(cmd)
	if err != nil {
		return err
	}
	logger := stderrLogger(cfg)

	var s *script.Script
	if path == "-" {
		s, err = script.Parse(cmd.InOrStdin(), "<stdin>")
	} else {
		s, err = script.ParseFile(path)
	}
	if err != nil {
		return err
	}

	var opts []history.Option
	if verbose {
		opts = append(opts, history.WithMiddleware(middleware.Logging(logger, slog.LevelInfo)))
	}
	h, err := hf.newHistory(cfg, logger, opts...)
	if err != nil {
		return err
	}
	defer h.Dispose()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	r := &script.Runner{History: h, Out: out, JSON: asJSON}
	if err := r.Run(ctx, s); err != nil {
		return err
	}

	// A trailing deferred commit still belongs to the replay.
	h.Flush()
	return printFinal(out, h, asJSON)
}

func printFinal(w io.Writer, h *history.History[any], asJSON bool) error {
	return script.WriteState(w, h.Snapshot(), asJSON)
}
