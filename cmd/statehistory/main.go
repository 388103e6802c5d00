package main

import (
	"io"
	"os"

	"github.com/spf13/cobra"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	os.Exit(execute(rootCmd(), os.Stderr, stderrIsTerminal()))
}

func rootCmd() *cobra.Command {
	var errorFormat string

	root := &cobra.Command{
		Use:   "statehistory",
		Short: "Replay and inspect bounded undo/redo histories",
		Long: `statehistory drives a bounded undo/redo history of JSON values.

Use it to replay scripts of set/undo/redo commands under different
capacity and scheduling settings, or to serve a history's state and
metrics over HTTP.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return checkErrorFormat(errorFormat)
		},
	}
	root.PersistentFlags().StringVar(&errorFormat, "error-format", errorFormatAuto, "Error output: auto, text, compact or json")

	root.AddCommand(
		runCmd(),
		serveCmd(),
		versionCmd(),
	)
	return root
}

// execute runs root and reports a failure on stderr. It returns the exit
// code.
func execute(root *cobra.Command, stderr io.Writer, color bool) int {
	cmd, err := root.ExecuteC()
	if err == nil {
		return 0
	}

	format, _ := root.PersistentFlags().GetString("error-format")
	if checkErrorFormat(format) != nil {
		format = errorFormatText
	}
	reportError(stderr, cmd, err, format, color)
	return 1
}
