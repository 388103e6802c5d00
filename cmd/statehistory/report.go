package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	herrors "github.com/vango-dev/statehistory/internal/errors"
)

// Error output formats for --error-format.
const (
	errorFormatAuto    = "auto"
	errorFormatText    = "text"
	errorFormatCompact = "compact"
	errorFormatJSON    = "json"
)

func checkErrorFormat(format string) error {
	switch format {
	case errorFormatAuto, errorFormatText, errorFormatCompact, errorFormatJSON:
		return nil
	}
	return herrors.Newf(herrors.CategoryCLI, "unknown error format %q", format).
		WithSuggestion("Use auto, text, compact or json")
}

// reportError writes err to w. In auto mode a command run with --json
// reports JSON and everything else reports text.
func reportError(w io.Writer, cmd *cobra.Command, err error, format string, color bool) {
	herr := herrors.FromError(err, "H052")

	if format == errorFormatAuto {
		format = errorFormatText
		if cmd != nil {
			if f := cmd.Flags().Lookup("json"); f != nil && f.Value.String() == "true" {
				format = errorFormatJSON
			}
		}
	}

	switch format {
	case errorFormatJSON:
		fmt.Fprintln(w, herr.FormatJSON())
	case errorFormatCompact:
		fmt.Fprintln(w, herr.FormatCompact())
	default:
		if !color {
			herrors.DisableColors()
			defer herrors.EnableColors()
		}
		fmt.Fprintln(w, herr.Format())
	}
}

func stderrIsTerminal() bool {
	return term.IsTerminal(int(os.Stderr.Fd()))
}
