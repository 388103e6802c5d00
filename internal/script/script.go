// Package script parses and replays line-oriented history scripts.
//
// Each non-blank line holds one command. Lines starting with # are
// comments.
//
//	set {"count": 1}
//	direct {"count": 2}
//	undo
//	wait 500ms
//	print
package script

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	herrors "github.com/vango-dev/statehistory/internal/errors"
	"github.com/vango-dev/statehistory/pkg/history"
)

// Op names a script command.
type Op string

const (
	OpSet    Op = "set"
	OpDirect Op = "direct"
	OpUndo   Op = "undo"
	OpRedo   Op = "redo"
	OpClear  Op = "clear"
	OpPause  Op = "pause"
	OpResume Op = "resume"
	OpFlush  Op = "flush"
	OpWait   Op = "wait"
	OpPrint  Op = "print"
)

// takesArg reports which ops require an argument.
var takesArg = map[Op]bool{
	OpSet:    true,
	OpDirect: true,
	OpUndo:   false,
	OpRedo:   false,
	OpClear:  false,
	OpPause:  false,
	OpResume: false,
	OpFlush:  false,
	OpWait:   true,
	OpPrint:  false,
}

// Command is one parsed script line.
type Command struct {
	Op    Op
	Value any
	Wait  time.Duration
	Line  int
}

// Script is a parsed script.
type Script struct {
	Name     string
	Commands []Command
}

// ParseFile parses the script at path.
func ParseFile(path string) (*Script, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f, path)
}

// Parse reads a script from r. name is used in error locations.
func Parse(r io.Reader, name string) (*Script, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	s := &Script{Name: name}
	for i, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		cmd, err := parseLine(line, i+1)
		if err != nil {
			return nil, err.
				WithLocation(name, i+1, strings.Index(raw, line)+1).
				WithContext(around(lines, i+1))
		}
		s.Commands = append(s.Commands, cmd)
	}
	return s, nil
}

func parseLine(line string, n int) (Command, *herrors.HistoryError) {
	word, arg, _ := strings.Cut(line, " ")
	op := Op(strings.ToLower(word))
	arg = strings.TrimSpace(arg)

	needsArg, known := takesArg[op]
	if !known {
		return Command{}, herrors.New("H040").
			WithDetailf("unknown command %q", word).
			WithSuggestion("Use one of set, direct, undo, redo, clear, pause, resume, flush, wait, print")
	}
	if !needsArg && arg != "" {
		return Command{}, herrors.New("H041").WithDetailf("%s takes no argument", op)
	}
	if needsArg && arg == "" {
		return Command{}, herrors.New("H041").WithDetailf("%s requires an argument", op)
	}

	cmd := Command{Op: op, Line: n}
	switch op {
	case OpSet, OpDirect:
		v, err := DecodeValue(arg)
		if err != nil {
			return Command{}, herrors.New("H041").
				WithDetailf("%s argument is not valid JSON: %v", op, err).
				Wrap(err)
		}
		cmd.Value = v
	case OpWait:
		d, err := time.ParseDuration(arg)
		if err != nil || d < 0 {
			return Command{}, herrors.New("H041").
				WithDetailf("wait needs a non-negative duration, got %q", arg).
				Wrap(err)
		}
		cmd.Wait = d
	}
	return cmd, nil
}

// DecodeValue decodes a single JSON value.
func DecodeValue(s string) (any, error) {
	dec := json.NewDecoder(strings.NewReader(s))
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, fmt.Errorf("trailing data after value")
	}
	return v, nil
}

func around(lines []string, n int) []string {
	start, end := n-2, n+1
	if start < 0 {
		start = 0
	}
	if end > len(lines) {
		end = len(lines)
	}
	return append([]string(nil), lines[start:end]...)
}

// Runner replays scripts against a history.
type Runner struct {
	// History receives the commands.
	History *history.History[any]

	// Sleep implements wait. Defaults to time.Sleep; tests pass a mock
	// clock's Add.
	Sleep func(time.Duration)

	// Out receives print output. Defaults to io.Discard.
	Out io.Writer

	// JSON switches print output to one JSON object per line.
	JSON bool
}

// Run executes every command of s in order. It stops at the first failing
// command or when ctx is done.
func (r *Runner) Run(ctx context.Context, s *Script) error {
	sleep := r.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}
	out := r.Out
	if out == nil {
		out = io.Discard
	}

	h := r.History
	for _, cmd := range s.Commands {
		if err := ctx.Err(); err != nil {
			return err
		}

		var err error
		switch cmd.Op {
		case OpSet:
			err = h.Set(cmd.Value)
		case OpDirect:
			err = h.SetDirect(cmd.Value)
		case OpUndo:
			h.Undo()
		case OpRedo:
			h.Redo()
		case OpClear:
			err = h.Clear()
		case OpPause:
			h.Pause()
		case OpResume:
			h.Resume()
		case OpFlush:
			h.Flush()
		case OpWait:
			sleep(cmd.Wait)
		case OpPrint:
			err = WriteState(out, h.Snapshot(), r.JSON)
		}
		if err != nil {
			return fmt.Errorf("%s:%d: %s: %w", s.Name, cmd.Line, cmd.Op, err)
		}
	}
	return nil
}

// stateView is the printed form of a history state.
type stateView struct {
	Past    []any `json:"past"`
	Present any   `json:"present"`
	Future  []any `json:"future"`
	Paused  bool  `json:"paused"`
	CanUndo bool  `json:"canUndo"`
	CanRedo bool  `json:"canRedo"`
}

// WriteState prints s as a JSON object or as a single text line.
func WriteState(w io.Writer, s history.State[any], asJSON bool) error {
	view := stateView{
		Past:    nonNil(s.Past),
		Present: s.Present,
		Future:  nonNil(s.Future),
		Paused:  s.Paused,
		CanUndo: s.CanUndo(),
		CanRedo: s.CanRedo(),
	}

	if asJSON {
		return json.NewEncoder(w).Encode(view)
	}

	past, err := json.Marshal(view.Past)
	if err != nil {
		return err
	}
	present, err := json.Marshal(view.Present)
	if err != nil {
		return err
	}
	future, err := json.Marshal(view.Future)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "past=%s present=%s future=%s", past, present, future)
	if view.Paused {
		buf.WriteString(" paused")
	}
	buf.WriteByte('\n')
	_, err = w.Write(buf.Bytes())
	return err
}

func nonNil(vs []any) []any {
	if vs == nil {
		return []any{}
	}
	return vs
}
