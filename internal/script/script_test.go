package script

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/facebookgo/clock"

	herrors "github.com/vango-dev/statehistory/internal/errors"
	"github.com/vango-dev/statehistory/pkg/history"
)

func newHistory(t *testing.T, opts ...history.Option) *history.History[any] {
	t.Helper()
	opts = append(opts, history.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	h, err := history.New[any](map[string]any{"count": 0.0}, opts...)
	if err != nil {
		t.Fatalf("history.New: %v", err)
	}
	t.Cleanup(h.Dispose)
	return h
}

func mustParse(t *testing.T, src string) *Script {
	t.Helper()
	s, err := Parse(strings.NewReader(src), "test.hist")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return s
}

func TestParse(t *testing.T) {
	s := mustParse(t, `
# comment
set {"count": 1}
  direct [1, 2]
undo
wait 250ms
PRINT
`)

	if len(s.Commands) != 5 {
		t.Fatalf("commands: got %d, want 5", len(s.Commands))
	}

	want := []struct {
		op   Op
		line int
	}{
		{OpSet, 3}, {OpDirect, 4}, {OpUndo, 5}, {OpWait, 6}, {OpPrint, 7},
	}
	for i, w := range want {
		if s.Commands[i].Op != w.op || s.Commands[i].Line != w.line {
			t.Errorf("command %d: got %s@%d, want %s@%d", i, s.Commands[i].Op, s.Commands[i].Line, w.op, w.line)
		}
	}
	if s.Commands[3].Wait != 250*time.Millisecond {
		t.Errorf("wait: got %s", s.Commands[3].Wait)
	}
	if m, ok := s.Commands[0].Value.(map[string]any); !ok || m["count"] != 1.0 {
		t.Errorf("set value: got %#v", s.Commands[0].Value)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		code string
		line int
	}{
		{"unknown command", "set 1\nrewind", "H040", 2},
		{"missing argument", "set", "H041", 1},
		{"unexpected argument", "undo 2", "H041", 1},
		{"invalid json", "set {count}", "H041", 1},
		{"trailing json", "set 1 2", "H041", 1},
		{"bad duration", "wait soon", "H041", 1},
		{"negative duration", "wait -1s", "H041", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.src), "bad.hist")
			var herr *herrors.HistoryError
			if !errors.As(err, &herr) {
				t.Fatalf("got %v, want HistoryError", err)
			}
			if herr.Code != tt.code {
				t.Errorf("code: got %s, want %s", herr.Code, tt.code)
			}
			if herr.Location == nil || herr.Location.Line != tt.line || herr.Location.File != "bad.hist" {
				t.Errorf("location: got %v", herr.Location)
			}
			if len(herr.Context) == 0 {
				t.Error("expected context lines")
			}
		})
	}
}

func TestRunCapacityScenario(t *testing.T) {
	h := newHistory(t, history.WithMaxCapacity(2))
	var out bytes.Buffer
	r := &Runner{History: h, Out: &out}

	s := mustParse(t, `
set {"count": 1}
set {"count": 2}
set {"count": 3}
print
undo
print
`)
	if err := r.Run(context.Background(), s); err != nil {
		t.Fatalf("Run: %v", err)
	}

	want := `past=[{"count":1},{"count":2}] present={"count":3} future=[]
past=[{"count":1}] present={"count":2} future=[{"count":3}]
`
	if out.String() != want {
		t.Errorf("output:\ngot  %q\nwant %q", out.String(), want)
	}
}

func TestRunDebounceWithMockClock(t *testing.T) {
	mock := clock.NewMock()
	h := newHistory(t, history.WithDebounce(500*time.Millisecond), history.WithClock(mock))
	var out bytes.Buffer
	r := &Runner{History: h, Out: &out, Sleep: mock.Add, JSON: true}

	s := mustParse(t, `
set 1
wait 100ms
set 2
wait 100ms
set 3
wait 500ms
print
`)
	if err := r.Run(context.Background(), s); err != nil {
		t.Fatalf("Run: %v", err)
	}

	want := `{"past":[{"count":0}],"present":3,"future":[],"paused":false,"canUndo":true,"canRedo":false}` + "\n"
	if out.String() != want {
		t.Errorf("output:\ngot  %s\nwant %s", out.String(), want)
	}
}

func TestRunPauseAndFlush(t *testing.T) {
	mock := clock.NewMock()
	h := newHistory(t, history.WithDebounce(time.Second), history.WithClock(mock))
	r := &Runner{History: h, Sleep: mock.Add}

	s := mustParse(t, `
pause
direct 1
resume
set 2
flush
redo
clear
`)
	if err := r.Run(context.Background(), s); err != nil {
		t.Fatalf("Run: %v", err)
	}

	snap := h.Snapshot()
	if m, ok := snap.Present.(map[string]any); !ok || m["count"] != 0.0 {
		t.Errorf("present after clear: %#v", snap.Present)
	}
	if snap.CanUndo() || snap.CanRedo() {
		t.Errorf("history not cleared: %+v", snap)
	}
}

func TestRunStopsOnCanceledContext(t *testing.T) {
	h := newHistory(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := (&Runner{History: h}).Run(ctx, mustParse(t, "set 1"))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Run: got %v, want context.Canceled", err)
	}
	if h.CanUndo() {
		t.Error("command ran after cancel")
	}
}

func TestRunReportsDisposedHistory(t *testing.T) {
	h := newHistory(t)
	h.Dispose()

	err := (&Runner{History: h}).Run(context.Background(), mustParse(t, "set 1"))
	if !errors.Is(err, history.ErrDisposed) {
		t.Errorf("Run: got %v, want ErrDisposed", err)
	}
	if !strings.Contains(err.Error(), "test.hist:1") {
		t.Errorf("error lacks location: %v", err)
	}
}

func TestWriteStatePaused(t *testing.T) {
	var buf bytes.Buffer
	s := history.State[any]{Present: "x", Paused: true}
	if err := WriteState(&buf, s, false); err != nil {
		t.Fatal(err)
	}
	if got := buf.String(); got != "past=[] present=\"x\" future=[] paused\n" {
		t.Errorf("got %q", got)
	}
}
