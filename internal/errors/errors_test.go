package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		wantMsg string
		wantCat Category
	}{
		{
			name:    "config error",
			code:    "H001",
			wantMsg: "Conflicting commit schedules",
			wantCat: CategoryConfig,
		},
		{
			name:    "policy error",
			code:    "H010",
			wantMsg: "Equality check failed",
			wantCat: CategoryPolicy,
		},
		{
			name:    "script error",
			code:    "H040",
			wantMsg: "Unknown script command",
			wantCat: CategoryScript,
		},
		{
			name:    "unknown error code",
			code:    "H999",
			wantMsg: "Unknown error",
			wantCat: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code)
			if err.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", err.Message, tt.wantMsg)
			}
			if err.Category != tt.wantCat {
				t.Errorf("Category = %q, want %q", err.Category, tt.wantCat)
			}
			if err.Code != tt.code {
				t.Errorf("Code = %q, want %q", err.Code, tt.code)
			}
		})
	}
}

func TestNewf(t *testing.T) {
	err := Newf(CategoryCLI, "flag %q is invalid", "--capacity")
	if err.Message != `flag "--capacity" is invalid` {
		t.Errorf("Message = %q", err.Message)
	}
	if err.Code != "" {
		t.Errorf("Code = %q, want empty", err.Code)
	}
	if err.Error() != err.Message {
		t.Errorf("Error() = %q, want %q", err.Error(), err.Message)
	}
}

func TestErrorIncludesDetail(t *testing.T) {
	err := New("H002").WithDetail("got 0")
	if got, want := err.Error(), "H002: Invalid max capacity (got 0)"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestWrapSupportsMultipleTargets(t *testing.T) {
	sentinel := stderrors.New("sentinel")
	cause := stderrors.New("cause")

	err := New("H010").Wrap(sentinel).Wrap(cause).Wrap(nil)
	if len(err.Wrapped) != 2 {
		t.Fatalf("Wrapped = %d errors, want 2", len(err.Wrapped))
	}
	if !stderrors.Is(err, sentinel) {
		t.Error("errors.Is(err, sentinel) = false, want true")
	}
	if !stderrors.Is(err, cause) {
		t.Error("errors.Is(err, cause) = false, want true")
	}

	var he *HistoryError
	if !stderrors.As(err, &he) || he.Code != "H010" {
		t.Errorf("errors.As did not find HistoryError: %v", he)
	}
}

func TestFromError(t *testing.T) {
	if FromError(nil, "H005") != nil {
		t.Error("FromError(nil) should be nil")
	}

	orig := New("H002")
	if FromError(orig, "H005") != orig {
		t.Error("FromError should return existing HistoryError unchanged")
	}

	if FromError(fmt.Errorf("line 3: %w", orig), "H005") != orig {
		t.Error("FromError should find a HistoryError deeper in the chain")
	}

	plain := stderrors.New("boom")
	wrapped := FromError(plain, "H005")
	if wrapped.Code != "H005" || !stderrors.Is(wrapped, plain) {
		t.Errorf("FromError = %#v", wrapped)
	}
	if wrapped.Detail != "boom" {
		t.Errorf("Detail = %q, want boom", wrapped.Detail)
	}
}

func TestWithLocationReadsContext(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "replay.txt")
	script := "set 1\nset 2\nbogus\nundo\n"
	if err := os.WriteFile(path, []byte(script), 0644); err != nil {
		t.Fatal(err)
	}

	err := New("H040").WithLocation(path, 3, 0)
	if err.Location.String() != path+":3" {
		t.Errorf("Location = %q", err.Location.String())
	}
	if len(err.Context) != 3 || err.Context[1] != "bogus" {
		t.Errorf("Context = %q", err.Context)
	}

	DisableColors()
	defer EnableColors()
	out := err.Format()
	if !strings.Contains(out, "ERROR H040: Unknown script command") {
		t.Errorf("Format missing header:\n%s", out)
	}
	if !strings.Contains(out, "→    3 │ bogus") {
		t.Errorf("Format missing highlighted line:\n%s", out)
	}
}

func TestFormatCompact(t *testing.T) {
	err := New("H041").WithDetail("wait needs a duration")
	err.Location = &Location{File: "s.txt", Line: 4}

	want := "s.txt:4: H041: Invalid script argument (wait needs a duration)"
	if got := err.FormatCompact(); got != want {
		t.Errorf("FormatCompact() = %q, want %q", got, want)
	}
}

func TestFormatJSON(t *testing.T) {
	err := New("H003").WithSuggestion("use a positive duration")
	err.Location = &Location{File: "statehistory.yaml", Line: 2, Column: 5}

	var decoded map[string]any
	if jerr := json.Unmarshal([]byte(err.FormatJSON()), &decoded); jerr != nil {
		t.Fatalf("FormatJSON produced invalid JSON: %v", jerr)
	}
	if decoded["code"] != "H003" || decoded["category"] != "config" {
		t.Errorf("decoded = %v", decoded)
	}
	loc, ok := decoded["location"].(map[string]any)
	if !ok || loc["line"] != float64(2) {
		t.Errorf("location = %v", decoded["location"])
	}
}

func TestWrapText(t *testing.T) {
	lines := wrapText("one two three four five six", 9)
	for _, l := range lines {
		if len(l) > 9 {
			t.Errorf("line %q exceeds width", l)
		}
	}
	if strings.Join(lines, " ") != "one two three four five six" {
		t.Errorf("wrapText lost words: %q", lines)
	}
	if wrapText("", 10) != nil {
		t.Error("wrapText(\"\") should be nil")
	}
}

func TestRegistryCodesHaveMessages(t *testing.T) {
	for _, code := range GetAllCodes() {
		tmpl, ok := GetTemplate(code)
		if !ok {
			t.Fatalf("GetTemplate(%q) missing", code)
		}
		if tmpl.Message == "" || tmpl.Category == "" {
			t.Errorf("template %s incomplete: %+v", code, tmpl)
		}
	}
}
