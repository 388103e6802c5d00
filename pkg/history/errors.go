package history

import (
	"errors"
	"fmt"

	herrors "github.com/vango-dev/statehistory/internal/errors"
)

// ErrInvalidConfig is returned by New when options contradict each other or
// carry out-of-range values.
var ErrInvalidConfig = errors.New("history: invalid configuration")

// ErrPolicy is returned when the equality or cloning policy cannot handle a
// value, for example a cyclic structure or a func under structural mode.
// The history is left exactly as it was before the failed commit.
var ErrPolicy = errors.New("history: policy failure")

// ErrDisposed is returned by scheduled commits after Dispose.
var ErrDisposed = errors.New("history: disposed")

// ErrListenerPanic marks a recovered change-listener panic. It is only
// logged and reported to middleware, never returned from a commit.
var ErrListenerPanic = errors.New("history: change listener panicked")

var configSuggestions = map[string]string{
	"H001": "Pick one of WithDebounce or WithThrottle",
	"H002": "Use a positive capacity, or omit WithMaxCapacity for an unbounded history",
	"H003": "Use a zero duration to apply commits immediately",
	"H004": "Build the option with the history's value type",
}

func configError(code string, format string, args ...any) error {
	return herrors.New(code).
		WithDetail(fmt.Sprintf(format, args...)).
		WithSuggestion(configSuggestions[code]).
		Wrap(ErrInvalidConfig)
}

func policyError(err error) error {
	code := "H010"
	var cerr *cloneError
	if errors.As(err, &cerr) {
		code = "H011"
		err = cerr.err
	}
	return herrors.New(code).
		WithDetail(err.Error()).
		Wrap(ErrPolicy).
		Wrap(err)
}

func disposedError() error {
	return herrors.New("H030").Wrap(ErrDisposed)
}

// cloneError tags failures raised by Policy.Clone so they are reported
// under their own code.
type cloneError struct {
	err error
}

func (e *cloneError) Error() string { return e.err.Error() }

func (e *cloneError) Unwrap() error { return e.err }
