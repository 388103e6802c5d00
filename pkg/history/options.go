package history

import (
	"context"
	"log/slog"
	"time"

	"github.com/facebookgo/clock"
)

// Option configures a History.
type Option interface {
	applyHistory(*config)
}

type optionFunc func(*config)

func (f optionFunc) applyHistory(c *config) { f(c) }

// config holds the resolved options. Typed callbacks are stored as any and
// checked against T in New.
type config struct {
	capacity    int
	capacitySet bool

	debounce     time.Duration
	debounceSet  bool
	throttle     time.Duration
	throttleSet  bool
	trailingOnly bool

	immutable bool
	paused    bool

	onChange []any
	equals   any

	logger     *slog.Logger
	clock      clock.Clock
	middleware []Middleware
	id         string
	ctx        context.Context
}

// WithMaxCapacity bounds the number of past entries. n must be positive.
// Without it the history is unbounded.
func WithMaxCapacity(n int) Option {
	return optionFunc(func(c *config) {
		c.capacity = n
		c.capacitySet = true
	})
}

// WithDebounce defers Set until d has passed without another Set.
// A zero duration commits immediately.
func WithDebounce(d time.Duration) Option {
	return optionFunc(func(c *config) {
		c.debounce = d
		c.debounceSet = true
	})
}

// WithThrottle commits Set at most once per d. The first Set of an idle
// period commits immediately; later ones in the window coalesce into a
// trailing commit.
func WithThrottle(d time.Duration) Option {
	return optionFunc(func(c *config) {
		c.throttle = d
		c.throttleSet = true
	})
}

// WithThrottleTrailingOnly makes the throttle wait for the window boundary
// even for the first Set. Requires WithThrottle.
func WithThrottleTrailingOnly() Option {
	return optionFunc(func(c *config) {
		c.trailingOnly = true
	})
}

// Immutable switches to the reference policy: values are compared by
// identity and stored without copying.
func Immutable() Option {
	return optionFunc(func(c *config) {
		c.immutable = true
	})
}

// StartPaused creates the history paused.
func StartPaused() Option {
	return optionFunc(func(c *config) {
		c.paused = true
	})
}

// OnChange registers fn to run after every transition that may change the
// present value. It may be given more than once.
func OnChange[T any](fn func(kind Kind, value T)) Option {
	return optionFunc(func(c *config) {
		if fn != nil {
			c.onChange = append(c.onChange, fn)
		}
	})
}

// Equals replaces the policy's equality check.
func Equals[T any](fn func(a, b T) bool) Option {
	return optionFunc(func(c *config) {
		c.equals = fn
	})
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *config) {
		c.logger = l
	})
}

// WithClock sets the clock driving deferred commits.
func WithClock(clk clock.Clock) Option {
	return optionFunc(func(c *config) {
		c.clock = clk
	})
}

// WithMiddleware appends transition middleware. The first one given is the
// outermost.
func WithMiddleware(mw ...Middleware) Option {
	return optionFunc(func(c *config) {
		c.middleware = append(c.middleware, mw...)
	})
}

// WithID sets the identifier reported to middleware and logs.
// Defaults to a random UUID.
func WithID(id string) Option {
	return optionFunc(func(c *config) {
		c.id = id
	})
}

// WithContext sets the base context handed to middleware for every
// transition.
func WithContext(ctx context.Context) Option {
	return optionFunc(func(c *config) {
		c.ctx = ctx
	})
}

func (c *config) validate() error {
	if c.capacitySet && c.capacity <= 0 {
		return configError("H002", "max capacity %d is not positive", c.capacity)
	}
	if c.debounce < 0 {
		return configError("H003", "debounce %s is negative", c.debounce)
	}
	if c.throttle < 0 {
		return configError("H003", "throttle %s is negative", c.throttle)
	}
	if c.debounceSet && c.throttleSet {
		return configError("H001", "debounce %s and throttle %s are both set", c.debounce, c.throttle)
	}
	if c.trailingOnly && !c.throttleSet {
		return configError("H001", "trailing-only requires a throttle")
	}
	return nil
}
