package middleware

import (
	"log/slog"
	"time"

	"github.com/vango-dev/statehistory/pkg/history"
)

// Logging creates middleware that logs every transition with slog.
// Changed transitions log at level, no-ops at Debug, failures at Error.
// A nil logger uses slog.Default().
func Logging(logger *slog.Logger, level slog.Level) history.Middleware {
	if logger == nil {
		logger = slog.Default()
	}

	return history.MiddlewareFunc(func(t *history.Transition, next func() error) error {
		start := time.Now()
		err := next()

		attrs := []slog.Attr{
			slog.String("history_id", t.HistoryID),
			slog.String("kind", string(t.Kind)),
			slog.Bool("deferred", t.Deferred),
			slog.Duration("duration", time.Since(start)),
		}

		ctx := t.Context()
		switch {
		case err != nil:
			logger.LogAttrs(ctx, slog.LevelError, "history transition failed", append(attrs, slog.Any("error", err))...)
		case t.Changed:
			if n := len(t.ListenerPanics); n > 0 {
				attrs = append(attrs, slog.Int("listener_panics", n))
			}
			logger.LogAttrs(ctx, level, "history transition", attrs...)
		default:
			logger.LogAttrs(ctx, slog.LevelDebug, "history transition skipped", attrs...)
		}
		return err
	})
}
