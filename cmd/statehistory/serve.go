package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/vango-dev/statehistory/internal/errors"
	"github.com/vango-dev/statehistory/internal/script"
	"github.com/vango-dev/statehistory/pkg/history"
	"github.com/vango-dev/statehistory/pkg/middleware"
)

func serveCmd() *cobra.Command {
	var (
		hf         historyFlags
		addr       string
		scriptPath string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a history's state and metrics over HTTP",
		Long: `Serve a read-only view of a history together with its metrics.

The history is optionally seeded by replaying --script at start-up.

Endpoints:
  GET /state     current state as JSON
  GET /healthz   liveness probe
  GET /metrics   Prometheus metrics (path configurable)

Examples:
  statehistory serve --script=edits.hist
  statehistory serve --addr=:8080 --capacity=100`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, &hf, addr, scriptPath)
		},
	}

	hf.register(cmd)
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from config)")
	cmd.Flags().StringVar(&scriptPath, "script", "", "Script to replay at start-up")

	return cmd
}

func runServe(cmd *cobra.Command, hf *historyFlags, addr, scriptPath string) error {
	cfg, err := hf.load(cmd)
	if err != nil {
		return err
	}
	if addr != "" {
		cfg.Serve.Addr = addr
	}
	logger := stderrLogger(cfg)

	reg := prometheus.NewRegistry()
	h, err := hf.newHistory(cfg, logger, history.WithMiddleware(
		middleware.OpenTelemetry(),
		middleware.Prometheus(
			middleware.WithRegistry(reg),
			middleware.WithNamespace(cfg.Serve.Namespace),
		),
		middleware.Logging(logger, slog.LevelDebug),
	))
	if err != nil {
		return err
	}
	defer h.Dispose()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if scriptPath != "" {
		s, err := script.ParseFile(scriptPath)
		if err != nil {
			return err
		}
		if err := (&script.Runner{History: h}).Run(ctx, s); err != nil {
			return err
		}
	}

	srv := &http.Server{
		Addr:              cfg.Serve.Addr,
		Handler:           newRouter(h, reg, cfg.Serve.MetricsPath),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("serving history", "addr", srv.Addr, "history_id", h.ID())
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return errors.New("H051").Wrap(err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.New("H051").Wrap(err)
	}
	return nil
}

// newRouter exposes h read-only next to the metrics in reg.
func newRouter(h *history.History[any], reg *prometheus.Registry, metricsPath string) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte("ok\n"))
	})

	r.Get("/state", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-History-Id", h.ID())
		if err := script.WriteState(w, h.Snapshot(), true); err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
		}
	})

	r.Method(http.MethodGet, metricsPath, promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	return r
}
