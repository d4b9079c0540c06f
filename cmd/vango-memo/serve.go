package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	memoerrors "github.com/vango-dev/memo/internal/errors"
	"github.com/vango-dev/memo/pkg/inspector"
)

func serveCmd(load configLoader) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the blog workload behind the live inspector",
		Long: `Run the blog workload and serve the inspector. Open the inspector in
a browser to watch the view and the cycle log update live. Prometheus
metrics are served at /metrics.

The workload runs demo.ticks steps, or until interrupted when
demo.ticks is 0.

Examples:
  vango-memo serve
  vango-memo serve --addr=:8080`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := load()
			if err != nil {
				return err
			}
			if addr == "" {
				addr = cfg.Inspector.Addr
			}
			interval, _ := cfg.TickInterval()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			s := newSession(cfg, logger)
			insp := inspector.New(s.sched, s.recorder,
				inspector.WithLogger(logger),
				inspector.WithGatherer(s.registry),
			)
			srv := &http.Server{
				Addr:              addr,
				Handler:           insp.Handler(),
				ReadHeaderTimeout: 5 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- memoerrors.New("M201").Wrap(err)
				}
			}()
			go insp.Run(ctx)
			go func() {
				if err := s.sched.Run(ctx); err != nil {
					errCh <- err
				}
			}()
			go drive(ctx, s, cfg.Demo.Ticks, interval)

			success("Inspector running at http://%s", addr)
			info("Press Ctrl+C to stop")

			select {
			case <-ctx.Done():
			case err = <-errCh:
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
				logger.Warn("inspector shutdown", "error", shutdownErr)
			}
			s.sched.Unmount()
			return err
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "Listen address (default from memo.json)")

	return cmd
}

// drive applies workload steps every interval. Run processes the cycles.
func drive(ctx context.Context, s *session, ticks int, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for i := 0; ticks == 0 || i < ticks; i++ {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if err := s.app.Step(i); err != nil {
			s.logger.Warn("workload step", "step", i, "error", err)
		}
	}
	s.logger.Info("workload finished", "steps", ticks)
}
