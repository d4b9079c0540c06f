package main

import (
	"context"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vango-dev/memo/internal/blog"
	"github.com/vango-dev/memo/internal/config"
	"github.com/vango-dev/memo/pkg/compose"
	"github.com/vango-dev/memo/pkg/metrics"
	"github.com/vango-dev/memo/pkg/profile"
)

// session wires the blog app to a scheduler with a profile recorder and a
// metrics collector attached.
type session struct {
	cfg      *config.Config
	logger   *slog.Logger
	app      *blog.App
	sched    *compose.Scheduler
	recorder *profile.Recorder
	registry *prometheus.Registry
}

func newSession(cfg *config.Config, logger *slog.Logger) *session {
	s := &session{
		cfg:      cfg,
		logger:   logger,
		app:      blog.New(blog.Seed(cfg.Demo.Posts)),
		recorder: profile.NewRecorder(profile.DefaultLimit),
		registry: prometheus.NewRegistry(),
	}
	collector := metrics.New(
		metrics.WithNamespace(cfg.Metrics.Namespace),
		metrics.WithRegistry(s.registry),
	)
	s.sched = compose.NewScheduler(s.app.Blog,
		compose.WithLogger(logger),
		compose.WithObserver(s.recorder),
		compose.WithObserver(collector),
	)
	return s
}

// step applies workload step i and flushes the resulting cycles.
func (s *session) step(ctx context.Context, i int) error {
	if err := s.app.Step(i); err != nil {
		return err
	}
	return s.sched.Flush(ctx)
}

// runSteps mounts and applies n workload steps without pausing.
func (s *session) runSteps(ctx context.Context, n int) error {
	if err := s.sched.Mount(ctx); err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		if err := s.step(ctx, i); err != nil {
			return err
		}
	}
	return nil
}
