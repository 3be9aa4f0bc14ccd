package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/hazz-dev/hodorprobe/internal/probe"
	"github.com/hazz-dev/hodorprobe/internal/storage"
)

// Store defines the storage operations required by the scheduler.
type Store interface {
	InsertResult(ctx context.Context, r probe.Result) error
	LatestResult(ctx context.Context, path string) (*storage.Probe, error)
}

// Runner performs one sequential probe run over paths.
type Runner interface {
	Run(ctx context.Context, paths []string, onResult func(probe.Result) error) ([]probe.Result, error)
}

// Scheduler repeats a probe run on a fixed interval. Runs never overlap.
type Scheduler struct {
	runner   Runner
	paths    []string
	interval time.Duration
	store    Store
	onResult func(probe.Result, *probe.Status)
	logger   *slog.Logger
	wg       sync.WaitGroup
}

// New creates a new Scheduler. Pass nil logger to use the default logger.
func New(runner Runner, paths []string, interval time.Duration, store Store, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		runner:   runner,
		paths:    paths,
		interval: interval,
		store:    store,
		logger:   logger,
	}
}

// SetOnResult sets the callback invoked after each stored result.
// result is the current result; prev is the previous status for that path (nil on first result).
func (s *Scheduler) SetOnResult(fn func(probe.Result, *probe.Status)) {
	s.onResult = fn
}

// Start spawns the probing goroutine. It is non-blocking.
func (s *Scheduler) Start(ctx context.Context) {
	s.wg.Add(1)
	go s.loop(ctx)
}

// Wait blocks until the probing goroutine has exited.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

func (s *Scheduler) loop(ctx context.Context) {
	defer s.wg.Done()

	// Run immediately.
	s.runOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	// A run must finish before the next tick.
	runCtx, cancel := context.WithTimeout(ctx, s.interval)
	defer cancel()

	results, err := s.runner.Run(runCtx, s.paths, func(r probe.Result) error {
		s.record(ctx, r)
		return nil
	})
	if err == nil {
		return
	}

	// Shutting down: the aborted request says nothing about the gateway.
	if ctx.Err() != nil {
		return
	}

	var te *probe.TransportError
	if errors.As(err, &te) && len(results) > 0 {
		failed := results[len(results)-1]
		s.record(ctx, failed)
		s.logger.Warn("probe run aborted",
			"run_id", failed.RunID,
			"path", te.Path,
			"skipped", len(s.paths)-len(results),
			"error", te.Err,
		)
		return
	}
	// Strict-mode status errors were already recorded through the callback.
	s.logger.Warn("probe run stopped", "error", err)
}

func (s *Scheduler) record(ctx context.Context, r probe.Result) {
	// Fetch previous status before storing the new result.
	prev, err := s.store.LatestResult(ctx, r.Path)
	if err != nil {
		s.logger.Warn("fetching previous result", "path", r.Path, "error", err)
	}

	s.logger.Info("probe result",
		"run_id", r.RunID,
		"path", r.Path,
		"status", r.Status,
		"status_code", r.StatusCode,
		"response_time", r.ResponseTime,
		"error", r.Error,
	)

	if err := s.store.InsertResult(ctx, r); err != nil {
		s.logger.Error("storing probe result", "path", r.Path, "error", err)
	}

	if s.onResult != nil {
		var prevStatus *probe.Status
		if prev != nil {
			st := probe.Status(prev.Status)
			prevStatus = &st
		}
		s.onResult(r, prevStatus)
	}
}
