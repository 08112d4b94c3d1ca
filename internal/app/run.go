package app

import (
	"context"
	"fmt"
	"time"

	"github.com/vk/mediaflowgo/internal/batch"
	"github.com/vk/mediaflowgo/internal/ctxlog"
	"github.com/vk/mediaflowgo/internal/notify"
	"github.com/vk/mediaflowgo/internal/scheduler"
)

// Run loads the configured workflow and executes it: a single-node replay
// when TargetNode is set, otherwise the batch controller entry point (which
// itself falls back to one full run for non-batch graphs).
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)

	notifier := a.notifier
	if a.config.NotifierURL != "" {
		emitter, err := notify.DialSocketIO(ctx, a.config.NotifierURL, 10*time.Second)
		if err != nil {
			// Progress streaming is best-effort; the run proceeds with logs.
			a.logger.Warn("Live notifier unavailable, continuing without it.", "error", err)
		} else {
			defer emitter.Close()
			notifier = notify.Multi{a.notifier, emitter}
		}
	}

	g, err := a.loadGraph(ctx, a.config.GraphPath)
	if err != nil {
		notifier.Toast(notify.ToastError, err.Error())
		return err
	}

	// The engine borrows a point-in-time copy; the caller's graph is only
	// updated from the run's results, never mutated mid-run.
	working := g.Clone()

	sched := scheduler.New(a.registry, notifier, a.config.MaxConcurrent)

	if a.config.TargetNode != "" {
		report, err := sched.RunNode(ctx, working, a.config.TargetNode)
		if err != nil {
			return err
		}
		a.logger.Info("Single-node run finished.",
			"target", a.config.TargetNode,
			"completed", report.Completed, "failed", report.Failed)
		if report.Failed > 0 {
			return fmt.Errorf("%d node(s) failed", report.Failed)
		}
		return nil
	}

	controller := batch.New(sched, a.registry, notifier, a.config.BatchDelay, a.config.CircuitThreshold)
	report, err := controller.Run(ctx, working)
	if err != nil {
		return err
	}

	if report.Batched {
		a.logger.Info("Batch run finished.",
			"state", report.State,
			"iterations", len(report.Iterations),
			"collected", report.Collected)
		if report.State == batch.CircuitBroken {
			return fmt.Errorf("batch halted by circuit breaker after %d iterations", len(report.Iterations))
		}
	} else if report.Run != nil {
		a.logger.Info("Run finished.",
			"completed", report.Run.Completed, "failed", report.Run.Failed)
		if report.Run.Failed > 0 {
			return fmt.Errorf("%d node(s) failed", report.Run.Failed)
		}
	}
	return nil
}
