package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/geocoder89/househub/internal/domain/cleanup"
)

type outcome int

const (
	outcomeRemoved outcome = iota
	outcomeRetried
	outcomeFailed
)

// ProcessBatch claims up to BatchSize due tasks and works them with
// Concurrency goroutines. It returns how many tasks were claimed.
func (w *Worker) ProcessBatch(ctx context.Context) (int, error) {
	claimCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	tasks, err := w.repo.ClaimBatch(claimCtx, w.cfg.WorkerID, w.cfg.BatchSize)
	cancel()

	if err != nil {
		return 0, err
	}
	if len(tasks) == 0 {
		return 0, nil
	}

	start := w.now()
	w.stats.AddClaimed(len(tasks))
	if w.prom != nil {
		w.prom.CleanupInFlight.Add(float64(len(tasks)))
		defer w.prom.CleanupInFlight.Sub(float64(len(tasks)))
	}

	// claimed rows must be settled even if shutdown begins mid-batch
	workCtx, cancelWork := context.WithTimeout(context.WithoutCancel(ctx), w.cfg.ShutdownGrace)
	defer cancelWork()

	var removed, retried, failed atomic.Int64
	sem := make(chan struct{}, w.cfg.Concurrency)
	var wg sync.WaitGroup

	for _, t := range tasks {
		t := t
		sem <- struct{}{}
		wg.Add(1)

		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			switch w.processTask(workCtx, t) {
			case outcomeRemoved:
				removed.Add(1)
			case outcomeRetried:
				retried.Add(1)
			case outcomeFailed:
				failed.Add(1)
			}
		}()
	}
	wg.Wait()

	took := w.now().Sub(start)
	w.stats.ObserveDuration(took)
	w.prom.ObserveCleanup("worker", int(removed.Load()), int(retried.Load()), int(failed.Load()), took)

	w.log.Info("cleanup batch done",
		"claimed", len(tasks),
		"removed", removed.Load(),
		"retried", retried.Load(),
		"failed", failed.Load(),
		"took_ms", took.Milliseconds(),
	)

	return len(tasks), nil
}

func (w *Worker) processTask(ctx context.Context, t cleanup.Task) outcome {
	err := w.files.Remove(t.Path)
	if err == nil {
		if err := w.repo.MarkDone(ctx, t.ID); err != nil {
			// the file is gone, a later retry of the row is harmless
			w.log.Warn("mark cleanup done failed", "task_id", t.ID, "err", err)
		}
		w.stats.IncRemoved()
		return outcomeRemoved
	}

	return w.handleFailure(ctx, t, err)
}

func (w *Worker) handleFailure(ctx context.Context, t cleanup.Task, cause error) outcome {
	msg := cause.Error()
	attempt := t.Attempts + 1

	maxAttempts := t.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = cleanup.DefaultMaxAttempts
	}

	if attempt >= maxAttempts {
		if err := w.repo.MarkFailed(ctx, t.ID, msg); err != nil {
			w.log.Error("mark cleanup failed failed", "task_id", t.ID, "err", err)
		}
		w.log.Error("image cleanup gave up", "task_id", t.ID, "path", t.Path, "attempts", attempt, "err", msg)
		w.stats.IncFailed()
		return outcomeFailed
	}

	runAt := w.now().Add(w.backoff.Delay(t.Attempts))
	if err := w.repo.Reschedule(ctx, t.ID, runAt, msg); err != nil {
		w.log.Error("reschedule cleanup failed", "task_id", t.ID, "err", err)
	}
	w.log.Warn("image cleanup will retry", "task_id", t.ID, "path", t.Path, "attempt", attempt, "run_at", runAt, "err", msg)
	w.stats.IncRetried()
	return outcomeRetried
}
