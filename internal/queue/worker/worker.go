// Package worker drains the file cleanup log: it claims pending rows, removes
// the files they name, and records the outcome.
package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/geocoder89/househub/internal/domain/cleanup"
	"github.com/geocoder89/househub/internal/observability"
)

type CleanupRepository interface {
	ClaimBatch(ctx context.Context, workerID string, limit int) ([]cleanup.Task, error)
	MarkDone(ctx context.Context, id int64) error
	MarkFailed(ctx context.Context, id int64, errMsg string) error
	Reschedule(ctx context.Context, id int64, runAt time.Time, errMsg string) error
	RequeueStale(ctx context.Context, lockTTL time.Duration) (int64, error)
}

// FileRemover deletes a stored image by its public path. A missing file counts
// as removed.
type FileRemover interface {
	Remove(publicPath string) error
}

type Config struct {
	PollInterval  time.Duration
	WorkerID      string
	BatchSize     int
	Concurrency   int
	LockTTL       time.Duration
	ShutdownGrace time.Duration
}

type Worker struct {
	cfg   Config
	repo  CleanupRepository
	files FileRemover
	log   *slog.Logger

	backoff Backoff
	now     func() time.Time

	stats *observability.CleanupStats
	prom  *observability.Prom

	readyMu sync.RWMutex
	ready   bool
}

func New(cfg Config, repo CleanupRepository, files FileRemover, log *slog.Logger) *Worker {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 5 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 20
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = time.Minute
	}
	if cfg.ShutdownGrace <= 0 {
		cfg.ShutdownGrace = 10 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}

	return &Worker{
		cfg:     cfg,
		repo:    repo,
		files:   files,
		log:     log.With("worker_id", cfg.WorkerID),
		backoff: DefaultBackoff,
		now:     time.Now,
		stats:   observability.NewCleanupStats(),
	}
}

// WithMetrics reports batches to prom as well as the in-process stats.
func (w *Worker) WithMetrics(prom *observability.Prom) *Worker {
	w.prom = prom
	return w
}

func (w *Worker) Stats() *observability.CleanupStats {
	return w.stats
}

// Run polls until ctx is cancelled. A batch already claimed when shutdown
// starts gets ShutdownGrace to finish recording its results.
func (w *Worker) Run(ctx context.Context) error {
	w.setReady(true)
	defer w.setReady(false)

	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	lastRequeue := time.Time{}

	w.log.Info("cleanup worker started",
		"poll_interval", w.cfg.PollInterval.String(),
		"batch_size", w.cfg.BatchSize,
		"concurrency", w.cfg.Concurrency,
	)

	for {
		select {
		case <-ctx.Done():
			w.log.Info("cleanup worker received shutdown signal")
			return nil

		case <-ticker.C:
			if w.now().Sub(lastRequeue) >= w.cfg.LockTTL {
				w.requeueStale(ctx)
				lastRequeue = w.now()
			}

			// drain whatever is due before waiting for the next tick
			for ctx.Err() == nil {
				n, err := w.ProcessBatch(ctx)
				if err != nil {
					w.log.Error("cleanup batch failed", "err", err)
					break
				}
				if n < w.cfg.BatchSize {
					break
				}
			}
		}
	}
}

func (w *Worker) requeueStale(ctx context.Context) {
	rctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	n, err := w.repo.RequeueStale(rctx, w.cfg.LockTTL)
	if err != nil {
		w.log.Warn("requeue stale cleanups failed", "err", err)
		return
	}
	if n > 0 {
		w.log.Info("requeued stale cleanups", "count", n)
	}
}

func (w *Worker) setReady(v bool) {
	w.readyMu.Lock()
	w.ready = v
	w.readyMu.Unlock()
}

func (w *Worker) isReady() bool {
	w.readyMu.RLock()
	defer w.readyMu.RUnlock()
	return w.ready
}
