package storage

import (
	"context"
	"log/slog"
	"time"
)

// CleanupLog tracks files scheduled for removal. Resolve marks the given
// paths as handled.
type CleanupLog interface {
	Resolve(ctx context.Context, paths []string) error
}

// CleanupObserver is satisfied by *observability.Prom.
type CleanupObserver interface {
	ObserveCleanup(source string, removed, retried, failed int, took time.Duration)
}

// Purger removes images that a committed listing change no longer references.
// Files it cannot remove stay pending in the cleanup log for the worker.
type Purger struct {
	store   *Store
	cleanup CleanupLog
	log     *slog.Logger
	metrics CleanupObserver
}

func NewPurger(store *Store, cleanup CleanupLog, log *slog.Logger) *Purger {
	if log == nil {
		log = slog.Default()
	}
	return &Purger{store: store, cleanup: cleanup, log: log}
}

// WithMetrics reports every purge under the "api" source.
func (p *Purger) WithMetrics(m CleanupObserver) *Purger {
	p.metrics = m
	return p
}

// Purge returns how many files were removed.
func (p *Purger) Purge(ctx context.Context, paths []string) int {
	if len(paths) == 0 {
		return 0
	}

	start := time.Now()
	removed := make([]string, 0, len(paths))
	for _, path := range paths {
		if err := p.store.Remove(path); err != nil {
			p.log.Warn("image removal failed, left for cleanup worker", "path", path, "err", err)
			continue
		}
		removed = append(removed, path)
	}

	if p.cleanup != nil && len(removed) > 0 {
		if err := p.cleanup.Resolve(ctx, removed); err != nil {
			p.log.Warn("cleanup log resolve failed", "count", len(removed), "err", err)
		}
	}

	if p.metrics != nil {
		p.metrics.ObserveCleanup("api", len(removed), len(paths)-len(removed), 0, time.Since(start))
	}

	return len(removed)
}

// Discard drops fresh uploads whose owning write failed. Nothing references
// them, so no cleanup log entry exists.
func (p *Purger) Discard(paths []string) {
	p.store.RemoveAll(paths)
}
