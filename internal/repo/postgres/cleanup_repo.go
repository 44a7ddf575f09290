package postgres

import (
	"context"
	"time"

	"github.com/geocoder89/househub/internal/domain/cleanup"
	"github.com/geocoder89/househub/internal/observability"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const cleanupColumns = `id, path, status, attempts, max_attempts, run_at, locked_at, locked_by, last_error, created_at, updated_at`

// CleanupRepo is the file_cleanups log: one row per stored image that must be
// removed from disk.
type CleanupRepo struct {
	observer
	pool *pgxpool.Pool
}

func NewCleanupRepo(pool *pgxpool.Pool, prom *observability.Prom) *CleanupRepo {
	return &CleanupRepo{observer: observer{prom: prom}, pool: pool}
}

// EnqueueTx records paths inside the caller's transaction so the rows commit
// or roll back with the listing change that orphaned them.
func (r *CleanupRepo) EnqueueTx(ctx context.Context, tx pgx.Tx, paths []string) error {
	if len(paths) == 0 {
		return nil
	}

	return r.observe("cleanups.enqueue_tx", func() error {
		_, err := tx.Exec(ctx, `
		INSERT INTO file_cleanups (path, status, attempts, max_attempts, run_at, created_at, updated_at)
		SELECT p, 'pending', 0, $2, NOW(), NOW(), NOW()
		FROM UNNEST($1::text[]) AS p
	`, paths, cleanup.DefaultMaxAttempts)
		return err
	})
}

// Resolve marks pending rows for paths the API already removed inline.
func (r *CleanupRepo) Resolve(ctx context.Context, paths []string) error {
	if len(paths) == 0 {
		return nil
	}

	return r.observe("cleanups.resolve", func() error {
		_, err := r.pool.Exec(ctx, `
		UPDATE file_cleanups
		SET status = 'done',
		    locked_at = NULL,
		    locked_by = NULL,
		    last_error = NULL,
		    updated_at = NOW()
		WHERE path = ANY($1)
		  AND status IN ('pending', 'processing')
	`, paths)
		return err
	})
}

// ClaimBatch locks up to limit due rows for workerID using SKIP LOCKED so
// concurrent workers never pick the same row.
func (r *CleanupRepo) ClaimBatch(ctx context.Context, workerID string, limit int) ([]cleanup.Task, error) {
	if limit <= 0 {
		limit = 1
	}

	var out []cleanup.Task

	err := r.observe("cleanups.claim_batch", func() error {
		rows, err := r.pool.Query(ctx, `
		WITH next AS (
			SELECT id
			FROM file_cleanups
			WHERE status = 'pending'
			  AND run_at <= NOW()
			  AND attempts < max_attempts
			ORDER BY run_at ASC, id ASC
			FOR UPDATE SKIP LOCKED
			LIMIT $2
		)
		UPDATE file_cleanups
		SET status = 'processing',
		    locked_at = NOW(),
		    locked_by = $1,
		    updated_at = NOW()
		WHERE id IN (SELECT id FROM next)
		RETURNING `+cleanupColumns, workerID, limit)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var t cleanup.Task
			var status string
			if err := rows.Scan(
				&t.ID, &t.Path, &status, &t.Attempts, &t.MaxAttempts,
				&t.RunAt, &t.LockedAt, &t.LockedBy, &t.LastError,
				&t.CreatedAt, &t.UpdatedAt,
			); err != nil {
				return err
			}
			t.Status = cleanup.Status(status)
			out = append(out, t)
		}
		return rows.Err()
	})

	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *CleanupRepo) MarkDone(ctx context.Context, id int64) error {
	return r.setStatus(ctx, "cleanups.mark_done", `
		UPDATE file_cleanups
		SET status = 'done',
		    locked_at = NULL,
		    locked_by = NULL,
		    last_error = NULL,
		    updated_at = NOW()
		WHERE id = $1
	`, id)
}

func (r *CleanupRepo) MarkFailed(ctx context.Context, id int64, errMsg string) error {
	return r.setStatus(ctx, "cleanups.mark_failed", `
		UPDATE file_cleanups
		SET status = 'failed',
		    attempts = attempts + 1,
		    locked_at = NULL,
		    locked_by = NULL,
		    last_error = $2,
		    updated_at = NOW()
		WHERE id = $1
	`, id, errMsg)
}

// Reschedule puts a row back to pending with one more attempt counted.
func (r *CleanupRepo) Reschedule(ctx context.Context, id int64, runAt time.Time, errMsg string) error {
	return r.setStatus(ctx, "cleanups.reschedule", `
		UPDATE file_cleanups
		SET status = 'pending',
		    attempts = attempts + 1,
		    run_at = $2,
		    locked_at = NULL,
		    locked_by = NULL,
		    last_error = $3,
		    updated_at = NOW()
		WHERE id = $1
	`, id, runAt, errMsg)
}

func (r *CleanupRepo) setStatus(ctx context.Context, op, query string, args ...interface{}) error {
	var tag pgconn.CommandTag

	err := r.observe(op, func() error {
		var err error
		tag, err = r.pool.Exec(ctx, query, args...)
		return err
	})

	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return cleanup.ErrTaskNotFound
	}
	return nil
}

// RequeueStale releases rows whose worker died mid-batch.
func (r *CleanupRepo) RequeueStale(ctx context.Context, lockTTL time.Duration) (int64, error) {
	secs := int64(lockTTL.Seconds())
	if secs <= 0 {
		secs = 30
	}

	var rows int64
	err := r.observe("cleanups.requeue_stale", func() error {
		tag, err := r.pool.Exec(ctx, `
		UPDATE file_cleanups
		SET status = 'pending',
		    locked_at = NULL,
		    locked_by = NULL,
		    updated_at = NOW()
		WHERE status = 'processing'
		  AND locked_at IS NOT NULL
		  AND locked_at < NOW() - ($1 * INTERVAL '1 second')
	`, secs)
		if err != nil {
			return err
		}
		rows = tag.RowsAffected()
		return nil
	})

	return rows, err
}
