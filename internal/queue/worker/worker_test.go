package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/geocoder89/househub/internal/domain/cleanup"
)

type fakeRepo struct {
	mu sync.Mutex

	claimFn func(limit int) ([]cleanup.Task, error)

	done        []int64
	failed      []int64
	rescheduled map[int64]time.Time
}

func (f *fakeRepo) ClaimBatch(_ context.Context, _ string, limit int) ([]cleanup.Task, error) {
	if f.claimFn != nil {
		return f.claimFn(limit)
	}
	return nil, nil
}

func (f *fakeRepo) MarkDone(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.done = append(f.done, id)
	return nil
}

func (f *fakeRepo) MarkFailed(_ context.Context, id int64, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failed = append(f.failed, id)
	return nil
}

func (f *fakeRepo) Reschedule(_ context.Context, id int64, runAt time.Time, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.rescheduled == nil {
		f.rescheduled = map[int64]time.Time{}
	}
	f.rescheduled[id] = runAt
	return nil
}

func (f *fakeRepo) RequeueStale(context.Context, time.Duration) (int64, error) {
	return 0, nil
}

type fakeFiles struct {
	failing map[string]bool
}

func (f fakeFiles) Remove(path string) error {
	if f.failing[path] {
		return errors.New("permission denied")
	}
	return nil
}

func newTestWorker(repo CleanupRepository, files FileRemover) *Worker {
	w := New(Config{WorkerID: "test", BatchSize: 10, Concurrency: 2}, repo, files,
		slog.New(slog.NewTextHandler(io.Discard, nil)))
	w.backoff = Backoff{Base: time.Second, Max: time.Minute}
	w.now = func() time.Time { return time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC) }
	return w
}

func TestProcessBatch_Outcomes(t *testing.T) {
	tasks := []cleanup.Task{
		{ID: 1, Path: "/uploads/ok.png", MaxAttempts: 3},
		{ID: 2, Path: "/uploads/locked.png", Attempts: 0, MaxAttempts: 3},
		{ID: 3, Path: "/uploads/stuck.png", Attempts: 2, MaxAttempts: 3},
	}
	repo := &fakeRepo{claimFn: func(int) ([]cleanup.Task, error) { return tasks, nil }}
	files := fakeFiles{failing: map[string]bool{"/uploads/locked.png": true, "/uploads/stuck.png": true}}

	w := newTestWorker(repo, files)

	n, err := w.ProcessBatch(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 3 {
		t.Fatalf("claimed %d, want 3", n)
	}

	if len(repo.done) != 1 || repo.done[0] != 1 {
		t.Fatalf("done = %v, want [1]", repo.done)
	}
	if len(repo.failed) != 1 || repo.failed[0] != 3 {
		t.Fatalf("failed = %v, want [3]", repo.failed)
	}

	runAt, ok := repo.rescheduled[2]
	if !ok {
		t.Fatalf("task 2 was not rescheduled")
	}
	if want := w.now().Add(time.Second); !runAt.Equal(want) {
		t.Fatalf("run_at = %s, want %s", runAt, want)
	}

	snap := w.Stats().Snapshot()
	if snap.Claimed != 3 || snap.Removed != 1 || snap.Retried != 1 || snap.Failed != 1 || snap.Batches != 1 {
		t.Fatalf("unexpected stats %+v", snap)
	}
}

func TestProcessBatch_ClaimError(t *testing.T) {
	repo := &fakeRepo{claimFn: func(int) ([]cleanup.Task, error) { return nil, errors.New("db down") }}
	w := newTestWorker(repo, fakeFiles{})

	if _, err := w.ProcessBatch(context.Background()); err == nil {
		t.Fatalf("expected claim error")
	}
}

func TestProcessBatch_Empty(t *testing.T) {
	w := newTestWorker(&fakeRepo{}, fakeFiles{})

	n, err := w.ProcessBatch(context.Background())
	if err != nil || n != 0 {
		t.Fatalf("got n=%d err=%v", n, err)
	}
	if w.Stats().Snapshot().Batches != 0 {
		t.Fatalf("empty claims should not count as batches")
	}
}

func TestBackoff_Delay(t *testing.T) {
	b := Backoff{Base: 2 * time.Second, Max: 5 * time.Minute}

	cases := map[int]time.Duration{
		0:  2 * time.Second,
		1:  4 * time.Second,
		2:  8 * time.Second,
		20: 5 * time.Minute,
	}
	for attempt, want := range cases {
		if got := b.Delay(attempt); got != want {
			t.Fatalf("attempt %d: got %s, want %s", attempt, got, want)
		}
	}

	jittered := Backoff{Base: time.Second, Max: time.Minute, Jitter: 100 * time.Millisecond}.Delay(0)
	if jittered < time.Second || jittered >= time.Second+100*time.Millisecond {
		t.Fatalf("jitter out of range: %s", jittered)
	}
}

func TestRun_StopsOnCancelAndReportsReadiness(t *testing.T) {
	var mu sync.Mutex
	claims := 0
	repo := &fakeRepo{claimFn: func(int) ([]cleanup.Task, error) {
		mu.Lock()
		claims++
		mu.Unlock()
		return nil, nil
	}}

	w := New(Config{WorkerID: "test", PollInterval: 5 * time.Millisecond}, repo, fakeFiles{},
		slog.New(slog.NewTextHandler(io.Discard, nil)))
	h := w.HealthHandler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("readyz before Run = %d, want 503", rec.Code)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for {
		mu.Lock()
		n := claims
		mu.Unlock()
		if n > 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("worker never polled")
		}
		time.Sleep(5 * time.Millisecond)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("readyz while running = %d, want 200", rec.Code)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not stop")
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stats", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("stats = %d", rec.Code)
	}
}
