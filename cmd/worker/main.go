package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/geocoder89/househub/internal/config"
	"github.com/geocoder89/househub/internal/db"
	"github.com/geocoder89/househub/internal/events"
	"github.com/geocoder89/househub/internal/observability"
	"github.com/geocoder89/househub/internal/queue/worker"
	"github.com/geocoder89/househub/internal/repo/postgres"
	"github.com/geocoder89/househub/internal/storage"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	cfg := config.Load()
	log := observability.NewLogger(cfg.Env, "househub-worker")

	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)

	defer stop()

	pool, err := db.NewPool(cfg.DBURL, 4)

	if err != nil {
		log.Error("db connect failed", "err", err)
		os.Exit(1)
	}

	defer pool.Close()

	images, err := storage.NewStore(storage.Options{
		Dir:       cfg.UploadDir,
		URLPrefix: cfg.UploadURLPrefix,
	})
	if err != nil {
		log.Error("upload store init failed", "err", err)
		os.Exit(1)
	}

	prom := observability.NewProm(prometheus.NewRegistry())
	cleanups := postgres.NewCleanupRepo(pool, prom)

	host, _ := os.Hostname()
	workerID := host + "-" + strconv.Itoa(os.Getpid())

	w := worker.New(worker.Config{
		PollInterval:  cfg.CleanupPollInterval,
		WorkerID:      workerID,
		BatchSize:     cfg.CleanupBatchSize,
		Concurrency:   4,
		LockTTL:       time.Minute,
		ShutdownGrace: 10 * time.Second,
	}, cleanups, images, log).WithMetrics(prom)

	ops := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.WorkerPort),
		Handler:           w.HealthHandler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := ops.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("worker ops server failed", "err", err)
		}
	}()

	// booking notifications
	if cfg.AMQPURL != "" {
		go func() {
			err := events.Consume(ctx, cfg.AMQPURL, log, func(ctx context.Context, ev events.RentBooked) error {
				log.InfoContext(ctx, "booking notification",
					"rent_id", ev.RentID,
					"house_id", ev.HouseID,
					"owner_id", ev.OwnerID,
					"tenant_email", ev.TenantEmail,
					"start_date", ev.StartDate.String(),
					"end_date", ev.EndDate.String(),
				)
				return nil
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				log.Error("booking consumer stopped", "err", err)
			}
		}()
	}

	log.Info("worker has started", "worker_id", workerID, "ops_port", cfg.WorkerPort)

	if err := w.Run(ctx); err != nil {
		log.Error("worker stopped with error", "err", err)
	}

	shutdownCtx, cancel := config.WithTimeout(5 * time.Second)
	defer cancel()
	_ = ops.Shutdown(shutdownCtx)

	log.Info("worker shutdown complete")
}
