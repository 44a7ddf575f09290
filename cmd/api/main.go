package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/geocoder89/househub/internal/auth"
	"github.com/geocoder89/househub/internal/config"
	"github.com/geocoder89/househub/internal/db"
	"github.com/geocoder89/househub/internal/events"
	httpx "github.com/geocoder89/househub/internal/http"
	"github.com/geocoder89/househub/internal/http/handlers"
	"github.com/geocoder89/househub/internal/observability"
	"github.com/geocoder89/househub/internal/ratelimit"
	"github.com/geocoder89/househub/internal/redisclient"
	"github.com/geocoder89/househub/internal/repo/memory"
	"github.com/geocoder89/househub/internal/repo/postgres"
	"github.com/geocoder89/househub/internal/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	// Load the config set up
	cfg := config.Load()

	// start up the observability logger
	log := observability.NewLogger(cfg.Env, "househub-api")

	shutdownTracer, err := observability.InitTracer(context.Background(), "househub-api", cfg.OTLPEndpoint)
	if err != nil {
		log.Error("tracer init failed", "err", err)
		os.Exit(1)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	prom := observability.NewProm(reg)

	images, err := storage.NewStore(storage.Options{
		Dir:       cfg.UploadDir,
		URLPrefix: cfg.UploadURLPrefix,
		MaxBytes:  cfg.UploadMaxBytes,
		MaxFiles:  cfg.UploadMaxFiles,
	})
	if err != nil {
		log.Error("upload store init failed", "err", err)
		os.Exit(1)
	}

	deps := httpx.Deps{
		Images: images,
		Tokens: auth.NewManager(cfg.JWTSecret, cfg.JWTTTL()),
		Prom:   prom,
	}
	var closers []func()

	// stores
	switch cfg.StoreBackend {
	case "memory":
		log.Warn("using in-memory store, data is lost on restart")
		store := memory.NewStore()
		deps.Users, deps.Houses, deps.Rents = store.Users(), store.Houses(), store.Rents()
		deps.Purger = storage.NewPurger(images, nil, log).WithMetrics(prom)

	default:
		pool, err := db.NewPool(cfg.DBURL, 10)
		if err != nil {
			log.Error("db connect failed", "err", err)
			os.Exit(1)
		}
		closers = append(closers, pool.Close)

		cleanups := postgres.NewCleanupRepo(pool, prom)
		deps.Users = postgres.NewUsersRepo(pool, prom)
		deps.Houses = postgres.NewHousesRepo(pool, prom, cleanups)
		deps.Rents = postgres.NewRentsRepo(pool, prom)
		deps.Purger = storage.NewPurger(images, cleanups, log).WithMetrics(prom)
		deps.Checks = append(deps.Checks, handlers.Check{Name: "postgres", Ping: pool.Ping})
	}

	// rate limiting
	deps.Limiter = ratelimit.NewMemoryLimiter(cfg.RateLimitMax, cfg.RateLimitWindow)
	if rdb := redisclient.New(redisclient.Config{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}); rdb != nil {
		deps.Limiter = ratelimit.NewRedisLimiter(rdb.Raw(), cfg.RateLimitMax, cfg.RateLimitWindow)
		deps.Checks = append(deps.Checks, handlers.Check{Name: "redis", Ping: rdb.Ping, Optional: true})
		closers = append(closers, func() { _ = rdb.Close() })
		log.Info("rate limiting backed by redis", "addr", cfg.RedisAddr)
	}

	// booking events
	var publisher events.Publisher = events.NewLogPublisher(log)
	if cfg.AMQPURL != "" {
		amqpPub := events.NewAMQPPublisher(cfg.AMQPURL)
		closers = append(closers, func() { _ = amqpPub.Close() })
		publisher = amqpPub
		log.Info("booking events go to rabbitmq", "queue", events.QueueRentBooked)
	}
	deps.Publisher = events.NewProtectedPublisher(publisher, events.ProtectedPublisherConfig{
		Timeout:          2 * time.Second,
		FailureThreshold: 3,
		Cooldown:         15 * time.Second,
	})

	seedCtx, cancelSeed := config.WithTimeout(5 * time.Second)
	created, err := db.EnsureAdminUser(seedCtx, deps.Users, cfg)
	cancelSeed()
	if err != nil {
		log.Error("admin seed failed", "err", err)
	} else if created {
		log.Info("admin user created", "email", cfg.AdminEmail)
	}

	// set up routers with the log
	router := httpx.NewRouter(log, cfg, deps)

	// server set up
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// start server using a concurrent go-routine driven anonymous function.
	go func() {
		log.Info("Server starting", "port", cfg.Port, "env", cfg.Env, "store", cfg.StoreBackend)
		err := srv.ListenAndServe()

		if err != nil && err != http.ErrServerClosed {
			log.Error("server failed", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Info("server shutting down")

	shutdownCh := make(chan struct{})

	go func() {
		defer close(shutdownCh)

		ctx, cancel := config.WithTimeout(10 * time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Error("graceful shutdown failed", "err", err)
		}
		if err := shutdownTracer(ctx); err != nil {
			log.Warn("tracer shutdown failed", "err", err)
		}
	}()

	select {
	case <-shutdownCh:
		log.Info("shutdown complete")

	case <-time.After(12 * time.Second):
		log.Error("shutdown timed out")
	}

	for i := len(closers) - 1; i >= 0; i-- {
		closers[i]()
	}
}
