package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/crosslove/eventhub/internal/auth"
	"github.com/crosslove/eventhub/internal/config"
	"github.com/crosslove/eventhub/internal/db"
	"github.com/crosslove/eventhub/internal/geocoding"
	httpx "github.com/crosslove/eventhub/internal/http"
	"github.com/crosslove/eventhub/internal/http/handlers"
	"github.com/crosslove/eventhub/internal/observability"
	"github.com/crosslove/eventhub/internal/redisclient"
	"github.com/crosslove/eventhub/internal/repo/postgres"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const serviceName = "eventhub-api"

func main() {
	// Load the config set up
	cfg := config.Load()

	// start up the observability logger
	log := observability.NewLogger(cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := observability.InitTracer(ctx, serviceName, cfg.Env, cfg.OTLPEndpoint)
	if err != nil {
		log.Error("tracer init failed", "err", err)
		os.Exit(1)
	}
	defer func() {
		tctx, cancel := config.WithTimeout(5 * time.Second)
		defer cancel()
		_ = shutdownTracer(tctx)
	}()

	pool, err := db.NewPool(ctx, cfg.DBURL)
	if err != nil {
		log.Error("db connect failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool); err != nil {
		log.Error("db migrate failed", "err", err)
		os.Exit(1)
	}

	rdb := redisclient.New(redisclient.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer rdb.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	prom := observability.NewProm(reg)

	jobsRepo := postgres.NewJobsRepo(pool, prom)
	usersRepo := postgres.NewUsersRepo(pool, prom)

	created, err := db.EnsureAdminUser(ctx, usersRepo, cfg)
	if err != nil {
		log.Error("admin seed failed", "err", err)
		os.Exit(1)
	}
	if created {
		log.Info("admin user created", "email", cfg.AdminEmail)
	}

	geocoder := geocoding.New(geocoding.NominatimConfig{
		BaseURL:   cfg.GeocoderURL,
		UserAgent: cfg.GeocoderUserAgent,
		Timeout:   cfg.GeocoderTimeout,
	}, rdb, log, prom)

	// set up routers with the log
	router := httpx.NewRouter(httpx.Deps{
		Logger:        log,
		Config:        cfg,
		Users:         usersRepo,
		Categories:    postgres.NewCategoriesRepo(pool, prom),
		Events:        postgres.NewEventsRepo(pool, prom),
		Registrations: postgres.NewRegistrationsRepo(pool, prom, jobsRepo),
		Jobs:          jobsRepo,
		Tokens:        auth.NewManager(cfg.JWTSecret, cfg.AccessTTL()),
		Geocoder:      geocoder,
		Cache:         handlers.NewReadCache(30 * time.Second),
		Checks: map[string]handlers.Pinger{
			"postgres": pool,
			"redis":    rdb,
		},
		Prom:           prom,
		Gatherer:       reg,
		TracingEnabled: cfg.OTLPEndpoint != "",
		ServiceName:    serviceName,
	})

	// server set up
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "port", cfg.Port, "env", cfg.Env)
		err := srv.ListenAndServe()

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", "err", err)
			stop()
		}
	}()

	// Graceful shutdown
	<-ctx.Done()
	log.Info("server shutting down")

	shutdownCh := make(chan struct{})

	go func() {
		defer close(shutdownCh)

		sctx, cancel := config.WithTimeout(10 * time.Second)
		defer cancel()

		if err := srv.Shutdown(sctx); err != nil {
			log.Error("graceful shutdown failed", "err", err)
		}
	}()

	select {
	case <-shutdownCh:
		log.Info("shutdown complete")

	case <-time.After(12 * time.Second):
		log.Error("shutdown timed out")
	}
}
