package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/crosslove/eventhub/internal/breaker"
	"github.com/crosslove/eventhub/internal/config"
	"github.com/crosslove/eventhub/internal/db"
	"github.com/crosslove/eventhub/internal/geocoding"
	"github.com/crosslove/eventhub/internal/jobs"
	"github.com/crosslove/eventhub/internal/notifications"
	"github.com/crosslove/eventhub/internal/observability"
	"github.com/crosslove/eventhub/internal/queue/worker"
	"github.com/crosslove/eventhub/internal/redisclient"
	"github.com/crosslove/eventhub/internal/repo/postgres"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const serviceName = "eventhub-worker"

func newNotifier(cfg config.Config, log *slog.Logger, prom *observability.Prom) notifications.Notifier {
	var inner notifications.Notifier
	channel := cfg.Notifier

	switch cfg.Notifier {
	case "ses":
		inner = notifications.NewSESNotifier(notifications.SESConfig{
			Region:          cfg.SESRegion,
			AccessKeyID:     cfg.SESAccessKeyID,
			SecretAccessKey: cfg.SESSecretAccessKey,
			From:            cfg.MailFrom,
		}, log)
	default:
		channel = "log"
		inner = notifications.NewLogNotifier(log)
	}

	return notifications.NewProtectedNotifier(inner, notifications.ProtectedNotifierConfig{
		Channel: channel,
		Timeout: 5 * time.Second,
		Breaker: breaker.Config{FailureThreshold: 5, Cooldown: time.Minute, HalfOpenMaxCalls: 1},
	}, prom)
}

func main() {
	cfg := config.Load()
	log := observability.NewLoggerTo(os.Stdout, cfg.Env, serviceName)

	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
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
	eventsRepo := postgres.NewEventsRepo(pool, prom)

	host, _ := os.Hostname()
	workerID := host + "-" + strconv.Itoa(os.Getpid())

	w := worker.New(worker.Config{
		PollInterval:  time.Second,
		WorkerID:      workerID,
		Concurrency:   cfg.WorkerConcurrency,
		ShutdownGrace: 10 * time.Second,
	}, jobsRepo, log, prom)

	w.Register(jobs.JobRegistrationConfirmation, worker.ConfirmationHandler{
		Registrations: postgres.NewRegistrationsRepo(pool, prom, jobsRepo),
		Users:         postgres.NewUsersRepo(pool, prom),
		Events:        eventsRepo,
		Notifier:      newNotifier(cfg, log, prom),
		Logger:        log,
	})
	w.Register(jobs.JobGeocodeEvent, worker.GeocodeHandler{
		Events: eventsRepo,
		Geocoder: geocoding.New(geocoding.NominatimConfig{
			BaseURL:   cfg.GeocoderURL,
			UserAgent: cfg.GeocoderUserAgent,
			Timeout:   cfg.GeocoderTimeout,
		}, rdb, log, prom),
		Logger: log,
	})

	healthSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.WorkerHealthPort),
		Handler:           w.HealthHandler(pool, reg),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := healthSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("health server failed", "err", err)
		}
	}()

	log.Info("worker has started", "worker_id", workerID, "concurrency", cfg.WorkerConcurrency)

	if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("worker stopped with error", "err", err)
	}

	sctx, cancel := config.WithTimeout(5 * time.Second)
	defer cancel()
	_ = healthSrv.Shutdown(sctx)

	log.Info("worker shutdown complete")
}
