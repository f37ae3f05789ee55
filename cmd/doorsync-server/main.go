package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	log "github.com/sirupsen/logrus"

	"github.com/BrandonDHaskell/Portunus/doorsync/internal/cache"
	"github.com/BrandonDHaskell/Portunus/doorsync/internal/config"
	"github.com/BrandonDHaskell/Portunus/doorsync/internal/db"
	"github.com/BrandonDHaskell/Portunus/doorsync/internal/doorsync/service"
	"github.com/BrandonDHaskell/Portunus/doorsync/internal/doorsync/store/sqlite"
	"github.com/BrandonDHaskell/Portunus/doorsync/internal/gateway"
	"github.com/BrandonDHaskell/Portunus/doorsync/internal/grpcapi"
	"github.com/BrandonDHaskell/Portunus/doorsync/internal/httpapi"
	"github.com/BrandonDHaskell/Portunus/doorsync/internal/notify"
)

func main() {
	// A missing .env is fine; the environment may already be set.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.WithError(err).Warn(".env not loaded")
	}

	cfg := config.FromEnv()
	logger := newLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// DB
	sqlDB, err := db.Open(ctx, db.Config{Path: cfg.DBPath, Env: cfg.Env})
	if err != nil {
		logger.WithError(err).Fatal("open db")
	}
	defer sqlDB.Close()

	if cfg.Env == "dev" {
		if err := db.SeedDev(ctx, sqlDB, db.SeedDevOptions{}); err != nil {
			logger.WithError(err).Fatal("seed dev members")
		}
	}

	writer := db.NewWorker(sqlDB)
	defer writer.Close()

	eventLog := sqlite.NewEventLogStore(sqlDB, writer)
	members := sqlite.NewMemberStore(sqlDB, writer)
	archiveStore := sqlite.NewArchiveStore(writer)

	// Cache + metrics
	store := cache.New(cache.Config{
		Dir:         cfg.CacheDir,
		Enabled:     cfg.CacheEnabled,
		DefaultTTL:  cfg.CacheTTL,
		LockTimeout: cfg.CacheLockTimeout,
	}, logger)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		cache.NewCollector(store),
	)
	metrics := service.NewReconcileMetrics(reg)

	// Gateway
	client := gateway.NewClient(gateway.Config{
		BaseURL:   cfg.RESTEndpoint,
		Timeout:   cfg.GatewayTimeout,
		RangeHint: cfg.EventRangeHint,
	}, logger)
	cached := gateway.NewCached(client, store)

	controllers, err := config.LoadControllers(cfg.ControllersFile)
	if err != nil {
		logger.WithError(err).WithField("path", cfg.ControllersFile).Warn("controller directory not loaded, starting with none")
	}
	registry := service.NewControllerRegistry(controllers, cfg.Timezone, logger)
	logger.WithField("controllers", len(controllers)).Info("controller directory loaded")

	publisher, err := notify.Connect(cfg.NATSURL, cfg.NATSToken, logger)
	if err != nil {
		logger.WithError(err).Fatal("nats")
	}
	defer publisher.Close()

	// Services
	reconciler := service.NewEventReconciler(registry, cached, eventLog, members, publisher, metrics,
		service.ReconcilerConfig{Window: cfg.ReconcileWindow}, logger)
	eventsView := service.NewEventsView(registry, cached, members, logger)
	archive := service.NewArchive(members, eventLog, archiveStore, logger)

	// gRPC health
	health := grpcapi.NewServer(logger)
	if cfg.GRPCAddr != "" {
		lis, err := net.Listen("tcp", cfg.GRPCAddr)
		if err != nil {
			logger.WithError(err).Fatal("grpc listen")
		}
		go func() {
			if err := health.Serve(lis); err != nil {
				logger.WithError(err).Error("grpc server error")
			}
		}()
	}

	scheduler := service.NewReconcileScheduler(reconciler, cfg.ReconcileInterval, health, logger)
	scheduler.Start(ctx)

	// HTTP
	srv := httpapi.NewServer(httpapi.Dependencies{
		Logger:             logger,
		Addr:               cfg.HTTPAddr,
		Registry:           registry,
		Reconciler:         reconciler,
		Events:             eventsView,
		Archive:            archive,
		EventLog:           eventLog,
		Gateway:            cached,
		Cache:              store,
		Metrics:            reg,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	})

	go func() {
		logger.WithField("addr", cfg.HTTPAddr).Info("listening")
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Error("server error")
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	scheduler.Stop()
	health.Stop()
}

func newLogger(cfg config.Config) *log.Logger {
	logger := log.New()
	logger.SetOutput(os.Stdout)

	if cfg.LogFormat == "json" {
		logger.SetFormatter(&log.JSONFormatter{})
	} else {
		logger.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}

	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = log.InfoLevel
	}
	logger.SetLevel(level)
	return logger
}
