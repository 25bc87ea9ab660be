package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/angelmondragon/pdv-backend/api/routes"
	"github.com/angelmondragon/pdv-backend/internal/alerts"
	"github.com/angelmondragon/pdv-backend/internal/cashsessions"
	"github.com/angelmondragon/pdv-backend/internal/directory"
	"github.com/angelmondragon/pdv-backend/internal/pdv"
	"github.com/angelmondragon/pdv-backend/internal/sales"
	"github.com/angelmondragon/pdv-backend/pkg/config"
	"github.com/angelmondragon/pdv-backend/pkg/db"
	"github.com/angelmondragon/pdv-backend/pkg/logger"
	"github.com/angelmondragon/pdv-backend/pkg/metrics"
	"github.com/angelmondragon/pdv-backend/pkg/migrate"
	"github.com/angelmondragon/pdv-backend/pkg/outbox"
	"github.com/angelmondragon/pdv-backend/pkg/redis"
	"github.com/angelmondragon/pdv-backend/pkg/storeday"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})

	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logg *logger.Logger) (err error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, dbClient.Close())
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, redisClient.Close())
	}()

	loc, err := cfg.PDV.Location()
	if err != nil {
		return err
	}
	calendar := storeday.New(loc)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	pdvMetrics := metrics.NewPDVMetrics(registry)

	sinks := make([]alerts.Sink, 0, 2)
	if cfg.FeatureFlags.DurableAlerts {
		outboxSink, err := alerts.NewOutboxSink(dbClient, outbox.NewService(outbox.NewRepository(dbClient.DB()), logg))
		if err != nil {
			return err
		}
		sinks = append(sinks, outboxSink)
	}
	if cfg.FeatureFlags.RealtimeAlerts {
		redisSink, err := alerts.NewRedisSink(redisClient)
		if err != nil {
			return err
		}
		sinks = append(sinks, redisSink)
	}

	var enqueuer alerts.Enqueuer
	if len(sinks) > 0 {
		dispatcher, err := alerts.NewDispatcher(alerts.DispatcherParams{
			Logger:    logg,
			Enricher:  alerts.NewEnricher(directory.NewRepository(dbClient.DB()), logg),
			Sinks:     sinks,
			Metrics:   pdvMetrics,
			QueueSize: cfg.PDV.AlertQueueSize,
			Workers:   cfg.PDV.AlertWorkers,
		})
		if err != nil {
			return err
		}
		dispatcher.Start(ctx)
		defer func() {
			drainCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			err = multierr.Append(err, dispatcher.Stop(drainCtx))
		}()
		enqueuer = dispatcher
	}

	sessionService, err := cashsessions.NewService(dbClient, cashsessions.NewRepository(dbClient.DB()), calendar, pdvMetrics, logg)
	if err != nil {
		return err
	}

	salesRepo := sales.NewRepository(dbClient.DB())
	sequencer, err := sales.NewSequencer(salesRepo, cfg.PDV.SaleNumberRetries, pdvMetrics)
	if err != nil {
		return err
	}

	engine, err := pdv.NewEngine(pdv.EngineParams{
		Tx:          dbClient,
		Sessions:    sessionService,
		Sales:       salesRepo,
		Sequencer:   sequencer,
		Alerts:      enqueuer,
		Calendar:    calendar,
		Metrics:     pdvMetrics,
		Logger:      logg,
		TopProducts: cfg.PDV.ReportTopProducts,
	})
	if err != nil {
		return err
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	startCtx := logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"timezone": loc.String(),
	})
	logg.Info(startCtx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(cfg, logg, dbClient, redisClient, registry, engine, calendar),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	logg.Info(startCtx, "shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
