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

	log "github.com/sirupsen/logrus"
	"github.com/ukydev/fleetflow/internal/api"
	"github.com/ukydev/fleetflow/internal/auth"
	"github.com/ukydev/fleetflow/internal/config"
	"github.com/ukydev/fleetflow/internal/db"
	"github.com/ukydev/fleetflow/internal/events"
	"github.com/ukydev/fleetflow/internal/fleet"
	"github.com/ukydev/fleetflow/internal/jobs"
	"github.com/ukydev/fleetflow/internal/logging"
	"github.com/ukydev/fleetflow/internal/middleware"
	"github.com/ukydev/fleetflow/internal/monitoring"
)

// app is the wired service.
type app struct {
	handler   http.Handler
	scheduler *jobs.Scheduler
	closers   []func(ctx context.Context) error
}

func (a *app) close(ctx context.Context) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			log.WithError(err).Warn("shutdown step failed")
		}
	}
}

func openStore(ctx context.Context, cfg *config.Config) (db.Store, func(context.Context) error, error) {
	if cfg.Store == config.StoreMemory {
		log.Warn("using in-memory store, data is lost on restart")
		return db.NewMemoryStore(), nil, nil
	}
	client, err := db.ConnectMongo(ctx, cfg.MongoURI)
	if err != nil {
		return nil, nil, err
	}
	store := db.NewMongoStore(client, cfg.MongoDB, cfg.MongoTransactions)
	if err := store.EnsureIndexes(ctx); err != nil {
		_ = store.Close(context.Background())
		return nil, nil, fmt.Errorf("ensure indexes: %w", err)
	}
	log.WithFields(log.Fields{"db": cfg.MongoDB, "transactions": cfg.MongoTransactions}).Info("connected to MongoDB")
	return store, store.Close, nil
}

func build(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{}

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if closeStore != nil {
		a.closers = append(a.closers, closeStore)
	}

	metrics := monitoring.New()
	sinks := events.Multi{metrics, events.Logger{Entry: log.WithField("component", "events")}}
	if cfg.MQTTBroker != "" {
		publisher, err := events.DialMQTT(events.MQTTConfig{
			Broker:   cfg.MQTTBroker,
			ClientID: cfg.MQTTClientID,
			Topic:    cfg.MQTTTopic,
			Username: cfg.MQTTUsername,
			Password: cfg.MQTTPassword,
		})
		if err != nil {
			a.close(ctx)
			return nil, fmt.Errorf("mqtt: %w", err)
		}
		sinks = append(sinks, publisher)
		a.closers = append(a.closers, func(context.Context) error {
			publisher.Close()
			return nil
		})
	}

	authService := auth.NewService(cfg.JWTSecret, cfg.JWTExpiry)
	if authService.UsesDevSecret() {
		log.Warn("JWT_SECRET is not set, using the development secret")
	}

	engine := fleet.NewEngine(store, fleet.WithEvents(sinks))
	limiter := middleware.NewRateLimitMiddleware()

	runner := jobs.NewRunner(jobs.RunnerConfig{
		Store:           store,
		Alerts:          sinks,
		Recorder:        metrics,
		Limiter:         limiter,
		LimiterWindow:   cfg.RateLimitWindow,
		DeadStockWindow: cfg.DeadStockWindow,
	})
	a.scheduler, err = jobs.NewScheduler(runner, jobs.Schedules{
		FleetAlerts:    cfg.AlertSchedule,
		RateLimitSweep: cfg.RateLimitSweep,
	})
	if err != nil {
		a.close(ctx)
		return nil, err
	}

	a.handler = api.NewRouter(api.Deps{
		Store:   store,
		Engine:  engine,
		Auth:    authService,
		Metrics: metrics,
		Limiter: limiter,
	}, api.Options{
		CORSOrigins:       cfg.CORSOrigins,
		RateLimitRequests: cfg.RateLimitRequests,
		RateLimitWindow:   cfg.RateLimitWindow,
		DeadStockWindow:   cfg.DeadStockWindow,
		TrustProxy:        cfg.TrustProxy,
	})
	return a, nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}
	if err := logging.Setup(cfg.LogLevel, cfg.LogFormat, os.Stdout); err != nil {
		log.WithError(err).Fatal("invalid logging configuration")
	}

	startCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	a, err := build(startCtx, cfg)
	cancel()
	if err != nil {
		log.WithError(err).Fatal("failed to start")
	}

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      a.handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	a.scheduler.Start()
	go func() {
		log.WithField("addr", srv.Addr).Info("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.WithError(err).Error("server forced to shutdown")
	}
	a.scheduler.Stop()
	a.close(ctx)
	log.Info("server exited")
}
