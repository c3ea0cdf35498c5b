// Command tsc-server runs the traffic signal controller: the cycle engine as
// a single background task, the operator/dashboard HTTP surface, and the
// websocket broadcast hub.
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

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/tiger/traffic-signal-controller/internal/bus"
	"github.com/tiger/traffic-signal-controller/internal/cache"
	"github.com/tiger/traffic-signal-controller/internal/config"
	"github.com/tiger/traffic-signal-controller/internal/control"
	"github.com/tiger/traffic-signal-controller/internal/engine"
	"github.com/tiger/traffic-signal-controller/internal/httpapi"
	"github.com/tiger/traffic-signal-controller/internal/metrics"
	"github.com/tiger/traffic-signal-controller/internal/store"
)

const shutdownGrace = 10 * time.Second

func main() {
	log, err := zap.NewProduction()
	if err != nil {
		fmt.Fprintf(os.Stderr, "tsc-server: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(log); err != nil {
		log.Fatal("service failed", zap.Error(err))
	}
}

func run(log *zap.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log.Info("starting", zap.String("project", cfg.ProjectName), zap.String("http_addr", cfg.HTTPAddr))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := sqlx.ConnectContext(ctx, "postgres", cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(redisOpts)
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	m := metrics.New(reg)

	st := store.New(db)
	phaseCache := cache.New(rdb)
	hub := bus.NewHub(log.Named("bus"), m)
	eng := engine.New(st, phaseCache, hub, log.Named("engine"), m)
	ctrl := control.New(st, phaseCache, hub, log.Named("control"), m)
	api := httpapi.New(ctrl, st, hub, log.Named("http"), reg)

	engineDone := make(chan error, 1)
	go func() { engineDone <- eng.Run(ctx) }()

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: api.Handler()}
	serveDone := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveDone <- err
			return
		}
		serveDone <- nil
	}()

	select {
	case <-ctx.Done():
	case err := <-serveDone:
		if err != nil {
			return fmt.Errorf("serve http: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown", zap.Error(err))
	}
	if err := <-engineDone; err != nil {
		return err
	}
	log.Info("stopped")
	return nil
}
